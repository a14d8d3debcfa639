// Command cbordump decodes CBOR from a file or stdin and prints it in
// RFC 8949 diagnostic notation or as JSON.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/synadia-labs/cbor-dyn/cbor"
	"github.com/synadia-labs/cbor-dyn/diag"
)

// CLI defines the cbordump command-line interface.
//
// We deliberately keep it minimal:
//   - input: a file path, or "-"/omitted for stdin
//   - json/diag: output format (diag is the default)
//   - sequence: decode and print every top-level item instead of just one
type CLI struct {
	Input    string `arg:"" optional:"" help:"Input file (defaults to stdin, or \"-\" for stdin explicitly)."`
	JSON     bool   `help:"Print JSON instead of diagnostic notation."`
	Diag     bool   `help:"Print RFC 8949 diagnostic notation (default)."`
	Sequence bool   `short:"q" help:"Decode a CBOR sequence: keep decoding top-level items until EOF."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cbordump"),
		kong.Description("Decode CBOR and print it as diagnostic notation or JSON."),
	)

	if err := run(&cli); err != nil {
		ctx.FatalIfErrorf(err)
	}
}

func run(cli *CLI) error {
	var r io.Reader = os.Stdin
	if cli.Input != "" && cli.Input != "-" {
		f, err := os.Open(cli.Input)
		if err != nil {
			return fmt.Errorf("open %q: %w", cli.Input, err)
		}
		defer f.Close()
		r = f
	}

	dec := cbor.NewDecoder(r, cbor.DecodeOptions{})
	for {
		v, err := dec.Decode()
		if err != nil {
			if _, ok := err.(*cbor.DecodeEOF); ok && cli.Sequence {
				return nil
			}
			return err
		}
		if err := printValue(cli, v); err != nil {
			return err
		}
		if !cli.Sequence {
			return nil
		}
	}
}

func printValue(cli *CLI, v any) error {
	if cli.JSON {
		b, err := diag.ToJSON(v)
		if err != nil {
			return fmt.Errorf("coerce to JSON: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}
	fmt.Println(diag.Render(v))
	return nil
}

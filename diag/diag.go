// Package diag renders decoded CBOR values (as produced by
// github.com/synadia-labs/cbor-dyn/cbor's dynamic Decoder) in RFC 8949
// §8 diagnostic notation, and coerces them to JSON for interop tooling.
// Unlike cbor.DiagBytes/ToJSONBytes, which walk raw wire bytes directly,
// this package walks already-decoded values so it can render cyclic
// graphs (shared values) without re-parsing.
package diag

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/synadia-labs/cbor-dyn/cbor"
)

// Render formats v in RFC 8949 diagnostic notation.
func Render(v any) string {
	var sb strings.Builder
	renderValue(&sb, v, newVisitSet())
	return sb.String()
}

// visitSet breaks cycles in shared/self-referential graphs: once a
// reference-kind value (slice, map wrapper) has been entered, a second
// visit renders as an ellipsis rather than recursing forever.
type visitSet struct {
	seen map[any]bool
}

func newVisitSet() *visitSet { return &visitSet{seen: map[any]bool{}} }

func (s *visitSet) enter(key any) bool {
	if key == nil {
		return true
	}
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	return true
}

func renderValue(sb *strings.Builder, v any, seen *visitSet) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case cbor.Undefined:
		sb.WriteString("undefined")
	case cbor.SimpleValue:
		fmt.Fprintf(sb, "simple(%d)", uint8(t))
	case string:
		sb.WriteString(strconv.Quote(t))
	case []byte:
		sb.WriteString("h'")
		sb.WriteString(fmt.Sprintf("%x", t))
		sb.WriteString("'")
	case uint64:
		sb.WriteString(strconv.FormatUint(t, 10))
	case int64:
		sb.WriteString(strconv.FormatInt(t, 10))
	case *big.Int:
		sb.WriteString(t.String())
	case float32:
		sb.WriteString(formatFloat(float64(t)))
	case float64:
		sb.WriteString(formatFloat(t))
	case cbor.Decimal:
		fmt.Fprintf(sb, "4(%d, %s)", t.Exponent, t.Mantissa.String())
	case cbor.BigFloat:
		fmt.Fprintf(sb, "5(%d, %s)", t.Exponent, t.Mantissa.String())
	case *big.Rat:
		fmt.Fprintf(sb, "30(%s, %s)", t.Num().String(), t.Denom().String())
	case time.Time:
		sb.WriteString("0(\"")
		sb.WriteString(t.Format(time.RFC3339Nano))
		sb.WriteString("\")")
	case *regexp.Regexp:
		fmt.Fprintf(sb, "35(%s)", strconv.Quote(t.String()))
	case *mail.Message:
		sb.WriteString("36(<mime message>)")
	case uuid.UUID:
		fmt.Fprintf(sb, "37(h'%s')", strings.ReplaceAll(t.String(), "-", ""))
	case net.IP:
		fmt.Fprintf(sb, "%d(%s)", ipTagNumber(t), strconv.Quote(t.String()))
	case *net.IPNet:
		ones, _ := t.Mask.Size()
		fmt.Fprintf(sb, "%d([%s, %d])", ipTagNumber(t.IP), strconv.Quote(t.IP.String()), ones)
	case complex128:
		fmt.Fprintf(sb, "1010(%s, %s)", formatFloat(real(t)), formatFloat(imag(t)))
	case cbor.Tag:
		fmt.Fprintf(sb, "%d(", t.Number)
		renderValue(sb, t.Value, seen)
		sb.WriteString(")")
	case cbor.Set:
		sb.WriteString("258(")
		renderSlice(sb, t.Members(), seen)
		sb.WriteString(")")
	case cbor.ImmutableArray:
		renderSlice(sb, t.Items(), seen)
	case cbor.ImmutableMap:
		renderPairs(sb, t.Pairs(), seen)
	case []any:
		renderSlice(sb, t, seen)
	case []cbor.Pair:
		renderPairs(sb, t, seen)
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}

func ipTagNumber(ip net.IP) int {
	if ip.To4() != nil {
		return 52
	}
	return 54
}

func renderSlice(sb *strings.Builder, items []any, seen *visitSet) {
	sb.WriteString("[")
	if !seen.enter(sliceIdentity(items)) {
		sb.WriteString("...")
		sb.WriteString("]")
		return
	}
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		renderValue(sb, it, seen)
	}
	sb.WriteString("]")
}

func renderPairs(sb *strings.Builder, pairs []cbor.Pair, seen *visitSet) {
	sb.WriteString("{")
	if !seen.enter(pairsIdentity(pairs)) {
		sb.WriteString("...")
		sb.WriteString("}")
		return
	}
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString(", ")
		}
		renderValue(sb, p.Key, seen)
		sb.WriteString(": ")
		renderValue(sb, p.Value, seen)
	}
	sb.WriteString("}")
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToJSON coerces a decoded value to JSON. CBOR constructs with no direct
// JSON equivalent are approximated: byte strings become base64 strings,
// non-string map keys are rendered via Render and used as JSON object
// keys, a Tag is replaced by its inner value, and other values with no
// JSON form (complex numbers, for example) fall back to their
// diagnostic-notation string.
func ToJSON(v any) ([]byte, error) {
	return json.Marshal(toJSONValue(v, newVisitSet()))
}

func toJSONValue(v any, seen *visitSet) any {
	switch t := v.(type) {
	case nil, bool, string:
		return t
	case cbor.Undefined:
		return nil
	case cbor.SimpleValue:
		return uint8(t)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case uint64:
		return t
	case int64:
		return t
	case *big.Int:
		return t.String()
	case float32:
		return float64(t)
	case float64:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case uuid.UUID:
		return t.String()
	case net.IP:
		return t.String()
	case cbor.ImmutableArray:
		return toJSONSlice(t.Items(), seen)
	case cbor.ImmutableMap:
		return toJSONObject(t.Pairs(), seen)
	case []any:
		return toJSONSlice(t, seen)
	case []cbor.Pair:
		return toJSONObject(t, seen)
	case cbor.Set:
		return toJSONSlice(t.Members(), seen)
	case cbor.Tag:
		return toJSONValue(t.Value, seen)
	default:
		return Render(v)
	}
}

func toJSONSlice(items []any, seen *visitSet) []any {
	if !seen.enter(sliceIdentity(items)) {
		return []any{}
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = toJSONValue(it, seen)
	}
	return out
}

// toJSONObject stringifies non-string keys via Render (JSON objects only
// support string keys) and preserves wire order, since Go's
// encoding/json does not guarantee map key order; duplicate keys after
// stringification keep their last value, matching encoding/json.
func toJSONObject(pairs []cbor.Pair, seen *visitSet) json.RawMessage {
	if !seen.enter(pairsIdentity(pairs)) {
		return json.RawMessage("{}")
	}
	type kv struct {
		k string
		v any
	}
	out := make([]kv, len(pairs))
	for i, p := range pairs {
		k, ok := p.Key.(string)
		if !ok {
			k = Render(p.Key)
		}
		out[i] = kv{k: k, v: toJSONValue(p.Value, seen)}
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range out {
		if i > 0 {
			sb.WriteString(",")
		}
		kb, _ := json.Marshal(e.k)
		sb.Write(kb)
		sb.WriteString(":")
		vb, err := json.Marshal(e.v)
		if err != nil {
			vb = []byte("null")
		}
		sb.Write(vb)
	}
	sb.WriteString("}")
	return json.RawMessage(sb.String())
}

func sliceIdentity(items []any) any {
	if items == nil {
		return nil
	}
	return fmt.Sprintf("%p", items)
}

func pairsIdentity(pairs []cbor.Pair) any {
	if pairs == nil {
		return nil
	}
	return fmt.Sprintf("%p", pairs)
}

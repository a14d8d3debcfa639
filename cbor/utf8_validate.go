package cbor

import "github.com/synadia-labs/cbor-dyn/internal/cborfast"

// isUTF8Valid validates UTF-8 for a byte slice. It defaults to the
// ASCII-fast-path validator in internal/cborfast and can be overridden
// by architecture-specific implementations via build tags.
var isUTF8Valid = cborfast.Validate

package cbor

import (
	"fmt"
	"math/big"
)

// Undefined is the distinguished CBOR "undefined" simple value (major 7,
// additional info 23). It decodes to this singleton rather than nil so
// that callers can distinguish it from CBOR null.
type Undefined struct{}

func (Undefined) String() string { return "undefined" }

// BreakMarker is the distinguished "break" sentinel (major 7, additional
// info 31) that terminates an indefinite-length array, map, or string.
// It is never returned from a successful top-level Decode; it only
// appears internally while the tokenizer is walking an indefinite
// container and is exposed for diagnostic tooling.
type BreakMarker struct{}

func (BreakMarker) String() string { return "break" }

// SimpleValue is a CBOR simple value (major type 7) outside the reserved
// range 24-31 and the predefined false/true/null/undefined codepoints
// (20-23). It compares equal to the plain integer n.
type SimpleValue uint8

func (s SimpleValue) String() string { return fmt.Sprintf("simple(%d)", uint8(s)) }

// Tag pairs a CBOR semantic tag number with the single inner value it
// wraps. Decoded tags with no registered handler (or whose handler
// declined via the decoder's tag_hook) surface as a Tag so callers can
// inspect or re-encode them losslessly.
type Tag struct {
	Number uint64
	Value  any
}

// String implements fmt.Stringer. It guards against cyclic Value graphs
// produced by the shared-reference protocol by never recursing into
// container values, only naming their kind.
func (t Tag) String() string {
	return fmt.Sprintf("%d(%s)", t.Number, describeKind(t.Value))
}

func describeKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case []Pair:
		return "map"
	case Tag:
		return "tag"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Less orders two Tags first by tag number, then by comparing their
// inner values' canonical encodings, giving Tag a total order by
// (tag number, inner value).
func (t Tag) Less(other Tag) bool {
	if t.Number != other.Number {
		return t.Number < other.Number
	}
	a, errA := EncodeCanonical(t.Value)
	b, errB := EncodeCanonical(other.Value)
	if errA != nil || errB != nil {
		return false
	}
	return compareBytes(a, b) < 0
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Pair is an ordered (key, value) pair as they occur within a decoded
// CBOR map. Decoded maps preserve wire order as []Pair rather than
// folding into a Go map, since CBOR itself does not require map keys to
// be unique.
type Pair struct {
	Key   any
	Value any
}

// ImmutableMap is the read-only, order-preserving map representation used
// whenever a decoded map value occurs in a map-key position. It wraps a
// slice, so it is not a comparable Go type and cannot key a Go map
// itself; under equalValues two ImmutableMaps are equal when they hold
// the same pairs in the same order.
type ImmutableMap struct {
	pairs []Pair
}

// NewImmutableMap builds an ImmutableMap from the given pairs, which are
// copied so later mutation of the slice does not affect the map.
func NewImmutableMap(pairs []Pair) ImmutableMap {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return ImmutableMap{pairs: cp}
}

// Len returns the number of pairs.
func (m ImmutableMap) Len() int { return len(m.pairs) }

// Pairs returns the map's pairs in wire order. The returned slice must
// not be mutated.
func (m ImmutableMap) Pairs() []Pair { return m.pairs }

// Get performs a linear scan for a key compared via equalValues.
func (m ImmutableMap) Get(key any) (any, bool) {
	for _, p := range m.pairs {
		if equalValues(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// ImmutableArray is the read-only counterpart to a decoded array used in
// a map-key position. Like ImmutableMap it wraps a slice, so it is not a
// comparable Go type; equality goes through equalValues.
type ImmutableArray struct {
	items []any
}

// NewImmutableArray copies items into a new ImmutableArray.
func NewImmutableArray(items []any) ImmutableArray {
	cp := make([]any, len(items))
	copy(cp, items)
	return ImmutableArray{items: cp}
}

func (a ImmutableArray) Len() int      { return len(a.items) }
func (a ImmutableArray) Items() []any  { return a.items }

// Set is the decoded form of tag 258: a mathematical set of members,
// represented on the wire as a CBOR array. Its members are held in a
// plain slice in insertion order, so it is not a comparable Go type;
// equality is defined as same-members-regardless-of-order via
// equalValues.
type Set struct {
	members []any
}

// NewSet builds a Set from members, de-duplicating via equalValues.
func NewSet(members []any) Set {
	out := make([]any, 0, len(members))
	for _, m := range members {
		dup := false
		for _, o := range out {
			if equalValues(m, o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return Set{members: out}
}

// Members returns the set's members in insertion order.
func (s Set) Members() []any { return s.members }

// Len returns the number of members.
func (s Set) Len() int { return len(s.members) }

// equalValues performs a structural equality check across the decoded
// value universe. It is used for map-key lookups and Set construction,
// not for the canonical-encoding total order (see Tag.Less and the
// map-key sort in the encoder, which compare encoded bytes instead).
func equalValues(a, b any) bool {
	switch av := a.(type) {
	case *big.Int:
		bv, ok := b.(*big.Int)
		return ok && av.Cmp(bv) == 0
	case []byte:
		bv, ok := b.([]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case ImmutableArray:
		bv, ok := b.(ImmutableArray)
		return ok && equalValues(av.items, bv.items)
	case ImmutableMap:
		bv, ok := b.(ImmutableMap)
		if !ok || len(av.pairs) != len(bv.pairs) {
			return false
		}
		for i := range av.pairs {
			if !equalValues(av.pairs[i].Key, bv.pairs[i].Key) || !equalValues(av.pairs[i].Value, bv.pairs[i].Value) {
				return false
			}
		}
		return true
	case Tag:
		bv, ok := b.(Tag)
		return ok && av.Number == bv.Number && equalValues(av.Value, bv.Value)
	default:
		return a == b
	}
}

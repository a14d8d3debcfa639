package cbor

import (
	"bytes"
	"io"
)

// StrErrorsPolicy controls how invalid UTF-8 in a decoded text string is
// handled.
type StrErrorsPolicy int

const (
	// StrErrorsStrict fails the decode with DecodeValueError (default).
	StrErrorsStrict StrErrorsPolicy = iota
	// StrErrorsReplace substitutes U+FFFD for invalid sequences.
	StrErrorsReplace
	// StrErrorsIgnore drops invalid bytes silently.
	StrErrorsIgnore
)

// TagDecodeFunc resolves the inner value of a semantic tag into a
// higher-level Go value (e.g. tag 37's 16 raw bytes into a uuid.UUID).
type TagDecodeFunc func(d *Decoder, inner any) (any, error)

// DecodeOptions configures a Decoder.
type DecodeOptions struct {
	// TagHook is consulted for tag numbers with no built-in or
	// instance-registered handler. If nil, unknown tags decode to Tag.
	TagHook func(d *Decoder, tagNum uint64, inner any) (any, error)

	// ObjectHook post-processes every decoded map (as its wire-order
	// pairs) and may return a replacement value.
	ObjectHook func(d *Decoder, pairs []Pair) (any, error)

	// StrErrors controls the text-string UTF-8 validity policy.
	StrErrors StrErrorsPolicy

	// MaxDepth bounds recursion. Zero selects maxDepthDefault (950).
	MaxDepth int
}

func (o DecodeOptions) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return maxDepthDefault
}

// sharedSlot is one entry of the decoder's shared-reference table (tag
// 28/29 protocol). A slot starts as a placeholder and is filled in by
// setShareable once the tag-28 body begins constructing its value,
// allowing array/map/user handlers to register themselves before their
// own children are decoded (supporting genuine cycles).
type sharedSlot struct {
	filled bool
	value  any
}

// stringRefNamespace is one open tag-256 scope. Entries accumulate as
// strings/byte strings are decoded within the scope; tag 25 resolves
// against the innermost open namespace.
type stringRefNamespace struct {
	entries []any
}

// Decoder reads CBOR-encoded values from a byte source, producing
// dynamic Go values (ints, floats, strings, byte strings, []any,
// []Pair, and the registered semantic-tag types) rather than populating
// a fixed, generated struct shape. A Decoder is not safe for concurrent
// use; distinct Decoders over distinct sources are independent.
type Decoder struct {
	r    io.Reader
	buf  []byte // buffered, unconsumed bytes read ahead from r
	cur  int    // read cursor within buf
	read int64  // total bytes consumed from buf (== byte offset of buf[0] within the stream)

	opts DecodeOptions

	shared     []*sharedSlot
	strNS      []*stringRefNamespace
	tagDecoder map[uint64]TagDecodeFunc
}

// NewDecoder constructs a Decoder reading from r.
func NewDecoder(r io.Reader, opts DecodeOptions) *Decoder {
	d := &Decoder{r: r, opts: opts}
	d.tagDecoder = make(map[uint64]TagDecodeFunc, len(defaultTagDecoders))
	for k, v := range defaultTagDecoders {
		d.tagDecoder[k] = v
	}
	return d
}

// NewDecoderBytes constructs a Decoder over an in-memory buffer.
func NewDecoderBytes(b []byte, opts DecodeOptions) *Decoder {
	return NewDecoder(bytes.NewReader(b), opts)
}

// RegisterTagDecoder overrides or adds a tag handler on this Decoder
// instance only (the package-level registry used by new Decoders is
// untouched).
func (d *Decoder) RegisterTagDecoder(tagNum uint64, fn TagDecodeFunc) {
	d.tagDecoder[tagNum] = fn
}

// offset returns the current byte offset into the source, for error
// reporting.
func (d *Decoder) offset() int { return int(d.read) + d.cur }

// the largest single chunk ensure will pull in one read(2) call;
// bounds how much is ever allocated before a length claim is validated
// against what is actually available from the underlying reader.
const decodeReadChunk = 64 * 1024

// ensure makes at least n bytes available starting at d.buf[d.cur:],
// growing d.buf by reading from d.r in bounded chunks. It never
// allocates more than has been confirmed readable, so a payload
// claiming an enormous length fails with DecodeEOF as soon as the
// underlying reader runs dry rather than after an up-front allocation
// of the claimed size.
func (d *Decoder) ensure(n int) error {
	for len(d.buf)-d.cur < n {
		if d.r == nil {
			return ErrShortBytes
		}
		want := n - (len(d.buf) - d.cur)
		if want > decodeReadChunk {
			want = decodeReadChunk
		}
		chunk := make([]byte, want)
		got, err := io.ReadFull(d.r, chunk)
		if got > 0 {
			// compact already-consumed prefix before appending, so buf
			// doesn't grow without bound across a long sequence decode.
			if d.cur > 0 {
				d.buf = d.buf[d.cur:]
				d.read += int64(d.cur)
				d.cur = 0
			}
			d.buf = append(d.buf, chunk[:got]...)
		}
		if err != nil {
			if got > 0 && len(d.buf)-d.cur >= n {
				return nil
			}
			return ErrShortBytes
		}
	}
	return nil
}

func (d *Decoder) peekByte() (byte, error) {
	if err := d.ensure(1); err != nil {
		return 0, err
	}
	return d.buf[d.cur], nil
}

func (d *Decoder) advance(n int) {
	d.cur += n
}

// readLenArg reads the length/value argument following a head byte with
// the given additional-info field (already validated to be one of
// 0-27 by the caller).
func (d *Decoder) readLenArg(addInfo uint8) (uint64, error) {
	switch {
	case addInfo <= addInfoDirect:
		return uint64(addInfo), nil
	case addInfo == addInfoUint8:
		if err := d.ensure(2); err != nil {
			return 0, err
		}
		v := uint64(d.buf[d.cur+1])
		d.advance(2)
		return v, nil
	case addInfo == addInfoUint16:
		if err := d.ensure(3); err != nil {
			return 0, err
		}
		v := uint64(be.Uint16(d.buf[d.cur+1:]))
		d.advance(3)
		return v, nil
	case addInfo == addInfoUint32:
		if err := d.ensure(5); err != nil {
			return 0, err
		}
		v := uint64(be.Uint32(d.buf[d.cur+1:]))
		d.advance(5)
		return v, nil
	case addInfo == addInfoUint64:
		if err := d.ensure(9); err != nil {
			return 0, err
		}
		v := be.Uint64(d.buf[d.cur+1:])
		d.advance(9)
		return v, nil
	default:
		return 0, d.newDecodeValueError("reserved additional information value")
	}
}

// readPayload returns n freshly-read bytes at the current position,
// advancing past them. The copy is necessary because d.buf may be
// compacted/regrown by subsequent ensure() calls.
func (d *Decoder) readPayload(n uint64) ([]byte, error) {
	const maxInt = int(^uint(0) >> 1)
	if n > uint64(maxInt) {
		return nil, d.newDecodeError(ErrShortBytes)
	}
	if err := d.ensure(int(n)); err != nil {
		return nil, d.newDecodeError(err)
	}
	out := make([]byte, n)
	copy(out, d.buf[d.cur:d.cur+int(n)])
	d.advance(int(n))
	return out, nil
}

// Decode reads exactly one top-level CBOR item and returns its decoded
// value. Per-call state (the shared-reference table and any open
// string-reference namespaces) is reset on entry, so reuse across
// successive top-level calls on the same Decoder cannot leak state
// (spec §5, §8 property 8).
func (d *Decoder) Decode() (any, error) {
	d.shared = nil
	d.strNS = nil
	v, err := d.decodeValue(0, false)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal decodes a single top-level value from b.
func Unmarshal(b []byte, opts DecodeOptions) (any, error) {
	return NewDecoderBytes(b, opts).Decode()
}

// decodeValue is the tokenizer's central dispatch: read head byte, read
// length, read payload, recurse into items/pairs/tag content, then hand
// the result to the tag registry before returning it. immutable selects
// whether nested containers materialize as their hashable
// ImmutableArray/ImmutableMap/Set variants, which map keys must use
// since a Go map key cannot be a slice or map.
func (d *Decoder) decodeValue(depth int, immutable bool) (any, error) {
	return d.decodeValueSharing(depth, immutable, -1)
}

// decodeValueSharing is decodeValue with an optional pending shared-slot
// index. When shareSlot >= 0 and the next item is an array or map of
// definite length, the container registers itself into that slot (via
// setShareable) before its elements are decoded, so a child element can
// reference its own enclosing container (tag 29) — the mid-construction
// registration required for genuine cyclic graphs (§4.3's set_shareable
// hook). Everywhere else shareSlot is -1 and ignored.
func (d *Decoder) decodeValueSharing(depth int, immutable bool, shareSlot int) (any, error) {
	if depth > d.opts.maxDepth() {
		return nil, d.newDecodeError(errDepthExceeded)
	}
	lead, err := d.peekByte()
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	major := getMajorType(lead)
	add := getAddInfo(lead)

	if add == 28 || add == 29 || add == 30 {
		return nil, d.newDecodeValueError("reserved additional information value 28-30")
	}

	switch major {
	case majorTypeUint:
		d.advance(1)
		u, err := d.readLenArg(add)
		if err != nil {
			return nil, d.newDecodeError(err)
		}
		return u, nil

	case majorTypeNegInt:
		d.advance(1)
		u, err := d.readLenArg(add)
		if err != nil {
			return nil, d.newDecodeError(err)
		}
		return negIntValue(u), nil

	case majorTypeBytes:
		return d.decodeBytesLike(depth, false)

	case majorTypeText:
		return d.decodeTextLike(depth)

	case majorTypeArray:
		return d.decodeArray(depth, immutable, shareSlot)

	case majorTypeMap:
		return d.decodeMap(depth, immutable, shareSlot)

	case majorTypeTag:
		return d.decodeTag(depth, immutable)

	case majorTypeSimple:
		return d.decodeSimple(depth)
	}
	return nil, d.newDecodeValueError("unknown major type")
}

var errDepthExceeded = &simpleErr{"max decode depth exceeded"}

type simpleErr struct{ s string }

func (e *simpleErr) Error() string { return e.s }

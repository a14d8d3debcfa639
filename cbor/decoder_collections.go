package cbor

import (
	"math"
	"math/big"
	"unicode/utf8"
)

// negIntValue converts the unsigned argument of a major-type-1 head
// (n such that the represented value is -1-n) into either an int64 or,
// for n beyond int64 range, a *big.Int — matching the arbitrary
// precision required for negative integers (§3).
func negIntValue(n uint64) any {
	if n <= 1<<63-1 {
		return -1 - int64(n)
	}
	z := new(big.Int).SetUint64(n)
	z.Add(z, big.NewInt(1))
	z.Neg(z)
	return z
}

// decodeBytesLike reads a byte string, including the indefinite-length
// chunked form (concatenation of definite byte strings terminated by
// break; each chunk must itself be a definite byte string).
func (d *Decoder) decodeBytesLike(depth int, textCtx bool) (any, error) {
	lead, err := d.peekByte()
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	add := getAddInfo(lead)
	d.advance(1)

	if add == addInfoIndefinite {
		var out []byte
		for {
			b, err := d.peekByte()
			if err != nil {
				return nil, d.newDecodeError(err)
			}
			if b == makeByte(majorTypeSimple, simpleBreak) {
				d.advance(1)
				break
			}
			if getMajorType(b) != majorTypeBytes {
				return nil, d.newDecodeValueError("non-bytestring chunk in indefinite-length byte string")
			}
			if getAddInfo(b) == addInfoIndefinite {
				return nil, d.newDecodeValueError("nested indefinite-length chunk in indefinite-length byte string")
			}
			chunk, err := d.readDefiniteBytes(majorTypeBytes)
			if err != nil {
				return nil, err
			}
			out = append(out, chunk...)
		}
		if out == nil {
			out = []byte{}
		}
		d.recordStringRef(out)
		return out, nil
	}

	n, err := d.readLenArg(add)
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	payload, err := d.readPayload(n)
	if err != nil {
		return nil, err
	}
	d.recordStringRef(payload)
	return payload, nil
}

// readDefiniteBytes reads one definite-length byte/text-string chunk
// whose head byte has already been peeked (not consumed) as major m.
func (d *Decoder) readDefiniteBytes(m uint8) ([]byte, error) {
	lead, err := d.peekByte()
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	d.advance(1)
	n, err := d.readLenArg(getAddInfo(lead))
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	return d.readPayload(n)
}

// decodeTextLike reads a text string (definite or indefinite-chunked)
// and validates/repairs UTF-8 per the configured StrErrors policy.
func (d *Decoder) decodeTextLike(depth int) (any, error) {
	lead, err := d.peekByte()
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	add := getAddInfo(lead)
	d.advance(1)

	var raw []byte
	if add == addInfoIndefinite {
		for {
			b, err := d.peekByte()
			if err != nil {
				return nil, d.newDecodeError(err)
			}
			if b == makeByte(majorTypeSimple, simpleBreak) {
				d.advance(1)
				break
			}
			if getMajorType(b) != majorTypeText {
				return nil, d.newDecodeValueError("non-textstring chunk in indefinite-length text string")
			}
			if getAddInfo(b) == addInfoIndefinite {
				return nil, d.newDecodeValueError("nested indefinite-length chunk in indefinite-length text string")
			}
			chunk, err := d.readDefiniteBytes(majorTypeText)
			if err != nil {
				return nil, err
			}
			raw = append(raw, chunk...)
		}
	} else {
		n, err := d.readLenArg(add)
		if err != nil {
			return nil, d.newDecodeError(err)
		}
		raw, err = d.readPayload(n)
		if err != nil {
			return nil, err
		}
	}
	if raw == nil {
		raw = []byte{}
	}

	s, err := d.applyStrErrors(raw)
	if err != nil {
		return nil, err
	}
	d.recordStringRef(s)
	return s, nil
}

func (d *Decoder) applyStrErrors(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	switch d.opts.StrErrors {
	case StrErrorsReplace:
		return strings_ToValidUTF8(raw), nil
	case StrErrorsIgnore:
		return stripInvalidUTF8(raw), nil
	default:
		return "", d.newDecodeValueError("invalid UTF-8 in text string")
	}
}

func strings_ToValidUTF8(raw []byte) string {
	out := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			out = append(out, '�')
			i++
			continue
		}
		out = append(out, r)
		i += size
	}
	return string(out)
}

func stripInvalidUTF8(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			i++
			continue
		}
		out = append(out, raw[i:i+size]...)
		i += size
	}
	return string(out)
}

// recordStringRef appends a decoded string/byte-string occurrence to
// the innermost open string-reference namespace, if any is open, so
// later tag-25 references can resolve against it.
func (d *Decoder) recordStringRef(v any) {
	if len(d.strNS) == 0 {
		return
	}
	ns := d.strNS[len(d.strNS)-1]
	ns.entries = append(ns.entries, v)
}

// allocShared reserves a new placeholder slot in the shared-reference
// table and returns its index.
func (d *Decoder) allocShared() int {
	d.shared = append(d.shared, &sharedSlot{})
	return len(d.shared) - 1
}

// setShareable fills in the placeholder at slot, exposing a
// partially-built container/value before its children are decoded so
// genuine cycles can resolve back to it.
func (d *Decoder) setShareable(slot int, v any) {
	d.shared[slot].filled = true
	d.shared[slot].value = v
}

func (d *Decoder) decodeArray(depth int, immutable bool, shareSlot int) (any, error) {
	lead, _ := d.peekByte()
	add := getAddInfo(lead)
	d.advance(1)

	if add == addInfoIndefinite {
		// Indefinite-length containers grow by append, so their backing
		// array has no stable identity until fully built: they cannot
		// register into shareSlot before their elements are decoded, and
		// a self-reference to one mid-construction is not supported.
		var items []any
		for {
			b, err := d.peekByte()
			if err != nil {
				return nil, d.newDecodeError(err)
			}
			if b == makeByte(majorTypeSimple, simpleBreak) {
				d.advance(1)
				break
			}
			v, err := d.decodeValue(depth+1, immutable)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		result := finishArray(items, immutable)
		if shareSlot >= 0 {
			d.setShareable(shareSlot, result)
		}
		return result, nil
	}

	n, err := d.readLenArg(add)
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	// Definite length: pre-size the backing array once and fill by index
	// (never append) so its identity is stable from the start, allowing
	// setShareable to register it before children are decoded — this is
	// what makes a self-referential element within this very array
	// resolve correctly via tag 29. Only the mutable ([]any) form can do
	// this mid-construction: finishArray copies into ImmutableArray, so
	// under an immutable context the slot is filled only after the array
	// is complete (a key cannot reference itself anyway, since keys must
	// be fully formed before use).
	items := make([]any, n)
	if shareSlot >= 0 && !immutable {
		d.setShareable(shareSlot, items)
	}
	for i := uint64(0); i < n; i++ {
		v, err := d.decodeValue(depth+1, immutable)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	result := finishArray(items, immutable)
	if shareSlot >= 0 {
		d.setShareable(shareSlot, result)
	}
	return result, nil
}

func finishArray(items []any, immutable bool) any {
	if items == nil {
		items = []any{}
	}
	if immutable {
		return NewImmutableArray(items)
	}
	return items
}

// clampPrealloc bounds pre-allocation by a declared container length so
// a single absurd length claim cannot itself trigger a huge allocation
// before any element has actually been validated as readable.
func clampPrealloc(n uint64) int {
	const cap32 = 1 << 16
	if n > cap32 {
		return cap32
	}
	return int(n)
}

func (d *Decoder) decodeMap(depth int, immutable bool, shareSlot int) (any, error) {
	lead, _ := d.peekByte()
	add := getAddInfo(lead)
	d.advance(1)

	var pairs []Pair
	indefinite := add == addInfoIndefinite
	if indefinite {
		for {
			b, err := d.peekByte()
			if err != nil {
				return nil, d.newDecodeError(err)
			}
			if b == makeByte(majorTypeSimple, simpleBreak) {
				d.advance(1)
				break
			}
			k, err := d.decodeValue(depth+1, true)
			if err != nil {
				return nil, err
			}
			v, err := d.decodeValue(depth+1, immutable)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, Pair{Key: k, Value: v})
		}
	} else {
		n, err := d.readLenArg(add)
		if err != nil {
			return nil, d.newDecodeError(err)
		}
		// Definite length: same pre-size-and-fill-by-index trick as
		// decodeArray, for the same reason (stable identity so a
		// self-referential value can register before its siblings are
		// decoded). Object hooks and immutable contexts replace the
		// backing value entirely, so they can only register afterward.
		pairs = make([]Pair, n)
		if shareSlot >= 0 && !immutable && d.opts.ObjectHook == nil {
			d.setShareable(shareSlot, pairs)
		}
		for i := uint64(0); i < n; i++ {
			k, err := d.decodeValue(depth+1, true)
			if err != nil {
				return nil, err
			}
			v, err := d.decodeValue(depth+1, immutable)
			if err != nil {
				return nil, err
			}
			pairs[i] = Pair{Key: k, Value: v}
		}
	}
	if pairs == nil {
		pairs = []Pair{}
	}

	if d.opts.ObjectHook != nil {
		res, err := d.opts.ObjectHook(d, pairs)
		if err != nil {
			return nil, err
		}
		if shareSlot >= 0 {
			d.setShareable(shareSlot, res)
		}
		return res, nil
	}
	if immutable {
		m := NewImmutableMap(pairs)
		if shareSlot >= 0 {
			d.setShareable(shareSlot, m)
		}
		return m, nil
	}
	if shareSlot >= 0 {
		d.setShareable(shareSlot, pairs)
	}
	return pairs, nil
}

func (d *Decoder) decodeSimple(depth int) (any, error) {
	lead, _ := d.peekByte()
	add := getAddInfo(lead)
	d.advance(1)

	switch add {
	case simpleFalse:
		return false, nil
	case simpleTrue:
		return true, nil
	case simpleNull:
		return nil, nil
	case simpleUndefined:
		return Undefined{}, nil
	case addInfoUint8: // one-byte simple value, must be >= 32
		if err := d.ensure(1); err != nil {
			return nil, d.newDecodeError(err)
		}
		v := d.buf[d.cur]
		d.advance(1)
		if v < 32 {
			return nil, d.newDecodeValueError("simple value encoded in two-byte form must be >= 32")
		}
		return SimpleValue(v), nil
	case simpleFloat16:
		if err := d.ensure(2); err != nil {
			return nil, d.newDecodeError(err)
		}
		bits := be.Uint16(d.buf[d.cur:])
		d.advance(2)
		return float16BitsToFloat32(bits), nil
	case simpleFloat32:
		if err := d.ensure(4); err != nil {
			return nil, d.newDecodeError(err)
		}
		bits := be.Uint32(d.buf[d.cur:])
		d.advance(4)
		return math.Float32frombits(bits), nil
	case simpleFloat64:
		if err := d.ensure(8); err != nil {
			return nil, d.newDecodeError(err)
		}
		bits := be.Uint64(d.buf[d.cur:])
		d.advance(8)
		return math.Float64frombits(bits), nil
	case simpleBreak:
		return nil, d.newDecodeValueError("unexpected break outside indefinite-length container")
	default:
		if add < 20 {
			return SimpleValue(add), nil
		}
		return nil, d.newDecodeValueError("reserved simple value")
	}
}

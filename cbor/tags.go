package cbor

import (
	"math/big"
	"net"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Decimal is the decoded form of tag 4 (decimal fraction): value =
// Mantissa * 10^Exponent.
type Decimal struct {
	Exponent int64
	Mantissa *big.Int
}

func (d Decimal) String() string {
	return mantissaExpString(d.Mantissa, d.Exponent, 10)
}

// BigFloat is the decoded form of tag 5 (bigfloat): value = Mantissa *
// 2^Exponent. Kept as an exact mantissa/exponent pair rather than
// *big.Float so encoding back out is lossless.
type BigFloat struct {
	Exponent int64
	Mantissa *big.Int
}

func (f BigFloat) String() string {
	return mantissaExpString(f.Mantissa, f.Exponent, 2)
}

func mantissaExpString(m *big.Int, exp int64, base int) string {
	sign := ""
	if base == 10 {
		sign = "e"
	} else {
		sign = "p"
	}
	return m.String() + sign + big.NewInt(exp).String()
}

// asIndex converts a decoded integer value (uint64, int64 or *big.Int)
// into a non-negative int index, for the tag 25/29 back-reference forms.
func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case uint64:
		if n > uint64(^uint(0)>>1) {
			return 0, false
		}
		return int(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return int(n), true
	case *big.Int:
		if !n.IsUint64() {
			return 0, false
		}
		return asIndex(n.Uint64())
	default:
		return 0, false
	}
}

// decodeTag reads a tag number and dispatches either to one of the
// protocol tags that need control over decode order (shareable,
// shared-reference, string-reference namespace, embedded CBOR,
// self-describe) or, generically, decodes the inner value first and
// passes it to the registered TagDecodeFunc (or tag_hook, or Tag
// passthrough) for any tag without special decode-order needs.
func (d *Decoder) decodeTag(depth int, immutable bool) (any, error) {
	lead, err := d.peekByte()
	if err != nil {
		return nil, d.newDecodeError(err)
	}
	add := getAddInfo(lead)
	d.advance(1)
	tagNum, err := d.readLenArg(add)
	if err != nil {
		return nil, d.newDecodeError(err)
	}

	switch tagNum {
	case tagSelfDescribeCBOR:
		return d.decodeValueSharing(depth+1, immutable, -1)

	case tagShareable:
		slot := d.allocShared()
		v, err := d.decodeValueSharing(depth+1, immutable, slot)
		if err != nil {
			return nil, err
		}
		d.setShareable(slot, v)
		return v, nil

	case tagSharedRef:
		idxVal, err := d.decodeValue(depth+1, true)
		if err != nil {
			return nil, err
		}
		idx, ok := asIndex(idxVal)
		if !ok || idx >= len(d.shared) {
			return nil, d.newDecodeValueError("shared reference index out of range")
		}
		slot := d.shared[idx]
		if !slot.filled {
			return nil, d.newDecodeValueError("shared reference to a not-yet-constructed value")
		}
		return slot.value, nil

	case tagStringRefNS:
		d.strNS = append(d.strNS, &stringRefNamespace{})
		v, err := d.decodeValueSharing(depth+1, immutable, -1)
		d.strNS = d.strNS[:len(d.strNS)-1]
		if err != nil {
			return nil, err
		}
		return v, nil

	case tagStringRef:
		idxVal, err := d.decodeValue(depth+1, true)
		if err != nil {
			return nil, err
		}
		idx, ok := asIndex(idxVal)
		if !ok || len(d.strNS) == 0 {
			return nil, d.newDecodeValueError("string reference outside an open namespace")
		}
		ns := d.strNS[len(d.strNS)-1]
		if idx >= len(ns.entries) {
			return nil, d.newDecodeValueError("string reference index out of range")
		}
		return ns.entries[idx], nil

	case tagCBOR:
		inner, err := d.decodeValueSharing(depth+1, immutable, -1)
		if err != nil {
			return nil, err
		}
		raw, ok := inner.([]byte)
		if !ok {
			return nil, d.newDecodeValueError("tag 24 content must be a byte string")
		}
		sub := NewDecoderBytes(raw, d.opts)
		// Reuse the outer decode's shared-reference and string-reference
		// scope, per the embedded-CBOR design decision: a tag-28 value
		// opened outside an embedded item can be referenced from inside
		// it, and vice versa.
		sub.shared = d.shared
		sub.strNS = d.strNS
		sub.tagDecoder = d.tagDecoder
		v, err := sub.decodeValueSharing(depth+1, immutable, -1)
		d.shared = sub.shared
		d.strNS = sub.strNS
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	inner, err := d.decodeValueSharing(depth+1, immutable, -1)
	if err != nil {
		return nil, err
	}

	if fn, ok := d.tagDecoder[tagNum]; ok {
		v, err := fn(d, inner)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	if d.opts.TagHook != nil {
		v, err := d.opts.TagHook(d, tagNum, inner)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return Tag{Number: tagNum, Value: inner}, nil
}

// defaultTagDecoders is the package-level registry of built-in semantic
// tag handlers, copied into every new Decoder (RegisterTagDecoder then
// overrides per-instance without mutating this map).
var defaultTagDecoders = map[uint64]TagDecodeFunc{
	tagDateTimeString:  decodeDateTimeString,
	tagEpochDateTime:   decodeEpochDateTime,
	tagPosBignum:       decodePosBignum,
	tagNegBignum:       decodeNegBignum,
	tagDecimalFrac:     decodeDecimalFraction,
	tagBigfloat:        decodeBigfloat,
	tagBase64URL:       passthroughTag,
	tagBase64:          passthroughTag,
	tagBase16:          passthroughTag,
	tagURI:             passthroughTag,
	tagBase64URLString: passthroughTag,
	tagBase64String:    passthroughTag,
	tagRational:        decodeRational,
	tagRegexp:          decodeRegexp,
	tagMIME:            decodeMIME,
	tagUUID:            decodeUUID,
	tagIPv4:            decodeIPAddrOrNet,
	tagIPv6:            decodeIPAddrOrNet,
	tagSet:             decodeSet,
	tagLegacyIP:        decodeLegacyIP,
	tagLegacyIPNet:     decodeLegacyIPNet,
	tagComplex:         decodeComplex,
}

func passthroughTag(_ *Decoder, inner any) (any, error) { return inner, nil }

func decodeDateTimeString(d *Decoder, inner any) (any, error) {
	s, ok := inner.(string)
	if !ok {
		return nil, d.newDecodeValueError("tag 0 content must be a text string")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, d.newDecodeValueError("tag 0 content is not a valid RFC 3339 datetime: " + err.Error())
	}
	return t, nil
}

func decodeEpochDateTime(d *Decoder, inner any) (any, error) {
	switch v := inner.(type) {
	case uint64:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case *big.Int:
		if !v.IsInt64() {
			return nil, d.newDecodeValueError("tag 1 epoch value out of range")
		}
		return time.Unix(v.Int64(), 0).UTC(), nil
	case float32:
		return epochFloatToTime(float64(v)), nil
	case float64:
		return epochFloatToTime(v), nil
	default:
		return nil, d.newDecodeValueError("tag 1 content must be a number")
	}
}

func epochFloatToTime(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func decodePosBignum(d *Decoder, inner any) (any, error) {
	b, ok := inner.([]byte)
	if !ok {
		return nil, d.newDecodeValueError("tag 2 content must be a byte string")
	}
	return new(big.Int).SetBytes(b), nil
}

func decodeNegBignum(d *Decoder, inner any) (any, error) {
	b, ok := inner.([]byte)
	if !ok {
		return nil, d.newDecodeValueError("tag 3 content must be a byte string")
	}
	z := new(big.Int).SetBytes(b)
	z.Add(z, big.NewInt(1))
	z.Neg(z)
	return z, nil
}

func decodeFractionParts(d *Decoder, inner any, tagName string) (int64, *big.Int, error) {
	items, ok := inner.([]any)
	if !ok || len(items) != 2 {
		return 0, nil, d.newDecodeValueError(tagName + " content must be a 2-element array [exponent, mantissa]")
	}
	exp, ok := toInt64(items[0])
	if !ok {
		return 0, nil, d.newDecodeValueError(tagName + " exponent must be an integer")
	}
	mant, ok := toBigInt(items[1])
	if !ok {
		return 0, nil, d.newDecodeValueError(tagName + " mantissa must be an integer")
	}
	return exp, mant, nil
}

func decodeDecimalFraction(d *Decoder, inner any) (any, error) {
	exp, mant, err := decodeFractionParts(d, inner, "tag 4")
	if err != nil {
		return nil, err
	}
	return Decimal{Exponent: exp, Mantissa: mant}, nil
}

func decodeBigfloat(d *Decoder, inner any) (any, error) {
	exp, mant, err := decodeFractionParts(d, inner, "tag 5")
	if err != nil {
		return nil, err
	}
	return BigFloat{Exponent: exp, Mantissa: mant}, nil
}

func decodeRational(d *Decoder, inner any) (any, error) {
	items, ok := inner.([]any)
	if !ok || len(items) != 2 {
		return nil, d.newDecodeValueError("tag 30 content must be a 2-element array [numerator, denominator]")
	}
	num, ok := toBigInt(items[0])
	if !ok {
		return nil, d.newDecodeValueError("tag 30 numerator must be an integer")
	}
	den, ok := toBigInt(items[1])
	if !ok || den.Sign() == 0 {
		return nil, d.newDecodeValueError("tag 30 denominator must be a non-zero integer")
	}
	return new(big.Rat).SetFrac(num, den), nil
}

func decodeRegexp(d *Decoder, inner any) (any, error) {
	s, ok := inner.(string)
	if !ok {
		return nil, d.newDecodeValueError("tag 35 content must be a text string")
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, d.newDecodeValueError("tag 35 content is not a valid regular expression: " + err.Error())
	}
	return re, nil
}

func decodeMIME(d *Decoder, inner any) (any, error) {
	s, ok := inner.(string)
	if !ok {
		return nil, d.newDecodeValueError("tag 36 content must be a text string")
	}
	msg, err := mail.ReadMessage(strings.NewReader(s))
	if err != nil {
		return nil, d.newDecodeValueError("tag 36 content is not a valid MIME message: " + err.Error())
	}
	return msg, nil
}

func decodeUUID(d *Decoder, inner any) (any, error) {
	b, ok := inner.([]byte)
	if !ok || len(b) != 16 {
		return nil, d.newDecodeValueError("tag 37 content must be a 16-byte string")
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, d.newDecodeValueError("tag 37 content is not a valid UUID: " + err.Error())
	}
	return id, nil
}

func decodeIPAddrOrNet(d *Decoder, inner any) (any, error) {
	if b, ok := inner.([]byte); ok {
		return ipFromBytes(d, b)
	}
	items, ok := inner.([]any)
	if !ok || len(items) != 2 {
		return nil, d.newDecodeValueError("tag 52/54 content must be a byte string address or a 2-element [address, prefix] array")
	}
	addrBytes, ok := items[0].([]byte)
	if !ok {
		return nil, d.newDecodeValueError("tag 52/54 network address must be a byte string")
	}
	ip, err := ipFromBytes(d, addrBytes)
	if err != nil {
		return nil, err
	}
	bits, ok := toInt64(items[1])
	if !ok || bits < 0 {
		return nil, d.newDecodeValueError("tag 52/54 prefix length must be a non-negative integer")
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(int(bits), len(addrBytes)*8)}, nil
}

func ipFromBytes(d *Decoder, b []byte) (net.IP, error) {
	switch len(b) {
	case 4, 16:
		return net.IP(b), nil
	default:
		return nil, d.newDecodeValueError("IP address byte string must be 4 or 16 bytes")
	}
}

func decodeSet(d *Decoder, inner any) (any, error) {
	items, ok := inner.([]any)
	if !ok {
		return nil, d.newDecodeValueError("tag 258 content must be an array")
	}
	return NewSet(items), nil
}

func decodeLegacyIP(d *Decoder, inner any) (any, error) {
	b, ok := inner.([]byte)
	if !ok {
		return nil, d.newDecodeValueError("tag 260 content must be a byte string")
	}
	return ipFromBytes(d, b)
}

func decodeLegacyIPNet(d *Decoder, inner any) (any, error) {
	pairs, ok := inner.([]Pair)
	if !ok {
		if m, ok2 := inner.(ImmutableMap); ok2 {
			pairs = m.Pairs()
		} else {
			return nil, d.newDecodeValueError("tag 261 content must be a single-entry map")
		}
	}
	if len(pairs) != 1 {
		return nil, d.newDecodeValueError("tag 261 content must be a single-entry map")
	}
	addrBytes, ok := pairs[0].Key.([]byte)
	if !ok {
		return nil, d.newDecodeValueError("tag 261 map key must be a byte string address")
	}
	ip, err := ipFromBytes(d, addrBytes)
	if err != nil {
		return nil, err
	}
	bits, ok := toInt64(pairs[0].Value)
	if !ok || bits < 0 {
		return nil, d.newDecodeValueError("tag 261 prefix mask value must be a non-negative integer")
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(int(bits), len(addrBytes)*8)}, nil
}

func decodeComplex(d *Decoder, inner any) (any, error) {
	items, ok := inner.([]any)
	if !ok || len(items) != 2 {
		return nil, d.newDecodeValueError("tag 1010 content must be a 2-element array [real, imag]")
	}
	re, ok := toFloat64(items[0])
	if !ok {
		return nil, d.newDecodeValueError("tag 1010 real part must be a number")
	}
	im, ok := toFloat64(items[1])
	if !ok {
		return nil, d.newDecodeValueError("tag 1010 imaginary part must be a number")
	}
	return complex(re, im), nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case uint64:
		if n > uint64(^int64(0)) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case *big.Int:
		if !n.IsInt64() {
			return 0, false
		}
		return n.Int64(), true
	default:
		return 0, false
	}
}

func toBigInt(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case uint64:
		return new(big.Int).SetUint64(n), true
	case int64:
		return big.NewInt(n), true
	case *big.Int:
		return n, true
	default:
		return nil, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case *big.Int:
		f := new(big.Float).SetInt(n)
		out, _ := f.Float64()
		return out, true
	default:
		return 0, false
	}
}

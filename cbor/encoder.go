package cbor

import (
	"io"
	"math/big"
	"net"
	"net/mail"
	"reflect"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EncodeFunc appends the CBOR encoding of v (already known to be of a
// specific type) to e's buffer.
type EncodeFunc func(e *Encoder, v any) error

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	// Canonical selects RFC 8949 §4.2.1 core deterministic encoding:
	// minimal-width integers and floats, and map keys sorted by their
	// own encoded bytes (lexicographic, ties broken by original
	// insertion order).
	Canonical bool

	// ValueSharing wraps every slice/map/pointer value in tag 28 on
	// first encounter and emits tag 29 back-references for values
	// already opened (by pointer/slice-header identity), supporting
	// cyclic structures. Off by default, since it changes the wire
	// encoding of every reference-typed value.
	ValueSharing bool

	// StringReferencing opens a single tag-256 namespace around the
	// whole encoded value and emits tag-25 back-references for strings
	// and byte strings already seen in it. Intended for payloads with
	// many repeated strings.
	StringReferencing bool

	// IndefiniteContainers encodes arrays and maps with indefinite
	// length instead of a declared count size, for streaming-style
	// output. Text and byte strings are always length-prefixed.
	// Incompatible with Canonical.
	IndefiniteContainers bool

	// DatetimeAsTimestamp encodes time.Time as tag 1 (epoch) instead of
	// tag 0 (RFC 3339 string). Off by default.
	DatetimeAsTimestamp bool
}

// Encoder writes CBOR-encoded values to an underlying sink, dispatching
// on the runtime type of arbitrary Go values rather than requiring a
// generated marshaler per type.
type Encoder struct {
	w    io.Writer
	bb   *ByteBuffer
	opts EncodeOptions

	shared    map[uintptr]int
	nextShare int
	strNS     []encStrEntry
	strIndex  map[string]int
	strOpen   bool

	// inProgress tracks slice/map/pointer identities currently being
	// walked on the call stack, independent of the ValueSharing tag
	// 28/29 bookkeeping above. It catches a cycle even when
	// ValueSharing is off, when there is no shared-reference table to
	// consult: re-entering a container still under construction raises
	// EncodeValueError instead of recursing without bound.
	inProgress map[uintptr]bool

	typeEncoders map[reflect.Type]EncodeFunc
}

type encStrEntry struct {
	s string
}

// NewEncoder constructs an Encoder writing to w.
func NewEncoder(w io.Writer, opts EncodeOptions) *Encoder {
	return &Encoder{w: w, bb: GetByteBuffer(), opts: opts}
}

// RegisterEncodeHandler overrides or adds an exact-type handler on this
// Encoder instance only.
func (e *Encoder) RegisterEncodeHandler(t reflect.Type, fn EncodeFunc) {
	if e.typeEncoders == nil {
		e.typeEncoders = make(map[reflect.Type]EncodeFunc)
	}
	e.typeEncoders[t] = fn
}

// Encode writes v's CBOR encoding to the Encoder's sink.
func (e *Encoder) Encode(v any) error {
	e.shared = nil
	e.nextShare = 0
	e.strNS = nil
	e.strIndex = nil
	e.inProgress = nil
	if e.opts.StringReferencing {
		e.strOpen = true
		e.strIndex = make(map[string]int)
		e.bb.b = AppendTag(e.bb.b, tagStringRefNS)
	}
	if err := e.encodeValue(v); err != nil {
		return err
	}
	if e.w != nil {
		_, err := e.w.Write(e.bb.Bytes())
		e.bb.Reset()
		return err
	}
	return nil
}

// Bytes returns everything written to the Encoder so far (only useful
// when the Encoder was not constructed with a Writer sink).
func (e *Encoder) Bytes() []byte { return e.bb.Bytes() }

// Close returns the Encoder's pooled buffer. Callers done with a
// Writer-backed Encoder should call this once to let the buffer be
// reused by a later NewEncoder/Marshal call.
func (e *Encoder) Close() {
	if e.bb != nil {
		PutByteBuffer(e.bb)
		e.bb = nil
	}
}

// Marshal encodes v to a new byte slice.
func Marshal(v any, opts EncodeOptions) ([]byte, error) {
	e := &Encoder{bb: GetByteBuffer(), opts: opts}
	defer PutByteBuffer(e.bb)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	out := make([]byte, e.bb.Len())
	copy(out, e.bb.Bytes())
	return out, nil
}

// EncodeCanonical encodes v under Canonical mode, for use by Tag.Less
// and anywhere else a value needs a total byte order.
func EncodeCanonical(v any) ([]byte, error) {
	return Marshal(v, EncodeOptions{Canonical: true})
}

func (e *Encoder) encodeValue(v any) error {
	if v == nil {
		e.bb.b = AppendNil(e.bb.b)
		return nil
	}

	if fn, ok := e.typeEncoders[reflect.TypeOf(v)]; ok {
		return fn(e, v)
	}

	if m, ok := v.(Marshaler); ok {
		b, err := m.MarshalCBOR(e.bb.b)
		if err != nil {
			return e.newEncodeValueError("MarshalCBOR: " + err.Error())
		}
		e.bb.b = b
		return nil
	}

	switch t := v.(type) {
	case bool:
		e.bb.b = AppendBool(e.bb.b, t)
		return nil
	case string:
		return e.encodeString(t)
	case []byte:
		return e.encodeBytes(t)
	case int:
		e.bb.b = AppendInt64(e.bb.b, int64(t))
		return nil
	case int8:
		e.bb.b = AppendInt64(e.bb.b, int64(t))
		return nil
	case int16:
		e.bb.b = AppendInt64(e.bb.b, int64(t))
		return nil
	case int32:
		e.bb.b = AppendInt64(e.bb.b, int64(t))
		return nil
	case int64:
		e.bb.b = AppendInt64(e.bb.b, t)
		return nil
	case uint:
		e.bb.b = AppendUint64(e.bb.b, uint64(t))
		return nil
	case uint8:
		e.bb.b = AppendUint64(e.bb.b, uint64(t))
		return nil
	case uint16:
		e.bb.b = AppendUint64(e.bb.b, uint64(t))
		return nil
	case uint32:
		e.bb.b = AppendUint64(e.bb.b, uint64(t))
		return nil
	case uint64:
		e.bb.b = AppendUint64(e.bb.b, t)
		return nil
	case float32:
		return e.encodeFloat64(float64(t), true)
	case float64:
		return e.encodeFloat64(t, false)
	case *big.Int:
		if t == nil {
			e.bb.b = AppendNil(e.bb.b)
			return nil
		}
		if t.BitLen() < 64 {
			if t.Sign() >= 0 {
				e.bb.b = AppendUint64(e.bb.b, t.Uint64())
			} else {
				e.bb.b = AppendInt64(e.bb.b, t.Int64())
			}
			return nil
		}
		e.bb.b = AppendBigInt(e.bb.b, t)
		return nil
	case Decimal:
		e.bb.b = AppendDecimalFraction(e.bb.b, t.Exponent, t.Mantissa)
		return nil
	case BigFloat:
		e.bb.b = AppendBigfloat(e.bb.b, t.Exponent, t.Mantissa)
		return nil
	case *big.Rat:
		if t == nil {
			e.bb.b = AppendNil(e.bb.b)
			return nil
		}
		e.bb.b = AppendTag(e.bb.b, tagRational)
		e.bb.b = AppendArrayHeader(e.bb.b, 2)
		e.bb.b = appendBigIntMinimal(e.bb.b, t.Num())
		e.bb.b = appendBigIntMinimal(e.bb.b, t.Denom())
		return nil
	case time.Time:
		return e.encodeTime(t)
	case *regexp.Regexp:
		e.bb.b = AppendRegexp(e.bb.b, t)
		return nil
	case *mail.Message:
		return e.encodeMIME(t)
	case uuid.UUID:
		e.bb.b = AppendUUID(e.bb.b, [16]byte(t))
		return nil
	case net.IP:
		return e.encodeIP(t)
	case *net.IPNet:
		return e.encodeIPNet(t)
	case Set:
		return e.encodeSet(t)
	case complex128:
		e.bb.b = AppendTag(e.bb.b, tagComplex)
		e.bb.b = AppendArrayHeader(e.bb.b, 2)
		if err := e.encodeFloat64(real(t), false); err != nil {
			return err
		}
		return e.encodeFloat64(imag(t), false)
	case Tag:
		return e.encodeTag(t)
	case SimpleValue:
		e.bb.b = AppendSimpleValue(e.bb.b, uint8(t))
		return nil
	case Undefined:
		e.bb.b = AppendUndefined(e.bb.b)
		return nil
	case []any:
		return e.encodeSlice(t)
	case []Pair:
		return e.encodeMapPairs(t)
	case ImmutableArray:
		return e.encodeSlice(t.Items())
	case ImmutableMap:
		return e.encodeMapPairs(t.Pairs())
	}

	return e.encodeReflect(reflect.ValueOf(v))
}

func appendBigIntMinimal(b []byte, z *big.Int) []byte {
	if z.Sign() >= 0 && z.BitLen() < 64 {
		return AppendUint64(b, z.Uint64())
	}
	if z.Sign() < 0 && z.BitLen() < 63 {
		return AppendInt64(b, z.Int64())
	}
	return AppendBigInt(b, z)
}

func (e *Encoder) encodeFloat64(f float64, wasFloat32 bool) error {
	if e.opts.Canonical {
		e.bb.b = AppendFloatCanonical(e.bb.b, f)
		return nil
	}
	if wasFloat32 {
		e.bb.b = AppendFloat32(e.bb.b, float32(f))
		return nil
	}
	e.bb.b = AppendFloat64(e.bb.b, f)
	return nil
}

func (e *Encoder) encodeTime(t time.Time) error {
	if e.opts.DatetimeAsTimestamp {
		e.bb.b = AppendTime(e.bb.b, t)
		return nil
	}
	e.bb.b = AppendRFC3339Time(e.bb.b, t)
	return nil
}

func (e *Encoder) encodeMIME(m *mail.Message) error {
	if m == nil {
		e.bb.b = AppendNil(e.bb.b)
		return nil
	}
	var sb []byte
	for k, vs := range m.Header {
		for _, v := range vs {
			sb = append(sb, k...)
			sb = append(sb, ':', ' ')
			sb = append(sb, v...)
			sb = append(sb, '\n')
		}
	}
	e.bb.b = AppendMIMEString(e.bb.b, string(sb))
	return nil
}

func (e *Encoder) encodeIP(ip net.IP) error {
	b := ip.To4()
	tag := uint64(tagIPv4)
	if b == nil {
		b = ip.To16()
		tag = tagIPv6
	}
	if b == nil {
		return e.newEncodeValueError("invalid net.IP value")
	}
	e.bb.b = AppendTag(e.bb.b, tag)
	e.bb.b = AppendBytes(e.bb.b, b)
	return nil
}

func (e *Encoder) encodeIPNet(n *net.IPNet) error {
	if n == nil {
		e.bb.b = AppendNil(e.bb.b)
		return nil
	}
	b := n.IP.To4()
	tag := uint64(tagIPv4)
	if b == nil {
		b = n.IP.To16()
		tag = tagIPv6
	}
	if b == nil {
		return e.newEncodeValueError("invalid net.IPNet address")
	}
	ones, _ := n.Mask.Size()
	e.bb.b = AppendTag(e.bb.b, tag)
	e.bb.b = AppendArrayHeader(e.bb.b, 2)
	e.bb.b = AppendBytes(e.bb.b, b)
	e.bb.b = AppendUint64(e.bb.b, uint64(ones))
	return nil
}

func (e *Encoder) encodeSet(s Set) error {
	e.bb.b = AppendTag(e.bb.b, tagSet)
	return e.encodeSlice(s.Members())
}

func (e *Encoder) encodeTag(t Tag) error {
	e.bb.b = AppendTag(e.bb.b, t.Number)
	return e.encodeValue(t.Value)
}

func (e *Encoder) encodeString(s string) error {
	if e.opts.StringReferencing {
		if idx, ok := e.strIndex[s]; ok {
			e.bb.b = AppendTag(e.bb.b, tagStringRef)
			e.bb.b = AppendUint64(e.bb.b, uint64(idx))
			return nil
		}
		e.strIndex[s] = len(e.strNS)
		e.strNS = append(e.strNS, encStrEntry{s: s})
	}
	e.bb.b = AppendString(e.bb.b, s)
	return nil
}

func (e *Encoder) encodeBytes(b []byte) error {
	if e.opts.StringReferencing {
		key := string(b)
		if idx, ok := e.strIndex[key]; ok {
			e.bb.b = AppendTag(e.bb.b, tagStringRef)
			e.bb.b = AppendUint64(e.bb.b, uint64(idx))
			return nil
		}
		e.strIndex[key] = len(e.strNS)
		e.strNS = append(e.strNS, encStrEntry{s: key})
	}
	e.bb.b = AppendBytes(e.bb.b, b)
	return nil
}

func (e *Encoder) encodeSlice(items []any) error {
	if items != nil {
		p := reflect.ValueOf(items).Pointer()
		if e.opts.ValueSharing {
			if _, handled, err := e.tryShareRef(p); handled {
				return err
			}
		} else if p != 0 {
			if err := e.enterCycleGuard(p); err != nil {
				return err
			}
			defer e.exitCycleGuard(p)
		}
	}
	if e.opts.IndefiniteContainers {
		e.bb.b = AppendArrayHeaderIndefinite(e.bb.b)
		for _, it := range items {
			if err := e.encodeValue(it); err != nil {
				return err
			}
		}
		e.bb.b = AppendBreak(e.bb.b)
		return nil
	}
	e.bb.b = AppendArrayHeader(e.bb.b, uint32(len(items)))
	for _, it := range items {
		if err := e.encodeValue(it); err != nil {
			return err
		}
	}
	return nil
}

// enterCycleGuard records p as currently under construction, failing
// with EncodeValueError if it is already on the stack (a cycle). Only
// consulted when ValueSharing is off; with it on, tryShareRef emits a
// tag-29 back-reference for a container that is already open instead.
func (e *Encoder) enterCycleGuard(p uintptr) error {
	if e.inProgress == nil {
		e.inProgress = make(map[uintptr]bool)
	}
	if e.inProgress[p] {
		return e.newEncodeValueError("cycle encountered with value sharing off")
	}
	e.inProgress[p] = true
	return nil
}

func (e *Encoder) exitCycleGuard(p uintptr) {
	delete(e.inProgress, p)
}

// tryShareRef checks the shared-reference table for pointer identity p.
// If already opened, it emits tag 29 and returns handled=true. Otherwise
// it assigns a new slot, emits the tag-28 header, and returns
// handled=false so the caller proceeds to encode the actual container.
func (e *Encoder) tryShareRef(p uintptr) (slot int, handled bool, err error) {
	if e.shared == nil {
		e.shared = make(map[uintptr]int)
	}
	if idx, ok := e.shared[p]; ok {
		e.bb.b = AppendTag(e.bb.b, tagSharedRef)
		e.bb.b = AppendUint64(e.bb.b, uint64(idx))
		return idx, true, nil
	}
	idx := e.nextShare
	e.nextShare++
	e.shared[p] = idx
	e.bb.b = AppendTag(e.bb.b, tagShareable)
	return idx, false, nil
}

func (e *Encoder) encodeMapPairs(pairs []Pair) error {
	if pairs != nil {
		p := reflect.ValueOf(pairs).Pointer()
		if e.opts.ValueSharing {
			if _, handled, err := e.tryShareRef(p); handled {
				return err
			}
		} else if p != 0 {
			if err := e.enterCycleGuard(p); err != nil {
				return err
			}
			defer e.exitCycleGuard(p)
		}
	}
	if e.opts.Canonical {
		return e.encodeMapCanonical(pairs)
	}
	if e.opts.IndefiniteContainers {
		e.bb.b = AppendMapHeaderIndefinite(e.bb.b)
		for _, p := range pairs {
			if err := e.encodeValue(p.Key); err != nil {
				return err
			}
			if err := e.encodeValue(p.Value); err != nil {
				return err
			}
		}
		e.bb.b = AppendBreak(e.bb.b)
		return nil
	}
	e.bb.b = AppendMapHeader(e.bb.b, uint32(len(pairs)))
	for _, p := range pairs {
		if err := e.encodeValue(p.Key); err != nil {
			return err
		}
		if err := e.encodeValue(p.Value); err != nil {
			return err
		}
	}
	return nil
}

// encodeMapCanonical sorts entries by their own encoded key bytes
// (bytewise lexicographic order, RFC 8949 §4.2.1), breaking ties by
// original position so equal-sort-key pairs keep wire/insertion order.
func (e *Encoder) encodeMapCanonical(pairs []Pair) error {
	type entry struct {
		key []byte
		val any
		pos int
	}
	entries := make([]entry, len(pairs))
	for i, p := range pairs {
		sub := &Encoder{bb: GetByteBuffer(), opts: e.opts}
		if err := sub.encodeValue(p.Key); err != nil {
			PutByteBuffer(sub.bb)
			return err
		}
		kb := make([]byte, sub.bb.Len())
		copy(kb, sub.bb.Bytes())
		PutByteBuffer(sub.bb)
		entries[i] = entry{key: kb, val: p.Value, pos: i}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return compareBytes(entries[i].key, entries[j].key) < 0
	})
	e.bb.b = AppendMapHeader(e.bb.b, uint32(len(entries)))
	for _, en := range entries {
		e.bb.b = append(e.bb.b, en.key...)
		if err := e.encodeValue(en.val); err != nil {
			return err
		}
	}
	return nil
}

// encodeReflect is the fallback path for Go values outside the core
// dynamic value universe: named slice/map/struct/pointer types get
// walked via reflection, mirroring AppendInterface's reflective
// fallback but routed back through encodeValue so every element still
// gets the full option treatment (canonical floats, sharing, etc).
func (e *Encoder) encodeReflect(rv reflect.Value) error {
	if !rv.IsValid() {
		e.bb.b = AppendNil(e.bb.b)
		return nil
	}
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			e.bb.b = AppendNil(e.bb.b)
			return nil
		}
		p := rv.Pointer()
		if e.opts.ValueSharing {
			if _, handled, err := e.tryShareRef(p); handled {
				return err
			}
		} else {
			if err := e.enterCycleGuard(p); err != nil {
				return err
			}
			defer e.exitCycleGuard(p)
		}
		return e.encodeValue(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			e.bb.b = AppendNil(e.bb.b)
			return nil
		}
		return e.encodeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return e.encodeBytes(rv.Bytes())
		}
		n := rv.Len()
		items := make([]any, n)
		for i := 0; i < n; i++ {
			items[i] = rv.Index(i).Interface()
		}
		return e.encodeSlice(items)
	case reflect.Map:
		keys := rv.MapKeys()
		pairs := make([]Pair, len(keys))
		for i, k := range keys {
			pairs[i] = Pair{Key: k.Interface(), Value: rv.MapIndex(k).Interface()}
		}
		return e.encodeMapPairs(pairs)
	case reflect.Struct:
		return e.encodeStruct(rv)
	case reflect.String:
		return e.encodeString(rv.String())
	case reflect.Bool:
		e.bb.b = AppendBool(e.bb.b, rv.Bool())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.bb.b = AppendInt64(e.bb.b, rv.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		e.bb.b = AppendUint64(e.bb.b, rv.Uint())
		return nil
	case reflect.Float32:
		return e.encodeFloat64(rv.Float(), true)
	case reflect.Float64:
		return e.encodeFloat64(rv.Float(), false)
	default:
		return e.newEncodeTypeError(rv.Type().String())
	}
}

// encodeStruct encodes exported fields as a map keyed by field name
// (or a `cbor:"name"` tag override), honoring `cbor:"-"` to skip a
// field and `,omitempty` to drop zero-valued fields.
func (e *Encoder) encodeStruct(rv reflect.Value) error {
	t := rv.Type()
	var pairs []Pair
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, omitempty, skip := parseCBORTag(f)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		pairs = append(pairs, Pair{Key: name, Value: fv.Interface()})
	}
	return e.encodeMapPairs(pairs)
}

func parseCBORTag(f reflect.StructField) (name string, omitempty, skip bool) {
	tag := f.Tag.Get("cbor")
	name = f.Name
	if tag == "" {
		return name, false, false
	}
	if tag == "-" {
		return name, false, true
	}
	parts := splitComma(tag)
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

package cbor

import "fmt"

// EncodeError is the base error kind for all failures raised while
// walking a value during Encode. It always carries the byte offset in
// the output at which the failure was detected (the length of the
// sink's buffer at that point), per spec §7 ("All errors carry the
// byte offset where detected").
type EncodeError struct {
	Offset int
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cbor: encode error at offset %d: %v", e.Offset, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// EncodeTypeError reports an unsupported dynamic type with no
// registered handler and no default handler configured.
type EncodeTypeError struct {
	Offset int
	Type   string
}

func (e *EncodeTypeError) Error() string {
	return fmt.Sprintf("cbor: no encoder for type %s at offset %d", e.Type, e.Offset)
}

// EncodeValueError reports a semantic violation: a naive datetime with
// no default timezone, a cycle encountered with value sharing off, or a
// tag number outside 0 <= n < 2^64.
type EncodeValueError struct {
	Offset int
	Reason string
}

func (e *EncodeValueError) Error() string {
	return fmt.Sprintf("cbor: %s at offset %d", e.Reason, e.Offset)
}

// DecodeError is the base error kind for all failures raised while
// tokenizing or constructing values during Decode.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cbor: decode error at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeValueError reports a malformed structure: invalid UTF-8 under
// strict string-error policy, a bad tag payload shape, reserved
// additional-info values 28-30, an invalid datetime string, an
// out-of-namespace string reference, or an uninitialized shareable
// slot.
type DecodeValueError struct {
	Offset int
	Reason string
}

func (e *DecodeValueError) Error() string {
	return fmt.Sprintf("cbor: %s at offset %d", e.Reason, e.Offset)
}

// DecodeEOF reports that the byte source was exhausted before a full
// item could be read.
type DecodeEOF struct {
	Offset int
}

func (e *DecodeEOF) Error() string {
	return fmt.Sprintf("cbor: unexpected end of input at offset %d", e.Offset)
}

// newDecodeValueError builds a DecodeValueError tagged with the
// decoder's current read offset.
func (d *Decoder) newDecodeValueError(reason string) error {
	return &DecodeValueError{Offset: d.offset(), Reason: reason}
}

func (d *Decoder) newDecodeError(err error) error {
	if err == ErrShortBytes {
		return &DecodeEOF{Offset: d.offset()}
	}
	return &DecodeError{Offset: d.offset(), Err: err}
}

func (e *Encoder) newEncodeTypeError(t string) error {
	return &EncodeTypeError{Offset: e.bb.Len(), Type: t}
}

func (e *Encoder) newEncodeValueError(reason string) error {
	return &EncodeValueError{Offset: e.bb.Len(), Reason: reason}
}

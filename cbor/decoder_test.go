package cbor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// rfcVector is one entry from RFC 8949 appendix A's example table.
type rfcVector struct {
	name string
	hex  []byte
	want any
}

func TestRFCExampleVectors(t *testing.T) {
	vectors := []rfcVector{
		{"uint 0", []byte{0x00}, uint64(0)},
		{"uint 1", []byte{0x01}, uint64(1)},
		{"uint 10", []byte{0x0a}, uint64(10)},
		{"uint 23", []byte{0x17}, uint64(23)},
		{"uint 24", []byte{0x18, 0x18}, uint64(24)},
		{"uint 25", []byte{0x18, 0x19}, uint64(25)},
		{"uint 100", []byte{0x18, 0x64}, uint64(100)},
		{"uint 1000", []byte{0x19, 0x03, 0xe8}, uint64(1000)},
		{"uint 1000000", []byte{0x1a, 0x00, 0x0f, 0x42, 0x40}, uint64(1000000)},
		{"negative -1", []byte{0x20}, int64(-1)},
		{"negative -10", []byte{0x29}, int64(-10)},
		{"negative -100", []byte{0x38, 0x63}, int64(-100)},
		{"negative -1000", []byte{0x39, 0x03, 0xe7}, int64(-1000)},
		{"empty bytes", []byte{0x40}, []byte{}},
		{"bytes 4 bytes", []byte{0x44, 0x01, 0x02, 0x03, 0x04}, []byte{1, 2, 3, 4}},
		{"empty string", []byte{0x60}, ""},
		{"string a", []byte{0x61, 0x61}, "a"},
		{"string IETF", append([]byte{0x64}, []byte("IETF")...), "IETF"},
		{"empty array", []byte{0x80}, []any{}},
		{"array [1,2,3]", []byte{0x83, 0x01, 0x02, 0x03}, []any{uint64(1), uint64(2), uint64(3)}},
		{"empty map", []byte{0xa0}, []Pair{}},
		{"false", []byte{0xf4}, false},
		{"true", []byte{0xf5}, true},
		{"null", []byte{0xf6}, nil},
	}

	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			got, err := Unmarshal(v.hex, DecodeOptions{})
			require.NoError(t, err)
			require.Equal(t, v.want, got)
		})
	}
}

func TestDecodeIndefiniteContainers(t *testing.T) {
	t.Run("IndefiniteArray", func(t *testing.T) {
		b := []byte{0x9f, 0x01, 0x02, 0xff} // [_ 1, 2]
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []any{uint64(1), uint64(2)}, got)
	})

	t.Run("IndefiniteTextString", func(t *testing.T) {
		b := []byte{0x7f, 0x61, 'a', 0x61, 'b', 0xff} // (_"a","b")
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		require.Equal(t, "ab", got)
	})

	t.Run("IndefiniteMap", func(t *testing.T) {
		b := []byte{0xbf, 0x61, 'a', 0x01, 0xff} // {_ "a": 1}
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		pairs, ok := got.([]Pair)
		require.True(t, ok)
		require.Equal(t, []Pair{{Key: "a", Value: uint64(1)}}, pairs)
	})
}

func TestDecodeUnexpectedEOF(t *testing.T) {
	// A map header claiming one entry but with no bytes following.
	_, err := Unmarshal([]byte{0xa1}, DecodeOptions{})
	require.Error(t, err)
	_, isEOF := err.(*DecodeEOF)
	require.True(t, isEOF, "expected *DecodeEOF, got %T: %v", err, err)
}

func TestDecodeHugeClaimedLengthFailsWithoutHugeAllocation(t *testing.T) {
	// Byte string header claiming a 2^32-1 byte payload, but the
	// underlying reader only ever has a handful of bytes: decode must
	// fail once the reader is exhausted, not allocate 4GiB up front.
	b := []byte{0x5a, 0xff, 0xff, 0xff, 0xff, 0x01, 0x02, 0x03}
	_, err := Unmarshal(b, DecodeOptions{})
	require.Error(t, err)
	_, isEOF := err.(*DecodeEOF)
	require.True(t, isEOF)
}

func TestDecodeMaxDepthExceeded(t *testing.T) {
	var buf bytes.Buffer
	const depth = 2000
	for i := 0; i < depth; i++ {
		buf.WriteByte(0x81) // array of 1 element
	}
	buf.WriteByte(0x00) // innermost element: uint 0

	_, err := Unmarshal(buf.Bytes(), DecodeOptions{})
	require.Error(t, err)
}

func TestDecodeStrictUTF8PolicyRejectsInvalidText(t *testing.T) {
	b := []byte{0x61, 0xff} // 1-byte text string, invalid UTF-8
	_, err := Unmarshal(b, DecodeOptions{StrErrors: StrErrorsStrict})
	require.Error(t, err)

	got, err := Unmarshal(b, DecodeOptions{StrErrors: StrErrorsReplace})
	require.NoError(t, err)
	require.Equal(t, "�", got)

	got, err = Unmarshal(b, DecodeOptions{StrErrors: StrErrorsIgnore})
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestDecodeResetsStateAcrossTopLevelCalls(t *testing.T) {
	b, err := Marshal([]any{"x"}, EncodeOptions{ValueSharing: true})
	require.NoError(t, err)

	dec := NewDecoderBytes(append(append([]byte{}, b...), b...), DecodeOptions{})
	first, err := dec.Decode()
	require.NoError(t, err)
	second, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

package cbor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalScalars(t *testing.T) {
	t.Run("SmallUint", func(t *testing.T) {
		b, err := Marshal(uint64(10), EncodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte{0x0a}, b)
	})

	t.Run("NegativeInt", func(t *testing.T) {
		b, err := Marshal(int64(-1), EncodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte{0x20}, b)
	})

	t.Run("TextString", func(t *testing.T) {
		b, err := Marshal("a", EncodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte{0x61, 'a'}, b)
	})

	t.Run("EmptyArray", func(t *testing.T) {
		b, err := Marshal([]any{}, EncodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte{0x80}, b)
	})

	t.Run("BoolsAndNil", func(t *testing.T) {
		bTrue, err := Marshal(true, EncodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte{0xf5}, bTrue)

		bNil, err := Marshal(nil, EncodeOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte{0xf6}, bNil)
	})
}

func TestMarshalRoundTripsThroughDecoder(t *testing.T) {
	values := []any{
		uint64(0),
		int64(-1000),
		"hello world",
		[]byte{1, 2, 3},
		[]any{uint64(1), uint64(2), uint64(3)},
		true,
		false,
	}
	for _, v := range values {
		b, err := Marshal(v, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestCanonicalMapKeyOrder(t *testing.T) {
	pairs := []Pair{
		{Key: "b", Value: uint64(2)},
		{Key: "aa", Value: uint64(3)},
		{Key: "a", Value: uint64(1)},
	}
	b, err := Marshal(pairs, EncodeOptions{Canonical: true})
	require.NoError(t, err)

	got, err := Unmarshal(b, DecodeOptions{})
	require.NoError(t, err)
	gotPairs, ok := got.([]Pair)
	require.True(t, ok)
	require.Len(t, gotPairs, 3)
	// Bytewise lexicographic over the encoded keys, head byte included:
	// "a" (0x61 0x61) < "b" (0x61 0x62) < "aa" (0x62 0x61 0x61).
	require.Equal(t, "a", gotPairs[0].Key)
	require.Equal(t, "b", gotPairs[1].Key)
	require.Equal(t, "aa", gotPairs[2].Key)
}

func TestCanonicalFloatWidth(t *testing.T) {
	b, err := Marshal(float64(1.5), EncodeOptions{Canonical: true})
	require.NoError(t, err)
	// 1.5 round-trips exactly through float16: head byte 0xf9 + 2 bytes.
	require.Len(t, b, 3)
	require.Equal(t, byte(0xf9), b[0])
}

func TestBigIntRoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("18446744073709551616", 10) // 2^64
	require.True(t, ok)

	b, err := Marshal(huge, EncodeOptions{})
	require.NoError(t, err)

	got, err := Unmarshal(b, DecodeOptions{})
	require.NoError(t, err)
	gotBig, ok := got.(*big.Int)
	require.True(t, ok)
	require.Equal(t, 0, huge.Cmp(gotBig))
}

func TestValueSharingCycle(t *testing.T) {
	items := make([]any, 1)
	items[0] = items // a slice containing itself

	b, err := Marshal(items, EncodeOptions{ValueSharing: true})
	require.NoError(t, err)

	got, err := Unmarshal(b, DecodeOptions{})
	require.NoError(t, err)
	gotSlice, ok := got.([]any)
	require.True(t, ok)
	require.Len(t, gotSlice, 1)
	self, ok := gotSlice[0].([]any)
	require.True(t, ok)
	require.Len(t, self, 1)
}

func TestCycleRejectedWithSharingOff(t *testing.T) {
	items := make([]any, 1)
	items[0] = items // a slice containing itself

	_, err := Marshal(items, EncodeOptions{})
	require.Error(t, err)
	var valErr *EncodeValueError
	require.ErrorAs(t, err, &valErr)
}

func TestMapCycleRejectedWithSharingOff(t *testing.T) {
	pairs := make([]Pair, 1)
	pairs[0] = Pair{Key: "self", Value: pairs}

	_, err := Marshal(pairs, EncodeOptions{})
	require.Error(t, err)
	var valErr *EncodeValueError
	require.ErrorAs(t, err, &valErr)
}

func TestStringReferencing(t *testing.T) {
	repeated := "the quick brown fox"
	value := []any{repeated, repeated, repeated}

	b, err := Marshal(value, EncodeOptions{StringReferencing: true})
	require.NoError(t, err)

	got, err := Unmarshal(b, DecodeOptions{})
	require.NoError(t, err)
	gotSlice, ok := got.([]any)
	require.True(t, ok)
	require.Len(t, gotSlice, 3)
	for _, v := range gotSlice {
		require.Equal(t, repeated, v)
	}
}

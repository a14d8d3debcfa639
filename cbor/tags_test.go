package cbor

import (
	"math/big"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTagRoundTrips(t *testing.T) {
	t.Run("UUID", func(t *testing.T) {
		id := uuid.New()
		b, err := Marshal(id, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		require.Equal(t, id, got)
	})

	t.Run("Regexp", func(t *testing.T) {
		re := regexp.MustCompile(`^[a-z]+\d*$`)
		b, err := Marshal(re, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotRe, ok := got.(*regexp.Regexp)
		require.True(t, ok)
		require.Equal(t, re.String(), gotRe.String())
	})

	t.Run("IPv4", func(t *testing.T) {
		ip := net.ParseIP("192.0.2.1")
		b, err := Marshal(ip, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotIP, ok := got.(net.IP)
		require.True(t, ok)
		require.True(t, ip.Equal(gotIP))
	})

	t.Run("IPNet", func(t *testing.T) {
		_, ipnet, err := net.ParseCIDR("198.51.100.0/24")
		require.NoError(t, err)
		b, err := Marshal(ipnet, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotNet, ok := got.(*net.IPNet)
		require.True(t, ok)
		require.Equal(t, ipnet.String(), gotNet.String())
	})

	t.Run("Set", func(t *testing.T) {
		set := NewSet([]any{uint64(1), uint64(2), uint64(3)})
		b, err := Marshal(set, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotSet, ok := got.(Set)
		require.True(t, ok)
		require.Equal(t, set.Members(), gotSet.Members())
	})

	t.Run("Complex", func(t *testing.T) {
		c := complex(1.5, -2.5)
		b, err := Marshal(c, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		require.Equal(t, c, got)
	})

	t.Run("Rational", func(t *testing.T) {
		r := big.NewRat(3, 4)
		b, err := Marshal(r, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotRat, ok := got.(*big.Rat)
		require.True(t, ok)
		require.Equal(t, 0, r.Cmp(gotRat))
	})

	t.Run("DatetimeRFC3339", func(t *testing.T) {
		ts := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
		b, err := Marshal(ts, EncodeOptions{})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotTime, ok := got.(time.Time)
		require.True(t, ok)
		require.True(t, ts.Equal(gotTime))
	})

	t.Run("DatetimeEpoch", func(t *testing.T) {
		ts := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
		b, err := Marshal(ts, EncodeOptions{DatetimeAsTimestamp: true})
		require.NoError(t, err)
		got, err := Unmarshal(b, DecodeOptions{})
		require.NoError(t, err)
		gotTime, ok := got.(time.Time)
		require.True(t, ok)
		require.True(t, ts.Equal(gotTime))
	})
}

func TestUnknownTagSurfacesAsTag(t *testing.T) {
	b := AppendTag(nil, 9999)
	b = AppendUint64(b, 42)
	v, err := Unmarshal(b, DecodeOptions{})
	require.NoError(t, err)
	tag, ok := v.(Tag)
	require.True(t, ok)
	require.Equal(t, uint64(9999), tag.Number)
	require.Equal(t, uint64(42), tag.Value)
}

func TestTagLessOrdersByNumberThenValue(t *testing.T) {
	a := Tag{Number: 1, Value: uint64(5)}
	b := Tag{Number: 2, Value: uint64(1)}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))

	c := Tag{Number: 1, Value: uint64(1)}
	require.True(t, c.Less(a))
}

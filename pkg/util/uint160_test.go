package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint160DecodeStringLE(t *testing.T) {
	hexStr := "2d3b96ae1bcc5a585e075e3b81920210dec16302"
	u, err := Uint160DecodeStringLE(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, u.StringLE())

	// BE and LE renderings are byte-reversals of each other.
	ub, err := Uint160DecodeStringBE(u.StringBE())
	require.NoError(t, err)
	assert.Equal(t, u, ub)
}

func TestUint160DecodeStringErrors(t *testing.T) {
	// Too short.
	_, err := Uint160DecodeStringLE("2d3b96ae1bcc5a58")
	require.Error(t, err)
	// Not hex.
	_, err = Uint160DecodeStringLE("zz3b96ae1bcc5a585e075e3b81920210dec16302")
	require.Error(t, err)
	// Too long.
	_, err = Uint160DecodeStringLE("2d3b96ae1bcc5a585e075e3b81920210dec1630200")
	require.Error(t, err)
}

func TestUint160DecodeBytes(t *testing.T) {
	b := make([]byte, 20)
	b[0] = 0xAA
	u, err := Uint160DecodeBytesLE(b)
	require.NoError(t, err)
	assert.Equal(t, b, u.BytesLE())

	_, err = Uint160DecodeBytesLE(b[:19])
	require.Error(t, err)
	_, err = Uint160DecodeBytesLE(append(b, 0))
	require.Error(t, err)
}

func TestUint160Ordering(t *testing.T) {
	a := Uint160{1}
	b := Uint160{2}
	assert.True(t, a.Equals(a))
	assert.False(t, a.Equals(b))
	// Ordering is over the full big-endian width.
	lo, _ := Uint160DecodeStringBE("0000000000000000000000000000000000000001")
	hi, _ := Uint160DecodeStringBE("0100000000000000000000000000000000000000")
	assert.True(t, lo.Less(hi))
	assert.False(t, hi.Less(lo))
}

func TestUint160JSON(t *testing.T) {
	u, err := Uint160DecodeStringLE("2d3b96ae1bcc5a585e075e3b81920210dec16302")
	require.NoError(t, err)
	data, err := u.MarshalJSON()
	require.NoError(t, err)
	var got Uint160
	require.NoError(t, got.UnmarshalJSON(data))
	assert.Equal(t, u, got)
}

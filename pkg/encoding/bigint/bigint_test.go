package bigint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, 128, -128, -129, 255, 256, -256,
		32767, 32768, -32768, -32769, 1<<62 - 1, -(1 << 62)}
	for _, v := range values {
		n := big.NewInt(v)
		b, err := ToBytes(n)
		require.NoError(t, err, "%d", v)
		got := FromBytes(b)
		assert.Zero(t, n.Cmp(got), "%d: got %s", v, got)
	}
}

func TestMinimalEncoding(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{}},
		{1, []byte{1}},
		{-1, []byte{0xFF}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x00}}, // needs a sign byte
		{-128, []byte{0x80}},
		{255, []byte{0xFF, 0x00}},
		{256, []byte{0x00, 0x01}},
	}
	for _, tc := range cases {
		b, err := ToBytes(big.NewInt(tc.v))
		require.NoError(t, err)
		assert.Equal(t, tc.want, b, "%d", tc.v)
	}
}

func TestEncodingBounds(t *testing.T) {
	// 2^255-1 is the largest value the 32-byte bound admits.
	maxVal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	b, err := ToBytes(maxVal)
	require.NoError(t, err)
	require.Len(t, b, 32)
	assert.Zero(t, maxVal.Cmp(FromBytes(b)))

	_, err = ToBytes(new(big.Int).Lsh(big.NewInt(1), 256))
	require.Error(t, err)
}

func TestFitsUint256(t *testing.T) {
	assert.True(t, FitsUint256(big.NewInt(0)))
	assert.True(t, FitsUint256(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))))
	assert.False(t, FitsUint256(new(big.Int).Lsh(big.NewInt(1), 256)))
	assert.False(t, FitsUint256(big.NewInt(-1)))
}

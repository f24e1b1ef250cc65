package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xFC, 0xFD, 0xFE, 0xFFFF, 0x10000,
		0xFFFFFFFF, 0x100000000, 1<<64 - 1}
	for _, v := range values {
		w := NewBufBinWriter()
		w.WriteVarUint(v)
		require.NoError(t, w.Err)
		b := w.Bytes()

		r := NewBinReaderFromBuf(b)
		got := r.ReadVarUint()
		require.NoError(t, r.Err)
		assert.Equal(t, v, got, "%d", v)
	}
}

func TestVarUintEncodingWidth(t *testing.T) {
	cases := []struct {
		v    uint64
		size int
	}{
		{0x00, 1},
		{0xFC, 1},
		{0xFD, 3},  // 0xFD prefix + u16
		{0xFFFF, 3},
		{0x10000, 5}, // 0xFE prefix + u32
		{0xFFFFFFFF, 5},
		{0x100000000, 9}, // 0xFF prefix + u64
	}
	for _, tc := range cases {
		w := NewBufBinWriter()
		w.WriteVarUint(tc.v)
		assert.Len(t, w.Bytes(), tc.size, "%#x", tc.v)
		assert.Equal(t, tc.size, VarUintSize(tc.v))
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	payload := []byte("some payload bytes")
	w := NewBufBinWriter()
	w.WriteVarBytes(payload)
	require.NoError(t, w.Err)

	r := NewBinReaderFromBuf(w.Bytes())
	got := r.ReadVarBytes()
	require.NoError(t, r.Err)
	assert.Equal(t, payload, got)
}

func TestReadVarBytesLimit(t *testing.T) {
	w := NewBufBinWriter()
	w.WriteVarBytes(make([]byte, 100))
	r := NewBinReaderFromBuf(w.Bytes())
	r.ReadVarBytes(10)
	require.Error(t, r.Err)
}

func TestStickyError(t *testing.T) {
	// A reader that has failed once keeps failing and returns zero
	// values without panicking.
	r := NewBinReaderFromBuf([]byte{0x01})
	_ = r.ReadU32LE()
	require.Error(t, r.Err)
	first := r.Err
	assert.Zero(t, r.ReadU64LE())
	assert.Equal(t, first, r.Err)
}

func TestIntegerRoundTrip(t *testing.T) {
	w := NewBufBinWriter()
	w.WriteU16LE(0xBEEF)
	w.WriteU32LE(0xDEADBEEF)
	w.WriteU64LE(0x0102030405060708)
	w.WriteB(0x42)
	w.WriteBool(true)
	require.NoError(t, w.Err)

	r := NewBinReaderFromBuf(w.Bytes())
	assert.Equal(t, uint16(0xBEEF), r.ReadU16LE())
	assert.Equal(t, uint32(0xDEADBEEF), r.ReadU32LE())
	assert.Equal(t, uint64(0x0102030405060708), r.ReadU64LE())
	assert.Equal(t, byte(0x42), r.ReadB())
	assert.True(t, r.ReadBool())
	require.NoError(t, r.Err)
}

func TestStringRoundTrip(t *testing.T) {
	w := NewBufBinWriter()
	w.WriteString("hello")
	r := NewBinReaderFromBuf(w.Bytes())
	assert.Equal(t, "hello", r.ReadString())
	require.NoError(t, r.Err)
}

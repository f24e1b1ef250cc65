package base58

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		make([]byte, 20),
	}
	for _, p := range payloads {
		s := CheckEncode(0x35, p)
		version, got, err := CheckDecode(s)
		require.NoError(t, err)
		assert.Equal(t, byte(0x35), version)
		assert.Equal(t, p, got)
	}
}

func TestCheckDecodeRejectsTamperedChecksum(t *testing.T) {
	s := CheckEncode(0x35, []byte{1, 2, 3, 4})
	b := []byte(s)
	if b[len(b)-1] == '1' {
		b[len(b)-1] = '2'
	} else {
		b[len(b)-1] = '1'
	}
	_, _, err := CheckDecode(string(b))
	require.Error(t, err)
}

func TestCheckDecodeRejectsGarbage(t *testing.T) {
	_, _, err := CheckDecode("0OIl") // characters outside the alphabet
	require.Error(t, err)
	_, _, err = CheckDecode("")
	require.Error(t, err)
	_, _, err = CheckDecode("1111") // too short to carry a checksum
	require.Error(t, err)
}

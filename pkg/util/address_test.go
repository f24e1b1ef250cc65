package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	u, err := Uint160DecodeStringLE("2d3b96ae1bcc5a585e075e3b81920210dec16302")
	require.NoError(t, err)

	addr := Uint160ToAddress(u)
	require.NotEmpty(t, addr)
	got, err := AddressToUint160(addr)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestAddressRejectsBadInput(t *testing.T) {
	_, err := AddressToUint160("not-an-address")
	require.Error(t, err)

	// A valid address with one character flipped fails the checksum.
	addr := Uint160ToAddress(Uint160{1, 2, 3})
	tampered := []byte(addr)
	if tampered[4] == 'A' {
		tampered[4] = 'B'
	} else {
		tampered[4] = 'A'
	}
	_, err = AddressToUint160(string(tampered))
	require.Error(t, err)
}

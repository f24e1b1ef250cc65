package util

import (
	"fmt"

	"github.com/n3fullnode/neofull/pkg/encoding/base58"
)

// AddressVersion is the version byte prepended to a script hash before
// base58check-encoding it as a user-facing address.
var AddressVersion byte = 0x35

// Uint160ToAddress renders a script hash as a base58check address.
func Uint160ToAddress(u Uint160) string {
	return base58.CheckEncode(AddressVersion, u.BytesBE())
}

// AddressToUint160 parses a base58check address back into a script
// hash, rejecting anything with the wrong version byte or checksum.
func AddressToUint160(address string) (Uint160, error) {
	version, body, err := base58.CheckDecode(address)
	if err != nil {
		return Uint160{}, err
	}
	if version != AddressVersion {
		return Uint160{}, fmt.Errorf("util: unexpected address version 0x%02x", version)
	}
	if len(body) != Uint160Size {
		return Uint160{}, fmt.Errorf("util: expected %d address bytes, got %d", Uint160Size, len(body))
	}
	var u Uint160
	for i, b := range body {
		u[Uint160Size-i-1] = b
	}
	return u, nil
}

package util

import (
	"encoding/hex"
	"fmt"
)

// Uint160Size is the size of Uint160 in bytes.
const Uint160Size = 20

// Uint160 is a 20-byte little-endian hash: RIPEMD-160(SHA-256(script)),
// the canonical script-hash / account identifier.
type Uint160 [Uint160Size]byte

// Uint160DecodeBytesLE decodes a Uint160 from a little-endian byte
// slice of exactly Uint160Size bytes.
func Uint160DecodeBytesLE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("util: expected %d bytes, got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint160DecodeStringLE decodes a Uint160 from its little-endian hex
// string form.
func Uint160DecodeStringLE(s string) (u Uint160, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint160DecodeBytesLE(b)
}

// Uint160DecodeStringBE decodes a Uint160 from the big-endian hex
// string conventionally used to display script hashes.
func Uint160DecodeStringBE(s string) (u Uint160, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	if len(b) != Uint160Size {
		return u, fmt.Errorf("util: expected %d bytes, got %d", Uint160Size, len(b))
	}
	for i, v := range b {
		u[Uint160Size-i-1] = v
	}
	return u, nil
}

// BytesBE returns the big-endian byte representation.
func (u Uint160) BytesBE() []byte {
	return reverse(u[:])
}

// BytesLE returns a little-endian byte slice backed by a copy of u.
func (u Uint160) BytesLE() []byte {
	b := make([]byte, Uint160Size)
	copy(b, u[:])
	return b
}

// StringLE is the little-endian hex representation.
func (u Uint160) StringLE() string {
	return hex.EncodeToString(u.BytesLE())
}

// StringBE is the big-endian hex representation.
func (u Uint160) StringBE() string {
	return hex.EncodeToString(u.BytesBE())
}

// String implements fmt.Stringer via the big-endian form.
func (u Uint160) String() string {
	return u.StringBE()
}

// Equals compares two Uint160 values.
func (u Uint160) Equals(other Uint160) bool {
	return u == other
}

// Less imposes a total order on Uint160, used to keep signer lists and
// committee rosters in a canonical order.
func (u Uint160) Less(other Uint160) bool {
	for i := Uint160Size - 1; i >= 0; i-- {
		if u[i] != other[i] {
			return u[i] < other[i]
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (u Uint160) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + u.StringBE() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint160) UnmarshalJSON(data []byte) error {
	s, err := unquoteHex(data)
	if err != nil {
		return err
	}
	v, err := Uint160DecodeStringBE(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

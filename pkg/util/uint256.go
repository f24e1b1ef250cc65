package util

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Uint256Size is the size of Uint256 in bytes.
const Uint256Size = 32

// Uint256 is a 32-byte little-endian hash, used for block and
// transaction identifiers.
type Uint256 [Uint256Size]byte

// Uint256DecodeBytesLE decodes a Uint256 from a little-endian byte
// slice. It fails on anything but an exact-length slice; there is no
// silent fallback to the zero hash.
func Uint256DecodeBytesLE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("util: expected %d bytes, got %d", Uint256Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint256DecodeStringLE decodes a Uint256 from its little-endian hex
// string form.
func Uint256DecodeStringLE(s string) (u Uint256, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint256DecodeBytesLE(b)
}

// Uint256DecodeStringBE decodes a Uint256 from the big-endian hex
// string conventionally used to display hashes to users.
func Uint256DecodeStringBE(s string) (u Uint256, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	if len(b) != Uint256Size {
		return u, fmt.Errorf("util: expected %d bytes, got %d", Uint256Size, len(b))
	}
	for i, v := range b {
		u[Uint256Size-i-1] = v
	}
	return u, nil
}

// BytesBE returns a big-endian byte slice (the conventional display
// order).
func (u Uint256) BytesBE() []byte {
	return reverse(u[:])
}

// BytesLE returns a little-endian byte slice backed by a copy of u.
func (u Uint256) BytesLE() []byte {
	b := make([]byte, Uint256Size)
	copy(b, u[:])
	return b
}

// StringLE is the little-endian hex representation.
func (u Uint256) StringLE() string {
	return hex.EncodeToString(u.BytesLE())
}

// StringBE is the big-endian hex representation conventionally shown
// to users (e.g. in block explorers).
func (u Uint256) StringBE() string {
	return hex.EncodeToString(u.BytesBE())
}

// String implements fmt.Stringer via the big-endian form.
func (u Uint256) String() string {
	return u.StringBE()
}

// Equals compares two Uint256 values.
func (u Uint256) Equals(other Uint256) bool {
	return u == other
}

// Less imposes a total order on Uint256 for use as a sortable key.
func (u Uint256) Less(other Uint256) bool {
	for i := Uint256Size - 1; i >= 0; i-- {
		if u[i] != other[i] {
			return u[i] < other[i]
		}
	}
	return false
}

// CompareTo returns -1, 0, or 1 to order u relative to other.
func (u Uint256) CompareTo(other Uint256) int {
	for i := Uint256Size - 1; i >= 0; i-- {
		if u[i] != other[i] {
			if u[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MarshalJSON implements json.Marshaler, rendering the big-endian hex
// form with a 0x prefix, matching the node's RPC conventions.
func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + u.StringBE() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint256) UnmarshalJSON(data []byte) error {
	s, err := unquoteHex(data)
	if err != nil {
		return err
	}
	v, err := Uint256DecodeStringBE(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-i-1] = v
	}
	return out
}

func unquoteHex(data []byte) (string, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return "", errors.New("util: expected a JSON string")
	}
	s := string(data[1 : len(data)-1])
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return s, nil
}

// Package base58 implements base58check encoding/decoding for Neo
// account addresses, wrapping the mr-tron/base58 alphabet codec with
// the version-byte-plus-checksum envelope the protocol requires.
package base58

import (
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// ErrChecksum is returned when the trailing 4-byte checksum does not
// match the decoded payload.
var ErrChecksum = errors.New("base58: checksum mismatch")

// ErrInvalidFormat is returned when the decoded payload is too short
// to contain a checksum.
var ErrInvalidFormat = errors.New("base58: invalid format")

func checksum(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

// CheckEncode prepends version to payload, appends a double-SHA-256
// checksum and base58-encodes the result.
func CheckEncode(version byte, payload []byte) string {
	b := make([]byte, 0, 1+len(payload)+4)
	b = append(b, version)
	b = append(b, payload...)
	b = append(b, checksum(b)...)
	return base58.Encode(b)
}

// CheckDecode reverses CheckEncode, failing on a bad checksum or
// malformed input rather than silently returning a zeroed payload.
func CheckDecode(s string) (version byte, payload []byte, err error) {
	b, err := base58.Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(b) < 5 {
		return 0, nil, ErrInvalidFormat
	}
	body, sum := b[:len(b)-4], b[len(b)-4:]
	want := checksum(body)
	for i := range want {
		if want[i] != sum[i] {
			return 0, nil, ErrChecksum
		}
	}
	return body[0], body[1:], nil
}

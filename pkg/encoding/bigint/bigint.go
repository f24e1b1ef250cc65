// Package bigint implements the two's-complement, minimum-length
// little-endian integer encoding used by the VM's Integer stack item.
package bigint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// MaxBytesLen is the largest encoding the VM will ever produce or
// accept for an Integer stack item; it bounds VM integers to 256 bits
// so arithmetic cost stays predictable.
const MaxBytesLen = 32

// ErrTooBig is returned when a value's minimal encoding would exceed
// MaxBytesLen bytes.
var ErrTooBig = errors.New("bigint: value exceeds the 256-bit limit")

// ToBytes encodes n as minimum-length two's-complement little-endian.
// It returns an error instead of silently truncating when n does not
// fit in MaxBytesLen bytes.
func ToBytes(n *big.Int) ([]byte, error) {
	if n.Sign() == 0 {
		return []byte{}, nil
	}
	bitLen := n.BitLen()
	// One extra bit is needed for the sign in two's-complement; exact
	// negative powers of two get it back in the trim below.
	nBytes := bitLen/8 + 1
	if nBytes > MaxBytesLen+1 {
		return nil, ErrTooBig
	}
	b := make([]byte, nBytes)
	if n.Sign() > 0 {
		bs := n.Bytes()
		for i, v := range bs {
			b[len(bs)-i-1] = v
		}
		if b[nBytes-1]&0x80 != 0 {
			// Needs an extra zero byte to keep the sign bit clear.
			b = append(b, 0)
		}
		if len(b) > MaxBytesLen {
			return nil, ErrTooBig
		}
		return b, nil
	}
	// Negative: compute two's complement of the magnitude.
	mag := new(big.Int).Abs(n)
	bs := mag.Bytes()
	for i, v := range bs {
		b[len(bs)-i-1] = v
	}
	for i := range b {
		b[i] = ^b[i]
	}
	addOne(b)
	if b[len(b)-1]&0x80 == 0 {
		b = append(b, 0xff)
	}
	// Minimality: a trailing 0xFF is redundant when the byte below it
	// already carries the sign bit (-128 is one byte, not two).
	for len(b) > 1 && b[len(b)-1] == 0xFF && b[len(b)-2]&0x80 != 0 {
		b = b[:len(b)-1]
	}
	if len(b) > MaxBytesLen {
		return nil, ErrTooBig
	}
	return b, nil
}

func addOne(b []byte) {
	for i := 0; i < len(b); i++ {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// FromBytes decodes a two's-complement little-endian byte slice. It
// does not itself enforce MaxBytesLen so that callers controlling
// stricter or looser bounds (e.g. deserializing historical data) can
// reuse it; the VM layer enforces the limit at the point of use.
func FromBytes(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-i-1] = v
	}
	n := new(big.Int).SetBytes(be)
	if b[len(b)-1]&0x80 != 0 {
		// Negative: n currently holds the two's-complement pattern
		// interpreted as unsigned; subtract 2^(8*len).
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		n.Sub(n, mod)
	}
	return n
}

// FitsUint256 reports whether n's magnitude fits in an unsigned 256-bit
// word, used as a fast pre-check before the more expensive exact
// ToBytes bound check on arithmetic opcode results.
func FitsUint256(n *big.Int) bool {
	mag := n
	if n.Sign() < 0 {
		mag = new(big.Int).Neg(n)
	}
	_, overflow := uint256.FromBig(mag)
	return !overflow
}

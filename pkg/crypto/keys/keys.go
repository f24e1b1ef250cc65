// Package keys implements account key pairs over the curves the
// protocol recognizes: NIST P-256 (secp256r1, the default signer
// curve) and secp256k1 (accepted by CryptoLib.verifyWithECDsa for
// cross-chain signatures), plus the verification-script construction
// that turns a public key into a script hash.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	dsecp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/nspcc-dev/rfc6979"
)

// Curve identifies which elliptic curve a key pair belongs to.
type Curve byte

// Supported curves.
const (
	Secp256r1 Curve = iota
	Secp256k1
)

func curveParams(c Curve) elliptic.Curve {
	if c == Secp256k1 {
		return dsecp256k1.S256()
	}
	return elliptic.P256()
}

// PrivateKey wraps an ECDSA private key. Destroy should be called once
// it is no longer needed so the scalar does not linger in memory.
type PrivateKey struct {
	Curve Curve
	key   *ecdsa.PrivateKey
}

// NewPrivateKey generates a fresh private key from the OS CSPRNG on
// the given curve.
func NewPrivateKey(c Curve) (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(curveParams(c), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{Curve: c, key: key}, nil
}

// NewPrivateKeyFromBytes builds a private key from a raw 32-byte
// scalar.
func NewPrivateKeyFromBytes(b []byte, c Curve) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("keys: private key must be 32 bytes, got %d", len(b))
	}
	curve := curveParams(c)
	d := new(big.Int).SetBytes(b)
	x, y := curve.ScalarBaseMult(b)
	return &PrivateKey{Curve: c, key: &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}}, nil
}

// Bytes returns the raw 32-byte scalar.
func (p *PrivateKey) Bytes() []byte {
	b := make([]byte, 32)
	p.key.D.FillBytes(b)
	return b
}

// Destroy zeroes the key's secret material. Callers must not use the
// PrivateKey afterwards.
func (p *PrivateKey) Destroy() {
	p.key.D.SetInt64(0)
}

// PublicKey returns the corresponding public key.
func (p *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{Curve: p.Curve, X: p.key.X, Y: p.key.Y}
}

// Sign produces an RFC 6979 deterministic ECDSA signature (r || s,
// 64 bytes, both halves left-padded to 32) over SHA-256(msg), with s
// canonicalized to the lower half of the curve order to avoid
// malleable signatures.
func (p *PrivateKey) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	r, s := rfc6979.SignECDSA(p.key, digest[:], sha256.New)
	n := p.key.Curve.Params().N
	halfOrder := new(big.Int).Rsh(n, 1)
	if s.Cmp(halfOrder) > 0 {
		s = new(big.Int).Sub(n, s)
	}
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}

// Verify is Verify on the corresponding PublicKey, kept here for
// symmetry with Sign.
func (p *PrivateKey) Verify(msg, signature []byte) bool {
	return p.PublicKey().Verify(msg, signature)
}

// PublicKey is a point on one of the supported curves.
type PublicKey struct {
	Curve Curve
	X, Y  *big.Int
}

// Verify checks an ECDSA signature (64-byte r||s) over SHA-256(msg).
func (p *PublicKey) Verify(msg, signature []byte) bool {
	if len(signature) != 64 || p.X == nil || p.Y == nil {
		return false
	}
	digest := sha256.Sum256(msg)
	pub := &ecdsa.PublicKey{Curve: curveParams(p.Curve), X: p.X, Y: p.Y}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	return ecdsa.Verify(pub, digest[:], r, s)
}

// Bytes returns the compressed SEC1 point encoding (33 bytes, prefix
// 0x02/0x03).
func (p *PublicKey) Bytes() []byte {
	curve := curveParams(p.Curve)
	byteLen := (curve.Params().BitSize + 7) / 8
	b := make([]byte, 1+byteLen)
	if p.Y.Bit(0) == 0 {
		b[0] = 0x02
	} else {
		b[0] = 0x03
	}
	p.X.FillBytes(b[1:])
	return b
}

// DecodeBytes parses a compressed or uncompressed SEC1 point.
func DecodeBytes(b []byte, c Curve) (*PublicKey, error) {
	curve := curveParams(c)
	switch {
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		x := new(big.Int).SetBytes(b[1:])
		y, err := decompressY(curve, x, b[0] == 0x03)
		if err != nil {
			return nil, err
		}
		return &PublicKey{Curve: c, X: x, Y: y}, nil
	case len(b) == 65 && b[0] == 0x04:
		x := new(big.Int).SetBytes(b[1:33])
		y := new(big.Int).SetBytes(b[33:65])
		return &PublicKey{Curve: c, X: x, Y: y}, nil
	case len(b) == 1 && b[0] == 0x00:
		return nil, errors.New("keys: infinity point has no verification script")
	default:
		return nil, fmt.Errorf("keys: invalid public key encoding, %d bytes", len(b))
	}
}

func decompressY(curve elliptic.Curve, x *big.Int, odd bool) (*big.Int, error) {
	params := curve.Params()
	x3 := new(big.Int).Mul(x, x)
	x3.Mul(x3, x)
	y2 := new(big.Int).Add(x3, new(big.Int).Mul(curveA(curve), x))
	y2.Add(y2, params.B)
	y2.Mod(y2, params.P)
	y := new(big.Int).ModSqrt(y2, params.P)
	if y == nil {
		return nil, errors.New("keys: point is not on the curve")
	}
	if (y.Bit(0) == 1) != odd {
		y.Sub(params.P, y)
	}
	return y, nil
}

// curveA returns the "a" coefficient of the curve's short Weierstrass
// form: -3 for NIST P-256, 0 for secp256k1.
func curveA(curve elliptic.Curve) *big.Int {
	if curve == elliptic.P256() {
		return big.NewInt(-3)
	}
	return big.NewInt(0)
}

// GetScriptHash returns Hash160(verification script) for this public
// key, i.e. its single-signature account identifier.
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(p.GetVerificationScript())
}

// GetVerificationScript builds the standard single-signature
// verification script: push the compressed point, then SYSCALL into
// System.Crypto.CheckSig.
func (p *PublicKey) GetVerificationScript() []byte {
	b := p.Bytes()
	script := make([]byte, 0, 2+len(b)+5)
	script = append(script, byte(opcode.PUSHDATA1), byte(len(b)))
	script = append(script, b...)
	script = append(script, byte(opcode.SYSCALL))
	script = append(script, CheckSigSyscallHash...)
	return script
}

// CheckSigSyscallHash is the 4-byte little-endian interop operand for
// System.Crypto.CheckSig, as emitted by standard single/multi-sig
// verification scripts; it must match whatever pkg/vm's interop
// registry actually hashes service names to, so it is derived the same
// way rather than pinned to the reference network's fixed constant.
var CheckSigSyscallHash = vm.InteropIDBytes("System.Crypto.CheckSig")

// CreateMultisigVerificationScript builds an m-of-n multi-signature
// verification script: PUSH m, PUSHDATA for each (sorted) public key,
// PUSH n, then SYSCALL into System.Crypto.CheckMultisig.
func CreateMultisigVerificationScript(m int, pubs []*PublicKey) ([]byte, error) {
	n := len(pubs)
	if m <= 0 || m > n || n > 1024 {
		return nil, fmt.Errorf("keys: invalid multisig parameters m=%d n=%d", m, n)
	}
	sorted := make([]*PublicKey, n)
	copy(sorted, pubs)
	sortPublicKeys(sorted)

	script := make([]byte, 0, 64*n)
	appendPushInt(&script, m)
	for _, pk := range sorted {
		b := pk.Bytes()
		script = append(script, byte(opcode.PUSHDATA1), byte(len(b)))
		script = append(script, b...)
	}
	appendPushInt(&script, n)
	script = append(script, byte(opcode.SYSCALL))
	script = append(script, CheckMultisigSyscallHash...)
	return script, nil
}

// CheckMultisigSyscallHash is the 4-byte interop operand for
// System.Crypto.CheckMultisig; see CheckSigSyscallHash.
var CheckMultisigSyscallHash = vm.InteropIDBytes("System.Crypto.CheckMultisig")

func appendPushInt(script *[]byte, v int) {
	switch {
	case v >= -1 && v <= 16:
		*script = append(*script, byte(opcode.PUSH0)+byte(v))
	default:
		*script = append(*script, byte(opcode.PUSHINT16), byte(v), byte(v>>8))
	}
}

func sortPublicKeys(pubs []*PublicKey) {
	for i := 1; i < len(pubs); i++ {
		for j := i; j > 0 && comparePublicKeys(pubs[j], pubs[j-1]) < 0; j-- {
			pubs[j], pubs[j-1] = pubs[j-1], pubs[j]
		}
	}
}

func comparePublicKeys(a, b *PublicKey) int {
	ab, bb := a.Bytes(), b.Bytes()
	for i := range ab {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

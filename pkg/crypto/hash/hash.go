// Package hash implements the hash primitives the protocol is built
// from: SHA-256, RIPEMD-160, their double/chained compositions used for
// transaction and script hashes, and Merkle tree commitments.
package hash

import (
	"crypto/sha256"

	"github.com/n3fullnode/neofull/pkg/util"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // protocol-mandated, not our choice
)

// Sha256 returns the SHA-256 digest of b.
func Sha256(b []byte) util.Uint256 {
	return util.Uint256(sha256.Sum256(b))
}

// DoubleSha256 returns SHA-256(SHA-256(b)), the transaction/block
// hashing primitive.
func DoubleSha256(b []byte) util.Uint256 {
	h1 := sha256.Sum256(b)
	return Sha256(h1[:])
}

// RipeMD160 returns the RIPEMD-160 digest of b.
func RipeMD160(b []byte) util.Uint160 {
	h := ripemd160.New()
	_, _ = h.Write(b)
	var u util.Uint160
	copy(u[:], h.Sum(nil))
	return u
}

// Hash160 returns RIPEMD-160(SHA-256(b)), the canonical script-hash
// function: this is how a verification script becomes an account
// identifier.
func Hash160(b []byte) util.Uint160 {
	h := sha256.Sum256(b)
	return RipeMD160(h[:])
}

// Package transaction implements the canonical Neo N3 transaction
// format: the signer/witness/attribute model, fee and validity fields,
// and the double-SHA256 hash computed over the non-witness fields.
package transaction

import (
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// Witness is the (invocation, verification) script pair that
// authorizes one signer. Invocation pushes the arguments the
// verification script consumes; verification runs under the
// Verification trigger and must HALT with a truthy top stack item.
type Witness struct {
	InvocationScript   []byte
	VerificationScript []byte
}

// EncodeBinary implements io.Serializable.
func (w *Witness) EncodeBinary(bw *io.BinWriter) {
	bw.WriteVarBytes(w.InvocationScript)
	bw.WriteVarBytes(w.VerificationScript)
}

// DecodeBinary implements io.Serializable.
func (w *Witness) DecodeBinary(br *io.BinReader) {
	w.InvocationScript = br.ReadVarBytes(65536)
	w.VerificationScript = br.ReadVarBytes(65536)
}

// ScriptHash returns Hash160(VerificationScript), the account this
// witness authorizes on behalf of.
func (w *Witness) ScriptHash() util.Uint160 {
	return hash.Hash160(w.VerificationScript)
}

package consensus

import (
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

// sign fills p.Witness with a single-signature witness over p.Hash(),
// the same (PUSHDATA sig, verification script) shape a regular
// account witness uses so the block/message verifier needs no special
// case for consensus payloads.
func sign(p *Payload, priv *keys.PrivateKey) error {
	p.Sender = priv.PublicKey().GetScriptHash()
	sig, err := priv.Sign(p.Hash().BytesBE())
	if err != nil {
		return err
	}
	p.Witness.InvocationScript = append([]byte{byte(opcode.PUSHDATA1), 64}, sig...)
	p.Witness.VerificationScript = priv.PublicKey().GetVerificationScript()
	return nil
}

// verify checks p.Witness against p.Hash() using the plain VM witness
// path: invocation and verification concatenated into one
// script, run under no state access, HALT with a truthy top item.
func verify(p *Payload) bool {
	if p.Witness.ScriptHash() != p.Sender {
		return false
	}
	return verifyWitness(&p.Witness, p.Hash().BytesBE())
}

// verifyWitness is supplied by the core wiring layer (see
// BindWitnessVerifier) so this package does not need to import
// pkg/core and create a cycle; consensus payloads and block headers
// are witnessed the same way transactions are.
var verifyWitness func(w *transaction.Witness, signingHash []byte) bool

// BindWitnessVerifier wires the real witness-script execution (the
// same VM path pkg/core/verify.go uses for transactions) into this
// package. Must be called once during node startup before any
// Service is created.
func BindWitnessVerifier(f func(w *transaction.Witness, signingHash []byte) bool) {
	verifyWitness = f
}

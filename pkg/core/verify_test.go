package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

// buildSingleSigTx builds a minimally valid transaction witnessed by a
// single freshly generated secp256r1 key, signed over its own hash.
func buildSingleSigTx(t *testing.T, networkFee int64) (*transaction.Transaction, *keys.PrivateKey) {
	t.Helper()
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	pub := priv.PublicKey()

	tx := &transaction.Transaction{
		Nonce:           1,
		SystemFee:       0,
		NetworkFee:      networkFee,
		ValidUntilBlock: 1000,
		Signers:         []transaction.Signer{{Account: pub.GetScriptHash(), Scopes: transaction.Global}},
		Script:          []byte{byte(opcode.RET)},
	}
	sig, err := priv.Sign(tx.Hash().BytesBE())
	require.NoError(t, err)

	invocation := append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...)
	tx.Witnesses = []transaction.Witness{{
		InvocationScript:   invocation,
		VerificationScript: pub.GetVerificationScript(),
	}}
	return tx, priv
}

func TestVerifyWitnessesSingleSigPasses(t *testing.T) {
	tx, _ := buildSingleSigTx(t, 100_000_000)
	require.NoError(t, VerifyWitnesses(tx, 1000))
}

func TestVerifyWitnessesRejectsTamperedSignature(t *testing.T) {
	tx, _ := buildSingleSigTx(t, 100_000_000)
	tx.Witnesses[0].InvocationScript[3] ^= 0xFF
	require.Error(t, VerifyWitnesses(tx, 1000))
}

func TestVerifyWitnessesRejectsInsufficientNetworkFee(t *testing.T) {
	tx, _ := buildSingleSigTx(t, 1)
	require.ErrorIs(t, VerifyWitnesses(tx, 1000), errNetworkFeeLow)
}

func TestVerifyStateIndependentRejectsExpired(t *testing.T) {
	tx, _ := buildSingleSigTx(t, 100_000_000)
	tx.ValidUntilBlock = 5
	require.ErrorIs(t, VerifyStateIndependent(tx, 10, 100, 1000), errValidUntilPast)
}

func TestVerifyStateIndependentRejectsFarValidUntilBlock(t *testing.T) {
	tx, _ := buildSingleSigTx(t, 100_000_000)
	tx.ValidUntilBlock = 500
	require.ErrorIs(t, VerifyStateIndependent(tx, 10, 100, 1000), errValidUntilFar)
}

func TestVerifyStateIndependentAccepts(t *testing.T) {
	tx, _ := buildSingleSigTx(t, 100_000_000)
	tx.ValidUntilBlock = 50
	require.NoError(t, VerifyStateIndependent(tx, 10, 100, 1000))
}

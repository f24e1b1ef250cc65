package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/util"
)

func newSignedTx(t *testing.T) *Transaction {
	t.Helper()
	return &Transaction{
		Version:         Version,
		Nonce:           1,
		SystemFee:       100,
		NetworkFee:      50,
		ValidUntilBlock: 1000,
		Signers: []Signer{
			{Account: util.Uint160{1, 2, 3}, Scopes: CalledByEntry},
		},
		Script: []byte{0x51, 0x40},
		Witnesses: []Witness{
			{InvocationScript: []byte{0x01}, VerificationScript: []byte{0x51}},
		},
	}
}

func TestTransactionEncodeDecodeRoundtrip(t *testing.T) {
	tx := newSignedTx(t)
	b := tx.Bytes()

	got, err := NewTransactionFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, tx.Nonce, got.Nonce)
	assert.Equal(t, tx.SystemFee, got.SystemFee)
	assert.Equal(t, tx.NetworkFee, got.NetworkFee)
	assert.Equal(t, tx.ValidUntilBlock, got.ValidUntilBlock)
	assert.Equal(t, tx.Script, got.Script)
	assert.Equal(t, tx.Hash(), got.Hash())
}

func TestTransactionHashStableAndWitnessIndependent(t *testing.T) {
	tx := newSignedTx(t)
	h1 := tx.Hash()

	tx.Witnesses[0].InvocationScript = []byte{0xff, 0xff, 0xff}
	assert.Equal(t, h1, tx.Hash(), "witness changes must not affect the signed hash")
}

func TestTransactionDecodeRejectsEmptyScript(t *testing.T) {
	tx := newSignedTx(t)
	tx.Script = nil
	_, err := NewTransactionFromBytes(tx.Bytes())
	assert.Error(t, err)
}

func TestTransactionDecodeRejectsNoSigners(t *testing.T) {
	tx := newSignedTx(t)
	tx.Signers = nil
	tx.Witnesses = nil
	_, err := NewTransactionFromBytes(tx.Bytes())
	assert.Error(t, err)
}

func TestTransactionDecodeRejectsWitnessSignerMismatch(t *testing.T) {
	tx := newSignedTx(t)
	tx.Witnesses = append(tx.Witnesses, Witness{VerificationScript: []byte{0x51}})
	_, err := NewTransactionFromBytes(tx.Bytes())
	assert.Error(t, err)
}

func TestTransactionDecodeRejectsDuplicateSigners(t *testing.T) {
	tx := newSignedTx(t)
	tx.Signers = append(tx.Signers, tx.Signers[0])
	tx.Witnesses = append(tx.Witnesses, tx.Witnesses[0])
	_, err := NewTransactionFromBytes(tx.Bytes())
	assert.Error(t, err)
}

func TestTransactionSenderIsFirstSigner(t *testing.T) {
	tx := newSignedTx(t)
	assert.Equal(t, tx.Signers[0].Account, tx.Sender())
}

func TestTransactionHasAttributeAndSigner(t *testing.T) {
	tx := newSignedTx(t)
	tx.Attributes = []Attribute{{Value: &HighPriority{}}}
	assert.True(t, tx.HasAttribute(HighPriorityT))
	assert.False(t, tx.HasAttribute(ConflictsT))
	assert.True(t, tx.HasSigner(tx.Signers[0].Account))
}

func TestTransactionSizeMatchesEncodedLength(t *testing.T) {
	tx := newSignedTx(t)
	assert.Equal(t, len(tx.Bytes()), tx.Size())
}

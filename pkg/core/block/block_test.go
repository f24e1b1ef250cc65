package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

func newTestTx(nonce uint32) *transaction.Transaction {
	return &transaction.Transaction{
		Version:         transaction.Version,
		Nonce:           nonce,
		SystemFee:       1,
		NetworkFee:      1,
		ValidUntilBlock: 100,
		Signers: []transaction.Signer{
			{Account: util.Uint160{byte(nonce)}, Scopes: transaction.CalledByEntry},
		},
		Script: []byte{0x51},
		Witnesses: []transaction.Witness{
			{VerificationScript: []byte{0x51}},
		},
	}
}

func newTestBlock() *Block {
	b := &Block{
		Header: *newTestHeader(),
		Transactions: []*transaction.Transaction{
			newTestTx(1),
			newTestTx(2),
		},
	}
	b.RebuildMerkleRoot()
	return b
}

func TestBlockRebuildMerkleRoot(t *testing.T) {
	b := newTestBlock()
	assert.Equal(t, b.ComputeMerkleRoot(), b.MerkleRoot)
}

func TestBlockEncodeDecodeRoundtrip(t *testing.T) {
	b := newTestBlock()
	data := b.Bytes()

	got, err := NewBlockFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, b.Hash(), got.Hash())
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, b.Transactions[0].Hash(), got.Transactions[0].Hash())
	assert.Equal(t, b.Transactions[1].Hash(), got.Transactions[1].Hash())
}

func TestBlockDecodeRejectsTooManyTransactions(t *testing.T) {
	b := newTestBlock()

	// The transaction-count varint immediately follows the encoded
	// header; write a count one above MaxTransactionsPerBlock there.
	buf := io.NewBufBinWriter()
	b.Header.EncodeBinary(buf.BinWriter)
	buf.WriteVarUint(MaxTransactionsPerBlock + 1)
	require.NoError(t, buf.Err)

	_, err := NewBlockFromBytes(buf.Bytes())
	assert.ErrorIs(t, err, ErrMaxContentsPerBlock)
}

func TestBlockJSONRoundtrip(t *testing.T) {
	b := newTestBlock()
	data, err := b.MarshalJSON()
	require.NoError(t, err)

	got := &Block{}
	require.NoError(t, got.UnmarshalJSON(data))
	assert.Equal(t, b.Index, got.Index)
	require.Len(t, got.Transactions, 2)
}

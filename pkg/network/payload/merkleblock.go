package payload

import (
	"errors"

	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// MerkleBlock is the filtered form of a block sent to peers with a
// loaded bloom filter: the full header, the total transaction count,
// every transaction hash in block order, and one flag bit per
// transaction marking the ones the filter matched.
type MerkleBlock struct {
	Header  *block.Header
	TxCount int
	Hashes  []util.Uint256
	Flags   []byte
}

// NewMerkleBlock builds the filtered form of b: every transaction
// hash in order plus one flag bit per transaction marking the ones
// matched reports true for.
func NewMerkleBlock(b *block.Block, matched func(util.Uint256) bool) *MerkleBlock {
	n := len(b.Transactions)
	m := &MerkleBlock{
		Header:  &b.Header,
		TxCount: n,
		Hashes:  make([]util.Uint256, n),
		Flags:   make([]byte, (n+7)/8),
	}
	for i, tx := range b.Transactions {
		h := tx.Hash()
		m.Hashes[i] = h
		if matched(h) {
			m.Flags[i>>3] |= 1 << (i & 7)
		}
	}
	return m
}

// EncodeBinary implements io.Serializable.
func (m *MerkleBlock) EncodeBinary(w *io.BinWriter) {
	m.Header.EncodeBinary(w)
	w.WriteVarUint(uint64(m.TxCount))
	w.WriteVarUint(uint64(len(m.Hashes)))
	for i := range m.Hashes {
		w.WriteBytes(m.Hashes[i].BytesLE())
	}
	w.WriteVarBytes(m.Flags)
}

// DecodeBinary implements io.Serializable.
func (m *MerkleBlock) DecodeBinary(r *io.BinReader) {
	m.Header = &block.Header{}
	m.Header.DecodeBinary(r)
	txCount := int(r.ReadVarUint())
	if r.Err == nil && txCount > block.MaxTransactionsPerBlock {
		r.Err = block.ErrMaxContentsPerBlock
		return
	}
	m.TxCount = txCount
	n := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	if n > txCount {
		r.Err = errors.New("payload: more merkle hashes than transactions")
		return
	}
	m.Hashes = make([]util.Uint256, n)
	for i := range m.Hashes {
		r.ReadBytes(m.Hashes[i][:])
	}
	m.Flags = r.ReadVarBytes((txCount + 7) / 8)
}

package block

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// MaxTransactionsPerBlock bounds the body's transaction count.
const MaxTransactionsPerBlock = math.MaxUint16

// ErrMaxContentsPerBlock is returned when a decoded block claims more
// transactions than MaxTransactionsPerBlock.
var ErrMaxContentsPerBlock = errors.New("block: transaction count exceeds the maximum per block")

// Block is a header plus its full transaction list.
type Block struct {
	Header
	Transactions []*transaction.Transaction
}

type blockJSONOut struct {
	Transactions []*transaction.Transaction `json:"tx"`
}

type blockJSONIn struct {
	Transactions []json.RawMessage `json:"tx"`
}

// New creates a blank block ready to have its fields filled in.
func New() *Block {
	return &Block{}
}

// ComputeMerkleRoot computes the Merkle root over the block's current
// transaction list without mutating the header.
func (b *Block) ComputeMerkleRoot() util.Uint256 {
	hashes := make([]util.Uint256, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}
	return hash.CalcMerkleRoot(hashes)
}

// RebuildMerkleRoot recomputes and stores the header's Merkle root
// from the current transaction list; callers must do this before
// EncodeBinary/Hash if the transaction list changed since the header
// fields were set.
func (b *Block) RebuildMerkleRoot() {
	b.MerkleRoot = b.ComputeMerkleRoot()
}

// EncodeBinary implements io.Serializable.
func (b *Block) EncodeBinary(bw *io.BinWriter) {
	b.Header.EncodeBinary(bw)
	bw.WriteVarUint(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		tx.EncodeBinary(bw)
	}
}

// DecodeBinary implements io.Serializable.
func (b *Block) DecodeBinary(br *io.BinReader) {
	b.Header.DecodeBinary(br)
	if br.Err != nil {
		return
	}
	count := br.ReadVarUint()
	if count > MaxTransactionsPerBlock {
		br.Err = ErrMaxContentsPerBlock
		return
	}
	txes := make([]*transaction.Transaction, count)
	for i := range txes {
		tx := &transaction.Transaction{}
		tx.DecodeBinary(br)
		if br.Err != nil {
			return
		}
		txes[i] = tx
	}
	b.Transactions = txes
}

// Bytes serializes the full block.
func (b *Block) Bytes() []byte {
	buf := io.NewBufBinWriter()
	b.EncodeBinary(buf.BinWriter)
	return buf.Bytes()
}

// NewBlockFromBytes decodes a full wire-format block.
func NewBlockFromBytes(data []byte) (*Block, error) {
	b := &Block{}
	br := io.NewBinReaderFromBuf(data)
	b.DecodeBinary(br)
	if br.Err != nil {
		return nil, br.Err
	}
	return b, nil
}

// MarshalJSON implements json.Marshaler.
func (b Block) MarshalJSON() ([]byte, error) {
	auxBytes, err := json.Marshal(blockJSONOut{Transactions: b.Transactions})
	if err != nil {
		return nil, err
	}
	headerBytes, err := json.Marshal(b.Header)
	if err != nil {
		return nil, err
	}
	if headerBytes[len(headerBytes)-1] != '}' || auxBytes[0] != '{' {
		return nil, errors.New("block: can't merge header and transaction JSON")
	}
	headerBytes[len(headerBytes)-1] = ','
	return append(headerBytes, auxBytes[1:]...), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Block) UnmarshalJSON(data []byte) error {
	auxb := new(blockJSONIn)
	if err := json.Unmarshal(data, auxb); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &b.Header); err != nil {
		return err
	}
	if len(auxb.Transactions) == 0 {
		return nil
	}
	b.Transactions = make([]*transaction.Transaction, 0, len(auxb.Transactions))
	for _, raw := range auxb.Transactions {
		tx := &transaction.Transaction{}
		if err := json.Unmarshal(raw, tx); err != nil {
			return err
		}
		b.Transactions = append(b.Transactions, tx)
	}
	return nil
}

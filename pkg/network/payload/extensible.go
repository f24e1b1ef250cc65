package payload

import (
	"errors"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// MaxExtensibleDataSize bounds an Extensible payload's opaque Data
// field, keeping a malicious envelope from being an unbounded
// allocation (the consensus messages this envelope actually carries
// are a few KB at most).
const MaxExtensibleDataSize = 64 * 1024

// ErrInvalidPadding is returned when the byte before a decoded
// Extensible's witness, its witness count, is not 1.
var ErrInvalidPadding = errors.New("payload: invalid extensible padding")

// ConsensusCategory identifies a dBFT message inside an Extensible
// envelope's Category field; other category strings are reserved for
// future non-consensus uses of the same generic transport.
const ConsensusCategory = "dBFT"

// Extensible is the generic signed envelope used to carry consensus
// and other application-level messages over P2P without a dedicated
// wire command per message kind.
type Extensible struct {
	Category        string
	ValidBlockStart uint32
	ValidBlockEnd   uint32
	Sender          util.Uint160
	Data            []byte
	Witness         transaction.Witness

	hash    util.Uint256
	hasHash bool
}

// NewExtensible returns a blank Extensible ready to be filled in.
func NewExtensible() *Extensible {
	return &Extensible{}
}

func (e *Extensible) encodeBinaryUnsigned(w *io.BinWriter) {
	w.WriteString(e.Category)
	w.WriteU32LE(e.ValidBlockStart)
	w.WriteU32LE(e.ValidBlockEnd)
	w.WriteBytes(e.Sender.BytesLE())
	w.WriteVarBytes(e.Data)
}

// EncodeBinary implements io.Serializable.
func (e *Extensible) EncodeBinary(w *io.BinWriter) {
	e.encodeBinaryUnsigned(w)
	w.WriteB(1)
	e.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (e *Extensible) DecodeBinary(r *io.BinReader) {
	e.Category = r.ReadString(64)
	e.ValidBlockStart = r.ReadU32LE()
	e.ValidBlockEnd = r.ReadU32LE()
	r.ReadBytes(e.Sender[:])
	e.Data = r.ReadVarBytes(MaxExtensibleDataSize)
	if r.Err != nil {
		return
	}
	if b := r.ReadB(); r.Err == nil && b != 1 {
		r.Err = ErrInvalidPadding
		return
	}
	e.Witness.DecodeBinary(r)
}

// Hash is the double-SHA256 over the unsigned encoding, cached like a
// transaction's hash.
func (e *Extensible) Hash() util.Uint256 {
	if !e.hasHash {
		w := io.NewBufBinWriter()
		e.encodeBinaryUnsigned(w.BinWriter)
		e.hash = hash.DoubleSha256(w.Bytes())
		e.hasHash = true
	}
	return e.hash
}

// ValidAt reports whether the envelope's validity window covers
// height.
func (e *Extensible) ValidAt(height uint32) bool {
	return height >= e.ValidBlockStart && height <= e.ValidBlockEnd
}

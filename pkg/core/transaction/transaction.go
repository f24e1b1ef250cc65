package transaction

import (
	"fmt"
	"sync"

	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// Version is the only transaction format version N3 accepts.
const Version = 0

// Size limits, all enforced at decode and validation time.
const (
	MaxScriptLength      = 65536
	MaxTransactionSize   = 102400
	MaxSignersCount      = 16
)

// Transaction is the atomic unit of state change: a script to run
// under the Application trigger, the fees that pay for it, the
// signers whose witnesses authorize it, and the block-height window
// it's valid within.
type Transaction struct {
	Version         uint8
	Nonce           uint32
	SystemFee       int64
	NetworkFee      int64
	ValidUntilBlock uint32
	Signers         []Signer
	Attributes      []Attribute
	Script          []byte
	Witnesses       []Witness

	hashLock sync.Mutex
	hash     *util.Uint256
	size     int
}

// Sender is the transaction's first signer, the account the network
// fee and base system fee are withdrawn from.
func (t *Transaction) Sender() util.Uint160 {
	if len(t.Signers) == 0 {
		return util.Uint160{}
	}
	return t.Signers[0].Account
}

// Hash returns the double-SHA256 over the transaction's non-witness
// fields, computed once and cached; callers MUST NOT mutate a
// Transaction after calling Hash.
func (t *Transaction) Hash() util.Uint256 {
	t.hashLock.Lock()
	defer t.hashLock.Unlock()
	if t.hash == nil {
		buf := io.NewBufBinWriter()
		t.encodeHashable(buf.BinWriter)
		h := hash.DoubleSha256(buf.Bytes())
		t.hash = &h
	}
	return *t.hash
}

// invalidateHash must be called after any in-place mutation of the
// signed fields; it's a no-op if Hash was never computed.
func (t *Transaction) invalidateHash() {
	t.hashLock.Lock()
	t.hash = nil
	t.hashLock.Unlock()
}

func (t *Transaction) encodeHashable(bw *io.BinWriter) {
	bw.WriteB(t.Version)
	bw.WriteU32LE(t.Nonce)
	bw.WriteU64LE(uint64(t.SystemFee))
	bw.WriteU64LE(uint64(t.NetworkFee))
	bw.WriteU32LE(t.ValidUntilBlock)
	bw.WriteVarUint(uint64(len(t.Signers)))
	for i := range t.Signers {
		t.Signers[i].EncodeBinary(bw)
	}
	bw.WriteVarUint(uint64(len(t.Attributes)))
	for i := range t.Attributes {
		t.Attributes[i].EncodeBinary(bw)
	}
	bw.WriteVarBytes(t.Script)
}

// EncodeBinary implements io.Serializable: the hashable fields
// followed by the witness list, one per signer in the same order.
func (t *Transaction) EncodeBinary(bw *io.BinWriter) {
	t.encodeHashable(bw)
	bw.WriteVarUint(uint64(len(t.Witnesses)))
	for i := range t.Witnesses {
		t.Witnesses[i].EncodeBinary(bw)
	}
}

// DecodeBinary implements io.Serializable.
func (t *Transaction) DecodeBinary(br *io.BinReader) {
	t.Version = br.ReadB()
	if t.Version != Version {
		br.Err = fmt.Errorf("transaction: unsupported version %d", t.Version)
		return
	}
	t.Nonce = br.ReadU32LE()
	t.SystemFee = int64(br.ReadU64LE())
	t.NetworkFee = int64(br.ReadU64LE())
	if t.SystemFee < 0 || t.NetworkFee < 0 {
		br.Err = fmt.Errorf("transaction: negative fee")
		return
	}
	t.ValidUntilBlock = br.ReadU32LE()

	nSigners := br.ReadVarUint()
	if nSigners == 0 {
		br.Err = fmt.Errorf("transaction: no signers")
		return
	}
	if nSigners > MaxSignersCount {
		br.Err = fmt.Errorf("transaction: too many signers (%d)", nSigners)
		return
	}
	t.Signers = make([]Signer, nSigners)
	seen := make(map[util.Uint160]bool, nSigners)
	for i := range t.Signers {
		t.Signers[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
		if seen[t.Signers[i].Account] {
			br.Err = fmt.Errorf("transaction: duplicate signer %s", t.Signers[i].Account.StringLE())
			return
		}
		seen[t.Signers[i].Account] = true
	}

	nAttrs := br.ReadVarUint()
	if nAttrs > MaxAttributes {
		br.Err = fmt.Errorf("transaction: too many attributes (%d)", nAttrs)
		return
	}
	t.Attributes = make([]Attribute, nAttrs)
	seenTypes := make(map[AttributeType]bool)
	for i := range t.Attributes {
		t.Attributes[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
		typ := t.Attributes[i].Value.Type()
		if seenTypes[typ] && !typ.AllowMultiple() {
			br.Err = fmt.Errorf("transaction: duplicate attribute type 0x%x", byte(typ))
			return
		}
		seenTypes[typ] = true
	}

	t.Script = br.ReadVarBytes(MaxScriptLength)
	if len(t.Script) == 0 {
		br.Err = fmt.Errorf("transaction: empty script")
		return
	}

	nWit := br.ReadVarUint()
	if nWit != nSigners {
		br.Err = fmt.Errorf("transaction: witness count %d does not match signer count %d", nWit, nSigners)
		return
	}
	t.Witnesses = make([]Witness, nWit)
	for i := range t.Witnesses {
		t.Witnesses[i].DecodeBinary(br)
	}
}

// Bytes serializes the full transaction, witnesses included.
func (t *Transaction) Bytes() []byte {
	buf := io.NewBufBinWriter()
	t.EncodeBinary(buf.BinWriter)
	return buf.Bytes()
}

// Size returns the serialized byte length, computed lazily and cached
// alongside the hash (both derive from the same immutable fields).
func (t *Transaction) Size() int {
	if t.size == 0 {
		t.size = len(t.Bytes())
	}
	return t.size
}

// HasAttribute reports whether the transaction carries at least one
// attribute of the given type.
func (t *Transaction) HasAttribute(typ AttributeType) bool {
	for i := range t.Attributes {
		if t.Attributes[i].Value.Type() == typ {
			return true
		}
	}
	return false
}

// HasSigner reports whether account appears in the signer list.
func (t *Transaction) HasSigner(account util.Uint160) bool {
	for _, s := range t.Signers {
		if s.Account == account {
			return true
		}
	}
	return false
}

// NewTransactionFromBytes decodes a full wire-format transaction.
func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	br := io.NewBinReaderFromBuf(b)
	t := &Transaction{}
	t.DecodeBinary(br)
	if br.Err != nil {
		return nil, br.Err
	}
	if len(b) > MaxTransactionSize {
		return nil, fmt.Errorf("transaction: size %d exceeds maximum %d", len(b), MaxTransactionSize)
	}
	t.size = len(b)
	return t, nil
}

package transaction

import (
	"fmt"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// AttributeType tags the concrete AttributeValue variant on the wire.
type AttributeType byte

const (
	HighPriorityT    AttributeType = 0x01
	OracleResponseT  AttributeType = 0x11
	NotValidBeforeT  AttributeType = 0x20
	ConflictsT       AttributeType = 0x21
	NotaryAssistedT  AttributeType = 0x22
)

// MaxAttributes bounds the attribute count of a single transaction.
const MaxAttributes = 16

// OracleResponseCode is the status an oracle node attaches to its
// response payload.
type OracleResponseCode byte

const (
	OracleSuccess           OracleResponseCode = 0x00
	OracleProtocolNotSupported OracleResponseCode = 0x10
	OracleConsensusUnreachable OracleResponseCode = 0x12
	OracleNotFound          OracleResponseCode = 0x14
	OracleTimeout           OracleResponseCode = 0x16
	OracleForbidden         OracleResponseCode = 0x18
	OracleResponseTooLarge  OracleResponseCode = 0x1a
	OracleInsufficientFunds OracleResponseCode = 0x1c
	OracleContentTypeNotSupported OracleResponseCode = 0x1f
	OracleError             OracleResponseCode = 0xff
)

// AttributeValue is the per-type payload of an Attribute.
type AttributeValue interface {
	io.Serializable
	Type() AttributeType
}

// Attribute is one tagged extra datum attached to a transaction,
// outside its core fee/signer/script fields.
type Attribute struct {
	Value AttributeValue
}

// EncodeBinary implements io.Serializable.
func (a *Attribute) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(a.Value.Type()))
	a.Value.EncodeBinary(bw)
}

// DecodeBinary implements io.Serializable.
func (a *Attribute) DecodeBinary(br *io.BinReader) {
	typ := AttributeType(br.ReadB())
	var v AttributeValue
	switch typ {
	case HighPriorityT:
		v = &HighPriority{}
	case OracleResponseT:
		v = &OracleResponse{}
	case NotValidBeforeT:
		v = &NotValidBefore{}
	case ConflictsT:
		v = &Conflicts{}
	case NotaryAssistedT:
		v = &NotaryAssisted{}
	default:
		br.Err = fmt.Errorf("transaction: unknown attribute type 0x%x", byte(typ))
		return
	}
	v.DecodeBinary(br)
	a.Value = v
}

// AllowMultiple reports whether a transaction may carry more than one
// attribute of this type. Only Conflicts may repeat.
func (t AttributeType) AllowMultiple() bool {
	return t == ConflictsT
}

// HighPriority exempts the transaction from the mempool's
// low-priority-first eviction order. Carries no payload; committee
// membership of a signer is what actually grants the exemption,
// checked outside the attribute itself.
type HighPriority struct{}

func (a *HighPriority) Type() AttributeType            { return HighPriorityT }
func (a *HighPriority) EncodeBinary(bw *io.BinWriter)   {}
func (a *HighPriority) DecodeBinary(br *io.BinReader)   {}

// OracleResponse carries an oracle service's answer to a prior
// OracleRequest, keyed by request ID.
type OracleResponse struct {
	ID     uint64
	Code   OracleResponseCode
	Result []byte
}

func (a *OracleResponse) Type() AttributeType { return OracleResponseT }
func (a *OracleResponse) EncodeBinary(bw *io.BinWriter) {
	bw.WriteU64LE(a.ID)
	bw.WriteB(byte(a.Code))
	if a.Code == OracleSuccess {
		bw.WriteVarBytes(a.Result)
	} else {
		bw.WriteVarBytes(nil)
	}
}
func (a *OracleResponse) DecodeBinary(br *io.BinReader) {
	a.ID = br.ReadU64LE()
	a.Code = OracleResponseCode(br.ReadB())
	a.Result = br.ReadVarBytes(1024)
	if a.Code != OracleSuccess && len(a.Result) != 0 {
		br.Err = fmt.Errorf("transaction: non-success oracle response must carry an empty result")
	}
}

// NotValidBefore marks the earliest block index the transaction may
// be included in, used by the notary service to sequence fallback
// transactions.
type NotValidBefore struct {
	Height uint32
}

func (a *NotValidBefore) Type() AttributeType          { return NotValidBeforeT }
func (a *NotValidBefore) EncodeBinary(bw *io.BinWriter) { bw.WriteU32LE(a.Height) }
func (a *NotValidBefore) DecodeBinary(br *io.BinReader) { a.Height = br.ReadU32LE() }

// Conflicts declares another transaction hash that must not also be
// accepted on chain; including it lets a higher-fee replacement evict
// a conflicting low-fee transaction from the mempool.
type Conflicts struct {
	Hash util.Uint256
}

func (a *Conflicts) Type() AttributeType          { return ConflictsT }
func (a *Conflicts) EncodeBinary(bw *io.BinWriter) { bw.WriteBytes(a.Hash[:]) }
func (a *Conflicts) DecodeBinary(br *io.BinReader) { br.ReadBytes(a.Hash[:]) }

// NotaryAssisted declares how many additional signatures the Notary
// native contract must collect before this transaction is considered
// complete.
type NotaryAssisted struct {
	NKeys uint8
}

func (a *NotaryAssisted) Type() AttributeType          { return NotaryAssistedT }
func (a *NotaryAssisted) EncodeBinary(bw *io.BinWriter) { bw.WriteB(a.NKeys) }
func (a *NotaryAssisted) DecodeBinary(br *io.BinReader) { a.NKeys = br.ReadB() }

package payload

import (
	"errors"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// maxHashesCount bounds a single Inv/GetData/NotFound payload.
const maxHashesCount = 500

// errInvalidInvType is returned when an Inventory payload names a
// type byte outside the known set.
var errInvalidInvType = errors.New("payload: invalid inventory type")

// InvType identifies what kind of object an Inventory payload's
// hashes name.
type InvType byte

const (
	TXType          InvType = 0x2b
	BlockType       InvType = 0x2c
	ExtensibleType  InvType = 0x2e
	P2PNotaryRequestType InvType = 0x2d
)

func (t InvType) Valid() bool {
	switch t {
	case TXType, BlockType, ExtensibleType, P2PNotaryRequestType:
		return true
	default:
		return false
	}
}

// Inventory is the body shared by Inv, GetData, and NotFound: a type
// tag plus a bounded list of object hashes.
type Inventory struct {
	Type   InvType
	Hashes []util.Uint256
}

// NewInventory builds an Inventory payload.
func NewInventory(t InvType, hashes []util.Uint256) *Inventory {
	return &Inventory{Type: t, Hashes: hashes}
}

// EncodeBinary implements io.Serializable.
func (p *Inventory) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(p.Type))
	w.WriteVarUint(uint64(len(p.Hashes)))
	for _, h := range p.Hashes {
		w.WriteBytes(h.BytesLE())
	}
}

// DecodeBinary implements io.Serializable.
func (p *Inventory) DecodeBinary(r *io.BinReader) {
	p.Type = InvType(r.ReadB())
	if r.Err == nil && !p.Type.Valid() {
		r.Err = errInvalidInvType
		return
	}
	n := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	if n > maxHashesCount {
		r.Err = io.ErrVarIntTooBig
		return
	}
	p.Hashes = make([]util.Uint256, n)
	for i := range p.Hashes {
		r.ReadBytes(p.Hashes[i][:])
		if r.Err != nil {
			return
		}
	}
}

// Package consensus implements the dBFT state machine each validator
// runs to agree on the next block: prepare/response/commit, timer-driven
// change-view, and recovery for a validator that falls behind.
//
// Consensus messages ride the P2P layer wrapped in a single generic,
// signed envelope (an Extensible payload) rather than their own wire
// command; this package owns the envelope's
// inner message format and the state machine that produces and
// consumes it.
package consensus

import (
	"fmt"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// messageType tags the payload carried inside a consensus message,
// one tag per dBFT message kind.
type messageType byte

const (
	changeViewType      messageType = 0x00
	prepareRequestType  messageType = 0x20
	prepareResponseType messageType = 0x21
	commitType          messageType = 0x30
	recoveryRequestType messageType = 0x40
	recoveryMessageType messageType = 0x41
)

func (t messageType) String() string {
	switch t {
	case changeViewType:
		return "ChangeView"
	case prepareRequestType:
		return "PrepareRequest"
	case prepareResponseType:
		return "PrepareResponse"
	case commitType:
		return "Commit"
	case recoveryRequestType:
		return "RecoveryRequest"
	case recoveryMessageType:
		return "RecoveryMessage"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
	}
}

// serializable is the minimal interface every inner payload
// implements; kept local rather than reusing io.Serializable's name so
// message.DecodeBinary's switch below reads self-contained.
type serializable interface {
	EncodeBinary(w *io.BinWriter)
	DecodeBinary(r *io.BinReader)
}

// message is the inner, type-tagged consensus payload: Type picks
// which of the six structs below payload holds.
type message struct {
	Type           messageType
	ViewNumber     byte
	BlockIndex     uint32
	ValidatorIndex uint16

	payload serializable
}

// EncodeBinary implements io.Serializable.
func (m *message) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(m.Type))
	w.WriteB(m.ViewNumber)
	w.WriteU32LE(m.BlockIndex)
	w.WriteU16LE(m.ValidatorIndex)
	m.payload.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (m *message) DecodeBinary(r *io.BinReader) {
	m.Type = messageType(r.ReadB())
	m.ViewNumber = r.ReadB()
	m.BlockIndex = r.ReadU32LE()
	m.ValidatorIndex = r.ReadU16LE()
	if r.Err != nil {
		return
	}
	switch m.Type {
	case changeViewType:
		m.payload = new(changeView)
	case prepareRequestType:
		m.payload = new(prepareRequest)
	case prepareResponseType:
		m.payload = new(prepareResponse)
	case commitType:
		m.payload = new(commitMsg)
	case recoveryRequestType:
		m.payload = new(recoveryRequest)
	case recoveryMessageType:
		m.payload = new(recoveryMessage)
	default:
		r.Err = fmt.Errorf("consensus: invalid message type 0x%02x", byte(m.Type))
		return
	}
	m.payload.DecodeBinary(r)
}

// Payload is one signed consensus message as carried over the wire: an
// Extensible envelope (sender, validity window, witness) around the
// type-tagged inner message.
type Payload struct {
	message

	Sender  util.Uint160
	Network uint32

	Witness transaction.Witness
}

// Hash is the double-SHA256 over the payload's unsigned encoding, the
// value PrepareResponse references and Commit/ChangeView signatures
// cover.
func (p *Payload) Hash() util.Uint256 {
	w := io.NewBufBinWriter()
	p.encodeUnsigned(w.BinWriter)
	return hash.DoubleSha256(w.Bytes())
}

func (p *Payload) encodeUnsigned(w *io.BinWriter) {
	w.WriteU32LE(p.Network)
	w.WriteBytes(p.Sender.BytesLE())
	p.message.EncodeBinary(w)
}

// EncodeBinary implements io.Serializable.
func (p *Payload) EncodeBinary(w *io.BinWriter) {
	p.encodeUnsigned(w)
	p.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (p *Payload) DecodeBinary(r *io.BinReader) {
	p.Network = r.ReadU32LE()
	r.ReadBytes(p.Sender[:])
	p.message.DecodeBinary(r)
	if r.Err != nil {
		return
	}
	p.Witness.DecodeBinary(r)
}

// View returns the view number this payload was produced under; a
// ChangeView's own ViewNumber field names the view it is requesting
// to leave, one below the view NewViewNumber asks to enter.
func (p *Payload) View() byte { return p.message.ViewNumber }

func newPayload(network uint32, validator uint16, blockIndex uint32, view byte, t messageType, inner serializable) *Payload {
	return &Payload{
		message: message{
			Type:           t,
			ViewNumber:     view,
			BlockIndex:     blockIndex,
			ValidatorIndex: validator,
			payload:        inner,
		},
		Network: network,
	}
}

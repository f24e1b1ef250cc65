package consensus

import (
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// changeView is the inner payload of a ChangeView message: a request
// to abandon the current view for new view number reason/timestamp
// name.
type changeView struct {
	NewViewNumber byte
	Reason        byte
	Timestamp     uint64
}

// Reasons a validator gives for requesting a view change, matching
// the causes validators can actually observe.
const (
	CVTimeout          byte = 0
	CVChangeAgreement  byte = 1
	CVTxNotFound       byte = 2
	CVTxRejectedByTxPool byte = 3
	CVTxInvalid        byte = 4
	CVBlockRejected    byte = 5
)

func (c *changeView) EncodeBinary(w *io.BinWriter) {
	w.WriteB(c.NewViewNumber)
	w.WriteB(c.Reason)
	w.WriteU64LE(c.Timestamp)
}

func (c *changeView) DecodeBinary(r *io.BinReader) {
	c.NewViewNumber = r.ReadB()
	c.Reason = r.ReadB()
	c.Timestamp = r.ReadU64LE()
}

// prepareRequest is the primary's candidate block proposal: enough to
// let every backup reconstruct the header and look up the named
// transactions in its own mempool.
type prepareRequest struct {
	Version           uint32
	PrevHash          util.Uint256
	Timestamp         uint64
	Nonce             uint64
	NextConsensus     util.Uint160
	TransactionHashes []util.Uint256
}

func (p *prepareRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.Version)
	w.WriteBytes(p.PrevHash.BytesLE())
	w.WriteU64LE(p.Timestamp)
	w.WriteU64LE(p.Nonce)
	w.WriteBytes(p.NextConsensus.BytesLE())
	w.WriteVarUint(uint64(len(p.TransactionHashes)))
	for _, h := range p.TransactionHashes {
		w.WriteBytes(h.BytesLE())
	}
}

func (p *prepareRequest) DecodeBinary(r *io.BinReader) {
	p.Version = r.ReadU32LE()
	r.ReadBytes(p.PrevHash[:])
	p.Timestamp = r.ReadU64LE()
	p.Nonce = r.ReadU64LE()
	r.ReadBytes(p.NextConsensus[:])
	n := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	p.TransactionHashes = make([]util.Uint256, n)
	for i := range p.TransactionHashes {
		r.ReadBytes(p.TransactionHashes[i][:])
		if r.Err != nil {
			return
		}
	}
}

// prepareResponse is a backup's acknowledgement: it references the
// PrepareRequest it verified rather than repeating the candidate.
type prepareResponse struct {
	PreparationHash util.Uint256
}

func (p *prepareResponse) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.PreparationHash.BytesLE())
}

func (p *prepareResponse) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(p.PreparationHash[:])
}

// commitMsg carries one validator's signature over the candidate
// block header; once M are collected they aggregate into the block's
// witness.
type commitMsg struct {
	Signature [64]byte
}

func (c *commitMsg) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(c.Signature[:])
}

func (c *commitMsg) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(c.Signature[:])
}

// recoveryRequest asks peers for a RecoveryMessage summarizing the
// current view's state.
type recoveryRequest struct {
	Timestamp uint64
}

func (m *recoveryRequest) EncodeBinary(w *io.BinWriter) { w.WriteU64LE(m.Timestamp) }
func (m *recoveryRequest) DecodeBinary(r *io.BinReader)  { m.Timestamp = r.ReadU64LE() }

// recoveryMessage is the sanitized union of everything the responder
// has observed for the current view: enough for the requester to
// reconstruct Context state without replaying the whole round.
type recoveryMessage struct {
	ChangeViews      []*Payload
	PrepareRequest   *Payload
	PreparationHash  *util.Uint256
	PrepareResponses []*Payload
	Commits          []*Payload
}

func (m *recoveryMessage) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(m.ChangeViews)))
	for _, p := range m.ChangeViews {
		p.EncodeBinary(w)
	}
	w.WriteBool(m.PrepareRequest != nil)
	if m.PrepareRequest != nil {
		m.PrepareRequest.EncodeBinary(w)
	} else {
		w.WriteBool(m.PreparationHash != nil)
		if m.PreparationHash != nil {
			w.WriteBytes(m.PreparationHash.BytesLE())
		}
	}
	w.WriteVarUint(uint64(len(m.PrepareResponses)))
	for _, p := range m.PrepareResponses {
		p.EncodeBinary(w)
	}
	w.WriteVarUint(uint64(len(m.Commits)))
	for _, p := range m.Commits {
		p.EncodeBinary(w)
	}
}

func (m *recoveryMessage) DecodeBinary(r *io.BinReader) {
	n := int(r.ReadVarUint())
	m.ChangeViews = make([]*Payload, n)
	for i := range m.ChangeViews {
		m.ChangeViews[i] = new(Payload)
		m.ChangeViews[i].DecodeBinary(r)
	}
	hasReq := r.ReadBool()
	if hasReq {
		m.PrepareRequest = new(Payload)
		m.PrepareRequest.DecodeBinary(r)
	} else if r.ReadBool() {
		m.PreparationHash = new(util.Uint256)
		r.ReadBytes(m.PreparationHash[:])
	}
	n = int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	m.PrepareResponses = make([]*Payload, n)
	for i := range m.PrepareResponses {
		m.PrepareResponses[i] = new(Payload)
		m.PrepareResponses[i].DecodeBinary(r)
	}
	n = int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	m.Commits = make([]*Payload, n)
	for i := range m.Commits {
		m.Commits[i] = new(Payload)
		m.Commits[i].DecodeBinary(r)
	}
}

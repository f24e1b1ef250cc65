package payload

import "github.com/n3fullnode/neofull/pkg/io"

// Ping is the body of the Ping and Pong commands: a lightweight
// liveness/height probe exchanged periodically with every connected
// peer.
type Ping struct {
	LastBlockIndex uint32
	Timestamp      uint32
	Nonce          uint32
}

// NewPing builds a Ping/Pong payload reporting the sender's current
// tip height.
func NewPing(height uint32, nonce uint32, timestamp uint32) *Ping {
	return &Ping{LastBlockIndex: height, Timestamp: timestamp, Nonce: nonce}
}

// EncodeBinary implements io.Serializable.
func (p *Ping) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.LastBlockIndex)
	w.WriteU32LE(p.Timestamp)
	w.WriteU32LE(p.Nonce)
}

// DecodeBinary implements io.Serializable.
func (p *Ping) DecodeBinary(r *io.BinReader) {
	p.LastBlockIndex = r.ReadU32LE()
	p.Timestamp = r.ReadU32LE()
	p.Nonce = r.ReadU32LE()
}

// Package capability implements the capability entries a Version
// payload advertises: what services a peer offers and on which port.
package capability

import "github.com/n3fullnode/neofull/pkg/io"

// Type identifies one kind of capability a node advertises.
type Type byte

const (
	// TCPServer means the node accepts inbound TCP P2P connections.
	TCPServer Type = 0x01
	// WSServer means the node accepts inbound WebSocket RPC connections.
	WSServer Type = 0x02
	// FullNode means the node persists and serves the full chain
	// rather than just headers, alongside the start height it has
	// reached so far.
	FullNode Type = 0x10
)

// Capability is one advertised capability, interpreted by Type: a
// FullNode entry carries StartHeight, a server entry carries Port.
type Capability struct {
	Type        Type
	Port        uint16
	StartHeight uint32
}

// EncodeBinary implements io.Serializable.
func (c *Capability) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(c.Type))
	switch c.Type {
	case TCPServer, WSServer:
		w.WriteU16LE(c.Port)
	case FullNode:
		w.WriteU32LE(c.StartHeight)
	}
}

// DecodeBinary implements io.Serializable.
func (c *Capability) DecodeBinary(r *io.BinReader) {
	c.Type = Type(r.ReadB())
	switch c.Type {
	case TCPServer, WSServer:
		c.Port = r.ReadU16LE()
	case FullNode:
		c.StartHeight = r.ReadU32LE()
	}
}

// List is an ordered set of capabilities, as carried by a Version
// payload.
type List []Capability

// EncodeBinary implements io.Serializable.
func (l List) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(l)))
	for i := range l {
		l[i].EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (l *List) DecodeBinary(r *io.BinReader) {
	n := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	out := make(List, n)
	for i := range out {
		out[i].DecodeBinary(r)
		if r.Err != nil {
			return
		}
	}
	*l = out
}

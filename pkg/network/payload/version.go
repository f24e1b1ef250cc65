// Package payload implements the P2P message bodies carried inside a
// network.Message frame.
package payload

import (
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/network/capability"
)

// maxUserAgentLen bounds the free-form identification string a peer
// may advertise, keeping a malicious Version payload from being an
// unbounded-allocation vector.
const maxUserAgentLen = 1024

// Version is the first payload exchanged over a new connection:
// protocol identification plus the advertised capability list.
type Version struct {
	Magic       uint32
	Version     uint32
	Timestamp   uint32
	Nonce       uint32
	UserAgent   string
	Capabilities capability.List
}

// NewVersion builds a Version payload advertising a TCP server on
// port, a full node at startHeight, and userAgent as identification.
func NewVersion(magic uint32, nonce uint32, userAgent string, port uint16, startHeight uint32, timestamp uint32) *Version {
	return &Version{
		Magic:     magic,
		Version:   0,
		Timestamp: timestamp,
		Nonce:     nonce,
		UserAgent: userAgent,
		Capabilities: capability.List{
			{Type: capability.TCPServer, Port: port},
			{Type: capability.FullNode, StartHeight: startHeight},
		},
	}
}

// EncodeBinary implements io.Serializable.
func (v *Version) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(v.Magic)
	w.WriteU32LE(v.Version)
	w.WriteU32LE(v.Timestamp)
	w.WriteU32LE(v.Nonce)
	w.WriteString(v.UserAgent)
	v.Capabilities.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (v *Version) DecodeBinary(r *io.BinReader) {
	v.Magic = r.ReadU32LE()
	v.Version = r.ReadU32LE()
	v.Timestamp = r.ReadU32LE()
	v.Nonce = r.ReadU32LE()
	v.UserAgent = r.ReadString(maxUserAgentLen)
	v.Capabilities.DecodeBinary(r)
}

// StartHeight returns the FullNode capability's advertised height, or
// 0 if the peer didn't advertise one.
func (v *Version) StartHeight() uint32 {
	for _, c := range v.Capabilities {
		if c.Type == capability.FullNode {
			return c.StartHeight
		}
	}
	return 0
}

// TCPPort returns the TCPServer capability's advertised port, or 0.
func (v *Version) TCPPort() uint16 {
	for _, c := range v.Capabilities {
		if c.Type == capability.TCPServer {
			return c.Port
		}
	}
	return 0
}

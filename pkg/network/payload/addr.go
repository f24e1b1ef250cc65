package payload

import (
	"net"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/network/capability"
)

// maxAddrCount bounds a single Addr payload's entry count.
const maxAddrCount = 200

// AddressAndTime is one peer address known to the sender, with the
// time it was last seen and the capabilities it advertised.
type AddressAndTime struct {
	Timestamp    uint32
	IP           [16]byte
	Capabilities capability.List
}

// NewAddressAndTime builds an entry from a dial-able TCP address.
func NewAddressAndTime(addr *net.TCPAddr, ts uint32, caps capability.List) *AddressAndTime {
	at := &AddressAndTime{Timestamp: ts, Capabilities: caps}
	ip4 := addr.IP.To16()
	copy(at.IP[:], ip4)
	return at
}

// IPAddr returns the net.IP this entry encodes.
func (p *AddressAndTime) IPAddr() net.IP {
	return net.IP(p.IP[:])
}

// EncodeBinary implements io.Serializable.
func (p *AddressAndTime) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.Timestamp)
	w.WriteBytes(p.IP[:])
	p.Capabilities.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (p *AddressAndTime) DecodeBinary(r *io.BinReader) {
	p.Timestamp = r.ReadU32LE()
	r.ReadBytes(p.IP[:])
	p.Capabilities.DecodeBinary(r)
}

// AddressList is the body of the Addr command: a bounded set of
// AddressAndTime entries exchanged during discovery.
type AddressList struct {
	Addrs []*AddressAndTime
}

// EncodeBinary implements io.Serializable.
func (l *AddressList) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(l.Addrs)))
	for _, a := range l.Addrs {
		a.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (l *AddressList) DecodeBinary(r *io.BinReader) {
	n := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	if n > maxAddrCount {
		r.Err = io.ErrVarIntTooBig
		return
	}
	l.Addrs = make([]*AddressAndTime, n)
	for i := range l.Addrs {
		l.Addrs[i] = new(AddressAndTime)
		l.Addrs[i].DecodeBinary(r)
		if r.Err != nil {
			return
		}
	}
}

package payload

import (
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/io"
)

// maxHeadersCount bounds a single Headers response, matching the
// getheaders request's own cap so a reply can never exceed what was
// askable in one round trip.
const maxHeadersCount = 2000

// Headers is the body of the Headers command: a batch of block
// headers sent in answer to a GetHeaders request.
type Headers struct {
	Hdrs []*block.Header
}

// EncodeBinary implements io.Serializable.
func (h *Headers) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(h.Hdrs)))
	for _, hdr := range h.Hdrs {
		hdr.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (h *Headers) DecodeBinary(r *io.BinReader) {
	n := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	if n > maxHeadersCount {
		r.Err = io.ErrVarIntTooBig
		return
	}
	h.Hdrs = make([]*block.Header, n)
	for i := range h.Hdrs {
		h.Hdrs[i] = &block.Header{}
		h.Hdrs[i].DecodeBinary(r)
		if r.Err != nil {
			return
		}
	}
}

package payload

import (
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// maxGetBlocksHashes is not referenced: a GetBlocks/GetHeaders request
// carries exactly one HashStart.
const maxGetBlocksHashes = 16

// GetBlocks requests block hashes starting after HashStart, up to
// Count (or the server's own page size if Count is -1).
type GetBlocks struct {
	HashStart util.Uint256
	Count     int16
}

// NewGetBlocks builds a GetBlocks request for up to count hashes
// after start.
func NewGetBlocks(start util.Uint256, count int16) *GetBlocks {
	return &GetBlocks{HashStart: start, Count: count}
}

// EncodeBinary implements io.Serializable.
func (p *GetBlocks) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.HashStart.BytesLE())
	w.WriteU16LE(uint16(p.Count))
}

// DecodeBinary implements io.Serializable.
func (p *GetBlocks) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(p.HashStart[:])
	p.Count = int16(r.ReadU16LE())
}

// GetBlockByIndex requests Count consecutive blocks starting at
// IndexStart, by height rather than by hash.
type GetBlockByIndex struct {
	IndexStart uint32
	Count      int16
}

// NewGetBlockByIndex builds a height-addressed block request.
func NewGetBlockByIndex(start uint32, count int16) *GetBlockByIndex {
	return &GetBlockByIndex{IndexStart: start, Count: count}
}

// EncodeBinary implements io.Serializable.
func (p *GetBlockByIndex) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.IndexStart)
	w.WriteU16LE(uint16(p.Count))
}

// DecodeBinary implements io.Serializable.
func (p *GetBlockByIndex) DecodeBinary(r *io.BinReader) {
	p.IndexStart = r.ReadU32LE()
	p.Count = int16(r.ReadU16LE())
}

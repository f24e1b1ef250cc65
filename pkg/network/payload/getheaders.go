package payload

import "github.com/n3fullnode/neofull/pkg/util"

// GetHeaders requests headers starting after HashStart; it shares
// GetBlocks' wire shape.
type GetHeaders = GetBlocks

// NewGetHeaders builds a GetHeaders request for up to count headers
// after start.
func NewGetHeaders(start util.Uint256, count int16) *GetHeaders {
	return &GetHeaders{HashStart: start, Count: count}
}

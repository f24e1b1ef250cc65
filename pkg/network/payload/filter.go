package payload

import (
	"errors"

	"github.com/twmb/murmur3"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// Bloom filter bounds: the filter bitmap may not exceed 36,000 bytes
// and at most 50 hash functions may be requested, the conventional
// SPV-filter limits.
const (
	maxFilterSize      = 36000
	maxFilterFunctions = 50
	// filterSeedStep mixes the function index into each murmur seed so
	// the K hash functions are independent.
	filterSeedStep = 0xFBA4C795
)

// FilterLoad installs a bloom filter on the sending peer's connection:
// subsequent block deliveries to that peer come as MerkleBlocks
// carrying only the transactions the filter matches.
type FilterLoad struct {
	Filter []byte
	K      uint8
	Tweak  uint32
}

// EncodeBinary implements io.Serializable.
func (p *FilterLoad) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(p.Filter)
	w.WriteB(p.K)
	w.WriteU32LE(p.Tweak)
}

// DecodeBinary implements io.Serializable.
func (p *FilterLoad) DecodeBinary(r *io.BinReader) {
	p.Filter = r.ReadVarBytes(maxFilterSize)
	p.K = r.ReadB()
	if r.Err == nil && p.K > maxFilterFunctions {
		r.Err = errors.New("payload: too many filter hash functions")
		return
	}
	p.Tweak = r.ReadU32LE()
}

// FilterAdd inserts one element into the peer's loaded filter.
type FilterAdd struct {
	Data []byte
}

// EncodeBinary implements io.Serializable.
func (p *FilterAdd) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(p.Data)
}

// DecodeBinary implements io.Serializable.
func (p *FilterAdd) DecodeBinary(r *io.BinReader) {
	p.Data = r.ReadVarBytes(520)
}

// BloomFilter is the per-peer matching state FilterLoad installs: a
// bitmap probed by K seeded Murmur3 hashes.
type BloomFilter struct {
	bits  []byte
	k     uint8
	tweak uint32
}

// NewBloomFilter builds a filter from a FilterLoad payload.
func NewBloomFilter(p *FilterLoad) *BloomFilter {
	bits := make([]byte, len(p.Filter))
	copy(bits, p.Filter)
	return &BloomFilter{bits: bits, k: p.K, tweak: p.Tweak}
}

func (f *BloomFilter) seeds() []uint32 {
	s := make([]uint32, f.k)
	for i := range s {
		s[i] = uint32(i)*filterSeedStep + f.tweak
	}
	return s
}

// Add sets the bits for data under every hash function.
func (f *BloomFilter) Add(data []byte) {
	if len(f.bits) == 0 {
		return
	}
	n := uint32(len(f.bits) * 8)
	for _, seed := range f.seeds() {
		bit := murmur3.SeedSum32(seed, data) % n
		f.bits[bit>>3] |= 1 << (bit & 7)
	}
}

// Test reports whether data may have been added (bloom filters have
// false positives, never false negatives).
func (f *BloomFilter) Test(data []byte) bool {
	if len(f.bits) == 0 {
		return false
	}
	n := uint32(len(f.bits) * 8)
	for _, seed := range f.seeds() {
		bit := murmur3.SeedSum32(seed, data) % n
		if f.bits[bit>>3]&(1<<(bit&7)) == 0 {
			return false
		}
	}
	return true
}

// TestHash is Test over a hash's little-endian bytes, the form
// transaction hashes are matched in.
func (f *BloomFilter) TestHash(h util.Uint256) bool {
	return f.Test(h.BytesLE())
}

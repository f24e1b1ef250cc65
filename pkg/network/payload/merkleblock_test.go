package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

func newDumbHeader() *block.Header {
	return &block.Header{
		Version:       0,
		PrevHash:      hash.Sha256([]byte("a")),
		MerkleRoot:    hash.Sha256([]byte("b")),
		Timestamp:     100500,
		Index:         1,
		NextConsensus: hash.Hash160([]byte("a")),
		Script: transaction.Witness{
			VerificationScript: []byte{0x51},
			InvocationScript:   []byte{0x61},
		},
	}
}

func TestMerkleBlockRoundTrip(t *testing.T) {
	expected := &MerkleBlock{
		Header:  newDumbHeader(),
		TxCount: 2,
		Hashes:  []util.Uint256{{1}, {2}},
		Flags:   []byte{0x02},
	}

	w := io.NewBufBinWriter()
	expected.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	got := new(MerkleBlock)
	r := io.NewBinReaderFromBuf(w.Bytes())
	got.DecodeBinary(r)
	require.NoError(t, r.Err)

	assert.Equal(t, expected.Header.Hash(), got.Header.Hash())
	assert.Equal(t, expected.TxCount, got.TxCount)
	assert.Equal(t, expected.Hashes, got.Hashes)
	assert.Equal(t, expected.Flags, got.Flags)
}

func TestMerkleBlockRejectsOversizedFlags(t *testing.T) {
	bad := &MerkleBlock{
		Header:  newDumbHeader(),
		TxCount: 0,
		Hashes:  []util.Uint256{},
		Flags:   []byte{1, 2, 3, 4, 5},
	}
	w := io.NewBufBinWriter()
	bad.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	got := new(MerkleBlock)
	r := io.NewBinReaderFromBuf(w.Bytes())
	got.DecodeBinary(r)
	require.Error(t, r.Err)
}

func TestMerkleBlockRejectsExcessHashes(t *testing.T) {
	bad := &MerkleBlock{
		Header:  newDumbHeader(),
		TxCount: 1,
		Hashes:  []util.Uint256{{1}, {2}},
		Flags:   []byte{0x03},
	}
	w := io.NewBufBinWriter()
	bad.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	got := new(MerkleBlock)
	r := io.NewBinReaderFromBuf(w.Bytes())
	got.DecodeBinary(r)
	require.Error(t, r.Err)
}

func TestBloomFilter(t *testing.T) {
	load := &FilterLoad{Filter: make([]byte, 64), K: 3, Tweak: 0xDEADBEEF}
	f := NewBloomFilter(load)

	h1 := hash.Sha256([]byte("present"))
	h2 := hash.Sha256([]byte("absent"))

	require.False(t, f.TestHash(h1))
	f.Add(h1.BytesLE())
	assert.True(t, f.TestHash(h1))
	assert.False(t, f.TestHash(h2))
}

func TestFilterLoadRoundTrip(t *testing.T) {
	p := &FilterLoad{Filter: []byte{1, 2, 3}, K: 5, Tweak: 42}
	w := io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	got := new(FilterLoad)
	r := io.NewBinReaderFromBuf(w.Bytes())
	got.DecodeBinary(r)
	require.NoError(t, r.Err)
	assert.Equal(t, p, got)
}

func TestFilterLoadRejectsTooManyFunctions(t *testing.T) {
	p := &FilterLoad{Filter: []byte{1}, K: maxFilterFunctions + 1}
	w := io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)

	got := new(FilterLoad)
	r := io.NewBinReaderFromBuf(w.Bytes())
	got.DecodeBinary(r)
	require.Error(t, r.Err)
}

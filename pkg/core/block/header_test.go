package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

func newTestHeader() *Header {
	return &Header{
		Version:       VersionInitial,
		PrevHash:      util.Uint256{1, 2, 3},
		MerkleRoot:    util.Uint256{4, 5, 6},
		Timestamp:     1000,
		Nonce:         42,
		Index:         7,
		PrimaryIndex:  0,
		NextConsensus: util.Uint160{9, 9, 9},
		Script: transaction.Witness{
			InvocationScript:   []byte{0x01},
			VerificationScript: []byte{0x51},
		},
	}
}

func TestHeaderEncodeDecodeRoundtrip(t *testing.T) {
	h := newTestHeader()
	buf := io.NewBufBinWriter()
	h.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	got := &Header{}
	br := io.NewBinReaderFromBuf(buf.Bytes())
	got.DecodeBinary(br)
	require.NoError(t, br.Err)

	assert.Equal(t, h.Version, got.Version)
	assert.Equal(t, h.PrevHash, got.PrevHash)
	assert.Equal(t, h.Index, got.Index)
	assert.Equal(t, h.Hash(), got.Hash())
}

func TestHeaderHashStableAcrossScriptMutation(t *testing.T) {
	h := newTestHeader()
	h1 := h.Hash()
	h.Script.InvocationScript = []byte{0xff}
	assert.Equal(t, h1, h.Hash())
}

func TestHeaderDecodeRejectsWrongWitnessCount(t *testing.T) {
	h := newTestHeader()
	buf := io.NewBufBinWriter()
	h.encodeHashableFields(buf.BinWriter)
	buf.WriteVarUint(2) // wrong: a header carries exactly one witness
	h.Script.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	got := &Header{}
	br := io.NewBinReaderFromBuf(buf.Bytes())
	got.DecodeBinary(br)
	assert.Error(t, br.Err)
}

func TestHeaderDecodeRejectsUnknownVersion(t *testing.T) {
	h := newTestHeader()
	h.Version = 7
	buf := io.NewBufBinWriter()
	h.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	got := &Header{}
	br := io.NewBinReaderFromBuf(buf.Bytes())
	got.DecodeBinary(br)
	assert.Error(t, br.Err)
}

func TestHeaderJSONRoundtrip(t *testing.T) {
	h := newTestHeader()
	data, err := h.MarshalJSON()
	require.NoError(t, err)

	got := &Header{}
	require.NoError(t, got.UnmarshalJSON(data))
	assert.Equal(t, h.Hash(), got.Hash())
	assert.Equal(t, h.NextConsensus, got.NextConsensus)
}

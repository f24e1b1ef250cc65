package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

func roundtripAttribute(t *testing.T, a *Attribute) *Attribute {
	buf := io.NewBufBinWriter()
	a.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	got := &Attribute{}
	br := io.NewBinReaderFromBuf(buf.Bytes())
	got.DecodeBinary(br)
	require.NoError(t, br.Err)
	return got
}

func TestHighPriorityRoundtrip(t *testing.T) {
	a := &Attribute{Value: &HighPriority{}}
	got := roundtripAttribute(t, a)
	assert.Equal(t, HighPriorityT, got.Value.Type())
}

func TestOracleResponseRoundtrip(t *testing.T) {
	a := &Attribute{Value: &OracleResponse{ID: 42, Code: OracleSuccess, Result: []byte("ok")}}
	got := roundtripAttribute(t, a)
	or, ok := got.Value.(*OracleResponse)
	require.True(t, ok)
	assert.EqualValues(t, 42, or.ID)
	assert.Equal(t, []byte("ok"), or.Result)
}

func TestOracleResponseNonSuccessMustBeEmpty(t *testing.T) {
	buf := io.NewBufBinWriter()
	buf.WriteU64LE(1)
	buf.WriteB(byte(OracleTimeout))
	buf.WriteVarBytes([]byte("unexpected"))

	got := &OracleResponse{}
	br := io.NewBinReaderFromBuf(buf.Bytes())
	got.DecodeBinary(br)
	assert.Error(t, br.Err)
}

func TestConflictsRoundtrip(t *testing.T) {
	h := util.Uint256{1, 2, 3}
	a := &Attribute{Value: &Conflicts{Hash: h}}
	got := roundtripAttribute(t, a)
	c, ok := got.Value.(*Conflicts)
	require.True(t, ok)
	assert.Equal(t, h, c.Hash)
}

func TestNotValidBeforeRoundtrip(t *testing.T) {
	a := &Attribute{Value: &NotValidBefore{Height: 100}}
	got := roundtripAttribute(t, a)
	nvb, ok := got.Value.(*NotValidBefore)
	require.True(t, ok)
	assert.EqualValues(t, 100, nvb.Height)
}

func TestNotaryAssistedRoundtrip(t *testing.T) {
	a := &Attribute{Value: &NotaryAssisted{NKeys: 3}}
	got := roundtripAttribute(t, a)
	na, ok := got.Value.(*NotaryAssisted)
	require.True(t, ok)
	assert.EqualValues(t, 3, na.NKeys)
}

func TestAttributeDecodeUnknownType(t *testing.T) {
	br := io.NewBinReaderFromBuf([]byte{0x77})
	got := &Attribute{}
	got.DecodeBinary(br)
	assert.Error(t, br.Err)
}

func TestAttributeTypeAllowMultiple(t *testing.T) {
	assert.True(t, ConflictsT.AllowMultiple())
	assert.False(t, HighPriorityT.AllowMultiple())
}

package nef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
)

func newTestFile() *File {
	f := &File{
		Header: Header{
			Magic:    Magic,
			Compiler: "neofull-test-compiler",
		},
		Tokens: []MethodToken{{
			Hash:       util.Uint160{1, 2, 3},
			Method:     "transfer",
			ParamCount: 3,
			HasReturn:  true,
			CallFlag:   callflag.WriteStates,
		}},
		Script: []byte{0x51, 0x40},
	}
	f.Checksum = f.CalculateChecksum()
	return f
}

func TestNEFEncodeDecodeRoundtrip(t *testing.T) {
	f := newTestFile()
	data, err := f.Bytes()
	require.NoError(t, err)

	got, err := FileFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, f.Compiler, got.Compiler)
	assert.Equal(t, f.Script, got.Script)
	require.Len(t, got.Tokens, 1)
	assert.Equal(t, f.Tokens[0].Method, got.Tokens[0].Method)
}

func TestNEFDecodeRejectsBadMagic(t *testing.T) {
	f := newTestFile()
	f.Header.Magic = 0xdeadbeef
	f.Checksum = f.CalculateChecksum()
	data, err := f.Bytes()
	require.NoError(t, err)
	_, err = FileFromBytes(data)
	assert.ErrorIs(t, err, errInvalidMagic)
}

func TestNEFDecodeRejectsBadChecksum(t *testing.T) {
	f := newTestFile()
	data, err := f.Bytes()
	require.NoError(t, err)
	f.Checksum++
	data2, err := f.Bytes()
	require.NoError(t, err)
	assert.NotEqual(t, data, data2)
	_, err = FileFromBytes(data2)
	assert.ErrorIs(t, err, errInvalidChecksum)
}

func TestNEFDecodeRejectsEmptyScript(t *testing.T) {
	f := newTestFile()
	f.Script = nil
	f.Checksum = f.CalculateChecksum()
	data, err := f.Bytes()
	require.NoError(t, err)
	_, err = FileFromBytes(data)
	assert.ErrorIs(t, err, errInvalidScriptLen)
}

func TestNEFJSONRoundtrip(t *testing.T) {
	f := newTestFile()
	data, err := f.MarshalJSON()
	require.NoError(t, err)

	got := &File{}
	require.NoError(t, got.UnmarshalJSON(data))
	assert.Equal(t, f.Compiler, got.Compiler)
	assert.Equal(t, f.Script, got.Script)
}

func TestMethodTokenRejectsReservedName(t *testing.T) {
	tok := &MethodToken{Hash: util.Uint160{9}, Method: "_reserved", CallFlag: callflag.All}
	f := newTestFile()
	f.Tokens = []MethodToken{*tok}
	f.Checksum = f.CalculateChecksum()
	data, err := f.Bytes()
	require.NoError(t, err)
	_, err = FileFromBytes(data)
	assert.ErrorIs(t, err, errInvalidMethodName)
}

func TestMethodTokenRejectsInvalidCallFlag(t *testing.T) {
	tok := &MethodToken{Hash: util.Uint160{9}, Method: "ok", CallFlag: ^callflag.All}
	f := newTestFile()
	f.Tokens = []MethodToken{*tok}
	f.Checksum = f.CalculateChecksum()
	data, err := f.Bytes()
	require.NoError(t, err)
	_, err = FileFromBytes(data)
	assert.ErrorIs(t, err, errInvalidCallFlag)
}

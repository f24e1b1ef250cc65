package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/io"
)

func TestWitnessEncodeDecode(t *testing.T) {
	w := &Witness{
		InvocationScript:   []byte{0x01, 0x02},
		VerificationScript: []byte{0x51},
	}
	buf := io.NewBufBinWriter()
	w.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	got := &Witness{}
	br := io.NewBinReaderFromBuf(buf.Bytes())
	got.DecodeBinary(br)
	require.NoError(t, br.Err)
	assert.Equal(t, w.InvocationScript, got.InvocationScript)
	assert.Equal(t, w.VerificationScript, got.VerificationScript)
}

func TestWitnessScriptHash(t *testing.T) {
	w := &Witness{VerificationScript: []byte{0x51}}
	h := w.ScriptHash()
	assert.NotEqual(t, h.String(), "")
}

package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

func TestExtensibleRoundTrip(t *testing.T) {
	e := &Extensible{
		Category:        ConsensusCategory,
		ValidBlockStart: 10,
		ValidBlockEnd:   20,
		Sender:          util.Uint160{1, 2, 3},
		Data:            []byte{0xDE, 0xAD},
		Witness: transaction.Witness{
			InvocationScript:   []byte{1},
			VerificationScript: []byte{2},
		},
	}

	w := io.NewBufBinWriter()
	e.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	got := NewExtensible()
	r := io.NewBinReaderFromBuf(w.Bytes())
	got.DecodeBinary(r)
	require.NoError(t, r.Err)

	assert.Equal(t, e.Category, got.Category)
	assert.Equal(t, e.ValidBlockStart, got.ValidBlockStart)
	assert.Equal(t, e.ValidBlockEnd, got.ValidBlockEnd)
	assert.Equal(t, e.Sender, got.Sender)
	assert.Equal(t, e.Data, got.Data)
	assert.Equal(t, e.Witness, got.Witness)
	assert.Equal(t, e.Hash(), got.Hash())
}

func TestExtensibleHashExcludesWitness(t *testing.T) {
	a := &Extensible{Category: ConsensusCategory, Data: []byte{1}}
	b := &Extensible{Category: ConsensusCategory, Data: []byte{1},
		Witness: transaction.Witness{InvocationScript: []byte{9, 9}}}
	assert.Equal(t, a.Hash(), b.Hash())

	c := &Extensible{Category: ConsensusCategory, Data: []byte{2}}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestExtensibleValidAt(t *testing.T) {
	e := &Extensible{ValidBlockStart: 5, ValidBlockEnd: 10}
	assert.False(t, e.ValidAt(4))
	assert.True(t, e.ValidAt(5))
	assert.True(t, e.ValidAt(10))
	assert.False(t, e.ValidAt(11))
}

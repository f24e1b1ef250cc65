package mpt

import (
	"testing"

	"github.com/n3fullnode/neofull/pkg/store"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestTrie_PutGetFlushReopen(t *testing.T) {
	st := store.NewMemoryStore()
	tr := NewTrie(st, util.Uint256{})

	require.NoError(t, tr.Put([]byte("alpha"), []byte("1")))
	require.NoError(t, tr.Put([]byte("alps"), []byte("2")))
	require.NoError(t, tr.Put([]byte("beta"), []byte("3")))

	v, err := tr.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	v, err = tr.Get([]byte("alps"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)

	root := tr.StateRoot()
	require.NotEqual(t, util.Uint256{}, root)
	require.NoError(t, tr.Flush())

	reopened := NewTrie(st, root)
	v, err = reopened.Get([]byte("beta"))
	require.NoError(t, err)
	require.Equal(t, []byte("3"), v)
}

func TestTrie_DeleteRemovesValue(t *testing.T) {
	st := store.NewMemoryStore()
	tr := NewTrie(st, util.Uint256{})

	require.NoError(t, tr.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, tr.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, tr.Delete([]byte("k1")))

	_, err := tr.Get([]byte("k1"))
	require.ErrorIs(t, err, ErrNotFound)

	v, err := tr.Get([]byte("k2"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

func TestTrie_EmptyRootIsZero(t *testing.T) {
	st := store.NewMemoryStore()
	tr := NewTrie(st, util.Uint256{})
	require.Equal(t, util.Uint256{}, tr.StateRoot())
}

func TestTrie_ValueTooBigRejected(t *testing.T) {
	st := store.NewMemoryStore()
	tr := NewTrie(st, util.Uint256{})
	require.ErrorIs(t, tr.Put([]byte("k"), make([]byte, MaxValueLength+1)), ErrValueTooBig)
}

func TestTrie_DifferentDataDifferentRoot(t *testing.T) {
	st := store.NewMemoryStore()
	a := NewTrie(st, util.Uint256{})
	require.NoError(t, a.Put([]byte("x"), []byte("1")))

	b := NewTrie(st, util.Uint256{})
	require.NoError(t, b.Put([]byte("x"), []byte("2")))

	require.NotEqual(t, a.StateRoot(), b.StateRoot())
}

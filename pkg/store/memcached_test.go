package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCachedPutGetDelete(t *testing.T) {
	ps := NewMemoryStore()
	s := NewMemCachedStore(ps)

	require.NoError(t, s.Put([]byte("foo"), []byte("bar")))
	v, err := s.Get([]byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bar"), v)

	// Not yet visible in the parent.
	_, err = ps.Get([]byte("foo"))
	assert.Equal(t, ErrKeyNotFound, err)

	require.NoError(t, s.Delete([]byte("foo")))
	_, err = s.Get([]byte("foo"))
	assert.Equal(t, ErrKeyNotFound, err)
}

func TestMemCachedPersist(t *testing.T) {
	ps := NewMemoryStore()
	s := NewMemCachedStore(ps)

	n, err := s.Persist()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.Put([]byte("key"), []byte("value")))
	n, err = s.Persist()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := ps.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	// The overlay is now empty: a fresh read falls through to the parent.
	v, err = s.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)
}

func TestMemCachedNestedSnapshotCommitFoldsIntoParent(t *testing.T) {
	root := NewMemoryStore()
	parent := NewMemCachedStore(root)
	require.NoError(t, parent.Put([]byte("a"), []byte("1")))

	child := NewMemCachedStore(parent)
	require.NoError(t, child.Put([]byte("b"), []byte("2")))

	v, err := child.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	_, err = child.Persist()
	require.NoError(t, err)

	v, err = parent.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	// Dropping the parent without persisting leaves root untouched.
	_, err = root.Get([]byte("a"))
	assert.Equal(t, ErrKeyNotFound, err)
}

func TestMemCachedGetBatch(t *testing.T) {
	ps := NewMemoryStore()
	require.NoError(t, ps.Put([]byte("existing"), []byte("old")))
	s := NewMemCachedStore(ps)

	require.NoError(t, s.Put([]byte("existing"), []byte("new")))
	require.NoError(t, s.Put([]byte("fresh"), []byte("v")))

	b := s.GetBatch()
	require.Len(t, b.Put, 2)
	for _, kv := range b.Put {
		if string(kv.Key) == "existing" {
			assert.True(t, kv.Exists)
		} else {
			assert.False(t, kv.Exists)
		}
	}
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetNonExistent(t *testing.T) {
	for _, s := range allBackends(t) {
		_, err := s.Get([]byte("sparse"))
		assert.Equal(t, ErrKeyNotFound, err)
		require.NoError(t, s.Close())
	}
}

func TestStorePutGetDelete(t *testing.T) {
	for _, s := range allBackends(t) {
		require.NoError(t, s.Put([]byte("foo"), []byte("bar")))
		v, err := s.Get([]byte("foo"))
		require.NoError(t, err)
		assert.Equal(t, []byte("bar"), v)

		require.NoError(t, s.Delete([]byte("foo")))
		_, err = s.Get([]byte("foo"))
		assert.Equal(t, ErrKeyNotFound, err)
		require.NoError(t, s.Close())
	}
}

func TestStoreSeekPrefixOrder(t *testing.T) {
	for _, s := range allBackends(t) {
		for _, kv := range []KeyValue{
			{Key: []byte("a1"), Value: []byte("1")},
			{Key: []byte("a3"), Value: []byte("3")},
			{Key: []byte("a2"), Value: []byte("2")},
			{Key: []byte("b1"), Value: []byte("x")},
		} {
			require.NoError(t, s.Put(kv.Key, kv.Value))
		}
		var got []string
		s.Seek(SeekRange{Prefix: []byte("a")}, func(k, v []byte) bool {
			got = append(got, string(k))
			return true
		})
		assert.Equal(t, []string{"a1", "a2", "a3"}, got)
		require.NoError(t, s.Close())
	}
}

func TestStoreSeekBackwards(t *testing.T) {
	for _, s := range allBackends(t) {
		for _, kv := range []KeyValue{
			{Key: []byte("a1"), Value: []byte("1")},
			{Key: []byte("a2"), Value: []byte("2")},
			{Key: []byte("a3"), Value: []byte("3")},
		} {
			require.NoError(t, s.Put(kv.Key, kv.Value))
		}
		var got []string
		s.Seek(SeekRange{Prefix: []byte("a"), Backwards: true}, func(k, v []byte) bool {
			got = append(got, string(k))
			return true
		})
		assert.Equal(t, []string{"a3", "a2", "a1"}, got)
		require.NoError(t, s.Close())
	}
}

func allBackends(t *testing.T) []Store {
	tmp := t.TempDir()
	bolt, err := NewBoltDBStore(BoltDBOptions{FilePath: filepath.Join(tmp, "bolt.db")})
	require.NoError(t, err)
	level, err := NewLevelDBStore(LevelDBOptions{DataDirectoryPath: filepath.Join(tmp, "level")})
	require.NoError(t, err)
	return []Store{NewMemoryStore(), bolt, level}
}

func TestNewStoreByName(t *testing.T) {
	tmp := t.TempDir()
	cfg := DBConfiguration{
		BoltDBOptions:  BoltDBOptions{FilePath: filepath.Join(tmp, "bolt.db")},
		LevelDBOptions: LevelDBOptions{DataDirectoryPath: filepath.Join(tmp, "level")},
	}
	for _, name := range []string{InMemoryDB, BoltDB, LevelDB} {
		cfg.Type = name
		s, err := NewStore(cfg)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBOptions configures a LevelDBStore.
type LevelDBOptions struct {
	DataDirectoryPath string
}

// LevelDBStore is the alternate Store backend (network config
// selectable, per the DOMAIN STACK wiring table).
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if absent) a goleveldb-backed store.
func NewLevelDBStore(opts LevelDBOptions) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(opts.DataDirectoryPath, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Get implements Store.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	return v, err
}

// Put implements Store.
func (s *LevelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Delete implements Store.
func (s *LevelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// PutChangeSet implements Store via a single WriteBatch, goleveldb's
// atomic-commit primitive.
func (s *LevelDBStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	b := new(leveldb.Batch)
	for k, v := range puts {
		b.Put([]byte(k), v)
	}
	for k := range dels {
		b.Delete([]byte(k))
	}
	return s.db.Write(b, nil)
}

// Seek implements Store.
func (s *LevelDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	lower := append(append([]byte{}, rng.Prefix...), rng.Start...)
	slice := util.BytesPrefix(rng.Prefix)
	if !rng.Backwards {
		slice.Start = lower
	} else if len(rng.Start) > 0 {
		slice.Limit = append(lower, 0)
	}
	iter := s.db.NewIterator(slice, nil)
	defer iter.Release()
	walk(iter, rng.Backwards, f)
}

func walk(iter iterator.Iterator, backwards bool, f func(k, v []byte) bool) {
	if backwards {
		ok := iter.Last()
		for ok {
			if !f(iter.Key(), iter.Value()) {
				return
			}
			ok = iter.Prev()
		}
		return
	}
	ok := iter.First()
	for ok {
		if !f(iter.Key(), iter.Value()) {
			return
		}
		ok = iter.Next()
	}
}

// SeekGC implements Store.
func (s *LevelDBStore) SeekGC(rng SeekRange, f func(k, v []byte) bool) error {
	slice := util.BytesPrefix(rng.Prefix)
	slice.Start = append(append([]byte{}, rng.Prefix...), rng.Start...)
	iter := s.db.NewIterator(slice, nil)
	var toDelete [][]byte
	for iter.Next() {
		if !f(iter.Key(), iter.Value()) {
			toDelete = append(toDelete, append([]byte{}, iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	b := new(leveldb.Batch)
	for _, k := range toDelete {
		b.Delete(k)
	}
	return s.db.Write(b, nil)
}

// Close implements Store.
func (s *LevelDBStore) Close() error { return s.db.Close() }

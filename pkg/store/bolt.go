package store

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

// boltBucket is the single top-level bucket all keys live under; Neo's
// key space is already partitioned by a one-byte prefix, so a single
// bucket with lexicographic bbolt iteration is sufficient.
var boltBucket = []byte("neofull")

// BoltDBOptions configures a BoltDBStore.
type BoltDBOptions struct {
	FilePath string
}

// BoltDBStore is the default embedded Store backend.
type BoltDBStore struct {
	db *bolt.DB
}

// NewBoltDBStore opens (creating if absent) a bbolt-backed store at
// opts.FilePath.
func NewBoltDBStore(opts BoltDBOptions) (*BoltDBStore, error) {
	db, err := bolt.Open(opts.FilePath, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltDBStore{db: db}, nil
}

// Get implements Store.
func (s *BoltDBStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	return out, err
}

// Put implements Store.
func (s *BoltDBStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

// Delete implements Store.
func (s *BoltDBStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

// PutChangeSet implements Store, applying the whole diff inside one
// bbolt transaction so a crash mid-batch never leaves a torn write.
func (s *BoltDBStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for k, v := range puts {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		for k := range dels {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Seek implements Store, iterating bbolt's natively-sorted keyspace.
func (s *BoltDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	_ = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		lower := append(append([]byte{}, rng.Prefix...), rng.Start...)
		if rng.Backwards {
			seekBackwards(c, rng.Prefix, lower, f)
			return nil
		}
		for k, v := c.Seek(lower); k != nil && bytes.HasPrefix(k, rng.Prefix); k, v = c.Next() {
			if !f(k, v) {
				break
			}
		}
		return nil
	})
}

func seekBackwards(c *bolt.Cursor, prefix, upper []byte, f func(k, v []byte) bool) {
	var k, v []byte
	if len(upper) > len(prefix) {
		k, v = c.Seek(upper)
		if k == nil || bytes.Compare(k, upper) > 0 {
			k, v = c.Prev()
		}
	} else {
		// No explicit start: position past the last key with this
		// prefix, then step back.
		k, v = c.Seek(nextPrefix(prefix))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
	}
	for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
		if !f(k, v) {
			return
		}
	}
}

func nextPrefix(prefix []byte) []byte {
	p := append([]byte{}, prefix...)
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] < 0xff {
			p[i]++
			return p[:i+1]
		}
	}
	return nil
}

// SeekGC implements Store: keys for which f returns false are deleted
// within the same transaction as the scan.
func (s *BoltDBStore) SeekGC(rng SeekRange, f func(k, v []byte) bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		c := b.Cursor()
		lower := append(append([]byte{}, rng.Prefix...), rng.Start...)
		var toDelete [][]byte
		for k, v := c.Seek(lower); k != nil && bytes.HasPrefix(k, rng.Prefix); k, v = c.Next() {
			if !f(k, v) {
				toDelete = append(toDelete, append([]byte{}, k...))
			}
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *BoltDBStore) Close() error { return s.db.Close() }

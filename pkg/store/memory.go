package store

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a process-memory-only Store, used for tests, as
// NewStore's "inmemory" backend, and as the overlay inside every
// MemCachedStore.
type MemoryStore struct {
	mu  sync.RWMutex
	db  map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.db[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Put implements Store.
func (s *MemoryStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.db[string(key)] = cp
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.db, string(key))
	return nil
}

// PutChangeSet implements Store, applying puts and deletes atomically
// with respect to any concurrent reader.
func (s *MemoryStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range puts {
		cp := make([]byte, len(v))
		copy(cp, v)
		s.db[k] = cp
	}
	for k := range dels {
		delete(s.db, k)
	}
	return nil
}

// Seek implements Store.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mu.RLock()
	keys := s.matchingKeys(rng)
	s.mu.RUnlock()
	for _, k := range keys {
		s.mu.RLock()
		v, ok := s.db[k]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if !f([]byte(k), v) {
			return
		}
	}
}

// SeekGC implements Store: any key for which f returns false is
// deleted once the scan completes.
func (s *MemoryStore) SeekGC(rng SeekRange, f func(k, v []byte) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.matchingKeys(rng)
	for _, k := range keys {
		v, ok := s.db[k]
		if !ok {
			continue
		}
		if !f([]byte(k), v) {
			delete(s.db, k)
		}
	}
	return nil
}

func (s *MemoryStore) matchingKeys(rng SeekRange) []string {
	lower := string(rng.Prefix) + string(rng.Start)
	var keys []string
	for k := range s.db {
		if !strings.HasPrefix(k, string(rng.Prefix)) {
			continue
		}
		if rng.Backwards {
			if k <= lower || len(rng.Start) == 0 {
				keys = append(keys, k)
			}
		} else if k >= lower {
			keys = append(keys, k)
		}
	}
	if rng.Backwards {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	} else {
		sort.Strings(keys)
	}
	return keys
}

// Close implements Store; MemoryStore holds no external resources.
func (s *MemoryStore) Close() error { return nil }

// memBatch is the Batch implementation behind MemoryStore.Batch and
// PutBatch. The disk backends have no Batch method, and MemCachedStore
// builds its own diff directly.
type memBatch struct {
	puts map[string][]byte
	dels map[string]bool
}

func newMemBatch() *memBatch {
	return &memBatch{puts: make(map[string][]byte), dels: make(map[string]bool)}
}

func (b *memBatch) Put(key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.puts[string(key)] = cp
	delete(b.dels, string(key))
}

func (b *memBatch) Delete(key []byte) {
	b.dels[string(key)] = true
	delete(b.puts, string(key))
}

func (b *memBatch) Len() int { return len(b.puts) + len(b.dels) }

// Batch returns a fresh, empty batch.
func (s *MemoryStore) Batch() Batch { return newMemBatch() }

// PutBatch commits a batch atomically.
func (s *MemoryStore) PutBatch(b Batch) error {
	mb, ok := b.(*memBatch)
	if !ok {
		return nil
	}
	return s.PutChangeSet(mb.puts, mb.dels)
}

package store

import (
	"sort"
	"strings"
)

// MemCachedStore wraps a parent Store with an in-memory overlay: reads
// fall through to the parent when not present locally, writes
// accumulate in the overlay, and Persist/PersistSync atomically folds
// the overlay into the parent and clears it. This is the protocol's
// "Snapshot": nestable (a MemCachedStore's parent may itself be a
// MemCachedStore), and a dropped instance (simply discarded without
// calling Persist) leaves the parent untouched.
type MemCachedStore struct {
	MemoryStore

	private bool
	ps      Store
}

// NewMemCachedStore creates a snapshot over ps. The overlay starts
// empty; every write lands here until Persist folds it into ps.
func NewMemCachedStore(ps Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: *NewMemoryStore(),
		ps:          ps,
	}
}

// NewPrivateMemCachedStore is like NewMemCachedStore but sets the
// private flag. Nothing reads the flag, and nothing in the node calls
// this constructor.
func NewPrivateMemCachedStore(ps Store) *MemCachedStore {
	s := NewMemCachedStore(ps)
	s.private = true
	return s
}

// Get checks the overlay first, falling through to the parent.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.MemoryStore.mu.RLock()
	v, ok := s.MemoryStore.db[string(key)]
	s.MemoryStore.mu.RUnlock()
	if ok {
		if v == nil {
			return nil, ErrKeyNotFound
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		return cp, nil
	}
	return s.ps.Get(key)
}

// Put writes to the overlay only.
func (s *MemCachedStore) Put(key, value []byte) error {
	return s.MemoryStore.Put(key, value)
}

// Delete marks key deleted in the overlay with a nil tombstone so a
// subsequent Get does not fall through to the (still-present) parent
// value.
func (s *MemCachedStore) Delete(key []byte) error {
	s.MemoryStore.mu.Lock()
	s.MemoryStore.db[string(key)] = nil
	s.MemoryStore.mu.Unlock()
	return nil
}

// Seek merges the overlay and the parent's matching keys, the overlay
// taking precedence (including tombstones, which suppress a parent
// entry entirely).
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.MemoryStore.mu.RLock()
	local := make(map[string][]byte, len(s.MemoryStore.db))
	for k, v := range s.MemoryStore.db {
		local[k] = v
	}
	s.MemoryStore.mu.RUnlock()

	merged := make(map[string][]byte)
	s.ps.Seek(SeekRange{Prefix: rng.Prefix}, func(k, v []byte) bool {
		merged[string(k)] = v
		return true
	})
	for k, v := range local {
		if !strings.HasPrefix(k, string(rng.Prefix)) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	lower := string(rng.Prefix) + string(rng.Start)
	keys := make([]string, 0, len(merged))
	for k := range merged {
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
	for _, k := range keys {
		if !f([]byte(k), merged[k]) {
			return
		}
	}
}

// SeekGC is not meaningful on a transient overlay; it delegates to the
// parent directly since the overlay never holds the kind of long-lived
// TTL data SeekGC sweeps.
func (s *MemCachedStore) SeekGC(rng SeekRange, f func(k, v []byte) bool) error {
	return s.ps.SeekGC(rng, f)
}

// PutChangeSet applies a batch straight into the overlay.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	s.MemoryStore.mu.Lock()
	for k, v := range puts {
		cp := make([]byte, len(v))
		copy(cp, v)
		s.MemoryStore.db[k] = cp
	}
	for k := range dels {
		s.MemoryStore.db[k] = nil
	}
	s.MemoryStore.mu.Unlock()
	return nil
}

// GetBatch renders the overlay as an ordered batch diff, distinguishing
// newly-added keys from ones that already existed in the parent
// (Exists=true), used by the ledger to build its per-block state diff.
func (s *MemCachedStore) GetBatch() *MemBatch {
	s.MemoryStore.mu.RLock()
	defer s.MemoryStore.mu.RUnlock()
	b := &MemBatch{}
	keys := make([]string, 0, len(s.MemoryStore.db))
	for k := range s.MemoryStore.db {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := s.MemoryStore.db[k]
		_, existed := s.ps.Get([]byte(k))
		exists := existed == nil
		if v == nil {
			b.Deleted = append(b.Deleted, KeyValueExists{KeyValue: KeyValue{Key: []byte(k)}, Exists: exists})
		} else {
			b.Put = append(b.Put, KeyValueExists{KeyValue: KeyValue{Key: []byte(k), Value: v}, Exists: exists})
		}
	}
	return b
}

// MemBatch is the ordered put/delete diff of a MemCachedStore overlay.
type MemBatch struct {
	Put     []KeyValueExists
	Deleted []KeyValueExists
}

// Persist folds the overlay into the parent store and clears it,
// returning the number of keys written.
func (s *MemCachedStore) Persist() (int, error) {
	return s.persist(false)
}

// PersistSync does exactly what Persist does; it adds no sync of its
// own, so whether the write is durable on return depends on the parent
// store's PutChangeSet. The ledger calls it at the block-commit
// boundary.
func (s *MemCachedStore) PersistSync() (int, error) {
	return s.persist(true)
}

func (s *MemCachedStore) persist(sync bool) (int, error) {
	s.MemoryStore.mu.Lock()
	puts := make(map[string][]byte)
	dels := make(map[string]bool)
	n := 0
	for k, v := range s.MemoryStore.db {
		if v == nil {
			dels[k] = true
		} else {
			puts[k] = v
		}
		n++
	}
	s.MemoryStore.db = make(map[string][]byte)
	s.MemoryStore.mu.Unlock()

	if n == 0 {
		return 0, nil
	}
	if err := s.ps.PutChangeSet(puts, dels); err != nil {
		// Restore the overlay so a failed commit is retryable instead
		// of silently dropping the staged writes.
		s.MemoryStore.mu.Lock()
		for k, v := range puts {
			s.MemoryStore.db[k] = v
		}
		for k := range dels {
			s.MemoryStore.db[k] = nil
		}
		s.MemoryStore.mu.Unlock()
		return 0, err
	}
	_ = sync // durability is the parent backend's responsibility (fsync on commit)
	return n, nil
}

// Close releases the overlay; it does not close the parent, which may
// be shared by other live snapshots.
func (s *MemCachedStore) Close() error { return nil }

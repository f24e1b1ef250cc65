// Package dao scopes the flat key/value store to the per-contract
// storage namespaces native contracts and deployed contracts read and
// write, keeping the global key layout (a contract id prefix followed
// by the contract's own key) in exactly one place.
package dao

import (
	"encoding/binary"
	"math/big"

	"github.com/n3fullnode/neofull/pkg/encoding/bigint"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/store"
)

// Simple wraps a store.Store with contract-id-scoped storage
// operations. It carries no caching of its own: callers wrap a
// store.MemCachedStore when they need a rollback-able snapshot, dao
// only knows how to address into whatever Store it's given.
type Simple struct {
	Store store.Store
}

// NewSimple constructs a Simple over s.
func NewSimple(s store.Store) *Simple {
	return &Simple{Store: s}
}

// storageKey builds the global key for contract id's key: a 4-byte
// little-endian id prefix followed by the contract-local key, matching
// how contract storage items are addressed on the wire (GetStorage
// results key off exactly this pair).
func storageKey(id int32, key []byte) []byte {
	b := make([]byte, 4+len(key))
	binary.LittleEndian.PutUint32(b, uint32(id))
	copy(b[4:], key)
	return b
}

// GetStorageItem fetches the raw value stored at (id, key).
func (d *Simple) GetStorageItem(id int32, key []byte) ([]byte, error) {
	return d.Store.Get(storageKey(id, key))
}

// PutStorageItem stores value at (id, key).
func (d *Simple) PutStorageItem(id int32, key, value []byte) error {
	return d.Store.Put(storageKey(id, key), value)
}

// DeleteStorageItem removes (id, key).
func (d *Simple) DeleteStorageItem(id int32, key []byte) error {
	return d.Store.Delete(storageKey(id, key))
}

// Seek scans every key stored under id with the given contract-local
// prefix, invoking f with the contract-local key (the id prefix is
// stripped before the callback sees it).
func (d *Simple) Seek(id int32, prefix []byte, f func(k, v []byte) bool) {
	full := storageKey(id, prefix)
	d.Store.Seek(store.SeekRange{Prefix: full}, func(k, v []byte) bool {
		return f(k[4:], v)
	})
}

// GetAndDecode fetches (id, key) and decodes it into item.
func (d *Simple) GetAndDecode(id int32, key []byte, item io.Serializable) error {
	b, err := d.GetStorageItem(id, key)
	if err != nil {
		return err
	}
	r := io.NewBinReaderFromBuf(b)
	item.DecodeBinary(r)
	return r.Err
}

// PutEncoded encodes item and stores it at (id, key).
func (d *Simple) PutEncoded(id int32, key []byte, item io.Serializable) error {
	w := io.NewBufBinWriter()
	item.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return w.Err
	}
	return d.PutStorageItem(id, key, w.Bytes())
}

// GetBigInt reads (id, key) as a two's-complement VM integer,
// returning zero if the key is absent — the convention every NEP-17
// balance/supply lookup relies on rather than distinguishing "never
// touched" from "explicitly zero".
func (d *Simple) GetBigInt(id int32, key []byte) (*big.Int, error) {
	b, err := d.GetStorageItem(id, key)
	if err == store.ErrKeyNotFound {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return bigint.FromBytes(b), nil
}

// PutBigInt stores n at (id, key), deleting the entry instead of
// writing a zero so untouched and zeroed balances look identical on
// disk.
func (d *Simple) PutBigInt(id int32, key []byte, n *big.Int) error {
	if n.Sign() == 0 {
		return d.DeleteStorageItem(id, key)
	}
	b, err := bigint.ToBytes(n)
	if err != nil {
		return err
	}
	return d.PutStorageItem(id, key, b)
}

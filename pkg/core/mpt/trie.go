package mpt

import (
	"bytes"
	"errors"

	nio "github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/store"
	"github.com/n3fullnode/neofull/pkg/util"
)

// Errors returned by trie operations and node codecs.
var (
	ErrValueTooBig     = errors.New("mpt: leaf value exceeds MaxValueLength")
	ErrPathTooBig      = errors.New("mpt: extension path exceeds maxPathLength")
	ErrUnknownNodeType = errors.New("mpt: unknown node type byte")
	ErrNotFound        = errors.New("mpt: key not found")
)

// NodeKeyPrefix namespaces trie node storage within the backing store,
// keeping it out of every other subsystem's key space the way
// core.chainMetaID does for chain metadata. Exported so callers
// computing a state-diff over the same backing store (the ledger's
// per-block state commitment) can exclude the trie's own node entries
// from the set of (contract_id, key) pairs it commits.
var NodeKeyPrefix = []byte{'m', 'p', 't', 0}

func nodeKey(h util.Uint256) []byte {
	return append(append([]byte{}, NodeKeyPrefix...), h.BytesLE()...)
}

// toNibbles expands a byte slice into its constituent 4-bit nibbles,
// the alphabet a Patricia trie branches over (16-way, one nibble per
// path step).
func toNibbles(key []byte) []byte {
	out := make([]byte, len(key)*2)
	for i, b := range key {
		out[i*2] = b >> 4
		out[i*2+1] = b & 0x0f
	}
	return out
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Trie is an in-memory-overlaid Merkle-Patricia trie over
// (contract_id, key) -> value pairs, committed to the backing
// store.Store as content-addressed nodes keyed by hash. A fresh Trie
// is opened at a known root (or the zero root for an empty trie);
// Put/Delete mutate the in-memory node graph, and StateRoot recomputes and
// returns the new commitment without touching the store until Flush.
type Trie struct {
	store store.Store
	root  Node
	dirty map[util.Uint256]Node
}

// NewTrie opens a trie rooted at root (the zero Uint256 for an empty
// trie), reading any node not yet materialized in memory from st.
func NewTrie(st store.Store, root util.Uint256) *Trie {
	t := &Trie{store: st, dirty: make(map[util.Uint256]Node)}
	if root.Equals(util.Uint256{}) {
		t.root = EmptyNode{}
	} else {
		t.root = NewHashNode(root)
	}
	return t
}

// StateRoot returns the trie's current root hash without persisting
// anything; an empty trie's root is the zero hash.
func (t *Trie) StateRoot() util.Uint256 {
	if isEmpty(t.root) {
		return util.Uint256{}
	}
	return t.root.Hash()
}

func (t *Trie) resolve(n Node) (Node, error) {
	hn, ok := n.(*HashNode)
	if !ok {
		return n, nil
	}
	if cached, ok := t.dirty[hn.h]; ok {
		return cached, nil
	}
	raw, err := t.store.Get(nodeKey(hn.h))
	if err != nil {
		return nil, ErrNotFound
	}
	obj := new(NodeObject)
	r := nio.NewBinReaderFromBuf(raw)
	obj.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return obj.Node, nil
}

// Get returns the value stored at key, or ErrNotFound.
func (t *Trie) Get(key []byte) ([]byte, error) {
	path := toNibbles(key)
	n, err := t.resolve(t.root)
	if err != nil {
		return nil, err
	}
	return t.getAt(n, path)
}

func (t *Trie) getAt(n Node, path []byte) ([]byte, error) {
	switch v := n.(type) {
	case EmptyNode:
		return nil, ErrNotFound
	case *LeafNode:
		if len(path) != 0 {
			return nil, ErrNotFound
		}
		return v.value, nil
	case *ExtensionNode:
		if len(path) < len(v.path) || !bytes.Equal(path[:len(v.path)], v.path) {
			return nil, ErrNotFound
		}
		child, err := t.resolve(v.next)
		if err != nil {
			return nil, err
		}
		return t.getAt(child, path[len(v.path):])
	case *BranchNode:
		if len(path) == 0 {
			leaf, err := t.resolve(v.Children[lastChild])
			if err != nil {
				return nil, err
			}
			return t.getAt(leaf, nil)
		}
		child, err := t.resolve(v.Children[path[0]])
		if err != nil {
			return nil, err
		}
		return t.getAt(child, path[1:])
	default:
		return nil, ErrNotFound
	}
}

// Put inserts or overwrites key -> value, growing/reshaping the trie
// as needed; it faults (returns an error) if value exceeds
// MaxValueLength, matching the VM's own max-item-size enforcement.
func (t *Trie) Put(key, value []byte) error {
	if len(value) > MaxValueLength {
		return ErrValueTooBig
	}
	path := toNibbles(key)
	n, err := t.resolve(t.root)
	if err != nil {
		return err
	}
	newRoot, err := t.putAt(n, path, value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) putAt(n Node, path []byte, value []byte) (Node, error) {
	switch v := n.(type) {
	case EmptyNode, nil:
		return t.buildPath(path, value), nil
	case *LeafNode:
		if len(path) == 0 {
			leaf := NewLeafNode(value)
			t.stage(leaf)
			return leaf, nil
		}
		// Existing leaf terminates here (path==0 at this node from the
		// caller's perspective); split into a branch with a value slot.
		branch := NewBranchNode()
		branch.Children[lastChild] = v
		t.stage(v)
		return t.insertIntoBranch(branch, path, value)
	case *ExtensionNode:
		cp := commonPrefixLen(path, v.path)
		if cp == len(v.path) {
			child, err := t.resolve(v.next)
			if err != nil {
				return nil, err
			}
			newChild, err := t.putAt(child, path[cp:], value)
			if err != nil {
				return nil, err
			}
			ext := NewExtensionNode(v.path, newChild)
			t.stage(ext)
			return ext, nil
		}
		return t.splitExtension(v, cp, path, value)
	case *BranchNode:
		if len(path) == 0 {
			nb := cloneBranch(v)
			leaf := NewLeafNode(value)
			t.stage(leaf)
			nb.Children[lastChild] = leaf
			t.stage(nb)
			return nb, nil
		}
		nb := cloneBranch(v)
		child, err := t.resolve(v.Children[path[0]])
		if err != nil {
			return nil, err
		}
		newChild, err := t.putAt(child, path[1:], value)
		if err != nil {
			return nil, err
		}
		nb.Children[path[0]] = newChild
		t.stage(nb)
		return nb, nil
	default:
		return nil, ErrUnknownNodeType
	}
}

func cloneBranch(b *BranchNode) *BranchNode {
	nb := NewBranchNode()
	nb.Children = b.Children
	return nb
}

// buildPath constructs a fresh extension/leaf chain for path -> value
// where no prior node exists.
func (t *Trie) buildPath(path []byte, value []byte) Node {
	leaf := NewLeafNode(value)
	t.stage(leaf)
	if len(path) == 0 {
		return leaf
	}
	ext := NewExtensionNode(append([]byte{}, path...), leaf)
	t.stage(ext)
	return ext
}

// insertIntoBranch places value at path inside an already-constructed
// branch whose value slot is occupied by a displaced sibling leaf.
func (t *Trie) insertIntoBranch(branch *BranchNode, path []byte, value []byte) (Node, error) {
	if len(path) == 0 {
		leaf := NewLeafNode(value)
		t.stage(leaf)
		branch.Children[lastChild] = leaf
		t.stage(branch)
		return branch, nil
	}
	child := t.buildPath(path[1:], value)
	branch.Children[path[0]] = child
	t.stage(branch)
	return branch, nil
}

// splitExtension breaks an extension node at the point its path
// diverges from the incoming key, introducing a branch node.
func (t *Trie) splitExtension(ext *ExtensionNode, cp int, path []byte, value []byte) (Node, error) {
	branch := NewBranchNode()
	var restExt Node
	if cp+1 == len(ext.path) {
		restExt = ext.next
	} else {
		sub := NewExtensionNode(append([]byte{}, ext.path[cp+1:]...), ext.next)
		t.stage(sub)
		restExt = sub
	}
	branch.Children[ext.path[cp]] = restExt

	rest := path[cp:]
	if len(rest) == 0 {
		leaf := NewLeafNode(value)
		t.stage(leaf)
		branch.Children[lastChild] = leaf
	} else {
		newChild := t.buildPath(rest[1:], value)
		branch.Children[rest[0]] = newChild
	}
	t.stage(branch)

	if cp == 0 {
		return branch, nil
	}
	prefix := NewExtensionNode(append([]byte{}, path[:cp]...), branch)
	t.stage(prefix)
	return prefix, nil
}

func (t *Trie) stage(n Node) {
	if isEmpty(n) {
		return
	}
	t.dirty[n.Hash()] = n
}

// Delete removes key from the trie; deleting an absent key is a no-op
// so callers issuing explicit storage deletions need not pre-check
// existence.
func (t *Trie) Delete(key []byte) error {
	path := toNibbles(key)
	n, err := t.resolve(t.root)
	if err != nil {
		return err
	}
	newRoot, _, err := t.deleteAt(n, path)
	if err != nil {
		return err
	}
	if newRoot == nil {
		newRoot = EmptyNode{}
	}
	t.root = newRoot
	return nil
}

func (t *Trie) deleteAt(n Node, path []byte) (Node, bool, error) {
	switch v := n.(type) {
	case EmptyNode, nil:
		return n, false, nil
	case *LeafNode:
		if len(path) != 0 {
			return n, false, nil
		}
		return EmptyNode{}, true, nil
	case *ExtensionNode:
		if len(path) < len(v.path) || !bytes.Equal(path[:len(v.path)], v.path) {
			return n, false, nil
		}
		child, err := t.resolve(v.next)
		if err != nil {
			return nil, false, err
		}
		newChild, changed, err := t.deleteAt(child, path[len(v.path):])
		if err != nil || !changed {
			return n, changed, err
		}
		if isEmpty(newChild) {
			return EmptyNode{}, true, nil
		}
		ext := NewExtensionNode(v.path, newChild)
		t.stage(ext)
		return ext, true, nil
	case *BranchNode:
		nb := cloneBranch(v)
		var changed bool
		if len(path) == 0 {
			if isEmpty(nb.Children[lastChild]) {
				return n, false, nil
			}
			nb.Children[lastChild] = EmptyNode{}
			changed = true
		} else {
			child, err := t.resolve(v.Children[path[0]])
			if err != nil {
				return nil, false, err
			}
			newChild, ch, err := t.deleteAt(child, path[1:])
			if err != nil {
				return nil, false, err
			}
			if !ch {
				return n, false, nil
			}
			nb.Children[path[0]] = newChild
			changed = true
		}
		t.stage(nb)
		return nb, changed, nil
	default:
		return nil, false, ErrUnknownNodeType
	}
}

// Flush persists every node staged since the trie was opened (or since
// the last Flush) into st via a single batched write, the trie
// equivalent of store.MemCachedStore.PersistSync.
func (t *Trie) Flush() error {
	puts := make(map[string][]byte, len(t.dirty))
	for h, n := range t.dirty {
		puts[string(nodeKey(h))] = n.Bytes()
	}
	if err := t.store.PutChangeSet(puts, nil); err != nil {
		return err
	}
	t.dirty = make(map[util.Uint256]Node)
	return nil
}

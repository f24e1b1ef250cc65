// Package mpt implements the Merkle-Patricia Trie used to commit the
// full (contract_id, key) -> value world state to a single root hash.
// Nodes are content-addressed: each
// non-leaf, non-empty node is looked up by the hash of its own encoding,
// stored through the same store.Store trait everything else uses.
package mpt

import (
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// NodeType tags the five node shapes a trie can contain.
type NodeType byte

const (
	// BranchT is a 16-way fan-out node plus a value slot.
	BranchT NodeType = iota
	// ExtensionT shares a common nibble-path prefix above a single child.
	ExtensionT
	// LeafT carries a value directly.
	LeafT
	// HashT is a placeholder referencing a node by hash only, used for
	// children not resident in memory (collapsed subtrees).
	HashT
	// EmptyT represents an absent node (nil child, empty trie).
	EmptyT
)

// MaxValueLength bounds a leaf's value, matching the VM's
// max-stack-item-size so no storage item can ever produce a node the
// trie can't address.
const MaxValueLength = 65535

// maxPathLength bounds a node's stored nibble path (two nibbles per
// storage key byte, plus slack for the contract id prefix).
const maxPathLength = 1024

// childrenCount is the branch fan-out (16 nibble values) plus one
// trailing value slot.
const childrenCount = 17

// lastChild indexes a BranchNode's value slot.
const lastChild = childrenCount - 1

// Node is the common interface every trie node shape implements.
type Node interface {
	io.Serializable
	Type() NodeType
	Hash() util.Uint256
	Bytes() []byte
	Size() int
}

// EmptyNode is a singleton Node representing an absent subtree.
type EmptyNode struct{}

// Type implements Node.
func (EmptyNode) Type() NodeType { return EmptyT }

// Hash implements Node.
func (EmptyNode) Hash() util.Uint256 { return util.Uint256{} }

// Bytes implements Node.
func (EmptyNode) Bytes() []byte { return nil }

// Size implements Node.
func (EmptyNode) Size() int { return 0 }

// EncodeBinary implements io.Serializable; EmptyNode never appears on
// the wire by itself (a HashNode with a zero hash stands in for it).
func (EmptyNode) EncodeBinary(*io.BinWriter) {}

// DecodeBinary implements io.Serializable.
func (EmptyNode) DecodeBinary(*io.BinReader) {}

func isEmpty(n Node) bool {
	_, ok := n.(EmptyNode)
	return ok || n == nil
}

// HashNode is a reference to a node stored elsewhere, addressed by its
// content hash. Collapsing unchanged subtrees to a HashNode is what
// keeps the trie's in-memory footprint bounded between commits.
type HashNode struct {
	hashValid bool
	h         util.Uint256
}

// NewHashNode wraps h.
func NewHashNode(h util.Uint256) *HashNode { return &HashNode{hashValid: true, h: h} }

// Type implements Node.
func (*HashNode) Type() NodeType { return HashT }

// Hash implements Node.
func (n *HashNode) Hash() util.Uint256 { return n.h }

// Bytes implements Node.
func (n *HashNode) Bytes() []byte {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteB(byte(HashT))
	n.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// Size implements Node.
func (n *HashNode) Size() int { return util.Uint256Size }

// EncodeBinary implements io.Serializable.
func (n *HashNode) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(n.h[:])
}

// DecodeBinary implements io.Serializable.
func (n *HashNode) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(n.h[:])
	n.hashValid = true
}

// LeafNode stores a terminal value directly.
type LeafNode struct {
	value []byte
	hash  util.Uint256
	valid bool
}

// NewLeafNode constructs a leaf carrying value.
func NewLeafNode(value []byte) *LeafNode {
	return &LeafNode{value: value}
}

// Value returns the leaf's stored bytes.
func (n *LeafNode) Value() []byte { return n.value }

// Type implements Node.
func (*LeafNode) Type() NodeType { return LeafT }

// Hash implements Node.
func (n *LeafNode) Hash() util.Uint256 {
	if !n.valid {
		n.hash = hash.DoubleSha256(n.Bytes())
		n.valid = true
	}
	return n.hash
}

// Bytes implements Node.
func (n *LeafNode) Bytes() []byte {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteB(byte(LeafT))
	n.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// Size implements Node.
func (n *LeafNode) Size() int { return len(n.value) }

// EncodeBinary implements io.Serializable.
func (n *LeafNode) EncodeBinary(w *io.BinWriter) {
	if len(n.value) > MaxValueLength {
		w.Err = ErrValueTooBig
		return
	}
	w.WriteVarBytes(n.value)
}

// DecodeBinary implements io.Serializable.
func (n *LeafNode) DecodeBinary(r *io.BinReader) {
	n.value = r.ReadVarBytes(MaxValueLength)
	n.valid = false
}

// ExtensionNode shares a nibble-path prefix above a single child,
// collapsing runs of single-child branches.
type ExtensionNode struct {
	path  []byte
	next  Node
	hash  util.Uint256
	valid bool
}

// NewExtensionNode constructs an extension over path leading to next.
func NewExtensionNode(path []byte, next Node) *ExtensionNode {
	return &ExtensionNode{path: path, next: next}
}

// Path returns the shared nibble path.
func (n *ExtensionNode) Path() []byte { return n.path }

// Next returns the single child.
func (n *ExtensionNode) Next() Node { return n.next }

// Type implements Node.
func (*ExtensionNode) Type() NodeType { return ExtensionT }

// Hash implements Node.
func (n *ExtensionNode) Hash() util.Uint256 {
	if !n.valid {
		n.hash = hash.DoubleSha256(n.Bytes())
		n.valid = true
	}
	return n.hash
}

// Bytes implements Node.
func (n *ExtensionNode) Bytes() []byte {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteB(byte(ExtensionT))
	n.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// Size implements Node.
func (n *ExtensionNode) Size() int { return len(n.path) + util.Uint256Size }

// EncodeBinary implements io.Serializable.
func (n *ExtensionNode) EncodeBinary(w *io.BinWriter) {
	if len(n.path) > maxPathLength {
		w.Err = ErrPathTooBig
		return
	}
	w.WriteVarBytes(n.path)
	child := NewHashNode(n.next.Hash())
	child.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (n *ExtensionNode) DecodeBinary(r *io.BinReader) {
	n.path = r.ReadVarBytes(maxPathLength)
	child := new(HashNode)
	child.DecodeBinary(r)
	n.next = child
	n.valid = false
}

// BranchNode fans out over the 16 possible next nibbles plus one value
// slot (index lastChild) for a key that terminates exactly here.
type BranchNode struct {
	Children [childrenCount]Node
	hash     util.Uint256
	valid    bool
}

// NewBranchNode constructs an all-empty branch.
func NewBranchNode() *BranchNode {
	b := &BranchNode{}
	for i := range b.Children {
		b.Children[i] = EmptyNode{}
	}
	return b
}

// Type implements Node.
func (*BranchNode) Type() NodeType { return BranchT }

// Hash implements Node.
func (n *BranchNode) Hash() util.Uint256 {
	if !n.valid {
		n.hash = hash.DoubleSha256(n.Bytes())
		n.valid = true
	}
	return n.hash
}

// Bytes implements Node.
func (n *BranchNode) Bytes() []byte {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteB(byte(BranchT))
	n.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// Size implements Node.
func (n *BranchNode) Size() int {
	return childrenCount * util.Uint256Size
}

// EncodeBinary implements io.Serializable.
func (n *BranchNode) EncodeBinary(w *io.BinWriter) {
	for i := 0; i < childrenCount; i++ {
		c := n.Children[i]
		if isEmpty(c) {
			NewHashNode(util.Uint256{}).EncodeBinary(w)
			continue
		}
		NewHashNode(c.Hash()).EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (n *BranchNode) DecodeBinary(r *io.BinReader) {
	for i := 0; i < childrenCount; i++ {
		h := new(HashNode)
		h.DecodeBinary(r)
		if h.h.Equals(util.Uint256{}) {
			n.Children[i] = EmptyNode{}
		} else {
			n.Children[i] = h
		}
	}
	n.valid = false
}

// NodeObject wraps a Node with its type tag for polymorphic
// encode/decode through a single io.Serializable value, mirroring how
// a StackItem's own type byte precedes its payload.
type NodeObject struct {
	Node
}

// EncodeBinary implements io.Serializable.
func (o *NodeObject) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(o.Node.Type()))
	o.Node.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (o *NodeObject) DecodeBinary(r *io.BinReader) {
	switch NodeType(r.ReadB()) {
	case LeafT:
		n := new(LeafNode)
		n.DecodeBinary(r)
		o.Node = n
	case ExtensionT:
		n := new(ExtensionNode)
		n.DecodeBinary(r)
		o.Node = n
	case BranchT:
		n := NewBranchNode()
		n.DecodeBinary(r)
		o.Node = n
	case HashT:
		n := new(HashNode)
		n.DecodeBinary(r)
		o.Node = n
	default:
		r.Err = ErrUnknownNodeType
	}
}

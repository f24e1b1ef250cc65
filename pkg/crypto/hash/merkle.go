package hash

import (
	"errors"

	"github.com/n3fullnode/neofull/pkg/util"
)

// MerkleTree is a binary hash tree over an ordered list of leaf
// hashes, used to commit a block's transaction set to a single root.
type MerkleTree struct {
	root  *merkleTreeNode
	depth int
}

type merkleTreeNode struct {
	hash       util.Uint256
	leftChild  *merkleTreeNode
	rightChild *merkleTreeNode
}

// IsLeaf reports whether n has no children.
func (n *merkleTreeNode) IsLeaf() bool {
	return n.leftChild == nil && n.rightChild == nil
}

// IsRoot reports whether n has no parent; for a detached node built
// bottom-up this is simply "not referenced as anyone's child", which
// callers track externally, so this helper is really just documentation
// of intent at the top-level node returned from NewMerkleTree.
func (n *merkleTreeNode) IsRoot() bool {
	return true
}

// ErrEmptyHashes is returned when constructing a tree over an empty
// leaf set, which has no well-defined root.
var ErrEmptyHashes = errors.New("hash: empty leaf hash list")

// NewMerkleTree builds a MerkleTree over hashes, duplicating the last
// node at each level when the level has an odd count, matching the
// reference construction byte-for-byte.
func NewMerkleTree(hashes []util.Uint256) (*MerkleTree, error) {
	if len(hashes) == 0 {
		return nil, ErrEmptyHashes
	}
	nodes := make([]*merkleTreeNode, len(hashes))
	for i, h := range hashes {
		nodes[i] = &merkleTreeNode{hash: h}
	}
	depth := 1
	root := buildMerkleTree(nodes, &depth)
	return &MerkleTree{root: root, depth: depth}, nil
}

func buildMerkleTree(leaves []*merkleTreeNode, depth *int) *merkleTreeNode {
	if len(leaves) == 0 {
		return nil
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	parents := make([]*merkleTreeNode, (len(leaves)+1)/2)
	for i := range parents {
		left := leaves[i*2]
		var right *merkleTreeNode
		if i*2+1 == len(leaves) {
			right = left
		} else {
			right = leaves[i*2+1]
		}
		parents[i] = &merkleTreeNode{
			hash:       DoubleSha256(append(left.hash.BytesLE(), right.hash.BytesLE()...)),
			leftChild:  left,
			rightChild: right,
		}
	}
	*depth++
	return buildMerkleTree(parents, depth)
}

// Root returns the tree's root hash.
func (t *MerkleTree) Root() util.Uint256 {
	return t.root.hash
}

// CalcMerkleRoot computes the Merkle root over hashes without
// retaining the intermediate tree structure, the fast path used by
// block validation.
func CalcMerkleRoot(hashes []util.Uint256) util.Uint256 {
	if len(hashes) == 0 {
		return util.Uint256{}
	}
	level := make([]util.Uint256, len(hashes))
	copy(level, hashes)
	for len(level) > 1 {
		next := make([]util.Uint256, (len(level)+1)/2)
		for i := range next {
			left := level[i*2]
			right := left
			if i*2+1 < len(level) {
				right = level[i*2+1]
			}
			next[i] = DoubleSha256(append(left.BytesLE(), right.BytesLE()...))
		}
		level = next
	}
	return level[0]
}

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/util"
)

func testComputeMerkleTree(t *testing.T, hexHashes []string, result string) {
	hashes := make([]util.Uint256, len(hexHashes))
	for i, str := range hexHashes {
		h, err := util.Uint256DecodeStringBE(str)
		require.NoError(t, err)
		hashes[i] = h
	}

	merkle, err := NewMerkleTree(hashes)
	require.NoError(t, err)
	optimized := CalcMerkleRoot(hashes)
	assert.Equal(t, result, optimized.StringBE())
	assert.Equal(t, result, merkle.Root().StringBE())
}

func TestComputeMerkleTree1(t *testing.T) {
	// Mainnet block #0.
	rawHashes := []string{
		"fb5bd72b2d6792d75dc2f1084ffa9e9f70ca85543c717a6b13d9959b452a57d6",
		"c56f33fc6ecfcd0c225c4ab356fee59390af8560be0e930faebe74a6daff7c9b",
		"602c79718b16e442de58778e148d0b1084e3b2dffd5de6b7b16cee7969282de7",
		"3631f66024ca6f5b033d7e0809eb993443374830025af904fb51b0334f127cda",
	}
	res := "803ff4abe3ea6533bcc0be574efa02f83ae8fdc651c879056b0d9be336c01bf4"
	testComputeMerkleTree(t, rawHashes, res)
}

func TestMerkleSingleLeaf(t *testing.T) {
	h, err := util.Uint256DecodeStringLE("fb5bd72b2d6792d75dc2f1084ffa9e9f70ca85543c717a6b13d9959b452a57d6")
	require.NoError(t, err)
	// A single-transaction block's root is the transaction hash itself.
	assert.Equal(t, h, CalcMerkleRoot([]util.Uint256{h}))
	tree, err := NewMerkleTree([]util.Uint256{h})
	require.NoError(t, err)
	assert.Equal(t, h, tree.Root())
}

func TestMerkleOddLeafDuplication(t *testing.T) {
	a := Sha256([]byte("a"))
	b := Sha256([]byte("b"))
	c := Sha256([]byte("c"))
	// With three leaves the last is paired with itself.
	root3 := CalcMerkleRoot([]util.Uint256{a, b, c})
	root4 := CalcMerkleRoot([]util.Uint256{a, b, c, c})
	assert.Equal(t, root4, root3)
}

func TestMerkleEmpty(t *testing.T) {
	_, err := NewMerkleTree(nil)
	require.ErrorIs(t, err, ErrEmptyHashes)
	assert.Equal(t, util.Uint256{}, CalcMerkleRoot(nil))
}

func TestHash160(t *testing.T) {
	// RIPEMD-160(SHA-256(x)) of an empty input is a fixed vector,
	// rendered here in raw digest (little-endian) order.
	h := Hash160([]byte{})
	assert.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb", h.StringLE())
}

func TestDoubleSha256(t *testing.T) {
	// Double-SHA-256 of "hello", raw digest order.
	h := DoubleSha256([]byte("hello"))
	assert.Equal(t, "9595c9df90075148eb06860365df33584b75bff782a510c6cd4883a419833d50", h.StringLE())
}

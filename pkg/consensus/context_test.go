package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

func testValidators(t *testing.T, n int) []*keys.PublicKey {
	t.Helper()
	pubs := make([]*keys.PublicKey, n)
	for i := range pubs {
		priv, err := keys.NewPrivateKey(keys.Secp256r1)
		require.NoError(t, err)
		pubs[i] = priv.PublicKey()
	}
	return pubs
}

func TestQuorumMath(t *testing.T) {
	cases := []struct {
		n, f, m int
	}{
		{1, 0, 1},
		{4, 1, 3},
		{7, 2, 5},
		{10, 3, 7},
		{21, 6, 15},
	}
	for _, tc := range cases {
		c := NewContext(tc.n)
		c.Validators = testValidators(t, tc.n)
		assert.Equal(t, tc.n, c.N())
		assert.Equal(t, tc.f, c.F(), "n=%d", tc.n)
		assert.Equal(t, tc.m, c.M(), "n=%d", tc.n)
	}
}

func TestPrimaryIndex(t *testing.T) {
	c := NewContext(7)
	c.Validators = testValidators(t, 7)
	c.BlockIndex = 100

	// primary = (block_index - view) mod n.
	assert.Equal(t, 2, c.PrimaryIndex(0)) // 100 mod 7
	assert.Equal(t, 1, c.PrimaryIndex(1))
	assert.Equal(t, 0, c.PrimaryIndex(2))
	assert.Equal(t, 6, c.PrimaryIndex(3)) // wraps negative

	c.MyIndex = 2
	c.ViewNumber = 0
	assert.True(t, c.IsPrimary())
	c.ViewNumber = 1
	assert.False(t, c.IsPrimary())
}

func TestViewChangeAfterPrimaryFailure(t *testing.T) {
	// n=7, the view-0 primary never sends a
	// PrepareRequest; the remaining validators request view 1 and the
	// M=5 threshold carries the transition to a new primary.
	c := NewContext(7)
	c.Validators = testValidators(t, 7)
	c.resetForBlock(1, util.Uint256{1}, 0)

	require.Equal(t, 1, c.PrimaryIndex(0))
	for i, idx := range []uint16{0, 2, 3, 4} {
		c.ChangeViewPayloads[idx] = newPayload(payloadTestNetwork, idx, 1, 0,
			changeViewType, &changeView{NewViewNumber: 1, Reason: CVTimeout})
		assert.Equal(t, i+1, c.countChangeViews(1))
	}
	require.Less(t, c.countChangeViews(1), c.M())

	c.ChangeViewPayloads[5] = newPayload(payloadTestNetwork, 5, 1, 0,
		changeViewType, &changeView{NewViewNumber: 1, Reason: CVTimeout})
	require.Equal(t, c.M(), c.countChangeViews(1))

	c.reset(1)
	assert.Equal(t, byte(1), c.ViewNumber)
	assert.Equal(t, 0, c.PrimaryIndex(1))
	assert.Nil(t, c.Candidate)
	assert.Zero(t, c.countPreparations())
}

func TestCountThresholds(t *testing.T) {
	c := NewContext(4)
	c.Validators = testValidators(t, 4)
	c.resetForBlock(5, util.Uint256{}, 0)

	require.Zero(t, c.countPreparations())
	c.PreparationPayloads[0] = newPayload(payloadTestNetwork, 0, 5, 0,
		prepareRequestType, &prepareRequest{})
	c.PreparationPayloads[1] = newPayload(payloadTestNetwork, 1, 5, 0,
		prepareResponseType, &prepareResponse{})
	assert.Equal(t, 2, c.countPreparations())

	require.Zero(t, c.countCommitted())
	c.CommitPayloads[3] = newPayload(payloadTestNetwork, 3, 5, 0,
		commitType, &commitMsg{})
	assert.Equal(t, 1, c.countCommitted())
}

func TestRequestSentAndTxResolution(t *testing.T) {
	c := NewContext(4)
	c.Validators = testValidators(t, 4)
	c.BlockIndex = 8
	c.reset(0)

	require.False(t, c.requestSent())
	primary := c.PrimaryIndex(0)
	c.PreparationPayloads[primary] = newPayload(payloadTestNetwork, uint16(primary), 8, 0,
		prepareRequestType, &prepareRequest{})
	require.True(t, c.requestSent())

	c.TransactionHashes = []util.Uint256{{1}, {2}}
	assert.False(t, c.haveAllTransactions())
	c.Transactions[util.Uint256{1}] = nil
	c.Transactions[util.Uint256{2}] = nil
	assert.True(t, c.haveAllTransactions())
}

func TestResetForBlockClearsRound(t *testing.T) {
	c := NewContext(4)
	c.Validators = testValidators(t, 4)
	c.resetForBlock(3, util.Uint256{9}, 1111)

	c.ChangeViewPayloads[0] = newPayload(payloadTestNetwork, 0, 3, 0,
		changeViewType, &changeView{NewViewNumber: 1})
	c.PreparationPayloads[0] = newPayload(payloadTestNetwork, 0, 3, 0,
		prepareRequestType, &prepareRequest{})

	c.resetForBlock(4, util.Uint256{10}, 2222)
	assert.Equal(t, uint32(4), c.BlockIndex)
	assert.Equal(t, util.Uint256{10}, c.PrevHash)
	assert.Equal(t, byte(0), c.ViewNumber)
	assert.Zero(t, c.countChangeViews(1))
	assert.Zero(t, c.countPreparations())
}

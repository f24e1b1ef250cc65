package mempool

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

const (
	defaultWait = time.Second
	defaultTick = 10 * time.Millisecond
)

type feerStub struct {
	feePerByte  int64
	p2pSigExt   bool
	blockHeight uint32
	balance     int64
}

func (f *feerStub) GetBaseExecFee() int64                              { return 30 }
func (f *feerStub) FeePerByte() int64                                  { return f.feePerByte }
func (f *feerStub) BlockHeight() uint32                                { return f.blockHeight }
func (f *feerStub) GetUtilityTokenBalance(util.Uint160) *big.Int       { return big.NewInt(f.balance) }
func (f *feerStub) P2PSigExtensionsEnabled() bool                      { return f.p2pSigExt }

func newTx(sender util.Uint160, netFee int64, nonce uint32, attrs ...transaction.Attribute) *transaction.Transaction {
	return &transaction.Transaction{
		Version:    transaction.Version,
		Nonce:      nonce,
		NetworkFee: netFee,
		Signers:    []transaction.Signer{{Account: sender}},
		Attributes: attrs,
		Script:     []byte{byte(opcode.PUSH1)},
	}
}

func TestPoolAddRemove(t *testing.T) {
	mp := New(10, 0, false)
	sender := util.Uint160{1, 2, 3}
	fs := &feerStub{}
	tx := newTx(sender, 0, 0)

	_, ok := mp.TryGetValue(tx.Hash())
	require.False(t, ok)
	require.NoError(t, mp.Add(tx, fs))
	require.ErrorIs(t, mp.Add(tx, fs), ErrDup)

	got, ok := mp.TryGetValue(tx.Hash())
	require.True(t, ok)
	require.Equal(t, tx, got)

	mp.Remove(tx.Hash(), fs)
	_, ok = mp.TryGetValue(tx.Hash())
	require.False(t, ok)
	require.Equal(t, 0, mp.Count())
}

func TestPoolInsufficientFunds(t *testing.T) {
	mp := New(10, 0, false)
	fs := &feerStub{balance: 100}
	sender := util.Uint160{1, 2, 3}
	tx := newTx(sender, 101, 0)

	require.False(t, mp.Verify(tx, fs))
	require.ErrorIs(t, mp.Add(tx, fs), ErrInsufficientFunds)
}

func TestPoolOverCapacityEvictsCheapest(t *testing.T) {
	const capacity = 3
	mp := New(capacity, 0, false)
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}

	cheap := newTx(sender, 1, 0)
	require.NoError(t, mp.Add(cheap, fs))
	require.NoError(t, mp.Add(newTx(sender, 2, 1), fs))
	require.NoError(t, mp.Add(newTx(sender, 3, 2), fs))
	require.Equal(t, capacity, mp.Count())

	// A transaction that doesn't outbid the cheapest pooled one is rejected.
	require.Error(t, mp.Add(newTx(sender, 1, 3), fs))
	require.Equal(t, capacity, mp.Count())

	// One with a higher fee-per-byte displaces the cheapest.
	pricey := newTx(sender, 100, 4)
	require.NoError(t, mp.Add(pricey, fs))
	require.Equal(t, capacity, mp.Count())
	_, ok := mp.TryGetValue(cheap.Hash())
	require.False(t, ok)
	_, ok = mp.TryGetValue(pricey.Hash())
	require.True(t, ok)
}

func TestPoolHighPriorityWins(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}

	low := newTx(sender, 100000, 0)
	high := newTx(sender, 1, 1, transaction.Attribute{Value: &transaction.HighPriority{}})

	lowItem := newItem(low, fs)
	highItem := newItem(high, fs)
	require.True(t, highItem.CompareTo(lowItem) > 0)
	require.True(t, lowItem.CompareTo(highItem) < 0)
}

func TestPoolRemoveStale(t *testing.T) {
	mp := New(10, 0, false)
	fs := &feerStub{}
	sender := util.Uint160{1, 2, 3}

	var kept, dropped *transaction.Transaction
	for i := uint32(0); i < 4; i++ {
		tx := newTx(sender, 0, i)
		require.NoError(t, mp.Add(tx, fs))
		if i == 0 {
			dropped = tx
		}
		if i == 3 {
			kept = tx
		}
	}
	require.Equal(t, 4, mp.Count())
	mp.RemoveStale(func(tx *transaction.Transaction) bool {
		return tx.Hash() != dropped.Hash()
	}, fs)
	require.Equal(t, 3, mp.Count())
	_, ok := mp.TryGetValue(kept.Hash())
	require.True(t, ok)
	_, ok = mp.TryGetValue(dropped.Hash())
	require.False(t, ok)
}

func TestPoolConflictsAttribute(t *testing.T) {
	mp := New(10, 0, true)
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}

	tx1 := newTx(sender, 3, 0)
	require.NoError(t, mp.Add(tx1, fs))

	// tx2 conflicts with tx1 but has a smaller fee: rejected.
	tx2 := newTx(sender, 2, 1, transaction.Attribute{Value: &transaction.Conflicts{Hash: tx1.Hash()}})
	require.ErrorIs(t, mp.Add(tx2, fs), ErrConflictsAttribute)

	// tx3 conflicts with tx1 and has a larger fee: tx1 is evicted.
	tx3 := newTx(sender, 4, 2, transaction.Attribute{Value: &transaction.Conflicts{Hash: tx1.Hash()}})
	require.NoError(t, mp.Add(tx3, fs))
	_, ok := mp.TryGetValue(tx1.Hash())
	require.False(t, ok)
	require.Equal(t, []util.Uint256{tx3.Hash()}, mp.conflicts[tx1.Hash()])

	// tx1 can't be re-added: tx3 already pooled and names it as a conflict.
	require.ErrorIs(t, mp.Add(tx1, fs), ErrConflictsAttribute)
}

func TestPoolConflictsRequireSharedSigner(t *testing.T) {
	mp := New(10, 0, true)
	fs := &feerStub{balance: 1000000}
	senderA := util.Uint160{1, 2, 3}
	senderB := util.Uint160{3, 2, 1}

	tx1 := newTx(senderA, 3, 0)
	require.NoError(t, mp.Add(tx1, fs))

	// Higher fee, but signed by an unrelated account: rejected regardless
	// of priority, since senderB never consented to evicting tx1.
	tx2 := newTx(senderB, 100, 1, transaction.Attribute{Value: &transaction.Conflicts{Hash: tx1.Hash()}})
	require.ErrorIs(t, mp.Add(tx2, fs), ErrConflictsAttribute)
	_, ok := mp.TryGetValue(tx1.Hash())
	require.True(t, ok)
}

func TestPoolOracleResponsePriority(t *testing.T) {
	mp := New(10, 0, false)
	fs := &feerStub{balance: 10000}
	sender := util.Uint160{1, 2, 3}
	respAttr := func(id uint64) transaction.Attribute {
		return transaction.Attribute{Value: &transaction.OracleResponse{ID: id}}
	}

	tx1 := newTx(sender, 10, 0, respAttr(1))
	require.NoError(t, mp.Add(tx1, fs))

	tx2 := newTx(sender, 5, 1, respAttr(1))
	require.ErrorIs(t, mp.Add(tx2, fs), ErrOracleResponse)

	tx3 := newTx(sender, 20, 2, respAttr(1))
	require.NoError(t, mp.Add(tx3, fs))
	_, ok := mp.TryGetValue(tx1.Hash())
	require.False(t, ok)
	_, ok = mp.TryGetValue(tx3.Hash())
	require.True(t, ok)
}

func TestPoolSubscriptions(t *testing.T) {
	mp := New(2, 0, true)
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}
	mp.RunSubscriptions()
	defer mp.StopSubscriptions()

	ch := make(chan Event, 4)
	mp.SubscribeForTransactions(ch)

	tx := newTx(sender, 1, 0)
	require.NoError(t, mp.Add(tx, fs))
	require.Eventually(t, func() bool { return len(ch) == 1 }, defaultWait, defaultTick)
	ev := <-ch
	require.Equal(t, Event{Type: TransactionAdded, Tx: tx}, ev)

	mp.Remove(tx.Hash(), fs)
	require.Eventually(t, func() bool { return len(ch) == 1 }, defaultWait, defaultTick)
	ev = <-ch
	require.Equal(t, Event{Type: TransactionRemoved, Tx: tx}, ev)

	mp.UnsubscribeFromTransactions(ch)
	require.NoError(t, mp.Add(newTx(sender, 1, 1), fs))
	require.Equal(t, 0, len(ch))
}

func TestPoolSubscriptionsDisabledPanics(t *testing.T) {
	mp := New(2, 0, false)
	require.Panics(t, func() { mp.RunSubscriptions() })
	require.Panics(t, func() { mp.StopSubscriptions() })
}

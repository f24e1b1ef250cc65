// Package mempool holds transactions that have passed stateless and
// stateful verification but have not yet been included in a block: the
// candidate pool a consensus primary draws its proposal from.
package mempool

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/util"
)

// Sentinel errors returned by Add, matched with errors.Is by callers that
// need to distinguish an outright rejection from "try again later".
var (
	ErrInsufficientFunds  = errors.New("mempool: insufficient funds to cover fees")
	ErrConflictsAttribute = errors.New("mempool: conflicts with a pooled transaction")
	ErrOracleResponse     = errors.New("mempool: a higher (or equal) fee response for this request is already pooled")
	ErrDup                = errors.New("mempool: transaction is already in the pool")
	ErrOOM                = errors.New("mempool: the pool is full and this transaction doesn't outbid anything in it")
)

// Feer answers the fee- and state-dependent questions Verify needs that
// only the ledger's current head can provide, decoupling the pool from any
// particular blockchain implementation.
type Feer interface {
	GetBaseExecFee() int64
	FeePerByte() int64
	BlockHeight() uint32
	GetUtilityTokenBalance(util.Uint160) *big.Int
	P2PSigExtensionsEnabled() bool
}

// EventType distinguishes the two notifications a subscriber receives.
type EventType byte

const (
	TransactionAdded EventType = iota
	TransactionRemoved
)

// Event is delivered to every channel registered with
// SubscribeForTransactions whenever a transaction enters or leaves the
// verified pool.
type Event struct {
	Type EventType
	Tx   *transaction.Transaction
}

// item wraps a pooled transaction with the data its ordering depends on,
// computed once at Add time so Less never re-derives it.
type item struct {
	txn          *transaction.Transaction
	feePerByte   int64
	highPriority bool
}

func newItem(tx *transaction.Transaction, feer Feer) item {
	return item{
		txn:          tx,
		feePerByte:   calculateFeePerByte(tx, feer),
		highPriority: hasHighPriority(tx),
	}
}

func calculateFeePerByte(tx *transaction.Transaction, feer Feer) int64 {
	size := tx.Size()
	if size == 0 {
		return 0
	}
	return tx.NetworkFee / int64(size)
}

func hasHighPriority(tx *transaction.Transaction) bool {
	for _, a := range tx.Attributes {
		if a.Value.Type() == transaction.HighPriorityT {
			return true
		}
	}
	return false
}

// CompareTo orders items most-fit-for-a-block first: high priority beats
// low priority regardless of fee, otherwise higher fee-per-byte wins, and
// network fee breaks a fee-per-byte tie in favor of the larger absolute fee.
func (i item) CompareTo(other item) int {
	if i.highPriority != other.highPriority {
		if i.highPriority {
			return 1
		}
		return -1
	}
	if i.feePerByte != other.feePerByte {
		if i.feePerByte > other.feePerByte {
			return 1
		}
		return -1
	}
	if i.txn.NetworkFee != other.txn.NetworkFee {
		if i.txn.NetworkFee > other.txn.NetworkFee {
			return 1
		}
		return -1
	}
	return 0
}

// items is a CompareTo-ascending sort.Interface; the pool keeps it sorted
// ascending, evicts the cheapest entry from the front and reads
// most-valuable-first by iterating from the end.
type items []item

func (p items) Len() int           { return len(p) }
func (p items) Less(i, j int) bool { return p[i].CompareTo(p[j]) < 0 }
func (p items) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// utilityBalanceAndFees tracks, per sender, the GAS balance observed when
// the sender's first pooled transaction was added (checkBalance reads a
// fresh balance instead) and the running sum of fees already committed by that sender's
// other pooled transactions, so a second transaction from the same sender
// can't double-spend a balance the first one already claimed.
type utilityBalanceAndFees struct {
	balance *big.Int
	feeSum  *big.Int
}

// Pool is the fee-ordered set of verified, not-yet-included transactions.
// Every exported method is safe for concurrent use.
type Pool struct {
	lock sync.RWMutex

	verifiedMap map[util.Uint256]item
	verifiedTxs items

	fees map[util.Uint160]utilityBalanceAndFees

	// conflicts maps a conflicted-against hash to the hashes of the
	// pooled transactions that name it in a Conflicts attribute, mirroring
	// the bidirectional rule that admitting one forbids the other.
	conflicts map[util.Uint256][]util.Uint256

	// oracleResp tracks the best (highest network fee) pooled transaction
	// answering a given oracle request ID, so a late low-fee duplicate
	// response can't displace an already-admitted better one.
	oracleResp map[uint64]util.Uint256

	capacity int
	reserved int

	p2pSigExtensions bool

	// recentlyDropped is an LRU of hashes evicted for capacity; the pool
	// records them but nothing in it reads them back.
	recentlyDropped *lru.Cache

	subs      []chan<- Event
	subsOn    bool
	subQueue  chan Event
	subStop   chan struct{}
	subDoneWg sync.WaitGroup
}

// New builds an empty pool bounded at capacity transactions total.
// reserved is carried for parity with the notary-assisted fallback-
// transaction quota a future P2PSigExtensions feature would need; it is
// not yet consulted anywhere. p2pSigExt gates whether subscription
// delivery is enabled for this network.
func New(capacity, reserved int, p2pSigExt bool) *Pool {
	dropped, _ := lru.New(capacity)
	return &Pool{
		verifiedMap:      make(map[util.Uint256]item),
		fees:             make(map[util.Uint160]utilityBalanceAndFees),
		conflicts:        make(map[util.Uint256][]util.Uint256),
		oracleResp:       make(map[uint64]util.Uint256),
		capacity:         capacity,
		reserved:         reserved,
		p2pSigExtensions: p2pSigExt,
		recentlyDropped:  dropped,
	}
}

// Count returns the number of transactions currently pooled.
func (mp *Pool) Count() int {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	return len(mp.verifiedMap)
}

func (mp *Pool) containsKey(h util.Uint256) bool {
	_, ok := mp.verifiedMap[h]
	return ok
}

// ContainsKey reports whether h is already pooled.
func (mp *Pool) ContainsKey(h util.Uint256) bool {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	return mp.containsKey(h)
}

// TryGetValue returns the pooled transaction with hash h, if any.
func (mp *Pool) TryGetValue(h util.Uint256) (*transaction.Transaction, bool) {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	it, ok := mp.verifiedMap[h]
	if !ok {
		return nil, false
	}
	return it.txn, true
}

// GetVerifiedTransactions returns every pooled transaction in no
// particular order; callers that need priority order use
// GetVerifiedTransactionsByPriority instead.
func (mp *Pool) GetVerifiedTransactions() []*transaction.Transaction {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	txs := make([]*transaction.Transaction, 0, len(mp.verifiedMap))
	for _, it := range mp.verifiedMap {
		txs = append(txs, it.txn)
	}
	return txs
}

// GetVerifiedTransactionsByPriority returns every pooled transaction,
// highest-priority first; this is the order a consensus primary proposes
// transactions in.
func (mp *Pool) GetVerifiedTransactionsByPriority() []*transaction.Transaction {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	txs := make([]*transaction.Transaction, len(mp.verifiedTxs))
	for i := range mp.verifiedTxs {
		txs[i] = mp.verifiedTxs[len(mp.verifiedTxs)-1-i].txn
	}
	return txs
}

// Verify reports whether tx's sender can cover tx's system and network
// fees on top of the fees of that sender's other pooled transactions.
// Attributes are not checked.
func (mp *Pool) Verify(tx *transaction.Transaction, feer Feer) bool {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	return mp.checkBalance(tx, feer) == nil
}

func (mp *Pool) checkBalance(tx *transaction.Transaction, feer Feer) error {
	sender := tx.Sender()
	balance := feer.GetUtilityTokenBalance(sender)
	needed := big.NewInt(tx.SystemFee + tx.NetworkFee)
	if existing, ok := mp.fees[sender]; ok {
		needed = new(big.Int).Add(needed, existing.feeSum)
	}
	if balance.Cmp(needed) < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Add admits tx into the pool after checking its conflicts, oracle
// response priority and sender balance, evicting the least valuable
// pooled transaction if the pool is at capacity and tx outranks it.
func (mp *Pool) Add(tx *transaction.Transaction, feer Feer) error {
	mp.lock.Lock()
	defer mp.lock.Unlock()

	h := tx.Hash()
	if mp.containsKey(h) {
		return ErrDup
	}
	it := newItem(tx, feer)

	// Step 1: some already-pooled transaction may name h as a conflict.
	// tx only displaces it if the two share a signer (proving tx's sender
	// consented to the eviction) and outranks it on fee; any targeter tx
	// can't beat evicts nobody and tx is rejected outright.
	var toEvict []util.Uint256
	for _, targeter := range mp.conflicts[h] {
		other := mp.verifiedMap[targeter]
		if !signersOverlap(tx, other.txn) || it.CompareTo(other) <= 0 {
			return ErrConflictsAttribute
		}
		toEvict = append(toEvict, targeter)
	}

	// Step 2: tx's own Conflicts attributes may target an already-pooled
	// transaction; the same signer-overlap and priority rule applies.
	var conflictsWith []util.Uint256
	for _, a := range tx.Attributes {
		c, ok := a.Value.(*transaction.Conflicts)
		if !ok {
			continue
		}
		if other, ok := mp.verifiedMap[c.Hash]; ok {
			if !signersOverlap(tx, other.txn) || it.CompareTo(other) <= 0 {
				return ErrConflictsAttribute
			}
			toEvict = append(toEvict, c.Hash)
		}
		conflictsWith = append(conflictsWith, c.Hash)
	}
	for _, victim := range toEvict {
		mp.removeLocked(victim, feer)
	}

	if resp, ok := oracleResponseID(tx); ok {
		if existing, ok := mp.oracleResp[resp]; ok {
			existingItem := mp.verifiedMap[existing]
			if it.CompareTo(existingItem) <= 0 {
				return ErrOracleResponse
			}
			mp.removeLocked(existing, feer)
		}
	}

	if err := mp.checkBalance(tx, feer); err != nil {
		return err
	}

	if len(mp.verifiedMap) >= mp.capacity {
		if len(mp.verifiedTxs) == 0 || it.CompareTo(mp.verifiedTxs[0]) <= 0 {
			return ErrOOM
		}
		mp.evictCheapestLocked(feer)
	}

	mp.verifiedMap[h] = it
	mp.verifiedTxs = append(mp.verifiedTxs, it)
	sort.Sort(mp.verifiedTxs)

	sender := tx.Sender()
	bal := mp.fees[sender]
	if bal.balance == nil {
		bal.balance = feer.GetUtilityTokenBalance(sender)
		bal.feeSum = big.NewInt(0)
	}
	bal.feeSum = new(big.Int).Add(bal.feeSum, big.NewInt(tx.SystemFee+tx.NetworkFee))
	mp.fees[sender] = bal

	for _, c := range conflictsWith {
		mp.conflicts[c] = append(mp.conflicts[c], h)
	}
	if resp, ok := oracleResponseID(tx); ok {
		mp.oracleResp[resp] = h
	}

	mp.notify(Event{Type: TransactionAdded, Tx: tx})
	return nil
}

// signersOverlap reports whether a and b share at least one signer
// account, the proof-of-consent a Conflicts-attribute eviction requires:
// a transaction may only evict another that its own sender also signed
// for, so a third party can't grief someone else's pooled transaction by
// outbidding it with a spurious Conflicts attribute.
func signersOverlap(a, b *transaction.Transaction) bool {
	for _, sa := range a.Signers {
		for _, sb := range b.Signers {
			if sa.Account.Equals(sb.Account) {
				return true
			}
		}
	}
	return false
}

func oracleResponseID(tx *transaction.Transaction) (uint64, bool) {
	for _, a := range tx.Attributes {
		if r, ok := a.Value.(*transaction.OracleResponse); ok {
			return r.ID, true
		}
	}
	return 0, false
}

// evictCheapestLocked drops the single least valuable pooled transaction;
// callers must already hold mp.lock and must have verified mp.verifiedTxs
// is non-empty.
func (mp *Pool) evictCheapestLocked(feer Feer) {
	cheapest := mp.verifiedTxs[0].txn.Hash()
	mp.removeLocked(cheapest, feer)
	mp.recentlyDropped.Add(cheapest, struct{}{})
}

// Remove drops h from the pool if present; it's a no-op otherwise.
func (mp *Pool) Remove(h util.Uint256, feer Feer) {
	mp.lock.Lock()
	defer mp.lock.Unlock()
	mp.removeLocked(h, feer)
}

func (mp *Pool) removeLocked(h util.Uint256, feer Feer) {
	it, ok := mp.verifiedMap[h]
	if !ok {
		return
	}
	delete(mp.verifiedMap, h)
	for i, cur := range mp.verifiedTxs {
		if cur.txn.Hash().Equals(h) {
			mp.verifiedTxs = append(mp.verifiedTxs[:i], mp.verifiedTxs[i+1:]...)
			break
		}
	}

	sender := it.txn.Sender()
	if bal, ok := mp.fees[sender]; ok {
		bal.feeSum = new(big.Int).Sub(bal.feeSum, big.NewInt(it.txn.SystemFee+it.txn.NetworkFee))
		if bal.feeSum.Sign() <= 0 {
			delete(mp.fees, sender)
		} else {
			mp.fees[sender] = bal
		}
	}

	for _, a := range it.txn.Attributes {
		if c, ok := a.Value.(*transaction.Conflicts); ok {
			mp.removeConflictEntry(c.Hash, h)
		}
	}
	if resp, ok := oracleResponseID(it.txn); ok {
		if mp.oracleResp[resp] == h {
			delete(mp.oracleResp, resp)
		}
	}

	mp.notify(Event{Type: TransactionRemoved, Tx: it.txn})
}

func (mp *Pool) removeConflictEntry(conflictedWith, remove util.Uint256) {
	list := mp.conflicts[conflictedWith]
	for i, h := range list {
		if h.Equals(remove) {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(mp.conflicts, conflictedWith)
	} else {
		mp.conflicts[conflictedWith] = list
	}
}

// RemoveStale drops every pooled transaction for which isOK returns false
// and leaves the rest as they are (a transaction that passed Verify against
// an old block height can become invalid once height advances past
// ValidUntilBlock).
func (mp *Pool) RemoveStale(isOK func(*transaction.Transaction) bool, feer Feer) {
	mp.lock.Lock()
	defer mp.lock.Unlock()
	var stale []util.Uint256
	for h, it := range mp.verifiedMap {
		if !isOK(it.txn) {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		mp.removeLocked(h, feer)
	}
}

// SetResendThreshold is a placeholder for the resend-stale-transaction
// cadence a block-attached relay loop would use; it's recorded here so the
// node orchestrator has one place to wire it once that loop exists.
func (mp *Pool) SetResendThreshold(h uint32, callback func(*transaction.Transaction)) {
}

// RunSubscriptions starts the goroutine that fans Add/Remove events out to
// subscriber channels; it panics if called twice or if the pool wasn't
// constructed with p2pSigExt (subscriptions are a P2P-extension-gated
// feature, matching the Feer flag they piggyback on).
func (mp *Pool) RunSubscriptions() {
	if !mp.p2pSigExtensions {
		panic("mempool: subscriptions are disabled for this pool")
	}
	mp.lock.Lock()
	defer mp.lock.Unlock()
	if mp.subsOn {
		panic("mempool: subscriptions already running")
	}
	mp.subsOn = true
	mp.subQueue = make(chan Event, 64)
	mp.subStop = make(chan struct{})
	mp.subDoneWg.Add(1)
	go mp.runSubscriptionLoop()
}

// StopSubscriptions halts delivery started by RunSubscriptions.
func (mp *Pool) StopSubscriptions() {
	if !mp.p2pSigExtensions {
		panic("mempool: subscriptions are disabled for this pool")
	}
	mp.lock.Lock()
	if !mp.subsOn {
		mp.lock.Unlock()
		panic("mempool: subscriptions not running")
	}
	mp.subsOn = false
	close(mp.subStop)
	mp.lock.Unlock()
	mp.subDoneWg.Wait()
}

func (mp *Pool) runSubscriptionLoop() {
	defer mp.subDoneWg.Done()
	for {
		select {
		case ev := <-mp.subQueue:
			mp.lock.RLock()
			subs := make([]chan<- Event, len(mp.subs))
			copy(subs, mp.subs)
			mp.lock.RUnlock()
			for _, s := range subs {
				s <- ev
			}
		case <-mp.subStop:
			return
		}
	}
}

// SubscribeForTransactions registers ch to receive every future
// TransactionAdded/TransactionRemoved event.
func (mp *Pool) SubscribeForTransactions(ch chan<- Event) {
	mp.lock.Lock()
	defer mp.lock.Unlock()
	mp.subs = append(mp.subs, ch)
}

// UnsubscribeFromTransactions removes a channel registered with
// SubscribeForTransactions.
func (mp *Pool) UnsubscribeFromTransactions(ch chan<- Event) {
	mp.lock.Lock()
	defer mp.lock.Unlock()
	for i, s := range mp.subs {
		if s == ch {
			mp.subs = append(mp.subs[:i], mp.subs[i+1:]...)
			return
		}
	}
}

func (mp *Pool) notify(ev Event) {
	if !mp.subsOn {
		return
	}
	select {
	case mp.subQueue <- ev:
	default:
	}
}

// String is a short operator-facing summary, matching the density the
// other core types here use for debug logging.
func (mp *Pool) String() string {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	return fmt.Sprintf("mempool: %d/%d transactions", len(mp.verifiedMap), mp.capacity)
}

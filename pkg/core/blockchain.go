package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/dao"
	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/mempool"
	"github.com/n3fullnode/neofull/pkg/core/mpt"
	"github.com/n3fullnode/neofull/pkg/core/native"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/trigger"
	"github.com/n3fullnode/neofull/pkg/store"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/vmstate"
)

// chainMetaID is a reserved dao storage-id for block/transaction/tip
// bookkeeping. Native contract ids run -1..-9 (see each contract's
// const); ContractManagement hands out positive ids starting at 1.
// This value sits far outside both ranges so chain metadata can live
// in the same dao.Simple key space as everything else without ever
// colliding with real contract storage.
const chainMetaID int32 = -1000

var (
	keyCurrentBlock    = []byte("c")
	keyStateRoot       = []byte("r")
	prefixBlockByHash  = byte('b')
	prefixHashByIndex  = byte('i')
	prefixTxByHash     = byte('t')
)

// isStorageKey reports whether raw is a dao.Simple-addressed
// (contract_id, key) storage entry rather than chain metadata (tip,
// block/tx index) or the state trie's own content-addressed node
// entries — the set of keys the state root is computed over.
func isStorageKey(raw []byte) bool {
	if len(raw) < 4 || bytes.HasPrefix(raw, mpt.NodeKeyPrefix) {
		return false
	}
	id := int32(binary.LittleEndian.Uint32(raw[:4]))
	return id != chainMetaID
}

func blockStorageKey(h util.Uint256) []byte {
	return append([]byte{prefixBlockByHash}, h.BytesLE()...)
}

func indexStorageKey(index uint32) []byte {
	b := make([]byte, 5)
	b[0] = prefixHashByIndex
	binary.BigEndian.PutUint32(b[1:], index)
	return b
}

func txStorageKey(h util.Uint256) []byte {
	return append([]byte{prefixTxByHash}, h.BytesLE()...)
}

// TxExecution is one transaction's outcome within an applied block,
// reported to subscribers alongside the block itself.
type TxExecution struct {
	Tx            *transaction.Transaction
	State         vmstate.State
	GasConsumed   int64
	Notifications []vm.Notification
	FaultErr      error
}

// BlockEvent is delivered to every subscriber once a block has
// committed.
type BlockEvent struct {
	Block *block.Block
	Execs []TxExecution
}

// Blockchain is the ledger pipeline: header and body verification,
// per-block script execution against a write-through snapshot, and
// commit. It implements native.BlockReader (feeding the Ledger native
// contract's queries) and mempool.Feer (feeding mempool admission).
type Blockchain struct {
	cfg       config.ProtocolConfiguration
	store     store.Store
	dao       *dao.Simple
	contracts *native.Contracts
	mempool   *mempool.Pool
	log       *zap.Logger

	mu            sync.RWMutex
	currentIndex  uint32
	currentHash   util.Uint256
	currentHeader *block.Header
	stateRoot     util.Uint256

	subsMu sync.RWMutex
	subs   []chan<- BlockEvent
}

// NewBlockchain opens (or, on an empty store, bootstraps) the chain
// described by cfg over st. The returned Blockchain owns a fresh
// native.Contracts set bound to its own BlockReader/Feer methods.
func NewBlockchain(cfg config.ProtocolConfiguration, st store.Store, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bc := &Blockchain{
		cfg:       cfg,
		store:     st,
		dao:       dao.NewSimple(st),
		contracts: native.NewContracts(),
		log:       log,
	}
	bc.mempool = mempool.New(cfg.MemPoolSize, 0, cfg.P2PSigExtensions)
	bc.contracts.Ledger().BindReader(bc)

	if err := bc.init(); err != nil {
		return nil, err
	}
	return bc, nil
}

func (bc *Blockchain) init() error {
	if h, idx, ok := bc.readTip(); ok {
		b, ok := bc.blockByHash(h)
		if !ok {
			return errors.New("blockchain: current tip is missing from storage")
		}
		bc.currentHash = h
		bc.currentIndex = idx
		bc.currentHeader = &b.Header
		bc.stateRoot = bc.readStateRoot()
		bc.log.Info("chain loaded", zap.Uint32("height", idx), zap.String("hash", h.StringLE()))
		return nil
	}

	genesisStore := store.NewMemCachedStore(bc.store)
	genesisDAO := dao.NewSimple(genesisStore)
	genesis, err := CreateGenesisBlock(&bc.cfg, genesisDAO, bc.contracts)
	if err != nil {
		return errors.Wrap(err, "blockchain: build genesis block")
	}
	if err := bc.storeBlockInto(genesisDAO, genesis); err != nil {
		return errors.Wrap(err, "blockchain: persist genesis block")
	}
	root, err := bc.commitStateRoot(genesisStore, genesisDAO, util.Uint256{})
	if err != nil {
		return errors.Wrap(err, "blockchain: commit genesis state root")
	}
	if err := bc.writeTip(genesisDAO, genesis.Hash(), genesis.Index); err != nil {
		return errors.Wrap(err, "blockchain: record genesis tip")
	}
	if _, err := genesisStore.PersistSync(); err != nil {
		return errors.Wrap(err, "blockchain: persist genesis store")
	}
	bc.currentHash = genesis.Hash()
	bc.currentIndex = genesis.Index
	bc.currentHeader = &genesis.Header
	bc.stateRoot = root
	bc.log.Info("genesis block created", zap.String("hash", bc.currentHash.StringLE()))
	return nil
}

func (bc *Blockchain) readStateRoot() util.Uint256 {
	raw, err := bc.dao.GetStorageItem(chainMetaID, keyStateRoot)
	if err != nil {
		return util.Uint256{}
	}
	r, err := util.Uint256DecodeBytesLE(raw)
	if err != nil {
		return util.Uint256{}
	}
	return r
}

// commitStateRoot folds every (contract_id, key) storage write
// observed in d's backing store's overlay (d must wrap a
// *store.MemCachedStore, or the store itself for the genesis bootstrap
// path) into the MPT rooted at prevRoot, persists the resulting nodes
// through the same store, records the new root under chainMetaID, and
// returns it.
func (bc *Blockchain) commitStateRoot(st *store.MemCachedStore, d *dao.Simple, prevRoot util.Uint256) (util.Uint256, error) {
	batch := st.GetBatch()
	trie := mpt.NewTrie(st, prevRoot)
	for _, kv := range batch.Put {
		if !isStorageKey(kv.Key) {
			continue
		}
		if err := trie.Put(kv.Key, kv.Value); err != nil {
			return util.Uint256{}, fmt.Errorf("state trie put: %w", err)
		}
	}
	for _, kv := range batch.Deleted {
		if !isStorageKey(kv.Key) {
			continue
		}
		if err := trie.Delete(kv.Key); err != nil {
			return util.Uint256{}, fmt.Errorf("state trie delete: %w", err)
		}
	}
	if err := trie.Flush(); err != nil {
		return util.Uint256{}, fmt.Errorf("state trie flush: %w", err)
	}
	root := trie.StateRoot()
	if err := d.PutStorageItem(chainMetaID, keyStateRoot, root.BytesLE()); err != nil {
		return util.Uint256{}, err
	}
	return root, nil
}

// StateRoot returns the MPT commitment over every (contract_id, key)
// storage pair as of the current tip.
func (bc *Blockchain) StateRoot() util.Uint256 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.stateRoot
}

func (bc *Blockchain) readTip() (util.Uint256, uint32, bool) {
	b, err := bc.dao.GetStorageItem(chainMetaID, keyCurrentBlock)
	if err != nil || len(b) != 36 {
		return util.Uint256{}, 0, false
	}
	h, err := util.Uint256DecodeBytesLE(b[:32])
	if err != nil {
		return util.Uint256{}, 0, false
	}
	return h, binary.LittleEndian.Uint32(b[32:]), true
}

func (bc *Blockchain) writeTip(d *dao.Simple, h util.Uint256, idx uint32) error {
	b := make([]byte, 36)
	copy(b, h.BytesLE())
	binary.LittleEndian.PutUint32(b[32:], idx)
	return d.PutStorageItem(chainMetaID, keyCurrentBlock, b)
}

func (bc *Blockchain) storeBlockInto(d *dao.Simple, b *block.Block) error {
	if err := d.PutStorageItem(chainMetaID, blockStorageKey(b.Hash()), b.Bytes()); err != nil {
		return err
	}
	if err := d.PutStorageItem(chainMetaID, indexStorageKey(b.Index), b.Hash().BytesLE()); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		val := make([]byte, 4, 4+len(tx.Bytes()))
		binary.LittleEndian.PutUint32(val, b.Index)
		val = append(val, tx.Bytes()...)
		if err := d.PutStorageItem(chainMetaID, txStorageKey(tx.Hash()), val); err != nil {
			return err
		}
	}
	return nil
}

func (bc *Blockchain) blockByHash(h util.Uint256) (*block.Block, bool) {
	raw, err := bc.dao.GetStorageItem(chainMetaID, blockStorageKey(h))
	if err != nil {
		return nil, false
	}
	b, err := block.NewBlockFromBytes(raw)
	if err != nil {
		return nil, false
	}
	return b, true
}

// --- native.BlockReader ---

// GetBlock implements native.BlockReader.
func (bc *Blockchain) GetBlock(h util.Uint256) (*block.Block, bool) { return bc.blockByHash(h) }

// GetBlockByIndex implements native.BlockReader.
func (bc *Blockchain) GetBlockByIndex(index uint32) (*block.Block, bool) {
	raw, err := bc.dao.GetStorageItem(chainMetaID, indexStorageKey(index))
	if err != nil {
		return nil, false
	}
	h, err := util.Uint256DecodeBytesLE(raw)
	if err != nil {
		return nil, false
	}
	return bc.blockByHash(h)
}

// GetTransaction implements native.BlockReader.
func (bc *Blockchain) GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool) {
	raw, err := bc.dao.GetStorageItem(chainMetaID, txStorageKey(h))
	if err != nil || len(raw) < 4 {
		return nil, 0, false
	}
	tx, err := transaction.NewTransactionFromBytes(raw[4:])
	if err != nil {
		return nil, 0, false
	}
	return tx, binary.LittleEndian.Uint32(raw[:4]), true
}

// CurrentIndex implements native.BlockReader.
func (bc *Blockchain) CurrentIndex() uint32 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentIndex
}

// CurrentHash implements native.BlockReader.
func (bc *Blockchain) CurrentHash() util.Uint256 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentHash
}

// CurrentHeader returns the tip header, used by consensus to derive
// the next block's PrevHash/Index/NextConsensus.
func (bc *Blockchain) CurrentHeader() *block.Header {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentHeader
}

// HasTransaction reports whether h is a confirmed transaction, the
// Conflicts-attribute check VerifyStateDependent needs against chain
// history rather than just the mempool.
func (bc *Blockchain) HasTransaction(h util.Uint256) bool {
	_, _, ok := bc.GetTransaction(h)
	return ok
}

// Config implements consensus.Ledger, exposing the network-wide
// parameters (block time, per-block caps) the dBFT service needs to
// pace its timers and bound candidate block construction.
func (bc *Blockchain) Config() config.ProtocolConfiguration { return bc.cfg }

// Validators implements consensus.Ledger: the validator set that must
// sign the block built on top of the current tip, as the NEO native
// contract currently reports it.
func (bc *Blockchain) Validators() ([]*keys.PublicKey, error) {
	ic := bc.readOnlyContext()
	vs := bc.contracts.NEO().NextValidators(ic)
	if len(vs) == 0 {
		return nil, fmt.Errorf("blockchain: no validators configured")
	}
	return vs, nil
}

// NextConsensusAddress implements consensus.Ledger: the multisig
// account hash (M = n - f threshold over the current Validators
// set) a candidate block built on the current tip must
// carry as its NextConsensus field.
func (bc *Blockchain) NextConsensusAddress() (util.Uint160, error) {
	vs, err := bc.Validators()
	if err != nil {
		return util.Uint160{}, err
	}
	m := len(vs) - (len(vs)-1)/3
	script, err := keys.CreateMultisigVerificationScript(m, vs)
	if err != nil {
		return util.Uint160{}, err
	}
	return hash.Hash160(script), nil
}

// --- mempool.Feer ---

func (bc *Blockchain) readOnlyContext() *interop.Context {
	ic := &interop.Context{DAO: bc.dao, Trigger: trigger.Application, Network: uint32(bc.cfg.Magic), Block: &block.Block{Header: *bc.CurrentHeader()}}
	ic.Committee = func() (util.Uint160, error) { return bc.contracts.NEO().CommitteeAddress(ic) }
	bc.wireGroups(ic)
	bc.wireHardforks(ic, bc.CurrentHeader().Index)
	return ic
}

// wireHardforks gives ic the configured activation schedule, evaluated
// at the given block height.
func (bc *Blockchain) wireHardforks(ic *interop.Context, height uint32) {
	ic.Hardforks = func(hf config.Hardfork) bool {
		return bc.cfg.IsHardforkEnabled(hf, height)
	}
}

// wireGroups gives ic access to deployed contracts' manifest group
// keys, which group-scoped witness conditions match against.
func (bc *Blockchain) wireGroups(ic *interop.Context) {
	ic.Groups = func(h util.Uint160) [][33]byte {
		cs, err := bc.contracts.Management().GetContract(ic, h)
		if err != nil || cs == nil {
			return nil
		}
		groups := make([][33]byte, 0, len(cs.Manifest.Groups))
		for _, g := range cs.Manifest.Groups {
			var key [33]byte
			copy(key[:], g.PublicKey.Bytes())
			groups = append(groups, key)
		}
		return groups
	}
}

// GetBaseExecFee implements mempool.Feer.
func (bc *Blockchain) GetBaseExecFee() int64 {
	fee, err := bc.contracts.Policy().ExecFeeFactor(bc.readOnlyContext())
	if err != nil {
		return vm.DefaultExecFeeFactor
	}
	return fee
}

// FeePerByte implements mempool.Feer.
func (bc *Blockchain) FeePerByte() int64 {
	fee, err := bc.contracts.Policy().FeePerByte(bc.readOnlyContext())
	if err != nil {
		return 0
	}
	return fee
}

// BlockHeight implements mempool.Feer.
func (bc *Blockchain) BlockHeight() uint32 { return bc.CurrentIndex() }

// GetUtilityTokenBalance implements mempool.Feer.
func (bc *Blockchain) GetUtilityTokenBalance(h util.Uint160) *big.Int {
	bal, err := bc.contracts.GAS().BalanceOf(bc.readOnlyContext(), h)
	if err != nil {
		return big.NewInt(0)
	}
	return bal
}

// P2PSigExtensionsEnabled implements mempool.Feer.
func (bc *Blockchain) P2PSigExtensionsEnabled() bool { return bc.cfg.P2PSigExtensions }

// GetMemPool returns the pool fed by this chain's Feer implementation,
// the entry point consensus drains to build a candidate block and P2P
// feeds with relayed transactions.
func (bc *Blockchain) GetMemPool() *mempool.Pool { return bc.mempool }

// Contracts returns the native contract registry backing this chain.
func (bc *Blockchain) Contracts() *native.Contracts { return bc.contracts }

// Subscribe registers ch to receive every future BlockEvent.
func (bc *Blockchain) Subscribe(ch chan<- BlockEvent) {
	bc.subsMu.Lock()
	defer bc.subsMu.Unlock()
	bc.subs = append(bc.subs, ch)
}

func (bc *Blockchain) notify(ev BlockEvent) {
	bc.subsMu.RLock()
	defer bc.subsMu.RUnlock()
	for _, ch := range bc.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// VerifyTx runs full state-independent and state-dependent checks
// against tx as it stands relative to the committed chain tip, the
// check mempool admission uses before Add.
func (bc *Blockchain) VerifyTx(tx *transaction.Transaction) error {
	if err := VerifyStateIndependent(tx, bc.CurrentIndex(), bc.cfg.MaxValidUntilBlockIncrement, bc.FeePerByte()); err != nil {
		return err
	}
	ic := bc.readOnlyContext()
	ic.Container = tx
	return VerifyStateDependent(ic, bc.contracts, tx, bc.HasTransaction)
}

// AddTransaction verifies tx and, if it passes, admits it into the
// mempool: the single entry point pkg/network uses for both
// unsolicited Tx pushes and GetData-answered ones, so every admission
// path runs the same checks.
func (bc *Blockchain) AddTransaction(tx *transaction.Transaction) error {
	if err := bc.VerifyTx(tx); err != nil {
		return err
	}
	return bc.mempool.Add(tx, bc)
}

// AddBlock validates b against the current tip, applies every
// transaction under a write-through snapshot, commits, and notifies
// subscribers. Blocks must be submitted in order; AddBlock rejects
// anything whose PrevHash/Index does not extend the current tip.
func (bc *Blockchain) AddBlock(b *block.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if err := bc.verifyHeader(&b.Header); err != nil {
		return errors.Wrap(err, "blockchain: header")
	}
	if err := bc.verifyBody(b); err != nil {
		return errors.Wrap(err, "blockchain: body")
	}

	execs, snap, newRoot, err := bc.applyBlock(b)
	if err != nil {
		return errors.Wrap(err, "blockchain: apply")
	}
	if _, err := snap.PersistSync(); err != nil {
		return errors.Wrap(err, "blockchain: commit")
	}

	bc.currentHash = b.Hash()
	bc.currentIndex = b.Index
	bc.currentHeader = &b.Header
	bc.stateRoot = newRoot

	bc.log.Info("block persisted",
		zap.Uint32("index", b.Index),
		zap.String("hash", b.Hash().StringLE()),
		zap.Int("txs", len(b.Transactions)))

	feer := Feer(bc)
	bc.mempool.RemoveStale(func(tx *transaction.Transaction) bool {
		return bc.VerifyTx(tx) == nil
	}, feer)

	bc.notify(BlockEvent{Block: b, Execs: execs})
	return nil
}

// Feer is a type alias used only to spell out, at the AddBlock call
// site, that *Blockchain is being passed in its Feer capacity.
type Feer = mempool.Feer

// verifyHeader checks b.Header against the current tip: it must
// extend the chain by exactly one index, carry a later timestamp, and
// be witnessed by the multisig account the prior block designated as
// NextConsensus.
func (bc *Blockchain) verifyHeader(h *block.Header) error {
	if h.Version != block.VersionInitial {
		return fmt.Errorf("unsupported header version %d", h.Version)
	}
	if h.PrevHash != bc.currentHash {
		return fmt.Errorf("PrevHash %s does not match current tip %s", h.PrevHash.StringLE(), bc.currentHash.StringLE())
	}
	if h.Index != bc.currentIndex+1 {
		return fmt.Errorf("Index %d does not extend current height %d", h.Index, bc.currentIndex)
	}
	if h.Timestamp <= bc.currentHeader.Timestamp {
		return fmt.Errorf("timestamp %d does not advance past %d", h.Timestamp, bc.currentHeader.Timestamp)
	}
	expected := bc.currentHeader.NextConsensus
	if h.Script.ScriptHash() != expected {
		return fmt.Errorf("witness account %s does not match expected next consensus %s", h.Script.ScriptHash().StringLE(), expected.StringLE())
	}
	if _, err := verifyWitnessScript(&h.Script, h.Hash().BytesBE(), headerWitnessGasLimit); err != nil {
		return fmt.Errorf("consensus witness: %w", err)
	}
	return nil
}

// headerWitnessGasLimit bounds the gas a block header's consensus
// witness may spend verifying its multisig signature. Block headers
// carry no fee of their own (unlike transactions, whose NetworkFee
// funds their own witness check), so this is a fixed generous cap
// rather than anything derived from chain state.
const headerWitnessGasLimit = 10_0000_0000

// verifyBody checks the transaction list against the header's
// committed Merkle root, per-block resource limits, and runs full
// transaction verification on every entry.
func (bc *Blockchain) verifyBody(b *block.Block) error {
	if len(b.Transactions) > int(bc.cfg.MaxTransactionsPerBlock) {
		return fmt.Errorf("%d transactions exceeds the per-block maximum %d", len(b.Transactions), bc.cfg.MaxTransactionsPerBlock)
	}
	if b.ComputeMerkleRoot() != b.MerkleRoot {
		return errors.New("merkle root does not match transaction list")
	}
	seen := make(map[util.Uint256]struct{}, len(b.Transactions))
	var totalSystemFee int64
	for _, tx := range b.Transactions {
		if _, dup := seen[tx.Hash()]; dup {
			return fmt.Errorf("duplicate transaction %s", tx.Hash().StringLE())
		}
		seen[tx.Hash()] = struct{}{}
		totalSystemFee += tx.SystemFee
		if err := bc.VerifyTx(tx); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.Hash().StringLE(), err)
		}
	}
	if bc.cfg.MaxBlockSystemFee > 0 && totalSystemFee > bc.cfg.MaxBlockSystemFee {
		return fmt.Errorf("block system fee %d exceeds maximum %d", totalSystemFee, bc.cfg.MaxBlockSystemFee)
	}
	return nil
}

// applyBlock runs OnPersist, every transaction's script under the
// Application trigger, then PostPersist, all against a single
// write-through snapshot layered over the committed store. The caller
// is responsible for calling PersistSync on the returned snapshot once
// it is satisfied the block should land.
func (bc *Blockchain) applyBlock(b *block.Block) ([]TxExecution, *store.MemCachedStore, util.Uint256, error) {
	snapStore := store.NewMemCachedStore(bc.store)
	snapDAO := dao.NewSimple(snapStore)

	ic := &interop.Context{DAO: snapDAO, Trigger: trigger.OnPersist, Network: uint32(bc.cfg.Magic), Block: b}
	ic.Committee = func() (util.Uint160, error) { return bc.contracts.NEO().CommitteeAddress(ic) }
	bc.wireGroups(ic)
	bc.wireHardforks(ic, b.Index)

	if err := bc.contracts.OnPersist(ic); err != nil {
		return nil, nil, util.Uint256{}, fmt.Errorf("OnPersist: %w", err)
	}

	execs := make([]TxExecution, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		exec, err := bc.applyTransaction(snapDAO, b, tx)
		if err != nil {
			return nil, nil, util.Uint256{}, fmt.Errorf("applying tx %s: %w", tx.Hash().StringLE(), err)
		}
		execs = append(execs, exec)
	}

	ic.Trigger = trigger.PostPersist
	if err := bc.contracts.PostPersist(ic); err != nil {
		return nil, nil, util.Uint256{}, fmt.Errorf("PostPersist: %w", err)
	}
	if err := bc.storeBlockInto(snapDAO, b); err != nil {
		return nil, nil, util.Uint256{}, fmt.Errorf("recording block: %w", err)
	}
	newRoot, err := bc.commitStateRoot(snapStore, snapDAO, bc.stateRoot)
	if err != nil {
		return nil, nil, util.Uint256{}, fmt.Errorf("committing state root: %w", err)
	}
	if err := bc.writeTip(snapDAO, b.Hash(), b.Index); err != nil {
		return nil, nil, util.Uint256{}, fmt.Errorf("advancing tip: %w", err)
	}
	return execs, snapStore, newRoot, nil
}

// applyTransaction deducts tx's declared fees up front (a FAULTed
// script still pays for the gas and bytes it consumed) and runs its
// entry script under the Application trigger with GasLimit capped to
// SystemFee; a FAULT leaves every other state change from this
// transaction intact (gas is consumed as the VM runs, not refunded on
// fault) but does not abort block application.
func (bc *Blockchain) applyTransaction(d *dao.Simple, b *block.Block, tx *transaction.Transaction) (TxExecution, error) {
	ic := &interop.Context{DAO: d, Trigger: trigger.Application, Network: uint32(bc.cfg.Magic), Block: b, Container: tx}
	ic.Committee = func() (util.Uint160, error) { return bc.contracts.NEO().CommitteeAddress(ic) }
	bc.wireGroups(ic)
	bc.wireHardforks(ic, b.Index)

	sender := tx.Sender()
	if err := bc.contracts.GAS().Burn(ic, sender, big.NewInt(tx.SystemFee+tx.NetworkFee)); err != nil {
		return TxExecution{}, fmt.Errorf("fee deduction for sender %s: %w", sender.StringLE(), err)
	}

	v := vm.New(newInteropRegistry(ic, bc.contracts))
	ic.VM = v
	v.GasLimit = tx.SystemFee
	v.Trigger = trigger.Application
	v.Store = &contractResolver{ic: ic, contracts: bc.contracts}
	v.NativeCall = func(vv *vm.VM, id uint32) error { return bc.contracts.Invoke(ic, vv, id) }
	v.TokenCall = func(vv *vm.VM, index uint16) error { return tokenCall(ic, bc.contracts, vv, index) }
	v.Load(tx.Script)
	runErr := v.Run()

	return TxExecution{
		Tx:            tx,
		State:         v.State,
		GasConsumed:   v.GasConsumed,
		Notifications: v.Notifications,
		FaultErr:      runErr,
	}, nil
}

package consensus

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/mempool"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

// Ledger is the slice of the blockchain core a consensus Service
// needs: the current tip, the mempool to drain, and a way to commit a
// finalized block back through the normal block-application pipeline.
// Kept narrow so this package depends on method signatures, not on
// pkg/core's concrete Blockchain type.
type Ledger interface {
	CurrentIndex() uint32
	CurrentHeader() *block.Header
	Config() config.ProtocolConfiguration
	GetMemPool() *mempool.Pool
	AddBlock(b *block.Block) error
	HasTransaction(h util.Uint256) bool
	// Validators returns the validator set the block after the
	// current tip must be signed by, in the NEO contract's own order
	// (unsorted; this package sorts where a multisig script demands
	// it).
	Validators() ([]*keys.PublicKey, error)
	// NextConsensusAddress is the multisig account hash a candidate
	// built on top of the current tip must set as its NextConsensus
	// field (the validator set one round further out).
	NextConsensusAddress() (util.Uint160, error)
}

// Config wires a Service to its environment: identity, network
// parameters, and the callbacks used to reach the outside world
// (P2P broadcast, missing-transaction requests).
type Config struct {
	Logger       *zap.Logger
	Chain        Ledger
	PrivateKey   *keys.PrivateKey
	Network      uint32
	TimePerBlock time.Duration

	// Broadcast relays a signed consensus Payload to every peer.
	Broadcast func(p *Payload)
	// RequestTransactions asks the P2P layer to fetch transactions by
	// hash (GetData) because the local mempool doesn't have them yet.
	RequestTransactions func(hashes []util.Uint256)

	// Clock is the monotonic source consensus timers run on;
	// defaults to the real wall clock.
	Clock clock.Clock
}

// Service runs the per-validator dBFT state machine: one goroutine,
// a mailbox of inbound events, and a single
// Context mutated only from within that goroutine.
type Service struct {
	cfg   Config
	log   *zap.Logger
	clock clock.Clock

	context *Context

	payloads chan *Payload
	txs      chan *transaction.Transaction
	blocks   chan blockPersisted
	timer    *clock.Timer

	quit    chan struct{}
	started bool
}

type blockPersisted struct {
	index     uint32
	hash      util.Uint256
	timestamp uint64
}

// NewService validates cfg and returns a Service ready to Start.
func NewService(cfg Config) (*Service, error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("consensus: Chain is required")
	}
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("consensus: PrivateKey is required")
	}
	if cfg.Broadcast == nil {
		return nil, fmt.Errorf("consensus: Broadcast is required")
	}
	if cfg.TimePerBlock <= 0 {
		cfg.TimePerBlock = 15 * time.Second
	}
	if cfg.Logger == nil {
		l, err := getLogger()
		if err != nil {
			return nil, err
		}
		cfg.Logger = l
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Service{
		cfg:      cfg,
		log:      cfg.Logger,
		clock:    cfg.Clock,
		payloads: make(chan *Payload, 64),
		txs:      make(chan *transaction.Transaction, 256),
		blocks:   make(chan blockPersisted, 4),
		quit:     make(chan struct{}),
	}, nil
}

// Start launches the mailbox goroutine and opens the first round for
// the block following the chain's current tip.
func (s *Service) Start() {
	if s.started {
		return
	}
	s.started = true
	s.timer = s.clock.Timer(s.cfg.TimePerBlock)
	go s.run()
	s.initializeConsensus(s.cfg.Chain.CurrentIndex() + 1)
}

// Shutdown stops the mailbox goroutine. The Service cannot be
// restarted afterward.
func (s *Service) Shutdown() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

// nonce derives a candidate block's Nonce field from the current
// view's primary timestamp bits: deterministic given the same round
// and clock tick, unique enough across rounds that it carries no
// consensus meaning beyond occupying the field the header format
// reserves for it.
func (s *Service) nonce() uint64 {
	return uint64(s.clock.Now().UnixNano())
}

// OnPayload enqueues a consensus Payload received from a peer.
func (s *Service) OnPayload(p *Payload) {
	select {
	case s.payloads <- p:
	case <-s.quit:
	}
}

// OnTransaction notifies the Service that a transaction it may be
// waiting on (to complete a PrepareRequest's declared set) has become
// available, whether relayed by a peer or newly admitted locally.
func (s *Service) OnTransaction(tx *transaction.Transaction) {
	select {
	case s.txs <- tx:
	case <-s.quit:
	}
}

// OnPersisted notifies the Service that a block has been committed to
// the chain (by this validator or by catching up from P2P), so it
// should abandon the current round and start the next one.
func (s *Service) OnPersisted(index uint32, hash util.Uint256, timestamp uint64) {
	select {
	case s.blocks <- blockPersisted{index, hash, timestamp}:
	case <-s.quit:
	}
}

func (s *Service) run() {
	for {
		select {
		case <-s.quit:
			return
		case p := <-s.payloads:
			s.onPayload(p)
		case tx := <-s.txs:
			s.onTransaction(tx)
		case bp := <-s.blocks:
			if bp.index >= s.context.BlockIndex {
				s.initializeConsensusAt(bp.index+1, bp.hash, bp.timestamp)
			}
		case <-s.timer.C:
			s.onTimeout()
		}
	}
}

func (s *Service) resetTimer(d time.Duration) {
	s.timer.Stop()
	s.timer.Reset(d)
}

func viewTimeout(base time.Duration, view byte) time.Duration {
	d := base
	n := view
	if n > 6 {
		n = 6
	}
	for i := byte(0); i < n; i++ {
		d *= 2
	}
	return d
}

func (s *Service) initializeConsensus(index uint32) {
	h := s.cfg.Chain.CurrentHeader()
	s.initializeConsensusAt(index, h.Hash(), h.Timestamp)
}

func (s *Service) initializeConsensusAt(index uint32, prevHash util.Uint256, prevTimestamp uint64) {
	validators, err := s.cfg.Chain.Validators()
	if err != nil {
		s.log.Error("consensus: cannot resolve validators", zap.Error(err))
		s.resetTimer(s.cfg.TimePerBlock)
		return
	}
	ctx := NewContext(len(validators))
	ctx.Validators = validators
	ctx.PrivateKey = s.cfg.PrivateKey
	ctx.MyIndex = -1
	myPub := s.cfg.PrivateKey.PublicKey().Bytes()
	for i, v := range validators {
		if bytes.Equal(v.Bytes(), myPub) {
			ctx.MyIndex = i
			break
		}
	}
	ctx.resetForBlock(index, prevHash, prevTimestamp)
	s.context = ctx

	s.log.Info("consensus: new round", zap.Uint32("index", index), zap.Int("myIndex", ctx.MyIndex), zap.Bool("primary", ctx.IsPrimary()))

	s.resetTimer(viewTimeout(s.cfg.TimePerBlock, 0))
	if ctx.MyIndex < 0 {
		return // not a validator this round; observe only
	}
	if ctx.IsPrimary() {
		s.sendPrepareRequest()
	}
}

func (s *Service) broadcast(p *Payload) {
	s.cfg.Broadcast(p)
}

// --- timer-driven transitions ---

func (s *Service) onTimeout() {
	if s.context.MyIndex < 0 {
		s.resetTimer(viewTimeout(s.cfg.TimePerBlock, s.context.ViewNumber))
		return
	}
	if s.context.IsPrimary() && !s.context.requestSent() {
		s.sendPrepareRequest()
		s.resetTimer(viewTimeout(s.cfg.TimePerBlock, s.context.ViewNumber))
		return
	}
	s.sendChangeView(CVTimeout)
	s.resetTimer(viewTimeout(s.cfg.TimePerBlock, s.context.ViewNumber+1))
}

// --- outbound message construction ---

func (s *Service) sendPrepareRequest() {
	b, err := s.buildCandidate()
	if err != nil {
		s.log.Error("consensus: cannot build candidate", zap.Error(err))
		return
	}
	s.context.Candidate = b
	s.context.TransactionHashes = make([]util.Uint256, len(b.Transactions))
	for i, tx := range b.Transactions {
		h := tx.Hash()
		s.context.TransactionHashes[i] = h
		s.context.Transactions[h] = tx
	}

	req := &prepareRequest{
		Version:           b.Version,
		PrevHash:          b.PrevHash,
		Timestamp:         b.Timestamp,
		Nonce:             b.Nonce,
		NextConsensus:     b.NextConsensus,
		TransactionHashes: s.context.TransactionHashes,
	}
	p := newPayload(s.cfg.Network, uint16(s.context.MyIndex), s.context.BlockIndex, s.context.ViewNumber, prepareRequestType, req)
	if err := sign(p, s.context.PrivateKey); err != nil {
		s.log.Error("consensus: cannot sign PrepareRequest", zap.Error(err))
		return
	}
	s.context.PreparationPayloads[s.context.MyIndex] = p
	s.context.State = StateRequestSent
	s.broadcast(p)
	s.checkPreparations()
}

func (s *Service) sendPrepareResponse() {
	primaryPayload := s.context.PreparationPayloads[s.context.PrimaryIndex(s.context.ViewNumber)]
	resp := &prepareResponse{PreparationHash: primaryPayload.Hash()}
	p := newPayload(s.cfg.Network, uint16(s.context.MyIndex), s.context.BlockIndex, s.context.ViewNumber, prepareResponseType, resp)
	if err := sign(p, s.context.PrivateKey); err != nil {
		s.log.Error("consensus: cannot sign PrepareResponse", zap.Error(err))
		return
	}
	s.context.PreparationPayloads[s.context.MyIndex] = p
	s.context.State = StateResponseSent
	s.broadcast(p)
	s.checkPreparations()
}

func (s *Service) sendChangeView(reason byte) {
	if s.context.sentChangeView || s.context.MyIndex < 0 {
		return
	}
	newView := s.context.ViewNumber + 1
	cv := &changeView{NewViewNumber: newView, Reason: reason, Timestamp: uint64(s.clock.Now().UnixMilli())}
	p := newPayload(s.cfg.Network, uint16(s.context.MyIndex), s.context.BlockIndex, s.context.ViewNumber, changeViewType, cv)
	if err := sign(p, s.context.PrivateKey); err != nil {
		s.log.Error("consensus: cannot sign ChangeView", zap.Error(err))
		return
	}
	s.context.ChangeViewPayloads[s.context.MyIndex] = p
	s.context.sentChangeView = true
	s.context.State = StateViewChanging
	s.broadcast(p)
	if s.context.countChangeViews(newView) >= s.context.M() {
		s.changeView(newView)
	}
}

func (s *Service) changeView(newView byte) {
	if newView <= s.context.ViewNumber {
		return
	}
	s.context.reset(newView)
	s.log.Info("consensus: view change", zap.Uint32("index", s.context.BlockIndex), zap.Uint8("view", newView))
	s.resetTimer(viewTimeout(s.cfg.TimePerBlock, newView))
	if s.context.MyIndex >= 0 && s.context.IsPrimary() {
		s.sendPrepareRequest()
	}
}

// --- inbound message handling ---

func (s *Service) onTransaction(tx *transaction.Transaction) {
	if s.context.IsPrimary() {
		return // we are primary for this round already, nothing to wait for
	}
	h := tx.Hash()
	if _, wanted := s.context.Transactions[h]; wanted {
		return
	}
	for _, want := range s.context.TransactionHashes {
		if want == h {
			s.context.Transactions[h] = tx
			break
		}
	}
	s.tryRespondToPrepareRequest()
}

func (s *Service) onPayload(p *Payload) {
	if p.Network != s.cfg.Network {
		return
	}
	if int(p.ValidatorIndex) >= s.context.N() {
		return
	}
	if !verify(p) {
		s.log.Warn("consensus: payload failed witness verification", zap.String("type", p.message.Type.String()))
		return
	}

	switch inner := p.payload.(type) {
	case *changeView:
		s.onChangeView(p, inner)
	case *prepareRequest:
		s.onPrepareRequest(p, inner)
	case *prepareResponse:
		s.onPrepareResponse(p, inner)
	case *commitMsg:
		s.onCommit(p, inner)
	case *recoveryRequest:
		s.onRecoveryRequest(p)
	case *recoveryMessage:
		s.onRecoveryMessage(rm2slice(inner))
	}
}

func rm2slice(rm *recoveryMessage) []*Payload {
	out := make([]*Payload, 0, len(rm.ChangeViews)+len(rm.PrepareResponses)+len(rm.Commits)+1)
	out = append(out, rm.ChangeViews...)
	if rm.PrepareRequest != nil {
		out = append(out, rm.PrepareRequest)
	}
	out = append(out, rm.PrepareResponses...)
	out = append(out, rm.Commits...)
	return out
}

func (s *Service) onChangeView(p *Payload, cv *changeView) {
	if p.BlockIndex != s.context.BlockIndex {
		return
	}
	existing := s.context.ChangeViewPayloads[p.ValidatorIndex]
	if existing != nil {
		if existing.payload.(*changeView).NewViewNumber >= cv.NewViewNumber {
			return
		}
	}
	s.context.ChangeViewPayloads[p.ValidatorIndex] = p
	if s.context.countChangeViews(cv.NewViewNumber) >= s.context.M() {
		s.changeView(cv.NewViewNumber)
	}
}

func (s *Service) onPrepareRequest(p *Payload, req *prepareRequest) {
	if p.BlockIndex != s.context.BlockIndex || p.ViewNumber != s.context.ViewNumber {
		return
	}
	if int(p.ValidatorIndex) != s.context.PrimaryIndex(s.context.ViewNumber) {
		return
	}
	if s.context.requestSent() {
		return
	}
	if req.PrevHash != s.context.PrevHash {
		return
	}
	if req.Timestamp <= s.context.PrevTimestamp {
		s.sendChangeView(CVTxInvalid)
		return
	}
	ceiling := uint64(s.clock.Now().UnixMilli()) + 8*uint64(s.cfg.TimePerBlock/time.Millisecond)
	if req.Timestamp > ceiling {
		s.sendChangeView(CVTxInvalid)
		return
	}

	s.context.PreparationPayloads[p.ValidatorIndex] = p
	s.context.TransactionHashes = req.TransactionHashes
	s.context.State = StateRequestReceived

	b := block.New()
	b.Version = req.Version
	b.PrevHash = req.PrevHash
	b.Timestamp = req.Timestamp
	b.Nonce = req.Nonce
	b.Index = s.context.BlockIndex
	b.PrimaryIndex = byte(p.ValidatorIndex)
	b.NextConsensus = req.NextConsensus
	s.context.Candidate = b

	pool := s.cfg.Chain.GetMemPool()
	var missing []util.Uint256
	for _, h := range req.TransactionHashes {
		if tx, ok := pool.TryGetValue(h); ok {
			s.context.Transactions[h] = tx
		} else {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 && s.cfg.RequestTransactions != nil {
		s.cfg.RequestTransactions(missing)
	}
	s.tryRespondToPrepareRequest()
}

func (s *Service) tryRespondToPrepareRequest() {
	if s.context.State != StateRequestReceived || s.context.MyIndex < 0 {
		return
	}
	if !s.context.haveAllTransactions() {
		return
	}
	txs := make([]*transaction.Transaction, len(s.context.TransactionHashes))
	for i, h := range s.context.TransactionHashes {
		txs[i] = s.context.Transactions[h]
	}
	s.context.Candidate.Transactions = txs
	s.context.Candidate.RebuildMerkleRoot()
	s.sendPrepareResponse()
}

func (s *Service) onPrepareResponse(p *Payload, resp *prepareResponse) {
	if p.BlockIndex != s.context.BlockIndex || p.ViewNumber != s.context.ViewNumber {
		return
	}
	if s.context.PreparationPayloads[p.ValidatorIndex] != nil {
		return
	}
	primaryPayload := s.context.PreparationPayloads[s.context.PrimaryIndex(s.context.ViewNumber)]
	if primaryPayload != nil && primaryPayload.Hash() != resp.PreparationHash {
		return
	}
	s.context.PreparationPayloads[p.ValidatorIndex] = p
	s.checkPreparations()
}

func (s *Service) checkPreparations() {
	if s.context.MyIndex < 0 {
		return
	}
	if s.context.State != StateRequestSent && s.context.State != StateResponseSent && s.context.State != StateRequestReceived {
		return
	}
	if s.context.countPreparations() < s.context.M() {
		return
	}
	if s.context.State == StateRequestReceived && !s.context.haveAllTransactions() {
		return
	}
	s.sendCommit()
}

func (s *Service) sendCommit() {
	if s.context.State == StateCommitSent || s.context.Candidate == nil {
		return
	}
	sig, err := s.context.PrivateKey.Sign(s.context.Candidate.Hash().BytesBE())
	if err != nil {
		s.log.Error("consensus: cannot sign commit", zap.Error(err))
		return
	}
	cm := &commitMsg{}
	copy(cm.Signature[:], sig)
	p := newPayload(s.cfg.Network, uint16(s.context.MyIndex), s.context.BlockIndex, s.context.ViewNumber, commitType, cm)
	if err := sign(p, s.context.PrivateKey); err != nil {
		s.log.Error("consensus: cannot sign Commit payload", zap.Error(err))
		return
	}
	s.context.CommitPayloads[s.context.MyIndex] = p
	s.context.State = StateCommitSent
	s.broadcast(p)
	s.checkCommits()
}

func (s *Service) onCommit(p *Payload, cm *commitMsg) {
	if p.BlockIndex != s.context.BlockIndex {
		return
	}
	if s.context.CommitPayloads[p.ValidatorIndex] != nil {
		return
	}
	s.context.CommitPayloads[p.ValidatorIndex] = p
	s.checkCommits()
}

func (s *Service) checkCommits() {
	if s.context.countCommitted() < s.context.M() {
		return
	}
	if s.context.Candidate == nil {
		return
	}
	s.finalizeBlock()
}

type signedCommit struct {
	pub []byte
	sig [64]byte
}

func (s *Service) finalizeBlock() {
	signed := make([]signedCommit, 0, s.context.M())
	for i, p := range s.context.CommitPayloads {
		if p == nil {
			continue
		}
		cm, ok := p.payload.(*commitMsg)
		if !ok {
			continue
		}
		signed = append(signed, signedCommit{pub: s.context.Validators[i].Bytes(), sig: cm.Signature})
	}
	sort.Slice(signed, func(a, b int) bool { return bytes.Compare(signed[a].pub, signed[b].pub) < 0 })

	verification, err := keys.CreateMultisigVerificationScript(s.context.M(), s.context.Validators)
	if err != nil {
		s.log.Error("consensus: cannot build consensus multisig", zap.Error(err))
		return
	}
	invocation := make([]byte, 0, len(signed)*66)
	for _, sc := range signed {
		invocation = append(invocation, byte(opcode.PUSHDATA1), 64)
		invocation = append(invocation, sc.sig[:]...)
	}

	b := s.context.Candidate
	b.Script = transaction.Witness{InvocationScript: invocation, VerificationScript: verification}

	if err := s.cfg.Chain.AddBlock(b); err != nil {
		s.log.Error("consensus: AddBlock failed", zap.Error(err))
		s.sendChangeView(CVBlockRejected)
		return
	}
	s.context.State = StateBlockSent
	s.log.Info("consensus: block committed", zap.Uint32("index", b.Index), zap.String("hash", b.Hash().StringLE()))
	s.initializeConsensusAt(b.Index+1, b.Hash(), b.Timestamp)
}

func (s *Service) onRecoveryRequest(p *Payload) {
	if p.BlockIndex != s.context.BlockIndex || s.context.MyIndex < 0 {
		return
	}
	rm := &recoveryMessage{}
	for _, cv := range s.context.ChangeViewPayloads {
		if cv != nil {
			rm.ChangeViews = append(rm.ChangeViews, cv)
		}
	}
	primary := s.context.PreparationPayloads[s.context.PrimaryIndex(s.context.ViewNumber)]
	if primary != nil {
		if _, ok := primary.payload.(*prepareRequest); ok {
			rm.PrepareRequest = primary
		}
	}
	for i, pp := range s.context.PreparationPayloads {
		if pp != nil && i != s.context.PrimaryIndex(s.context.ViewNumber) {
			rm.PrepareResponses = append(rm.PrepareResponses, pp)
		}
	}
	for _, c := range s.context.CommitPayloads {
		if c != nil {
			rm.Commits = append(rm.Commits, c)
		}
	}
	resp := newPayload(s.cfg.Network, uint16(s.context.MyIndex), s.context.BlockIndex, s.context.ViewNumber, recoveryMessageType, rm)
	if err := sign(resp, s.context.PrivateKey); err != nil {
		s.log.Error("consensus: cannot sign RecoveryMessage", zap.Error(err))
		return
	}
	s.broadcast(resp)
}

func (s *Service) onRecoveryMessage(payloads []*Payload) {
	for _, p := range payloads {
		if p == nil || p.BlockIndex != s.context.BlockIndex {
			continue
		}
		switch inner := p.payload.(type) {
		case *changeView:
			if verify(p) {
				s.onChangeView(p, inner)
			}
		case *prepareRequest:
			if verify(p) {
				s.onPrepareRequest(p, inner)
			}
		case *prepareResponse:
			if verify(p) {
				s.onPrepareResponse(p, inner)
			}
		case *commitMsg:
			if verify(p) {
				s.onCommit(p, inner)
			}
		}
	}
}

// Package node wires the independently-testable subsystems (ledger,
// mempool, consensus, P2P) into a running full node: it owns every
// long-lived handle the process needs and is the only place any of
// them are constructed together — there is no implicit global state,
// configuration is a value passed to the
// orchestrator at startup).
package node

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/consensus"
	"github.com/n3fullnode/neofull/pkg/core"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/network"
	"github.com/n3fullnode/neofull/pkg/network/payload"
	"github.com/n3fullnode/neofull/pkg/store"
)

// Node is a fully-wired peer: the ledger pipeline, its mempool, the
// P2P server relaying to and from it, and (if started with a
// validator key) the dBFT consensus service draining that same
// mempool into candidate blocks.
type Node struct {
	cfg          config.Config
	log          *zap.Logger
	validatorKey *keys.PrivateKey

	chain *core.Blockchain
	p2p   *network.Server
	dbft  *consensus.Service

	events chan core.BlockEvent
	quit   chan struct{}
	wg     sync.WaitGroup
}

// New opens the configured store, bootstraps or reopens the chain on
// top of it, and wires the P2P server; if validatorKey is non-nil the
// consensus service is constructed too (a node with no key follows
// consensus but never participates in it).
func New(cfg config.Config, validatorKey *keys.PrivateKey, log *zap.Logger) (*Node, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("node: invalid configuration: %w", err)
	}

	st, err := store.NewStore(store.DBConfiguration{Type: cfg.Ledger.Engine})
	if err != nil {
		return nil, fmt.Errorf("node: opening store: %w", err)
	}

	chain, err := core.NewBlockchain(cfg.ProtocolConfiguration, st, log.With(zap.String("module", "ledger")))
	if err != nil {
		return nil, fmt.Errorf("node: bootstrapping chain: %w", err)
	}

	// Every witness verification not tied to a transaction's own fee
	// budget (block headers, consensus payloads, extensible envelopes)
	// runs through the same VM witness-script path core's verifier
	// exposes, so pkg/consensus never needs to import pkg/core.
	consensus.BindWitnessVerifier(core.VerifyGenericWitness)

	p2p := network.NewServer(cfg.P2P, uint32(cfg.ProtocolConfiguration.Magic), chain, log.With(zap.String("module", "p2p")), cfg.UserAgent())

	n := &Node{
		cfg:          cfg,
		log:          log,
		validatorKey: validatorKey,
		chain:        chain,
		p2p:          p2p,
		events:       make(chan core.BlockEvent, 16),
		quit:         make(chan struct{}),
	}

	if cfg.Consensus.Enabled {
		if validatorKey == nil {
			return nil, fmt.Errorf("node: consensus enabled but no validator key provided")
		}
		svc, err := consensus.NewService(consensus.Config{
			Logger:              log.With(zap.String("module", "dbft")),
			Chain:               chain,
			PrivateKey:          validatorKey,
			Network:             uint32(cfg.ProtocolConfiguration.Magic),
			TimePerBlock:        cfg.ProtocolConfiguration.TimePerBlock,
			Broadcast:           n.broadcastConsensus,
			RequestTransactions: n.requestTransactions,
		})
		if err != nil {
			return nil, fmt.Errorf("node: starting consensus: %w", err)
		}
		n.dbft = svc
		p2p.SetConsensusService(svc)
	}

	p2p.HandleExtensible(payload.ConsensusCategory, n.onConsensusExtensible)
	chain.Subscribe(n.events)

	return n, nil
}

// Start begins P2P listening/dialing and, if configured, the
// consensus timer loop. It returns once listeners are up; every
// subsystem runs its own background goroutines beyond this point.
func (n *Node) Start(seeds []string) error {
	if err := n.p2p.Start(seeds); err != nil {
		return err
	}
	n.wg.Add(1)
	go n.pumpBlockEvents()
	if n.dbft != nil {
		n.dbft.Start()
	}
	n.log.Info("node started", zap.Uint32("height", n.chain.CurrentIndex()))
	return nil
}

// Shutdown stops consensus and P2P in that order, so no new consensus
// message is produced after peers stop being reachable, then drains
// the block-event pump.
func (n *Node) Shutdown() {
	if n.dbft != nil {
		n.dbft.Shutdown()
	}
	n.p2p.Shutdown()
	close(n.quit)
	n.wg.Wait()
}

// pumpBlockEvents forwards every committed block to the P2P relay and,
// for a participating validator, into the consensus service's own
// persisted-block notification so it abandons a stale round as soon
// as catch-up (from P2P or its own commit) lands the next block.
func (n *Node) pumpBlockEvents() {
	defer n.wg.Done()
	for {
		select {
		case <-n.quit:
			return
		case ev := <-n.events:
			n.p2p.OnNewBlock(ev.Block.Hash())
			if n.dbft != nil {
				n.dbft.OnPersisted(ev.Block.Index, ev.Block.Hash(), ev.Block.Timestamp)
			}
			blocksApplied.Inc()
			n.sampleMempoolSize()
			peerCount.Set(float64(n.p2p.PeerCount()))
		}
	}
}

// Chain exposes the ledger for callers that need direct read access
// (e.g. an RPC surface layered on top).
func (n *Node) Chain() *core.Blockchain { return n.chain }

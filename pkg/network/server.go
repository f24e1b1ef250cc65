// Package network implements the length-prefixed P2P transport:
// handshake, inventory/getdata relay, and per-peer resource
// accounting atop TCP.
package network

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/mempool"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	iop "github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/network/capability"
	"github.com/n3fullnode/neofull/pkg/network/payload"
	"github.com/n3fullnode/neofull/pkg/util"
)

// Ledger is the slice of the blockchain core the server needs to
// answer inventory requests and admit incoming blocks/transactions,
// kept narrow for the same reason pkg/consensus.Ledger is: no import
// of pkg/core's concrete type into this package.
type Ledger interface {
	CurrentIndex() uint32
	CurrentHash() util.Uint256
	GetBlock(h util.Uint256) (*block.Block, bool)
	GetBlockByIndex(index uint32) (*block.Block, bool)
	GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool)
	HasTransaction(h util.Uint256) bool
	VerifyTx(tx *transaction.Transaction) error
	// AddTransaction verifies tx and admits it into the mempool,
	// matching the data flow a directly-pushed Tx message and a
	// GetData-answered one both go through.
	AddTransaction(tx *transaction.Transaction) error
	AddBlock(b *block.Block) error
	GetMemPool() *mempool.Pool
}

// ConsensusService is the slice of pkg/consensus.Service the server
// drives: inbound transactions and Extensible envelopes are handed
// off to it, never interpreted here.
type ConsensusService interface {
	OnTransaction(tx *transaction.Transaction)
}

// ExtensibleHandler processes a decoded Extensible envelope addressed
// to a particular Category (e.g. consensus payloads); registered per
// category so this package stays agnostic of what rides inside one.
type ExtensibleHandler func(e *payload.Extensible) error

// Server is the P2P node: it accepts and dials connections, runs the
// handshake and message dispatch loop for each, and relays inventory
// between peers and the ledger/mempool.
type Server struct {
	config config.P2P
	magic  uint32
	id     uint32
	chain  Ledger
	log    *zap.Logger

	consensusSvc ConsensusService

	userAgent   string
	startHeight func() uint32

	peersMu sync.RWMutex
	peers   map[string]*Peer

	extMu      sync.RWMutex
	extHandlers map[string]ExtensibleHandler
	extCache    *relayCache

	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewServer builds a Server bound to chain and configured per cfg.
// userAgent is advertised verbatim in this node's Version payload.
func NewServer(cfg config.P2P, magic uint32, chain Ledger, log *zap.Logger, userAgent string) *Server {
	return &Server{
		config:      cfg,
		magic:       magic,
		id:          randomNonce(),
		chain:       chain,
		log:         log,
		userAgent:   userAgent,
		startHeight: chain.CurrentIndex,
		peers:       make(map[string]*Peer),
		extHandlers: make(map[string]ExtensibleHandler),
		extCache:    newFIFOCache(extCacheCapacity),
		quit:        make(chan struct{}),
	}
}

func randomNonce() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// SetConsensusService registers the consensus service to be notified
// of every transaction admitted through onTx, so a validator learns
// about transactions it is waiting on to complete a PrepareRequest
// without polling the mempool.
func (s *Server) SetConsensusService(cs ConsensusService) {
	s.consensusSvc = cs
}

// HandleExtensible registers the handler invoked for every validated
// Extensible envelope whose Category matches.
func (s *Server) HandleExtensible(category string, h ExtensibleHandler) {
	s.extMu.Lock()
	s.extHandlers[category] = h
	s.extMu.Unlock()
}

// Start begins listening on every configured address and dialing out
// to seed peers until AttemptConnPeers outbound connections are
// established.
func (s *Server) Start(seeds []string) error {
	for _, addr := range s.config.Addresses {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("network: listen %s: %w", addr, err)
		}
		s.listener = ln
		s.wg.Add(1)
		go s.acceptLoop(ln)
	}
	s.wg.Add(1)
	go s.discoveryLoop(seeds)
	s.wg.Add(1)
	go s.pingLoop()
	return nil
}

// Shutdown disconnects every peer and stops accepting/dialing.
func (s *Server) Shutdown() {
	select {
	case <-s.quit:
		return
	default:
		close(s.quit)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.peersMu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.peersMu.RUnlock()
	for _, p := range peers {
		p.Disconnect(fmt.Errorf("network: server shutting down"))
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	// s.listener holds only the last listener Start opened, so each
	// loop closes its own on shutdown.
	go func() {
		<-s.quit
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Warn("accept failed", zap.Error(err))
				continue
			}
		}
		s.handleConn(conn, false)
	}
}

// discoveryLoop dials the seed addresses and then, on each tick while
// below AttemptConnPeers outbound connections, redials the seeds it is
// not connected to. Addresses a peer advertises in Addr are dialed by
// onAddr; the server never sends GetAddr itself.
func (s *Server) discoveryLoop(seeds []string) {
	defer s.wg.Done()
	for _, addr := range seeds {
		s.dial(addr)
	}
	ticker := time.NewTicker(s.config.ProtoTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			if s.outboundCount() >= s.config.AttemptConnPeers {
				continue
			}
			for _, addr := range seeds {
				if s.outboundCount() >= s.config.AttemptConnPeers {
					break
				}
				if !s.connectedTo(addr) {
					s.dial(addr)
				}
			}
		}
	}
}

func (s *Server) dial(addr string) {
	conn, err := net.DialTimeout("tcp", addr, s.config.DialTimeout)
	if err != nil {
		s.log.Debug("dial failed", zap.String("addr", addr), zap.Error(err))
		return
	}
	s.handleConn(conn, true)
}

func (s *Server) outboundCount() int {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	n := 0
	for _, p := range s.peers {
		if p.outbound {
			n++
		}
	}
	return n
}

func (s *Server) connectedTo(addr string) bool {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	for _, p := range s.peers {
		if p.RemoteAddr().String() == addr {
			return true
		}
	}
	return false
}

func (s *Server) handleConn(conn net.Conn, outbound bool) {
	s.peersMu.Lock()
	if len(s.peers) >= s.config.MaxPeers {
		s.peersMu.Unlock()
		_ = conn.Close()
		return
	}
	perIP := 0
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	for _, p := range s.peers {
		if h, _, _ := net.SplitHostPort(p.RemoteAddr().String()); h == host {
			perIP++
		}
	}
	if s.config.MaxPeersPerIP > 0 && perIP >= s.config.MaxPeersPerIP {
		s.peersMu.Unlock()
		_ = conn.Close()
		return
	}
	p := newPeer(conn, s, outbound)
	s.peers[p.id] = p
	s.peersMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		go p.writeLoop()
		if err := s.handshake(p); err != nil {
			p.Disconnect(err)
			return
		}
		s.readLoop(p)
	}()
}

func (s *Server) onPeerDisconnected(p *Peer, reason error) {
	s.peersMu.Lock()
	delete(s.peers, p.id)
	s.peersMu.Unlock()
	s.log.Debug("peer disconnected", zap.Stringer("peer", p.RemoteAddr()), zap.Error(reason))
}

// handshake drives Connecting -> ... -> Ready for a freshly accepted
// or dialed connection.
func (s *Server) handshake(p *Peer) error {
	ver := payload.NewVersion(s.magic, s.id, s.userAgent, s.localPort(), s.startHeight(), uint32(time.Now().Unix()))
	p.setState(hsVersionSent)
	if err := s.send(p, NewMessage(s.magic, CMDVersion, ver)); err != nil {
		return err
	}

	m, err := s.recv(p)
	if err != nil {
		return err
	}
	if m.Command != CMDVersion {
		return fmt.Errorf("network: expected version, got %s", m.Command)
	}
	peerVer := m.Payload.(*payload.Version)
	if peerVer.Magic != s.magic {
		return ErrInvalidMagic
	}
	p.setVersion(peerVer)
	p.setState(hsVersionReceived)

	if err := s.send(p, NewMessage(s.magic, CMDVerack, nil)); err != nil {
		return err
	}
	p.setState(hsVerackSent)

	m, err = s.recv(p)
	if err != nil {
		return err
	}
	if m.Command != CMDVerack {
		return fmt.Errorf("network: expected verack, got %s", m.Command)
	}
	p.setState(hsVerackReceived)
	p.setState(hsReady)
	p.touch()
	s.log.Info("peer ready", zap.Stringer("peer", p.RemoteAddr()), zap.String("agent", peerVer.UserAgent))
	return nil
}

func (s *Server) localPort() uint16 {
	for _, addr := range s.config.Addresses {
		if _, portStr, err := net.SplitHostPort(addr); err == nil {
			var port uint16
			_, _ = fmt.Sscan(portStr, &port)
			return port
		}
	}
	return 0
}

func (s *Server) send(p *Peer, m *Message) error {
	b, err := m.Bytes()
	if err != nil {
		return err
	}
	if p.conn != nil {
		_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		_, err = p.conn.Write(b)
	}
	return err
}

func (s *Server) recv(p *Peer) (*Message, error) {
	_ = p.conn.SetReadDeadline(time.Now().Add(s.config.PingTimeout))
	r := iop.NewBinReaderFromIO(p.conn)
	m := &Message{}
	if err := m.Decode(r, s.magic, s.config.MaxPayloadSize); err != nil {
		return nil, err
	}
	if err := m.DecodePayload(); err != nil {
		return nil, err
	}
	return m, nil
}

// readLoop processes every frame from an already-Ready peer until it
// disconnects, dispatching each to the right handler; frames from one
// peer are handled in arrival order.
func (s *Server) readLoop(p *Peer) {
	for {
		m, err := s.recv(p)
		if err != nil {
			p.Disconnect(err)
			return
		}
		p.touch()
		if err := s.handleMessage(p, m); err != nil {
			s.log.Warn("protocol violation", zap.Stringer("peer", p.RemoteAddr()), zap.Error(err))
			p.Disconnect(err)
			return
		}
	}
}

func (s *Server) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.peersMu.RLock()
			peers := make([]*Peer, 0, len(s.peers))
			for _, p := range s.peers {
				peers = append(peers, p)
			}
			s.peersMu.RUnlock()
			for _, p := range peers {
				if p.getState() != hsReady {
					continue
				}
				if p.idleSince() > s.config.PingTimeout {
					p.Disconnect(fmt.Errorf("network: ping timeout"))
					continue
				}
				ping := payload.NewPing(s.chain.CurrentIndex(), randomNonce(), uint32(time.Now().Unix()))
				_ = p.Send(NewMessage(s.magic, CMDPing, ping))
			}
		}
	}
}

// PeerCount returns the number of peers that have completed the
// handshake, for the node's peer_count metric.
func (s *Server) PeerCount() int {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	n := 0
	for _, p := range s.peers {
		if p.getState() == hsReady {
			n++
		}
	}
	return n
}

// Broadcast relays m to every Ready peer.
func (s *Server) Broadcast(m *Message) {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	for _, p := range s.peers {
		if p.getState() == hsReady {
			_ = p.Send(m)
		}
	}
}

// RelayInventory announces typ/hash to every peer that hasn't already
// seen it.
func (s *Server) RelayInventory(typ payload.InvType, hash util.Uint256) {
	inv := payload.NewInventory(typ, []util.Uint256{hash})
	m := NewMessage(s.magic, CMDInv, inv)
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	for _, p := range s.peers {
		if p.getState() != hsReady {
			continue
		}
		if p.markKnown(hash) {
			continue
		}
		_ = p.Send(m)
	}
}

func capabilitiesFor(port uint16, height uint32) capability.List {
	return capability.List{
		{Type: capability.TCPServer, Port: port},
		{Type: capability.FullNode, StartHeight: height},
	}
}

package network

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/n3fullnode/neofull/pkg/network/payload"
)

// handshakeState is where a Peer sits in the Connecting -> ... ->
// Ready state machine every connection must pass through before any
// application payload is processed.
type handshakeState int32

const (
	hsConnecting handshakeState = iota
	hsVersionSent
	hsVersionReceived
	hsVerackSent
	hsVerackReceived
	hsReady
	hsDisconnected
)

// Peer is one established P2P connection, as seen by Server. Outbound
// writes and inventory bookkeeping are safe for concurrent use; the
// handshake fields are only touched from the peer's own read loop.
type Peer struct {
	conn   net.Conn
	server *Server

	id        string
	outbound  bool
	state     int32 // handshakeState, atomic
	sendQueue chan *Message

	versionMu sync.RWMutex
	version   *payload.Version

	// lastSeen drives the ping loop's idle disconnect. bufferedBytes is
	// never updated, so no per-peer byte quota is enforced.
	lastSeen     int64 // unix nano, atomic
	bufferedBytes int64 // atomic

	knownMu sync.Mutex
	known   map[[32]byte]struct{} // inventory hashes already seen from/sent to this peer

	filterMu sync.Mutex
	filter   *payload.BloomFilter // non-nil once the peer has sent FilterLoad

	done chan struct{}
	once sync.Once
}

const maxKnownInventory = 4096

func newPeer(conn net.Conn, s *Server, outbound bool) *Peer {
	return &Peer{
		conn:      conn,
		server:    s,
		id:        uuid.NewString(),
		outbound:  outbound,
		sendQueue: make(chan *Message, 256),
		known:     make(map[[32]byte]struct{}),
		done:      make(chan struct{}),
	}
}

// ID is the connection's unique identifier, used as its map key in
// Server. It is per-connection rather than the remote address so a
// delayed unregister of a dropped connection can never remove a fresh
// reconnection from the same address.
func (p *Peer) ID() string { return p.id }

// RemoteAddr returns the underlying connection's remote address.
func (p *Peer) RemoteAddr() net.Addr { return p.conn.RemoteAddr() }

func (p *Peer) setState(s handshakeState) { atomic.StoreInt32(&p.state, int32(s)) }
func (p *Peer) getState() handshakeState  { return handshakeState(atomic.LoadInt32(&p.state)) }

func (p *Peer) touch() { atomic.StoreInt64(&p.lastSeen, time.Now().UnixNano()) }

func (p *Peer) idleSince() time.Duration {
	last := atomic.LoadInt64(&p.lastSeen)
	if last == 0 {
		return 0
	}
	return time.Since(time.Unix(0, last))
}

// Version returns the peer's advertised Version payload, or nil
// before it's received one.
func (p *Peer) Version() *payload.Version {
	p.versionMu.RLock()
	defer p.versionMu.RUnlock()
	return p.version
}

func (p *Peer) setVersion(v *payload.Version) {
	p.versionMu.Lock()
	p.version = v
	p.versionMu.Unlock()
}

func (p *Peer) LastBlockIndex() uint32 {
	if v := p.Version(); v != nil {
		return v.StartHeight()
	}
	return 0
}

// markKnown records h as seen from or sent to this peer, returning
// whether it was already known (a caller uses this to suppress
// redundant Inv relay back to the peer that supplied the item).
func (p *Peer) markKnown(h [32]byte) bool {
	p.knownMu.Lock()
	defer p.knownMu.Unlock()
	if _, ok := p.known[h]; ok {
		return true
	}
	if len(p.known) >= maxKnownInventory {
		// Cheap unbounded-growth guard: drop the whole set rather than
		// tracking per-entry age for an LRU we don't otherwise need.
		p.known = make(map[[32]byte]struct{})
	}
	p.known[h] = struct{}{}
	return false
}

// SetFilter installs (or, with nil, clears) the peer's bloom filter.
func (p *Peer) SetFilter(f *payload.BloomFilter) {
	p.filterMu.Lock()
	p.filter = f
	p.filterMu.Unlock()
}

// Filter returns the peer's current bloom filter, nil if none loaded.
func (p *Peer) Filter() *payload.BloomFilter {
	p.filterMu.Lock()
	defer p.filterMu.Unlock()
	return p.filter
}

// AddToFilter inserts data into the loaded filter; a FilterAdd before
// any FilterLoad is silently ignored, matching lenient reference
// behaviour for a harmless out-of-order message.
func (p *Peer) AddToFilter(data []byte) {
	p.filterMu.Lock()
	if p.filter != nil {
		p.filter.Add(data)
	}
	p.filterMu.Unlock()
}

// Send enqueues m for delivery to this peer, returning an error
// instead of blocking forever if the peer's outbound buffer is full
// (a slow or stuck peer must not stall the whole server).
func (p *Peer) Send(m *Message) error {
	select {
	case p.sendQueue <- m:
		return nil
	case <-p.done:
		return fmt.Errorf("network: peer %s disconnected", p.RemoteAddr())
	default:
		return fmt.Errorf("network: peer %s send queue full", p.RemoteAddr())
	}
}

// Disconnect closes the connection and unblocks the peer's loops;
// safe to call more than once and from any goroutine.
func (p *Peer) Disconnect(reason error) {
	p.once.Do(func() {
		p.setState(hsDisconnected)
		close(p.done)
		_ = p.conn.Close()
		p.server.onPeerDisconnected(p, reason)
	})
}

func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case m := <-p.sendQueue:
			b, err := m.Bytes()
			if err != nil {
				continue
			}
			if p.server.config.DialTimeout > 0 {
				_ = p.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			}
			if _, err := p.conn.Write(b); err != nil {
				p.Disconnect(err)
				return
			}
		}
	}
}

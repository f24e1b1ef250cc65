package network

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/network/capability"
	"github.com/n3fullnode/neofull/pkg/network/payload"
	"github.com/n3fullnode/neofull/pkg/util"
)

// hash256 is a local, shorter name for the object-identity type every
// inventory hash and block/transaction hash shares.
type hash256 = util.Uint256

// handleMessage dispatches one decoded frame from an already-Ready
// peer. A protocol violation (wrong command pre-Verack is already
// ruled out by the handshake; this handles post-Verack misbehavior)
// returns an error, which readLoop treats as grounds for disconnect.
func (s *Server) handleMessage(p *Peer, m *Message) error {
	switch m.Command {
	case CMDVersion, CMDVerack:
		return fmt.Errorf("network: duplicate %s after handshake", m.Command)
	case CMDGetAddr:
		return s.onGetAddr(p)
	case CMDAddr:
		return s.onAddr(p, m.Payload.(*payload.AddressList))
	case CMDPing:
		return s.onPing(p, m.Payload.(*payload.Ping))
	case CMDPong:
		return nil
	case CMDInv:
		return s.onInv(p, m.Payload.(*payload.Inventory))
	case CMDGetData:
		return s.onGetData(p, m.Payload.(*payload.Inventory))
	case CMDNotFound:
		return nil
	case CMDGetHeaders:
		return s.onGetHeaders(p, m.Payload.(*payload.GetHeaders))
	case CMDHeaders:
		return nil
	case CMDGetBlocks:
		return s.onGetBlocks(p, m.Payload.(*payload.GetBlocks))
	case CMDGetBlockByIndex:
		return s.onGetBlockByIndex(p, m.Payload.(*payload.GetBlockByIndex))
	case CMDMempool:
		return s.onMempool(p)
	case CMDTX:
		return s.onTx(p, m.Payload.(*transaction.Transaction))
	case CMDBlock:
		return s.onBlock(p, m.Payload.(*block.Block))
	case CMDExtensible:
		return s.onExtensible(p, m.Payload.(*payload.Extensible))
	case CMDFilterLoad:
		p.SetFilter(payload.NewBloomFilter(m.Payload.(*payload.FilterLoad)))
		return nil
	case CMDFilterAdd:
		p.AddToFilter(m.Payload.(*payload.FilterAdd).Data)
		return nil
	case CMDFilterClear:
		p.SetFilter(nil)
		return nil
	case CMDMerkleBlock:
		// Served to light peers, never consumed by a full node.
		return nil
	default:
		return fmt.Errorf("network: unknown command %s", m.Command)
	}
}

// tcpPortOf returns the TCPServer capability's port from list, or 0.
func tcpPortOf(list capability.List) uint16 {
	for _, c := range list {
		if c.Type == capability.TCPServer {
			return c.Port
		}
	}
	return 0
}

func (s *Server) onGetAddr(p *Peer) error {
	s.peersMu.RLock()
	list := &payload.AddressList{}
	for _, peer := range s.peers {
		if peer.getState() != hsReady {
			continue
		}
		v := peer.Version()
		if v == nil {
			continue
		}
		tcpAddr, ok := peer.RemoteAddr().(*net.TCPAddr)
		if !ok {
			continue
		}
		list.Addrs = append(list.Addrs, payload.NewAddressAndTime(tcpAddr, v.Timestamp, v.Capabilities))
		if len(list.Addrs) >= 200 {
			break
		}
	}
	s.peersMu.RUnlock()
	return s.send(p, NewMessage(s.magic, CMDAddr, list))
}

func (s *Server) onAddr(p *Peer, list *payload.AddressList) error {
	if s.outboundCount() >= s.config.AttemptConnPeers {
		return nil
	}
	for _, a := range list.Addrs {
		port := tcpPortOf(a.Capabilities)
		if port == 0 {
			continue
		}
		addr := fmt.Sprintf("%s:%d", a.IPAddr().String(), port)
		if !s.connectedTo(addr) {
			go s.dial(addr)
		}
	}
	return nil
}

func (s *Server) onPing(p *Peer, ping *payload.Ping) error {
	pong := payload.NewPing(s.chain.CurrentIndex(), ping.Nonce, ping.Timestamp)
	return s.send(p, NewMessage(s.magic, CMDPong, pong))
}

func (s *Server) onMempool(p *Peer) error {
	txs := s.chain.GetMemPool().GetVerifiedTransactions()
	hashes := make([]hash256, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash())
	}
	return s.sendInv(p, payload.TXType, hashes)
}

func (s *Server) sendInv(p *Peer, typ payload.InvType, hashes []hash256) error {
	for len(hashes) > 0 {
		n := len(hashes)
		if n > 500 {
			n = 500
		}
		inv := payload.NewInventory(typ, hashes[:n])
		if err := s.send(p, NewMessage(s.magic, CMDInv, inv)); err != nil {
			return err
		}
		hashes = hashes[n:]
	}
	return nil
}

// onInv is told about objects a peer has; anything not already held
// locally is requested via GetData.
func (s *Server) onInv(p *Peer, inv *payload.Inventory) error {
	var missing []hash256
	for _, h := range inv.Hashes {
		p.markKnown(h)
		switch inv.Type {
		case payload.TXType:
			if !s.chain.HasTransaction(h) && !s.chain.GetMemPool().ContainsKey(h) {
				missing = append(missing, h)
			}
		case payload.BlockType:
			if _, ok := s.chain.GetBlock(h); !ok {
				missing = append(missing, h)
			}
		case payload.ExtensibleType:
			if s.extCache.Get(h) == nil {
				missing = append(missing, h)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	req := payload.NewInventory(inv.Type, missing)
	return s.send(p, NewMessage(s.magic, CMDGetData, req))
}

// onGetData answers a request for specific objects by hash, replying
// NotFound for anything this node doesn't hold.
func (s *Server) onGetData(p *Peer, inv *payload.Inventory) error {
	var notFound []hash256
	for _, h := range inv.Hashes {
		switch inv.Type {
		case payload.TXType:
			tx, _, ok := s.chain.GetTransaction(h)
			if !ok {
				if tx2, ok2 := s.chain.GetMemPool().TryGetValue(h); ok2 {
					tx = tx2
					ok = true
				}
			}
			if !ok {
				notFound = append(notFound, h)
				continue
			}
			if err := s.send(p, NewMessage(s.magic, CMDTX, tx)); err != nil {
				return err
			}
		case payload.BlockType:
			b, ok := s.chain.GetBlock(h)
			if !ok {
				notFound = append(notFound, h)
				continue
			}
			// A peer with a loaded bloom filter gets the filtered form
			// instead of the full block.
			if f := p.Filter(); f != nil {
				mb := payload.NewMerkleBlock(b, f.TestHash)
				if err := s.send(p, NewMessage(s.magic, CMDMerkleBlock, mb)); err != nil {
					return err
				}
				continue
			}
			if err := s.send(p, NewMessage(s.magic, CMDBlock, b)); err != nil {
				return err
			}
		case payload.ExtensibleType:
			e := s.extCache.Get(h)
			if e == nil {
				notFound = append(notFound, h)
				continue
			}
			if err := s.send(p, NewMessage(s.magic, CMDExtensible, e)); err != nil {
				return err
			}
		default:
			notFound = append(notFound, h)
		}
	}
	if len(notFound) > 0 {
		nf := payload.NewInventory(inv.Type, notFound)
		return s.send(p, NewMessage(s.magic, CMDNotFound, nf))
	}
	return nil
}

func (s *Server) onGetHeaders(p *Peer, req *payload.GetHeaders) error {
	start := s.chain.CurrentIndex()
	if b, ok := s.chain.GetBlock(req.HashStart); ok {
		start = b.Index + 1
	}
	out := &payload.Headers{}
	count := int(req.Count)
	if count <= 0 || count > 2000 {
		count = 2000
	}
	for i := 0; i < count; i++ {
		b, ok := s.chain.GetBlockByIndex(start + uint32(i))
		if !ok {
			break
		}
		out.Hdrs = append(out.Hdrs, &b.Header)
	}
	if len(out.Hdrs) == 0 {
		return nil
	}
	return s.send(p, NewMessage(s.magic, CMDHeaders, out))
}

func (s *Server) onGetBlocks(p *Peer, req *payload.GetBlocks) error {
	start := uint32(0)
	if b, ok := s.chain.GetBlock(req.HashStart); ok {
		start = b.Index + 1
	}
	return s.replyBlockHashes(p, start, req.Count)
}

func (s *Server) onGetBlockByIndex(p *Peer, req *payload.GetBlockByIndex) error {
	return s.replyBlockHashes(p, req.IndexStart, req.Count)
}

func (s *Server) replyBlockHashes(p *Peer, start uint32, count int16) error {
	n := int(count)
	if n <= 0 || n > 500 {
		n = 500
	}
	var hashes []hash256
	for i := 0; i < n; i++ {
		b, ok := s.chain.GetBlockByIndex(start + uint32(i))
		if !ok {
			break
		}
		hashes = append(hashes, b.Hash())
	}
	if len(hashes) == 0 {
		return nil
	}
	inv := payload.NewInventory(payload.BlockType, hashes)
	return s.send(p, NewMessage(s.magic, CMDInv, inv))
}

// onTx admits a pushed transaction into the mempool and relays it to
// every other peer on first acceptance.
func (s *Server) onTx(p *Peer, tx *transaction.Transaction) error {
	h := tx.Hash()
	if p.markKnown(h) {
		return nil
	}
	if s.chain.HasTransaction(h) || s.chain.GetMemPool().ContainsKey(h) {
		return nil
	}
	if err := s.chain.AddTransaction(tx); err != nil {
		s.log.Debug("transaction rejected", zap.Stringer("peer", p.RemoteAddr()), zap.Error(err))
		return nil
	}
	s.RelayInventory(payload.TXType, h)
	if s.consensusSvc != nil {
		s.consensusSvc.OnTransaction(tx)
	}
	return nil
}

// onBlock feeds a pushed block through the normal ledger pipeline and
// relays it onward on success.
func (s *Server) onBlock(p *Peer, b *block.Block) error {
	h := b.Hash()
	if p.markKnown(h) {
		return nil
	}
	if _, ok := s.chain.GetBlock(h); ok {
		return nil
	}
	if err := s.chain.AddBlock(b); err != nil {
		s.log.Debug("block rejected", zap.Stringer("peer", p.RemoteAddr()), zap.Error(err))
		return nil
	}
	s.RelayInventory(payload.BlockType, h)
	return nil
}

// onExtensible validates the envelope's witness (via the handler
// registered by pkg/node for the envelope's Category) and relays it
// on first sight, exactly like a transaction or block.
func (s *Server) onExtensible(p *Peer, e *payload.Extensible) error {
	if !e.ValidAt(s.chain.CurrentIndex()) {
		return nil
	}
	h := e.Hash()
	if p.markKnown(h) {
		return nil
	}
	s.extMu.RLock()
	handler, ok := s.extHandlers[e.Category]
	s.extMu.RUnlock()
	if !ok {
		return nil
	}
	if err := handler(e); err != nil {
		s.log.Debug("extensible rejected", zap.String("category", e.Category), zap.Error(err))
		return nil
	}
	s.extCache.Add(e)
	s.Broadcast(NewMessage(s.magic, CMDExtensible, e))
	return nil
}

// OnNewTransaction relays tx's hash to the ready peers like any other
// accepted inventory item. Nothing in the node calls it: onTx relays
// the transactions it admits itself.
func (s *Server) OnNewTransaction(tx *transaction.Transaction) {
	s.RelayInventory(payload.TXType, tx.Hash())
}

// OnNewBlock is called once AddBlock succeeds, to relay the new tip
// onward.
func (s *Server) OnNewBlock(hash hash256) {
	s.RelayInventory(payload.BlockType, hash)
}

// BroadcastExtensible relays an already-signed envelope built and
// signed elsewhere (pkg/consensus), wired as consensus.Config.Broadcast.
func (s *Server) BroadcastExtensible(e *payload.Extensible) {
	s.extCache.Add(e)
	s.Broadcast(NewMessage(s.magic, CMDExtensible, e))
}

// RequestData asks every peer for the objects named by hashes,
// wired as consensus.Config.RequestTransactions for a PrepareRequest's
// declared transaction set the local mempool doesn't already hold.
func (s *Server) RequestData(typ payload.InvType, hashes []hash256) {
	if len(hashes) == 0 {
		return
	}
	s.Broadcast(NewMessage(s.magic, CMDGetData, payload.NewInventory(typ, hashes)))
}

package node

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/consensus"
	"github.com/n3fullnode/neofull/pkg/core"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	nio "github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/network/payload"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

// consensusValidityWindow is how many blocks past the current tip a
// freshly-broadcast consensus Extensible remains acceptable; a
// validator running even a full view-timeout's worth of change-views
// behind never needs more than a couple of blocks of slack.
const consensusValidityWindow = 2

// broadcastConsensus encodes a signed consensus.Payload into an
// Extensible envelope signed by this node's
// own validator key and hands it to the P2P layer, wired as
// consensus.Config.Broadcast.
func (n *Node) broadcastConsensus(p *consensus.Payload) {
	w := nio.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		n.log.Error("node: cannot encode consensus payload", zap.Error(w.Err))
		return
	}

	e := payload.NewExtensible()
	e.Category = payload.ConsensusCategory
	height := n.chain.CurrentIndex()
	e.ValidBlockStart = height
	e.ValidBlockEnd = height + consensusValidityWindow
	e.Sender = n.validatorKey.PublicKey().GetScriptHash()
	e.Data = w.Bytes()

	sig, err := n.validatorKey.Sign(e.Hash().BytesBE())
	if err != nil {
		n.log.Error("node: cannot sign extensible envelope", zap.Error(err))
		return
	}
	e.Witness = transaction.Witness{
		InvocationScript:   append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...),
		VerificationScript: n.validatorKey.PublicKey().GetVerificationScript(),
	}

	n.p2p.BroadcastExtensible(e)
}

// onConsensusExtensible validates an inbound Extensible envelope's
// witness and, once verified, decodes its Data back into a
// consensus.Payload for the dBFT service; registered via
// network.Server.HandleExtensible for payload.ConsensusCategory.
func (n *Node) onConsensusExtensible(e *payload.Extensible) error {
	if e.Witness.ScriptHash() != e.Sender {
		return fmt.Errorf("node: extensible witness/sender mismatch")
	}
	if !core.VerifyGenericWitness(&e.Witness, e.Hash().BytesBE()) {
		return fmt.Errorf("node: extensible witness verification failed")
	}

	p := &consensus.Payload{}
	r := nio.NewBinReaderFromBuf(e.Data)
	p.DecodeBinary(r)
	if r.Err != nil {
		return fmt.Errorf("node: cannot decode consensus payload: %w", r.Err)
	}

	if n.dbft != nil {
		n.dbft.OnPayload(p)
	}
	return nil
}

// requestTransactions asks every peer for hashes, wired as
// consensus.Config.RequestTransactions for a PrepareRequest's declared
// transaction set the local mempool doesn't already hold.
func (n *Node) requestTransactions(hashes []util.Uint256) {
	n.p2p.RequestData(payload.TXType, hashes)
}

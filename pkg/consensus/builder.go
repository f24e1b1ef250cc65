package consensus

import (
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/util"
)

// estimatedHeaderSize approximates a serialized header's byte size
// (fixed-width fields plus a typical single-sig witness); only used
// to budget transaction selection against MaxBlockSize, never for
// anything consensus-critical, so an approximation is sufficient.
const estimatedHeaderSize = 150

// selectTransactions drains up to the configured per-block count and
// byte-size caps from the mempool's fee-priority ordering, the same
// bound the primary's PrepareRequest commits to and every backup's
// re-verification assumes was respected.
func (s *Service) selectTransactions() []*transaction.Transaction {
	pending := s.cfg.Chain.GetMemPool().GetVerifiedTransactionsByPriority()

	maxCount := int(s.cfg.Chain.Config().MaxTransactionsPerBlock)
	maxSize := int(s.cfg.Chain.Config().MaxBlockSize)

	selected := make([]*transaction.Transaction, 0, len(pending))
	size := estimatedHeaderSize
	for _, tx := range pending {
		if len(selected) >= maxCount {
			break
		}
		if size+tx.Size() > maxSize {
			continue
		}
		selected = append(selected, tx)
		size += tx.Size()
	}
	return selected
}

// buildCandidate assembles a new block header and body from the
// current mempool state: Merkle root over the selected transactions,
// a timestamp no earlier than the previous block's plus one
// millisecond, and NextConsensus set to the multisig account of the
// validator set the NEO contract reports for the block after this one.
func (s *Service) buildCandidate() (*block.Block, error) {
	txs := s.selectTransactions()

	hashes := make([]util.Uint256, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}

	nextConsensus, err := s.cfg.Chain.NextConsensusAddress()
	if err != nil {
		return nil, err
	}

	ts := s.clock.Now().UnixMilli()
	if uint64(ts) <= s.context.PrevTimestamp {
		ts = int64(s.context.PrevTimestamp) + 1
	}

	b := block.New()
	b.Version = block.VersionInitial
	b.PrevHash = s.context.PrevHash
	b.Timestamp = uint64(ts)
	b.Nonce = s.nonce()
	b.Index = s.context.BlockIndex
	b.PrimaryIndex = byte(s.context.PrimaryIndex(s.context.ViewNumber))
	b.NextConsensus = nextConsensus
	b.Transactions = txs
	b.RebuildMerkleRoot()

	return b, nil
}

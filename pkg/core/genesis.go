package core

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/dao"
	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/native"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/trigger"
	"github.com/n3fullnode/neofull/pkg/util"
)

// neoGenesisTotalSupply is the protocol-fixed NEO supply, minted once
// at genesis and never inflated afterward (NEO pays no PostPersist
// reward the way GAS does).
const neoGenesisTotalSupply = 100000000

// genesisTimestamp reuses Neo N3 mainnet's actual genesis moment
// (2016-07-15T15:08:21Z in Unix milliseconds) as a literal constant
// every configuration agrees on unless it overrides its own; no
// network's block #0 may be built from time.Now(): wall-clock reads
// have no place in consensus-relevant code.
const genesisTimestamp = 1468595301000

// decodeStandbyCommittee parses the configured hex public keys in
// order, the seed candidate set before any vote has ever been cast.
func decodeStandbyCommittee(cfg *config.ProtocolConfiguration) ([]*keys.PublicKey, error) {
	pubs := make([]*keys.PublicKey, len(cfg.StandbyCommittee))
	for i, s := range cfg.StandbyCommittee {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("genesis: bad standby committee key %d: %w", i, err)
		}
		pub, err := keys.DecodeBytes(b, keys.Secp256r1)
		if err != nil {
			return nil, fmt.Errorf("genesis: bad standby committee key %d: %w", i, err)
		}
		pubs[i] = pub
	}
	return pubs, nil
}

// committeeThreshold computes the Byzantine-fault-tolerant signature
// threshold for an n-member multisig: the same m := n-(n-1)/3*2 rule
// native.neoToken.CommitteeAddress uses for the post-genesis committee
// account.
func committeeThreshold(n int) int {
	if n == 0 {
		return 0
	}
	return n - (n-1)/3*2
}

func multisigAddress(pubs []*keys.PublicKey) (util.Uint160, error) {
	script, err := keys.CreateMultisigVerificationScript(committeeThreshold(len(pubs)), pubs)
	if err != nil {
		return util.Uint160{}, err
	}
	return hash.Hash160(script), nil
}

// validatorAddress is the consensus multisig account: the M = n - f
// threshold (not the committee's lower n-2f threshold) over the
// validator set, matching the witness pkg/consensus aggregates when it
// finalizes a block.
func validatorAddress(pubs []*keys.PublicKey) (util.Uint160, error) {
	m := len(pubs) - (len(pubs)-1)/3
	script, err := keys.CreateMultisigVerificationScript(m, pubs)
	if err != nil {
		return util.Uint160{}, err
	}
	return hash.Hash160(script), nil
}

// CreateGenesisBlock deterministically builds block #0: a header with
// no previous hash, an empty witness, and zero
// transactions, then runs the native contracts' OnPersist/PostPersist
// hooks over it to seed the standby committee candidate set and mint
// the initial NEO/GAS supply to the committee account. Every
// conforming node on a given network must produce byte-identical
// output from the same configuration.
func CreateGenesisBlock(cfg *config.ProtocolConfiguration, d *dao.Simple, contracts *native.Contracts) (*block.Block, error) {
	standby, err := decodeStandbyCommittee(cfg)
	if err != nil {
		return nil, err
	}
	committeeAddr, err := multisigAddress(standby)
	if err != nil {
		return nil, err
	}
	validators := standby
	if int(cfg.ValidatorsCount) < len(standby) {
		validators = standby[:cfg.ValidatorsCount]
	}
	nextConsensus, err := validatorAddress(validators)
	if err != nil {
		return nil, err
	}

	b := block.New()
	b.Version = block.VersionInitial
	b.PrevHash = util.Uint256{}
	b.Timestamp = genesisTimestamp
	b.Nonce = 0
	b.Index = 0
	b.PrimaryIndex = 0
	b.NextConsensus = nextConsensus
	b.Script = transaction.Witness{}
	b.Transactions = nil
	b.RebuildMerkleRoot()

	committee := committeeAddr
	ic := &interop.Context{
		DAO:       d,
		Trigger:   trigger.OnPersist,
		Network:   uint32(cfg.Magic),
		Block:     b,
		Committee: func() (util.Uint160, error) { return committee, nil },
		Hardforks: func(hf config.Hardfork) bool { return cfg.IsHardforkEnabled(hf, 0) },
	}

	if err := contracts.OnPersist(ic); err != nil {
		return nil, fmt.Errorf("genesis: OnPersist: %w", err)
	}

	neo := contracts.NEO()
	if err := neo.RegisterStandby(ic, standby); err != nil {
		return nil, fmt.Errorf("genesis: seed standby committee: %w", err)
	}
	if err := neo.Mint(ic, committeeAddr, big.NewInt(neoGenesisTotalSupply)); err != nil {
		return nil, fmt.Errorf("genesis: mint NEO: %w", err)
	}
	if cfg.InitialGASSupply > 0 {
		if err := contracts.GAS().Mint(ic, committeeAddr, big.NewInt(cfg.InitialGASSupply)); err != nil {
			return nil, fmt.Errorf("genesis: mint GAS: %w", err)
		}
	}

	ic.Trigger = trigger.PostPersist
	if err := contracts.PostPersist(ic); err != nil {
		return nil, fmt.Errorf("genesis: PostPersist: %w", err)
	}

	return b, nil
}

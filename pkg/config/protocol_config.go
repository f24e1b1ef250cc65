package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/n3fullnode/neofull/pkg/config/netmode"
)

// ProtocolConfiguration holds the network-wide consensus parameters: every
// honest node on a given network must agree on these values byte-for-byte.
type ProtocolConfiguration struct {
	Magic netmode.Magic `yaml:"Magic"`

	// StandbyCommittee is the ordered list of public keys (hex-encoded)
	// that seed the committee before any vote has been cast.
	StandbyCommittee []string `yaml:"StandbyCommittee"`
	ValidatorsCount   uint32   `yaml:"ValidatorsCount"`

	SeedList []string `yaml:"SeedList"`

	TimePerBlock                time.Duration `yaml:"TimePerBlock"`
	MaxTransactionsPerBlock     uint16        `yaml:"MaxTransactionsPerBlock"`
	MaxBlockSize                uint32        `yaml:"MaxBlockSize"`
	MaxBlockSystemFee           int64         `yaml:"MaxBlockSystemFee"`
	MaxValidUntilBlockIncrement uint32        `yaml:"MaxValidUntilBlockIncrement"`
	MaxTraceableBlocks          uint32        `yaml:"MaxTraceableBlocks"`

	MemPoolSize int `yaml:"MemPoolSize"`

	InitialGASSupply int64 `yaml:"InitialGASSupply"`

	// Hardforks maps a hardfork name to its activation height.
	Hardforks map[string]uint32 `yaml:"Hardforks"`

	VerifyTransactions bool `yaml:"VerifyTransactions"`

	// P2PSigExtensions gates acceptance of the NotaryAssisted attribute
	// and the extra witness-count relaxation it implies.
	P2PSigExtensions bool `yaml:"P2PSigExtensions"`
}

// Validate checks the configuration for internal consistency. Other code
// can assume a validated ProtocolConfiguration never needs re-checking.
func (p *ProtocolConfiguration) Validate() error {
	if p.TimePerBlock%time.Millisecond != 0 {
		return errors.New("TimePerBlock must be an integer number of milliseconds")
	}
	if len(p.StandbyCommittee) == 0 {
		return errors.New("configuration should include StandbyCommittee")
	}
	if int(p.ValidatorsCount) > len(p.StandbyCommittee) {
		return errors.New("validators count can't exceed the size of StandbyCommittee")
	}
	for name := range p.Hardforks {
		if !IsHardforkValid(name) {
			return fmt.Errorf("unexpected hardfork in configuration: %s", name)
		}
	}
	if p.MaxTransactionsPerBlock == 0 {
		return errors.New("MaxTransactionsPerBlock must be non-zero")
	}
	return nil
}

// HardforkHeight returns the activation height of hf, or false if it is not
// enabled by this configuration.
func (p *ProtocolConfiguration) HardforkHeight(hf Hardfork) (uint32, bool) {
	if hf == HFDefault {
		return 0, true
	}
	h, ok := p.Hardforks[hf.String()]
	return h, ok
}

// IsHardforkEnabled reports whether hf is active at the given height.
func (p *ProtocolConfiguration) IsHardforkEnabled(hf Hardfork, height uint32) bool {
	h, ok := p.HardforkHeight(hf)
	return ok && height >= h
}

// GetCommitteeSize returns the number of committee seats. Committee-size
// history is not modeled; the standby committee is a single fixed set.
func (p *ProtocolConfiguration) GetCommitteeSize() int {
	return len(p.StandbyCommittee)
}

// GetNumOfCNs returns the number of consensus (validator) nodes.
func (p *ProtocolConfiguration) GetNumOfCNs() int {
	return int(p.ValidatorsCount)
}

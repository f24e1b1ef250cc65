// Package config holds the per-network configuration consumed by
// pkg/node's orchestrator: protocol parameters every honest peer must
// agree on, plus local P2P/ledger/consensus settings. Configuration is a
// value passed in at startup; nothing here is a package-level mutable
// singleton.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/n3fullnode/neofull/pkg/config/netmode"
	"gopkg.in/yaml.v3"
)

// UserAgentFormat is the template consulted for the P2P Version message.
const UserAgentFormat = "/NEO-GO-FULL:%s/"

// Version is set at build time via -ldflags.
var Version = "dev"

// Config is the complete set of settings the node orchestrator needs.
type Config struct {
	ProtocolConfiguration ProtocolConfiguration `yaml:"ProtocolConfiguration"`
	P2P                   P2P                   `yaml:"P2P"`
	Ledger                LedgerConfiguration   `yaml:"Ledger"`
	Consensus             ConsensusConfiguration `yaml:"Consensus"`
	LogPath               string                `yaml:"LogPath"`
}

// ConsensusConfiguration toggles and tunes dBFT participation.
type ConsensusConfiguration struct {
	Enabled bool `yaml:"Enabled"`
	// TimeoutMultiplier is accepted in the configuration file but is not
	// read by pkg/consensus, whose view timer always doubles per view.
	TimeoutMultiplier float64 `yaml:"TimeoutMultiplier"`
}

// UserAgent returns the node's P2P-visible identity string.
func (c Config) UserAgent() string {
	return fmt.Sprintf(UserAgentFormat, Version)
}

// Validate checks every sub-configuration for internal consistency.
func (c Config) Validate() error {
	if err := c.ProtocolConfiguration.Validate(); err != nil {
		return fmt.Errorf("protocol configuration: %w", err)
	}
	return nil
}

// LoadFile reads and decodes a YAML configuration file, then validates it.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	cfg := Config{
		P2P: P2P{
			PingInterval:      30 * time.Second,
			PingTimeout:       90 * time.Second,
			DialTimeout:       5 * time.Second,
			ProtoTickInterval: time.Second,
			MaxPayloadSize:    32 * 1024 * 1024,
			PeerBufferQuota:   4 * 1024 * 1024,
		},
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MainNetMagic and TestNetMagic are convenience re-exports so callers that
// only need the magic don't have to import netmode directly.
var (
	MainNetMagic = netmode.MainNet
	TestNetMagic = netmode.TestNet
)

package config

import "time"

// P2P holds the transport-level settings for pkg/network.
type P2P struct {
	// Addresses this node listens on, "[host]:[port]".
	Addresses []string `yaml:"Addresses"`

	AttemptConnPeers int `yaml:"AttemptConnPeers"`
	MinPeers         int `yaml:"MinPeers"`
	MaxPeers         int `yaml:"MaxPeers"`
	// MaxPeersPerIP caps inbound connections accepted from a single address.
	MaxPeersPerIP int `yaml:"MaxPeersPerIP"`

	DialTimeout       time.Duration `yaml:"DialTimeout"`
	ProtoTickInterval time.Duration `yaml:"ProtoTickInterval"`
	PingInterval      time.Duration `yaml:"PingInterval"`
	PingTimeout       time.Duration `yaml:"PingTimeout"`

	// MaxPayloadSize bounds a single framed message's payload.
	MaxPayloadSize uint32 `yaml:"MaxPayloadSize"`
	// PeerBufferQuota is accepted but not read; no per-peer byte quota is enforced.
	PeerBufferQuota int `yaml:"PeerBufferQuota"`
}

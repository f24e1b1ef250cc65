package node

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
)

func testConfig(t *testing.T, priv *keys.PrivateKey) config.Config {
	t.Helper()
	return config.Config{
		ProtocolConfiguration: config.ProtocolConfiguration{
			Magic:                       0x334f454e,
			StandbyCommittee:            []string{hex.EncodeToString(priv.PublicKey().Bytes())},
			ValidatorsCount:             1,
			TimePerBlock:                15 * time.Second,
			MaxTransactionsPerBlock:     512,
			MaxBlockSize:                2 * 1024 * 1024,
			MaxBlockSystemFee:           900_000_000_000,
			MaxValidUntilBlockIncrement: 86400,
			MaxTraceableBlocks:          2102400,
			MemPoolSize:                 50000,
			InitialGASSupply:            52_000_000_00000000,
		},
		P2P: config.P2P{
			DialTimeout:       time.Second,
			ProtoTickInterval: 50 * time.Millisecond,
			PingInterval:      time.Minute,
			PingTimeout:       time.Minute,
			MaxPayloadSize:    32 * 1024 * 1024,
			PeerBufferQuota:   4 * 1024 * 1024,
			AttemptConnPeers:  0,
			MaxPeers:          10,
		},
		Ledger: config.LedgerConfiguration{Engine: ""},
	}
}

func TestNewNodeFollowerOnly(t *testing.T) {
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	cfg := testConfig(t, priv)

	n, err := New(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, n.Chain())
	require.EqualValues(t, 0, n.Chain().CurrentIndex())

	require.NoError(t, n.Start(nil))
	n.Shutdown()
}

func TestNewNodeConsensusRequiresKey(t *testing.T) {
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	cfg := testConfig(t, priv)
	cfg.Consensus.Enabled = true

	_, err = New(cfg, nil, zap.NewNop())
	require.Error(t, err)
}

func TestNewNodeWithValidator(t *testing.T) {
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	cfg := testConfig(t, priv)
	cfg.Consensus.Enabled = true

	n, err := New(cfg, priv, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, n.Start(nil))
	n.Shutdown()
}

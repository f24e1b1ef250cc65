package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/config/netmode"
)

const testConfigYAML = `
ProtocolConfiguration:
  Magic: 860833102
  StandbyCommittee:
    - 02b3622bf4017bdfe317c58aed5f4c753f206b7db896046fa7d774bbc4bf7f8dc2
    - 02103a7f7dd016558597f7960d27c516a4394fd968b9e65155eb4b013e4040406e
    - 03d90c07df63e690ce77912e10ab51acc944b66860237b608c4f8f8309e71ee699
    - 02a7bc55fe8684e0119768d104ba30795bdcc86619e864add26156723ed185cd62
  ValidatorsCount: 4
  TimePerBlock: 15s
  MaxTransactionsPerBlock: 512
  MaxBlockSize: 262144
  MaxValidUntilBlockIncrement: 5760
  MemPoolSize: 50000
P2P:
  MaxPeers: 100
Consensus:
  Enabled: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocol.testnet.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, netmode.Magic(860833102), cfg.ProtocolConfiguration.Magic)
	assert.Equal(t, uint32(4), cfg.ProtocolConfiguration.ValidatorsCount)
	assert.Equal(t, 15*time.Second, cfg.ProtocolConfiguration.TimePerBlock)
	assert.Equal(t, uint16(512), cfg.ProtocolConfiguration.MaxTransactionsPerBlock)
	// Defaults survive a file that does not mention them.
	assert.Equal(t, 30*time.Second, cfg.P2P.PingInterval)
	assert.EqualValues(t, 32*1024*1024, cfg.P2P.MaxPayloadSize)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFile(writeConfig(t, testConfigYAML+"\nNoSuchSetting: true\n"))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.Error(t, err)
}

func TestProtocolValidate(t *testing.T) {
	good := ProtocolConfiguration{
		StandbyCommittee:        []string{"02b3622bf4017bdfe317c58aed5f4c753f206b7db896046fa7d774bbc4bf7f8dc2"},
		ValidatorsCount:         1,
		TimePerBlock:            15 * time.Second,
		MaxTransactionsPerBlock: 512,
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.StandbyCommittee = nil
	require.Error(t, bad.Validate())

	bad = good
	bad.ValidatorsCount = 2
	require.Error(t, bad.Validate())

	bad = good
	bad.TimePerBlock = 15*time.Second + 500*time.Microsecond
	require.Error(t, bad.Validate())

	bad = good
	bad.Hardforks = map[string]uint32{"NoSuchFork": 10}
	require.Error(t, bad.Validate())

	bad = good
	bad.MaxTransactionsPerBlock = 0
	require.Error(t, bad.Validate())
}

func TestHardforkHeight(t *testing.T) {
	p := ProtocolConfiguration{Hardforks: map[string]uint32{HFBasilisk.String(): 100}}
	h, ok := p.HardforkHeight(HFBasilisk)
	require.True(t, ok)
	assert.Equal(t, uint32(100), h)

	assert.False(t, p.IsHardforkEnabled(HFBasilisk, 99))
	assert.True(t, p.IsHardforkEnabled(HFBasilisk, 100))
}

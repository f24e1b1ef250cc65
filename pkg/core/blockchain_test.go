package core

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/store"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

// singleValidatorConfig builds a protocol configuration with exactly one
// standby committee member, so the committee/next-consensus multisig
// degenerates to a 1-of-1 account witnessed by priv alone.
func singleValidatorConfig(t *testing.T) (config.ProtocolConfiguration, *keys.PrivateKey) {
	t.Helper()
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)

	cfg := config.ProtocolConfiguration{
		Magic:                       0x334f454e,
		StandbyCommittee:            []string{hex.EncodeToString(priv.PublicKey().Bytes())},
		ValidatorsCount:             1,
		TimePerBlock:                15 * time.Second,
		MaxTransactionsPerBlock:     512,
		MaxBlockSize:                2 * 1024 * 1024,
		MaxBlockSystemFee:           900_000_000_000,
		MaxValidUntilBlockIncrement: 86400,
		MaxTraceableBlocks:          2102400,
		MemPoolSize:                50000,
		InitialGASSupply:            52_000_000_00000000,
	}
	require.NoError(t, cfg.Validate())
	return cfg, priv
}

func newTestBlockchain(t *testing.T) (*Blockchain, *keys.PrivateKey) {
	t.Helper()
	cfg, priv := singleValidatorConfig(t)
	bc, err := NewBlockchain(cfg, store.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)
	return bc, priv
}

func TestNewBlockchainBootstrapsGenesis(t *testing.T) {
	bc, _ := newTestBlockchain(t)
	require.EqualValues(t, 0, bc.CurrentIndex())

	genesis, ok := bc.GetBlockByIndex(0)
	require.True(t, ok)
	require.Equal(t, bc.CurrentHash(), genesis.Hash())
	require.Empty(t, genesis.Transactions)
}

func TestNewBlockchainReopensExistingStore(t *testing.T) {
	cfg, _ := singleValidatorConfig(t)
	st := store.NewMemoryStore()

	first, err := NewBlockchain(cfg, st, zap.NewNop())
	require.NoError(t, err)
	genesisHash := first.CurrentHash()

	second, err := NewBlockchain(cfg, st, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, genesisHash, second.CurrentHash())
	require.EqualValues(t, 0, second.CurrentIndex())
}

// consensusAddress is the 1-of-1 multisig account genesis designates
// as NextConsensus for a single-validator network.
func consensusAddress(t *testing.T, priv *keys.PrivateKey) util.Uint160 {
	t.Helper()
	script, err := keys.CreateMultisigVerificationScript(1, []*keys.PublicKey{priv.PublicKey()})
	require.NoError(t, err)
	return hash.Hash160(script)
}

// signHeader builds the consensus witness a single 1-of-1 validator
// would produce over h's hash: an invocation script pushing a real
// ECDSA signature, paired with the validator set's multisig
// verification script (whose hash is the NextConsensus account).
func signHeader(t *testing.T, priv *keys.PrivateKey, h *block.Header) {
	t.Helper()
	verification, err := keys.CreateMultisigVerificationScript(1, []*keys.PublicKey{priv.PublicKey()})
	require.NoError(t, err)
	sig, err := priv.Sign(h.Hash().BytesBE())
	require.NoError(t, err)
	invocation := append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...)
	h.Script = transaction.Witness{
		InvocationScript:   invocation,
		VerificationScript: verification,
	}
}

func TestAddBlockExtendsChain(t *testing.T) {
	bc, priv := newTestBlockchain(t)
	genesis := bc.CurrentHeader()
	nextConsensus := consensusAddress(t, priv)

	b := &block.Block{Header: block.Header{
		Version:       block.VersionInitial,
		PrevHash:      bc.CurrentHash(),
		Timestamp:     genesis.Timestamp + 15000,
		Nonce:         1,
		Index:         1,
		NextConsensus: nextConsensus,
	}}
	b.MerkleRoot = b.ComputeMerkleRoot()
	signHeader(t, priv, &b.Header)

	require.NoError(t, bc.AddBlock(b))
	require.EqualValues(t, 1, bc.CurrentIndex())
	require.Equal(t, b.Hash(), bc.CurrentHash())

	stored, ok := bc.GetBlockByIndex(1)
	require.True(t, ok)
	require.Equal(t, b.Hash(), stored.Hash())
}

func TestAddEmptyBlockKeepsStateRoot(t *testing.T) {
	bc, priv := newTestBlockchain(t)
	genesisRoot := bc.StateRoot()
	require.NotEqual(t, util.Uint256{}, genesisRoot, "genesis NEO/GAS distribution must produce a non-empty state commitment")

	genesis := bc.CurrentHeader()
	nextConsensus := consensusAddress(t, priv)
	b := &block.Block{Header: block.Header{
		Version:       block.VersionInitial,
		PrevHash:      bc.CurrentHash(),
		Timestamp:     genesis.Timestamp + 15000,
		Nonce:         1,
		Index:         1,
		NextConsensus: nextConsensus,
	}}
	b.MerkleRoot = b.ComputeMerkleRoot()
	signHeader(t, priv, &b.Header)
	require.NoError(t, bc.AddBlock(b))

	// An empty block mints no network-fee reward (no transactions) and
	// touches no other contract storage, so the state commitment must
	// stay exactly where genesis left it.
	require.Equal(t, genesisRoot, bc.StateRoot())
}

func TestAddBlockRejectsWrongPrevHash(t *testing.T) {
	bc, priv := newTestBlockchain(t)
	genesis := bc.CurrentHeader()

	b := &block.Block{Header: block.Header{
		Version:       block.VersionInitial,
		PrevHash:      genesis.Hash(), // will be mutated below to be wrong
		Timestamp:     genesis.Timestamp + 15000,
		Index:         1,
		NextConsensus: consensusAddress(t, priv),
	}}
	b.PrevHash[0] ^= 0xFF
	b.MerkleRoot = b.ComputeMerkleRoot()
	signHeader(t, priv, &b.Header)

	require.Error(t, bc.AddBlock(b))
	require.EqualValues(t, 0, bc.CurrentIndex())
}

func TestAddBlockRejectsBadConsensusWitness(t *testing.T) {
	bc, priv := newTestBlockchain(t)
	genesis := bc.CurrentHeader()

	b := &block.Block{Header: block.Header{
		Version:       block.VersionInitial,
		PrevHash:      bc.CurrentHash(),
		Timestamp:     genesis.Timestamp + 15000,
		Index:         1,
		NextConsensus: consensusAddress(t, priv),
	}}
	b.MerkleRoot = b.ComputeMerkleRoot()
	signHeader(t, priv, &b.Header)
	b.Script.InvocationScript[3] ^= 0xFF

	require.Error(t, bc.AddBlock(b))
}

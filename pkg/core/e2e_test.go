package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/store"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/vmstate"
)

func emitPushData(script []byte, data []byte) []byte {
	script = append(script, byte(opcode.PUSHDATA1), byte(len(data)))
	return append(script, data...)
}

func emitPushInt64(script []byte, v int64) []byte {
	script = append(script, byte(opcode.PUSHINT64))
	for i := 0; i < 8; i++ {
		script = append(script, byte(v>>(8*i)))
	}
	return script
}

// buildTransferScript assembles the standard NEP-17 transfer
// invocation: push (data, amount, to, from), PACK 4, then
// System.Contract.Call into the token contract.
func buildTransferScript(token, from, to util.Uint160, amount int64) []byte {
	var script []byte
	script = append(script, byte(opcode.PUSHNULL))
	script = emitPushInt64(script, amount)
	script = emitPushData(script, to.BytesLE())
	script = emitPushData(script, from.BytesLE())
	script = append(script, byte(opcode.PUSH4), byte(opcode.PACK))
	script = append(script, byte(opcode.PUSH15)) // CallFlags.All
	script = emitPushData(script, []byte("transfer"))
	script = emitPushData(script, token.BytesLE())
	script = append(script, byte(opcode.SYSCALL))
	script = append(script, vm.InteropIDBytes("System.Contract.Call")...)
	return append(script, byte(opcode.RET))
}

func TestGASTransferEndToEnd(t *testing.T) {
	bc, priv := newTestBlockchain(t)
	from := consensusAddress(t, priv)
	to := util.Uint160{0xAA, 0xBB}
	gasHash := bc.Contracts().GAS().Metadata().Hash

	const amount = 100_00000000 // 100 GAS in datoshi
	const systemFee = 6_00000000
	const networkFee = 1_00000000

	initialFrom := bc.GetUtilityTokenBalance(from).Int64()
	require.Greater(t, initialFrom, int64(amount+systemFee+networkFee))

	tx := &transaction.Transaction{
		Nonce:           7,
		SystemFee:       systemFee,
		NetworkFee:      networkFee,
		ValidUntilBlock: 100,
		Signers:         []transaction.Signer{{Account: from, Scopes: transaction.CalledByEntry}},
		Script:          buildTransferScript(gasHash, from, to, amount),
	}
	sig, err := priv.Sign(tx.Hash().BytesBE())
	require.NoError(t, err)
	verification, err := keys.CreateMultisigVerificationScript(1, []*keys.PublicKey{priv.PublicKey()})
	require.NoError(t, err)
	tx.Witnesses = []transaction.Witness{{
		InvocationScript:   append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...),
		VerificationScript: verification,
	}}

	events := make(chan BlockEvent, 1)
	bc.Subscribe(events)

	genesis := bc.CurrentHeader()
	b := &block.Block{Header: block.Header{
		Version:       block.VersionInitial,
		PrevHash:      bc.CurrentHash(),
		Timestamp:     genesis.Timestamp + 15000,
		Nonce:         1,
		Index:         1,
		NextConsensus: from,
	}}
	b.Transactions = []*transaction.Transaction{tx}
	b.MerkleRoot = b.ComputeMerkleRoot()
	signHeader(t, priv, &b.Header)

	require.NoError(t, bc.AddBlock(b))
	require.EqualValues(t, 1, bc.CurrentIndex())

	assert.EqualValues(t, amount, bc.GetUtilityTokenBalance(to).Int64())
	// The network fee comes back: the sender here is also the
	// NextConsensus account PostPersist mints the block's collected
	// network fees to. Only the transferred amount and the burned
	// system fee leave for good.
	assert.EqualValues(t, initialFrom-amount-systemFee,
		bc.GetUtilityTokenBalance(from).Int64())

	ev := <-events
	require.Len(t, ev.Execs, 1)
	exec := ev.Execs[0]
	require.Equal(t, vmstate.HaltState, exec.State)
	assert.LessOrEqual(t, exec.GasConsumed, int64(systemFee))

	var sawTransfer bool
	for _, n := range exec.Notifications {
		if n.Name == "Transfer" && n.ScriptHash == gasHash {
			sawTransfer = true
		}
	}
	assert.True(t, sawTransfer, "transfer must emit the NEP-17 Transfer event")
}

func TestCheckWitnessScopeAcrossCalls(t *testing.T) {
	// Account A signs with CalledByEntry. A contract invoked
	// directly by the entry script sees the witness; a contract one
	// call deeper does not.
	bc, _ := newTestBlockchain(t)
	account := util.Uint160{0xA1}

	tx := &transaction.Transaction{
		ValidUntilBlock: 10,
		Signers:         []transaction.Signer{{Account: account, Scopes: transaction.CalledByEntry}},
		Script:          []byte{byte(opcode.RET)},
	}

	ic := bc.readOnlyContext()
	ic.Container = tx

	v := vm.New(vm.NewInteropRegistry())
	ic.VM = v
	entry := util.Uint160{0xE0}
	contractX := util.Uint160{0x01}
	contractY := util.Uint160{0x02}

	require.NoError(t, v.LoadScript([]byte{byte(opcode.RET)}, entry, -1, callflag.All))
	require.True(t, ic.CheckWitness(account), "the entry script itself sees the witness")

	require.NoError(t, v.LoadScript([]byte{byte(opcode.RET)}, contractX, -1, callflag.All))
	require.True(t, ic.CheckWitness(account), "a contract called by the entry script sees the witness")

	require.NoError(t, v.LoadScript([]byte{byte(opcode.RET)}, contractY, -1, callflag.All))
	require.False(t, ic.CheckWitness(account), "a contract called indirectly does not")
}

func TestDumpAndRestore(t *testing.T) {
	cfg, priv := singleValidatorConfig(t)
	bc, err := NewBlockchain(cfg, store.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)

	genesis := bc.CurrentHeader()
	b := &block.Block{Header: block.Header{
		Version:       block.VersionInitial,
		PrevHash:      bc.CurrentHash(),
		Timestamp:     genesis.Timestamp + 15000,
		Nonce:         1,
		Index:         1,
		NextConsensus: consensusAddress(t, priv),
	}}
	b.MerkleRoot = b.ComputeMerkleRoot()
	signHeader(t, priv, &b.Header)
	require.NoError(t, bc.AddBlock(b))

	w := io.NewBufBinWriter()
	require.NoError(t, bc.Dump(w.BinWriter, 0, 2))

	restored, err := NewBlockchain(cfg, store.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)
	r := io.NewBinReaderFromBuf(w.Bytes())
	require.NoError(t, restored.Restore(r, 2))

	require.Equal(t, bc.CurrentIndex(), restored.CurrentIndex())
	require.Equal(t, bc.CurrentHash(), restored.CurrentHash())
	require.Equal(t, bc.StateRoot(), restored.StateRoot())

	// A dump range past the tip is rejected.
	require.Error(t, bc.Dump(io.NewBufBinWriter().BinWriter, 0, 5))
}

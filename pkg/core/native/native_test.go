package native

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/dao"
	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/nef"
	"github.com/n3fullnode/neofull/pkg/smartcontract/manifest"
	"github.com/n3fullnode/neofull/pkg/store"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// buildTestNefAndManifest builds the smallest valid NEF3/manifest pair
// deploy() will accept: a one-opcode script and a wildcard-permission
// manifest under the given name.
func buildTestNefAndManifest(t *testing.T, name string) ([]byte, []byte) {
	t.Helper()
	f := &nef.File{
		Header: nef.Header{Magic: nef.Magic, Compiler: "neofull-test"},
		Script: []byte{0x40}, // RET
	}
	f.Checksum = f.CalculateChecksum()
	nefBytes, err := f.Bytes()
	require.NoError(t, err)

	m := manifest.DefaultManifest(name)
	manifestBytes, err := json.Marshal(m)
	require.NoError(t, err)

	return nefBytes, manifestBytes
}

func newTestContext(t *testing.T, witnessed util.Uint160) *interop.Context {
	t.Helper()
	d := dao.NewSimple(store.NewMemoryStore())
	tx := &transaction.Transaction{
		Signers:   []transaction.Signer{{Account: witnessed, Scopes: transaction.Global}},
		Witnesses: []transaction.Witness{{}},
	}
	return &interop.Context{
		DAO:       d,
		Container: tx,
		Committee: func() (util.Uint160, error) { return witnessed, nil },
	}
}

func TestNEP17MintBurnTransfer(t *testing.T) {
	alice := util.Uint160{1}
	bob := util.Uint160{2}
	ic := newTestContext(t, alice)

	gas := newGAS()
	require.NoError(t, gas.Mint(ic, alice, big.NewInt(1000)))

	bal, err := nep17BalanceOf(ic, gas.md.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal.Int64())

	ok, err := nep17Transfer(ic, gas.md.ID, gas.md.Hash, alice, bob, big.NewInt(400))
	require.NoError(t, err)
	assert.True(t, ok)

	aliceBal, _ := nep17BalanceOf(ic, gas.md.ID, alice)
	bobBal, _ := nep17BalanceOf(ic, gas.md.ID, bob)
	assert.Equal(t, int64(600), aliceBal.Int64())
	assert.Equal(t, int64(400), bobBal.Int64())

	require.NoError(t, gas.Burn(ic, alice, big.NewInt(600)))
	aliceBal, _ = nep17BalanceOf(ic, gas.md.ID, alice)
	assert.Equal(t, int64(0), aliceBal.Int64())

	require.Error(t, gas.Burn(ic, bob, big.NewInt(10000)))
}

func TestPolicyRequiresCommitteeWitness(t *testing.T) {
	committee := util.Uint160{9, 9}
	ic := newTestContext(t, committee)
	pol := newPolicy()

	def, err := pol.getFeePerByte(ic, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(defaultFeePerByte), def.(*stackitem.Integer).Big().Int64())

	_, err = pol.setFeePerByte(ic, []stackitem.Item{stackitem.NewInteger(2000)})
	require.NoError(t, err)

	got, err := pol.getFeePerByte(ic, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.(*stackitem.Integer).Big().Int64())

	otherIC := newTestContext(t, util.Uint160{1, 2, 3})
	otherIC.Committee = func() (util.Uint160, error) { return committee, nil }
	otherIC.Container.Signers[0].Account = util.Uint160{1, 2, 3}
	_, err = pol.setFeePerByte(otherIC, []stackitem.Item{stackitem.NewInteger(1)})
	assert.Error(t, err)
}

func TestManagementDeployAndLookup(t *testing.T) {
	mgmt := newManagement()
	sender := util.Uint160{7}
	ic := newTestContext(t, sender)

	nefBytes, manifestBytes := buildTestNefAndManifest(t, "helloworld")
	result, err := mgmt.deploy(ic, []stackitem.Item{
		stackitem.NewByteString(nefBytes),
		stackitem.NewByteString(manifestBytes),
		stackitem.NewNull(),
	})
	require.NoError(t, err)
	cs := result.(*stackitem.Interop).Value().(*ContractState)
	assert.Equal(t, "helloworld", cs.Manifest.Name)

	found, err := mgmt.GetContract(ic, cs.Hash)
	require.NoError(t, err)
	assert.Equal(t, cs.Hash, found.Hash)

	_, err = mgmt.deploy(ic, []stackitem.Item{
		stackitem.NewByteString(nefBytes),
		stackitem.NewByteString(manifestBytes),
		stackitem.NewNull(),
	})
	assert.ErrorIs(t, err, errContractExists)
}

func TestCryptoLibSha256AndVerify(t *testing.T) {
	c := newCryptoLib()
	ic := newTestContext(t, util.Uint160{})

	item, err := c.sha256(ic, []stackitem.Item{stackitem.NewByteString([]byte("abc"))})
	require.NoError(t, err)
	out, _ := item.Bytes()
	assert.Len(t, out, 32)

	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	msg := []byte("test message")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)

	ok, err := c.verifySecp256r1(ic, []stackitem.Item{
		stackitem.NewByteString(msg),
		stackitem.NewByteString(priv.PublicKey().Bytes()),
		stackitem.NewByteString(sig),
	})
	require.NoError(t, err)
	b, _ := ok.TryBool()
	assert.True(t, b)
}

func TestCryptoLibHardforkGating(t *testing.T) {
	c := newCryptoLib()
	ic := newTestContext(t, util.Uint160{})
	data := []stackitem.Item{stackitem.NewByteString([]byte("abc"))}

	// A bare context treats every hardfork as active.
	_, err := c.keccak256(ic, data)
	require.NoError(t, err)

	// Before the configured activation height both gated methods fault.
	ic.Hardforks = func(config.Hardfork) bool { return false }
	_, err = c.keccak256(ic, data)
	require.ErrorIs(t, err, errHardforkInactive)
	_, err = c.verifyEd25519(ic, []stackitem.Item{
		stackitem.NewByteString([]byte("msg")),
		stackitem.NewByteString(make([]byte, 32)),
		stackitem.NewByteString(make([]byte, 64)),
	})
	require.ErrorIs(t, err, errHardforkInactive)

	ic.Hardforks = func(hf config.Hardfork) bool { return hf == config.HFBasilisk }
	item, err := c.keccak256(ic, data)
	require.NoError(t, err)
	out, _ := item.Bytes()
	assert.Len(t, out, 32)
}

func TestStdLibItoaAtoiAndBase58(t *testing.T) {
	s := newStdLib()
	ic := newTestContext(t, util.Uint160{})

	str, err := s.itoa(ic, []stackitem.Item{stackitem.NewInteger(255), stackitem.NewInteger(16)})
	require.NoError(t, err)
	b, _ := str.Bytes()
	assert.Equal(t, "ff", string(b))

	n, err := s.atoi(ic, []stackitem.Item{stackitem.NewByteString([]byte("ff")), stackitem.NewInteger(16)})
	require.NoError(t, err)
	assert.Equal(t, int64(255), n.(*stackitem.Integer).Big().Int64())

	enc, err := s.base58Encode(ic, []stackitem.Item{stackitem.NewByteString([]byte("hello"))})
	require.NoError(t, err)
	encB, _ := enc.Bytes()
	dec, err := s.base58Decode(ic, []stackitem.Item{stackitem.NewByteString(encB)})
	require.NoError(t, err)
	decB, _ := dec.Bytes()
	assert.Equal(t, "hello", string(decB))
}

func TestDesignateRequiresBlockContext(t *testing.T) {
	committee := util.Uint160{5}
	ic := newTestContext(t, committee)
	d := newDesignate()
	ic.Block = nil

	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)

	_, err = d.designateAsRole(ic, []stackitem.Item{
		stackitem.NewInteger(8),
		stackitem.NewArray([]stackitem.Item{stackitem.NewByteString(priv.PublicKey().Bytes())}),
	})
	assert.Error(t, err) // no block context yet
}

func TestNEORegisterAndVote(t *testing.T) {
	neo := newNEO()
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	candidateHash := priv.PublicKey().GetScriptHash()
	ic := newTestContext(t, candidateHash)

	ok, err := neo.registerCandidate(ic, []stackitem.Item{stackitem.NewByteString(priv.PublicKey().Bytes())})
	require.NoError(t, err)
	b, _ := ok.TryBool()
	assert.True(t, b)

	require.NoError(t, nep17Mint(ic, neo.md.ID, candidateHash, big.NewInt(100)))

	voteOK, err := neo.vote(ic, []stackitem.Item{
		stackitem.NewByteString(candidateHash.BytesLE()),
		stackitem.NewByteString(priv.PublicKey().Bytes()),
	})
	require.NoError(t, err)
	vb, _ := voteOK.TryBool()
	assert.True(t, vb)

	cands := neo.allCandidates(ic)
	require.Len(t, cands, 1)
	assert.Equal(t, int64(100), cands[0].votes.Int64())
}

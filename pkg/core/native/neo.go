package native

import (
	"encoding/json"
	"errors"
	"math/big"
	"sort"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const neoID = -5

// CommitteeSize and ValidatorsCount match the reference node's mainnet
// protocol defaults; a configurable network would read these from
// pkg/config instead, which is a later wiring step.
const (
	CommitteeSize    = 21
	ValidatorsCount  = 7
	neoTotalSupply   = 100000000
)

var (
	candidatePrefix = []byte{33}
	voteOfPrefix    = []byte{34}
)

type candidateState struct {
	Registered bool
	Votes      *big.Int
}

type candidateStateJSON struct {
	Registered bool   `json:"registered"`
	Votes      string `json:"votes"`
}

func (s *candidateState) encode() ([]byte, error) {
	return json.Marshal(candidateStateJSON{Registered: s.Registered, Votes: s.Votes.String()})
}

func decodeCandidateState(b []byte) (*candidateState, error) {
	var aux candidateStateJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return nil, err
	}
	v, ok := new(big.Int).SetString(aux.Votes, 10)
	if !ok {
		return nil, errors.New("neo: malformed candidate votes")
	}
	return &candidateState{Registered: aux.Registered, Votes: v}, nil
}

// neoToken is the NEO native contract: the NEP-17 governance token,
// candidate registration, and committee/validator selection by vote
// weight.
type neoToken struct {
	md *ContractMD
}

func newNEO() *neoToken {
	c := &neoToken{md: NewContractMD("NeoToken", neoID)}
	c.md.AddMethod(MethodDesc{Name: "symbol", Func: c.symbol, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "decimals", Func: c.decimals, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "totalSupply", Func: c.totalSupply, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "balanceOf", Func: c.balanceOf, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "transfer", Func: c.transfer, ParamCount: 4, RequiredFlag: callflag.All, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "registerCandidate", Func: c.registerCandidate, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "unregisterCandidate", Func: c.unregisterCandidate, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "vote", Func: c.vote, ParamCount: 2, RequiredFlag: callflag.States, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "getCandidates", Func: c.getCandidates, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "getCommittee", Func: c.getCommittee, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "getNextBlockValidators", Func: c.getNextBlockValidators, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	return c
}

func (c *neoToken) Metadata() *ContractMD { return c.md }
func (c *neoToken) OnPersist(ic *interop.Context) error { return nil }
func (c *neoToken) PostPersist(ic *interop.Context) error { return nil }

func (c *neoToken) symbol(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewByteString([]byte("NEO")), nil
}

func (c *neoToken) decimals(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewInteger(0), nil
}

func (c *neoToken) totalSupply(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewInteger(neoTotalSupply), nil
}

func (c *neoToken) balanceOf(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	h, err := argToUint160(args[0])
	if err != nil {
		return nil, err
	}
	n, err := nep17BalanceOf(ic, c.md.ID, h)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBigInteger(n)
}

func (c *neoToken) transfer(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	from, err := argToUint160(args[0])
	if err != nil {
		return nil, err
	}
	to, err := argToUint160(args[1])
	if err != nil {
		return nil, err
	}
	amount, err := stackitem.ToBigInteger(args[2])
	if err != nil {
		return nil, err
	}
	ok, err := nep17Transfer(ic, c.md.ID, c.md.Hash, from, to, amount)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBool(ok), nil
}

func candidateKey(pub *keys.PublicKey) []byte {
	return append(append([]byte{}, candidatePrefix...), pub.Bytes()...)
}

func (c *neoToken) lookupCandidate(ic *interop.Context, pub *keys.PublicKey) (*candidateState, error) {
	b, err := ic.DAO.GetStorageItem(c.md.ID, candidateKey(pub))
	if err != nil {
		return &candidateState{Votes: big.NewInt(0)}, nil
	}
	return decodeCandidateState(b)
}

func (c *neoToken) storeCandidate(ic *interop.Context, pub *keys.PublicKey, s *candidateState) error {
	b, err := s.encode()
	if err != nil {
		return err
	}
	return ic.DAO.PutStorageItem(c.md.ID, candidateKey(pub), b)
}

func pubKeyArg(it stackitem.Item) (*keys.PublicKey, error) {
	b, err := stackitem.ToByteArray(it)
	if err != nil {
		return nil, err
	}
	return keys.DecodeBytes(b, keys.Secp256r1)
}

func (c *neoToken) registerCandidate(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	pub, err := pubKeyArg(args[0])
	if err != nil {
		return nil, err
	}
	if !ic.CheckWitness(pub.GetScriptHash()) {
		return stackitem.NewBool(false), nil
	}
	s, err := c.lookupCandidate(ic, pub)
	if err != nil {
		return nil, err
	}
	s.Registered = true
	if err := c.storeCandidate(ic, pub, s); err != nil {
		return nil, err
	}
	return stackitem.NewBool(true), nil
}

func (c *neoToken) unregisterCandidate(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	pub, err := pubKeyArg(args[0])
	if err != nil {
		return nil, err
	}
	if !ic.CheckWitness(pub.GetScriptHash()) {
		return stackitem.NewBool(false), nil
	}
	if err := ic.DAO.DeleteStorageItem(c.md.ID, candidateKey(pub)); err != nil {
		return nil, err
	}
	return stackitem.NewBool(true), nil
}

// vote records account's chosen candidate (or clears it when pub is
// Null) and shifts its full NEO balance onto that candidate's vote
// weight. Unlike the reference node this recomputes weight only at
// vote time, not on every balance-changing transfer afterward — a
// documented simplification, see the grounding ledger.
func (c *neoToken) vote(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	account, err := argToUint160(args[0])
	if err != nil {
		return nil, err
	}
	if !ic.CheckWitness(account) {
		return stackitem.NewBool(false), nil
	}
	balance, err := nep17BalanceOf(ic, c.md.ID, account)
	if err != nil {
		return nil, err
	}
	voteKey := append(append([]byte{}, voteOfPrefix...), account.BytesBE()...)
	if prevBytes, err := ic.DAO.GetStorageItem(c.md.ID, voteKey); err == nil {
		if prevPub, err := keys.DecodeBytes(prevBytes, keys.Secp256r1); err == nil {
			prev, err := c.lookupCandidate(ic, prevPub)
			if err == nil {
				prev.Votes = new(big.Int).Sub(prev.Votes, balance)
				_ = c.storeCandidate(ic, prevPub, prev)
			}
		}
	}
	if args[1].Type() == stackitem.NullT {
		return stackitem.NewBool(true), ic.DAO.DeleteStorageItem(c.md.ID, voteKey)
	}
	pub, err := pubKeyArg(args[1])
	if err != nil {
		return nil, err
	}
	cand, err := c.lookupCandidate(ic, pub)
	if err != nil {
		return nil, err
	}
	cand.Votes = new(big.Int).Add(cand.Votes, balance)
	if err := c.storeCandidate(ic, pub, cand); err != nil {
		return nil, err
	}
	if err := ic.DAO.PutStorageItem(c.md.ID, voteKey, pub.Bytes()); err != nil {
		return nil, err
	}
	return stackitem.NewBool(true), nil
}

type candidateEntry struct {
	pub   *keys.PublicKey
	votes *big.Int
}

func (c *neoToken) allCandidates(ic *interop.Context) []candidateEntry {
	var out []candidateEntry
	ic.DAO.Seek(c.md.ID, candidatePrefix, func(k, v []byte) bool {
		pub, err := keys.DecodeBytes(k[len(candidatePrefix):], keys.Secp256r1)
		if err != nil {
			return true
		}
		s, err := decodeCandidateState(v)
		if err != nil || !s.Registered {
			return true
		}
		out = append(out, candidateEntry{pub: pub, votes: s.Votes})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].votes.Cmp(out[j].votes) != 0 {
			return out[i].votes.Cmp(out[j].votes) > 0
		}
		return out[i].pub.GetScriptHash().Less(out[j].pub.GetScriptHash())
	})
	return out
}

func (c *neoToken) getCandidates(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	all := c.allCandidates(ic)
	items := make([]stackitem.Item, len(all))
	for i, e := range all {
		st := stackitem.NewStruct(nil)
		_ = st.(*stackitem.Struct).Append(stackitem.NewByteString(e.pub.Bytes()))
		v, err := stackitem.NewBigInteger(e.votes)
		if err != nil {
			return nil, err
		}
		_ = st.(*stackitem.Struct).Append(v)
		items[i] = st
	}
	return stackitem.NewArray(items), nil
}

func (c *neoToken) topN(ic *interop.Context, n int) []*keys.PublicKey {
	all := c.allCandidates(ic)
	if len(all) > n {
		all = all[:n]
	}
	out := make([]*keys.PublicKey, len(all))
	for i, e := range all {
		out[i] = e.pub
	}
	return out
}

func pubKeysToItem(pubs []*keys.PublicKey) stackitem.Item {
	items := make([]stackitem.Item, len(pubs))
	for i, p := range pubs {
		items[i] = stackitem.NewByteString(p.Bytes())
	}
	return stackitem.NewArray(items)
}

func (c *neoToken) getCommittee(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return pubKeysToItem(c.topN(ic, CommitteeSize)), nil
}

func (c *neoToken) getNextBlockValidators(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return pubKeysToItem(c.topN(ic, ValidatorsCount)), nil
}

// Mint is the Go-level entry point the genesis block builder uses to
// seed the initial NEO distribution, bypassing the witness check a
// script-invoked transfer would require.
func (c *neoToken) Mint(ic *interop.Context, h util.Uint160, amount *big.Int) error {
	return nep17Mint(ic, c.md.ID, h, amount)
}

// BalanceOf is the Go-level NEO balance accessor, avoiding a full VM
// invocation just to read a balance.
func (c *neoToken) BalanceOf(ic *interop.Context, h util.Uint160) (*big.Int, error) {
	return nep17BalanceOf(ic, c.md.ID, h)
}

// NextValidators is the Go-level accessor Blockchain.Validators (and
// through it the consensus service) uses to get
// the validator set agreed on for the next block, instead of going
// through a VM invocation of getNextBlockValidators.
func (c *neoToken) NextValidators(ic *interop.Context) []*keys.PublicKey {
	return c.topN(ic, ValidatorsCount)
}

// RegisterStandby seeds the candidate set from the network's configured
// standby committee at genesis time, bypassing the per-candidate witness
// check registerCandidate requires for an on-chain registration.
func (c *neoToken) RegisterStandby(ic *interop.Context, pubs []*keys.PublicKey) error {
	for _, pub := range pubs {
		if err := c.storeCandidate(ic, pub, &candidateState{Registered: true, Votes: big.NewInt(0)}); err != nil {
			return err
		}
	}
	return nil
}

// CommitteeAddress derives the committee multi-signature account hash
// from the current top-CommitteeSize candidates, the value
// interop.Context.Committee resolves to for committee witness checks.
func (c *neoToken) CommitteeAddress(ic *interop.Context) (util.Uint160, error) {
	pubs := c.topN(ic, CommitteeSize)
	if len(pubs) == 0 {
		return util.Uint160{}, errors.New("neo: no registered candidates yet")
	}
	m := len(pubs) - (len(pubs)-1)/3*2
	script, err := keys.CreateMultisigVerificationScript(m, pubs)
	if err != nil {
		return util.Uint160{}, err
	}
	return hash.Hash160(script), nil
}

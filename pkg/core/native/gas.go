package native

import (
	"math/big"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const gasID = -6

// gasToken is the GAS native contract: a plain NEP-17 utility token,
// minted by PostPersist fee distribution and burned to pay system/
// network fees.
type gasToken struct {
	md *ContractMD
}

func newGAS() *gasToken {
	c := &gasToken{md: NewContractMD("GasToken", gasID)}
	c.md.AddMethod(MethodDesc{Name: "symbol", Func: c.symbol, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "decimals", Func: c.decimals, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "totalSupply", Func: c.totalSupply, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "balanceOf", Func: c.balanceOf, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "transfer", Func: c.transfer, ParamCount: 4, RequiredFlag: callflag.All, ReturnsValue: true})
	return c
}

func (c *gasToken) Metadata() *ContractMD { return c.md }

// OnPersist burns nothing itself; System/Network fee burning happens
// inline as each transaction executes (via Burn, called from the
// ledger's fee-application step), not as a block-boundary sweep.
func (c *gasToken) OnPersist(ic *interop.Context) error { return nil }

// PostPersist mints the block's collected network fee to the block's
// NextConsensus account (the validators' multisig address, not the
// primary's own account); system fee is simply burned, never re-minted.
func (c *gasToken) PostPersist(ic *interop.Context) error {
	if ic.Block == nil || len(ic.Block.Transactions) == 0 {
		return nil
	}
	var total int64
	for _, tx := range ic.Block.Transactions {
		total += tx.NetworkFee
	}
	if total <= 0 {
		return nil
	}
	return nep17Mint(ic, c.md.ID, ic.Block.NextConsensus, big.NewInt(total))
}

func (c *gasToken) symbol(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewByteString([]byte("GAS")), nil
}

func (c *gasToken) decimals(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewInteger(8), nil
}

func (c *gasToken) totalSupply(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	n, err := nep17TotalSupply(ic, c.md.ID)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBigInteger(n)
}

func (c *gasToken) balanceOf(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
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

func (c *gasToken) transfer(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
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

// BalanceOf is the Go-level entry point the mempool's state-dependent
// fee check uses, avoiding a full VM invocation just to read a balance.
func (c *gasToken) BalanceOf(ic *interop.Context, h util.Uint160) (*big.Int, error) {
	return nep17BalanceOf(ic, c.md.ID, h)
}

// Mint is the Go-level entry point the ledger's fee-application step
// uses to credit rewards outside of a script invocation.
func (c *gasToken) Mint(ic *interop.Context, h util.Uint160, amount *big.Int) error {
	return nep17Mint(ic, c.md.ID, h, amount)
}

// Burn is the Go-level entry point the ledger's fee-application step
// uses to consume a transaction's declared system/network fee.
func (c *gasToken) Burn(ic *interop.Context, h util.Uint160, amount *big.Int) error {
	return nep17Burn(ic, c.md.ID, h, amount)
}

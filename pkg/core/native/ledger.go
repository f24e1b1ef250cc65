package native

import (
	"errors"

	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const ledgerID = -4

// BlockReader is the read-only view onto persisted chain data the
// Ledger contract serves; it is supplied by the blockchain/ledger
// pipeline package, keeping native from depending on it directly.
type BlockReader interface {
	GetBlock(h util.Uint256) (*block.Block, bool)
	GetBlockByIndex(index uint32) (*block.Block, bool)
	GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool)
	CurrentIndex() uint32
	CurrentHash() util.Uint256
}

// ledger is the LedgerContract native contract: read-only access to
// the persisted chain, addressed by block hash/index or tx hash.
type ledger struct {
	md     *ContractMD
	reader BlockReader
}

func newLedger() *ledger {
	c := &ledger{md: NewContractMD("LedgerContract", ledgerID)}
	c.md.AddMethod(MethodDesc{Name: "currentIndex", Func: c.currentIndex, ParamCount: 0, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "currentHash", Func: c.currentHash, ParamCount: 0, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "getBlock", Func: c.getBlock, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "getTransaction", Func: c.getTransaction, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "getTransactionHeight", Func: c.getTransactionHeight, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	return c
}

// BindReader wires the blockchain's read surface in once the ledger
// pipeline exists; until then every lookup method errors rather than
// panicking on a nil reader.
func (c *ledger) BindReader(r BlockReader) { c.reader = r }

func (c *ledger) Metadata() *ContractMD { return c.md }
func (c *ledger) OnPersist(ic *interop.Context) error { return nil }
func (c *ledger) PostPersist(ic *interop.Context) error { return nil }

var errLedgerUnbound = errors.New("ledger: chain reader not bound yet")

func (c *ledger) currentIndex(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if c.reader == nil {
		return nil, errLedgerUnbound
	}
	return stackitem.NewInteger(int64(c.reader.CurrentIndex())), nil
}

func (c *ledger) currentHash(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if c.reader == nil {
		return nil, errLedgerUnbound
	}
	h := c.reader.CurrentHash()
	return stackitem.NewByteString(h.BytesLE()), nil
}

func (c *ledger) getBlock(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if c.reader == nil {
		return nil, errLedgerUnbound
	}
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	var blk *block.Block
	var ok bool
	if len(b) == 32 {
		h, err := util.Uint256DecodeBytesLE(b)
		if err != nil {
			return nil, err
		}
		blk, ok = c.reader.GetBlock(h)
	} else {
		n, err := stackitem.ToBigInteger(args[0])
		if err != nil {
			return nil, err
		}
		blk, ok = c.reader.GetBlockByIndex(uint32(n.Int64()))
	}
	if !ok {
		return stackitem.NewNull(), nil
	}
	return stackitem.NewInterop(blk), nil
}

func (c *ledger) getTransaction(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if c.reader == nil {
		return nil, errLedgerUnbound
	}
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h, err := util.Uint256DecodeBytesLE(b)
	if err != nil {
		return nil, err
	}
	tx, _, ok := c.reader.GetTransaction(h)
	if !ok {
		return stackitem.NewNull(), nil
	}
	return stackitem.NewInterop(tx), nil
}

func (c *ledger) getTransactionHeight(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if c.reader == nil {
		return nil, errLedgerUnbound
	}
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h, err := util.Uint256DecodeBytesLE(b)
	if err != nil {
		return nil, err
	}
	_, height, ok := c.reader.GetTransaction(h)
	if !ok {
		return stackitem.NewInteger(-1), nil
	}
	return stackitem.NewInteger(int64(height)), nil
}

package native

import (
	"errors"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const policyID = -7

// Default policy values, matching the reference node's out-of-the-box
// fee schedule.
const (
	defaultFeePerByte     = 1000
	defaultExecFeeFactor  = 30
	defaultStoragePrice   = 100000
	maxExecFeeFactor      = 100
	maxStoragePrice       = 10000000
)

var (
	keyFeePerByte    = []byte{10}
	keyExecFeeFactor = []byte{18}
	keyStoragePrice  = []byte{19}
	keyBlockedPrefix = []byte{15}
)

// policy is the PolicyContract native contract: network-wide fee
// parameters and the account block-list, every mutation gated on the
// committee witness.
type policy struct {
	md *ContractMD
}

func newPolicy() *policy {
	c := &policy{md: NewContractMD("PolicyContract", policyID)}
	c.md.AddMethod(MethodDesc{Name: "getFeePerByte", Func: c.getFeePerByte, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "setFeePerByte", Func: c.setFeePerByte, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "getExecFeeFactor", Func: c.getExecFeeFactor, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "setExecFeeFactor", Func: c.setExecFeeFactor, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "getStoragePrice", Func: c.getStoragePrice, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "setStoragePrice", Func: c.setStoragePrice, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "isBlocked", Func: c.isBlocked, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "blockAccount", Func: c.blockAccount, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "unblockAccount", Func: c.unblockAccount, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: true})
	return c
}

func (c *policy) Metadata() *ContractMD { return c.md }
func (c *policy) OnPersist(ic *interop.Context) error { return nil }
func (c *policy) PostPersist(ic *interop.Context) error { return nil }

var errNotCommittee = errors.New("policy: committee witness required")

func (c *policy) requireCommittee(ic *interop.Context) error {
	ok, err := ic.CheckCommitteeWitness()
	if err != nil {
		return err
	}
	if !ok {
		return errNotCommittee
	}
	return nil
}

func (c *policy) getInt(ic *interop.Context, key []byte, dflt int64) (stackitem.Item, error) {
	n, err := ic.DAO.GetBigInt(c.md.ID, key)
	if err != nil {
		return nil, err
	}
	if n.Sign() == 0 {
		return stackitem.NewInteger(dflt), nil
	}
	return stackitem.NewBigInteger(n)
}

func (c *policy) getFeePerByte(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return c.getInt(ic, keyFeePerByte, defaultFeePerByte)
}

func (c *policy) setFeePerByte(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if err := c.requireCommittee(ic); err != nil {
		return nil, err
	}
	n, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	if n.Sign() < 0 || n.Int64() > 100000000 {
		return nil, errors.New("policy: fee per byte out of range")
	}
	return nil, ic.DAO.PutBigInt(c.md.ID, keyFeePerByte, n)
}

func (c *policy) getExecFeeFactor(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return c.getInt(ic, keyExecFeeFactor, defaultExecFeeFactor)
}

func (c *policy) setExecFeeFactor(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if err := c.requireCommittee(ic); err != nil {
		return nil, err
	}
	n, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	if n.Sign() <= 0 || n.Int64() > maxExecFeeFactor {
		return nil, errors.New("policy: exec fee factor out of range")
	}
	return nil, ic.DAO.PutBigInt(c.md.ID, keyExecFeeFactor, n)
}

func (c *policy) getStoragePrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return c.getInt(ic, keyStoragePrice, defaultStoragePrice)
}

func (c *policy) setStoragePrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if err := c.requireCommittee(ic); err != nil {
		return nil, err
	}
	n, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	if n.Sign() <= 0 || n.Int64() > maxStoragePrice {
		return nil, errors.New("policy: storage price out of range")
	}
	return nil, ic.DAO.PutBigInt(c.md.ID, keyStoragePrice, n)
}

func blockedKey(h util.Uint160) []byte {
	return append(append([]byte{}, keyBlockedPrefix...), h.BytesBE()...)
}

func (c *policy) isBlocked(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeBytesLE(b)
	if err != nil {
		return nil, err
	}
	_, err = ic.DAO.GetStorageItem(c.md.ID, blockedKey(h))
	return stackitem.NewBool(err == nil), nil
}

func (c *policy) blockAccount(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if err := c.requireCommittee(ic); err != nil {
		return nil, err
	}
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeBytesLE(b)
	if err != nil {
		return nil, err
	}
	if err := ic.DAO.PutStorageItem(c.md.ID, blockedKey(h), []byte{1}); err != nil {
		return nil, err
	}
	return stackitem.NewBool(true), nil
}

func (c *policy) unblockAccount(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if err := c.requireCommittee(ic); err != nil {
		return nil, err
	}
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeBytesLE(b)
	if err != nil {
		return nil, err
	}
	if err := ic.DAO.DeleteStorageItem(c.md.ID, blockedKey(h)); err != nil {
		return nil, err
	}
	return stackitem.NewBool(true), nil
}

// FeePerByte is the Go-level accessor the mempool's network-fee check
// and the P2P message-size accounting use, avoiding a VM invocation
// just to read a policy parameter.
func (c *policy) FeePerByte(ic *interop.Context) (int64, error) {
	return c.getPlainInt(ic, keyFeePerByte, defaultFeePerByte)
}

// ExecFeeFactor is the Go-level accessor the VM's gas meter scales
// opcode base costs by.
func (c *policy) ExecFeeFactor(ic *interop.Context) (int64, error) {
	return c.getPlainInt(ic, keyExecFeeFactor, defaultExecFeeFactor)
}

// IsAccountBlocked is the Go-level accessor the mempool's
// state-dependent admission check uses to reject a blocked sender
// without a VM invocation.
func (c *policy) IsAccountBlocked(ic *interop.Context, h util.Uint160) (bool, error) {
	_, err := ic.DAO.GetStorageItem(c.md.ID, blockedKey(h))
	return err == nil, nil
}

func (c *policy) getPlainInt(ic *interop.Context, key []byte, dflt int64) (int64, error) {
	n, err := ic.DAO.GetBigInt(c.md.ID, key)
	if err != nil {
		return 0, err
	}
	if n.Sign() == 0 {
		return dflt, nil
	}
	return n.Int64(), nil
}

package native

import (
	"encoding/binary"
	"errors"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/native/noderoles"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const designateID = -8

// designate is the RoleManagement native contract: committee-gated
// assignment of accounts into well-known roles (Oracle nodes, state
// validators, NeoFS alphabet members, P2P notary nodes).
type designate struct {
	md *ContractMD
}

func newDesignate() *designate {
	c := &designate{md: NewContractMD("RoleManagement", designateID)}
	c.md.AddMethod(MethodDesc{Name: "designateAsRole", Func: c.designateAsRole, ParamCount: 2, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "getDesignatedByRole", Func: c.getDesignatedByRole, ParamCount: 2, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	return c
}

func (c *designate) Metadata() *ContractMD { return c.md }
func (c *designate) OnPersist(ic *interop.Context) error { return nil }
func (c *designate) PostPersist(ic *interop.Context) error { return nil }

func roleKey(role noderoles.Role, index uint32) []byte {
	b := make([]byte, 1+4)
	b[0] = byte(role)
	binary.BigEndian.PutUint32(b[1:], index)
	return b
}

func (c *designate) designateAsRole(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	roleN, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	role := noderoles.Role(roleN.Int64())
	if role.String() == "Unknown" {
		return nil, errors.New("designate: unknown role")
	}
	arr, ok := args[1].(*stackitem.Array)
	if !ok {
		return nil, errors.New("designate: expected an array of public keys")
	}
	ok2, err := ic.CheckCommitteeWitness()
	if err != nil {
		return nil, err
	}
	if !ok2 {
		return nil, errNotCommittee
	}
	if ic.Block == nil {
		return nil, errors.New("designate: no current block context")
	}
	items := arr.Value().([]stackitem.Item)
	buf := make([]byte, 0, len(items)*33)
	for _, it := range items {
		b, err := stackitem.ToByteArray(it)
		if err != nil {
			return nil, err
		}
		if _, err := keys.DecodeBytes(b, keys.Secp256r1); err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return nil, ic.DAO.PutStorageItem(c.md.ID, roleKey(role, ic.Block.Index+1), buf)
}

func (c *designate) getDesignatedByRole(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	roleN, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	role := noderoles.Role(roleN.Int64())
	indexN, err := stackitem.ToBigInteger(args[1])
	if err != nil {
		return nil, err
	}
	index := uint32(indexN.Int64())
	var best []byte
	var bestIndex uint32
	found := false
	prefix := []byte{byte(role)}
	ic.DAO.Seek(c.md.ID, prefix, func(k, v []byte) bool {
		if len(k) != 5 {
			return true
		}
		ki := binary.BigEndian.Uint32(k[1:])
		if ki <= index && (!found || ki > bestIndex) {
			best, bestIndex, found = v, ki, true
		}
		return true
	})
	if !found {
		return stackitem.NewArray(nil), nil
	}
	items := make([]stackitem.Item, 0, len(best)/33)
	for off := 0; off+33 <= len(best); off += 33 {
		items = append(items, stackitem.NewByteString(best[off:off+33]))
	}
	return stackitem.NewArray(items), nil
}

// AccountsByRole is the Go-level counterpart of getDesignatedByRole,
// used by the block/mempool verification path to decide whether a
// signer is currently designated for role (e.g. the Oracle role an
// OracleResponse attribute's sender must hold) without going through a
// VM invocation.
func (c *designate) AccountsByRole(ic *interop.Context, role noderoles.Role, index uint32) []util.Uint160 {
	var best []byte
	var bestIndex uint32
	found := false
	prefix := []byte{byte(role)}
	ic.DAO.Seek(c.md.ID, prefix, func(k, v []byte) bool {
		if len(k) != 5 {
			return true
		}
		ki := binary.BigEndian.Uint32(k[1:])
		if ki <= index && (!found || ki > bestIndex) {
			best, bestIndex, found = v, ki, true
		}
		return true
	})
	if !found {
		return nil
	}
	accounts := make([]util.Uint160, 0, len(best)/33)
	for off := 0; off+33 <= len(best); off += 33 {
		pub, err := keys.DecodeBytes(best[off:off+33], keys.Secp256r1)
		if err != nil {
			continue
		}
		accounts = append(accounts, pub.GetScriptHash())
	}
	return accounts
}

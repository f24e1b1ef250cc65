package native

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/smartcontract/manifest"
	"github.com/n3fullnode/neofull/pkg/smartcontract/nef"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// managementID is ContractManagement's well-known native contract id.
const managementID = -1

var errContractNotFound = errors.New("management: contract not found")
var errContractExists = errors.New("management: contract already deployed")

// ContractState is what ContractManagement stores per deployed
// contract: its stable id, the update counter bumped on every Update
// call, its hash, and the NEF/manifest pair that define it.
type ContractState struct {
	ID            int32
	UpdateCounter uint16
	Hash          util.Uint160
	NEF           nef.File
	Manifest      manifest.Manifest
}

type contractStateJSON struct {
	ID            int32               `json:"id"`
	UpdateCounter uint16              `json:"updatecounter"`
	Hash          string              `json:"hash"`
	NEF           nef.File            `json:"nef"`
	Manifest      manifest.Manifest   `json:"manifest"`
}

func (cs *ContractState) encode() ([]byte, error) {
	return json.Marshal(contractStateJSON{
		ID: cs.ID, UpdateCounter: cs.UpdateCounter,
		Hash: "0x" + cs.Hash.StringLE(), NEF: cs.NEF, Manifest: cs.Manifest,
	})
}

func decodeContractState(b []byte) (*ContractState, error) {
	var aux contractStateJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeStringLE(aux.Hash[2:])
	if err != nil {
		return nil, err
	}
	return &ContractState{ID: aux.ID, UpdateCounter: aux.UpdateCounter, Hash: h, NEF: aux.NEF, Manifest: aux.Manifest}, nil
}

// management is the ContractManagement native contract: deployment,
// update, destruction and lookup of every other contract on the
// chain, native or user-deployed.
type management struct {
	md *ContractMD
}

var (
	keyContractPrefix = []byte{0x08}
	keyNextID         = []byte{0x0f}
)

func newManagement() *management {
	c := &management{md: NewContractMD("ContractManagement", managementID)}
	c.md.AddMethod(MethodDesc{Name: "deploy", Func: c.deploy, ParamCount: 3, RequiredFlag: callflag.All, Price: 0, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "update", Func: c.update, ParamCount: 3, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "destroy", Func: c.destroy, ParamCount: 0, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "getContract", Func: c.getContractByHash, ParamCount: 1, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	return c
}

func (c *management) Metadata() *ContractMD { return c.md }

func (c *management) OnPersist(ic *interop.Context) error     { return nil }
func (c *management) PostPersist(ic *interop.Context) error   { return nil }

// CreateContractHash computes the deterministic deployment hash:
// Hash160(sender || little-endian checksum || name), the same inputs
// every deployer must agree on ahead of time to predict a contract's
// address before it lands on chain.
func CreateContractHash(sender util.Uint160, checksum uint32, name string) util.Uint160 {
	buf := make([]byte, 0, 20+4+len(name))
	buf = append(buf, sender.BytesBE()...)
	cs := make([]byte, 4)
	binary.LittleEndian.PutUint32(cs, checksum)
	buf = append(buf, cs...)
	buf = append(buf, []byte(name)...)
	return hash.Hash160(buf)
}

func (c *management) nextID(ic *interop.Context) (int32, error) {
	b, err := ic.DAO.GetStorageItem(c.md.ID, keyNextID)
	var id int32 = 1
	if err == nil && len(b) == 4 {
		id = int32(binary.LittleEndian.Uint32(b)) + 1
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(id))
	if err := ic.DAO.PutStorageItem(c.md.ID, keyNextID, out); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *management) deploy(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	nefBytes, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	manifestBytes, err := stackitem.ToByteArray(args[1])
	if err != nil {
		return nil, err
	}
	nefFile, err := nef.FileFromBytes(nefBytes)
	if err != nil {
		return nil, fmt.Errorf("management: bad nef: %w", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return nil, fmt.Errorf("management: bad manifest: %w", err)
	}
	if ic.Container == nil || len(ic.Container.Signers) == 0 {
		return nil, errors.New("management: deploy requires a transaction sender")
	}
	sender := ic.Container.Signers[0].Account
	h := CreateContractHash(sender, nefFile.Checksum, m.Name)
	if err := m.IsValid(h); err != nil {
		return nil, err
	}
	if _, err := ic.DAO.GetStorageItem(c.md.ID, append(append([]byte{}, keyContractPrefix...), h.BytesBE()...)); err == nil {
		return nil, errContractExists
	}
	id, err := c.nextID(ic)
	if err != nil {
		return nil, err
	}
	cs := &ContractState{ID: id, Hash: h, NEF: *nefFile, Manifest: m}
	return c.store(ic, cs)
}

func (c *management) update(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	nefBytes, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	manifestBytes, err := stackitem.ToByteArray(args[1])
	if err != nil {
		return nil, err
	}
	h := ic.VM.Context().ScriptHash
	cs, err := c.lookup(ic, h)
	if err != nil {
		return nil, err
	}
	if len(nefBytes) > 0 {
		nefFile, err := nef.FileFromBytes(nefBytes)
		if err != nil {
			return nil, err
		}
		cs.NEF = *nefFile
	}
	if len(manifestBytes) > 0 {
		var m manifest.Manifest
		if err := json.Unmarshal(manifestBytes, &m); err != nil {
			return nil, err
		}
		if err := m.IsValid(h); err != nil {
			return nil, err
		}
		cs.Manifest = m
	}
	cs.UpdateCounter++
	return c.store(ic, cs)
}

func (c *management) destroy(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	h := ic.VM.Context().ScriptHash
	key := append(append([]byte{}, keyContractPrefix...), h.BytesBE()...)
	return nil, ic.DAO.DeleteStorageItem(c.md.ID, key)
}

func (c *management) store(ic *interop.Context, cs *ContractState) (stackitem.Item, error) {
	b, err := cs.encode()
	if err != nil {
		return nil, err
	}
	key := append(append([]byte{}, keyContractPrefix...), cs.Hash.BytesBE()...)
	if err := ic.DAO.PutStorageItem(c.md.ID, key, b); err != nil {
		return nil, err
	}
	return stackitem.NewInterop(cs), nil
}

func (c *management) lookup(ic *interop.Context, h util.Uint160) (*ContractState, error) {
	key := append(append([]byte{}, keyContractPrefix...), h.BytesBE()...)
	b, err := ic.DAO.GetStorageItem(c.md.ID, key)
	if err != nil {
		return nil, errContractNotFound
	}
	return decodeContractState(b)
}

func (c *management) getContractByHash(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeBytesLE(b)
	if err != nil {
		return nil, err
	}
	cs, err := c.lookup(ic, h)
	if err != nil {
		return stackitem.NewNull(), nil
	}
	return stackitem.NewInterop(cs), nil
}

// GetContract is the Go-level accessor other native contracts and the
// System.Contract.Call dispatch use to load a deployed contract,
// bypassing the stack-item calling convention.
func (c *management) GetContract(ic *interop.Context, h util.Uint160) (*ContractState, error) {
	return c.lookup(ic, h)
}

// Package native implements the blessed contracts invoked by
// well-known script hashes whose logic runs as host code rather than
// VM bytecode: ContractManagement, the Ledger/Policy/NEO/GAS/Oracle/
// RoleManagement contracts, and the CryptoLib/StdLib helper libraries.
package native

import (
	"fmt"
	"math/big"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/native/nativenames"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// MethodDesc is one callable entry point on a native contract.
type MethodDesc struct {
	Name         string
	Func         func(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error)
	ParamCount   int
	RequiredFlag callflag.CallFlag
	Price        int64
	ReturnsValue bool
}

// ContractMD is a native contract's identity and method table.
type ContractMD struct {
	Name    string
	Hash    util.Uint160
	ID      int32
	Methods []MethodDesc
}

// NewContractMD derives a stable hash from name (Hash160 over a fixed
// "Native"-prefixed tag, standing in for the reference's ABI-encoded
// deployment script since that construction wasn't available in the
// retrieval pack) and builds an empty method table.
func NewContractMD(name string, id int32) *ContractMD {
	return &ContractMD{
		Name: name,
		Hash: hash.Hash160([]byte("Native" + name)),
		ID:   id,
	}
}

// AddMethod registers a method, panicking on a duplicate name: method
// tables are built once at startup from a literal list, a collision
// there is a programmer error, not a runtime condition.
func (c *ContractMD) AddMethod(m MethodDesc) {
	for _, existing := range c.Methods {
		if existing.Name == m.Name {
			panic(fmt.Sprintf("native: duplicate method %s on %s", m.Name, c.Name))
		}
	}
	c.Methods = append(c.Methods, m)
}

// Contract is a blessed native contract.
type Contract interface {
	Metadata() *ContractMD
	// OnPersist runs once per block before any transaction executes.
	OnPersist(ic *interop.Context) error
	// PostPersist runs once per block after every transaction has.
	PostPersist(ic *interop.Context) error
}

// methodCallID is the id System.Contract.CallNative/CALLT dispatch
// resolves a (contract hash, method name) pair to, built the same way
// syscalls hash their ASCII name into a SYSCALL operand.
func methodCallID(h util.Uint160, method string) uint32 {
	return vm.InteropID(h.StringLE() + "." + method)
}

// Contracts is the full set of registered native contracts, indexed
// for both CheckWitness-style hash lookup and CALLNATIVE dispatch.
type Contracts struct {
	Contracts []Contract
	byHash    map[util.Uint160]Contract
	byCallID  map[uint32]methodEntry
}

type methodEntry struct {
	contract Contract
	method   MethodDesc
}

// NewContracts constructs the full native contract set.
func NewContracts() *Contracts {
	cs := &Contracts{
		byHash:   make(map[util.Uint160]Contract),
		byCallID: make(map[uint32]methodEntry),
	}
	cs.register(newManagement())
	cs.register(newLedger())
	cs.register(newPolicy())
	cs.register(newNEO())
	cs.register(newGAS())
	cs.register(newCryptoLib())
	cs.register(newStdLib())
	cs.register(newOracle())
	cs.register(newDesignate())
	return cs
}

func (cs *Contracts) register(c Contract) {
	md := c.Metadata()
	cs.Contracts = append(cs.Contracts, c)
	cs.byHash[md.Hash] = c
	for _, m := range md.Methods {
		id := methodCallID(md.Hash, m.Name)
		if _, exists := cs.byCallID[id]; exists {
			panic("native: call id collision for " + md.Name + "." + m.Name)
		}
		cs.byCallID[id] = methodEntry{contract: c, method: m}
	}
}

// ByHash looks up a native contract by its script hash.
func (cs *Contracts) ByHash(h util.Uint160) (Contract, bool) {
	c, ok := cs.byHash[h]
	return c, ok
}

// ByName looks up a native contract by name.
func (cs *Contracts) ByName(name string) (Contract, bool) {
	for _, c := range cs.Contracts {
		if c.Metadata().Name == name {
			return c, true
		}
	}
	return nil, false
}

// NEP17Balance is the Go-level balance/mint surface shared by the NEO
// and GAS native contracts, exposed so the ledger's fee application and
// genesis construction can touch balances without a VM invocation.
type NEP17Balance interface {
	Contract
	BalanceOf(ic *interop.Context, h util.Uint160) (*big.Int, error)
	Mint(ic *interop.Context, h util.Uint160, amount *big.Int) error
}

// GAS returns the GasToken native contract.
func (cs *Contracts) GAS() *gasToken {
	c, _ := cs.ByName(nativenames.Gas)
	return c.(*gasToken)
}

// NEO returns the NeoToken native contract.
func (cs *Contracts) NEO() *neoToken {
	c, _ := cs.ByName(nativenames.Neo)
	return c.(*neoToken)
}

// Ledger returns the LedgerContract native contract.
func (cs *Contracts) Ledger() *ledger {
	c, _ := cs.ByName(nativenames.Ledger)
	return c.(*ledger)
}

// Management returns the ContractManagement native contract.
func (cs *Contracts) Management() *management {
	c, _ := cs.ByName(nativenames.Management)
	return c.(*management)
}

// Policy returns the PolicyContract native contract.
func (cs *Contracts) Policy() *policy {
	c, _ := cs.ByName(nativenames.Policy)
	return c.(*policy)
}

// Designate returns the RoleManagement native contract.
func (cs *Contracts) Designate() *designate {
	c, _ := cs.ByName(nativenames.Designate)
	return c.(*designate)
}

// Oracle returns the OracleContract native contract.
func (cs *Contracts) Oracle() *oracle {
	c, _ := cs.ByName(nativenames.Oracle)
	return c.(*oracle)
}

// Invoke services a CALLNATIVE id: pops the method's declared
// argument count off the running VM's evaluation stack (in reverse
// push order so args[0] is the first argument), checks call flags,
// charges gas, runs the handler and pushes its result if any.
func (cs *Contracts) Invoke(ic *interop.Context, v *vm.VM, id uint32) error {
	entry, ok := cs.byCallID[id]
	if !ok {
		return fmt.Errorf("native: unknown call id %d", id)
	}
	m := entry.method
	if !v.Context().CallFlags().Has(m.RequiredFlag) {
		return fmt.Errorf("native: %s.%s requires %s", entry.contract.Metadata().Name, m.Name, m.RequiredFlag)
	}
	if err := v.AddGas(m.Price); err != nil {
		return err
	}
	args := make([]stackitem.Item, m.ParamCount)
	for i := 0; i < m.ParamCount; i++ {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		args[i] = it
	}
	result, err := m.Func(ic, args)
	if err != nil {
		return err
	}
	if m.ReturnsValue {
		return v.Estack().Push(result)
	}
	return nil
}

// OnPersist runs every contract's block-start hook in registration
// order.
func (cs *Contracts) OnPersist(ic *interop.Context) error {
	for _, c := range cs.Contracts {
		if err := c.OnPersist(ic); err != nil {
			return err
		}
	}
	return nil
}

// PostPersist runs every contract's block-end hook in registration
// order.
func (cs *Contracts) PostPersist(ic *interop.Context) error {
	for _, c := range cs.Contracts {
		if err := c.PostPersist(ic); err != nil {
			return err
		}
	}
	return nil
}

// Package interop carries the per-execution state native contracts
// and VM syscalls need beyond the evaluation stack itself: the
// storage snapshot, the transaction or block driving execution, and
// the witness-checking hooks every committee-gated native method must
// call through rather than stub out.
package interop

import (
	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/dao"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/smartcontract/trigger"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// Context is the environment one script or native-contract invocation
// runs in.
type Context struct {
	DAO     *dao.Simple
	VM      *vm.VM
	Trigger trigger.Type
	Network uint32

	// Container is the transaction being verified/executed, nil for
	// OnPersist/PostPersist block-level triggers.
	Container *transaction.Transaction
	// Block is the block being persisted (for OnPersist/PostPersist,
	// where its transaction list feeds GAS fee distribution) or the
	// current chain tip header (for read-only Application calls).
	Block *block.Block

	// Committee resolves the current committee multi-signature
	// account; it is supplied by the core wiring layer once the NEO
	// native contract (which owns committee bookkeeping) exists,
	// keeping this package from importing native and creating a cycle.
	Committee func() (util.Uint160, error)

	// OnLog receives every System.Runtime.Log call, wired by the core
	// package to its zap logger. Left nil, log calls are silently
	// dropped (tests commonly run without one).
	OnLog func(scriptHash util.Uint160, message string)

	// Groups resolves the manifest-declared group keys of a deployed
	// contract; wired by the core package since manifest storage lives
	// with ContractManagement. Left nil, group-scoped witnesses never
	// match (fail closed).
	Groups func(h util.Uint160) [][33]byte

	// Hardforks reports whether a configured activation height has been
	// reached at the executing block, wired by the core package from
	// ProtocolConfiguration. Left nil (bare test contexts), every
	// hardfork counts as active.
	Hardforks func(hf config.Hardfork) bool
}

// IsHardforkEnabled is the nil-tolerant accessor native contracts
// gate height-activated behaviour through.
func (ic *Context) IsHardforkEnabled(hf config.Hardfork) bool {
	return ic.Hardforks == nil || ic.Hardforks(hf)
}

// Notify records a contract-emitted event on the executing VM, the
// same collection System.Runtime.Notify appends to. A nil VM (bare
// Go-level invocation in tests or genesis bootstrap) drops the event.
func (ic *Context) Notify(contract util.Uint160, name string, state stackitem.Item) {
	if ic.VM == nil {
		return
	}
	ic.VM.Notifications = append(ic.VM.Notifications, vm.Notification{
		ScriptHash: contract,
		Name:       name,
		State:      state,
	})
}

// CheckWitness reports whether h has a satisfied witness in the
// current container, consulting each signer's scope/rule set. Outside
// a transaction container (OnPersist/PostPersist triggers) it always
// fails closed: there is no witness to check.
func (ic *Context) CheckWitness(h util.Uint160) bool {
	if ic.Container == nil {
		return false
	}
	mctx := &transaction.MatchContext{EntryScriptHash: ic.entryScriptHash()}
	if ic.VM != nil && ic.VM.Context() != nil {
		mctx.CurrentScriptHash = ic.VM.Context().ScriptHash
		mctx.EntryScriptHash = ic.VM.EntryScriptHash()
		if calling, ok := ic.VM.CallingScriptHash(); ok {
			c := calling
			mctx.CallingScriptHash = &c
			if ic.Groups != nil {
				mctx.CallingGroups = ic.Groups(calling)
			}
		}
		if ic.Groups != nil {
			mctx.CurrentGroups = ic.Groups(mctx.CurrentScriptHash)
		}
	}
	for i := range ic.Container.Signers {
		s := &ic.Container.Signers[i]
		if !s.Account.Equals(h) {
			continue
		}
		if s.AppliesToScope(mctx, mctx.CurrentScriptHash, mctx.CurrentGroups) {
			return true
		}
	}
	return false
}

// entryScriptHash is the hash of the transaction's entry script, the
// reference point CalledByEntry scopes compare against when no VM is
// attached (Go-level native calls during verification).
func (ic *Context) entryScriptHash() util.Uint160 {
	return hash.Hash160(ic.Container.Script)
}

// CheckCommitteeWitness is the witness check every committee-gated
// native method (Policy mutations, RoleManagement designation, NEO
// committee changes) must call; returning true is a protocol-level
// obligation, not something a method may shortcut.
func (ic *Context) CheckCommitteeWitness() (bool, error) {
	committee, err := ic.Committee()
	if err != nil {
		return false, err
	}
	return ic.CheckWitness(committee), nil
}

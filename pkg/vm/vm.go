// Package vm implements the deterministic stack-based execution engine
// NeoVM scripts (transaction verification scripts, deployed contract
// code, and native-contract call plumbing) run inside.
package vm

import (
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/smartcontract/trigger"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
	"github.com/n3fullnode/neofull/pkg/vm/vmstate"
)

// MaxInvocationStackDepth bounds the number of nested contexts (script
// calls) a single execution may hold.
const MaxInvocationStackDepth = 1024

// Notification is one System.Runtime.Notify event emitted during
// execution.
type Notification struct {
	ScriptHash util.Uint160
	Name       string
	State      stackitem.Item
}

// StorageAccess is the minimal interface the engine needs from the
// ledger's write-through snapshot to service Storage.* and
// Contract.Call interops, without coupling the VM package to the
// concrete snapshot/native-contract types.
type StorageAccess interface {
	// ResolveScript returns the deployed script and declared call
	// flags for a given contract hash, or ok=false if not deployed.
	ResolveScript(hash util.Uint160) (script []byte, ok bool)
}

// VM is one execution of the engine: an invocation stack of Contexts,
// a gas meter, an interop registry and the snapshot it reads/writes
// through.
type VM struct {
	istack      []*Context
	refs        *stackitem.RefCounter
	interops    *InteropRegistry
	resultStack *Stack

	GasConsumed int64
	GasLimit    int64
	ExecFeeFactor int64

	Trigger trigger.Type
	State   vmstate.State

	// CheckedHash is the signing hash System.Crypto.CheckSig/CheckMultisig
	// verify against: the transaction/block/payload hash being witnessed.
	CheckedHash []byte

	Store StorageAccess

	uncaught stackitem.Item

	Notifications []Notification

	// OnSysCall lets embedding packages (native contract dispatch,
	// tests) observe every syscall for logging/metrics without
	// threading a logger through every handler.
	OnSysCall func(name string)

	// NativeCall services CALLNATIVE, dispatching into the native
	// contract registry (wired by the core package, which owns the
	// NEO/GAS/Policy/... implementations); nil faults with
	// ErrInvalidOpcode if a script ever reaches that opcode.
	NativeCall func(v *VM, id uint32) error

	// TokenCall services CALLT, resolving an index into the executing
	// contract's NEF call-token table (also wired by the core package,
	// which owns contract deployment); nil faults with
	// ErrInvalidOpcode if a script ever reaches that opcode.
	TokenCall func(v *VM, index uint16) error
}

// New constructs a VM with a fresh reference counter and a registry of
// the built-in interops.
func New(reg *InteropRegistry) *VM {
	return &VM{
		refs:          stackitem.NewRefCounter(stackitem.DefaultRefCounterLimit),
		interops:      reg,
		ExecFeeFactor: DefaultExecFeeFactor,
		State:         vmstate.NoneState,
	}
}

// RefCounter exposes the engine's reference counter, e.g. so the
// orchestrator can run a periodic CollectCycles sweep.
func (v *VM) RefCounter() *stackitem.RefCounter { return v.refs }

// Context returns the currently executing frame, or nil if the
// invocation stack is empty.
func (v *VM) Context() *Context {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// EntryScriptHash returns the hash of the bottom invocation frame's
// script, the reference point CalledByEntry witness scopes compare
// against.
func (v *VM) EntryScriptHash() util.Uint160 {
	if len(v.istack) == 0 {
		return util.Uint160{}
	}
	return v.istack[0].ScriptHash
}

// CallingScriptHash returns the script hash of the frame that invoked
// the currently executing contract, skipping internal (same-script)
// frames created by CALL/CALLA; ok is false at the entry frame.
func (v *VM) CallingScriptHash() (util.Uint160, bool) {
	cur := v.Context()
	if cur == nil {
		return util.Uint160{}, false
	}
	for i := len(v.istack) - 2; i >= 0; i-- {
		if !v.istack[i].ScriptHash.Equals(cur.ScriptHash) {
			return v.istack[i].ScriptHash, true
		}
	}
	return util.Uint160{}, false
}

// Estack returns the current context's evaluation stack, or a final
// result stack once execution has halted and contexts have unwound.
func (v *VM) Estack() *Stack {
	if c := v.Context(); c != nil {
		return c.Estack()
	}
	return v.resultStack
}

// LoadScript pushes a new context for script onto the invocation
// stack, failing if that would exceed MaxInvocationStackDepth.
func (v *VM) LoadScript(script []byte, scriptHash util.Uint160, rvcount int, flags callflag.CallFlag) error {
	if len(v.istack) >= MaxInvocationStackDepth {
		return ErrInvocationDepth
	}
	v.istack = append(v.istack, NewContext(script, scriptHash, rvcount, flags, v.refs))
	return nil
}

// LoadClonedContext pushes a context that shares the current context's
// script and static slots but starts executing at pos — the mechanism
// behind CALL/CALLL internal jumps.
func (v *VM) LoadClonedContext(pos int, flags callflag.CallFlag) error {
	cur := v.Context()
	if cur == nil {
		return ErrNotExecuting
	}
	if len(v.istack) >= MaxInvocationStackDepth {
		return ErrInvocationDepth
	}
	v.istack = append(v.istack, cur.Clone(pos, flags))
	return nil
}

// Load is a convenience wrapper used by transaction/witness
// verification: load script with a zero script hash (caller computes
// and tracks hashes explicitly where it matters) and All call flags.
func (v *VM) Load(script []byte) {
	_ = v.LoadScript(script, util.Uint160{}, -1, callflag.All)
}

// chargeGas debits cost from the gas budget, faulting the execution
// (returning ErrOutOfGas) instead of letting it go negative.
func (v *VM) chargeGas(cost int64) error {
	cost *= v.ExecFeeFactor
	if v.GasConsumed+cost > v.GasLimit {
		v.GasConsumed = v.GasLimit
		return ErrOutOfGas
	}
	v.GasConsumed += cost
	return nil
}

// AddGas charges an arbitrary interop-declared price, exported so
// native contract dispatch (which executes outside the opcode loop)
// can charge the same meter.
func (v *VM) AddGas(cost int64) error {
	if v.GasConsumed+cost > v.GasLimit {
		v.GasConsumed = v.GasLimit
		return ErrOutOfGas
	}
	v.GasConsumed += cost
	return nil
}

// Run drives the engine to completion: HALT, FAULT, or BREAK. It never
// suspends mid-opcode — callers needing to
// bound wall-clock time must bound GasLimit instead.
func (v *VM) Run() error {
	for v.State == vmstate.NoneState {
		if err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction, transitioning State to HALT
// or FAULT if this was the last one / a fault occurred.
func (v *VM) Step() error {
	ctx := v.Context()
	if ctx == nil {
		v.State = vmstate.HaltState
		return nil
	}
	opByte, ok := ctx.Next()
	if !ok {
		// Falling off the end of a script behaves like an implicit RET.
		return v.execRet()
	}
	op := opcode.Opcode(opByte)
	handler := dispatchTable[op]
	if handler == nil {
		return v.fault(ErrInvalidOpcode)
	}
	if err := v.chargeGas(opcodePrice(op)); err != nil {
		return v.fault(err)
	}
	if err := handler(v); err != nil {
		return v.handleFault(err)
	}
	return nil
}

// fault transitions directly to FaultState, used for faults that are
// never catchable (gas exhaustion, invocation-depth overflow, unknown
// opcode).
func (v *VM) fault(err error) error {
	v.State = vmstate.FaultState
	return err
}

// handleFault attempts to unwind to the nearest TRY handler before
// declaring the engine FAULTed; THROW and catchable runtime errors
// both funnel through here.
func (v *VM) handleFault(err error) error {
	item := errToItem(err)
	if v.unwindToHandler(item) {
		return nil
	}
	v.uncaught = item
	v.State = vmstate.FaultState
	return err
}

func errToItem(err error) stackitem.Item {
	if ve, ok := err.(*vmException); ok {
		return ve.item
	}
	return stackitem.NewByteString([]byte(err.Error()))
}

// vmException carries a script-thrown value (THROW's operand) through
// the error-return plumbing without losing its stack-item identity.
type vmException struct {
	item stackitem.Item
}

func (e *vmException) Error() string { return "vm: exception thrown" }

// Uncaught returns the exception item left on top when the engine
// FAULTed due to an uncaught throw, for RPC/debug inspection.
func (v *VM) Uncaught() stackitem.Item { return v.uncaught }

// unwindToHandler walks the invocation stack from the top looking for
// a TRY frame able to handle item, restoring evaluation stack depth
// and transferring control to its catch (preferred) or finally clause.
func (v *VM) unwindToHandler(item stackitem.Item) bool {
	for len(v.istack) > 0 {
		ctx := v.Context()
		h, ok := ctx.TopTry()
		if !ok {
			v.istack = v.istack[:len(v.istack)-1]
			continue
		}
		for ctx.Estack().Len() > h.stackDepth {
			_, _ = ctx.Estack().Pop()
		}
		if !h.inCatch && h.catchPos != noTarget {
			h.inCatch = true
			_ = ctx.Estack().Push(item)
			ctx.Jump(h.catchPos)
			return true
		}
		if !h.inFinally && h.finallyPos != noTarget {
			h.inFinally = true
			ctx.Jump(h.finallyPos)
			// Re-raise once the finally block completes via ENDFINALLY
			// by leaving the exception available on the context.
			ctx.pendingRethrow = item
			return true
		}
		ctx.PopTry()
	}
	return false
}

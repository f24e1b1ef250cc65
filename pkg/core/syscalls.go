package core

import (
	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/native"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// contractResolver implements vm.StorageAccess over the native contract
// registry and the DAO-stored deployed contracts, the lookup
// System.Contract.Call needs to find a callee's script.
type contractResolver struct {
	ic        *interop.Context
	contracts *native.Contracts
}

func (r *contractResolver) ResolveScript(h util.Uint160) ([]byte, bool) {
	if _, ok := r.contracts.ByHash(h); ok {
		return nil, false // native contracts are invoked via CALLNATIVE, never by script bytes
	}
	cs, err := r.contracts.Management().GetContract(r.ic, h)
	if err != nil || cs == nil {
		return nil, false
	}
	return cs.NEF.Script, true
}

// newInteropRegistry builds the SYSCALL table for one execution, closing
// over ic and contracts so handlers can reach the DAO, the container,
// the witness checker and the native registry without threading them
// through every InteropFunc signature (pkg/vm itself stays ignorant of
// interop.Context and native.Contracts to avoid an import cycle: native
// already imports interop, and interop cannot import native back).
// Built fresh per VM rather than shared globally: cheap, and keeps
// every handler's captured state scoped to exactly one execution,
// matching "VM executions run concurrently, each with its own
// snapshot".
func newInteropRegistry(ic *interop.Context, contracts *native.Contracts) *vm.InteropRegistry {
	reg := vm.NewInteropRegistry()

	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.Platform", RequiredFlag: callflag.None, Price: 1 << 3,
		Func: func(v *vm.VM) error { return v.Estack().Push(stackitem.NewByteString([]byte("NEO"))) },
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.GetNetwork", RequiredFlag: callflag.None, Price: 1 << 3,
		Func: func(v *vm.VM) error { return v.Estack().Push(stackitem.NewInteger(int64(ic.Network))) },
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.GetTime", RequiredFlag: callflag.ReadStates, Price: 1 << 3,
		Func: func(v *vm.VM) error {
			var ts uint64
			if ic.Block != nil {
				ts = ic.Block.Timestamp
			}
			return v.Estack().Push(stackitem.NewInteger(int64(ts)))
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.GetTrigger", RequiredFlag: callflag.None, Price: 1 << 3,
		Func: func(v *vm.VM) error { return v.Estack().Push(stackitem.NewInteger(int64(ic.Trigger))) },
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.CheckWitness", RequiredFlag: callflag.None, Price: 1 << 10,
		Func: func(v *vm.VM) error {
			it, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			b, err := stackitem.ToByteArray(it)
			if err != nil {
				return err
			}
			var h util.Uint160
			if len(b) == 20 {
				h, err = util.Uint160DecodeBytesLE(b)
				if err != nil {
					return err
				}
			} else {
				h, err = pubKeyScriptHash(b)
				if err != nil {
					return err
				}
			}
			return v.Estack().Push(stackitem.NewBool(ic.CheckWitness(h)))
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.Log", RequiredFlag: callflag.AllowNotify, Price: 1 << 15,
		Func: func(v *vm.VM) error {
			it, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			msg, err := stackitem.ToByteArray(it)
			if err != nil {
				return err
			}
			if len(msg) > maxNotificationLogSize {
				return errMessageTooLarge
			}
			if ic.OnLog != nil {
				ic.OnLog(v.Context().ScriptHash, string(msg))
			}
			return nil
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Runtime.Notify", RequiredFlag: callflag.AllowNotify, Price: 1 << 15,
		Func: func(v *vm.VM) error {
			state, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			name, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			nameB, err := stackitem.ToByteArray(name)
			if err != nil {
				return err
			}
			if len(nameB) > maxEventNameSize {
				return errMessageTooLarge
			}
			v.Notifications = append(v.Notifications, vm.Notification{
				ScriptHash: v.Context().ScriptHash,
				Name:       string(nameB),
				State:      state,
			})
			return nil
		},
	})

	reg.Register(&vm.InteropHandler{
		Name: "System.Storage.GetContext", RequiredFlag: callflag.ReadStates, Price: 1 << 4,
		Func: func(v *vm.VM) error {
			return v.Estack().Push(stackitem.NewInterop(&storageContext{id: currentContractID(ic, contracts, v), readOnly: false}))
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Storage.GetReadOnlyContext", RequiredFlag: callflag.ReadStates, Price: 1 << 4,
		Func: func(v *vm.VM) error {
			return v.Estack().Push(stackitem.NewInterop(&storageContext{id: currentContractID(ic, contracts, v), readOnly: true}))
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Storage.Get", RequiredFlag: callflag.ReadStates, Price: 1 << 15,
		Func: func(v *vm.VM) error {
			sc, key, err := popStorageCtxAndKey(v)
			if err != nil {
				return err
			}
			b, err := ic.DAO.GetStorageItem(sc.id, key)
			if err != nil {
				return v.Estack().Push(stackitem.NewNull())
			}
			return v.Estack().Push(stackitem.NewByteString(b))
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Storage.Put", RequiredFlag: callflag.WriteStates, Price: 1 << 15,
		Func: func(v *vm.VM) error {
			valIt, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			value, err := stackitem.ToByteArray(valIt)
			if err != nil {
				return err
			}
			sc, key, err := popStorageCtxAndKey(v)
			if err != nil {
				return err
			}
			if sc.readOnly {
				return errReadOnlyContext
			}
			if len(key) > maxStorageKeySize || len(value) > stackitem.MaxSize {
				return errMessageTooLarge
			}
			return ic.DAO.PutStorageItem(sc.id, key, value)
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Storage.Delete", RequiredFlag: callflag.WriteStates, Price: 1 << 15,
		Func: func(v *vm.VM) error {
			sc, key, err := popStorageCtxAndKey(v)
			if err != nil {
				return err
			}
			if sc.readOnly {
				return errReadOnlyContext
			}
			return ic.DAO.DeleteStorageItem(sc.id, key)
		},
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Storage.Find", RequiredFlag: callflag.ReadStates, Price: 1 << 15,
		Func: func(v *vm.VM) error {
			prefixIt, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			prefix, err := stackitem.ToByteArray(prefixIt)
			if err != nil {
				return err
			}
			scIt, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			sc, err := storageContextFromItem(scIt)
			if err != nil {
				return err
			}
			var entries []stackitem.Item
			ic.DAO.Seek(sc.id, prefix, func(k, val []byte) bool {
				st := stackitem.NewStruct(nil).(*stackitem.Struct)
				_ = st.Append(stackitem.NewByteString(k))
				_ = st.Append(stackitem.NewByteString(val))
				entries = append(entries, st)
				return true
			})
			return v.Estack().Push(stackitem.NewArray(entries))
		},
	})

	reg.Register(&vm.InteropHandler{
		Name: "System.Contract.Call", RequiredFlag: callflag.AllowCall, Price: 1 << 15,
		Func: func(v *vm.VM) error { return contractCall(ic, contracts, v) },
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Contract.GetCallFlags", RequiredFlag: callflag.None, Price: 1 << 10,
		Func: func(v *vm.VM) error { return v.Estack().Push(stackitem.NewInteger(int64(v.Context().CallFlags()))) },
	})

	reg.Register(&vm.InteropHandler{
		Name: "System.Crypto.CheckSig", RequiredFlag: callflag.None, Price: 1 << 15,
		Func: func(v *vm.VM) error { return checkSig(v) },
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Crypto.CheckMultisig", RequiredFlag: callflag.None, Price: 1 << 16,
		Func: func(v *vm.VM) error { return checkMultisig(v) },
	})

	return reg
}

const (
	maxNotificationLogSize = 1024
	maxEventNameSize       = 32
	maxStorageKeySize      = 64
)

var (
	errMessageTooLarge = vmErr("core: value exceeds maximum size")
	errReadOnlyContext = vmErr("core: storage write through a read-only context")
	errUnknownInterop  = vmErr("core: contract call resolution failed")
)

type vmErr string

func (e vmErr) Error() string { return string(e) }

// storageContext is the InteropInterface System.Storage.GetContext
// pushes: a contract id plus whether writes are permitted.
type storageContext struct {
	id       int32
	readOnly bool
}

func currentContractID(ic *interop.Context, contracts *native.Contracts, v *vm.VM) int32 {
	h := v.Context().ScriptHash
	if c, ok := contracts.ByHash(h); ok {
		return c.Metadata().ID
	}
	if cs, err := contracts.Management().GetContract(ic, h); err == nil && cs != nil {
		return cs.ID
	}
	return 0
}

func storageContextFromItem(it stackitem.Item) (*storageContext, error) {
	io, ok := it.(*stackitem.Interop)
	if !ok {
		return nil, errUnknownInterop
	}
	sc, ok := io.Value().(*storageContext)
	if !ok {
		return nil, errUnknownInterop
	}
	return sc, nil
}

func popStorageCtxAndKey(v *vm.VM) (*storageContext, []byte, error) {
	keyIt, err := v.Estack().Pop()
	if err != nil {
		return nil, nil, err
	}
	key, err := stackitem.ToByteArray(keyIt)
	if err != nil {
		return nil, nil, err
	}
	scIt, err := v.Estack().Pop()
	if err != nil {
		return nil, nil, err
	}
	sc, err := storageContextFromItem(scIt)
	if err != nil {
		return nil, nil, err
	}
	return sc, key, nil
}

// contractCall resolves (scriptHash, method, flags, args) off the
// evaluation stack and pushes a new context restricted to the
// intersection of the caller's and requested call flags.
func contractCall(ic *interop.Context, contracts *native.Contracts, v *vm.VM) error {
	hashIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	hb, err := stackitem.ToByteArray(hashIt)
	if err != nil {
		return err
	}
	target, err := util.Uint160DecodeBytesLE(hb)
	if err != nil {
		return err
	}
	methodIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	methodB, err := stackitem.ToByteArray(methodIt)
	if err != nil {
		return err
	}
	flagsIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	flagsN, err := stackitem.ToBigInteger(flagsIt)
	if err != nil {
		return err
	}
	requested := callflag.CallFlag(flagsN.Int64()) & v.Context().CallFlags()
	argsIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	args, ok := argsIt.(*stackitem.Array)
	if !ok {
		return errUnknownInterop
	}
	argItems, ok := args.Value().([]stackitem.Item)
	if !ok {
		return errUnknownInterop
	}

	return callContractInternal(ic, contracts, v, target, string(methodB), requested, -1, argItems)
}

// callContractInternal is the shared dispatch tail of
// System.Contract.Call and CALLT: a native target runs in-place
// through its method table, a deployed one gets a fresh context with
// the arguments pushed in call order.
func callContractInternal(ic *interop.Context, contracts *native.Contracts, v *vm.VM, target util.Uint160, method string, flags callflag.CallFlag, rvcount int, argItems []stackitem.Item) error {
	if c, found := contracts.ByHash(target); found {
		return invokeNativeMethod(ic, v, c, method, argItems)
	}

	cs, err := contracts.Management().GetContract(ic, target)
	if err != nil || cs == nil {
		return errContractNotDeployed
	}
	if err := v.LoadScript(cs.NEF.Script, target, rvcount, flags); err != nil {
		return err
	}
	for i := len(argItems) - 1; i >= 0; i-- {
		if err := v.Estack().Push(argItems[i]); err != nil {
			return err
		}
	}
	return nil
}

// tokenCall services the CALLT opcode: the executing contract's NEF
// call-token table binds the index to a (hash, method, flags) triple
// fixed at deploy time, so only the arguments come off the stack.
func tokenCall(ic *interop.Context, contracts *native.Contracts, v *vm.VM, index uint16) error {
	cs, err := contracts.Management().GetContract(ic, v.Context().ScriptHash)
	if err != nil || cs == nil {
		return errContractNotDeployed
	}
	if int(index) >= len(cs.NEF.Tokens) {
		return vmErr("core: call token index out of range")
	}
	tok := cs.NEF.Tokens[index]
	argItems := make([]stackitem.Item, tok.ParamCount)
	for i := range argItems {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		argItems[i] = it
	}
	rvcount := 0
	if tok.HasReturn {
		rvcount = 1
	}
	flags := tok.CallFlag & v.Context().CallFlags()
	return callContractInternal(ic, contracts, v, tok.Hash, tok.Method, flags, rvcount, argItems)
}

var errContractNotDeployed = vmErr("core: target contract is not deployed")

// invokeNativeMethod dispatches a System.Contract.Call aimed at a native
// contract hash the same way CALLNATIVE would, so scripts can reach
// NEO/GAS/Policy/etc. by hash+method instead of only the compiled call
// token.
func invokeNativeMethod(ic *interop.Context, v *vm.VM, c native.Contract, method string, args []stackitem.Item) error {
	md := c.Metadata()
	for _, m := range md.Methods {
		if m.Name != method {
			continue
		}
		if !v.Context().CallFlags().Has(m.RequiredFlag) {
			return vmErr("core: insufficient call flags for " + md.Name + "." + method)
		}
		if err := v.AddGas(m.Price); err != nil {
			return err
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
	return vmErr("core: unknown method " + method + " on " + md.Name)
}

// pubKeyScriptHash decodes a compressed secp256r1 public key and
// returns the script hash CheckWitness should match against, the
// convention behind passing a raw pubkey (rather than a hash) to
// CheckWitness/CheckSig.
func pubKeyScriptHash(b []byte) (util.Uint160, error) {
	pub, err := keys.DecodeBytes(b, keys.Secp256r1)
	if err != nil {
		return util.Uint160{}, err
	}
	return pub.GetScriptHash(), nil
}

// checkSig verifies a single ECDSA signature against v.CheckedHash
// (the signing hash of the container under verification), used by
// compiled verification scripts and System.Crypto.CheckSig alike.
func checkSig(v *vm.VM) error {
	pubIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	sigIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	pubB, err := stackitem.ToByteArray(pubIt)
	if err != nil {
		return err
	}
	sigB, err := stackitem.ToByteArray(sigIt)
	if err != nil {
		return err
	}
	ok := verifySignature(pubB, sigB, v.CheckedHash)
	return v.Estack().Push(stackitem.NewBool(ok))
}

// popSigElements pops a signature/key list off the evaluation stack in
// either of the two forms standard scripts produce: a single Array
// item, or an integer count followed by that many items (the layout
// CreateMultisigVerificationScript's raw pushes leave behind).
func popSigElements(v *vm.VM) ([][]byte, error) {
	it, err := v.Estack().Pop()
	if err != nil {
		return nil, err
	}
	var items []stackitem.Item
	if arr, ok := it.(*stackitem.Array); ok {
		items, ok = arr.Value().([]stackitem.Item)
		if !ok {
			return nil, errUnknownInterop
		}
	} else {
		n, err := stackitem.ToBigInteger(it)
		if err != nil {
			return nil, err
		}
		count := int(n.Int64())
		if count < 0 || count > 1024 {
			return nil, errUnknownInterop
		}
		items = make([]stackitem.Item, count)
		for i := range items {
			e, err := v.Estack().Pop()
			if err != nil {
				return nil, err
			}
			items[i] = e
		}
	}
	res := make([][]byte, len(items))
	for i, e := range items {
		b, err := stackitem.ToByteArray(e)
		if err != nil {
			return nil, err
		}
		res[i] = b
	}
	return res, nil
}

// checkMultisig verifies an m-of-n signature set in ascending public
// key order, the same greedy matching rule the reference node's
// multisig verification script compiles down to.
func checkMultisig(v *vm.VM) error {
	pubs, err := popSigElements(v)
	if err != nil {
		return err
	}
	sigs, err := popSigElements(v)
	if err != nil {
		return err
	}
	if len(sigs) == 0 || len(sigs) > len(pubs) {
		return v.Estack().Push(stackitem.NewBool(false))
	}
	si := 0
	for pi := 0; pi < len(pubs) && si < len(sigs); pi++ {
		if verifySignature(pubs[pi], sigs[si], v.CheckedHash) {
			si++
		}
		if len(pubs)-pi-1 < len(sigs)-si {
			break
		}
	}
	return v.Estack().Push(stackitem.NewBool(si == len(sigs)))
}

// verifySignature reports whether sig is a valid secp256r1 signature
// over msg by pub, treating any decode failure as a failed check
// rather than a fault — an attacker-controlled script should never be
// able to abort verification by supplying a malformed key.
func verifySignature(pub, sig, msg []byte) bool {
	p, err := keys.DecodeBytes(pub, keys.Secp256r1)
	if err != nil {
		return false
	}
	return p.Verify(msg, sig)
}

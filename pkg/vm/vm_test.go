package vm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
	"github.com/n3fullnode/neofull/pkg/vm/vmstate"
)

func newTestVM() *VM {
	v := New(NewInteropRegistry())
	v.GasLimit = 1 << 30
	return v
}

func runScript(t *testing.T, script []byte) *VM {
	v := newTestVM()
	v.Load(script)
	_ = v.Run()
	return v
}

func requireHaltStack(t *testing.T, v *VM, want ...stackitem.Item) {
	require.Equal(t, vmstate.HaltState, v.State)
	items := v.Estack().ToArray()
	require.Len(t, items, len(want))
	for i := range want {
		assert.True(t, want[i].Equals(items[i]), "stack item %d: want %v, got %v", i, want[i], items[i])
	}
}

func TestPushConstants(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSH5), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewInteger(5))

	v = runScript(t, []byte{byte(opcode.PUSHM1), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewInteger(-1))

	v = runScript(t, []byte{byte(opcode.PUSHNULL), byte(opcode.RET)})
	require.Equal(t, vmstate.HaltState, v.State)
	top, err := v.Estack().Top()
	require.NoError(t, err)
	assert.Equal(t, stackitem.NullT, top.Type())
}

func TestPushIntSignExtension(t *testing.T) {
	// 0xFF as PUSHINT8 is -1, not 255.
	v := runScript(t, []byte{byte(opcode.PUSHINT8), 0xFF, byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewInteger(-1))

	v = runScript(t, []byte{byte(opcode.PUSHINT16), 0x00, 0x80, byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewInteger(-32768))
}

func TestPushData(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSHDATA1), 3, 'a', 'b', 'c', byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewByteString([]byte("abc")))
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name   string
		script []byte
		want   int64
	}{
		{"add", []byte{byte(opcode.PUSH2), byte(opcode.PUSH3), byte(opcode.ADD)}, 5},
		{"sub", []byte{byte(opcode.PUSH2), byte(opcode.PUSH3), byte(opcode.SUB)}, -1},
		{"mul", []byte{byte(opcode.PUSH4), byte(opcode.PUSH3), byte(opcode.MUL)}, 12},
		{"div", []byte{byte(opcode.PUSH15), byte(opcode.PUSH4), byte(opcode.DIV)}, 3},
		{"mod", []byte{byte(opcode.PUSH15), byte(opcode.PUSH4), byte(opcode.MOD)}, 3},
		{"max", []byte{byte(opcode.PUSH2), byte(opcode.PUSH7), byte(opcode.MAX)}, 7},
		{"min", []byte{byte(opcode.PUSH2), byte(opcode.PUSH7), byte(opcode.MIN)}, 2},
		{"negate", []byte{byte(opcode.PUSH8), byte(opcode.NEGATE)}, -8},
		{"inc", []byte{byte(opcode.PUSH8), byte(opcode.INC)}, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := runScript(t, append(tc.script, byte(opcode.RET)))
			requireHaltStack(t, v, stackitem.NewInteger(tc.want))
		})
	}
}

func TestComparisons(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSH2), byte(opcode.PUSH3), byte(opcode.LT), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewBool(true))

	// WITHIN: 5 in [1, 10).
	v = runScript(t, []byte{byte(opcode.PUSH5), byte(opcode.PUSH1), byte(opcode.PUSH10), byte(opcode.WITHIN), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewBool(true))
}

func TestDivisionByZeroFaults(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.PUSH0), byte(opcode.DIV), byte(opcode.RET)})
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestIntegerOverflowFaults(t *testing.T) {
	// Largest positive 256-bit value; squaring it blows the 256-bit
	// bound and must fault rather than wrap or grow.
	maxInt := make([]byte, 32)
	for i := range maxInt {
		maxInt[i] = 0xFF
	}
	maxInt[31] = 0x7F
	script := append([]byte{byte(opcode.PUSHINT256)}, maxInt...)
	script = append(script, byte(opcode.DUP), byte(opcode.MUL), byte(opcode.RET))
	v := runScript(t, script)
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestJumps(t *testing.T) {
	// JMPIF skips over an ABORT when the condition holds.
	script := []byte{
		byte(opcode.PUSH1),
		byte(opcode.JMPIF), 3, // to the PUSH2
		byte(opcode.ABORT),
		byte(opcode.PUSH2),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(2))
}

func TestCallRet(t *testing.T) {
	// Subroutine at offset 5 adds the two values the caller left on
	// the (shared) evaluation stack.
	script := []byte{
		byte(opcode.PUSH2),
		byte(opcode.PUSH3),
		byte(opcode.CALL), 3,
		byte(opcode.RET),
		byte(opcode.ADD),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(5))
}

func TestStackOps(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.PUSH2), byte(opcode.SWAP), byte(opcode.RET)})
	require.Equal(t, vmstate.HaltState, v.State)
	items := v.Estack().ToArray()
	require.Len(t, items, 2)
	assert.True(t, stackitem.NewInteger(1).Equals(items[0]))
	assert.True(t, stackitem.NewInteger(2).Equals(items[1]))

	v = runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.PUSH2), byte(opcode.PUSH3), byte(opcode.DEPTH), byte(opcode.RET)})
	top, err := v.Estack().Top()
	require.NoError(t, err)
	assert.True(t, stackitem.NewInteger(3).Equals(top))

	v = runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.PUSH2), byte(opcode.DROP), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewInteger(1))
}

func TestSlots(t *testing.T) {
	// INITSLOT with one local and one argument: the argument is popped
	// off the evaluation stack, stored, and read back twice.
	script := []byte{
		byte(opcode.PUSH7),
		byte(opcode.INITSLOT), 1, 1,
		byte(opcode.LDARG0),
		byte(opcode.STLOC0),
		byte(opcode.LDLOC0),
		byte(opcode.LDARG0),
		byte(opcode.ADD),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(14))
}

func TestStatics(t *testing.T) {
	script := []byte{
		byte(opcode.INITSSLOT), 1,
		byte(opcode.PUSH9),
		byte(opcode.STSFLD0),
		byte(opcode.LDSFLD0),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(9))
}

func TestSplice(t *testing.T) {
	script := []byte{
		byte(opcode.PUSHDATA1), 2, 'a', 'b',
		byte(opcode.PUSHDATA1), 2, 'c', 'd',
		byte(opcode.CAT),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.HaltState, v.State)
	top, err := v.Estack().Top()
	require.NoError(t, err)
	b, err := top.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), b)
}

func TestCatMaxItemSizeFaults(t *testing.T) {
	// Two 40000-byte strings concatenate past the 65535-byte item cap.
	chunk := make([]byte, 40000)
	script := []byte{byte(opcode.PUSHDATA2), 0x40, 0x9C} // 40000 LE
	script = append(script, chunk...)
	script = append(script, byte(opcode.PUSHDATA2), 0x40, 0x9C)
	script = append(script, chunk...)
	script = append(script, byte(opcode.CAT), byte(opcode.RET))
	v := runScript(t, script)
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestCompoundOps(t *testing.T) {
	// PACK 2 then SIZE.
	script := []byte{
		byte(opcode.PUSH1),
		byte(opcode.PUSH2),
		byte(opcode.PUSH2),
		byte(opcode.PACK),
		byte(opcode.SIZE),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(2))

	// NEWMAP / SETITEM / PICKITEM round trip.
	script = []byte{
		byte(opcode.NEWMAP),
		byte(opcode.DUP),
		byte(opcode.PUSH1),
		byte(opcode.PUSH7),
		byte(opcode.SETITEM),
		byte(opcode.PUSH1),
		byte(opcode.PICKITEM),
		byte(opcode.RET),
	}
	v = runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(7))
}

func TestTypeOps(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSHNULL), byte(opcode.ISNULL), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewBool(true))

	v = runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.ISTYPE), byte(stackitem.IntegerT), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewBool(true))

	v = runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.CONVERT), byte(stackitem.BooleanT), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewBool(true))
}

func TestTryCatchFinally(t *testing.T) {
	// TRY body divides by zero; the catch drops the exception and
	// pushes 42; the finally runs before control resumes at RET.
	script := []byte{
		byte(opcode.TRY), 6, 11,
		byte(opcode.PUSH1),  // 3
		byte(opcode.PUSH0),  // 4
		byte(opcode.DIV),    // 5: throws
		byte(opcode.DROP),   // 6: catch, drops the exception item
		byte(opcode.PUSHINT8), 42, // 7
		byte(opcode.ENDTRY), 4, // 9: resume at 13 via finally
		byte(opcode.NOP),        // 11: finally
		byte(opcode.ENDFINALLY), // 12
		byte(opcode.RET),        // 13
	}
	v := runScript(t, script)
	requireHaltStack(t, v, stackitem.NewInteger(42))
}

func TestTryFinallyRethrows(t *testing.T) {
	// No catch clause: the exception runs the finally block, then
	// propagates and faults the engine.
	script := []byte{
		byte(opcode.TRY), 0, 6,
		byte(opcode.PUSH1),  // 3
		byte(opcode.THROW),  // 4
		byte(opcode.NOP),    // 5 (unreachable)
		byte(opcode.NOP),        // 6: finally
		byte(opcode.ENDFINALLY), // 7
		byte(opcode.RET),        // 8
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.FaultState, v.State)
	require.NotNil(t, v.Uncaught())
	assert.True(t, stackitem.NewInteger(1).Equals(v.Uncaught()))
}

func TestUncaughtThrowFaults(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.THROW), byte(opcode.RET)})
	require.Equal(t, vmstate.FaultState, v.State)
	require.NotNil(t, v.Uncaught())
}

func TestAssert(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.PUSH1), byte(opcode.ASSERT), byte(opcode.PUSH3), byte(opcode.RET)})
	requireHaltStack(t, v, stackitem.NewInteger(3))

	v = runScript(t, []byte{byte(opcode.PUSH0), byte(opcode.ASSERT), byte(opcode.PUSH3), byte(opcode.RET)})
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestUnknownOpcodeFaults(t *testing.T) {
	v := runScript(t, []byte{0xEF})
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestUnknownSyscallFaults(t *testing.T) {
	v := runScript(t, []byte{byte(opcode.SYSCALL), 0xDE, 0xAD, 0xBE, 0xEF, byte(opcode.RET)})
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestInvocationDepthLimitFaults(t *testing.T) {
	// CALL with offset 0 targets itself: unbounded recursion must be
	// stopped by the invocation stack limit, not the gas meter.
	v := runScript(t, []byte{byte(opcode.CALL), 0})
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestGasExhaustionFaults(t *testing.T) {
	v := New(NewInteropRegistry())
	v.GasLimit = 5
	script := make([]byte, 64)
	for i := range script {
		script[i] = byte(opcode.NOP)
	}
	v.Load(script)
	err := v.Run()
	require.Error(t, err)
	require.Equal(t, vmstate.FaultState, v.State)
	assert.Equal(t, v.GasLimit, v.GasConsumed)
}

func TestGasNeverExceedsBudget(t *testing.T) {
	for _, limit := range []int64{1, 10, 100, 1000} {
		v := New(NewInteropRegistry())
		v.GasLimit = limit
		v.Load([]byte{
			byte(opcode.PUSH2), byte(opcode.PUSH3), byte(opcode.ADD),
			byte(opcode.PUSH4), byte(opcode.MUL), byte(opcode.RET),
		})
		_ = v.Run()
		assert.LessOrEqual(t, v.GasConsumed, v.GasLimit)
		assert.Contains(t, []vmstate.State{vmstate.HaltState, vmstate.FaultState}, v.State)
	}
}

func TestSyscallDispatch(t *testing.T) {
	reg := NewInteropRegistry()
	reg.Register(&InteropHandler{
		Name:         "Test.Echo",
		RequiredFlag: callflag.None,
		Price:        1,
		Func: func(v *VM) error {
			return v.Estack().Push(stackitem.NewInteger(7))
		},
	})
	v := New(reg)
	v.GasLimit = 1 << 20
	script := append([]byte{byte(opcode.SYSCALL)}, InteropIDBytes("Test.Echo")...)
	script = append(script, byte(opcode.RET))
	v.Load(script)
	require.NoError(t, v.Run())
	requireHaltStack(t, v, stackitem.NewInteger(7))
}

func TestSyscallCallFlagEnforcement(t *testing.T) {
	reg := NewInteropRegistry()
	reg.Register(&InteropHandler{
		Name:         "Test.Write",
		RequiredFlag: callflag.WriteStates,
		Price:        1,
		Func:         func(v *VM) error { return nil },
	})
	v := New(reg)
	v.GasLimit = 1 << 20
	script := append([]byte{byte(opcode.SYSCALL)}, InteropIDBytes("Test.Write")...)
	script = append(script, byte(opcode.RET))
	require.NoError(t, v.LoadScript(script, util.Uint160{}, -1, callflag.ReadOnly))
	err := v.Run()
	require.ErrorIs(t, err, ErrCallFlags)
	require.Equal(t, vmstate.FaultState, v.State)
}

func TestReferenceCycleCollected(t *testing.T) {
	// Two arrays appended to each other and dropped from the stack
	// leave a two-item cycle only the SCC sweep can reclaim.
	script := []byte{
		byte(opcode.NEWARRAY0),
		byte(opcode.NEWARRAY0),
		byte(opcode.OVER),
		byte(opcode.OVER),
		byte(opcode.APPEND), // a.Append(b)
		byte(opcode.SWAP),
		byte(opcode.APPEND), // b.Append(a)
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.HaltState, v.State)
	require.Equal(t, 0, v.Estack().Len())

	require.Equal(t, 2, v.RefCounter().Count())
	require.Equal(t, 2, v.RefCounter().CollectCycles())
	require.Equal(t, 0, v.RefCounter().Count())
}

func TestCallingAndEntryScriptHash(t *testing.T) {
	v := newTestVM()
	entry := util.Uint160{1}
	callee := util.Uint160{2}
	require.NoError(t, v.LoadScript([]byte{byte(opcode.RET)}, entry, -1, callflag.All))
	require.NoError(t, v.LoadScript([]byte{byte(opcode.RET)}, callee, -1, callflag.All))

	assert.Equal(t, entry, v.EntryScriptHash())
	calling, ok := v.CallingScriptHash()
	require.True(t, ok)
	assert.Equal(t, entry, calling)

	// A cloned (same-script) frame is skipped when resolving the
	// caller.
	require.NoError(t, v.LoadScript([]byte{byte(opcode.RET)}, callee, -1, callflag.All))
	calling, ok = v.CallingScriptHash()
	require.True(t, ok)
	assert.Equal(t, entry, calling)
}

func TestResultRvcount(t *testing.T) {
	// rvcount 1 keeps only the top value on return to the caller.
	v := newTestVM()
	outer := []byte{byte(opcode.RET)}
	require.NoError(t, v.LoadScript(outer, util.Uint160{1}, -1, callflag.All))
	inner := []byte{byte(opcode.PUSH1), byte(opcode.PUSH2), byte(opcode.RET)}
	require.NoError(t, v.LoadScript(inner, util.Uint160{2}, 1, callflag.All))
	require.NoError(t, v.Run())
	requireHaltStack(t, v, stackitem.NewInteger(2))
}

func TestBigIntegerBounds(t *testing.T) {
	big255 := new(big.Int).Lsh(big.NewInt(1), 255)
	_, err := stackitem.NewBigInteger(big255)
	require.NoError(t, err)

	big257 := new(big.Int).Lsh(big.NewInt(1), 257)
	_, err = stackitem.NewBigInteger(big257)
	require.Error(t, err)
}

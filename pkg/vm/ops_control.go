package vm

import (
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
	"github.com/n3fullnode/neofull/pkg/vm/vmstate"
)

// jumpTarget reads a relative offset operand (1 or 4 bytes, signed,
// little-endian) and resolves it against the position of the jump
// instruction itself, per the reference's "offset from opcode" rule.
func jumpTarget(ctx *Context, opPos int, long bool) (int, bool) {
	n := 1
	if long {
		n = 4
	}
	b, ok := ctx.ReadBytes(n)
	if !ok {
		return 0, false
	}
	var offset int32
	if long {
		offset = int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	} else {
		offset = int32(int8(b[0]))
	}
	return opPos + int(offset), true
}

func doJump(v *VM, long bool) error {
	ctx := v.Context()
	opPos := ctx.IP() - 1
	target, ok := jumpTarget(ctx, opPos, long)
	if !ok {
		return ErrInvalidOpcode
	}
	ctx.Jump(target)
	return nil
}

func doCondJump(v *VM, long bool, want bool) error {
	ctx := v.Context()
	opPos := ctx.IP() - 1
	target, ok := jumpTarget(ctx, opPos, long)
	if !ok {
		return ErrInvalidOpcode
	}
	it, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	b, err := it.TryBool()
	if err != nil {
		return err
	}
	if b == want {
		ctx.Jump(target)
	}
	return nil
}

func doCmpJump(v *VM, long bool, cmp func(int) bool) error {
	ctx := v.Context()
	opPos := ctx.IP() - 1
	target, ok := jumpTarget(ctx, opPos, long)
	if !ok {
		return ErrInvalidOpcode
	}
	b, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	a, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	ai, err := stackitem.ToBigInteger(a)
	if err != nil {
		return err
	}
	bi, err := stackitem.ToBigInteger(b)
	if err != nil {
		return err
	}
	if cmp(ai.Cmp(bi)) {
		ctx.Jump(target)
	}
	return nil
}

func (v *VM) execRet() error {
	ctx := v.Context()
	v.istack = v.istack[:len(v.istack)-1]
	caller := v.Context()
	if caller == nil {
		// Final return: the context's evaluation stack becomes the
		// externally visible result stack.
		v.resultStack = ctx.Estack()
		v.State = vmstate.HaltState
		return nil
	}
	// Transfer return values to the caller's evaluation stack.
	n := ctx.rvcount
	if n < 0 {
		n = ctx.Estack().Len()
	}
	vals := make([]stackitem.Item, 0, n)
	for i := 0; i < n; i++ {
		it, err := ctx.Estack().Pop()
		if err != nil {
			break
		}
		vals = append(vals, it)
	}
	for i := len(vals) - 1; i >= 0; i-- {
		if err := caller.Estack().Push(vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func registerControlOps() {
	set(opcode.NOP, func(v *VM) error { return nil })

	set(opcode.JMP, func(v *VM) error { return doJump(v, false) })
	set(opcode.JMPL, func(v *VM) error { return doJump(v, true) })
	set(opcode.JMPIF, func(v *VM) error { return doCondJump(v, false, true) })
	set(opcode.JMPIFL, func(v *VM) error { return doCondJump(v, true, true) })
	set(opcode.JMPIFNOT, func(v *VM) error { return doCondJump(v, false, false) })
	set(opcode.JMPIFNOTL, func(v *VM) error { return doCondJump(v, true, false) })

	set(opcode.JMPEQ, func(v *VM) error { return doCmpJump(v, false, func(c int) bool { return c == 0 }) })
	set(opcode.JMPEQL, func(v *VM) error { return doCmpJump(v, true, func(c int) bool { return c == 0 }) })
	set(opcode.JMPNE, func(v *VM) error { return doCmpJump(v, false, func(c int) bool { return c != 0 }) })
	set(opcode.JMPNEL, func(v *VM) error { return doCmpJump(v, true, func(c int) bool { return c != 0 }) })
	set(opcode.JMPGT, func(v *VM) error { return doCmpJump(v, false, func(c int) bool { return c > 0 }) })
	set(opcode.JMPGTL, func(v *VM) error { return doCmpJump(v, true, func(c int) bool { return c > 0 }) })
	set(opcode.JMPGE, func(v *VM) error { return doCmpJump(v, false, func(c int) bool { return c >= 0 }) })
	set(opcode.JMPGEL, func(v *VM) error { return doCmpJump(v, true, func(c int) bool { return c >= 0 }) })
	set(opcode.JMPLT, func(v *VM) error { return doCmpJump(v, false, func(c int) bool { return c < 0 }) })
	set(opcode.JMPLTL, func(v *VM) error { return doCmpJump(v, true, func(c int) bool { return c < 0 }) })
	set(opcode.JMPLE, func(v *VM) error { return doCmpJump(v, false, func(c int) bool { return c <= 0 }) })
	set(opcode.JMPLEL, func(v *VM) error { return doCmpJump(v, true, func(c int) bool { return c <= 0 }) })

	set(opcode.CALL, func(v *VM) error {
		ctx := v.Context()
		opPos := ctx.IP() - 1
		target, ok := jumpTarget(ctx, opPos, false)
		if !ok {
			return ErrInvalidOpcode
		}
		return v.LoadClonedContext(target, ctx.CallFlags())
	})
	set(opcode.CALLL, func(v *VM) error {
		ctx := v.Context()
		opPos := ctx.IP() - 1
		target, ok := jumpTarget(ctx, opPos, true)
		if !ok {
			return ErrInvalidOpcode
		}
		return v.LoadClonedContext(target, ctx.CallFlags())
	})
	set(opcode.CALLA, func(v *VM) error {
		ctx := v.Context()
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		p, ok := it.(*stackitem.Pointer)
		if !ok {
			return stackitem.ErrInvalidType
		}
		return v.LoadClonedContext(p.Pos, ctx.CallFlags())
	})

	set(opcode.ABORT, func(v *VM) error { return v.fault(ErrUncaughtThrow) })
	set(opcode.ABORTMSG, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		msg, _ := it.Bytes()
		_ = msg
		return v.fault(ErrUncaughtThrow)
	})

	set(opcode.ASSERT, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := it.TryBool()
		if err != nil {
			return err
		}
		if !b {
			return &vmException{item: stackitem.NewByteString([]byte("ASSERT failed"))}
		}
		return nil
	})
	set(opcode.ASSERTMSG, func(v *VM) error {
		msgItem, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		cond, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := cond.TryBool()
		if err != nil {
			return err
		}
		if !b {
			return &vmException{item: msgItem}
		}
		return nil
	})

	set(opcode.THROW, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		return &vmException{item: it}
	})

	set(opcode.TRY, func(v *VM) error {
		ctx := v.Context()
		opPos := ctx.IP() - 1
		catchOff, ok := ctx.ReadBytes(1)
		if !ok {
			return ErrInvalidOpcode
		}
		finallyOff, ok := ctx.ReadBytes(1)
		if !ok {
			return ErrInvalidOpcode
		}
		catchPos, finallyPos := resolveTryTargets(opPos, int32(int8(catchOff[0])), int32(int8(finallyOff[0])))
		ctx.PushTry(catchPos, finallyPos)
		return nil
	})
	set(opcode.TRYL, func(v *VM) error {
		ctx := v.Context()
		opPos := ctx.IP() - 1
		catchOff, ok := ctx.ReadBytes(4)
		if !ok {
			return ErrInvalidOpcode
		}
		finallyOff, ok := ctx.ReadBytes(4)
		if !ok {
			return ErrInvalidOpcode
		}
		catchPos, finallyPos := resolveTryTargets(opPos, le32(catchOff), le32(finallyOff))
		ctx.PushTry(catchPos, finallyPos)
		return nil
	})

	set(opcode.ENDTRY, func(v *VM) error { return doEndTry(v, false) })
	set(opcode.ENDTRYL, func(v *VM) error { return doEndTry(v, true) })

	set(opcode.ENDFINALLY, func(v *VM) error {
		ctx := v.Context()
		h, ok := ctx.TopTry()
		if !ok {
			return ErrInvalidOpcode
		}
		end := h.endPos
		rethrow := ctx.pendingRethrow
		ctx.pendingRethrow = nil
		ctx.PopTry()
		if rethrow != nil {
			return &vmException{item: rethrow}
		}
		ctx.Jump(end)
		return nil
	})

	set(opcode.RET, func(v *VM) error { return v.execRet() })
}

func le32(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func resolveTryTargets(opPos int, catchOff, finallyOff int32) (int, int) {
	catchPos, finallyPos := noTarget, noTarget
	if catchOff != 0 {
		catchPos = opPos + int(catchOff)
	}
	if finallyOff != 0 {
		finallyPos = opPos + int(finallyOff)
	}
	return catchPos, finallyPos
}

func doEndTry(v *VM, long bool) error {
	ctx := v.Context()
	opPos := ctx.IP() - 1
	target, ok := jumpTarget(ctx, opPos, long)
	if !ok {
		return ErrInvalidOpcode
	}
	h, ok := ctx.TopTry()
	if !ok {
		return ErrInvalidOpcode
	}
	if h.finallyPos != noTarget && !h.inFinally {
		h.endPos = target
		h.inFinally = true
		ctx.Jump(h.finallyPos)
		return nil
	}
	ctx.PopTry()
	ctx.Jump(target)
	return nil
}

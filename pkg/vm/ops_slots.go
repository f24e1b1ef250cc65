package vm

import (
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func registerSlotOps() {
	set(opcode.INITSSLOT, func(v *VM) error {
		n, ok := v.Context().ReadBytes(1)
		if !ok {
			return ErrInvalidOpcode
		}
		v.Context().InitStatics(int(n[0]))
		return nil
	})
	set(opcode.INITSLOT, func(v *VM) error {
		n, ok := v.Context().ReadBytes(2)
		if !ok {
			return ErrInvalidOpcode
		}
		locals, nargs := int(n[0]), int(n[1])
		// Arguments are consumed from the evaluation stack, first
		// argument on top (the calling convention Contract.Call and
		// CALLT follow when pushing them).
		args := make([]stackitem.Item, nargs)
		for i := 0; i < nargs; i++ {
			it, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			args[i] = it
		}
		v.Context().InitSlots(args, locals)
		return nil
	})

	for i := 0; i < 7; i++ {
		idx := i
		set(opcode.LDSFLD0+opcode.Opcode(i), func(v *VM) error { return ldStatic(v, idx) })
		set(opcode.STSFLD0+opcode.Opcode(i), func(v *VM) error { return stStatic(v, idx) })
		set(opcode.LDLOC0+opcode.Opcode(i), func(v *VM) error { return ldLocal(v, idx) })
		set(opcode.STLOC0+opcode.Opcode(i), func(v *VM) error { return stLocal(v, idx) })
		set(opcode.LDARG0+opcode.Opcode(i), func(v *VM) error { return ldArg(v, idx) })
		set(opcode.STARG0+opcode.Opcode(i), func(v *VM) error { return stArg(v, idx) })
	}

	set(opcode.LDSFLD, func(v *VM) error { return withOperandIndex(v, ldStatic) })
	set(opcode.STSFLD, func(v *VM) error { return withOperandIndex(v, stStatic) })
	set(opcode.LDLOC, func(v *VM) error { return withOperandIndex(v, ldLocal) })
	set(opcode.STLOC, func(v *VM) error { return withOperandIndex(v, stLocal) })
	set(opcode.LDARG, func(v *VM) error { return withOperandIndex(v, ldArg) })
	set(opcode.STARG, func(v *VM) error { return withOperandIndex(v, stArg) })
}

func withOperandIndex(v *VM, fn func(*VM, int) error) error {
	b, ok := v.Context().ReadBytes(1)
	if !ok {
		return ErrInvalidOpcode
	}
	return fn(v, int(b[0]))
}

func ldStatic(v *VM, i int) error {
	it, err := v.Context().LoadStatic(i)
	if err != nil {
		return err
	}
	return v.Estack().Push(it)
}

func stStatic(v *VM, i int) error {
	it, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	return v.Context().StoreStatic(i, it)
}

func ldLocal(v *VM, i int) error {
	it, err := v.Context().LoadLocal(i)
	if err != nil {
		return err
	}
	return v.Estack().Push(it)
}

func stLocal(v *VM, i int) error {
	it, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	return v.Context().StoreLocal(i, it)
}

func ldArg(v *VM, i int) error {
	it, err := v.Context().LoadArg(i)
	if err != nil {
		return err
	}
	return v.Estack().Push(it)
}

func stArg(v *VM, i int) error {
	it, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	return v.Context().StoreArg(i, it)
}

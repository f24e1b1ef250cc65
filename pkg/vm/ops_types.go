package vm

import (
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func registerTypeOps() {
	set(opcode.ISNULL, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		_, isNull := it.(stackitem.Null)
		return v.Estack().Push(stackitem.NewBool(isNull))
	})

	set(opcode.ISTYPE, func(v *VM) error {
		tb, ok := v.Context().ReadBytes(1)
		if !ok {
			return ErrInvalidOpcode
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		return v.Estack().Push(stackitem.NewBool(it.Type() == stackitem.Type(tb[0])))
	})

	set(opcode.CONVERT, func(v *VM) error {
		tb, ok := v.Context().ReadBytes(1)
		if !ok {
			return ErrInvalidOpcode
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		out, err := stackitem.ConvertTo(it, stackitem.Type(tb[0]))
		if err != nil {
			return err
		}
		return v.Estack().Push(out)
	})
}

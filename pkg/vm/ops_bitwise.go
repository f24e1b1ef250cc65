package vm

import (
	"math/big"

	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func registerBitwiseOps() {
	set(opcode.INVERT, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := stackitem.ToBigInteger(it)
		if err != nil {
			return err
		}
		res := new(big.Int).Not(n)
		out, err := stackitem.NewBigInteger(res)
		if err != nil {
			return err
		}
		return v.Estack().Push(out)
	})

	set(opcode.AND, func(v *VM) error { return intBinOp(v, new(big.Int).And) })
	set(opcode.OR, func(v *VM) error { return intBinOp(v, new(big.Int).Or) })
	set(opcode.XOR, func(v *VM) error { return intBinOp(v, new(big.Int).Xor) })

	set(opcode.EQUAL, func(v *VM) error {
		b, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		a, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		return v.Estack().Push(stackitem.NewBool(a.Equals(b)))
	})
	set(opcode.NOTEQUAL, func(v *VM) error {
		b, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		a, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		return v.Estack().Push(stackitem.NewBool(!a.Equals(b)))
	})
}

func intBinOp(v *VM, fn func(x, y *big.Int) *big.Int) error {
	bIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	aIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	a, err := stackitem.ToBigInteger(aIt)
	if err != nil {
		return err
	}
	b, err := stackitem.ToBigInteger(bIt)
	if err != nil {
		return err
	}
	res := fn(a, b)
	out, err := stackitem.NewBigInteger(res)
	if err != nil {
		return err
	}
	return v.Estack().Push(out)
}

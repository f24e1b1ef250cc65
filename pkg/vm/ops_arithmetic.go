package vm

import (
	"math/big"

	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

var (
	errDivByZero = stackitem.ErrInvalidType
)

func unaryIntOp(v *VM, fn func(n *big.Int) *big.Int) error {
	it, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	n, err := stackitem.ToBigInteger(it)
	if err != nil {
		return err
	}
	out, err := stackitem.NewBigInteger(fn(n))
	if err != nil {
		return err
	}
	return v.Estack().Push(out)
}

func popTwoInts(v *VM) (*big.Int, *big.Int, error) {
	bIt, err := v.Estack().Pop()
	if err != nil {
		return nil, nil, err
	}
	aIt, err := v.Estack().Pop()
	if err != nil {
		return nil, nil, err
	}
	a, err := stackitem.ToBigInteger(aIt)
	if err != nil {
		return nil, nil, err
	}
	b, err := stackitem.ToBigInteger(bIt)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func binIntOp(v *VM, fn func(a, b *big.Int) (*big.Int, error)) error {
	a, b, err := popTwoInts(v)
	if err != nil {
		return err
	}
	res, err := fn(a, b)
	if err != nil {
		return err
	}
	out, err := stackitem.NewBigInteger(res)
	if err != nil {
		return err
	}
	return v.Estack().Push(out)
}

func cmpIntOp(v *VM, cmp func(c int) bool) error {
	a, b, err := popTwoInts(v)
	if err != nil {
		return err
	}
	return v.Estack().Push(stackitem.NewBool(cmp(a.Cmp(b))))
}

func registerArithmeticOps() {
	set(opcode.SIGN, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := stackitem.ToBigInteger(it)
		if err != nil {
			return err
		}
		return v.Estack().Push(newInt(int64(n.Sign())))
	})
	set(opcode.ABS, func(v *VM) error { return unaryIntOp(v, func(n *big.Int) *big.Int { return new(big.Int).Abs(n) }) })
	set(opcode.NEGATE, func(v *VM) error { return unaryIntOp(v, func(n *big.Int) *big.Int { return new(big.Int).Neg(n) }) })
	set(opcode.INC, func(v *VM) error {
		return unaryIntOp(v, func(n *big.Int) *big.Int { return new(big.Int).Add(n, big.NewInt(1)) })
	})
	set(opcode.DEC, func(v *VM) error {
		return unaryIntOp(v, func(n *big.Int) *big.Int { return new(big.Int).Sub(n, big.NewInt(1)) })
	})

	set(opcode.ADD, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Add(a, b), nil })
	})
	set(opcode.SUB, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Sub(a, b), nil })
	})
	set(opcode.MUL, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Mul(a, b), nil })
	})
	set(opcode.DIV, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if b.Sign() == 0 {
				return nil, errDivByZero
			}
			return new(big.Int).Quo(a, b), nil
		})
	})
	set(opcode.MOD, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if b.Sign() == 0 {
				return nil, errDivByZero
			}
			return new(big.Int).Rem(a, b), nil
		})
	})
	set(opcode.POW, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if !b.IsInt64() || b.Sign() < 0 {
				return nil, stackitem.ErrInvalidType
			}
			return new(big.Int).Exp(a, b, nil), nil
		})
	})
	set(opcode.SQRT, func(v *VM) error {
		return unaryIntOp(v, func(n *big.Int) *big.Int { return new(big.Int).Sqrt(n) })
	})
	set(opcode.MODMUL, func(v *VM) error {
		mIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		m, err := stackitem.ToBigInteger(mIt)
		if err != nil {
			return err
		}
		a, b, err := popTwoInts(v)
		if err != nil {
			return err
		}
		if m.Sign() == 0 {
			return errDivByZero
		}
		res := new(big.Int).Mod(new(big.Int).Mul(a, b), m)
		out, err := stackitem.NewBigInteger(res)
		if err != nil {
			return err
		}
		return v.Estack().Push(out)
	})
	set(opcode.MODPOW, func(v *VM) error {
		mIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		m, err := stackitem.ToBigInteger(mIt)
		if err != nil {
			return err
		}
		eIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		e, err := stackitem.ToBigInteger(eIt)
		if err != nil {
			return err
		}
		bIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		base, err := stackitem.ToBigInteger(bIt)
		if err != nil {
			return err
		}
		if m.Sign() == 0 {
			return errDivByZero
		}
		var res *big.Int
		if e.Sign() < 0 {
			inv := new(big.Int).ModInverse(base, m)
			if inv == nil {
				return stackitem.ErrInvalidType
			}
			res = new(big.Int).Exp(inv, new(big.Int).Neg(e), m)
		} else {
			res = new(big.Int).Exp(base, e, m)
		}
		out, err := stackitem.NewBigInteger(res)
		if err != nil {
			return err
		}
		return v.Estack().Push(out)
	})
	set(opcode.SHL, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if !b.IsInt64() || b.Sign() < 0 || b.Int64() > stackitem.MaxBigIntegerSizeBits {
				return nil, stackitem.ErrInvalidType
			}
			return new(big.Int).Lsh(a, uint(b.Int64())), nil
		})
	})
	set(opcode.SHR, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if !b.IsInt64() || b.Sign() < 0 || b.Int64() > stackitem.MaxBigIntegerSizeBits {
				return nil, stackitem.ErrInvalidType
			}
			return new(big.Int).Rsh(a, uint(b.Int64())), nil
		})
	})
	set(opcode.NOT, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := it.TryBool()
		if err != nil {
			return err
		}
		return v.Estack().Push(stackitem.NewBool(!b))
	})
	set(opcode.BOOLAND, func(v *VM) error { return boolBinOp(v, func(a, b bool) bool { return a && b }) })
	set(opcode.BOOLOR, func(v *VM) error { return boolBinOp(v, func(a, b bool) bool { return a || b }) })
	set(opcode.NZ, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := stackitem.ToBigInteger(it)
		if err != nil {
			return err
		}
		return v.Estack().Push(stackitem.NewBool(n.Sign() != 0))
	})

	set(opcode.NUMEQUAL, func(v *VM) error { return cmpIntOp(v, func(c int) bool { return c == 0 }) })
	set(opcode.NUMNOTEQUAL, func(v *VM) error { return cmpIntOp(v, func(c int) bool { return c != 0 }) })
	set(opcode.LT, func(v *VM) error { return cmpIntOp(v, func(c int) bool { return c < 0 }) })
	set(opcode.LE, func(v *VM) error { return cmpIntOp(v, func(c int) bool { return c <= 0 }) })
	set(opcode.GT, func(v *VM) error { return cmpIntOp(v, func(c int) bool { return c > 0 }) })
	set(opcode.GE, func(v *VM) error { return cmpIntOp(v, func(c int) bool { return c >= 0 }) })
	set(opcode.MIN, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if a.Cmp(b) <= 0 {
				return a, nil
			}
			return b, nil
		})
	})
	set(opcode.MAX, func(v *VM) error {
		return binIntOp(v, func(a, b *big.Int) (*big.Int, error) {
			if a.Cmp(b) >= 0 {
				return a, nil
			}
			return b, nil
		})
	})
	set(opcode.WITHIN, func(v *VM) error {
		bIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		aIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		xIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := stackitem.ToBigInteger(bIt)
		if err != nil {
			return err
		}
		a, err := stackitem.ToBigInteger(aIt)
		if err != nil {
			return err
		}
		x, err := stackitem.ToBigInteger(xIt)
		if err != nil {
			return err
		}
		return v.Estack().Push(stackitem.NewBool(x.Cmp(a) >= 0 && x.Cmp(b) < 0))
	})
}

func boolBinOp(v *VM, fn func(a, b bool) bool) error {
	bIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	aIt, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	a, err := aIt.TryBool()
	if err != nil {
		return err
	}
	b, err := bIt.TryBool()
	if err != nil {
		return err
	}
	return v.Estack().Push(stackitem.NewBool(fn(a, b)))
}

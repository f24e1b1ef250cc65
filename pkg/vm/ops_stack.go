package vm

import (
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func readSmallIndex(v *VM) (int, error) {
	it, err := v.Estack().Pop()
	if err != nil {
		return 0, err
	}
	n, err := toInt(it)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func registerStackOps() {
	set(opcode.DEPTH, func(v *VM) error {
		return v.Estack().Push(newInt(int64(v.Estack().Len())))
	})
	set(opcode.DROP, func(v *VM) error {
		_, err := v.Estack().Pop()
		return err
	})
	set(opcode.NIP, func(v *VM) error {
		_, err := v.Estack().Remove(1)
		return err
	})
	set(opcode.XDROP, func(v *VM) error {
		n, err := readSmallIndex(v)
		if err != nil {
			return err
		}
		_, err = v.Estack().Remove(n)
		return err
	})
	set(opcode.CLEAR, func(v *VM) error {
		v.Estack().Clear()
		return nil
	})
	set(opcode.DUP, func(v *VM) error {
		it, err := v.Estack().Top()
		if err != nil {
			return err
		}
		return v.Estack().Push(it.Dup())
	})
	set(opcode.OVER, func(v *VM) error {
		it, err := v.Estack().Peek(1)
		if err != nil {
			return err
		}
		return v.Estack().Push(it.Dup())
	})
	set(opcode.PICK, func(v *VM) error {
		n, err := readSmallIndex(v)
		if err != nil {
			return err
		}
		it, err := v.Estack().Peek(n)
		if err != nil {
			return err
		}
		return v.Estack().Push(it.Dup())
	})
	set(opcode.TUCK, func(v *VM) error {
		top, err := v.Estack().Top()
		if err != nil {
			return err
		}
		return v.Estack().InsertAt(top.Dup(), 2)
	})
	set(opcode.SWAP, func(v *VM) error {
		a, err := v.Estack().Remove(1)
		if err != nil {
			return err
		}
		return v.Estack().InsertAt(a, 0)
	})
	set(opcode.ROT, func(v *VM) error {
		a, err := v.Estack().Remove(2)
		if err != nil {
			return err
		}
		return v.Estack().InsertAt(a, 1)
	})
	set(opcode.ROLL, func(v *VM) error {
		n, err := readSmallIndex(v)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		it, err := v.Estack().Remove(n)
		if err != nil {
			return err
		}
		return v.Estack().InsertAt(it, 0)
	})
	set(opcode.REVERSE3, func(v *VM) error { return reverseTop(v, 3) })
	set(opcode.REVERSE4, func(v *VM) error { return reverseTop(v, 4) })
	set(opcode.REVERSEN, func(v *VM) error {
		n, err := readSmallIndex(v)
		if err != nil {
			return err
		}
		return reverseTop(v, n)
	})
}

// reverseTop reverses the order of the top n items in place.
func reverseTop(v *VM, n int) error {
	if n <= 1 {
		return nil
	}
	s := v.Estack()
	vals := make([]stackitem.Item, 0, n)
	for i := 0; i < n; i++ {
		it, err := s.Remove(0)
		if err != nil {
			return err
		}
		vals = append(vals, it)
	}
	for _, it := range vals {
		if err := s.InsertAt(it, 0); err != nil {
			return err
		}
	}
	return nil
}

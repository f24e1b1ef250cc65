package vm

import (
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func registerCompoundOps() {
	set(opcode.PACK, func(v *VM) error {
		nIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := toInt(nIt)
		if err != nil {
			return err
		}
		items := make([]stackitem.Item, n)
		for i := 0; i < n; i++ {
			it, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			items[i] = it
			if err := v.RefCounter().AddChild(it); err != nil {
				return err
			}
		}
		return v.Estack().Push(stackitem.NewArray(items))
	})
	set(opcode.PACKSTRUCT, func(v *VM) error {
		nIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := toInt(nIt)
		if err != nil {
			return err
		}
		items := make([]stackitem.Item, n)
		for i := 0; i < n; i++ {
			it, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			items[i] = it
			if err := v.RefCounter().AddChild(it); err != nil {
				return err
			}
		}
		return v.Estack().Push(stackitem.NewStruct(items))
	})
	set(opcode.PACKMAP, func(v *VM) error {
		nIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := toInt(nIt)
		if err != nil {
			return err
		}
		m := stackitem.NewMap()
		for i := 0; i < n; i++ {
			val, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			key, err := v.Estack().Pop()
			if err != nil {
				return err
			}
			if err := m.Set(key, val); err != nil {
				return err
			}
			_ = v.RefCounter().AddChild(val)
		}
		return v.Estack().Push(m)
	})
	set(opcode.UNPACK, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		items, err := arrayLike(it)
		if err != nil {
			return err
		}
		for i := len(items) - 1; i >= 0; i-- {
			if err := v.Estack().Push(items[i]); err != nil {
				return err
			}
		}
		return v.Estack().Push(newInt(int64(len(items))))
	})

	set(opcode.NEWARRAY0, func(v *VM) error { return v.Estack().Push(stackitem.NewArray(nil)) })
	set(opcode.NEWSTRUCT0, func(v *VM) error { return v.Estack().Push(stackitem.NewStruct(nil)) })
	set(opcode.NEWMAP, func(v *VM) error { return v.Estack().Push(stackitem.NewMap()) })

	set(opcode.NEWARRAY, func(v *VM) error { return newFilled(v, false) })
	set(opcode.NEWARRAYT, func(v *VM) error { return newFilled(v, false) })
	set(opcode.NEWSTRUCT, func(v *VM) error { return newFilled(v, true) })

	set(opcode.SIZE, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		n, err := sizeOf(it)
		if err != nil {
			return err
		}
		return v.Estack().Push(newInt(int64(n)))
	})

	set(opcode.HASKEY, func(v *VM) error {
		keyIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		switch c := it.(type) {
		case *stackitem.Map:
			return v.Estack().Push(stackitem.NewBool(c.Has(keyIt)))
		default:
			items, err := arrayLike(it)
			if err != nil {
				return err
			}
			idx, err := toInt(keyIt)
			if err != nil {
				return err
			}
			return v.Estack().Push(stackitem.NewBool(idx >= 0 && idx < len(items)))
		}
	})

	set(opcode.KEYS, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		m, ok := it.(*stackitem.Map)
		if !ok {
			return stackitem.ErrInvalidType
		}
		return v.Estack().Push(stackitem.NewArray(m.Keys()))
	})
	set(opcode.VALUES, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		switch c := it.(type) {
		case *stackitem.Map:
			vals := make([]stackitem.Item, 0, c.Len())
			for _, x := range c.Values() {
				vals = append(vals, stackitem.DeepCopy(x, nil))
			}
			return v.Estack().Push(stackitem.NewArray(vals))
		default:
			items, err := arrayLike(it)
			if err != nil {
				return err
			}
			cp := make([]stackitem.Item, len(items))
			for i, x := range items {
				cp[i] = stackitem.DeepCopy(x, nil)
			}
			return v.Estack().Push(stackitem.NewArray(cp))
		}
	})

	set(opcode.PICKITEM, func(v *VM) error {
		keyIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		switch c := it.(type) {
		case *stackitem.Map:
			val, ok := c.Get(keyIt)
			if !ok {
				return stackitem.ErrInvalidType
			}
			return v.Estack().Push(val)
		default:
			items, err := arrayLike(it)
			if err != nil {
				return err
			}
			idx, err := toInt(keyIt)
			if err != nil {
				return err
			}
			if idx < 0 || idx >= len(items) {
				return stackitem.ErrInvalidType
			}
			return v.Estack().Push(items[idx])
		}
	})

	set(opcode.APPEND, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		coll, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		if err := v.RefCounter().AddChild(it); err != nil {
			return err
		}
		switch c := coll.(type) {
		case *stackitem.Array:
			return c.Append(it)
		case *stackitem.Struct:
			return c.Append(it)
		default:
			return stackitem.ErrInvalidType
		}
	})

	set(opcode.SETITEM, func(v *VM) error {
		val, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		keyIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		coll, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		if err := v.RefCounter().AddChild(val); err != nil {
			return err
		}
		switch c := coll.(type) {
		case *stackitem.Map:
			return c.Set(keyIt, val)
		default:
			items, err := arrayLike(coll)
			if err != nil {
				return err
			}
			idx, err := toInt(keyIt)
			if err != nil {
				return err
			}
			if idx < 0 || idx >= len(items) {
				return stackitem.ErrInvalidType
			}
			items[idx] = val
			return nil
		}
	})

	set(opcode.REVERSEITEMS, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		items, err := arrayLike(it)
		if err != nil {
			return err
		}
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		return nil
	})

	set(opcode.REMOVE, func(v *VM) error {
		keyIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		coll, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		switch c := coll.(type) {
		case *stackitem.Map:
			if val, ok := c.Get(keyIt); ok {
				v.RefCounter().RemoveChild(val)
			}
			c.Delete(keyIt)
			return nil
		default:
			idx, err := toInt(keyIt)
			if err != nil {
				return err
			}
			return removeAt(c, idx, v)
		}
	})

	set(opcode.CLEARITEMS, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		switch c := it.(type) {
		case *stackitem.Map:
			for _, val := range c.Values() {
				v.RefCounter().RemoveChild(val)
			}
			c.Clear()
			return nil
		default:
			items, err := arrayLike(it)
			if err != nil {
				return err
			}
			for _, e := range items {
				v.RefCounter().RemoveChild(e)
			}
			return clearArrayLike(c)
		}
	})

	set(opcode.POPITEM, func(v *VM) error {
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		items, err := arrayLike(it)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return stackitem.ErrInvalidType
		}
		last := items[len(items)-1]
		if err := removeAt(it, len(items)-1, v); err != nil {
			return err
		}
		return v.Estack().Push(last)
	})
}

func newFilled(v *VM, isStruct bool) error {
	it, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	n, err := toInt(it)
	if err != nil {
		return err
	}
	if n < 0 || n > stackitem.MaxSize {
		return stackitem.ErrTooBig
	}
	items := make([]stackitem.Item, n)
	for i := range items {
		items[i] = stackitem.NewNull()
	}
	if isStruct {
		return v.Estack().Push(stackitem.NewStruct(items))
	}
	return v.Estack().Push(stackitem.NewArray(items))
}

// arrayLike returns the element slice of an Array or Struct; other
// types return ErrInvalidType since index-based ops do not apply.
func arrayLike(it stackitem.Item) ([]stackitem.Item, error) {
	switch c := it.(type) {
	case *stackitem.Array:
		return c.Value().([]stackitem.Item), nil
	case *stackitem.Struct:
		return c.Value().([]stackitem.Item), nil
	default:
		return nil, stackitem.ErrInvalidType
	}
}

func sizeOf(it stackitem.Item) (int, error) {
	switch c := it.(type) {
	case *stackitem.Map:
		return c.Len(), nil
	case *stackitem.Array:
		return c.Len(), nil
	case *stackitem.Struct:
		return c.Len(), nil
	default:
		b, err := it.Bytes()
		if err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

func removeAt(coll stackitem.Item, idx int, v *VM) error {
	switch c := coll.(type) {
	case *stackitem.Array:
		items := c.Value().([]stackitem.Item)
		if idx < 0 || idx >= len(items) {
			return stackitem.ErrInvalidType
		}
		v.RefCounter().RemoveChild(items[idx])
		c.RemoveAt(idx)
		return nil
	case *stackitem.Struct:
		items := c.Value().([]stackitem.Item)
		if idx < 0 || idx >= len(items) {
			return stackitem.ErrInvalidType
		}
		v.RefCounter().RemoveChild(items[idx])
		c.RemoveAt(idx)
		return nil
	default:
		return stackitem.ErrInvalidType
	}
}

func clearArrayLike(it stackitem.Item) error {
	switch c := it.(type) {
	case *stackitem.Array:
		c.Clear()
		return nil
	case *stackitem.Struct:
		c.Clear()
		return nil
	default:
		return stackitem.ErrInvalidType
	}
}

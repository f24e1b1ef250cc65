package vm

import (
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func registerSpliceOps() {
	set(opcode.NEWBUFFER, func(v *VM) error {
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
		return v.Estack().Push(stackitem.NewBuffer(make([]byte, n)))
	})

	set(opcode.MEMCPY, func(v *VM) error {
		countIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		count, err := toInt(countIt)
		if err != nil {
			return err
		}
		srcIdxIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		srcIdx, err := toInt(srcIdxIt)
		if err != nil {
			return err
		}
		srcIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		src, err := srcIt.Bytes()
		if err != nil {
			return err
		}
		dstIdxIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		dstIdx, err := toInt(dstIdxIt)
		if err != nil {
			return err
		}
		dstIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		buf, ok := dstIt.(*stackitem.Buffer)
		if !ok {
			return stackitem.ErrInvalidType
		}
		if count < 0 || srcIdx < 0 || dstIdx < 0 {
			return stackitem.ErrInvalidType
		}
		dst, _ := buf.Bytes()
		if srcIdx+count > len(src) || dstIdx+count > len(dst) {
			return stackitem.ErrInvalidType
		}
		copy(dst[dstIdx:dstIdx+count], src[srcIdx:srcIdx+count])
		return buf.SetBytes(dst)
	})

	set(opcode.CAT, func(v *VM) error {
		b, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		a, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		ab, err := a.Bytes()
		if err != nil {
			return err
		}
		bb, err := b.Bytes()
		if err != nil {
			return err
		}
		if len(ab)+len(bb) > stackitem.MaxSize {
			return stackitem.ErrTooBig
		}
		return v.Estack().Push(stackitem.NewBuffer(append(append([]byte{}, ab...), bb...)))
	})

	set(opcode.SUBSTR, func(v *VM) error {
		countIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		count, err := toInt(countIt)
		if err != nil {
			return err
		}
		idxIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		idx, err := toInt(idxIt)
		if err != nil {
			return err
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := it.Bytes()
		if err != nil {
			return err
		}
		if idx < 0 || count < 0 || idx+count > len(b) {
			return stackitem.ErrInvalidType
		}
		return v.Estack().Push(stackitem.NewBuffer(b[idx : idx+count]))
	})

	set(opcode.LEFT, func(v *VM) error {
		countIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		count, err := toInt(countIt)
		if err != nil {
			return err
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := it.Bytes()
		if err != nil {
			return err
		}
		if count < 0 || count > len(b) {
			return stackitem.ErrInvalidType
		}
		return v.Estack().Push(stackitem.NewBuffer(b[:count]))
	})

	set(opcode.RIGHT, func(v *VM) error {
		countIt, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		count, err := toInt(countIt)
		if err != nil {
			return err
		}
		it, err := v.Estack().Pop()
		if err != nil {
			return err
		}
		b, err := it.Bytes()
		if err != nil {
			return err
		}
		if count < 0 || count > len(b) {
			return stackitem.ErrInvalidType
		}
		return v.Estack().Push(stackitem.NewBuffer(b[len(b)-count:]))
	})
}

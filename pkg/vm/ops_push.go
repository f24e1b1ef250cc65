package vm

import (
	"github.com/n3fullnode/neofull/pkg/encoding/bigint"
	"github.com/n3fullnode/neofull/pkg/vm/opcode"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

func pushIntN(n int) func(*VM) error {
	return func(v *VM) error {
		ctx := v.Context()
		b, ok := ctx.ReadBytes(n)
		if !ok {
			return ErrInvalidOpcode
		}
		it, err := stackitem.NewBigInteger(bigint.FromBytes(b))
		if err != nil {
			return err
		}
		return v.Estack().Push(it)
	}
}

func readVarLenBytes(ctx *Context, lenSize int) ([]byte, bool) {
	lb, ok := ctx.ReadBytes(lenSize)
	if !ok {
		return nil, false
	}
	var n int
	for i := len(lb) - 1; i >= 0; i-- {
		n = n<<8 | int(lb[i])
	}
	return ctx.ReadBytes(n)
}

func registerPushOps() {
	set(opcode.PUSHINT8, pushIntN(1))
	set(opcode.PUSHINT16, pushIntN(2))
	set(opcode.PUSHINT32, pushIntN(4))
	set(opcode.PUSHINT64, pushIntN(8))
	set(opcode.PUSHINT128, pushIntN(16))
	set(opcode.PUSHINT256, pushIntN(32))

	set(opcode.PUSHNULL, func(v *VM) error {
		return v.Estack().Push(stackitem.NewNull())
	})

	set(opcode.PUSHM1, func(v *VM) error {
		return v.Estack().Push(stackitem.NewInteger(-1))
	})

	for i := 0; i <= 16; i++ {
		n := int64(i)
		set(opcode.PUSH0+opcode.Opcode(i), func(v *VM) error {
			return v.Estack().Push(stackitem.NewInteger(n))
		})
	}

	set(opcode.PUSHA, func(v *VM) error {
		ctx := v.Context()
		b, ok := ctx.ReadBytes(4)
		if !ok {
			return ErrInvalidOpcode
		}
		offset := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		pos := ctx.IP() - 5 + int(offset)
		if pos < 0 || pos > len(ctx.Script) {
			return ErrInvalidOpcode
		}
		return v.Estack().Push(stackitem.NewPointer(pos, ctx.Script))
	})

	set(opcode.PUSHDATA1, func(v *VM) error {
		b, ok := readVarLenBytes(v.Context(), 1)
		if !ok {
			return ErrInvalidOpcode
		}
		return v.Estack().Push(stackitem.NewByteString(b))
	})
	set(opcode.PUSHDATA2, func(v *VM) error {
		b, ok := readVarLenBytes(v.Context(), 2)
		if !ok {
			return ErrInvalidOpcode
		}
		return v.Estack().Push(stackitem.NewByteString(b))
	})
	set(opcode.PUSHDATA4, func(v *VM) error {
		b, ok := readVarLenBytes(v.Context(), 4)
		if !ok {
			return ErrInvalidOpcode
		}
		return v.Estack().Push(stackitem.NewByteString(b))
	})
}

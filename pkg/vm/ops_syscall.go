package vm

import (
	"encoding/binary"

	"github.com/n3fullnode/neofull/pkg/vm/opcode"
)

func registerSyscallOps() {
	set(opcode.SYSCALL, func(v *VM) error {
		b, ok := v.Context().ReadBytes(4)
		if !ok {
			return ErrInvalidOpcode
		}
		id := binary.LittleEndian.Uint32(b)
		h, ok := v.interops.Get(id)
		if !ok {
			return ErrUnknownSyscall
		}
		if !v.Context().CallFlags().Has(h.RequiredFlag) {
			return ErrCallFlags
		}
		if err := v.AddGas(h.Price); err != nil {
			return err
		}
		if v.OnSysCall != nil {
			v.OnSysCall(h.Name)
		}
		return h.Func(v)
	})

	set(opcode.CALLT, func(v *VM) error {
		b, ok := v.Context().ReadBytes(2)
		if !ok {
			return ErrInvalidOpcode
		}
		if v.TokenCall == nil {
			return ErrInvalidOpcode
		}
		return v.TokenCall(v, binary.LittleEndian.Uint16(b))
	})

	set(opcode.CALLNATIVE, func(v *VM) error {
		b, ok := v.Context().ReadBytes(4)
		if !ok {
			return ErrInvalidOpcode
		}
		if v.NativeCall == nil {
			return ErrInvalidOpcode
		}
		return v.NativeCall(v, binary.LittleEndian.Uint32(b))
	})
}

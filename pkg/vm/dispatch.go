package vm

import "github.com/n3fullnode/neofull/pkg/vm/opcode"

// dispatchTable maps every recognized opcode to its handler. Entries
// left nil fault with ErrInvalidOpcode if ever reached, matching how
// the engine treats any other unassigned byte.
var dispatchTable [256]func(*VM) error

func init() {
	registerPushOps()
	registerControlOps()
	registerStackOps()
	registerSlotOps()
	registerSpliceOps()
	registerBitwiseOps()
	registerArithmeticOps()
	registerCompoundOps()
	registerTypeOps()
	registerSyscallOps()
}

func set(op opcode.Opcode, fn func(*VM) error) {
	dispatchTable[op] = fn
}

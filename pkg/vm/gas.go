package vm

import "github.com/n3fullnode/neofull/pkg/vm/opcode"

// opcodePrice returns the fixed base gas cost of op, in the VM's
// internal gas unit (datoshi after scaling by ExecFeeFactor). Prices
// are grouped by cost tier, mirroring the reference fee schedule:
// trivial stack ops are cheapest, compound/crypto-adjacent ops cost
// more because they are proportional to the work a malicious script
// could otherwise get for free.
func opcodePrice(op opcode.Opcode) int64 {
	switch {
	case op >= opcode.PUSH0 && op <= opcode.PUSH16, op == opcode.PUSHM1, op == opcode.PUSHNULL:
		return 1 << 0
	case op == opcode.PUSHINT8 || op == opcode.PUSHINT16 || op == opcode.PUSHINT32 || op == opcode.PUSHINT64:
		return 1 << 0
	case op == opcode.PUSHINT128 || op == opcode.PUSHINT256:
		return 1 << 2
	case op == opcode.PUSHA:
		return 1 << 2
	case op == opcode.PUSHDATA1:
		return 1 << 3
	case op == opcode.PUSHDATA2:
		return 1 << 9
	case op == opcode.PUSHDATA4:
		return 1 << 12
	case op == opcode.NOP:
		return 1 << 0
	case op == opcode.JMP || op == opcode.JMPL || op == opcode.JMPIF || op == opcode.JMPIFL ||
		op == opcode.JMPIFNOT || op == opcode.JMPIFNOTL || (op >= opcode.JMPEQ && op <= opcode.JMPLEL):
		return 1 << 1
	case op == opcode.CALL || op == opcode.CALLL || op == opcode.CALLA:
		return 1 << 9
	case op == opcode.CALLT:
		return 1 << 15
	case op == opcode.ABORT || op == opcode.ABORTMSG:
		return 0
	case op == opcode.ASSERT || op == opcode.ASSERTMSG:
		return 1 << 0
	case op == opcode.THROW:
		return 1 << 9
	case op == opcode.TRY || op == opcode.TRYL || op == opcode.ENDTRY || op == opcode.ENDTRYL || op == opcode.ENDFINALLY:
		return 1 << 2
	case op == opcode.RET:
		return 0
	case op == opcode.SYSCALL:
		return 0 // priced per interop entry instead
	case op == opcode.DEPTH || op == opcode.DROP || op == opcode.NIP || op == opcode.XDROP ||
		op == opcode.CLEAR || op == opcode.DUP || op == opcode.OVER || op == opcode.PICK ||
		op == opcode.TUCK || op == opcode.SWAP || op == opcode.ROT || op == opcode.ROLL ||
		op == opcode.REVERSE3 || op == opcode.REVERSE4 || op == opcode.REVERSEN:
		return 1 << 1
	case op == opcode.INITSSLOT || op == opcode.INITSLOT:
		return 1 << 4
	case isSlotOp(op):
		return 1 << 1
	case op == opcode.NEWBUFFER:
		return 1 << 8
	case op == opcode.MEMCPY || op == opcode.CAT || op == opcode.SUBSTR || op == opcode.LEFT || op == opcode.RIGHT:
		return 1 << 11
	case op == opcode.INVERT:
		return 1 << 2
	case op == opcode.AND || op == opcode.OR || op == opcode.XOR || op == opcode.EQUAL || op == opcode.NOTEQUAL:
		return 1 << 3
	case op == opcode.SIGN || op == opcode.ABS || op == opcode.NEGATE || op == opcode.INC || op == opcode.DEC ||
		op == opcode.NOT || op == opcode.NZ || op == opcode.BOOLAND || op == opcode.BOOLOR:
		return 1 << 2
	case op == opcode.ADD || op == opcode.SUB || op == opcode.MUL || op == opcode.DIV || op == opcode.MOD ||
		op == opcode.SHL || op == opcode.SHR || op == opcode.NUMEQUAL || op == opcode.NUMNOTEQUAL ||
		op == opcode.LT || op == opcode.LE || op == opcode.GT || op == opcode.GE || op == opcode.MIN || op == opcode.MAX || op == opcode.WITHIN:
		return 1 << 3
	case op == opcode.POW || op == opcode.SQRT || op == opcode.MODMUL:
		return 1 << 6
	case op == opcode.MODPOW:
		return 1 << 11
	case op == opcode.PACK || op == opcode.UNPACK || op == opcode.PACKMAP || op == opcode.PACKSTRUCT ||
		op == opcode.NEWARRAY0 || op == opcode.NEWSTRUCT0 || op == opcode.NEWMAP:
		return 1 << 4
	case op == opcode.NEWARRAY || op == opcode.NEWARRAYT || op == opcode.NEWSTRUCT:
		return 1 << 8
	case op == opcode.SIZE || op == opcode.HASKEY || op == opcode.KEYS || op == opcode.VALUES ||
		op == opcode.PICKITEM || op == opcode.APPEND || op == opcode.SETITEM ||
		op == opcode.REVERSEITEMS || op == opcode.REMOVE || op == opcode.CLEARITEMS || op == opcode.POPITEM:
		return 1 << 4
	case op == opcode.ISNULL || op == opcode.ISTYPE:
		return 1 << 1
	case op == opcode.CONVERT:
		return 1 << 13
	default:
		return 1 << 4
	}
}

func isSlotOp(op opcode.Opcode) bool {
	switch {
	case op >= opcode.LDSFLD0 && op <= opcode.LDSFLD:
		return true
	case op >= opcode.STSFLD0 && op <= opcode.STSFLD:
		return true
	case op >= opcode.LDLOC0 && op <= opcode.LDLOC:
		return true
	case op >= opcode.STLOC0 && op <= opcode.STLOC:
		return true
	case op >= opcode.LDARG0 && op <= opcode.LDARG:
		return true
	case op >= opcode.STARG0 && op <= opcode.STARG:
		return true
	default:
		return false
	}
}

// DefaultExecFeeFactor is the multiplier applied to each opcode's base
// price to get the datoshi amount actually charged; PolicyContract can
// raise it (never lower it below 1) via governance.
const DefaultExecFeeFactor = 30

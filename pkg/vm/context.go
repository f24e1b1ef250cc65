package vm

import (
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// exceptionHandler records a pushed TRY block: where to jump on an
// uncaught/thrown exception, where to jump for cleanup, and the
// evaluation stack depth to restore on unwind.
type exceptionHandler struct {
	catchPos    int // -1 if no catch block
	finallyPos  int // -1 if no finally block
	endPos      int // instruction after ENDTRY, resumed once finally completes
	stackDepth  int
	inCatch     bool
	inFinally   bool
}

const noTarget = -1

// Context is one frame of the invocation stack: a loaded script together
// with its instruction pointer, evaluation/alt stacks, slots, calling
// convention and try/catch state.
type Context struct {
	Script       []byte
	ScriptHash   util.Uint160
	ip           int
	rvcount      int
	callFlags    callflag.CallFlag
	estack       *Stack
	astack       *Stack
	statics      []stackitem.Item
	locals       []stackitem.Item
	args         []stackitem.Item
	tryStack     []exceptionHandler
	staticsOwner *Context // non-nil when statics are shared (internal calls)

	// pendingRethrow holds an exception that unwound into a finally
	// block; ENDFINALLY re-raises it once the block completes instead
	// of resuming normal control flow.
	pendingRethrow stackitem.Item
}

// NewContext constructs a Context over script, with its own fresh
// evaluation/alt stacks bound to refs.
func NewContext(script []byte, scriptHash util.Uint160, rvcount int, flags callflag.CallFlag, refs *stackitem.RefCounter) *Context {
	return &Context{
		Script:     script,
		ScriptHash: scriptHash,
		rvcount:    rvcount,
		callFlags:  flags,
		estack:     newStack(refs),
		astack:     newStack(refs),
	}
}

// Clone creates a context sharing this context's script, statics and
// stacks but with its own instruction pointer and call flags — the
// vehicle for CALL/internal invocation that must see the caller's
// static fields.
func (c *Context) Clone(pos int, flags callflag.CallFlag) *Context {
	nc := *c
	nc.ip = pos
	nc.callFlags = flags
	nc.locals = nil
	nc.args = nil
	nc.tryStack = nil
	return &nc
}

// IP returns the current instruction pointer.
func (c *Context) IP() int { return c.ip }

// Jump sets the instruction pointer to an absolute offset.
func (c *Context) Jump(pos int) { c.ip = pos }

// Next decodes the instruction at ip, advancing ip past the opcode
// byte (operand consumption is the handler's job).
func (c *Context) Next() (byte, bool) {
	if c.ip >= len(c.Script) {
		return 0, false
	}
	b := c.Script[c.ip]
	c.ip++
	return b, true
}

// ReadBytes consumes n raw bytes from the script at the current ip.
func (c *Context) ReadBytes(n int) ([]byte, bool) {
	if c.ip+n > len(c.Script) {
		return nil, false
	}
	b := c.Script[c.ip : c.ip+n]
	c.ip += n
	return b, true
}

// Estack returns the evaluation stack.
func (c *Context) Estack() *Stack { return c.estack }

// Astack returns the alt stack.
func (c *Context) Astack() *Stack { return c.astack }

// CallFlags returns the flags this frame is currently restricted to.
func (c *Context) CallFlags() callflag.CallFlag { return c.callFlags }

// InitStatics allocates n static slots.
func (c *Context) InitStatics(n int) {
	c.statics = make([]stackitem.Item, n)
	for i := range c.statics {
		c.statics[i] = stackitem.NewNull()
	}
}

// InitSlots installs the popped argument items and allocates local
// variable slots.
func (c *Context) InitSlots(args []stackitem.Item, locals int) {
	c.args = args
	c.locals = make([]stackitem.Item, locals)
	for i := range c.locals {
		c.locals[i] = stackitem.NewNull()
	}
}

func slotAt(slots []stackitem.Item, i int) (stackitem.Item, error) {
	if i < 0 || i >= len(slots) {
		return nil, ErrInvalidSlot
	}
	return slots[i], nil
}

// LoadStatic reads static slot i.
func (c *Context) LoadStatic(i int) (stackitem.Item, error) { return slotAt(c.statics, i) }

// StoreStatic writes static slot i.
func (c *Context) StoreStatic(i int, it stackitem.Item) error {
	if i < 0 || i >= len(c.statics) {
		return ErrInvalidSlot
	}
	c.statics[i] = it
	return nil
}

// LoadLocal reads local slot i.
func (c *Context) LoadLocal(i int) (stackitem.Item, error) { return slotAt(c.locals, i) }

// StoreLocal writes local slot i.
func (c *Context) StoreLocal(i int, it stackitem.Item) error {
	if i < 0 || i >= len(c.locals) {
		return ErrInvalidSlot
	}
	c.locals[i] = it
	return nil
}

// LoadArg reads argument slot i.
func (c *Context) LoadArg(i int) (stackitem.Item, error) { return slotAt(c.args, i) }

// StoreArg writes argument slot i.
func (c *Context) StoreArg(i int, it stackitem.Item) error {
	if i < 0 || i >= len(c.args) {
		return ErrInvalidSlot
	}
	c.args[i] = it
	return nil
}

// PushTry pushes a new exception handler frame.
func (c *Context) PushTry(catchPos, finallyPos int) {
	c.tryStack = append(c.tryStack, exceptionHandler{
		catchPos:   catchPos,
		finallyPos: finallyPos,
		endPos:     noTarget,
		stackDepth: c.estack.Len(),
	})
}

// TopTry returns the innermost try handler, or false if none is
// active.
func (c *Context) TopTry() (*exceptionHandler, bool) {
	if len(c.tryStack) == 0 {
		return nil, false
	}
	return &c.tryStack[len(c.tryStack)-1], true
}

// PopTry removes the innermost try handler.
func (c *Context) PopTry() {
	if len(c.tryStack) > 0 {
		c.tryStack = c.tryStack[:len(c.tryStack)-1]
	}
}

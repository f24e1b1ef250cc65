package consensus

import (
	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

// State is one phase of the per-(block_index, view) state machine.
type State byte

const (
	StateInitial State = iota
	StatePrimary
	StateBackup
	StateRequestSent
	StateRequestReceived
	StateResponseSent
	StateCommitSent
	StateBlockSent
	StateViewChanging
)

// Context is the mutable state one validator tracks for the round
// currently in progress: the candidate under construction, the
// payloads collected toward each threshold, and the validator set
// they are collected against.
type Context struct {
	BlockIndex uint32
	ViewNumber byte

	MyIndex    int
	Validators []*keys.PublicKey
	PrivateKey *keys.PrivateKey

	PrevHash  util.Uint256
	PrevTimestamp uint64

	State State

	// Candidate is the block header/body under construction this
	// round; non-nil once a PrepareRequest has been sent or accepted.
	Candidate *block.Block

	// TransactionHashes/Transactions mirror the PrepareRequest's
	// declared set; Transactions is filled in as each hash resolves
	// (locally or via getdata).
	TransactionHashes []util.Uint256
	Transactions      map[util.Uint256]*transaction.Transaction

	PreparationPayloads []*Payload // indexed by validator index
	CommitPayloads      []*Payload
	ChangeViewPayloads  []*Payload
	LastSeenMessage     []int64 // per-validator last message block index, -1 if none

	lastChangeViewSent byte
	sentChangeView     bool
}

// NewContext allocates a Context sized for n validators.
func NewContext(n int) *Context {
	c := &Context{
		Transactions:        make(map[util.Uint256]*transaction.Transaction),
		PreparationPayloads: make([]*Payload, n),
		CommitPayloads:      make([]*Payload, n),
		ChangeViewPayloads:  make([]*Payload, n),
		LastSeenMessage:     make([]int64, n),
	}
	for i := range c.LastSeenMessage {
		c.LastSeenMessage[i] = -1
	}
	return c
}

// N is the validator-set size.
func (c *Context) N() int { return len(c.Validators) }

// F is the Byzantine tolerance, f = (n-1)/3.
func (c *Context) F() int { return (c.N() - 1) / 3 }

// M is the commit threshold, n - f.
func (c *Context) M() int { return c.N() - c.F() }

// PrimaryIndex returns the validator index that is primary for the
// current (BlockIndex, view) pair: (block_index - view) mod n.
func (c *Context) PrimaryIndex(view byte) int {
	n := c.N()
	p := (int(c.BlockIndex) - int(view)) % n
	if p < 0 {
		p += n
	}
	return p
}

// IsPrimary reports whether this validator leads the current view.
func (c *Context) IsPrimary() bool { return c.MyIndex == c.PrimaryIndex(c.ViewNumber) }

// reset clears round-scoped state for (index, view), keeping the
// validator set and identity fields intact. Called on every new block
// and on every view change (a new view resets the per-view payload
// slots but not PrevHash/BlockIndex).
func (c *Context) reset(view byte) {
	c.ViewNumber = view
	c.Candidate = nil
	c.TransactionHashes = nil
	c.Transactions = make(map[util.Uint256]*transaction.Transaction)
	c.PreparationPayloads = make([]*Payload, c.N())
	c.CommitPayloads = make([]*Payload, c.N())
	c.sentChangeView = false
	if c.IsPrimary() {
		c.State = StatePrimary
	} else {
		c.State = StateBackup
	}
}

// resetForBlock starts a fresh round at the given height, clearing
// change-view history too (a new block always begins at view 0).
func (c *Context) resetForBlock(index uint32, prevHash util.Uint256, prevTimestamp uint64) {
	c.BlockIndex = index
	c.PrevHash = prevHash
	c.PrevTimestamp = prevTimestamp
	c.ChangeViewPayloads = make([]*Payload, c.N())
	c.reset(0)
}

// countCommitted returns how many CommitPayloads slots are filled.
func (c *Context) countCommitted() int {
	n := 0
	for _, p := range c.CommitPayloads {
		if p != nil {
			n++
		}
	}
	return n
}

// countPreparations returns how many PreparationPayloads slots are
// filled (PrepareRequest from the primary plus every PrepareResponse).
func (c *Context) countPreparations() int {
	n := 0
	for _, p := range c.PreparationPayloads {
		if p != nil {
			n++
		}
	}
	return n
}

// countChangeViews returns how many validators have asked to move to
// at least the given view.
func (c *Context) countChangeViews(view byte) int {
	n := 0
	for _, p := range c.ChangeViewPayloads {
		if p == nil {
			continue
		}
		cv := p.payload.(*changeView)
		if cv.NewViewNumber >= view {
			n++
		}
	}
	return n
}

// requestSent reports whether the primary's PrepareRequest for the
// current view is already in PreparationPayloads.
func (c *Context) requestSent() bool {
	return c.PreparationPayloads[c.PrimaryIndex(c.ViewNumber)] != nil
}

// haveAllTransactions reports whether every hash the PrepareRequest
// named has resolved locally.
func (c *Context) haveAllTransactions() bool {
	for _, h := range c.TransactionHashes {
		if _, ok := c.Transactions[h]; !ok {
			return false
		}
	}
	return true
}

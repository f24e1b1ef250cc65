package vm

import "github.com/n3fullnode/neofull/pkg/vm/stackitem"

// Stack is a LIFO of stack items backing an engine's evaluation and
// alt stacks. Index 0 is the top.
type Stack struct {
	items []stackitem.Item
	refs  *stackitem.RefCounter
}

func newStack(refs *stackitem.RefCounter) *Stack {
	return &Stack{refs: refs}
}

// Len returns the number of items on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Push adds it to the top of the stack, registering a root reference
// for compound items.
func (s *Stack) Push(it stackitem.Item) error {
	if err := s.refs.Add(it); err != nil {
		return err
	}
	s.items = append(s.items, it)
	return nil
}

// Pop removes and returns the top item, releasing its root reference.
func (s *Stack) Pop() (stackitem.Item, error) {
	it, err := s.Peek(0)
	if err != nil {
		return nil, err
	}
	s.items = s.items[:len(s.items)-1]
	s.refs.Remove(it)
	return it, nil
}

// Peek returns the item n positions from the top (0 = top) without
// removing it.
func (s *Stack) Peek(n int) (stackitem.Item, error) {
	idx := len(s.items) - 1 - n
	if idx < 0 || idx >= len(s.items) {
		return nil, ErrStackUnderflow
	}
	return s.items[idx], nil
}

// Top is Peek(0).
func (s *Stack) Top() (stackitem.Item, error) { return s.Peek(0) }

// Remove deletes and returns the item n positions from the top,
// shifting the rest down (used by XDROP/ROLL/friends).
func (s *Stack) Remove(n int) (stackitem.Item, error) {
	idx := len(s.items) - 1 - n
	if idx < 0 || idx >= len(s.items) {
		return nil, ErrStackUnderflow
	}
	it := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.refs.Remove(it)
	return it, nil
}

// InsertAt inserts it at position n from the top (0 = becomes the new
// top), used by ROT/ROLL re-insertion and TUCK.
func (s *Stack) InsertAt(it stackitem.Item, n int) error {
	idx := len(s.items) - n
	if idx < 0 || idx > len(s.items) {
		return ErrStackUnderflow
	}
	if err := s.refs.Add(it); err != nil {
		return err
	}
	s.items = append(s.items, nil)
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = it
	return nil
}

// Clear drops every item, releasing all root references.
func (s *Stack) Clear() {
	for _, it := range s.items {
		s.refs.Remove(it)
	}
	s.items = nil
}

// ToArray returns the stack contents top-first, for inspection (e.g.
// building the final-result array of a HALTed execution).
func (s *Stack) ToArray() []stackitem.Item {
	out := make([]stackitem.Item, len(s.items))
	for i, it := range s.items {
		out[len(s.items)-1-i] = it
	}
	return out
}

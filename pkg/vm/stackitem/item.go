// Package stackitem implements the VM's value model: the closed set
// of item variants a script can push, store and pass across contract
// calls, their conversions and equality rules, and the size limit that
// bounds every growing operation.
package stackitem

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/n3fullnode/neofull/pkg/encoding/bigint"
)

// MaxSize is the maximum encoded size, in bytes, any single item may
// occupy. It is re-checked after every operation that can grow an
// item (CAT, buffer writes, PACK, ...), not just at construction.
const MaxSize = 65535

// MaxBigIntegerSizeBits bounds VM integers to 256 bits.
const MaxBigIntegerSizeBits = 256

// ErrTooBig is returned when an item would exceed MaxSize.
var ErrTooBig = errors.New("stackitem: item exceeds maximum size")

// ErrInvalidType is returned by conversions/comparisons that do not
// support the given item's type.
var ErrInvalidType = errors.New("stackitem: invalid type for this operation")

// Item is the interface every stack item variant implements.
type Item interface {
	// Type returns the item's variant tag.
	Type() Type
	// Value returns the variant's underlying Go value (meaning is
	// type-dependent; see each constructor's doc).
	Value() interface{}
	// Bytes converts the item to its canonical byte representation or
	// returns an error if the conversion is undefined.
	Bytes() ([]byte, error)
	// TryBool converts the item to its truthiness; every variant has
	// one, used by every conditional jump and ASSERT.
	TryBool() (bool, error)
	// Equals performs the protocol's equality check against other.
	Equals(other Item) bool
	// Dup returns a shallow duplicate sharing compound contents
	// reference-wise (used to push a reference to a compound value
	// onto another stack position without a deep copy).
	Dup() Item
}

// RefCounted is implemented by every item variant that participates in
// reference counting: the compound types.
type RefCounted interface {
	Item
	RefCount() int
	IncRC() int
	DecRC() int
}

// ---- Null ----

// Null is the VM's null item; there is exactly one logical value, but
// it is not a singleton so identity comparisons still use Equals.
type Null struct{}

// NewNull returns a new Null item.
func NewNull() Item { return Null{} }

// Type implements Item.
func (Null) Type() Type { return NullT }

// Value implements Item.
func (Null) Value() interface{} { return nil }

// Bytes implements Item; Null has no byte representation.
func (Null) Bytes() ([]byte, error) { return nil, fmt.Errorf("%w: Null has no bytes", ErrInvalidType) }

// TryBool implements Item: Null is always falsy.
func (Null) TryBool() (bool, error) { return false, nil }

// Equals implements Item.
func (Null) Equals(other Item) bool {
	_, ok := other.(Null)
	return ok
}

// Dup implements Item.
func (n Null) Dup() Item { return n }

// ---- Boolean ----

// Boolean wraps a bool value.
type Boolean bool

// NewBool constructs a Boolean item.
func NewBool(b bool) Item { return Boolean(b) }

// Type implements Item.
func (Boolean) Type() Type { return BooleanT }

// Value implements Item.
func (b Boolean) Value() interface{} { return bool(b) }

// Bytes implements Item.
func (b Boolean) Bytes() ([]byte, error) {
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// TryBool implements Item.
func (b Boolean) TryBool() (bool, error) { return bool(b), nil }

// Equals implements Item.
func (b Boolean) Equals(other Item) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

// Dup implements Item.
func (b Boolean) Dup() Item { return b }

// ---- Integer ----

// Integer wraps an arbitrary-precision (bounded to 256 bits) signed
// integer.
type Integer struct {
	value *big.Int
}

// NewBigInteger constructs an Integer item, returning an error if n
// does not fit the 256-bit bound.
func NewBigInteger(n *big.Int) (Item, error) {
	if n.BitLen() > MaxBigIntegerSizeBits {
		return nil, fmt.Errorf("%w: integer", ErrTooBig)
	}
	return &Integer{value: new(big.Int).Set(n)}, nil
}

// NewInteger constructs an Integer item from an int64.
func NewInteger(n int64) Item {
	return &Integer{value: big.NewInt(n)}
}

// Type implements Item.
func (*Integer) Type() Type { return IntegerT }

// Value implements Item; the returned value is *big.Int.
func (i *Integer) Value() interface{} { return i.value }

// Big returns the underlying *big.Int.
func (i *Integer) Big() *big.Int { return i.value }

// Bytes implements Item: minimum-length two's-complement little-endian.
func (i *Integer) Bytes() ([]byte, error) {
	return bigint.ToBytes(i.value)
}

// TryBool implements Item.
func (i *Integer) TryBool() (bool, error) { return i.value.Sign() != 0, nil }

// Equals implements Item.
func (i *Integer) Equals(other Item) bool {
	o, ok := other.(*Integer)
	return ok && i.value.Cmp(o.value) == 0
}

// Dup implements Item.
func (i *Integer) Dup() Item { return &Integer{value: new(big.Int).Set(i.value)} }

// ---- ByteString ----

// ByteString is an immutable byte sequence.
type ByteString []byte

// NewByteString constructs a ByteString item, copying b.
func NewByteString(b []byte) Item {
	cp := make([]byte, len(b))
	copy(cp, b)
	return ByteString(cp)
}

// Type implements Item.
func (ByteString) Type() Type { return ByteStringT }

// Value implements Item.
func (b ByteString) Value() interface{} { return []byte(b) }

// Bytes implements Item.
func (b ByteString) Bytes() ([]byte, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

// TryBool implements Item: any non-all-zero byte string is truthy,
// empty is falsy.
func (b ByteString) TryBool() (bool, error) {
	for _, v := range b {
		if v != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Equals implements Item: byte-for-byte comparison against another
// ByteString or Buffer.
func (b ByteString) Equals(other Item) bool {
	var ob []byte
	switch o := other.(type) {
	case ByteString:
		ob = o
	case *Buffer:
		ob = o.value
	default:
		return false
	}
	if len(b) != len(ob) {
		return false
	}
	for i := range b {
		if b[i] != ob[i] {
			return false
		}
	}
	return true
}

// Dup implements Item; ByteString is immutable so duplication is a
// no-op share.
func (b ByteString) Dup() Item { return b }

// ---- Buffer ----

// Buffer is a mutable byte sequence (grows in place via MEMCPY/CAT).
type Buffer struct {
	value []byte
	rc    int
}

// NewBuffer constructs a Buffer item, copying b.
func NewBuffer(b []byte) Item {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Buffer{value: cp}
}

// Type implements Item.
func (*Buffer) Type() Type { return BufferT }

// Value implements Item.
func (b *Buffer) Value() interface{} { return b.value }

// Bytes implements Item.
func (b *Buffer) Bytes() ([]byte, error) {
	cp := make([]byte, len(b.value))
	copy(cp, b.value)
	return cp, nil
}

// TryBool implements Item.
func (b *Buffer) TryBool() (bool, error) {
	for _, v := range b.value {
		if v != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Equals implements Item: Buffer only compares equal by reference
// identity per the reference semantics (two distinct, even
// byte-identical, buffers are not EQUAL).
func (b *Buffer) Equals(other Item) bool {
	o, ok := other.(*Buffer)
	return ok && b == o
}

// Dup implements Item; Buffer is mutable, so Dup returns a deep copy.
func (b *Buffer) Dup() Item {
	cp := make([]byte, len(b.value))
	copy(cp, b.value)
	return &Buffer{value: cp}
}

// SetBytes replaces the buffer contents, enforcing MaxSize.
func (b *Buffer) SetBytes(v []byte) error {
	if len(v) > MaxSize {
		return ErrTooBig
	}
	b.value = v
	return nil
}

// RefCount implements RefCounted.
func (b *Buffer) RefCount() int { return b.rc }

// IncRC implements RefCounted.
func (b *Buffer) IncRC() int { b.rc++; return b.rc }

// DecRC implements RefCounted.
func (b *Buffer) DecRC() int { b.rc--; return b.rc }

// ---- Pointer ----

// Pointer references an absolute offset within a script, produced by
// PUSHA and consumed by CALLA.
type Pointer struct {
	Script []byte
	Pos    int
}

// NewPointer constructs a Pointer item.
func NewPointer(pos int, script []byte) Item {
	return &Pointer{Script: script, Pos: pos}
}

// Type implements Item.
func (*Pointer) Type() Type { return PointerT }

// Value implements Item.
func (p *Pointer) Value() interface{} { return p.Pos }

// Bytes implements Item; Pointer has no byte representation.
func (*Pointer) Bytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Pointer has no bytes", ErrInvalidType)
}

// TryBool implements Item.
func (*Pointer) TryBool() (bool, error) { return true, nil }

// Equals implements Item.
func (p *Pointer) Equals(other Item) bool {
	o, ok := other.(*Pointer)
	return ok && p == o
}

// Dup implements Item.
func (p *Pointer) Dup() Item { return p }

// ---- InteropInterface ----

// Interop wraps an opaque host object (an iterator, for example) that
// cannot be serialized or inspected by script code beyond identity.
type Interop struct {
	value interface{}
}

// NewInterop constructs an Interop item.
func NewInterop(v interface{}) Item { return &Interop{value: v} }

// Type implements Item.
func (*Interop) Type() Type { return InteropT }

// Value implements Item.
func (i *Interop) Value() interface{} { return i.value }

// Bytes implements Item; Interop has no byte representation.
func (*Interop) Bytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: InteropInterface has no bytes", ErrInvalidType)
}

// TryBool implements Item.
func (*Interop) TryBool() (bool, error) { return true, nil }

// Equals implements Item.
func (i *Interop) Equals(other Item) bool {
	o, ok := other.(*Interop)
	return ok && i == o
}

// Dup implements Item.
func (i *Interop) Dup() Item { return i }

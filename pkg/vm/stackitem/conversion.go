package stackitem

import (
	"math/big"

	"github.com/n3fullnode/neofull/pkg/encoding/bigint"
)

// ToBigInteger extracts the integer value of an item, for use by
// arithmetic opcodes and anywhere else an Integer is demanded.
// ByteString/Buffer are interpreted as two's-complement encodings,
// Boolean as 0/1, matching the reference VM's implicit conversions.
func ToBigInteger(it Item) (*big.Int, error) {
	switch v := it.(type) {
	case *Integer:
		return v.value, nil
	case Boolean:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case ByteString:
		return bigint.FromBytes(v), nil
	case *Buffer:
		return bigint.FromBytes(v.value), nil
	default:
		return nil, ErrInvalidType
	}
}

// ToByteArray returns the canonical byte encoding for it, the
// conversion behind CONVERT(ByteString) and implicit byte coercions in
// splice opcodes.
func ToByteArray(it Item) ([]byte, error) {
	return it.Bytes()
}

// ConvertTo implements the CONVERT opcode's type coercion rules.
// Converting an item to its own type is always a no-op identity.
func ConvertTo(it Item, t Type) (Item, error) {
	if it.Type() == t {
		return it, nil
	}
	switch t {
	case BooleanT:
		b, err := it.TryBool()
		if err != nil {
			return nil, err
		}
		return Boolean(b), nil
	case IntegerT:
		n, err := ToBigInteger(it)
		if err != nil {
			return nil, err
		}
		return NewBigInteger(n)
	case ByteStringT:
		b, err := it.Bytes()
		if err != nil {
			return nil, err
		}
		return NewByteString(b), nil
	case BufferT:
		b, err := it.Bytes()
		if err != nil {
			return nil, err
		}
		return NewBuffer(b), nil
	default:
		return nil, ErrInvalidType
	}
}

// DeepCopy produces a recursive copy of it, following Array/Struct
// contents (but not re-copying shared ByteString/Integer leaves, which
// are immutable), used when a value crosses into storage so later
// mutation of the in-VM item cannot alter the committed state.
func DeepCopy(it Item, seen map[Item]Item) Item {
	if seen == nil {
		seen = make(map[Item]Item)
	}
	if cp, ok := seen[it]; ok {
		return cp
	}
	switch v := it.(type) {
	case *Array:
		cp := &Array{value: make([]Item, len(v.value))}
		seen[it] = cp
		for i, e := range v.value {
			cp.value[i] = DeepCopy(e, seen)
		}
		return cp
	case *Struct:
		cp := &Struct{value: make([]Item, len(v.value))}
		seen[it] = cp
		for i, e := range v.value {
			cp.value[i] = DeepCopy(e, seen)
		}
		return cp
	case *Map:
		cp := NewMap()
		seen[it] = cp
		for _, e := range v.elems {
			_ = cp.Set(e.Key, DeepCopy(e.Value, seen))
		}
		return cp
	case *Buffer:
		b, _ := v.Bytes()
		return NewBuffer(b)
	default:
		return it
	}
}

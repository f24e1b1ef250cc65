package stackitem

import (
	"errors"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/encoding/bigint"
	"github.com/n3fullnode/neofull/pkg/io"
)

// MaxDeserialized bounds the total number of items a single
// Deserialize call may produce, mirroring the reference limit so a
// short malicious blob can't expand into an enormous item tree.
const MaxDeserialized = 2048

// ErrUnserializable is returned for item types with no binary
// representation (Pointer, InteropInterface).
var ErrUnserializable = errors.New("stackitem: unserializable type")

// Serialize encodes it into the canonical binary item encoding used
// by contract storage and the StdLib serialize/deserialize helpers:
// a type tag followed by a type-specific payload, recursing into
// compounds. The result is bounded by MaxSize.
func Serialize(it Item) ([]byte, error) {
	w := io.NewBufBinWriter()
	EncodeBinary(it, w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	b := w.Bytes()
	if len(b) > MaxSize {
		return nil, fmt.Errorf("%w: serialized item", ErrTooBig)
	}
	return b, nil
}

// EncodeBinary writes it to w in the binary item encoding. Cyclic
// compounds are rejected (a cycle has no finite encoding).
func EncodeBinary(it Item, w *io.BinWriter) {
	encodeItem(it, w, make(map[Item]bool))
}

func encodeItem(it Item, w *io.BinWriter, seen map[Item]bool) {
	if w.Err != nil {
		return
	}
	switch v := it.(type) {
	case Null:
		w.WriteB(byte(NullT))
	case Boolean:
		w.WriteB(byte(BooleanT))
		w.WriteBool(bool(v))
	case *Integer:
		b, err := bigint.ToBytes(v.value)
		if err != nil {
			w.Err = err
			return
		}
		w.WriteB(byte(IntegerT))
		w.WriteVarBytes(b)
	case ByteString:
		w.WriteB(byte(ByteStringT))
		w.WriteVarBytes(v)
	case *Buffer:
		w.WriteB(byte(BufferT))
		w.WriteVarBytes(v.value)
	case *Array, *Struct:
		if seen[it] {
			w.Err = errors.New("stackitem: cyclic item cannot be serialized")
			return
		}
		seen[it] = true
		elems := v.Value().([]Item)
		if v.Type() == ArrayT {
			w.WriteB(byte(ArrayT))
		} else {
			w.WriteB(byte(StructT))
		}
		w.WriteVarUint(uint64(len(elems)))
		for _, e := range elems {
			encodeItem(e, w, seen)
		}
		delete(seen, it)
	case *Map:
		if seen[it] {
			w.Err = errors.New("stackitem: cyclic item cannot be serialized")
			return
		}
		seen[it] = true
		w.WriteB(byte(MapT))
		w.WriteVarUint(uint64(len(v.elems)))
		for _, e := range v.elems {
			encodeItem(e.Key, w, seen)
			encodeItem(e.Value, w, seen)
		}
		delete(seen, it)
	default:
		w.Err = fmt.Errorf("%w: %s", ErrUnserializable, it.Type())
	}
}

// Deserialize decodes an item previously produced by Serialize.
func Deserialize(data []byte) (Item, error) {
	r := io.NewBinReaderFromBuf(data)
	count := MaxDeserialized
	it := decodeItem(r, &count)
	if r.Err != nil {
		return nil, r.Err
	}
	return it, nil
}

// DecodeBinary reads one item from r in the binary item encoding.
func DecodeBinary(r *io.BinReader) Item {
	count := MaxDeserialized
	return decodeItem(r, &count)
}

func decodeItem(r *io.BinReader, count *int) Item {
	if r.Err != nil {
		return nil
	}
	*count--
	if *count < 0 {
		r.Err = errors.New("stackitem: too many nested items")
		return nil
	}
	t := Type(r.ReadB())
	if r.Err != nil {
		return nil
	}
	switch t {
	case NullT:
		return NewNull()
	case BooleanT:
		return NewBool(r.ReadBool())
	case IntegerT:
		b := r.ReadVarBytes(bigint.MaxBytesLen)
		if r.Err != nil {
			return nil
		}
		return &Integer{value: bigint.FromBytes(b)}
	case ByteStringT:
		return NewByteString(r.ReadVarBytes(MaxSize))
	case BufferT:
		return NewBuffer(r.ReadVarBytes(MaxSize))
	case ArrayT, StructT:
		n := r.ReadVarUint()
		if n > MaxDeserialized {
			r.Err = errors.New("stackitem: item count exceeds limit")
			return nil
		}
		elems := make([]Item, 0, n)
		for i := uint64(0); i < n; i++ {
			elems = append(elems, decodeItem(r, count))
		}
		if r.Err != nil {
			return nil
		}
		if t == ArrayT {
			return NewArray(elems)
		}
		return NewStruct(elems)
	case MapT:
		n := r.ReadVarUint()
		if n > MaxDeserialized {
			r.Err = errors.New("stackitem: item count exceeds limit")
			return nil
		}
		m := NewMap()
		for i := uint64(0); i < n; i++ {
			k := decodeItem(r, count)
			v := decodeItem(r, count)
			if r.Err != nil {
				return nil
			}
			if err := m.Set(k, v); err != nil {
				r.Err = err
				return nil
			}
		}
		return m
	default:
		r.Err = fmt.Errorf("%w: tag 0x%02x", ErrUnserializable, byte(t))
		return nil
	}
}

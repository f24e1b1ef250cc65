package stackitem

// Type identifies the concrete variant of a stack Item.
type Type byte

// The stack item variants.
const (
	AnyT Type = iota
	PointerT
	BooleanT
	IntegerT
	ByteStringT
	BufferT
	ArrayT
	StructT
	MapT
	InteropT
	NullT
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case AnyT:
		return "Any"
	case PointerT:
		return "Pointer"
	case BooleanT:
		return "Boolean"
	case IntegerT:
		return "Integer"
	case ByteStringT:
		return "ByteString"
	case BufferT:
		return "Buffer"
	case ArrayT:
		return "Array"
	case StructT:
		return "Struct"
	case MapT:
		return "Map"
	case InteropT:
		return "InteropInterface"
	case NullT:
		return "Null"
	default:
		return "Unknown"
	}
}

// IsValid reports whether keys of this type may be used as a Map key:
// only primitive, immutable types are allowed.
func (t Type) IsValid() bool {
	switch t {
	case BooleanT, IntegerT, ByteStringT:
		return true
	default:
		return false
	}
}

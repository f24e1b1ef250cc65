// Package smartcontract defines the parameter type system contracts
// declare in their ABI (and RPC parameters are typed with).
package smartcontract

import (
	"fmt"
	"strings"
)

// ParamType is the type tag a contract method parameter or return
// value carries in its manifest ABI entry.
type ParamType byte

// The recognized parameter types.
const (
	AnyType ParamType = iota
	BoolType
	IntegerType
	ByteArrayType
	StringType
	Hash160Type
	Hash256Type
	PublicKeyType
	SignatureType
	ArrayType
	MapType
	InteropInterfaceType
	VoidType ParamType = 0xff
)

var paramTypeNames = map[ParamType]string{
	AnyType:              "Any",
	BoolType:             "Boolean",
	IntegerType:          "Integer",
	ByteArrayType:        "ByteArray",
	StringType:           "String",
	Hash160Type:          "Hash160",
	Hash256Type:          "Hash256",
	PublicKeyType:        "PublicKey",
	SignatureType:        "Signature",
	ArrayType:            "Array",
	MapType:              "Map",
	InteropInterfaceType: "InteropInterface",
	VoidType:             "Void",
}

// String implements fmt.Stringer.
func (t ParamType) String() string {
	if name, ok := paramTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ParamType(%d)", byte(t))
}

// ParseParamType parses the case-insensitive ABI type name used in
// manifest JSON and CLI parameter declarations.
func ParseParamType(s string) (ParamType, error) {
	switch strings.ToLower(s) {
	case "any":
		return AnyType, nil
	case "bool", "boolean":
		return BoolType, nil
	case "int", "integer":
		return IntegerType, nil
	case "bytes", "bytearray", "bytestring":
		return ByteArrayType, nil
	case "key", "publickey":
		return PublicKeyType, nil
	case "string":
		return StringType, nil
	case "hash160":
		return Hash160Type, nil
	case "hash256":
		return Hash256Type, nil
	case "signature":
		return SignatureType, nil
	case "array":
		return ArrayType, nil
	case "map":
		return MapType, nil
	case "interopinterface":
		return InteropInterfaceType, nil
	case "void":
		return VoidType, nil
	default:
		return 0, fmt.Errorf("smartcontract: unknown parameter type %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (t ParamType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *ParamType) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseParamType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

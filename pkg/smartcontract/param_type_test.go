package smartcontract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseParamType(t *testing.T) {
	cases := []struct {
		in  string
		out ParamType
		err bool
	}{
		{"signature", SignatureType, false},
		{"Signature", SignatureType, false},
		{"bool", BoolType, false},
		{"int", IntegerType, false},
		{"hash160", Hash160Type, false},
		{"hash256", Hash256Type, false},
		{"bytes", ByteArrayType, false},
		{"key", PublicKeyType, false},
		{"string", StringType, false},
		{"array", ArrayType, false},
		{"map", MapType, false},
		{"interopinterface", InteropInterfaceType, false},
		{"void", VoidType, false},
		{"qwerty", 0, true},
	}
	for _, c := range cases {
		got, err := ParseParamType(c.in)
		if c.err {
			assert.Error(t, err, c.in)
			continue
		}
		assert.NoError(t, err, c.in)
		assert.Equal(t, c.out, got, c.in)
	}
}

func TestParamTypeJSONRoundtrip(t *testing.T) {
	for _, typ := range []ParamType{AnyType, BoolType, IntegerType, Hash160Type, VoidType} {
		data, err := typ.MarshalJSON()
		assert.NoError(t, err)
		var got ParamType
		assert.NoError(t, got.UnmarshalJSON(data))
		assert.Equal(t, typ, got)
	}
}

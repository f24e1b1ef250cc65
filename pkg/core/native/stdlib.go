package native

import (
	"encoding/base64"
	"errors"
	"math/big"

	mrbase58 "github.com/mr-tron/base58"
	ojson "github.com/nspcc-dev/go-ordered-json"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/encoding/base58"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const stdLibID = -2

// stdLib is the StdLib native contract: number/string conversion and
// the base58/base64/JSON codecs deployed contracts call into instead
// of reimplementing them in NeoVM bytecode.
type stdLib struct {
	md *ContractMD
}

func newStdLib() *stdLib {
	c := &stdLib{md: NewContractMD("StdLib", stdLibID)}
	c.md.AddMethod(MethodDesc{Name: "itoa", Func: c.itoa, ParamCount: 2, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "atoi", Func: c.atoi, ParamCount: 2, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "base58Encode", Func: c.base58Encode, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "base58Decode", Func: c.base58Decode, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "base58CheckEncode", Func: c.base58CheckEncode, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "base58CheckDecode", Func: c.base58CheckDecode, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "base64Encode", Func: c.base64Encode, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "base64Decode", Func: c.base64Decode, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "jsonSerialize", Func: c.jsonSerialize, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "jsonDeserialize", Func: c.jsonDeserialize, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "serialize", Func: c.serialize, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "deserialize", Func: c.deserialize, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	return c
}

func (c *stdLib) Metadata() *ContractMD { return c.md }
func (c *stdLib) OnPersist(ic *interop.Context) error { return nil }
func (c *stdLib) PostPersist(ic *interop.Context) error { return nil }

func (c *stdLib) itoa(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	n, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	base, err := stackitem.ToBigInteger(args[1])
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString([]byte(n.Text(int(base.Int64())))), nil
}

func (c *stdLib) atoi(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	s, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	base, err := stackitem.ToBigInteger(args[1])
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(string(s), int(base.Int64()))
	if !ok {
		return nil, errors.New("stdlib: malformed integer literal")
	}
	return stackitem.NewBigInteger(n)
}

func (c *stdLib) base58Encode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString([]byte(mrbase58.Encode(b))), nil
}

func (c *stdLib) base58Decode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	out, err := mrbase58.Decode(string(b))
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString(out), nil
}

func (c *stdLib) base58CheckEncode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("stdlib: empty payload")
	}
	return stackitem.NewByteString([]byte(base58.CheckEncode(b[0], b[1:]))), nil
}

func (c *stdLib) base58CheckDecode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	s, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	version, payload, err := base58.CheckDecode(string(s))
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString(append([]byte{version}, payload...)), nil
}

func (c *stdLib) base64Encode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString([]byte(base64.StdEncoding.EncodeToString(b))), nil
}

func (c *stdLib) base64Decode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	s, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	out, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString(out), nil
}

// itemToGo converts a stack item into a plain Go value jsonSerialize
// can hand to the order-preserving encoder.
func itemToGo(it stackitem.Item) (interface{}, error) {
	switch v := it.(type) {
	case stackitem.Boolean:
		return bool(v), nil
	case *stackitem.Integer:
		return v.Big().String(), nil
	case stackitem.ByteString:
		return string(v), nil
	case *stackitem.Array:
		arr := v.Value().([]stackitem.Item)
		out := make([]interface{}, len(arr))
		for i, el := range arr {
			g, err := itemToGo(el)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case stackitem.Null:
		return nil, nil
	default:
		return nil, errors.New("stdlib: unsupported type for json serialization")
	}
}

func (c *stdLib) jsonSerialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	v, err := itemToGo(args[0])
	if err != nil {
		return nil, err
	}
	b, err := ojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString(b), nil
}

func (c *stdLib) jsonDeserialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := ojson.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return goToItem(v)
}

// serialize/deserialize expose the VM's binary item encoding, the
// codec contracts use to pack structured values into single storage
// entries.
func (c *stdLib) serialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.Serialize(args[0])
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString(b), nil
}

func (c *stdLib) deserialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	return stackitem.Deserialize(b)
}

func goToItem(v interface{}) (stackitem.Item, error) {
	switch val := v.(type) {
	case nil:
		return stackitem.NewNull(), nil
	case bool:
		return stackitem.NewBool(val), nil
	case string:
		return stackitem.NewByteString([]byte(val)), nil
	case float64:
		return stackitem.NewInteger(int64(val)), nil
	case []interface{}:
		items := make([]stackitem.Item, len(val))
		for i, el := range val {
			it, err := goToItem(el)
			if err != nil {
				return nil, err
			}
			items[i] = it
		}
		return stackitem.NewArray(items), nil
	default:
		return nil, errors.New("stdlib: unsupported json value")
	}
}

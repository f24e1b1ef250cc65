package native

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/twmb/murmur3"
	"golang.org/x/crypto/sha3"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const cryptoLibID = -3

// cryptoLib is the CryptoLib native contract: the pure hashing and
// signature-verification helpers deployed contracts reach for instead
// of re-implementing crypto in NeoVM bytecode.
type cryptoLib struct {
	md *ContractMD
}

func newCryptoLib() *cryptoLib {
	c := &cryptoLib{md: NewContractMD("CryptoLib", cryptoLibID)}
	c.md.AddMethod(MethodDesc{Name: "sha256", Func: c.sha256, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "ripemd160", Func: c.ripemd160, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "verifyWithECDsaSecp256r1", Func: c.verifySecp256r1, ParamCount: 3, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "verifyWithECDsaSecp256k1", Func: c.verifySecp256k1, ParamCount: 3, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "verifyWithEd25519", Func: c.verifyEd25519, ParamCount: 3, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "murmur32", Func: c.murmur32, ParamCount: 2, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "keccak256", Func: c.keccak256, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "bls12381Serialize", Func: c.bls12381Serialize, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "bls12381Deserialize", Func: c.bls12381Deserialize, ParamCount: 1, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "bls12381Equal", Func: c.bls12381Equal, ParamCount: 2, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "bls12381Add", Func: c.bls12381Add, ParamCount: 2, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "bls12381Mul", Func: c.bls12381Mul, ParamCount: 3, RequiredFlag: callflag.None, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "bls12381Pairing", Func: c.bls12381Pairing, ParamCount: 2, RequiredFlag: callflag.None, ReturnsValue: true})
	return c
}

func (c *cryptoLib) Metadata() *ContractMD { return c.md }
func (c *cryptoLib) OnPersist(ic *interop.Context) error { return nil }
func (c *cryptoLib) PostPersist(ic *interop.Context) error { return nil }

func (c *cryptoLib) sha256(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h := hash.Sha256(b)
	return stackitem.NewByteString(h.BytesBE()), nil
}

func (c *cryptoLib) ripemd160(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	h := hash.RipeMD160(b)
	return stackitem.NewByteString(h.BytesBE()), nil
}

func (c *cryptoLib) verify(args []stackitem.Item, curve keys.Curve) (stackitem.Item, error) {
	msg, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	pubBytes, err := stackitem.ToByteArray(args[1])
	if err != nil {
		return nil, err
	}
	sig, err := stackitem.ToByteArray(args[2])
	if err != nil {
		return nil, err
	}
	pub, err := keys.DecodeBytes(pubBytes, curve)
	if err != nil {
		return stackitem.NewBool(false), nil
	}
	return stackitem.NewBool(pub.Verify(msg, sig)), nil
}

func (c *cryptoLib) verifySecp256r1(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return c.verify(args, keys.Secp256r1)
}

func (c *cryptoLib) verifySecp256k1(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return c.verify(args, keys.Secp256k1)
}

// errHardforkInactive is returned for methods that only become
// callable once their activation height has been reached; invoking
// them earlier must fault the calling script, not silently succeed.
var errHardforkInactive = errors.New("cryptolib: method is not active yet")

func (c *cryptoLib) verifyEd25519(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if !ic.IsHardforkEnabled(config.HFBasilisk) {
		return nil, errHardforkInactive
	}
	msg, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	pub, err := stackitem.ToByteArray(args[1])
	if err != nil {
		return nil, err
	}
	sig, err := stackitem.ToByteArray(args[2])
	if err != nil {
		return nil, err
	}
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return stackitem.NewBool(false), nil
	}
	return stackitem.NewBool(ed25519.Verify(ed25519.PublicKey(pub), msg, sig)), nil
}

// murmur32 returns the 32-bit Murmur3 hash of data under the given
// seed, little-endian, as contracts expect for cheap non-cryptographic
// bucketing.
func (c *cryptoLib) murmur32(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	data, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	seed, err := stackitem.ToBigInteger(args[1])
	if err != nil {
		return nil, err
	}
	res := make([]byte, 4)
	binary.LittleEndian.PutUint32(res, murmur3.SeedSum32(uint32(seed.Uint64()), data))
	return stackitem.NewByteString(res), nil
}

func (c *cryptoLib) keccak256(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	if !ic.IsHardforkEnabled(config.HFBasilisk) {
		return nil, errHardforkInactive
	}
	b, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(b)
	return stackitem.NewByteString(d.Sum(nil)), nil
}

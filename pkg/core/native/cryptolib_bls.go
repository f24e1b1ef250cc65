package native

import (
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// blsPoint is the opaque InteropInterface value the bls12381* methods
// pass between each other. point is one of *bls12381.G1Affine,
// *bls12381.G2Affine or *bls12381.GT.
type blsPoint struct {
	point interface{}
}

// Bytes returns the point's compressed encoding (48 bytes for G1,
// 96 for G2, 576 for GT).
func (p blsPoint) Bytes() ([]byte, error) {
	switch x := p.point.(type) {
	case *bls12381.G1Affine:
		b := x.Bytes()
		return b[:], nil
	case *bls12381.G2Affine:
		b := x.Bytes()
		return b[:], nil
	case *bls12381.GT:
		b := x.Bytes()
		return b[:], nil
	default:
		return nil, errors.New("unknown bls12381 point type")
	}
}

// blsPointFromBytes decides the point's group by the encoding length.
func blsPointFromBytes(buf []byte) (blsPoint, error) {
	switch len(buf) {
	case bls12381.SizeOfG1AffineCompressed:
		g1 := new(bls12381.G1Affine)
		if _, err := g1.SetBytes(buf); err != nil {
			return blsPoint{}, errors.Wrap(err, "invalid G1 point")
		}
		return blsPoint{point: g1}, nil
	case bls12381.SizeOfG2AffineCompressed:
		g2 := new(bls12381.G2Affine)
		if _, err := g2.SetBytes(buf); err != nil {
			return blsPoint{}, errors.Wrap(err, "invalid G2 point")
		}
		return blsPoint{point: g2}, nil
	case bls12381.SizeOfGT:
		gt := new(bls12381.GT)
		if err := gt.SetBytes(buf); err != nil {
			return blsPoint{}, errors.Wrap(err, "invalid GT point")
		}
		return blsPoint{point: gt}, nil
	default:
		return blsPoint{}, errors.Errorf("invalid bls12381 point length %d", len(buf))
	}
}

func blsPointArg(it stackitem.Item) (blsPoint, error) {
	ii, ok := it.(*stackitem.Interop)
	if !ok {
		return blsPoint{}, errors.New("bls12381 point must be an interop item")
	}
	p, ok := ii.Value().(blsPoint)
	if !ok {
		return blsPoint{}, errors.New("interop item does not hold a bls12381 point")
	}
	return p, nil
}

func (c *cryptoLib) bls12381Serialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	p, err := blsPointArg(args[0])
	if err != nil {
		return nil, err
	}
	b, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteString(b), nil
}

func (c *cryptoLib) bls12381Deserialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	buf, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	p, err := blsPointFromBytes(buf)
	if err != nil {
		return nil, err
	}
	return stackitem.NewInterop(p), nil
}

func (c *cryptoLib) bls12381Equal(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	a, err := blsPointArg(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blsPointArg(args[1])
	if err != nil {
		return nil, err
	}
	switch x := a.point.(type) {
	case *bls12381.G1Affine:
		y, ok := b.point.(*bls12381.G1Affine)
		if !ok {
			return nil, errors.New("bls12381 equal requires points of one group")
		}
		return stackitem.NewBool(x.Equal(y)), nil
	case *bls12381.G2Affine:
		y, ok := b.point.(*bls12381.G2Affine)
		if !ok {
			return nil, errors.New("bls12381 equal requires points of one group")
		}
		return stackitem.NewBool(x.Equal(y)), nil
	case *bls12381.GT:
		y, ok := b.point.(*bls12381.GT)
		if !ok {
			return nil, errors.New("bls12381 equal requires points of one group")
		}
		return stackitem.NewBool(x.Equal(y)), nil
	default:
		return nil, errors.New("unknown bls12381 point type")
	}
}

func (c *cryptoLib) bls12381Add(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	a, err := blsPointArg(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blsPointArg(args[1])
	if err != nil {
		return nil, err
	}
	var res interface{}
	switch x := a.point.(type) {
	case *bls12381.G1Affine:
		y, ok := b.point.(*bls12381.G1Affine)
		if !ok {
			return nil, errors.New("bls12381 add requires points of one group")
		}
		j := new(bls12381.G1Jac).FromAffine(x)
		j.AddMixed(y)
		res = new(bls12381.G1Affine).FromJacobian(j)
	case *bls12381.G2Affine:
		y, ok := b.point.(*bls12381.G2Affine)
		if !ok {
			return nil, errors.New("bls12381 add requires points of one group")
		}
		j := new(bls12381.G2Jac).FromAffine(x)
		j.AddAssign(new(bls12381.G2Jac).FromAffine(y))
		res = new(bls12381.G2Affine).FromJacobian(j)
	case *bls12381.GT:
		y, ok := b.point.(*bls12381.GT)
		if !ok {
			return nil, errors.New("bls12381 add requires points of one group")
		}
		res = new(bls12381.GT).Mul(x, y)
	default:
		return nil, errors.New("unknown bls12381 point type")
	}
	return stackitem.NewInterop(blsPoint{point: res}), nil
}

// blsScalar decodes a 32-byte little-endian field element, reduced
// modulo the BLS12-381 scalar field order, negated when neg is set.
func blsScalar(le []byte, neg bool) (*big.Int, error) {
	if len(le) != fr.Bytes {
		return nil, errors.Errorf("bls12381 scalar must be %d bytes", fr.Bytes)
	}
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	el := new(fr.Element).SetBigInt(new(big.Int).SetBytes(be))
	if neg {
		el.Neg(el)
	}
	return el.BigInt(new(big.Int)), nil
}

func (c *cryptoLib) bls12381Mul(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	a, err := blsPointArg(args[0])
	if err != nil {
		return nil, err
	}
	mul, err := stackitem.ToByteArray(args[1])
	if err != nil {
		return nil, err
	}
	neg, err := args[2].TryBool()
	if err != nil {
		return nil, err
	}
	alpha, err := blsScalar(mul, neg)
	if err != nil {
		return nil, err
	}
	var res interface{}
	switch x := a.point.(type) {
	case *bls12381.G1Affine:
		res = new(bls12381.G1Affine).ScalarMultiplication(x, alpha)
	case *bls12381.G2Affine:
		res = new(bls12381.G2Affine).ScalarMultiplication(x, alpha)
	case *bls12381.GT:
		res = new(bls12381.GT).Exp(*x, alpha)
	default:
		return nil, errors.New("unknown bls12381 point type")
	}
	return stackitem.NewInterop(blsPoint{point: res}), nil
}

func (c *cryptoLib) bls12381Pairing(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	a, err := blsPointArg(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blsPointArg(args[1])
	if err != nil {
		return nil, err
	}
	g1, ok := a.point.(*bls12381.G1Affine)
	if !ok {
		return nil, errors.New("bls12381 pairing requires a G1 point first")
	}
	g2, ok := b.point.(*bls12381.G2Affine)
	if !ok {
		return nil, errors.New("bls12381 pairing requires a G2 point second")
	}
	gt, err := bls12381.Pair([]bls12381.G1Affine{*g1}, []bls12381.G2Affine{*g2})
	if err != nil {
		return nil, errors.Wrap(err, "bls12381 pairing")
	}
	return stackitem.NewInterop(blsPoint{point: &gt}), nil
}

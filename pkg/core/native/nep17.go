package native

import (
	"errors"
	"math/big"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

// NEP-17 storage key prefixes, shared by NEO and GAS: balances are
// keyed by a fixed prefix plus the account script hash, total supply
// by a single fixed key.
var (
	nep17BalancePrefix = []byte{20}
	nep17SupplyKey     = []byte{11}
)

var errInsufficientBalance = errors.New("nep17: insufficient balance")
var errNegativeAmount = errors.New("nep17: amount must not be negative")

func balanceKey(h util.Uint160) []byte {
	return append(append([]byte{}, nep17BalancePrefix...), h.BytesBE()...)
}

func nep17BalanceOf(ic *interop.Context, id int32, h util.Uint160) (*big.Int, error) {
	return ic.DAO.GetBigInt(id, balanceKey(h))
}

func nep17TotalSupply(ic *interop.Context, id int32) (*big.Int, error) {
	return ic.DAO.GetBigInt(id, nep17SupplyKey)
}

// nep17Mint credits amount to h and bumps total supply, used for GAS
// network-fee distribution and the NEO genesis allocation.
func nep17Mint(ic *interop.Context, id int32, h util.Uint160, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errNegativeAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := nep17BalanceOf(ic, id, h)
	if err != nil {
		return err
	}
	if err := ic.DAO.PutBigInt(id, balanceKey(h), new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	supply, err := nep17TotalSupply(ic, id)
	if err != nil {
		return err
	}
	return ic.DAO.PutBigInt(id, nep17SupplyKey, new(big.Int).Add(supply, amount))
}

// nep17Burn debits amount from h and shrinks total supply, used to
// consume GAS for system/network fees.
func nep17Burn(ic *interop.Context, id int32, h util.Uint160, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errNegativeAmount
	}
	bal, err := nep17BalanceOf(ic, id, h)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	if err := ic.DAO.PutBigInt(id, balanceKey(h), new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	supply, err := nep17TotalSupply(ic, id)
	if err != nil {
		return err
	}
	return ic.DAO.PutBigInt(id, nep17SupplyKey, new(big.Int).Sub(supply, amount))
}

// nep17Transfer moves amount from "from" to "to", requiring from's
// witness to be satisfied unless from == to (a no-op transfer is still
// a valid way to trigger balance-change hooks without re-proving
// ownership).
func nep17Transfer(ic *interop.Context, id int32, contract util.Uint160, from, to util.Uint160, amount *big.Int) (bool, error) {
	if amount.Sign() < 0 {
		return false, errNegativeAmount
	}
	if !from.Equals(to) && !ic.CheckWitness(from) {
		return false, nil
	}
	if amount.Sign() == 0 {
		postTransferNotify(ic, contract, from, to, amount)
		return true, nil
	}
	fromBal, err := nep17BalanceOf(ic, id, from)
	if err != nil {
		return false, err
	}
	if fromBal.Cmp(amount) < 0 {
		return false, nil
	}
	if err := ic.DAO.PutBigInt(id, balanceKey(from), new(big.Int).Sub(fromBal, amount)); err != nil {
		return false, err
	}
	toBal, err := nep17BalanceOf(ic, id, to)
	if err != nil {
		return false, err
	}
	if err := ic.DAO.PutBigInt(id, balanceKey(to), new(big.Int).Add(toBal, amount)); err != nil {
		return false, err
	}
	postTransferNotify(ic, contract, from, to, amount)
	return true, nil
}

// postTransferNotify emits the NEP-17 Transfer event every balance
// movement must publish.
func postTransferNotify(ic *interop.Context, contract util.Uint160, from, to util.Uint160, amount *big.Int) {
	amt, err := stackitem.NewBigInteger(amount)
	if err != nil {
		return
	}
	ic.Notify(contract, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteString(from.BytesLE()),
		stackitem.NewByteString(to.BytesLE()),
		amt,
	}))
}

// argToUint160 decodes a 20-byte little-endian script hash argument,
// the calling convention every NEP-17 account parameter uses.
func argToUint160(it stackitem.Item) (util.Uint160, error) {
	b, err := stackitem.ToByteArray(it)
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesLE(b)
}

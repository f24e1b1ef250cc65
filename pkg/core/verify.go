package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/native"
	"github.com/n3fullnode/neofull/pkg/core/native/noderoles"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/smartcontract/trigger"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm"
	"github.com/n3fullnode/neofull/pkg/vm/vmstate"
)

// verificationGasFactor is how much of a transaction's NetworkFee may
// be spent running witness scripts, after FeePerByte*Size has been
// deducted for inclusion itself.
const verificationGasFactor = 1

var (
	errScriptMismatch  = errors.New("verify: witness does not match its signer account")
	errWitnessFault    = errors.New("verify: witness script faulted")
	errWitnessNotTrue  = errors.New("verify: witness script did not leave a truthy result")
	errNotValidBefore  = errors.New("verify: transaction is not yet valid at this height")
	errValidUntilPast  = errors.New("verify: transaction has expired")
	errValidUntilFar   = errors.New("verify: ValidUntilBlock exceeds the configured increment limit")
	errAccountBlocked  = errors.New("verify: a signer account is blocked by policy")
	errOracleRole      = errors.New("verify: OracleResponse sender is not a designated Oracle node")
	errConflictsWithTx = errors.New("verify: transaction conflicts with one already on chain")
	errNetworkFeeLow   = errors.New("verify: network fee does not cover verification cost")
)

// verificationRegistry is the interop table witness scripts execute
// under: only the signature primitives, none of the storage/runtime
// surface a deployed contract's entry script gets: witness execution
// is scoped down to CheckSig/CheckMultisig and nothing that touches
// the DAO.
func verificationRegistry() *vm.InteropRegistry {
	reg := vm.NewInteropRegistry()
	reg.Register(&vm.InteropHandler{
		Name: "System.Crypto.CheckSig", RequiredFlag: callflag.None, Price: 1 << 15,
		Func: checkSig,
	})
	reg.Register(&vm.InteropHandler{
		Name: "System.Crypto.CheckMultisig", RequiredFlag: callflag.None, Price: 1 << 16,
		Func: checkMultisig,
	})
	return reg
}

// verifyWitnessScript runs one signer's (invocation, verification)
// script pair against signingHash, capped to gasLimit, and reports the
// gas it consumed. Invocation and verification share one evaluation
// stack: invocation pushes the verification script's arguments (e.g. a
// signature), then control falls through into verification, matching
// how a compiled multisig/single-sig account script expects to run.
func verifyWitnessScript(w *transaction.Witness, signingHash []byte, gasLimit int64) (int64, error) {
	v := vm.New(verificationRegistry())
	v.GasLimit = gasLimit
	v.Trigger = trigger.Verification
	v.CheckedHash = signingHash
	script := make([]byte, 0, len(w.InvocationScript)+len(w.VerificationScript))
	script = append(script, w.InvocationScript...)
	script = append(script, w.VerificationScript...)
	v.Load(script)
	if err := v.Run(); err != nil {
		return v.GasConsumed, fmt.Errorf("%w: %v", errWitnessFault, err)
	}
	if v.State != vmstate.HaltState {
		return v.GasConsumed, errWitnessFault
	}
	res, err := v.Estack().Pop()
	if err != nil {
		return v.GasConsumed, errWitnessNotTrue
	}
	ok, err := res.TryBool()
	if err != nil || !ok {
		return v.GasConsumed, errWitnessNotTrue
	}
	return v.GasConsumed, nil
}

// genericWitnessGasLimit bounds a witness check that has no fee of
// its own to cap it, such as a consensus payload's signature or a
// block header's multisig witness (see headerWitnessGasLimit, the
// same value under a different name for blockchain.go's own use).
const genericWitnessGasLimit = 10_0000_0000

// VerifyGenericWitness runs a single-witness check with no associated
// fee budget: used for consensus payload signatures and block header
// witnesses, the cases outside the per-transaction NetworkFee
// accounting VerifyWitnesses performs. Bound to pkg/consensus via
// consensus.BindWitnessVerifier so that package never has to import
// pkg/core directly.
func VerifyGenericWitness(w *transaction.Witness, signingHash []byte) bool {
	_, err := verifyWitnessScript(w, signingHash, genericWitnessGasLimit)
	return err == nil
}

// VerifyWitnesses runs every signer's witness against tx's signing
// hash, capping total gas spent at the portion of NetworkFee left
// after byte-size inclusion cost, and requires every one to pass.
// Shared by mempool admission and block application so a transaction
// is never applied with an unverified signature.
func VerifyWitnesses(tx *transaction.Transaction, feePerByte int64) error {
	if len(tx.Witnesses) != len(tx.Signers) {
		return fmt.Errorf("verify: %d witnesses for %d signers", len(tx.Witnesses), len(tx.Signers))
	}
	sizeFee := feePerByte * int64(tx.Size())
	gasBudget := (tx.NetworkFee - sizeFee) * verificationGasFactor
	if gasBudget < 0 {
		return errNetworkFeeLow
	}
	signingHash := tx.Hash().BytesBE()
	for i := range tx.Signers {
		w := &tx.Witnesses[i]
		expected := tx.Signers[i].Account
		if len(w.VerificationScript) != 0 && w.ScriptHash() != expected {
			return errScriptMismatch
		}
		consumed, err := verifyWitnessScript(w, signingHash, gasBudget)
		if err != nil {
			return fmt.Errorf("verify: signer %s: %w", expected.StringLE(), err)
		}
		gasBudget -= consumed
		if gasBudget < 0 {
			return errNetworkFeeLow
		}
	}
	return nil
}

// VerifyStateIndependent checks everything about tx that does not
// require chain state: structural bounds (already enforced by
// Transaction.DecodeBinary), the ValidUntilBlock window, and witness
// signatures. VerifyTx runs it on every call, so the mempool
// re-verification after each new block repeats it as well.
func VerifyStateIndependent(tx *transaction.Transaction, currentHeight, maxValidUntilBlockIncrement uint32, feePerByte int64) error {
	if tx.ValidUntilBlock <= currentHeight {
		return errValidUntilPast
	}
	if tx.ValidUntilBlock > currentHeight+maxValidUntilBlockIncrement {
		return errValidUntilFar
	}
	for _, a := range tx.Attributes {
		if nvb, ok := a.Value.(*transaction.NotValidBefore); ok && nvb.Height > currentHeight {
			return errNotValidBefore
		}
	}
	return VerifyWitnesses(tx, feePerByte)
}

// VerifyStateDependent checks everything about tx that depends on
// current chain state: blocked accounts, the committee signer a
// HighPriority attribute needs, and the Oracle-role membership
// an OracleResponse attribute's declared responder must currently
// hold. ic must carry a DAO snapshot reflecting the state tx would be
// applied against (the per-block snapshot during block application, or
// the chain tip's committed state during mempool admission).
func VerifyStateDependent(ic *interop.Context, contracts *native.Contracts, tx *transaction.Transaction, txExists func(util.Uint256) bool) error {
	if txExists != nil {
		for _, a := range tx.Attributes {
			c, ok := a.Value.(*transaction.Conflicts)
			if ok && txExists(c.Hash) {
				return errConflictsWithTx
			}
		}
	}
	for _, s := range tx.Signers {
		blocked, err := contracts.Policy().IsAccountBlocked(ic, s.Account)
		if err != nil {
			return err
		}
		if blocked {
			return errAccountBlocked
		}
	}
	if tx.HasAttribute(transaction.HighPriorityT) {
		committee, err := contracts.NEO().CommitteeAddress(ic)
		if err != nil {
			return err
		}
		if !tx.HasSigner(committee) {
			return fmt.Errorf("verify: HighPriority attribute without a committee signer")
		}
	}
	for _, a := range tx.Attributes {
		resp, ok := a.Value.(*transaction.OracleResponse)
		if !ok {
			continue
		}
		if _, err := contracts.Oracle().GetRequest(ic, resp.ID); err != nil {
			return fmt.Errorf("verify: oracle response references unknown request: %w", err)
		}
		nodes := contracts.Designate().AccountsByRole(ic, noderoles.Oracle, ic.Block.Index)
		if len(nodes) == 0 {
			return errOracleRole
		}
		witnessed := false
		for _, n := range nodes {
			if tx.HasSigner(n) {
				witnessed = true
				break
			}
		}
		if !witnessed {
			return errOracleRole
		}
	}
	return nil
}

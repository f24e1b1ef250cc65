package transaction

import (
	"fmt"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// MaxSignerRules bounds the WitnessRules per signer, mirroring
// maxConditionSubitems's role for nesting.
const MaxSignerRules = 16

// Signer declares one account that must witness a transaction and the
// scope its witness is restricted to.
type Signer struct {
	Account          util.Uint160
	Scopes           WitnessScope
	AllowedContracts []util.Uint160
	AllowedGroups    [][33]byte
	Rules            []WitnessRule
}

// EncodeBinary implements io.Serializable.
func (s *Signer) EncodeBinary(bw *io.BinWriter) {
	bw.WriteBytes(s.Account[:])
	bw.WriteB(byte(s.Scopes))
	if s.Scopes&CustomContracts != 0 {
		bw.WriteVarUint(uint64(len(s.AllowedContracts)))
		for _, h := range s.AllowedContracts {
			bw.WriteBytes(h[:])
		}
	}
	if s.Scopes&CustomGroups != 0 {
		bw.WriteVarUint(uint64(len(s.AllowedGroups)))
		for _, g := range s.AllowedGroups {
			bw.WriteBytes(g[:])
		}
	}
	if s.Scopes&WitnessRules != 0 {
		bw.WriteVarUint(uint64(len(s.Rules)))
		for i := range s.Rules {
			s.Rules[i].EncodeBinary(bw)
		}
	}
}

// DecodeBinary implements io.Serializable.
func (s *Signer) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(s.Account[:])
	scope, err := ScopesFromByte(br.ReadB())
	if err != nil {
		br.Err = err
		return
	}
	s.Scopes = scope
	if s.Scopes&CustomContracts != 0 {
		n := br.ReadVarUint()
		if n > MaxSignerRules {
			br.Err = fmt.Errorf("transaction: too many allowed contracts (%d)", n)
			return
		}
		s.AllowedContracts = make([]util.Uint160, n)
		for i := range s.AllowedContracts {
			br.ReadBytes(s.AllowedContracts[i][:])
		}
	}
	if s.Scopes&CustomGroups != 0 {
		n := br.ReadVarUint()
		if n > MaxSignerRules {
			br.Err = fmt.Errorf("transaction: too many allowed groups (%d)", n)
			return
		}
		s.AllowedGroups = make([][33]byte, n)
		for i := range s.AllowedGroups {
			br.ReadBytes(s.AllowedGroups[i][:])
		}
	}
	if s.Scopes&WitnessRules != 0 {
		n := br.ReadVarUint()
		if n > MaxSignerRules {
			br.Err = fmt.Errorf("transaction: too many witness rules (%d)", n)
			return
		}
		s.Rules = make([]WitnessRule, n)
		for i := range s.Rules {
			s.Rules[i].DecodeBinary(br)
		}
	}
}

// AppliesToScope reports whether this signer's witness is valid for
// an invocation of the contract described by ctx, evaluating
// CustomContracts/CustomGroups/Rules in declaration order (the last
// matching rule wins).
func (s *Signer) AppliesToScope(ctx *MatchContext, target util.Uint160, targetGroups [][33]byte) bool {
	if s.Scopes&Global != 0 {
		return true
	}
	if s.Scopes&CalledByEntry != 0 && ctx.Match(target) {
		return true
	}
	if s.Scopes&CustomContracts != 0 {
		for _, h := range s.AllowedContracts {
			if h == target {
				return true
			}
		}
	}
	if s.Scopes&CustomGroups != 0 {
		for _, g := range s.AllowedGroups {
			for _, tg := range targetGroups {
				if g == tg {
					return true
				}
			}
		}
	}
	if s.Scopes&WitnessRules != 0 {
		allowed := false
		for i := range s.Rules {
			if s.Rules[i].Condition.Match(ctx) {
				allowed = s.Rules[i].Action == WitnessRuleAllow
			}
		}
		return allowed
	}
	return false
}

// Match is a convenience wrapper so MatchContext can be used both as
// a ConditionCalledByEntry predicate and directly from Signer.
func (ctx *MatchContext) Match(target util.Uint160) bool {
	return ctx.CallingScriptHash == nil || *ctx.CallingScriptHash == ctx.EntryScriptHash
}

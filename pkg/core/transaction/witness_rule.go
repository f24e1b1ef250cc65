package transaction

import (
	"fmt"

	"github.com/n3fullnode/neofull/pkg/io"
)

// WitnessRuleAction is the outcome applied when a WitnessRule's
// condition matches: Allow makes the witness valid for that scope,
// Deny makes it invalid even if an earlier rule allowed it.
type WitnessRuleAction byte

const (
	WitnessRuleDeny  WitnessRuleAction = 0
	WitnessRuleAllow WitnessRuleAction = 1
)

func (a WitnessRuleAction) String() string {
	if a == WitnessRuleAllow {
		return "Allow"
	}
	return "Deny"
}

// WitnessRule is one entry of a Signer's Rules scope: an action
// gated by a predicate tree evaluated against the calling contract.
type WitnessRule struct {
	Action    WitnessRuleAction
	Condition WitnessCondition
}

// EncodeBinary implements io.Serializable.
func (r *WitnessRule) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(r.Action))
	r.Condition.EncodeBinary(bw)
}

// DecodeBinary implements io.Serializable.
func (r *WitnessRule) DecodeBinary(br *io.BinReader) {
	action := WitnessRuleAction(br.ReadB())
	if action != WitnessRuleAllow && action != WitnessRuleDeny {
		br.Err = fmt.Errorf("transaction: invalid witness rule action 0x%x", byte(action))
		return
	}
	r.Action = action
	r.Condition = DecodeBinaryCondition(br, MaxNestingDepth)
}

// ToJSON renders the RPC-facing representation.
func (r *WitnessRule) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"action":    r.Action.String(),
		"condition": r.Condition.ToJSON(),
	}
}

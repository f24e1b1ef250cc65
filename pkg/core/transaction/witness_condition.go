package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// WitnessConditionType tags the concrete WitnessCondition variant on
// the wire, one byte.
type WitnessConditionType byte

const (
	ConditionBooleanType           WitnessConditionType = 0x00
	ConditionNotType                WitnessConditionType = 0x01
	ConditionAndType                WitnessConditionType = 0x02
	ConditionOrType                 WitnessConditionType = 0x03
	ConditionScriptHashType         WitnessConditionType = 0x18
	ConditionGroupType              WitnessConditionType = 0x19
	ConditionCalledByEntryType      WitnessConditionType = 0x20
	ConditionCalledByContractType   WitnessConditionType = 0x28
	ConditionCalledByGroupType      WitnessConditionType = 0x29
)

// maxConditionSubitems bounds the fan-out of And/Or nodes and the
// nesting depth walked by MaxNestingDepth, preventing a maliciously
// deep condition tree from blowing the verification stack.
const maxConditionSubitems = 16

// MaxNestingDepth is the deepest a WitnessCondition tree may nest.
const MaxNestingDepth = 2

// MatchContext is the subset of execution state a WitnessCondition
// needs to evaluate: the entry script hash, the currently executing
// contract's hash and declared group keys, and the immediate calling
// script hash (nil at the entry frame) with its group keys.
type MatchContext struct {
	EntryScriptHash   util.Uint160
	CurrentScriptHash util.Uint160
	CurrentGroups     [][33]byte // group public keys the executing contract's manifest declares membership in
	CallingScriptHash *util.Uint160
	CallingGroups     [][33]byte // same, for the calling contract
}

// WitnessCondition is the predicate tree a WitnessRule evaluates
// against the calling context of a contract invocation.
type WitnessCondition interface {
	io.Serializable
	Type() WitnessConditionType
	Match(ctx *MatchContext) bool
	ToJSON() map[string]interface{}
}

// DecodeBinaryCondition reads one tagged WitnessCondition node,
// recursing (bounded by depth) into And/Or/Not/Group subitems.
func DecodeBinaryCondition(br *io.BinReader, depth int) WitnessCondition {
	if depth <= 0 {
		br.Err = fmt.Errorf("transaction: witness condition nesting too deep")
		return nil
	}
	if br.Err != nil {
		return nil
	}
	typ := WitnessConditionType(br.ReadB())
	var c WitnessCondition
	switch typ {
	case ConditionBooleanType:
		c = &ConditionBoolean{Value: br.ReadBool()}
	case ConditionNotType:
		inner := DecodeBinaryCondition(br, depth-1)
		c = &ConditionNot{Condition: inner}
	case ConditionAndType:
		c = &ConditionAnd{Conditions: decodeConditionList(br, depth)}
	case ConditionOrType:
		c = &ConditionOr{Conditions: decodeConditionList(br, depth)}
	case ConditionScriptHashType:
		var h util.Uint160
		br.ReadBytes(h[:])
		c = &ConditionScriptHash{Hash: h}
	case ConditionGroupType:
		var pk [33]byte
		br.ReadBytes(pk[:])
		c = &ConditionGroup{Group: pk}
	case ConditionCalledByEntryType:
		c = &ConditionCalledByEntry{}
	case ConditionCalledByContractType:
		var h util.Uint160
		br.ReadBytes(h[:])
		c = &ConditionCalledByContract{Hash: h}
	case ConditionCalledByGroupType:
		var pk [33]byte
		br.ReadBytes(pk[:])
		c = &ConditionCalledByGroup{Group: pk}
	default:
		if br.Err == nil {
			br.Err = fmt.Errorf("transaction: unknown witness condition type 0x%x", byte(typ))
		}
		return nil
	}
	return c
}

func decodeConditionList(br *io.BinReader, depth int) []WitnessCondition {
	n := br.ReadVarUint()
	if n > maxConditionSubitems {
		br.Err = fmt.Errorf("transaction: too many witness condition subitems (%d)", n)
		return nil
	}
	list := make([]WitnessCondition, n)
	for i := range list {
		list[i] = DecodeBinaryCondition(br, depth-1)
		if br.Err != nil {
			return nil
		}
	}
	return list
}

func encodeConditionList(bw *io.BinWriter, list []WitnessCondition) {
	bw.WriteVarUint(uint64(len(list)))
	for _, c := range list {
		c.EncodeBinary(bw)
	}
}

// ConditionBoolean always evaluates to a fixed value.
type ConditionBoolean struct{ Value bool }

func (c *ConditionBoolean) Type() WitnessConditionType { return ConditionBooleanType }
func (c *ConditionBoolean) Match(*MatchContext) bool    { return c.Value }
func (c *ConditionBoolean) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	bw.WriteBool(c.Value)
}
func (c *ConditionBoolean) DecodeBinary(br *io.BinReader) {
	c.Value = br.ReadBool()
}
func (c *ConditionBoolean) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "Boolean", "expression": c.Value}
}

// ConditionNot negates its inner condition.
type ConditionNot struct{ Condition WitnessCondition }

func (c *ConditionNot) Type() WitnessConditionType { return ConditionNotType }
func (c *ConditionNot) Match(ctx *MatchContext) bool {
	return !c.Condition.Match(ctx)
}
func (c *ConditionNot) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	c.Condition.EncodeBinary(bw)
}
func (c *ConditionNot) DecodeBinary(br *io.BinReader) {
	c.Condition = DecodeBinaryCondition(br, MaxNestingDepth)
}
func (c *ConditionNot) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "Not", "expression": c.Condition.ToJSON()}
}

// ConditionAnd is satisfied when every subcondition matches.
type ConditionAnd struct{ Conditions []WitnessCondition }

func (c *ConditionAnd) Type() WitnessConditionType { return ConditionAndType }
func (c *ConditionAnd) Match(ctx *MatchContext) bool {
	for _, sub := range c.Conditions {
		if !sub.Match(ctx) {
			return false
		}
	}
	return true
}
func (c *ConditionAnd) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	encodeConditionList(bw, c.Conditions)
}
func (c *ConditionAnd) DecodeBinary(br *io.BinReader) {
	c.Conditions = decodeConditionList(br, MaxNestingDepth)
}
func (c *ConditionAnd) ToJSON() map[string]interface{} {
	exprs := make([]interface{}, len(c.Conditions))
	for i, sub := range c.Conditions {
		exprs[i] = sub.ToJSON()
	}
	return map[string]interface{}{"type": "And", "expressions": exprs}
}

// ConditionOr is satisfied when any subcondition matches.
type ConditionOr struct{ Conditions []WitnessCondition }

func (c *ConditionOr) Type() WitnessConditionType { return ConditionOrType }
func (c *ConditionOr) Match(ctx *MatchContext) bool {
	for _, sub := range c.Conditions {
		if sub.Match(ctx) {
			return true
		}
	}
	return false
}
func (c *ConditionOr) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	encodeConditionList(bw, c.Conditions)
}
func (c *ConditionOr) DecodeBinary(br *io.BinReader) {
	c.Conditions = decodeConditionList(br, MaxNestingDepth)
}
func (c *ConditionOr) ToJSON() map[string]interface{} {
	exprs := make([]interface{}, len(c.Conditions))
	for i, sub := range c.Conditions {
		exprs[i] = sub.ToJSON()
	}
	return map[string]interface{}{"type": "Or", "expressions": exprs}
}

// ConditionScriptHash matches when the currently executing contract
// (not necessarily the caller) has this script hash.
type ConditionScriptHash struct{ Hash util.Uint160 }

func (c *ConditionScriptHash) Type() WitnessConditionType { return ConditionScriptHashType }
func (c *ConditionScriptHash) Match(ctx *MatchContext) bool {
	return ctx.CurrentScriptHash == c.Hash
}
func (c *ConditionScriptHash) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	bw.WriteBytes(c.Hash[:])
}
func (c *ConditionScriptHash) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(c.Hash[:])
}
func (c *ConditionScriptHash) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "ScriptHash", "hash": c.Hash.StringLE()}
}

// ConditionGroup matches when the currently executing contract
// declares membership in this group.
type ConditionGroup struct{ Group [33]byte }

func (c *ConditionGroup) Type() WitnessConditionType { return ConditionGroupType }
func (c *ConditionGroup) Match(ctx *MatchContext) bool {
	for _, g := range ctx.CurrentGroups {
		if g == c.Group {
			return true
		}
	}
	return false
}
func (c *ConditionGroup) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	bw.WriteBytes(c.Group[:])
}
func (c *ConditionGroup) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(c.Group[:])
}
func (c *ConditionGroup) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "Group", "group": fmt.Sprintf("%x", c.Group[:])}
}

// ConditionCalledByEntry matches when the call is made directly by
// the transaction's entry script (depth-1 call, no intermediate
// contract in between).
type ConditionCalledByEntry struct{}

func (c *ConditionCalledByEntry) Type() WitnessConditionType { return ConditionCalledByEntryType }
func (c *ConditionCalledByEntry) Match(ctx *MatchContext) bool {
	return ctx.CallingScriptHash == nil || *ctx.CallingScriptHash == ctx.EntryScriptHash
}
func (c *ConditionCalledByEntry) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
}
func (c *ConditionCalledByEntry) DecodeBinary(br *io.BinReader) {}
func (c *ConditionCalledByEntry) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "CalledByEntry"}
}

// ConditionCalledByContract matches when the immediate caller has
// this script hash.
type ConditionCalledByContract struct{ Hash util.Uint160 }

func (c *ConditionCalledByContract) Type() WitnessConditionType { return ConditionCalledByContractType }
func (c *ConditionCalledByContract) Match(ctx *MatchContext) bool {
	return ctx.CallingScriptHash != nil && *ctx.CallingScriptHash == c.Hash
}
func (c *ConditionCalledByContract) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	bw.WriteBytes(c.Hash[:])
}
func (c *ConditionCalledByContract) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(c.Hash[:])
}
func (c *ConditionCalledByContract) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "CalledByContract", "hash": c.Hash.StringLE()}
}

// ConditionCalledByGroup matches when the immediate caller declares
// membership in this group.
type ConditionCalledByGroup struct{ Group [33]byte }

func (c *ConditionCalledByGroup) Type() WitnessConditionType { return ConditionCalledByGroupType }
func (c *ConditionCalledByGroup) Match(ctx *MatchContext) bool {
	if ctx.CallingScriptHash == nil {
		return false
	}
	for _, g := range ctx.CallingGroups {
		if g == c.Group {
			return true
		}
	}
	return false
}
func (c *ConditionCalledByGroup) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(c.Type()))
	bw.WriteBytes(c.Group[:])
}
func (c *ConditionCalledByGroup) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(c.Group[:])
}
func (c *ConditionCalledByGroup) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "CalledByGroup", "group": fmt.Sprintf("%x", c.Group[:])}
}

// conditionJSON renders the RPC-facing JSON encoding of a condition tree.
func conditionJSON(c WitnessCondition) ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

func roundtripCondition(t *testing.T, c WitnessCondition) WitnessCondition {
	buf := io.NewBufBinWriter()
	c.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	br := io.NewBinReaderFromBuf(buf.Bytes())
	got := DecodeBinaryCondition(br, MaxNestingDepth)
	require.NoError(t, br.Err)
	return got
}

func TestConditionBooleanRoundtrip(t *testing.T) {
	c := &ConditionBoolean{Value: true}
	got := roundtripCondition(t, c)
	assert.Equal(t, c, got)
	assert.True(t, got.Match(&MatchContext{}))
}

func TestConditionCalledByEntryMatch(t *testing.T) {
	entry := util.Uint160{1, 2, 3}
	c := &ConditionCalledByEntry{}
	assert.True(t, c.Match(&MatchContext{EntryScriptHash: entry}))

	caller := util.Uint160{9, 9, 9}
	assert.False(t, c.Match(&MatchContext{EntryScriptHash: entry, CallingScriptHash: &caller}))
}

func TestConditionNotAndOr(t *testing.T) {
	yes := &ConditionBoolean{Value: true}
	no := &ConditionBoolean{Value: false}

	not := &ConditionNot{Condition: no}
	assert.True(t, not.Match(&MatchContext{}))

	and := &ConditionAnd{Conditions: []WitnessCondition{yes, no}}
	assert.False(t, and.Match(&MatchContext{}))

	or := &ConditionOr{Conditions: []WitnessCondition{yes, no}}
	assert.True(t, or.Match(&MatchContext{}))

	got := roundtripCondition(t, and)
	gotAnd, ok := got.(*ConditionAnd)
	require.True(t, ok)
	assert.Len(t, gotAnd.Conditions, 2)
}

func TestConditionScriptHash(t *testing.T) {
	h := util.Uint160{1, 1, 1}
	c := &ConditionScriptHash{Hash: h}
	got := roundtripCondition(t, c)
	assert.Equal(t, c, got)
	assert.True(t, c.Match(&MatchContext{CurrentScriptHash: h}))
	assert.False(t, c.Match(&MatchContext{CurrentScriptHash: util.Uint160{2}}))
}

func TestConditionGroup(t *testing.T) {
	var g [33]byte
	g[0] = 0x03
	c := &ConditionGroup{Group: g}
	got := roundtripCondition(t, c)
	assert.Equal(t, c, got)
	assert.True(t, c.Match(&MatchContext{CurrentGroups: [][33]byte{g}}))
	assert.False(t, c.Match(&MatchContext{}))
}

func TestConditionCalledByContractAndGroup(t *testing.T) {
	h := util.Uint160{7}
	caller := h
	c := &ConditionCalledByContract{Hash: h}
	assert.True(t, c.Match(&MatchContext{CallingScriptHash: &caller}))
	assert.False(t, c.Match(&MatchContext{}))

	var g [33]byte
	g[0] = 0xAB
	cg := &ConditionCalledByGroup{Group: g}
	assert.True(t, cg.Match(&MatchContext{CallingScriptHash: &caller, CallingGroups: [][33]byte{g}}))
	assert.False(t, cg.Match(&MatchContext{CallingScriptHash: &caller}))
}

func TestDecodeBinaryConditionRejectsDeepNesting(t *testing.T) {
	buf := io.NewBufBinWriter()
	inner := &ConditionNot{Condition: &ConditionBoolean{Value: true}}
	outer := &ConditionNot{Condition: inner}
	outer.EncodeBinary(buf.BinWriter)

	br := io.NewBinReaderFromBuf(buf.Bytes())
	DecodeBinaryCondition(br, 1)
	assert.Error(t, br.Err)
}

func TestDecodeBinaryConditionUnknownType(t *testing.T) {
	br := io.NewBinReaderFromBuf([]byte{0x7f})
	DecodeBinaryCondition(br, MaxNestingDepth)
	assert.Error(t, br.Err)
}

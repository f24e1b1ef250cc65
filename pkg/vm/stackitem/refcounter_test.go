package stackitem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCounterAddRemove(t *testing.T) {
	rc := NewRefCounter(0)
	require.Equal(t, 0, rc.Count())

	// Primitive items are not tracked.
	require.NoError(t, rc.Add(NewInteger(1)))
	assert.Equal(t, 0, rc.Count())

	a := NewArray(nil)
	require.NoError(t, rc.Add(a))
	assert.Equal(t, 1, rc.Count())
	require.NoError(t, rc.Add(a))
	assert.Equal(t, 2, rc.Count())

	rc.Remove(a)
	rc.Remove(a)
	assert.Equal(t, 0, rc.Count())
}

func TestRefCounterLimit(t *testing.T) {
	rc := NewRefCounter(2)
	require.NoError(t, rc.Add(NewArray(nil)))
	require.NoError(t, rc.Add(NewArray(nil)))
	require.ErrorIs(t, rc.Add(NewArray(nil)), ErrRefCounterLimit)
}

func TestCollectCyclesDetachedPair(t *testing.T) {
	rc := NewRefCounter(0)
	a := NewArray(nil).(*Array)
	b := NewArray(nil).(*Array)
	require.NoError(t, rc.Add(a))
	require.NoError(t, rc.Add(b))

	require.NoError(t, rc.AddChild(b))
	require.NoError(t, a.Append(b))
	require.NoError(t, rc.AddChild(a))
	require.NoError(t, b.Append(a))
	require.Equal(t, 4, rc.Count())

	// Still rooted: nothing to collect.
	assert.Equal(t, 0, rc.CollectCycles())
	require.Equal(t, 4, rc.Count())

	// Dropping the roots leaves a two-item cycle only the sweep sees.
	rc.Remove(a)
	rc.Remove(b)
	require.Equal(t, 2, rc.Count())
	assert.Equal(t, 2, rc.CollectCycles())
	assert.Equal(t, 0, rc.Count())
}

func TestCollectCyclesSparesReachable(t *testing.T) {
	rc := NewRefCounter(0)
	outer := NewArray(nil).(*Array)
	inner := NewArray(nil).(*Array)
	require.NoError(t, rc.Add(outer))

	// inner cycles with itself but is held by the rooted outer array.
	require.NoError(t, rc.AddChild(inner))
	require.NoError(t, outer.Append(inner))
	require.NoError(t, rc.AddChild(inner))
	require.NoError(t, inner.Append(inner))

	require.Equal(t, 3, rc.Count())
	assert.Equal(t, 0, rc.CollectCycles())
	assert.Equal(t, 3, rc.Count())
}

func TestCollectCyclesSelfReference(t *testing.T) {
	rc := NewRefCounter(0)
	a := NewArray(nil).(*Array)
	require.NoError(t, rc.Add(a))
	require.NoError(t, rc.AddChild(a))
	require.NoError(t, a.Append(a))
	rc.Remove(a)

	require.Equal(t, 1, rc.Count())
	assert.Equal(t, 1, rc.CollectCycles())
	assert.Equal(t, 0, rc.Count())
}

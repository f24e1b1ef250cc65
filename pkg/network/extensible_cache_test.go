package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/network/payload"
)

func getDifferentEnvelopes(n int) []*payload.Extensible {
	envelopes := make([]*payload.Extensible, n)
	for i := range envelopes {
		envelopes[i] = &payload.Extensible{
			Category: payload.ConsensusCategory,
			Data:     []byte{byte(i)},
		}
	}
	return envelopes
}

func TestRelayCacheAdd(t *testing.T) {
	const capacity = 3
	envelopes := getDifferentEnvelopes(capacity + 1)
	c := newFIFOCache(capacity)
	require.Equal(t, 0, c.queue.Len())
	require.Empty(t, c.elems)

	for i := 0; i < capacity; i++ {
		c.Add(envelopes[i])
		require.Equal(t, i+1, c.queue.Len())
		require.Len(t, c.elems, i+1)
	}

	// Re-adding an existing envelope changes nothing.
	c.Add(envelopes[1])
	require.Equal(t, capacity, c.queue.Len())

	// Capacity does not exceed the maximum; the oldest entry goes.
	c.Add(envelopes[capacity])
	require.Equal(t, capacity, c.queue.Len())
	require.Len(t, c.elems, capacity)
	require.Nil(t, c.Get(envelopes[0].Hash()))

	// Recent envelopes are still present.
	for i := 1; i <= capacity; i++ {
		require.Equal(t, envelopes[i], c.Get(envelopes[i].Hash()))
	}
}

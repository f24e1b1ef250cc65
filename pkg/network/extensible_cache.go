package network

import (
	"container/list"
	"sync"

	"github.com/n3fullnode/neofull/pkg/network/payload"
	"github.com/n3fullnode/neofull/pkg/util"
)

// extCacheCapacity bounds the relay cache to the last hundred
// envelopes, enough to answer GetData for anything still circulating
// as an Inv.
const extCacheCapacity = 100

// relayCache is a FIFO cache of the last accepted Extensible
// envelopes, keyed by hash, so a peer chasing an Inv announcement can
// GetData the payload after the original broadcast has passed.
type relayCache struct {
	*sync.RWMutex

	maxCap int
	elems  map[util.Uint256]*list.Element
	queue  *list.List
}

func newFIFOCache(capacity int) *relayCache {
	return &relayCache{
		RWMutex: new(sync.RWMutex),

		maxCap: capacity,
		elems:  make(map[util.Uint256]*list.Element),
		queue:  list.New(),
	}
}

// Add adds an envelope into the cache if it doesn't already exist.
func (c *relayCache) Add(e *payload.Extensible) {
	c.Lock()
	defer c.Unlock()

	h := e.Hash()
	if c.elems[h] != nil {
		return
	}

	if c.queue.Len() >= c.maxCap {
		first := c.queue.Front()
		c.queue.Remove(first)
		delete(c.elems, first.Value.(*payload.Extensible).Hash())
	}

	el := c.queue.PushBack(e)
	c.elems[h] = el
}

// Get returns the envelope with the specified hash, nil if evicted or
// never seen.
func (c *relayCache) Get(h util.Uint256) *payload.Extensible {
	c.RLock()
	defer c.RUnlock()

	el, ok := c.elems[h]
	if !ok {
		return nil
	}
	return el.Value.(*payload.Extensible)
}

package stackitem

import "fmt"

// DefaultRefCounterLimit is the default ceiling on the number of
// tracked references a single execution may hold; it bounds the
// reachable compound-item graph a script can build.
const DefaultRefCounterLimit = 2048

// ErrRefCounterLimit is returned when adding a reference would exceed
// the configured limit.
var ErrRefCounterLimit = fmt.Errorf("stackitem: reference counter limit exceeded")

// RefCounter tracks strong references into compound items held by
// evaluation/alt stacks, other compound items, and static slots. A
// pure reference count will leak cycles (e.g. two arrays appended to
// each other), so a periodic Tarjan SCC sweep collects components that
// are unreachable from any tracked root.
type RefCounter struct {
	limit int
	count int
	roots map[RefCounted]int
	// tracked holds every compound item with a live reference,
	// including ones only reachable (or no longer reachable) through
	// other compounds; the SCC sweep must see detached cycles too, and
	// those by definition have no root entry.
	tracked map[RefCounted]struct{}
}

// NewRefCounter constructs a RefCounter with the given limit.
func NewRefCounter(limit int) *RefCounter {
	if limit <= 0 {
		limit = DefaultRefCounterLimit
	}
	return &RefCounter{
		limit:   limit,
		roots:   make(map[RefCounted]int),
		tracked: make(map[RefCounted]struct{}),
	}
}

// Count returns the current total tracked reference count.
func (r *RefCounter) Count() int { return r.count }

// Add registers a new root reference to it (a stack slot or static
// field holding it directly), incrementing both the item's own
// reference count and the global total.
func (r *RefCounter) Add(it Item) error {
	rc, ok := it.(RefCounted)
	if !ok {
		return nil
	}
	if r.count+1 > r.limit {
		return ErrRefCounterLimit
	}
	rc.IncRC()
	r.roots[rc]++
	r.tracked[rc] = struct{}{}
	r.count++
	return nil
}

// Remove releases a root reference to it.
func (r *RefCounter) Remove(it Item) {
	rc, ok := it.(RefCounted)
	if !ok {
		return
	}
	if rc.DecRC() == 0 {
		delete(r.tracked, rc)
	}
	r.count--
	if n := r.roots[rc]; n <= 1 {
		delete(r.roots, rc)
	} else {
		r.roots[rc] = n - 1
	}
}

// AddChild registers a reference from a compound parent to a child
// item, used whenever APPEND/SETITEM/PACK embed an item inside
// another compound.
func (r *RefCounter) AddChild(child Item) error {
	rc, ok := child.(RefCounted)
	if !ok {
		return nil
	}
	if r.count+1 > r.limit {
		return ErrRefCounterLimit
	}
	rc.IncRC()
	r.tracked[rc] = struct{}{}
	r.count++
	return nil
}

// RemoveChild releases a reference from a compound parent to a child
// item, e.g. on REMOVE/CLEARITEMS/POPITEM.
func (r *RefCounter) RemoveChild(child Item) {
	rc, ok := child.(RefCounted)
	if !ok {
		return
	}
	if rc.DecRC() == 0 {
		delete(r.tracked, rc)
	}
	r.count--
}

// children enumerates the immediate RefCounted children of a compound
// item, used by the SCC sweep to walk the reachability graph.
func children(it RefCounted) []RefCounted {
	var out []RefCounted
	switch v := it.(type) {
	case *Array:
		for _, e := range v.value {
			if rc, ok := e.(RefCounted); ok {
				out = append(out, rc)
			}
		}
	case *Struct:
		for _, e := range v.value {
			if rc, ok := e.(RefCounted); ok {
				out = append(out, rc)
			}
		}
	case *Map:
		for _, e := range v.elems {
			if rc, ok := e.Key.(RefCounted); ok {
				out = append(out, rc)
			}
			if rc, ok := e.Value.(RefCounted); ok {
				out = append(out, rc)
			}
		}
	}
	return out
}

// sccNode is the bookkeeping Tarjan's algorithm needs per node.
type sccNode struct {
	index, low int
	onStack    bool
}

// CollectCycles runs Tarjan's SCC algorithm over every compound item
// currently tracked as a root or reachable from one, and releases
// (sets count to reflect removal of) any strongly connected component
// that has no incoming reference from outside itself — i.e. a cycle
// unreachable from the stacks/static-slots roots. It returns the
// number of items collected.
func (r *RefCounter) CollectCycles() int {
	visited := make(map[RefCounted]*sccNode)
	var stack []RefCounted
	var sccs [][]RefCounted
	idx := 0

	var strongConnect func(v RefCounted)
	strongConnect = func(v RefCounted) {
		visited[v] = &sccNode{index: idx, low: idx, onStack: true}
		idx++
		stack = append(stack, v)

		for _, w := range children(v) {
			if visited[w] == nil {
				strongConnect(w)
				visited[v].low = min(visited[v].low, visited[w].low)
			} else if visited[w].onStack {
				visited[v].low = min(visited[v].low, visited[w].index)
			}
		}

		if visited[v].low == visited[v].index {
			var component []RefCounted
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				visited[w].onStack = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, component)
		}
	}

	for it := range r.tracked {
		if visited[it] == nil {
			strongConnect(it)
		}
	}

	collected := 0
	for _, comp := range sccs {
		if r.isExternallyReachable(comp) {
			continue
		}
		for _, it := range comp {
			// Every remaining reference into a garbage item comes from
			// inside the garbage subgraph, so the item's own count is
			// exactly what the sweep releases for it.
			r.count -= it.RefCount()
			delete(r.tracked, it)
			collected++
		}
	}
	return collected
}

// isExternallyReachable reports whether any item in comp is directly a
// root, or is referenced by a compound outside comp. A component with
// no such reference is a garbage cycle.
func (r *RefCounter) isExternallyReachable(comp []RefCounted) bool {
	inComp := make(map[RefCounted]bool, len(comp))
	for _, it := range comp {
		inComp[it] = true
		if r.roots[it] > 0 {
			return true
		}
	}
	for root := range r.roots {
		if reachesOutside(root, inComp, make(map[RefCounted]bool)) {
			return true
		}
	}
	return false
}

// reachesOutside reports whether, starting a BFS/DFS from start, any
// node outside inComp has a direct edge into inComp.
func reachesOutside(start RefCounted, inComp, seen map[RefCounted]bool) bool {
	if seen[start] {
		return false
	}
	seen[start] = true
	if !inComp[start] {
		for _, c := range children(start) {
			if inComp[c] {
				return true
			}
		}
	}
	for _, c := range children(start) {
		if reachesOutside(c, inComp, seen) {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

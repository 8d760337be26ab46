package catalog

import "sync/atomic"

// idGenerator hands out process-wide monotonic surrogate identifiers.
// A Handle owns exactly one; it is never shared implicitly.
type idGenerator struct {
	next int64
}

func (g *idGenerator) nextID() ID {
	return ID(atomic.AddInt64(&g.next, 1))
}

package planner

import "polyplan/internal/algebra"

// group is an equivalence set: a collection of RelNodes with the same
// row type and logical semantics (spec.md §4.4). Members are keyed by
// digest so structurally identical expressions are deduplicated.
type group struct {
	members map[string]algebra.RelNode
	// bestByTraits caches the cheapest member (and its cost) seen so
	// far for a given required TraitSet, keyed by its String() form.
	bestByTraits map[string]bestEntry
}

type bestEntry struct {
	node algebra.RelNode
	cost algebra.Cost
}

func newGroup() *group {
	return &group{
		members:      make(map[string]algebra.RelNode),
		bestByTraits: make(map[string]bestEntry),
	}
}

// add registers n into the group if its digest hasn't been seen
// before. It returns true if n was newly added.
func (g *group) add(n algebra.RelNode) bool {
	d := n.Digest()
	if _, ok := g.members[d]; ok {
		return false
	}
	g.members[d] = n
	return true
}

// estimatingMetadataQuery is the default MetadataQuery implementation:
// it asks a node's own RowsHint where available and otherwise falls
// back to a flat estimate derived from input cardinalities. It is
// intentionally simple — accurate statistics-driven estimation is out
// of scope for the planner's search-correctness contract, which only
// needs a total order over candidate plans to be consistent.
type estimatingMetadataQuery struct{}

func (estimatingMetadataQuery) RowCount(n algebra.RelNode) float64 {
	switch t := n.(type) {
	case *algebra.TableScan:
		return t.RowsHint
	case *algebra.Values:
		if len(t.Rows) == 0 {
			return 0
		}
		return float64(len(t.Rows))
	case *algebra.Filter:
		return estimatingMetadataQuery{}.RowCount(t.Input) * 0.5
	case *algebra.Join:
		l := estimatingMetadataQuery{}.RowCount(t.Left)
		r := estimatingMetadataQuery{}.RowCount(t.Right)
		if t.JoinType == algebra.JoinSemi || t.JoinType == algebra.JoinAnti {
			return l * 0.3
		}
		return l * r * 0.1
	case *algebra.Aggregate:
		return estimatingMetadataQuery{}.RowCount(t.Input) * 0.2
	default:
		inputs := n.Inputs()
		if len(inputs) == 0 {
			return 1
		}
		var total float64
		for _, in := range inputs {
			total += estimatingMetadataQuery{}.RowCount(in)
		}
		return total
	}
}

// DefaultMetadataQuery is the planner's built-in MetadataQuery.
var DefaultMetadataQuery algebra.MetadataQuery = estimatingMetadataQuery{}

package algebra

import (
	"fmt"
	"io"
)

// Exchange repartitions its input's rows according to Dist, the
// router's physical marker for a cross-store/cross-partition data
// movement (spec.md §4.3).
type Exchange struct {
	Input RelNode
	Dist  Distribution
}

// NewExchange builds an Exchange node.
func NewExchange(input RelNode, dist Distribution) *Exchange {
	return &Exchange{Input: input, Dist: dist}
}

func (n *Exchange) Kind() RelKind     { return KindExchange }
func (n *Exchange) Inputs() []RelNode { return []RelNode{n.Input} }
func (n *Exchange) RowType() RowType  { return n.Input.RowType() }
func (n *Exchange) Traits() TraitSet {
	t := n.Input.Traits()
	t.Distribution = n.Dist
	return t
}
func (n *Exchange) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Exchange) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: Exchange takes exactly one input")
	}
	cp := *n
	cp.Input = newInputs[0]
	return &cp
}

func (n *Exchange) Explain(w io.Writer) {
	fmt.Fprintf(w, "Exchange(dist=%v)", n.Dist)
}

func (n *Exchange) ComputeSelfCost(mq MetadataQuery) Cost {
	rows := mq.RowCount(n.Input)
	return Cost{IO: rows}
}

func (n *Exchange) Digest() string {
	return digestOf(KindExchange, []string{fmt.Sprintf("%v", n.Dist)}, []RelNode{n.Input})
}

// SortExchange is an Exchange that additionally guarantees its output
// arrives ordered by Collations — the physical realization of a
// merge-based cross-store sort (spec.md §4.3).
type SortExchange struct {
	Input      RelNode
	Dist       Distribution
	Collations Collation
}

// NewSortExchange builds a SortExchange node.
func NewSortExchange(input RelNode, dist Distribution, collations Collation) *SortExchange {
	return &SortExchange{Input: input, Dist: dist, Collations: collations}
}

func (n *SortExchange) Kind() RelKind     { return KindSortExchange }
func (n *SortExchange) Inputs() []RelNode { return []RelNode{n.Input} }
func (n *SortExchange) RowType() RowType  { return n.Input.RowType() }
func (n *SortExchange) Traits() TraitSet {
	return TraitSet{Convention: n.Input.Traits().Convention, Collation: n.Collations, Distribution: n.Dist}
}
func (n *SortExchange) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *SortExchange) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: SortExchange takes exactly one input")
	}
	cp := *n
	cp.Input = newInputs[0]
	return &cp
}

func (n *SortExchange) Explain(w io.Writer) {
	fmt.Fprintf(w, "SortExchange(dist=%v, collation=%v)", n.Dist, n.Collations)
}

func (n *SortExchange) ComputeSelfCost(mq MetadataQuery) Cost {
	rows := mq.RowCount(n.Input)
	return Cost{IO: rows, CPU: rows * logFloor(rows)}
}

func (n *SortExchange) Digest() string {
	return digestOf(KindSortExchange, []string{fmt.Sprintf("%v", n.Dist), fmt.Sprintf("%v", n.Collations)}, []RelNode{n.Input})
}

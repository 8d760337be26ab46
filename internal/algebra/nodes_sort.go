package algebra

import (
	"fmt"
	"io"
)

// Sort orders its input by Collations and optionally applies an
// OFFSET/FETCH window. Offset/Fetch are -1 when unset.
type Sort struct {
	Input      RelNode
	Collations Collation
	Offset     int
	Fetch      int
}

// NewSort builds a Sort node. offset/fetch of -1 mean "unset".
func NewSort(input RelNode, collations Collation, offset, fetch int) *Sort {
	return &Sort{Input: input, Collations: collations, Offset: offset, Fetch: fetch}
}

func (n *Sort) Kind() RelKind     { return KindSort }
func (n *Sort) Inputs() []RelNode { return []RelNode{n.Input} }
func (n *Sort) RowType() RowType  { return n.Input.RowType() }
func (n *Sort) Traits() TraitSet {
	t := n.Input.Traits()
	t.Collation = n.Collations
	return t
}
func (n *Sort) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Sort) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: Sort takes exactly one input")
	}
	cp := *n
	cp.Input = newInputs[0]
	return &cp
}

func (n *Sort) Explain(w io.Writer) {
	fmt.Fprintf(w, "Sort(collation=%v, offset=%d, fetch=%d)", n.Collations, n.Offset, n.Fetch)
}

func (n *Sort) ComputeSelfCost(mq MetadataQuery) Cost {
	rows := mq.RowCount(n.Input)
	return Cost{CPU: rows * logFloor(rows)}
}

func (n *Sort) Digest() string {
	return digestOf(KindSort, []string{fmt.Sprintf("%v", n.Collations), fmt.Sprintf("off=%d,fetch=%d", n.Offset, n.Fetch)}, []RelNode{n.Input})
}

// logFloor is a cheap, dependency-free stand-in for log2(n) used only
// to weight sort cost relative to a linear scan; it need not be exact.
func logFloor(n float64) float64 {
	if n < 2 {
		return 1
	}
	bits := 0.0
	for n > 1 {
		n /= 2
		bits++
	}
	return bits
}

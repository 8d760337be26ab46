package algebra

import (
	"fmt"
	"io"
)

// JoinType enumerates the join semantics spec.md §4.3 names.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinSemi  JoinType = "SEMI"
	JoinAnti  JoinType = "ANTI"
)

// Join combines Left and Right rows satisfying Condition.
type Join struct {
	Left      RelNode
	Right     RelNode
	Condition RexNode
	JoinType  JoinType
}

// NewJoin builds a Join node. The output row type concatenates left
// and right, except for SEMI/ANTI joins, whose row type is Left's.
func NewJoin(left, right RelNode, condition RexNode, joinType JoinType) *Join {
	return &Join{Left: left, Right: right, Condition: condition, JoinType: joinType}
}

func (n *Join) Kind() RelKind     { return KindJoin }
func (n *Join) Inputs() []RelNode { return []RelNode{n.Left, n.Right} }
func (n *Join) RowType() RowType {
	switch n.JoinType {
	case JoinSemi, JoinAnti:
		return n.Left.RowType()
	default:
		out := make(RowType, 0, len(n.Left.RowType())+len(n.Right.RowType()))
		out = append(out, n.Left.RowType()...)
		out = append(out, n.Right.RowType()...)
		return out
	}
}
func (n *Join) Traits() TraitSet         { return TraitSet{Convention: n.Left.Traits().Convention} }
func (n *Join) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Join) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 2 {
		panic("algebra: Join takes exactly two inputs")
	}
	cp := *n
	cp.Left, cp.Right = newInputs[0], newInputs[1]
	return &cp
}

func (n *Join) Explain(w io.Writer) {
	fmt.Fprintf(w, "Join(%s, %s)", n.JoinType, n.Condition)
}

func (n *Join) ComputeSelfCost(mq MetadataQuery) Cost {
	l, r := mq.RowCount(n.Left), mq.RowCount(n.Right)
	return Cost{Rows: l * r, CPU: l * r, IO: l + r}
}

func (n *Join) Digest() string {
	return digestOf(KindJoin, []string{string(n.JoinType), n.Condition.String()}, []RelNode{n.Left, n.Right})
}

// Correlate evaluates Right once per row of Left, with Right able to
// reference Left's current row via CorrelationID (spec.md §4.3's
// lateral-join primitive for decorrelated subqueries).
type Correlate struct {
	Left            RelNode
	Right           RelNode
	CorrelationID   string
	RequiredColumns []int
	JoinType        JoinType
}

// NewCorrelate builds a Correlate node.
func NewCorrelate(left, right RelNode, correlationID string, requiredColumns []int, joinType JoinType) *Correlate {
	return &Correlate{Left: left, Right: right, CorrelationID: correlationID, RequiredColumns: requiredColumns, JoinType: joinType}
}

func (n *Correlate) Kind() RelKind     { return KindCorrelate }
func (n *Correlate) Inputs() []RelNode { return []RelNode{n.Left, n.Right} }
func (n *Correlate) RowType() RowType {
	if n.JoinType == JoinSemi || n.JoinType == JoinAnti {
		return n.Left.RowType()
	}
	out := make(RowType, 0, len(n.Left.RowType())+len(n.Right.RowType()))
	out = append(out, n.Left.RowType()...)
	out = append(out, n.Right.RowType()...)
	return out
}
func (n *Correlate) Traits() TraitSet         { return TraitSet{Convention: n.Left.Traits().Convention} }
func (n *Correlate) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Correlate) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 2 {
		panic("algebra: Correlate takes exactly two inputs")
	}
	cp := *n
	cp.Left, cp.Right = newInputs[0], newInputs[1]
	return &cp
}

func (n *Correlate) Explain(w io.Writer) {
	fmt.Fprintf(w, "Correlate(id=%s, required=%v, %s)", n.CorrelationID, n.RequiredColumns, n.JoinType)
}

func (n *Correlate) ComputeSelfCost(mq MetadataQuery) Cost {
	l := mq.RowCount(n.Left)
	r := mq.RowCount(n.Right)
	return Cost{Rows: l * r, CPU: l * r}
}

func (n *Correlate) Digest() string {
	return digestOf(KindCorrelate, []string{n.CorrelationID, fmt.Sprintf("%v", n.RequiredColumns), string(n.JoinType)}, []RelNode{n.Left, n.Right})
}

// SetOpKind enumerates UNION/INTERSECT/MINUS (spec.md §4.3).
type SetOpKind string

const (
	SetOpUnion     SetOpKind = "UNION"
	SetOpIntersect SetOpKind = "INTERSECT"
	SetOpMinus     SetOpKind = "MINUS"
)

// SetOp combines the rows of two or more union-compatible inputs.
type SetOp struct {
	SetKind     SetOpKind
	All         bool
	SetInputs   []RelNode
}

// NewSetOp builds a SetOp node.
func NewSetOp(kind SetOpKind, all bool, inputs []RelNode) *SetOp {
	return &SetOp{SetKind: kind, All: all, SetInputs: inputs}
}

func (n *SetOp) Kind() RelKind            { return KindSetOp }
func (n *SetOp) Inputs() []RelNode        { return n.SetInputs }
func (n *SetOp) RowType() RowType         { return n.SetInputs[0].RowType() }
func (n *SetOp) Traits() TraitSet         { return TraitSet{Convention: n.SetInputs[0].Traits().Convention} }
func (n *SetOp) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *SetOp) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) == 0 {
		panic("algebra: SetOp takes at least one input")
	}
	cp := *n
	cp.SetInputs = newInputs
	return &cp
}

// SimplifySetOp applies the union(all=true, x) = x simplification law
// (spec.md §5) when n has a single input.
func SimplifySetOp(kind SetOpKind, all bool, inputs []RelNode) RelNode {
	if kind == SetOpUnion && all && len(inputs) == 1 {
		return inputs[0]
	}
	return NewSetOp(kind, all, inputs)
}

func (n *SetOp) Explain(w io.Writer) {
	fmt.Fprintf(w, "SetOp(%s, all=%v, inputs=%d)", n.SetKind, n.All, len(n.SetInputs))
}

func (n *SetOp) ComputeSelfCost(mq MetadataQuery) Cost {
	var total float64
	for _, in := range n.SetInputs {
		total += mq.RowCount(in)
	}
	return Cost{Rows: total, CPU: total}
}

func (n *SetOp) Digest() string {
	return digestOf(KindSetOp, []string{string(n.SetKind), fmt.Sprintf("all=%v", n.All)}, n.SetInputs)
}

package algebra

import (
	"fmt"
	"io"
)

// Project computes a new row from its input by evaluating Projects
// against each input row; Row names and types the output (spec.md
// §4.3 Project(projects[], rowType)).
type Project struct {
	Input    RelNode
	Projects []RexNode
	Row      RowType
	// Distinct marks a projection produced from a SELECT DISTINCT
	// clause, so RuleDistinctToGroupBy (internal/planner) can recognize
	// it without guessing from shape alone.
	Distinct bool
}

// NewProject builds a Project over input.
func NewProject(input RelNode, projects []RexNode, row RowType) *Project {
	return &Project{Input: input, Projects: projects, Row: row}
}

// NewDistinctProject builds a Project marked as a SELECT DISTINCT
// projection.
func NewDistinctProject(input RelNode, projects []RexNode, row RowType) *Project {
	return &Project{Input: input, Projects: projects, Row: row, Distinct: true}
}

func (n *Project) Kind() RelKind           { return KindProject }
func (n *Project) Inputs() []RelNode       { return []RelNode{n.Input} }
func (n *Project) RowType() RowType        { return n.Row }
func (n *Project) Traits() TraitSet        { return n.Input.Traits() }
func (n *Project) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Project) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: Project takes exactly one input")
	}
	cp := *n
	cp.Input = newInputs[0]
	return &cp
}

// IsIdentity reports whether Projects is exactly [$0, $1, ..., $n-1]
// over an input of the same width — the target of the
// project(identity)(x) = x simplification law (spec.md §5).
func (n *Project) IsIdentity() bool {
	if len(n.Projects) != len(n.Input.RowType()) {
		return false
	}
	for i, p := range n.Projects {
		ref, ok := p.(*RexIndexRefNode)
		if !ok || ref.Index != i {
			return false
		}
	}
	return true
}

func (n *Project) Explain(w io.Writer) {
	fmt.Fprintf(w, "Project(%d exprs)", len(n.Projects))
}

func (n *Project) ComputeSelfCost(mq MetadataQuery) Cost {
	rows := mq.RowCount(n.Input)
	return Cost{CPU: rows * float64(len(n.Projects))}
}

func (n *Project) Digest() string {
	parts := make([]string, 0, len(n.Projects)+1)
	parts = append(parts, rowTypeDigest(n.Row))
	for _, p := range n.Projects {
		parts = append(parts, p.String())
	}
	return digestOf(KindProject, parts, []RelNode{n.Input})
}

// Filter retains only rows for which Condition evaluates true.
type Filter struct {
	Input     RelNode
	Condition RexNode
}

// NewFilter builds a Filter over input. Per spec.md §4.3's
// simplification law, callers should prefer the package-level
// SimplifyFilter helper to fold Filter(true)/Filter(false) before
// constructing a node that would otherwise be redundant.
func NewFilter(input RelNode, condition RexNode) *Filter {
	return &Filter{Input: input, Condition: condition}
}

// SimplifyFilter applies the Filter(true) ≡ identity and Filter(false)
// ≡ empty Values simplification laws (spec.md §4.3, §5). It returns
// the simplified node, which may be input itself, an EmptyValues node,
// or a genuine new Filter.
func SimplifyFilter(input RelNode, condition RexNode) RelNode {
	if IsTrue(condition) {
		return input
	}
	if IsFalse(condition) {
		return EmptyValues(input.RowType())
	}
	return NewFilter(input, condition)
}

func (n *Filter) Kind() RelKind            { return KindFilter }
func (n *Filter) Inputs() []RelNode        { return []RelNode{n.Input} }
func (n *Filter) RowType() RowType         { return n.Input.RowType() }
func (n *Filter) Traits() TraitSet         { return n.Input.Traits() }
func (n *Filter) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Filter) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: Filter takes exactly one input")
	}
	cp := *n
	cp.Input = newInputs[0]
	return &cp
}

func (n *Filter) Explain(w io.Writer) {
	fmt.Fprintf(w, "Filter(%s)", n.Condition)
}

func (n *Filter) ComputeSelfCost(mq MetadataQuery) Cost {
	rows := mq.RowCount(n.Input)
	return Cost{CPU: rows}
}

func (n *Filter) Digest() string {
	return digestOf(KindFilter, []string{n.Condition.String()}, []RelNode{n.Input})
}

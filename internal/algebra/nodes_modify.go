package algebra

import (
	"fmt"
	"io"
	"strings"
)

// ModifyOperation enumerates the DML kinds a Modify node performs
// (spec.md §4.3).
type ModifyOperation string

const (
	ModifyInsert ModifyOperation = "INSERT"
	ModifyUpdate ModifyOperation = "UPDATE"
	ModifyDelete ModifyOperation = "DELETE"
	ModifyMerge  ModifyOperation = "MERGE"
)

// Modify applies Operation to EntityRef, reading rows/values from
// Source. ColumnNames/Expressions are only meaningful for
// INSERT/UPDATE (the columns being written and the expressions
// supplying their values).
type Modify struct {
	EntityRef     string
	Operation     ModifyOperation
	Source        RelNode
	ColumnNames   []string
	Expressions   []RexNode
}

// NewModify builds a Modify node.
func NewModify(entityRef string, op ModifyOperation, source RelNode, columnNames []string, expressions []RexNode) *Modify {
	return &Modify{EntityRef: entityRef, Operation: op, Source: source, ColumnNames: columnNames, Expressions: expressions}
}

func (n *Modify) Kind() RelKind     { return KindModify }
func (n *Modify) Inputs() []RelNode { return []RelNode{n.Source} }
func (n *Modify) RowType() RowType {
	return RowType{{Name: "ROWCOUNT", Type: nil}}
}
func (n *Modify) Traits() TraitSet         { return TraitSet{Convention: n.Source.Traits().Convention} }
func (n *Modify) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Modify) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: Modify takes exactly one input")
	}
	cp := *n
	cp.Source = newInputs[0]
	return &cp
}

func (n *Modify) Explain(w io.Writer) {
	fmt.Fprintf(w, "Modify(%s %s, columns=%s)", n.Operation, n.EntityRef, strings.Join(n.ColumnNames, ","))
}

func (n *Modify) ComputeSelfCost(mq MetadataQuery) Cost {
	rows := mq.RowCount(n.Source)
	return Cost{Rows: rows, IO: rows}
}

func (n *Modify) Digest() string {
	return digestOf(KindModify, []string{n.EntityRef, string(n.Operation), strings.Join(n.ColumnNames, ",")}, []RelNode{n.Source})
}

// ErrorKind names why a ConstraintEnforcer's control subplan rejected
// a row (spec.md §4.3, §4.7 constraint enforcement).
type ErrorKind string

const (
	ErrorUniqueViolation     ErrorKind = "UNIQUE_VIOLATION"
	ErrorForeignKeyViolation ErrorKind = "FOREIGN_KEY_VIOLATION"
)

// ConstraintEnforcer wraps a Modify with a Control subplan that must
// produce zero rows for the Modify to be allowed to proceed; a
// nonempty Control result means a constraint listed in ErrorKinds was
// violated, and the enforcer raises the matching ErrorMessages entry
// (component C8).
type ConstraintEnforcer struct {
	ModifyNode    *Modify
	Control       RelNode
	ErrorKinds    []ErrorKind
	ErrorMessages []string
}

// NewConstraintEnforcer builds a ConstraintEnforcer wrapping modify.
func NewConstraintEnforcer(modify *Modify, control RelNode, errorKinds []ErrorKind, errorMessages []string) *ConstraintEnforcer {
	return &ConstraintEnforcer{ModifyNode: modify, Control: control, ErrorKinds: errorKinds, ErrorMessages: errorMessages}
}

func (n *ConstraintEnforcer) Kind() RelKind     { return KindConstraintEnforcer }
func (n *ConstraintEnforcer) Inputs() []RelNode { return []RelNode{n.ModifyNode, n.Control} }
func (n *ConstraintEnforcer) RowType() RowType  { return n.ModifyNode.RowType() }
func (n *ConstraintEnforcer) Traits() TraitSet  { return n.ModifyNode.Traits() }
func (n *ConstraintEnforcer) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *ConstraintEnforcer) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 2 {
		panic("algebra: ConstraintEnforcer takes exactly two inputs (modify, control)")
	}
	modify, ok := newInputs[0].(*Modify)
	if !ok {
		panic("algebra: ConstraintEnforcer's first input must be a Modify")
	}
	cp := *n
	cp.ModifyNode = modify
	cp.Control = newInputs[1]
	return &cp
}

func (n *ConstraintEnforcer) Explain(w io.Writer) {
	fmt.Fprintf(w, "ConstraintEnforcer(kinds=%v)", n.ErrorKinds)
}

func (n *ConstraintEnforcer) ComputeSelfCost(mq MetadataQuery) Cost {
	return Cost{CPU: mq.RowCount(n.Control)}
}

func (n *ConstraintEnforcer) Digest() string {
	parts := make([]string, 0, len(n.ErrorKinds))
	for _, k := range n.ErrorKinds {
		parts = append(parts, string(k))
	}
	return digestOf(KindConstraintEnforcer, parts, []RelNode{n.ModifyNode, n.Control})
}

package algebra

import (
	"fmt"
	"io"
)

// TableScan reads every row of a catalog table. EntityRef names the
// table by catalog id rather than embedding a live *catalog.Table, so
// that algebra has no import-time dependency on the catalog package.
type TableScan struct {
	EntityRef string // opaque "schema.table" or catalog id string
	Row       RowType
	TraitSet  TraitSet
	RowsHint  float64 // planner-independent cardinality estimate, from catalog statistics
}

// NewTableScan builds a leaf scan over entityRef.
func NewTableScan(entityRef string, row RowType, traits TraitSet, rowsHint float64) *TableScan {
	return &TableScan{EntityRef: entityRef, Row: row, TraitSet: traits, RowsHint: rowsHint}
}

func (n *TableScan) Kind() RelKind           { return KindTableScan }
func (n *TableScan) Inputs() []RelNode       { return nil }
func (n *TableScan) RowType() RowType        { return n.Row }
func (n *TableScan) Traits() TraitSet        { return n.TraitSet }
func (n *TableScan) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *TableScan) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 0 {
		panic("algebra: TableScan takes no inputs")
	}
	return n
}

func (n *TableScan) Explain(w io.Writer) {
	fmt.Fprintf(w, "TableScan(entity=%s, rows~%.0f)", n.EntityRef, n.RowsHint)
}

func (n *TableScan) ComputeSelfCost(mq MetadataQuery) Cost {
	return Cost{Rows: n.RowsHint, CPU: n.RowsHint, IO: n.RowsHint}
}

func (n *TableScan) Digest() string {
	return digestOf(KindTableScan, []string{n.EntityRef, string(n.TraitSet.Convention)}, nil)
}

// Values is a leaf node producing a fixed, literal set of rows — used
// both for VALUES clauses and as the canonical "empty relation of a
// given shape" produced by Filter(false) (spec.md §4.3 simplification
// law).
type Values struct {
	Row  RowType
	Rows [][]RexNode
}

// NewValues builds a Values node. An empty rows slice denotes the
// empty relation of shape row.
func NewValues(row RowType, rows [][]RexNode) *Values {
	return &Values{Row: row, Rows: rows}
}

// EmptyValues builds the canonical empty relation of shape row, the
// target of the Filter(false) simplification law.
func EmptyValues(row RowType) *Values {
	return &Values{Row: row, Rows: nil}
}

func (n *Values) Kind() RelKind            { return KindValues }
func (n *Values) Inputs() []RelNode        { return nil }
func (n *Values) RowType() RowType         { return n.Row }
func (n *Values) Traits() TraitSet         { return TraitSet{Convention: ConventionLogical} }
func (n *Values) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Values) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 0 {
		panic("algebra: Values takes no inputs")
	}
	return n
}

func (n *Values) Explain(w io.Writer) {
	fmt.Fprintf(w, "Values(rows=%d)", len(n.Rows))
}

func (n *Values) ComputeSelfCost(mq MetadataQuery) Cost {
	return Cost{Rows: float64(len(n.Rows))}
}

func (n *Values) Digest() string {
	parts := []string{rowTypeDigest(n.Row), fmt.Sprintf("n=%d", len(n.Rows))}
	for _, row := range n.Rows {
		for _, v := range row {
			parts = append(parts, v.String())
		}
	}
	return digestOf(KindValues, parts, nil)
}

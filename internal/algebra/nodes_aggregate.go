package algebra

import (
	"fmt"
	"io"
	"strings"

	"polyplan/internal/types"
)

// AggCall is one aggregate function application within an Aggregate
// node (e.g. SUM($2), COUNT(*)).
type AggCall struct {
	FuncName string
	Args     []int // field indexes into the input row, empty for COUNT(*)
	Distinct bool
	RexType  *types.Type
}

func (c AggCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprintf("$%d", a)
	}
	distinct := ""
	if c.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", c.FuncName, distinct, strings.Join(args, ", "))
}

// Aggregate groups rows by GroupKeys and computes AggCalls per group.
// GroupingSets supports GROUPING SETS/ROLLUP/CUBE: each entry is a
// subset of GroupKeys' positions that forms one grouping; a single
// entry equal to all positions is a plain GROUP BY.
type Aggregate struct {
	Input         RelNode
	GroupKeys     []int
	GroupingSets  [][]int
	AggCalls      []AggCall
	Row           RowType
}

// NewAggregate builds an Aggregate node. If groupingSets is nil, it
// defaults to the single grouping set containing every group key.
func NewAggregate(input RelNode, groupKeys []int, groupingSets [][]int, aggCalls []AggCall, row RowType) *Aggregate {
	if groupingSets == nil {
		groupingSets = [][]int{append([]int(nil), groupKeys...)}
	}
	return &Aggregate{Input: input, GroupKeys: groupKeys, GroupingSets: groupingSets, AggCalls: aggCalls, Row: row}
}

func (n *Aggregate) Kind() RelKind            { return KindAggregate }
func (n *Aggregate) Inputs() []RelNode        { return []RelNode{n.Input} }
func (n *Aggregate) RowType() RowType         { return n.Row }
func (n *Aggregate) Traits() TraitSet         { return TraitSet{Convention: n.Input.Traits().Convention} }
func (n *Aggregate) Accept(v Visitor) RelNode { return dispatch(n, v) }

func (n *Aggregate) WithInputs(newInputs []RelNode) RelNode {
	if len(newInputs) != 1 {
		panic("algebra: Aggregate takes exactly one input")
	}
	cp := *n
	cp.Input = newInputs[0]
	return &cp
}

func (n *Aggregate) Explain(w io.Writer) {
	calls := make([]string, len(n.AggCalls))
	for i, c := range n.AggCalls {
		calls[i] = c.String()
	}
	fmt.Fprintf(w, "Aggregate(group=%v, calls=[%s])", n.GroupKeys, strings.Join(calls, ", "))
}

func (n *Aggregate) ComputeSelfCost(mq MetadataQuery) Cost {
	inRows := mq.RowCount(n.Input)
	return Cost{CPU: inRows * float64(1+len(n.AggCalls)), Rows: inRows}
}

func (n *Aggregate) Digest() string {
	parts := []string{fmt.Sprintf("group=%v", n.GroupKeys), fmt.Sprintf("sets=%v", n.GroupingSets)}
	for _, c := range n.AggCalls {
		parts = append(parts, c.String())
	}
	return digestOf(KindAggregate, parts, []RelNode{n.Input})
}

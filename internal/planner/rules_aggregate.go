package planner

import "polyplan/internal/algebra"

// aggregatePullupThroughUnionRule rewrites
// Aggregate(SetOp(UNION, all=true, a, b)) into
// SetOp(UNION, all=true, Aggregate(a), Aggregate(b)) followed by a
// re-aggregation, letting each union branch's partial aggregate be
// pushed to its own store before the results are combined (spec.md
// §4.4 "aggregate-pullup through union").
type aggregatePullupThroughUnionRule struct{}

func (aggregatePullupThroughUnionRule) ID() RuleID { return RuleAggregatePullupThroughUnion }

func (aggregatePullupThroughUnionRule) Matches(n algebra.RelNode) bool {
	agg, ok := n.(*algebra.Aggregate)
	if !ok {
		return false
	}
	setOp, ok := agg.Input.(*algebra.SetOp)
	return ok && setOp.SetKind == algebra.SetOpUnion && setOp.All
}

func (aggregatePullupThroughUnionRule) OnMatch(call RuleCall) []algebra.RelNode {
	agg := call.Node.(*algebra.Aggregate)
	setOp := agg.Input.(*algebra.SetOp)

	partials := make([]algebra.RelNode, len(setOp.SetInputs))
	for i, in := range setOp.SetInputs {
		partials[i] = algebra.NewAggregate(in, agg.GroupKeys, agg.GroupingSets, agg.AggCalls, agg.Row)
	}
	unioned := algebra.SimplifySetOp(algebra.SetOpUnion, true, partials)
	final := algebra.NewAggregate(unioned, agg.GroupKeys, agg.GroupingSets, agg.AggCalls, agg.Row)
	return []algebra.RelNode{final}
}

// distinctToGroupByRule rewrites a DISTINCT Project into an Aggregate
// over the same, non-distinct Project, grouping by every output field
// with no aggregate calls, so downstream rules only need to reason
// about the group-by shape (spec.md §4.4 "convert DISTINCT to
// group-by").
type distinctToGroupByRule struct{}

func (distinctToGroupByRule) ID() RuleID { return RuleDistinctToGroupBy }

func (distinctToGroupByRule) Matches(n algebra.RelNode) bool {
	proj, ok := n.(*algebra.Project)
	return ok && proj.Distinct
}

func (distinctToGroupByRule) OnMatch(call RuleCall) []algebra.RelNode {
	proj := call.Node.(*algebra.Project)
	groupKeys := make([]int, len(proj.Projects))
	for i := range proj.Projects {
		groupKeys[i] = i
	}
	projected := algebra.NewProject(proj.Input, proj.Projects, proj.Row)
	return []algebra.RelNode{algebra.NewAggregate(projected, groupKeys, nil, nil, proj.Row)}
}

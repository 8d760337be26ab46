package planner

import "polyplan/internal/algebra"

// pushProjectPastFilterRule pushes a Project below a Filter when the
// Filter's condition only references fields the Project keeps,
// reducing the width of rows the Filter has to evaluate.
type pushProjectPastFilterRule struct{}

func (pushProjectPastFilterRule) ID() RuleID { return RulePushProjectPastFilter }

func (pushProjectPastFilterRule) Matches(n algebra.RelNode) bool {
	proj, ok := n.(*algebra.Project)
	if !ok {
		return false
	}
	_, ok = proj.Input.(*algebra.Filter)
	return ok
}

func (pushProjectPastFilterRule) OnMatch(call RuleCall) []algebra.RelNode {
	proj := call.Node.(*algebra.Project)
	filter := proj.Input.(*algebra.Filter)

	// Only safe to commute when every projected expression is a plain
	// field reference (no computed expressions depend on the filtered
	// rows in a way that would change if evaluated earlier).
	mapping := make(map[int]int, len(proj.Projects))
	for i, p := range proj.Projects {
		ref, ok := p.(*algebra.RexIndexRefNode)
		if !ok {
			return nil
		}
		if _, dup := mapping[ref.Index]; !dup {
			mapping[ref.Index] = i
		}
	}
	for idx := range collectIndexRefs(filter.Condition) {
		if _, ok := mapping[idx]; !ok {
			return nil
		}
	}
	pushedProject := algebra.NewProject(filter.Input, proj.Projects, proj.Row)
	newFilter := algebra.SimplifyFilter(pushedProject, remapIndexRefs(filter.Condition, mapping))
	return []algebra.RelNode{newFilter}
}

// pushProjectPastJoinRule narrows a Join's two inputs to only the
// fields the projection above it (and the join condition itself)
// actually reference, wrapping each side in a Project and rewriting
// the join condition's field indexes to the compacted row. It only
// fires when every projected expression is a plain field reference,
// same restriction pushProjectPastFilterRule applies.
type pushProjectPastJoinRule struct{}

func (pushProjectPastJoinRule) ID() RuleID { return RulePushProjectPastJoin }

func (pushProjectPastJoinRule) Matches(n algebra.RelNode) bool {
	proj, ok := n.(*algebra.Project)
	if !ok {
		return false
	}
	_, ok = proj.Input.(*algebra.Join)
	return ok
}

func (pushProjectPastJoinRule) OnMatch(call RuleCall) []algebra.RelNode {
	proj := call.Node.(*algebra.Project)
	join := proj.Input.(*algebra.Join)

	for _, p := range proj.Projects {
		if _, ok := p.(*algebra.RexIndexRefNode); !ok {
			return nil
		}
	}

	leftWidth := len(join.Left.RowType())
	rightWidth := len(join.Right.RowType())

	needed := make(map[int]bool)
	for _, p := range proj.Projects {
		needed[p.(*algebra.RexIndexRefNode).Index] = true
	}
	for idx := range collectIndexRefs(join.Condition) {
		needed[idx] = true
	}

	leftKeep := keepIndexesIn(needed, 0, leftWidth)
	rightKeepAbs := keepIndexesIn(needed, leftWidth, leftWidth+rightWidth)
	if len(leftKeep) == leftWidth && len(rightKeepAbs) == rightWidth {
		return nil
	}

	rightKeepRel := make([]int, len(rightKeepAbs))
	for i, idx := range rightKeepAbs {
		rightKeepRel[i] = idx - leftWidth
	}

	mapping := make(map[int]int, len(leftKeep)+len(rightKeepAbs))
	newLeft := join.Left
	if len(leftKeep) < leftWidth {
		newLeft = narrowFields(join.Left, leftKeep)
	}
	for i, old := range leftKeep {
		mapping[old] = i
	}

	newRight := join.Right
	if len(rightKeepRel) < rightWidth {
		newRight = narrowFields(join.Right, rightKeepRel)
	}
	for i, old := range rightKeepAbs {
		mapping[old] = len(leftKeep) + i
	}

	newJoin := algebra.NewJoin(newLeft, newRight, remapIndexRefs(join.Condition, mapping), join.JoinType)

	newProjects := make([]algebra.RexNode, len(proj.Projects))
	for i, p := range proj.Projects {
		ref := p.(*algebra.RexIndexRefNode)
		newProjects[i] = algebra.NewIndexRef(mapping[ref.Index], ref.RexType)
	}
	return []algebra.RelNode{algebra.NewProject(newJoin, newProjects, proj.Row)}
}

// pushProjectPastAggregateRule drops AggCalls an Aggregate computes but
// nothing above it references, narrowing the node before the (possibly
// expensive) aggregate functions run. Group keys are never dropped:
// they determine the grouping itself, not just an output column, so
// only the AggCalls portion of an Aggregate's row (the fields at
// indexes [len(GroupKeys), len(Row))) is eligible for pruning.
type pushProjectPastAggregateRule struct{}

func (pushProjectPastAggregateRule) ID() RuleID { return RulePushProjectPastAggregate }

func (pushProjectPastAggregateRule) Matches(n algebra.RelNode) bool {
	proj, ok := n.(*algebra.Project)
	if !ok {
		return false
	}
	_, ok = proj.Input.(*algebra.Aggregate)
	return ok
}

func (pushProjectPastAggregateRule) OnMatch(call RuleCall) []algebra.RelNode {
	proj := call.Node.(*algebra.Project)
	agg := proj.Input.(*algebra.Aggregate)

	for _, p := range proj.Projects {
		if _, ok := p.(*algebra.RexIndexRefNode); !ok {
			return nil
		}
	}

	keyWidth := len(agg.GroupKeys)

	needed := make(map[int]bool)
	for _, p := range proj.Projects {
		needed[p.(*algebra.RexIndexRefNode).Index] = true
	}

	keepCalls := keepIndexesIn(needed, keyWidth, len(agg.Row))
	if len(keepCalls) == len(agg.AggCalls) {
		return nil
	}

	newAggCalls := make([]algebra.AggCall, len(keepCalls))
	newRow := make(algebra.RowType, keyWidth+len(keepCalls))
	copy(newRow, agg.Row[:keyWidth])
	mapping := make(map[int]int, keyWidth+len(keepCalls))
	for i := 0; i < keyWidth; i++ {
		mapping[i] = i
	}
	for i, old := range keepCalls {
		newAggCalls[i] = agg.AggCalls[old-keyWidth]
		newRow[keyWidth+i] = agg.Row[old]
		mapping[old] = keyWidth + i
	}

	newAgg := algebra.NewAggregate(agg.Input, agg.GroupKeys, agg.GroupingSets, newAggCalls, newRow)

	newProjects := make([]algebra.RexNode, len(proj.Projects))
	for i, p := range proj.Projects {
		ref := p.(*algebra.RexIndexRefNode)
		newProjects[i] = algebra.NewIndexRef(mapping[ref.Index], ref.RexType)
	}
	return []algebra.RelNode{algebra.NewProject(newAgg, newProjects, proj.Row)}
}

// keepIndexesIn returns, in ascending order, every index in [lo, hi)
// that needed marks as referenced.
func keepIndexesIn(needed map[int]bool, lo, hi int) []int {
	var out []int
	for i := lo; i < hi; i++ {
		if needed[i] {
			out = append(out, i)
		}
	}
	return out
}

// narrowFields wraps node in a Project keeping only the fields at
// keep (indexes relative to node's own row type), in order.
func narrowFields(node algebra.RelNode, keep []int) algebra.RelNode {
	row := node.RowType()
	newRow := make(algebra.RowType, len(keep))
	projects := make([]algebra.RexNode, len(keep))
	for i, idx := range keep {
		newRow[i] = row[idx]
		projects[i] = algebra.NewIndexRef(idx, row[idx].Type)
	}
	return algebra.NewProject(node, projects, newRow)
}

// remapIndexRefs rewrites every RexIndexRefNode in n through mapping,
// building new Call nodes as needed. It does not check that every
// index is in mapping: a missing index is rewritten to 0, the map's
// zero value.
func remapIndexRefs(n algebra.RexNode, mapping map[int]int) algebra.RexNode {
	switch t := n.(type) {
	case *algebra.RexIndexRefNode:
		return algebra.NewIndexRef(mapping[t.Index], t.RexType)
	case *algebra.RexCallNode:
		newOperands := make([]algebra.RexNode, len(t.Operands))
		for i, o := range t.Operands {
			newOperands[i] = remapIndexRefs(o, mapping)
		}
		return &algebra.RexCallNode{Op: t.Op, Operands: newOperands, RexType: t.RexType}
	default:
		return n
	}
}

// pruneUnreferencedColumnsRule drops columns a TableScan's row type
// carries but nothing above it references, by wrapping the scan in a
// narrower Project. It only fires on leaves to keep the rewrite local
// and composable with pushProjectPastFilterRule/pushProjectPastJoinRule.
type pruneUnreferencedColumnsRule struct {
	// Referenced maps a TableScan's EntityRef to the set of field
	// indexes actually used by the plan, supplied up front as the
	// referenced argument of DefaultRuleCatalog; this keeps the rule
	// itself a pure pattern/rewrite pair
	// instead of needing to walk the whole plan to compute liveness.
	Referenced map[string]map[int]bool
}

func (pruneUnreferencedColumnsRule) ID() RuleID { return RulePruneUnreferencedColumns }

func (r pruneUnreferencedColumnsRule) Matches(n algebra.RelNode) bool {
	scan, ok := n.(*algebra.TableScan)
	if !ok {
		return false
	}
	used, ok := r.Referenced[scan.EntityRef]
	return ok && len(used) < len(scan.Row)
}

func (r pruneUnreferencedColumnsRule) OnMatch(call RuleCall) []algebra.RelNode {
	scan := call.Node.(*algebra.TableScan)
	used := r.Referenced[scan.EntityRef]

	keep := make([]int, 0, len(used))
	for i := range scan.Row {
		if used[i] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(scan.Row) {
		return nil
	}

	row := make(algebra.RowType, len(keep))
	projects := make([]algebra.RexNode, len(keep))
	for i, idx := range keep {
		row[i] = scan.Row[idx]
		projects[i] = algebra.NewIndexRef(idx, scan.Row[idx].Type)
	}
	return []algebra.RelNode{algebra.NewProject(scan, projects, row)}
}

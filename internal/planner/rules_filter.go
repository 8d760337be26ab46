package planner

import "polyplan/internal/algebra"

// pushFilterPastProjectRule commutes Filter(Project(x)) into
// Project(Filter(x)) when the project is an identity projection,
// letting the filter discard rows before the projection runs. Any
// other project is left in place.
type pushFilterPastProjectRule struct{}

func (pushFilterPastProjectRule) ID() RuleID { return RulePushFilterPastProject }

func (pushFilterPastProjectRule) Matches(n algebra.RelNode) bool {
	filter, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	_, ok = filter.Input.(*algebra.Project)
	return ok
}

func (pushFilterPastProjectRule) OnMatch(call RuleCall) []algebra.RelNode {
	filter := call.Node.(*algebra.Filter)
	proj := filter.Input.(*algebra.Project)
	if !proj.IsIdentity() {
		return nil
	}
	pushed := algebra.SimplifyFilter(proj.Input, filter.Condition)
	return []algebra.RelNode{algebra.NewProject(pushed, proj.Projects, proj.Row)}
}

// pushFilterPastJoinRule pushes a Filter below a Join when the
// condition only references one side's fields (the classic selection
// pushdown). It never pushes into the null-supplying side of an outer
// join, since that would change which rows the outer join pads with
// NULLs (spec.md §4.4 "with correctness-preserving conditions on outer
// joins").
type pushFilterPastJoinRule struct{}

func (pushFilterPastJoinRule) ID() RuleID { return RulePushFilterPastJoin }

func (pushFilterPastJoinRule) Matches(n algebra.RelNode) bool {
	filter, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	_, ok = filter.Input.(*algebra.Join)
	return ok
}

func (pushFilterPastJoinRule) OnMatch(call RuleCall) []algebra.RelNode {
	filter := call.Node.(*algebra.Filter)
	join := filter.Input.(*algebra.Join)

	leftWidth := len(join.Left.RowType())
	refs := collectIndexRefs(filter.Condition)
	if len(refs) == 0 {
		return nil
	}

	allLeft, allRight := true, true
	for idx := range refs {
		if idx >= leftWidth {
			allLeft = false
		} else {
			allRight = false
		}
	}

	switch {
	case allLeft && (join.JoinType == algebra.JoinInner || join.JoinType == algebra.JoinLeft):
		newLeft := algebra.SimplifyFilter(join.Left, filter.Condition)
		return []algebra.RelNode{join.WithInputs([]algebra.RelNode{newLeft, join.Right})}
	case allRight && (join.JoinType == algebra.JoinInner || join.JoinType == algebra.JoinRight):
		shifted := shiftIndexRefs(filter.Condition, -leftWidth)
		newRight := algebra.SimplifyFilter(join.Right, shifted)
		return []algebra.RelNode{join.WithInputs([]algebra.RelNode{join.Left, newRight})}
	default:
		return nil
	}
}

// pushFilterPastSetOpRule distributes a Filter over every input of a
// SetOp: filter(union(a, b)) = union(filter(a), filter(b)).
type pushFilterPastSetOpRule struct{}

func (pushFilterPastSetOpRule) ID() RuleID { return RulePushFilterPastSetOp }

func (pushFilterPastSetOpRule) Matches(n algebra.RelNode) bool {
	filter, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	_, ok = filter.Input.(*algebra.SetOp)
	return ok
}

func (pushFilterPastSetOpRule) OnMatch(call RuleCall) []algebra.RelNode {
	filter := call.Node.(*algebra.Filter)
	setOp := filter.Input.(*algebra.SetOp)

	newInputs := make([]algebra.RelNode, len(setOp.SetInputs))
	for i, in := range setOp.SetInputs {
		newInputs[i] = algebra.SimplifyFilter(in, filter.Condition)
	}
	return []algebra.RelNode{algebra.SimplifySetOp(setOp.SetKind, setOp.All, newInputs)}
}

// collectIndexRefs returns the set of field indexes n (transitively)
// references via RexIndexRefNode.
func collectIndexRefs(n algebra.RexNode) map[int]bool {
	out := make(map[int]bool)
	collectIndexRefsInto(n, out)
	return out
}

func collectIndexRefsInto(n algebra.RexNode, out map[int]bool) {
	switch t := n.(type) {
	case *algebra.RexIndexRefNode:
		out[t.Index] = true
	case *algebra.RexCallNode:
		for _, o := range t.Operands {
			collectIndexRefsInto(o, out)
		}
	}
}

// shiftIndexRefs rewrites every RexIndexRefNode in n by delta,
// building new Call nodes as needed. It panics if shifting a Call
// fails type inference, which should never happen since shifting does
// not change operand types.
func shiftIndexRefs(n algebra.RexNode, delta int) algebra.RexNode {
	switch t := n.(type) {
	case *algebra.RexIndexRefNode:
		return algebra.NewIndexRef(t.Index+delta, t.RexType)
	case *algebra.RexCallNode:
		newOperands := make([]algebra.RexNode, len(t.Operands))
		for i, o := range t.Operands {
			newOperands[i] = shiftIndexRefs(o, delta)
		}
		return &algebra.RexCallNode{Op: t.Op, Operands: newOperands, RexType: t.RexType}
	default:
		return n
	}
}

package planner

import "polyplan/internal/algebra"

// joinReorderRule rewrites a left-deep chain of inner joins into its
// right-deep form (and vice versa via repeated application), bounded
// by Window inputs, so the planner can explore bushy alternatives
// without the factorial blowup of considering every permutation at
// once (spec.md §4.4 "bounded by a heuristic window").
type joinReorderRule struct {
	// Window overrides JoinReorderWindow; zero means use the default.
	Window int
}

func (joinReorderRule) ID() RuleID { return RuleJoinReorder }

func (r joinReorderRule) window() int {
	if r.Window > 0 {
		return r.Window
	}
	return JoinReorderWindow
}

func (joinReorderRule) Matches(n algebra.RelNode) bool {
	top, ok := n.(*algebra.Join)
	if !ok || top.JoinType != algebra.JoinInner {
		return false
	}
	left, ok := top.Left.(*algebra.Join)
	return ok && left.JoinType == algebra.JoinInner
}

// OnMatch applies the standard left-rotation: Join(Join(A,B,c1), C,
// c2) becomes Join(A, Join(B,C,c2'), c1') when c2 only references B
// and C's fields (the rotation that keeps both conditions evaluable
// without a cross join). Inputs beyond the window are left untouched;
// only the window's worth of leaves are considered for one rotation
// step.
func (r joinReorderRule) OnMatch(call RuleCall) []algebra.RelNode {
	top := call.Node.(*algebra.Join)
	left := top.Left.(*algebra.Join)
	window := r.window()

	leaves := countLeaves(top, 0, window)
	if leaves > window {
		return nil
	}

	aWidth := len(left.Left.RowType())
	refs := collectIndexRefs(top.Condition)

	usesA := false
	for idx := range refs {
		if idx < aWidth {
			usesA = true
		}
	}
	if usesA {
		// top.Condition touches A's fields directly; rotating would
		// strand that reference across the new join boundary, so this
		// particular chain cannot be rotated without an extra rewrite
		// this rule does not attempt.
		return nil
	}

	// Condition only touches B/C (shifted by aWidth relative to the
	// rotated tree): build Join(B, C, top.Condition shifted by -aWidth)
	// and Join(A, that, left.Condition).
	shiftedTopCond := shiftIndexRefs(top.Condition, -aWidth)
	innerBC := algebra.NewJoin(left.Right, top.Right, shiftedTopCond, algebra.JoinInner)
	rotated := algebra.NewJoin(left.Left, innerBC, left.Condition, algebra.JoinInner)
	return []algebra.RelNode{rotated}
}

func countLeaves(n algebra.RelNode, depth, window int) int {
	if depth > window {
		return depth
	}
	join, ok := n.(*algebra.Join)
	if !ok {
		return 1
	}
	return countLeaves(join.Left, depth+1, window) + countLeaves(join.Right, depth+1, window)
}

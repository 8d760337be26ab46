package planner

import "polyplan/internal/algebra"

// constantFoldRule replaces a Filter whose condition has folded down
// to a literal TRUE/FALSE by the simplification laws, and also folds
// NOT NOT x ≡ x wherever it appears as a top-level Filter condition
// (spec.md §4.3, §4.4 "constant folding and short-circuit
// simplification on Rex trees").
type constantFoldRule struct{}

func (constantFoldRule) ID() RuleID { return RuleConstantFold }

func (constantFoldRule) Matches(n algebra.RelNode) bool {
	filter, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	if algebra.IsTrue(filter.Condition) || algebra.IsFalse(filter.Condition) {
		return true
	}
	_, rewritten := algebra.SimplifyNot(filter.Condition)
	return rewritten
}

func (constantFoldRule) OnMatch(call RuleCall) []algebra.RelNode {
	filter := call.Node.(*algebra.Filter)
	if algebra.IsTrue(filter.Condition) || algebra.IsFalse(filter.Condition) {
		return []algebra.RelNode{algebra.SimplifyFilter(filter.Input, filter.Condition)}
	}
	if simplified, ok := algebra.SimplifyNot(filter.Condition); ok {
		return []algebra.RelNode{algebra.NewFilter(filter.Input, simplified)}
	}
	return nil
}

// shortCircuitBooleanRule dedups repeated conjuncts in an AND call
// directly under a Filter (spec.md §4.3's "duplicate conjuncts in AND
// are idempotent").
type shortCircuitBooleanRule struct{}

func (shortCircuitBooleanRule) ID() RuleID { return RuleShortCircuitBoolean }

func (shortCircuitBooleanRule) Matches(n algebra.RelNode) bool {
	filter, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	call, ok := filter.Condition.(*algebra.RexCallNode)
	if !ok || call.Op.Name != "AND" {
		return false
	}
	deduped := algebra.SimplifyAnd(call.Operands)
	return len(deduped) != len(call.Operands)
}

func (shortCircuitBooleanRule) OnMatch(call RuleCall) []algebra.RelNode {
	filter := call.Node.(*algebra.Filter)
	andCall := filter.Condition.(*algebra.RexCallNode)
	deduped := algebra.SimplifyAnd(andCall.Operands)
	if len(deduped) == 1 {
		return []algebra.RelNode{algebra.NewFilter(filter.Input, deduped[0])}
	}
	rewritten := &algebra.RexCallNode{Op: andCall.Op, Operands: deduped, RexType: andCall.RexType}
	return []algebra.RelNode{algebra.NewFilter(filter.Input, rewritten)}
}

// DefaultRuleCatalog returns the minimum rule set spec.md §4.4
// requires, in the order listed there. referenced, when non-nil,
// drives pruneUnreferencedColumnsRule's column-liveness pruning; pass
// nil to skip that rule (e.g. when the caller hasn't computed liveness
// yet). joinReorderWindow overrides RuleJoinReorder's heuristic window
// (spec.md §4.4 Open Question, config.RuntimeConfig.MaxJoinReorderInputs);
// zero or negative uses JoinReorderWindow.
func DefaultRuleCatalog(referenced map[string]map[int]bool, joinReorderWindow int) []Rule {
	rules := []Rule{
		pushProjectPastFilterRule{},
		pushProjectPastJoinRule{},
		pushProjectPastAggregateRule{},
		pushFilterPastProjectRule{},
		pushFilterPastJoinRule{},
		pushFilterPastSetOpRule{},
		joinReorderRule{Window: joinReorderWindow},
		aggregatePullupThroughUnionRule{},
		distinctToGroupByRule{},
		constantFoldRule{},
		shortCircuitBooleanRule{},
	}
	if referenced != nil {
		rules = append(rules, pruneUnreferencedColumnsRule{Referenced: referenced})
	}
	return rules
}

// Package planner implements the cost-based rule-driven planner
// (component C4): equivalence sets, a priority-queue-driven rule
// search bounded by a configured iteration budget, convention
// conversion, and the minimum rule catalog spec.md §4.4 requires.
//
// The search loop and RuleID enumeration style are grounded on the
// teacher corpus's own multi-phase toolchain: internal/apply/analyzer.go
// runs a fixed battery of named passes over a parsed statement, and the
// rule catalog here plays the same role for a RelNode tree, generalized
// from a one-shot linear pass into a cost-driven fixpoint search.
package planner

import (
	"fmt"

	"polyplan/internal/algebra"
)

// RuleID names a rule for logging, rule-set configuration and
// duplicate-suppression bookkeeping, mirroring the flat enumerated
// RuleId lists the wider SQL-engine ecosystem uses for its own
// optimizer passes.
type RuleID int

const (
	RulePushProjectPastFilter RuleID = iota
	RulePushProjectPastJoin
	RulePushProjectPastAggregate
	RulePruneUnreferencedColumns
	RulePushFilterPastProject
	RulePushFilterPastJoin
	RulePushFilterPastSetOp
	RuleJoinReorder
	RuleAggregatePullupThroughUnion
	RuleDistinctToGroupBy
	RuleConstantFold
	RuleShortCircuitBoolean
	RuleConventionConversion
)

func (id RuleID) String() string {
	switch id {
	case RulePushProjectPastFilter:
		return "PushProjectPastFilter"
	case RulePushProjectPastJoin:
		return "PushProjectPastJoin"
	case RulePushProjectPastAggregate:
		return "PushProjectPastAggregate"
	case RulePruneUnreferencedColumns:
		return "PruneUnreferencedColumns"
	case RulePushFilterPastProject:
		return "PushFilterPastProject"
	case RulePushFilterPastJoin:
		return "PushFilterPastJoin"
	case RulePushFilterPastSetOp:
		return "PushFilterPastSetOp"
	case RuleJoinReorder:
		return "JoinReorder"
	case RuleAggregatePullupThroughUnion:
		return "AggregatePullupThroughUnion"
	case RuleDistinctToGroupBy:
		return "DistinctToGroupBy"
	case RuleConstantFold:
		return "ConstantFold"
	case RuleShortCircuitBoolean:
		return "ShortCircuitBoolean"
	case RuleConventionConversion:
		return "ConventionConversion"
	default:
		return fmt.Sprintf("Rule(%d)", int(id))
	}
}

// RuleCall is the context a Rule's OnMatch receives: the matched node
// and the planner it should register newly produced equivalents into.
type RuleCall struct {
	Node    algebra.RelNode
	Planner *Planner
}

// Rule is {pattern, matches(op), onMatch(call) -> zero or more
// equivalent expressions} (spec.md §4.4).
type Rule interface {
	ID() RuleID
	Matches(n algebra.RelNode) bool
	OnMatch(call RuleCall) []algebra.RelNode
}

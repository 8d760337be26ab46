package algebra

// SimplifyAnd applies the AND simplification laws from spec.md §4.3:
// duplicate conjuncts are idempotent, so repeats are dropped and the
// first occurrence of each keeps its place. An empty input yields an
// empty slice; no TRUE literal is produced. Operands are assumed
// already individually simplified.
func SimplifyAnd(operands []RexNode) []RexNode {
	seen := make(map[string]bool, len(operands))
	out := make([]RexNode, 0, len(operands))
	for _, o := range operands {
		key := o.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}

// SimplifyNot collapses a double negation: NOT(NOT(x)) ≡ x. It returns
// the simplified node and true if a rewrite occurred.
func SimplifyNot(operand RexNode) (RexNode, bool) {
	call, ok := operand.(*RexCallNode)
	if !ok || call.Op.Name != "NOT" || len(call.Operands) != 1 {
		return operand, false
	}
	inner, ok := call.Operands[0].(*RexCallNode)
	if !ok || inner.Op.Name != "NOT" || len(inner.Operands) != 1 {
		return operand, false
	}
	return inner.Operands[0], true
}

// Package builder provides a fluent, stack-based way to assemble
// algebra plans, applying the peephole simplifications spec.md §4.9
// expects of a builder API (filter/project folding, dead no-ops
// dropped) as each call is made rather than as a later optimizer
// pass. There is no teacher analogue for this component; it is built
// directly against internal/algebra's simplification helpers the same
// way internal/router and internal/enforcer are.
package builder

import (
	"fmt"

	"polyplan/internal/algebra"
	"polyplan/internal/types"
)

var andOperator = algebra.Operator{
	Name: "AND",
	InferType: func(f *types.Factory, operands []*types.Type) (*types.Type, error) {
		return f.Simple(types.Boolean), nil
	},
}

// fieldRange locates an aliased relation's fields within the row of
// the stack frame that introduced or inherited the alias.
type fieldRange struct {
	offset int
	fields algebra.RowType
}

// frame is one entry of the builder's stack. filterBase and
// pendingConjuncts let consecutive Filter calls collapse into a
// single Filter node instead of nesting (spec.md §4.9 "duplicate
// conjuncts in successive filter() calls deduped").
type frame struct {
	node             algebra.RelNode
	aliases          map[string]fieldRange
	filterBase       algebra.RelNode
	pendingConjuncts []algebra.RexNode
	isBuilderProject bool
}

// Builder assembles a RelNode tree on an internal stack. Every method
// returns the Builder itself so calls chain; a failure is recorded and
// surfaces from Build, so callers need not check every intermediate
// call.
type Builder struct {
	factory *types.Factory
	stack   []*frame
	err     error
}

// New returns an empty Builder backed by factory for any type
// inference the peephole rewrites need.
func New(factory *types.Factory) *Builder {
	return &Builder{factory: factory}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Builder) push(node algebra.RelNode) {
	b.stack = append(b.stack, &frame{node: node})
}

func (b *Builder) pop() *frame {
	n := len(b.stack)
	f := b.stack[n-1]
	b.stack = b.stack[:n-1]
	return f
}

// Peek returns the RelNode currently on top of the stack, without
// consuming it.
func (b *Builder) Peek() algebra.RelNode {
	if t := b.top(); t != nil {
		return t.node
	}
	return nil
}

// Build returns the stack top as the final plan without popping it. It is an error to call Build
// on an empty stack or after any prior call recorded an error.
func (b *Builder) Build() (algebra.RelNode, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.stack) == 0 {
		return nil, fmt.Errorf("builder: empty stack")
	}
	return b.stack[len(b.stack)-1].node, nil
}

// Scan pushes a leaf TableScan.
func (b *Builder) Scan(entityRef string, row algebra.RowType, traits algebra.TraitSet, rowsHint float64) *Builder {
	if b.err != nil {
		return b
	}
	b.push(algebra.NewTableScan(entityRef, row, traits, rowsHint))
	return b
}

// Values pushes a leaf Values node.
func (b *Builder) Values(row algebra.RowType, rows [][]algebra.RexNode) *Builder {
	if b.err != nil {
		return b
	}
	b.push(algebra.NewValues(row, rows))
	return b
}

// As names the current stack top alias, so later Field calls can
// resolve its columns by name. Aliases persist through Filter and
// Join (spec.md §4.9); any other operator clears them.
func (b *Builder) As(alias string) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: As(%q) on empty stack", alias))
	}
	if top.aliases == nil {
		top.aliases = make(map[string]fieldRange)
	}
	top.aliases[alias] = fieldRange{offset: 0, fields: top.node.RowType()}
	return b
}

// Field resolves an IndexRef to the named field of alias (or, if alias
// is "", of the current stack top directly).
func (b *Builder) Field(alias, name string) (algebra.RexNode, error) {
	if b.err != nil {
		return nil, b.err
	}
	top := b.top()
	if top == nil {
		return nil, fmt.Errorf("builder: Field(%q, %q) on empty stack", alias, name)
	}
	if alias == "" {
		idx, t, err := findField(top.node.RowType(), name)
		if err != nil {
			return nil, err
		}
		return algebra.NewIndexRef(idx, t), nil
	}
	fr, ok := top.aliases[alias]
	if !ok {
		return nil, fmt.Errorf("builder: unknown alias %q", alias)
	}
	idx, t, err := findField(fr.fields, name)
	if err != nil {
		return nil, err
	}
	return algebra.NewIndexRef(fr.offset+idx, t), nil
}

func findField(row algebra.RowType, name string) (int, *types.Type, error) {
	for i, f := range row {
		if f.Name == name {
			return i, f.Type, nil
		}
	}
	return 0, nil, fmt.Errorf("builder: no field named %q", name)
}

// Filter applies cond to the current stack top, folding Filter(TRUE)
// to a no-op, Filter(FALSE) (or any conjunct FALSE) to the canonical
// empty Values, and merging with an immediately preceding Filter call
// so duplicate conjuncts are deduped into one node (spec.md §4.9).
func (b *Builder) Filter(cond algebra.RexNode) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: Filter on empty stack"))
	}

	base := top.node
	if top.filterBase != nil {
		base = top.filterBase
	}

	conjuncts := append(append([]algebra.RexNode{}, top.pendingConjuncts...), flattenAnd(cond)...)
	deduped := algebra.SimplifyAnd(conjuncts)

	for _, c := range deduped {
		if algebra.IsFalse(c) {
			b.pop()
			b.push(algebra.EmptyValues(base.RowType()))
			return b
		}
	}

	nonTrue := make([]algebra.RexNode, 0, len(deduped))
	for _, c := range deduped {
		if !algebra.IsTrue(c) {
			nonTrue = append(nonTrue, c)
		}
	}
	if len(nonTrue) == 0 {
		top.node = base
		top.filterBase = nil
		top.pendingConjuncts = nil
		return b
	}

	var condNode algebra.RexNode = nonTrue[0]
	if len(nonTrue) > 1 {
		call, err := algebra.NewCall(b.factory, andOperator, nonTrue...)
		if err != nil {
			return b.fail(err)
		}
		condNode = call
	}

	top.node = algebra.SimplifyFilter(base, condNode)
	top.filterBase = base
	top.pendingConjuncts = nonTrue
	return b
}

func flattenAnd(cond algebra.RexNode) []algebra.RexNode {
	if call, ok := cond.(*algebra.RexCallNode); ok && call.Op.Name == andOperator.Name {
		return call.Operands
	}
	return []algebra.RexNode{cond}
}

// Project replaces the stack top with a projection of projects/row. An
// identity projection over a node of the same shape is a no-op; a
// projection stacked directly on another builder-produced projection
// collapses into one (spec.md §4.9).
func (b *Builder) Project(projects []algebra.RexNode, row algebra.RowType) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: Project on empty stack"))
	}

	candidate := algebra.NewProject(top.node, projects, row)
	if candidate.IsIdentity() {
		return b
	}

	if prev, ok := top.node.(*algebra.Project); ok && top.isBuilderProject {
		composed := make([]algebra.RexNode, len(projects))
		for i, p := range projects {
			c, err := substitute(b.factory, p, prev.Projects)
			if err != nil {
				return b.fail(err)
			}
			composed[i] = c
		}
		b.pop()
		b.push(algebra.NewProject(prev.Input, composed, row))
		b.top().isBuilderProject = true
		return b
	}

	b.pop()
	b.push(candidate)
	b.top().isBuilderProject = true
	return b
}

// substitute replaces every RexIndexRefNode within expr with the
// corresponding entry of base, so a Project stacked on a Project can
// be rewritten in terms of the inner Project's input.
func substitute(factory *types.Factory, expr algebra.RexNode, base []algebra.RexNode) (algebra.RexNode, error) {
	switch e := expr.(type) {
	case *algebra.RexIndexRefNode:
		if e.Index < 0 || e.Index >= len(base) {
			return nil, fmt.Errorf("builder: index %d out of range composing projects", e.Index)
		}
		return base[e.Index], nil
	case *algebra.RexCallNode:
		operands := make([]algebra.RexNode, len(e.Operands))
		for i, o := range e.Operands {
			s, err := substitute(factory, o, base)
			if err != nil {
				return nil, err
			}
			operands[i] = s
		}
		return algebra.NewCall(factory, e.Op, operands...)
	default:
		return expr, nil
	}
}

// Join pops the two stack tops (right, then left) and pushes their
// Join. Aliases from both sides survive, the right side's offset by
// the left side's row width (spec.md §4.9).
func (b *Builder) Join(cond algebra.RexNode, joinType algebra.JoinType) *Builder {
	if b.err != nil {
		return b
	}
	if len(b.stack) < 2 {
		return b.fail(fmt.Errorf("builder: Join needs two inputs on the stack"))
	}
	right := b.pop()
	left := b.pop()

	join := algebra.NewJoin(left.node, right.node, cond, joinType)
	merged := &frame{node: join, aliases: make(map[string]fieldRange)}
	for alias, fr := range left.aliases {
		merged.aliases[alias] = fr
	}
	shift := len(left.node.RowType())
	for alias, fr := range right.aliases {
		merged.aliases[alias] = fieldRange{offset: fr.offset + shift, fields: fr.fields}
	}
	b.stack = append(b.stack, merged)
	return b
}

// Aggregate replaces the stack top with its Aggregate. Aliases do not
// survive an Aggregate (spec.md §4.9).
func (b *Builder) Aggregate(groupKeys []int, groupingSets [][]int, aggCalls []algebra.AggCall, row algebra.RowType) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: Aggregate on empty stack"))
	}
	node := algebra.NewAggregate(top.node, groupKeys, groupingSets, aggCalls, row)
	b.pop()
	b.push(node)
	return b
}

// Sort replaces the stack top with its Sort, unless collation is
// empty and the offset/fetch window is the unbounded default
// (offset=0, fetch=-1), which is a no-op (spec.md §4.9).
func (b *Builder) Sort(collation algebra.Collation, offset, fetch int) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: Sort on empty stack"))
	}
	if len(collation) == 0 && offset == 0 && fetch == -1 {
		return b
	}
	node := algebra.NewSort(top.node, collation, offset, fetch)
	b.pop()
	b.push(node)
	return b
}

// Limit is sugar for Sort(nil, 0, n), except Limit(0) replaces the
// stack top with the canonical empty Values of the same shape (spec.md
// §4.9).
func (b *Builder) Limit(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n == 0 {
		top := b.top()
		if top == nil {
			return b.fail(fmt.Errorf("builder: Limit on empty stack"))
		}
		node := algebra.EmptyValues(top.node.RowType())
		b.pop()
		b.push(node)
		return b
	}
	return b.Sort(nil, 0, n)
}

// Union pops the stack top and unions it with others via
// algebra.SimplifySetOp, which folds a single-input UNION ALL away;
// nested unions are not flattened.
func (b *Builder) Union(all bool, others ...algebra.RelNode) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: Union on empty stack"))
	}
	inputs := append([]algebra.RelNode{top.node}, others...)
	node := algebra.SimplifySetOp(algebra.SetOpUnion, all, inputs)
	b.pop()
	b.push(node)
	return b
}

// Modify replaces the stack top (the Source rows) with a Modify over
// it.
func (b *Builder) Modify(entityRef string, op algebra.ModifyOperation, columnNames []string, expressions []algebra.RexNode) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		return b.fail(fmt.Errorf("builder: Modify on empty stack"))
	}
	node := algebra.NewModify(entityRef, op, top.node, columnNames, expressions)
	b.pop()
	b.push(node)
	return b
}

package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/algebra"
	"polyplan/internal/types"
)

var testFactory = types.NewFactory()

func intType() *types.Type { return testFactory.Simple(types.Integer) }

func empRow() algebra.RowType {
	return algebra.RowType{
		{Name: "id", Type: intType()},
		{Name: "dept", Type: intType()},
	}
}

func scanBuilder() *Builder {
	return New(testFactory).Scan("emp", empRow(), algebra.TraitSet{Convention: algebra.ConventionLogical}, 10)
}

func TestFieldResolvesByAliasAndName(t *testing.T) {
	b := scanBuilder().As("e")
	ref, err := b.Field("e", "dept")
	require.NoError(t, err)
	idx := ref.(*algebra.RexIndexRefNode)
	assert.Equal(t, 1, idx.Index)
}

func TestFilterTrueIsNoOp(t *testing.T) {
	b := scanBuilder()
	before := b.Peek()
	b.Filter(algebra.NewLiteral(true, testFactory.Simple(types.Boolean)))
	out, err := b.Build()
	require.NoError(t, err)
	assert.Same(t, before, out)
}

func TestFilterFalseIsEmptyValues(t *testing.T) {
	b := scanBuilder()
	b.Filter(algebra.NewLiteral(false, testFactory.Simple(types.Boolean)))
	out, err := b.Build()
	require.NoError(t, err)
	vals, ok := out.(*algebra.Values)
	require.True(t, ok, "expected empty Values, got %T", out)
	assert.Empty(t, vals.Rows)
	assert.Equal(t, empRow(), vals.Row)
}

func TestSuccessiveFiltersMergeAndDedupConjuncts(t *testing.T) {
	b := scanBuilder()
	idRef, err := b.Field("", "id")
	require.NoError(t, err)
	cond, err := algebra.NewCall(testFactory, eqOperator(), idRef, algebra.NewLiteral(1, intType()))
	require.NoError(t, err)

	b.Filter(cond)
	b.Filter(cond) // duplicate conjunct, must not nest a second Filter

	out, err := b.Build()
	require.NoError(t, err)

	filter, ok := out.(*algebra.Filter)
	require.True(t, ok, "expected a single Filter, got %T", out)
	call, ok := filter.Condition.(*algebra.RexCallNode)
	require.True(t, ok)
	assert.Equal(t, "EQ", call.Op.Name, "duplicate conjunct collapsed, not wrapped in AND")

	_, isFilter := filter.Input.(*algebra.Filter)
	assert.False(t, isFilter, "successive Filter calls must merge into one node")
}

func TestProjectIdentityIsNoOp(t *testing.T) {
	b := scanBuilder()
	before := b.Peek()
	b.Project([]algebra.RexNode{
		algebra.NewIndexRef(0, intType()),
		algebra.NewIndexRef(1, intType()),
	}, empRow())
	out, err := b.Build()
	require.NoError(t, err)
	assert.Same(t, before, out)
}

func TestSuccessiveProjectsCollapse(t *testing.T) {
	b := scanBuilder()
	// first projection: swap the two columns
	b.Project([]algebra.RexNode{
		algebra.NewIndexRef(1, intType()),
		algebra.NewIndexRef(0, intType()),
	}, algebra.RowType{{Name: "dept", Type: intType()}, {Name: "id", Type: intType()}})

	// second projection: take only the first (dept) column of the swapped row
	b.Project([]algebra.RexNode{
		algebra.NewIndexRef(0, intType()),
	}, algebra.RowType{{Name: "dept", Type: intType()}})

	out, err := b.Build()
	require.NoError(t, err)
	proj, ok := out.(*algebra.Project)
	require.True(t, ok)

	// collapsed projection should read dept (original index 1) directly
	// from the scan, not through an intermediate Project.
	_, innerIsProject := proj.Input.(*algebra.Project)
	assert.False(t, innerIsProject, "two successive Projects must collapse into one")
	ref := proj.Projects[0].(*algebra.RexIndexRefNode)
	assert.Equal(t, 1, ref.Index)
}

func TestJoinMergesAliasesWithOffset(t *testing.T) {
	b := scanBuilder()
	b.As("e")
	b.Scan("dept", algebra.RowType{{Name: "id", Type: intType()}}, algebra.TraitSet{Convention: algebra.ConventionLogical}, 5)
	b.As("d")

	// join condition is expressed in terms of the combined row: left
	// fields keep their index, right fields are offset by the left
	// side's width (emp has 2 columns).
	cond, err := algebra.NewCall(testFactory, eqOperator(), algebra.NewIndexRef(0, intType()), algebra.NewIndexRef(2, intType()))
	require.NoError(t, err)
	b.Join(cond, algebra.JoinInner)

	leftRef, err := b.Field("e", "dept")
	require.NoError(t, err)
	assert.Equal(t, 1, leftRef.(*algebra.RexIndexRefNode).Index, "left alias survives the join unshifted")

	rightRef, err := b.Field("d", "id")
	require.NoError(t, err)
	assert.Equal(t, 2, rightRef.(*algebra.RexIndexRefNode).Index, "dept.id must be offset by the left side's row width")
}

func TestSortNoOpWindowIsSkipped(t *testing.T) {
	b := scanBuilder()
	before := b.Peek()
	b.Sort(nil, 0, -1)
	out, err := b.Build()
	require.NoError(t, err)
	assert.Same(t, before, out)
}

func TestLimitZeroIsEmptyValues(t *testing.T) {
	b := scanBuilder()
	b.Limit(0)
	out, err := b.Build()
	require.NoError(t, err)
	vals, ok := out.(*algebra.Values)
	require.True(t, ok)
	assert.Empty(t, vals.Rows)
}

func TestUnionSingleInputIsNoOp(t *testing.T) {
	b := scanBuilder()
	before := b.Peek()
	b.Union(true)
	out, err := b.Build()
	require.NoError(t, err)
	assert.Same(t, before, out)
}

func eqOperator() algebra.Operator {
	return algebra.Operator{
		Name: "EQ",
		InferType: func(f *types.Factory, operands []*types.Type) (*types.Type, error) {
			return f.Simple(types.Boolean), nil
		},
	}
}

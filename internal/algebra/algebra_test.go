package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/types"
)

func boolType(f *types.Factory) *types.Type { return f.Simple(types.Boolean) }

func notOp() Operator {
	return Operator{
		Name: "NOT",
		InferType: func(f *types.Factory, operands []*types.Type) (*types.Type, error) {
			return f.Simple(types.Boolean), nil
		},
	}
}

func TestSimplifyFilterTrueIsIdentity(t *testing.T) {
	f := types.NewFactory()
	row := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	scan := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 100)

	out := SimplifyFilter(scan, NewLiteral(true, boolType(f)))
	assert.Same(t, RelNode(scan), out)
}

func TestSimplifyFilterFalseIsEmptyValues(t *testing.T) {
	f := types.NewFactory()
	row := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	scan := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 100)

	out := SimplifyFilter(scan, NewLiteral(false, boolType(f)))
	values, ok := out.(*Values)
	require.True(t, ok)
	assert.Empty(t, values.Rows)
	assert.Equal(t, row, values.RowType())
}

func TestSimplifyAndDropsDuplicateConjuncts(t *testing.T) {
	f := types.NewFactory()
	ref := NewIndexRef(0, f.Simple(types.Boolean))
	out := SimplifyAnd([]RexNode{ref, ref, ref})
	assert.Len(t, out, 1)
}

func TestSimplifyNotNotCollapses(t *testing.T) {
	f := types.NewFactory()
	ref := NewIndexRef(0, f.Simple(types.Boolean))
	inner, err := NewCall(f, notOp(), ref)
	require.NoError(t, err)
	outer, err := NewCall(f, notOp(), inner)
	require.NoError(t, err)

	simplified, rewritten := SimplifyNot(outer)
	assert.True(t, rewritten)
	assert.Same(t, RexNode(ref), simplified)
}

func TestSimplifySetOpUnionAllSingleInputIsIdentity(t *testing.T) {
	f := types.NewFactory()
	row := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	scan := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 10)

	out := SimplifySetOp(SetOpUnion, true, []RelNode{scan})
	assert.Same(t, RelNode(scan), out)
}

func TestJoinRowTypeConcatenatesInputs(t *testing.T) {
	f := types.NewFactory()
	leftRow := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	rightRow := RowType{{Name: "b", Type: f.Simple(types.VarChar)}}
	left := NewTableScan("l", leftRow, TraitSet{Convention: ConventionLogical}, 10)
	right := NewTableScan("r", rightRow, TraitSet{Convention: ConventionLogical}, 10)

	cond := NewLiteral(true, boolType(f))
	join := NewJoin(left, right, cond, JoinInner)
	assert.Len(t, join.RowType(), 2)
}

func TestJoinSemiNarrowsToLeftShape(t *testing.T) {
	f := types.NewFactory()
	leftRow := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	rightRow := RowType{{Name: "b", Type: f.Simple(types.VarChar)}}
	left := NewTableScan("l", leftRow, TraitSet{Convention: ConventionLogical}, 10)
	right := NewTableScan("r", rightRow, TraitSet{Convention: ConventionLogical}, 10)

	join := NewJoin(left, right, NewLiteral(true, boolType(f)), JoinSemi)
	assert.Equal(t, leftRow, join.RowType())
}

func TestDigestIsDeterministicAcrossEqualNodes(t *testing.T) {
	f := types.NewFactory()
	row := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	a := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 10)
	b := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 10)
	assert.Equal(t, a.Digest(), b.Digest())
}

func TestDigestDiffersOnDifferentCondition(t *testing.T) {
	f := types.NewFactory()
	row := RowType{{Name: "a", Type: f.Simple(types.Integer)}}
	scan := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 10)

	filterTrue := NewFilter(scan, NewLiteral(true, boolType(f)))
	filterFalse := NewFilter(scan, NewLiteral(false, boolType(f)))
	assert.NotEqual(t, filterTrue.Digest(), filterFalse.Digest())
}

func TestProjectIsIdentityDetectsPassthrough(t *testing.T) {
	f := types.NewFactory()
	row := RowType{{Name: "a", Type: f.Simple(types.Integer)}, {Name: "b", Type: f.Simple(types.VarChar)}}
	scan := NewTableScan("t", row, TraitSet{Convention: ConventionLogical}, 10)

	identity := NewProject(scan, []RexNode{NewIndexRef(0, row[0].Type), NewIndexRef(1, row[1].Type)}, row)
	assert.True(t, identity.IsIdentity())

	reordered := NewProject(scan, []RexNode{NewIndexRef(1, row[1].Type), NewIndexRef(0, row[0].Type)}, RowType{row[1], row[0]})
	assert.False(t, reordered.IsIdentity())
}

func TestTraitSetSatisfiesConventionMismatch(t *testing.T) {
	have := TraitSet{Convention: ConventionLogical}
	want := TraitSet{Convention: ConventionEnumerable}
	assert.False(t, have.Satisfies(want))
	assert.True(t, have.Satisfies(TraitSet{}))
}

func TestCallInferTypeErrorSurfacesAtConstruction(t *testing.T) {
	f := types.NewFactory()
	badOp := Operator{
		Name: "BOOM",
		InferType: func(f *types.Factory, operands []*types.Type) (*types.Type, error) {
			return nil, assertErr{}
		},
	}
	_, err := NewCall(f, badOp, NewIndexRef(0, f.Simple(types.Integer)))
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

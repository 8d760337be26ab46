package frontend

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/algebra"
	"polyplan/internal/catalog"
	"polyplan/internal/types"
)

var testFactory = types.NewFactory()

func parseOne(t *testing.T, f *Frontend, sql string) ast.StmtNode {
	t.Helper()
	stmts, err := f.Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func TestCreateTableAddsColumnKeyAndUniqueConstraint(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `CREATE TABLE dept (
		id INT PRIMARY KEY,
		name VARCHAR(50) NOT NULL UNIQUE
	)`).(*ast.CreateTableStmt)

	h := catalog.NewHandle(false)
	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, catalog.SchemaRelational)
	require.NoError(t, err)

	table, err := f.CreateTable(tx, sch.ID, 1, stmt)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	snap := h.Snapshot()
	cols := snap.GetColumns(table.ID)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, types.Integer, cols[0].Type.Code)
	assert.False(t, cols[0].Nullable)
	assert.Equal(t, "name", cols[1].Name)
	assert.Equal(t, types.VarChar, cols[1].Type.Code)
	assert.False(t, cols[1].Nullable)

	gotTable, err := snap.GetTable(table.ID)
	require.NoError(t, err)
	require.NotZero(t, gotTable.PrimaryKeyID)
	pk, err := snap.GetKey(gotTable.PrimaryKeyID)
	require.NoError(t, err)
	assert.Equal(t, []catalog.ID{cols[0].ID}, pk.ColumnIDs)

	keys := snap.GetKeysForTable(table.ID)
	require.Len(t, keys, 2, "primary key plus the unique key on name")

	var uniqueConstraints int
	for _, k := range keys {
		for _, c := range snap.GetConstraintsForTable(table.ID) {
			if c.KeyID == k.ID && c.Type == catalog.ConstraintUnique {
				uniqueConstraints++
			}
		}
	}
	assert.Equal(t, 1, uniqueConstraints)
}

func TestCreateTableLevelUniqueConstraint(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `CREATE TABLE emp (
		id INT,
		dept INT,
		UNIQUE KEY uq_id_dept (id, dept)
	)`).(*ast.CreateTableStmt)

	h := catalog.NewHandle(false)
	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, catalog.SchemaRelational)
	require.NoError(t, err)

	table, err := f.CreateTable(tx, sch.ID, 1, stmt)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	snap := h.Snapshot()
	keys := snap.GetKeysForTable(table.ID)
	require.Len(t, keys, 1)
	assert.Len(t, keys[0].ColumnIDs, 2)

	constraints := snap.GetConstraintsForTable(table.ID)
	require.Len(t, constraints, 1)
	assert.Equal(t, "uq_id_dept", constraints[0].Name)
	assert.Equal(t, catalog.ConstraintUnique, constraints[0].Type)
}

func empColumns() []*catalog.Column {
	return []*catalog.Column{
		{ID: 1, Name: "id", Type: testFactory.Simple(types.Integer)},
		{ID: 2, Name: "dept", Type: testFactory.Simple(types.Integer)},
	}
}

func TestInsertWithExplicitColumnsBuildsValuesModify(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `INSERT INTO emp (id, dept) VALUES (1, 2)`).(*ast.InsertStmt)

	modify, err := f.Insert(&catalog.Table{ID: 10, Name: "emp"}, empColumns(), stmt)
	require.NoError(t, err)
	assert.Equal(t, "emp", modify.EntityRef)
	assert.Equal(t, algebra.ModifyInsert, modify.Operation)

	values, ok := modify.Source.(*algebra.Values)
	require.True(t, ok)
	require.Len(t, values.Rows, 1)
	require.Len(t, values.Rows[0], 2)
	assert.Equal(t, int64(1), values.Rows[0][0].(*algebra.RexLiteralNode).Value)
	assert.Equal(t, int64(2), values.Rows[0][1].(*algebra.RexLiteralNode).Value)
}

func TestInsertWithoutColumnListUsesCatalogOrder(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `INSERT INTO emp VALUES (1, 2)`).(*ast.InsertStmt)

	modify, err := f.Insert(&catalog.Table{ID: 10, Name: "emp"}, empColumns(), stmt)
	require.NoError(t, err)

	values := modify.Source.(*algebra.Values)
	assert.Equal(t, "id", values.Row[0].Name)
	assert.Equal(t, "dept", values.Row[1].Name)
}

func TestInsertRowArityMismatchIsRejected(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `INSERT INTO emp (id, dept) VALUES (1)`).(*ast.InsertStmt)
	_, err := f.Insert(&catalog.Table{ID: 10, Name: "emp"}, empColumns(), stmt)
	assert.Error(t, err)
}

func TestUpdateBuildsFilteredModify(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `UPDATE emp SET dept = 3 WHERE id = 1`).(*ast.UpdateStmt)

	table := &catalog.Table{ID: 10, Name: "emp"}
	modify, err := f.Update(table, empColumns(), stmt)
	require.NoError(t, err)
	assert.Equal(t, algebra.ModifyUpdate, modify.Operation)
	assert.Equal(t, []string{"dept"}, modify.ColumnNames)
	require.Len(t, modify.Expressions, 1)
	assert.Equal(t, int64(3), modify.Expressions[0].(*algebra.RexLiteralNode).Value)

	filter, ok := modify.Source.(*algebra.Filter)
	require.True(t, ok)
	_, isScan := filter.Input.(*algebra.TableScan)
	assert.True(t, isScan)

	call := filter.Condition.(*algebra.RexCallNode)
	assert.Equal(t, "EQ", call.Op.Name)
	ref := call.Operands[0].(*algebra.RexIndexRefNode)
	assert.Equal(t, 0, ref.Index)
	lit := call.Operands[1].(*algebra.RexLiteralNode)
	assert.Equal(t, int64(1), lit.Value)
}

func TestUpdateWithoutWhereScansWholeTable(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `UPDATE emp SET dept = 3`).(*ast.UpdateStmt)

	modify, err := f.Update(&catalog.Table{ID: 10, Name: "emp"}, empColumns(), stmt)
	require.NoError(t, err)
	_, isScan := modify.Source.(*algebra.TableScan)
	assert.True(t, isScan)
}

func TestDeleteBuildsFilteredModify(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `DELETE FROM emp WHERE id = 1 AND dept = 2`).(*ast.DeleteStmt)

	modify, err := f.Delete(&catalog.Table{ID: 10, Name: "emp"}, empColumns(), stmt)
	require.NoError(t, err)
	assert.Equal(t, algebra.ModifyDelete, modify.Operation)
	assert.Nil(t, modify.ColumnNames)
	assert.Nil(t, modify.Expressions)

	filter := modify.Source.(*algebra.Filter)
	call := filter.Condition.(*algebra.RexCallNode)
	assert.Equal(t, "AND", call.Op.Name)
}

func TestParseTypeNameHandlesSizedAndDecimalTypes(t *testing.T) {
	f := New(testFactory)

	varchar, err := f.ParseTypeName("varchar(255)")
	require.NoError(t, err)
	assert.Equal(t, types.VarChar, varchar.Code)

	dec, err := f.ParseTypeName("decimal(10,2)")
	require.NoError(t, err)
	assert.Equal(t, types.Decimal, dec.Code)
	assert.Equal(t, 10, dec.Precision)
	assert.Equal(t, 2, dec.Scale)

	_, err = f.ParseTypeName("not-a-type")
	assert.Error(t, err)
}

func TestLiteralUnquotesStringValue(t *testing.T) {
	f := New(testFactory)
	stmt := parseOne(t, f, `INSERT INTO t (name) VALUES ('O''Brien')`).(*ast.InsertStmt)

	cols := []*catalog.Column{{ID: 1, Name: "name", Type: testFactory.Sized(types.VarChar, 50)}}
	modify, err := f.Insert(&catalog.Table{ID: 11, Name: "t"}, cols, stmt)
	require.NoError(t, err)
	values := modify.Source.(*algebra.Values)
	assert.Equal(t, "O'Brien", values.Rows[0][0].(*algebra.RexLiteralNode).Value)
}

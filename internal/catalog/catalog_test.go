package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/types"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	return NewHandle(false)
}

func TestAddDatabaseSchemaTable(t *testing.T) {
	h := newTestHandle(t)

	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "utf8mb4", "utf8mb4_general_ci", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, SchemaRelational)
	require.NoError(t, err)
	tbl, err := tx.AddTable("orders", sch.ID, 1, TableRegular, "")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	snap := h.Snapshot()
	got, err := snap.GetTableByName(sch.ID, "orders")
	require.NoError(t, err)
	assert.Equal(t, tbl.ID, got.ID)
}

func TestAddDatabaseDuplicateNameRejected(t *testing.T) {
	h := newTestHandle(t)
	tx := h.Begin("xid-1")
	_, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	_, err = tx.AddDatabase("sales", 1, "", "", 0)
	require.Error(t, err)
	var integrity *IntegrityViolationError
	assert.ErrorAs(t, err, &integrity)
	require.NoError(t, tx.Commit())
}

func TestSnapshotIsolatedFromConcurrentWrites(t *testing.T) {
	h := newTestHandle(t)
	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	snap := h.Snapshot()

	tx2 := h.Begin("xid-2")
	_, err = tx2.AddDatabase("marketing", 1, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())

	assert.Len(t, snap.GetDatabases(""), 1)
	assert.Len(t, h.Snapshot().GetDatabases(""), 2)
	_, err = snap.GetDatabaseByName("marketing")
	assert.Error(t, err)
	got, err := snap.GetDatabaseByName("sales")
	require.NoError(t, err)
	assert.Equal(t, db.ID, got.ID)
}

func TestTxRollbackUndoesMutations(t *testing.T) {
	h := newTestHandle(t)
	tx := h.Begin("xid-1")
	_, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Len(t, h.Snapshot().GetDatabases(""), 0)
}

func TestDeleteDatabaseRefusesWhileSchemasExist(t *testing.T) {
	h := newTestHandle(t)
	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	_, err = tx.AddSchema("public", db.ID, 1, SchemaRelational)
	require.NoError(t, err)

	err = tx.DeleteDatabase(db.ID)
	require.Error(t, err)
	var integrity *IntegrityViolationError
	assert.ErrorAs(t, err, &integrity)
	require.NoError(t, tx.Commit())
}

func TestDeleteTableCascadesColumnsKeysAndPlacements(t *testing.T) {
	h := newTestHandle(t)
	factory := types.NewFactory()

	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, SchemaRelational)
	require.NoError(t, err)
	tbl, err := tx.AddTable("orders", sch.ID, 1, TableRegular, "")
	require.NoError(t, err)
	col, err := tx.AddColumn("id", tbl.ID, 1, factory.Simple(types.Integer), -1, -1, false, "")
	require.NoError(t, err)
	key, err := tx.AddKey(tbl.ID, []ID{col.ID}, EnforceOnCommit)
	require.NoError(t, err)
	_, err = tx.AddConstraint(key.ID, ConstraintPrimary, "orders_pk")
	require.NoError(t, err)
	store, err := tx.AddStore("hsqldb", "hsqldb", nil)
	require.NoError(t, err)
	_, err = tx.AddDataPlacement(store.ID, tbl.ID, 0, PlacementAutomatic)
	require.NoError(t, err)
	_, err = tx.AddColumnPlacement(store.ID, col.ID, "public", "id", PlacementAutomatic)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2 := h.Begin("xid-2")
	require.NoError(t, tx2.DeleteTable(tbl.ID))
	require.NoError(t, tx2.Commit())

	snap := h.Snapshot()
	assert.Empty(t, snap.GetColumns(tbl.ID))
	assert.Empty(t, snap.GetKeysForTable(tbl.ID))
	assert.Empty(t, snap.GetConstraintsForTable(tbl.ID))
	assert.Empty(t, snap.GetDataPlacementsForTable(tbl.ID))
	assert.Empty(t, snap.GetColumnPlacementsForTable(tbl.ID))
}

func TestDeleteColumnReferencedByKeyRejected(t *testing.T) {
	h := newTestHandle(t)
	factory := types.NewFactory()

	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, SchemaRelational)
	require.NoError(t, err)
	tbl, err := tx.AddTable("orders", sch.ID, 1, TableRegular, "")
	require.NoError(t, err)
	col, err := tx.AddColumn("id", tbl.ID, 1, factory.Simple(types.Integer), -1, -1, false, "")
	require.NoError(t, err)
	_, err = tx.AddKey(tbl.ID, []ID{col.ID}, EnforceOnCommit)
	require.NoError(t, err)

	err = tx.DeleteColumn(col.ID)
	require.Error(t, err)
	var integrity *IntegrityViolationError
	assert.ErrorAs(t, err, &integrity)
	require.NoError(t, tx.Commit())
}

func TestAddForeignKeyRejectsArityMismatch(t *testing.T) {
	h := newTestHandle(t)
	factory := types.NewFactory()

	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, SchemaRelational)
	require.NoError(t, err)

	parent, err := tx.AddTable("customers", sch.ID, 1, TableRegular, "")
	require.NoError(t, err)
	pCol, err := tx.AddColumn("id", parent.ID, 1, factory.Simple(types.Integer), -1, -1, false, "")
	require.NoError(t, err)
	pKey, err := tx.AddKey(parent.ID, []ID{pCol.ID}, EnforceOnCommit)
	require.NoError(t, err)

	child, err := tx.AddTable("orders", sch.ID, 1, TableRegular, "")
	require.NoError(t, err)
	cCol1, err := tx.AddColumn("customer_id", child.ID, 1, factory.Simple(types.Integer), -1, -1, false, "")
	require.NoError(t, err)
	cCol2, err := tx.AddColumn("region", child.ID, 2, factory.Simple(types.Integer), -1, -1, false, "")
	require.NoError(t, err)
	cKey, err := tx.AddKey(child.ID, []ID{cCol1.ID, cCol2.ID}, EnforceOnCommit)
	require.NoError(t, err)

	_, err = tx.AddForeignKey(cKey.ID, pKey.ID, "fk_orders_customer", ActionRestrict, ActionCascade)
	require.Error(t, err)
	require.NoError(t, tx.Commit())
}

func TestAddConstraintRejectsSecondPrimaryKey(t *testing.T) {
	h := newTestHandle(t)
	factory := types.NewFactory()

	tx := h.Begin("xid-1")
	db, err := tx.AddDatabase("sales", 1, "", "", 0)
	require.NoError(t, err)
	sch, err := tx.AddSchema("public", db.ID, 1, SchemaRelational)
	require.NoError(t, err)
	tbl, err := tx.AddTable("orders", sch.ID, 1, TableRegular, "")
	require.NoError(t, err)
	col1, err := tx.AddColumn("id", tbl.ID, 1, factory.Simple(types.Integer), -1, -1, false, "")
	require.NoError(t, err)
	col2, err := tx.AddColumn("uuid", tbl.ID, 2, factory.Simple(types.VarChar), 36, -1, false, "")
	require.NoError(t, err)
	key1, err := tx.AddKey(tbl.ID, []ID{col1.ID}, EnforceOnCommit)
	require.NoError(t, err)
	key2, err := tx.AddKey(tbl.ID, []ID{col2.ID}, EnforceOnCommit)
	require.NoError(t, err)

	_, err = tx.AddConstraint(key1.ID, ConstraintPrimary, "orders_pk")
	require.NoError(t, err)
	_, err = tx.AddConstraint(key2.ID, ConstraintPrimary, "orders_pk2")
	require.Error(t, err)
	require.NoError(t, tx.Commit())
}

func TestGetDatabasesByPatternCaseFolding(t *testing.T) {
	h := NewHandle(false)
	tx := h.Begin("xid-1")
	_, err := tx.AddDatabase("Sales", 1, "", "", 0)
	require.NoError(t, err)
	_, err = tx.AddDatabase("Marketing", 1, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	snap := h.Snapshot()
	matches := snap.GetDatabases("sal%")
	require.Len(t, matches, 1)
	assert.Equal(t, "Sales", matches[0].Name)
}

func TestCheckIdentifierRejectsInvalidNames(t *testing.T) {
	assert.NoError(t, CheckIdentifier("orders"))
	assert.NoError(t, CheckIdentifier("_orders"))
	assert.Error(t, CheckIdentifier("1orders"))
	assert.Error(t, CheckIdentifier("ord ers"))
	assert.Error(t, CheckIdentifier(""))
}

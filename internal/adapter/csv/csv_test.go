package csv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/catalog"
)

func testTable() *catalog.Table { return &catalog.Table{ID: 1, Name: "emp"} }

func testColumns() []*catalog.Column {
	return []*catalog.Column{
		{ID: 1, Name: "id", TableID: 1, Position: 1},
		{ID: 2, Name: "name", TableID: 1, Position: 2},
	}
}

func TestCreateTableWritesHeader(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.CreateTable(ctx, testTable(), testColumns())
	require.NoError(t, err)

	header, rows, err := a.readAll("emp")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, header)
	assert.Empty(t, rows)
}

func TestInsertStagesUntilCommit(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = a.CreateTable(ctx, testTable(), testColumns())
	require.NoError(t, err)

	require.NoError(t, a.Insert("xid-1", "emp", []string{"1", "ann"}))

	_, rows, err := a.readAll("emp")
	require.NoError(t, err)
	assert.Empty(t, rows, "insert must not be visible before commit")

	require.NoError(t, a.Commit("xid-1"))
	_, rows, err = a.readAll("emp")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "ann"}, rows[0])
}

func TestRollbackDiscardsStagedInsert(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = a.CreateTable(ctx, testTable(), testColumns())
	require.NoError(t, err)

	require.NoError(t, a.Insert("xid-1", "emp", []string{"1", "ann"}))
	require.NoError(t, a.Rollback("xid-1"))

	_, rows, err := a.readAll("emp")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTruncateEmptiesRowsKeepsHeader(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = a.CreateTable(ctx, testTable(), testColumns())
	require.NoError(t, err)
	require.NoError(t, a.Insert("xid-1", "emp", []string{"1", "ann"}))
	require.NoError(t, a.Commit("xid-1"))

	require.NoError(t, a.Truncate(ctx, testTable()))
	header, rows, err := a.readAll("emp")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, header)
	assert.Empty(t, rows)
}

func TestAddIndexUnsupported(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	err = a.AddIndex(context.Background(), &catalog.Index{})
	require.Error(t, err)
}

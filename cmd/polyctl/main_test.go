package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/algebra"
	"polyplan/internal/config"
	"polyplan/internal/types"
)

func sampleDoc() bootstrapDoc {
	var doc bootstrapDoc
	doc.Database.Name = "sales"
	doc.Schema.Name = "public"
	doc.Tables = []struct {
		Name       string   `toml:"name"`
		PrimaryKey []string `toml:"primary_key"`
		Columns    []struct {
			Name     string `toml:"name"`
			Type     string `toml:"type"`
			Nullable bool   `toml:"nullable"`
		} `toml:"columns"`
	}{
		{
			Name:       "emp",
			PrimaryKey: []string{"id"},
			Columns: []struct {
				Name     string `toml:"name"`
				Type     string `toml:"type"`
				Nullable bool   `toml:"nullable"`
			}{
				{Name: "id", Type: "int", Nullable: false},
				{Name: "dept", Type: "int", Nullable: true},
			},
		},
	}
	doc.Stores = []struct {
		Name     string            `toml:"name"`
		Adapter  string            `toml:"adapter"`
		Settings map[string]string `toml:"settings"`
	}{
		{Name: "s1", Adapter: "memory"},
	}
	doc.Placements = []struct {
		Table     string `toml:"table"`
		Store     string `toml:"store"`
		Partition int    `toml:"partition"`
	}{
		{Table: "emp", Store: "s1"},
	}
	return doc
}

func TestBootstrapCatalogCreatesTableAndPlacements(t *testing.T) {
	factory := types.NewFactory()
	h, tableIDs, err := bootstrapCatalog(factory, sampleDoc())
	require.NoError(t, err)

	tableID, ok := tableIDs["emp"]
	require.True(t, ok)

	snap := h.Snapshot()
	cols := snap.GetColumns(tableID)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)

	table, err := snap.GetTable(tableID)
	require.NoError(t, err)
	require.NotZero(t, table.PrimaryKeyID)

	placements := snap.GetDataPlacementsForTable(tableID)
	require.Len(t, placements, 1)

	colPlacements := snap.GetColumnPlacementsForTable(tableID)
	assert.Len(t, colPlacements, 2)
}

func TestBootstrapCatalogRejectsUnknownStore(t *testing.T) {
	doc := sampleDoc()
	doc.Placements[0].Store = "missing"
	_, _, err := bootstrapCatalog(types.NewFactory(), doc)
	assert.Error(t, err)
}

func TestTableScanForBuildsRowFromCatalogColumns(t *testing.T) {
	factory := types.NewFactory()
	h, tableIDs, err := bootstrapCatalog(factory, sampleDoc())
	require.NoError(t, err)

	snap := h.Snapshot()
	scan, err := tableScanFor(snap, "emp", tableIDs["emp"])
	require.NoError(t, err)
	require.Len(t, scan.Row, 2)
	assert.Equal(t, "dept", scan.Row[1].Name)
}

func writeSampleCatalogTOML(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/catalog.toml"
	doc := `
[database]
name = "sales"

[schema]
name = "public"

[[tables]]
name = "emp"
primary_key = ["id"]

[[tables.columns]]
name = "id"
type = "int"
nullable = false

[[tables.columns]]
name = "dept"
type = "int"
nullable = true

[[stores]]
name = "s1"
adapter = "memory"

[[placements]]
table = "emp"
store = "s1"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadConfigDefaultsWhenNoPathGiven(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigRejectsUnreadablePath(t *testing.T) {
	_, err := loadConfig(t.TempDir() + "/does-not-exist.toml")
	assert.Error(t, err)
}

func TestBootstrapAndRouteHonorsCacheDisabledConfig(t *testing.T) {
	path := writeSampleCatalogTOML(t)

	cfg := config.Default()
	cfg.JoinedTableScanCache = false

	first, _, err := bootstrapAndRoute(path, "emp", cfg)
	require.NoError(t, err)
	scan, ok := first.(*algebra.TableScan)
	require.True(t, ok, "expected a single adapter scan, got %T", first)
	assert.Equal(t, algebra.AdapterConvention("s1"), scan.TraitSet.Convention)
}

func TestExplainTreeIndentsByDepth(t *testing.T) {
	row := algebra.RowType{{Name: "id", Type: types.NewFactory().Simple(types.Integer)}}
	scan := algebra.NewTableScan("1", row, algebra.TraitSet{Convention: algebra.ConventionLogical}, 1)
	filter := algebra.NewFilter(scan, algebra.NewLiteral(true, types.NewFactory().Simple(types.Boolean)))

	var buf bytes.Buffer
	explainTree(&buf, filter, 0)

	out := buf.String()
	assert.Contains(t, out, "Filter(")
	assert.Contains(t, out, "  TableScan(")
}

// Package csv implements the second reference adapter spec.md §4.7
// asks for: every table is a `.csv` file inside a configured
// directory (spec.md §6's `directory` settings key), column order
// fixed by the file's header row.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"polyplan/internal/adapter"
	"polyplan/internal/catalog"
	"polyplan/internal/types"
)

func init() {
	adapter.Register("csv", func(settings map[string]string) (adapter.Adapter, error) {
		dir, ok := settings["directory"]
		if !ok || dir == "" {
			return nil, fmt.Errorf("adapter/csv: settings map missing required key %q", "directory")
		}
		return New(dir)
	})
}

// Adapter stores every table as <directory>/<table>.csv, header row
// first. A transaction's writes are staged to a `.<xid>.<table>.tmp` sibling
// file and only swapped in on Commit, so Rollback is simply "delete
// the staging file" (spec.md §6 "capability flag supportsRollback").
type Adapter struct {
	dir string

	mu      sync.Mutex
	staged  map[string]map[string]bool // xid -> set of table names staged this transaction
}

// New builds a csv adapter rooted at dir, creating it if necessary.
func New(dir string) (*Adapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("adapter/csv: create directory %q: %w", dir, err)
	}
	return &Adapter{dir: dir, staged: make(map[string]map[string]bool)}, nil
}

func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		SupportsNestedArrays: false,
		SupportsBinaryStream: false,
		SupportsWrite:        true,
		SupportsIndexes:      false,
		SupportsRollback:     true,
		SupportsPrepare:      true,
	}
}

func (a *Adapter) path(tableName string) string {
	return filepath.Join(a.dir, tableName+".csv")
}

func (a *Adapter) CreateNamespace(ctx context.Context, rootSchema, name string, id catalog.ID) error {
	return nil // one flat directory; no sub-namespace concept to create
}

func (a *Adapter) CreateTable(ctx context.Context, table *catalog.Table, columns []*catalog.Column) ([]adapter.PhysicalTable, error) {
	path := a.path(table.Name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("adapter/csv: table %q already exists at %s", table.Name, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("adapter/csv: create %s: %w", path, err)
	}
	defer f.Close()

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("adapter/csv: write header for %q: %w", table.Name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("adapter/csv: flush header for %q: %w", table.Name, err)
	}
	return []adapter.PhysicalTable{{Schema: a.dir, Name: table.Name}}, nil
}

func (a *Adapter) DropTable(ctx context.Context, table *catalog.Table, physicals []adapter.PhysicalTable) error {
	if err := os.Remove(a.path(table.Name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("adapter/csv: drop %q: %w", table.Name, err)
	}
	return nil
}

// AddColumn rewrites the file with a new trailing column, every
// existing row padded with an empty field (spec.md §4.7's
// addColumn(ctx, table, column)).
func (a *Adapter) AddColumn(ctx context.Context, table *catalog.Table, column *catalog.Column) error {
	header, rows, err := a.readAll(table.Name)
	if err != nil {
		return err
	}
	header = append(header, column.Name)
	for i, row := range rows {
		rows[i] = append(row, "")
	}
	return a.writeAll(table.Name, header, rows)
}

func (a *Adapter) DropColumn(ctx context.Context, table *catalog.Table, placement *catalog.ColumnPlacement) error {
	header, rows, err := a.readAll(table.Name)
	if err != nil {
		return err
	}
	idx := indexOf(header, placement.PhysicalColumnName)
	if idx < 0 {
		return nil
	}
	header = append(header[:idx], header[idx+1:]...)
	for i, row := range rows {
		rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return a.writeAll(table.Name, header, rows)
}

func (a *Adapter) UpdateColumnType(ctx context.Context, table *catalog.Table, placement *catalog.ColumnPlacement, newType, oldType *types.Type) error {
	return nil // CSV cells are untyped text; no physical conversion needed
}

func (a *Adapter) AddIndex(ctx context.Context, index *catalog.Index) error {
	return &adapter.UnsupportedOperationError{Adapter: "csv", Op: "addIndex"}
}

func (a *Adapter) DropIndex(ctx context.Context, index *catalog.Index) error {
	return &adapter.UnsupportedOperationError{Adapter: "csv", Op: "dropIndex"}
}

func (a *Adapter) Truncate(ctx context.Context, table *catalog.Table) error {
	header, _, err := a.readAll(table.Name)
	if err != nil {
		return err
	}
	return a.writeAll(table.Name, header, nil)
}

func (a *Adapter) readAll(tableName string) ([]string, [][]string, error) {
	f, err := os.Open(a.path(tableName))
	if err != nil {
		return nil, nil, fmt.Errorf("adapter/csv: open %q: %w", tableName, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("adapter/csv: read %q: %w", tableName, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func (a *Adapter) writeAll(tableName string, header []string, rows [][]string) error {
	f, err := os.Create(a.path(tableName))
	if err != nil {
		return fmt.Errorf("adapter/csv: rewrite %q: %w", tableName, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("adapter/csv: write header for %q: %w", tableName, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("adapter/csv: write row for %q: %w", tableName, err)
		}
	}
	w.Flush()
	return w.Error()
}

// stagingPath returns where xid's staged copy of tableName lives
// until Commit renames it into place or Rollback deletes it.
func (a *Adapter) stagingPath(xid, tableName string) string {
	return filepath.Join(a.dir, fmt.Sprintf(".%s.%s.tmp", xid, tableName))
}

// Insert appends a row, staging the whole-file rewrite under xid so a
// concurrent Rollback before Commit leaves the original file intact.
func (a *Adapter) Insert(xid, tableName string, row []string) error {
	header, rows, err := a.readAll(tableName)
	if err != nil {
		return err
	}
	rows = append(rows, row)

	stagingPath := a.stagingPath(xid, tableName)
	f, err := os.Create(stagingPath)
	if err != nil {
		return fmt.Errorf("adapter/csv: stage insert for %q: %w", tableName, err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(header)
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("adapter/csv: flush staged insert for %q: %w", tableName, err)
	}
	f.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.staged[xid] == nil {
		a.staged[xid] = make(map[string]bool)
	}
	a.staged[xid][tableName] = true
	return nil
}

func (a *Adapter) Prepare(xid string) (bool, error) { return true, nil }

func (a *Adapter) Commit(xid string) error {
	a.mu.Lock()
	tables := a.staged[xid]
	delete(a.staged, xid)
	a.mu.Unlock()

	for tableName := range tables {
		stagingPath := a.stagingPath(xid, tableName)
		if err := os.Rename(stagingPath, a.path(tableName)); err != nil {
			return fmt.Errorf("adapter/csv: commit %q: %w", tableName, err)
		}
	}
	return nil
}

func (a *Adapter) Rollback(xid string) error {
	a.mu.Lock()
	tables := a.staged[xid]
	delete(a.staged, xid)
	a.mu.Unlock()

	for tableName := range tables {
		_ = os.Remove(a.stagingPath(xid, tableName))
	}
	return nil
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}

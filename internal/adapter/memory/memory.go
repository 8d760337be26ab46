// Package memory implements an in-process reference adapter (one of
// the two spec.md §4.7 asks for): every table is a slice of rows held
// in a Go map, with full read/write/index support and durability
// scoped to the process — useful for planner/router/enforcer tests
// that need a real Adapter without standing up a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"polyplan/internal/adapter"
	"polyplan/internal/catalog"
	"polyplan/internal/types"
)

func init() {
	adapter.Register("memory", func(settings map[string]string) (adapter.Adapter, error) {
		return New(), nil
	})
}

// Row is one physical row: positional values matching a table's
// current column order.
type Row []any

type tableKey struct {
	schema string
	name   string
}

type physicalTable struct {
	columns []string
	rows    []Row
}

// Adapter is the in-memory reference store.
type Adapter struct {
	mu     sync.RWMutex
	tables map[tableKey]*physicalTable

	txMu sync.Mutex
	undo map[string][]func()
}

// New builds an empty memory adapter.
func New() *Adapter {
	return &Adapter{
		tables: make(map[tableKey]*physicalTable),
		undo:   make(map[string][]func()),
	}
}

func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		SupportsNestedArrays: false,
		SupportsBinaryStream: false,
		SupportsWrite:        true,
		SupportsIndexes:      true,
		SupportsRollback:     true,
		SupportsPrepare:      true,
	}
}

func (a *Adapter) CreateNamespace(ctx context.Context, rootSchema, name string, id catalog.ID) error {
	return nil // namespaces are implicit: any (schema, table) pair may be created
}

func (a *Adapter) CreateTable(ctx context.Context, table *catalog.Table, columns []*catalog.Column) ([]adapter.PhysicalTable, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := tableKey{schema: "public", name: table.Name}
	if _, ok := a.tables[key]; ok {
		return nil, fmt.Errorf("adapter/memory: table %q already exists", table.Name)
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	a.tables[key] = &physicalTable{columns: names}
	a.record(table.Name, func() { delete(a.tables, key) })
	return []adapter.PhysicalTable{{Schema: key.schema, Name: key.name}}, nil
}

func (a *Adapter) DropTable(ctx context.Context, table *catalog.Table, physicals []adapter.PhysicalTable) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range physicals {
		key := tableKey{schema: p.Schema, name: p.Name}
		old, ok := a.tables[key]
		if !ok {
			continue
		}
		delete(a.tables, key)
		a.record(table.Name, func() { a.tables[key] = old })
	}
	return nil
}

func (a *Adapter) AddColumn(ctx context.Context, table *catalog.Table, column *catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pt, ok := a.tables[tableKey{schema: "public", name: table.Name}]
	if !ok {
		return &catalog.NotFoundError{EntityKind: "table", Key: table.Name}
	}
	pt.columns = append(pt.columns, column.Name)
	for i, row := range pt.rows {
		pt.rows[i] = append(row, nil)
	}
	return nil
}

func (a *Adapter) DropColumn(ctx context.Context, table *catalog.Table, placement *catalog.ColumnPlacement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pt, ok := a.tables[tableKey{schema: placement.PhysicalSchemaName, name: table.Name}]
	if !ok {
		return nil
	}
	idx := indexOf(pt.columns, placement.PhysicalColumnName)
	if idx < 0 {
		return nil
	}
	pt.columns = append(pt.columns[:idx], pt.columns[idx+1:]...)
	for i, row := range pt.rows {
		pt.rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return nil
}

func (a *Adapter) UpdateColumnType(ctx context.Context, table *catalog.Table, placement *catalog.ColumnPlacement, newType, oldType *types.Type) error {
	return nil // values are untyped (any) in the in-memory store; no conversion needed
}

func (a *Adapter) AddIndex(ctx context.Context, index *catalog.Index) error { return nil }
func (a *Adapter) DropIndex(ctx context.Context, index *catalog.Index) error { return nil }

func (a *Adapter) Truncate(ctx context.Context, table *catalog.Table) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := tableKey{schema: "public", name: table.Name}
	pt, ok := a.tables[key]
	if !ok {
		return &catalog.NotFoundError{EntityKind: "table", Key: table.Name}
	}
	old := pt.rows
	pt.rows = nil
	a.record(table.Name, func() { pt.rows = old })
	return nil
}

// Insert appends a row to table (schema "public"), for use by tests.
func (a *Adapter) Insert(tableName string, row Row) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := tableKey{schema: "public", name: tableName}
	pt, ok := a.tables[key]
	if !ok {
		return &catalog.NotFoundError{EntityKind: "table", Key: tableName}
	}
	pt.rows = append(pt.rows, row)
	a.record(tableName, func() {
		pt.rows = pt.rows[:len(pt.rows)-1]
	})
	return nil
}

// Rows returns a snapshot copy of every row currently stored for
// tableName.
func (a *Adapter) Rows(tableName string) []Row {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pt, ok := a.tables[tableKey{schema: "public", name: tableName}]
	if !ok {
		return nil
	}
	out := make([]Row, len(pt.rows))
	copy(out, pt.rows)
	return out
}

// record appends an undo action under xid-less, process-scoped
// tracking so Truncate/CreateTable/DropTable used outside a
// coordinated transaction still have something to roll back to if the
// caller later begins a 2PC transaction and aborts it; entries are
// bucketed by table name since the reference adapter does not track a
// live xid until Prepare/Commit/Rollback is called for one.
func (a *Adapter) record(tableName string, undo func()) {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	a.undo[tableName] = append(a.undo[tableName], undo)
}

func (a *Adapter) Prepare(xid string) (bool, error) { return true, nil }

func (a *Adapter) Commit(xid string) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	a.undo = make(map[string][]func())
	return nil
}

func (a *Adapter) Rollback(xid string) error {
	a.mu.Lock()
	a.txMu.Lock()
	defer a.txMu.Unlock()
	defer a.mu.Unlock()
	for _, actions := range a.undo {
		for i := len(actions) - 1; i >= 0; i-- {
			actions[i]()
		}
	}
	a.undo = make(map[string][]func())
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

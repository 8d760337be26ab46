// Package adapter defines the narrow contract every store
// implementation satisfies (component C7) and a driver-tag-keyed
// registry for constructing them, grounded on the same registration
// idiom internal/introspect uses for its per-dialect introspecters.
package adapter

import (
	"context"
	"fmt"
	"sync"

	"polyplan/internal/catalog"
	"polyplan/internal/types"
)

// PhysicalTable names the physical entity an adapter created for a
// logical table, reported back so the catalog can record a
// ColumnPlacement's physical names.
type PhysicalTable struct {
	Schema string
	Name   string
}

// Capabilities are the flags the planner and builder consult before
// choosing an adapter's convention for a subtree (spec.md §4.7, §6).
type Capabilities struct {
	SupportsNestedArrays bool
	SupportsBinaryStream bool
	SupportsWrite        bool
	SupportsIndexes      bool
	SupportsRollback     bool
	SupportsPrepare      bool
}

// Adapter is the full contract a store implementation exposes.
// Unsupported operations return *UnsupportedOperationError rather than
// panicking, so planner rules can consult Capabilities() up front and
// callers that skip that check still fail cleanly.
type Adapter interface {
	CreateNamespace(ctx context.Context, rootSchema, name string, id catalog.ID) error
	CreateTable(ctx context.Context, table *catalog.Table, columns []*catalog.Column) ([]PhysicalTable, error)
	DropTable(ctx context.Context, table *catalog.Table, physicals []PhysicalTable) error
	AddColumn(ctx context.Context, table *catalog.Table, column *catalog.Column) error
	// DropColumn and UpdateColumnType take the owning table explicitly:
	// ColumnPlacement (spec.md §3) has no physical-table-name field, so
	// an adapter cannot locate the physical row storage from the
	// placement alone (the same modeling gap internal/router resolves
	// by treating the physical table name as the logical Table.Name).
	DropColumn(ctx context.Context, table *catalog.Table, placement *catalog.ColumnPlacement) error
	UpdateColumnType(ctx context.Context, table *catalog.Table, placement *catalog.ColumnPlacement, newType, oldType *types.Type) error
	AddIndex(ctx context.Context, index *catalog.Index) error
	DropIndex(ctx context.Context, index *catalog.Index) error
	Truncate(ctx context.Context, table *catalog.Table) error

	// Prepare, Commit and Rollback are keyed by the coordinator's xid
	// (spec.md §4.6/§6 "included in every adapter call for
	// correlation"); an adapter may have at most one transaction
	// in flight per xid.
	Prepare(xid string) (bool, error)
	Commit(xid string) error
	Rollback(xid string) error

	Capabilities() Capabilities
}

// UnsupportedOperationError is returned for an operation a given
// adapter declines, keyed to the closed error taxonomy's
// UnsupportedOperation(adapter, op) kind (spec.md §7).
type UnsupportedOperationError struct {
	Adapter string
	Op      string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("adapter %q does not support %s", e.Adapter, e.Op)
}

// Factory builds an Adapter instance from its store settings map
// (spec.md §6 "a settings map persisted in the catalog").
type Factory func(settings map[string]string) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register associates driverTag (the catalog Store.Adapter field)
// with a constructor. Intended to be called from an adapter
// implementation's package init, mirroring internal/introspect's
// dialect registration.
func Register(driverTag string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[driverTag] = factory
}

// New constructs the adapter registered under driverTag.
func New(driverTag string, settings map[string]string) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[driverTag]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("adapter: unregistered driver tag %q", driverTag)
	}
	return factory(settings)
}

package catalog

import "sync"

// Handle is the process-wide catalog metamodel store. It is the
// "CatalogHandle" object named in spec.md §9: explicit, passed by
// reference, never a hidden singleton.
//
// Entities are immutable after construction: a mutation builds a new
// *T and swaps it into the relevant map rather than editing fields in
// place, so a Snapshot taken under RLock remains valid for the
// lifetime of the query that captured it even while later
// transactions keep mutating the live Handle (spec.md §5: "a
// read-only snapshot of the catalog is captured at the start of a
// query and used throughout its planning to avoid mid-query schema
// drift").
type Handle struct {
	mu      sync.RWMutex
	writeMu sync.Mutex // serializes write-transactions (single-writer, spec.md §5)
	ids     idGenerator

	caseSensitive bool

	users    map[ID]*User
	database map[ID]*Database
	schema   map[ID]*Schema
	table    map[ID]*Table
	column   map[ID]*Column
	dflt     map[ID]*DefaultValue // keyed by ColumnID

	store           map[ID]*Store
	dataPlacement   map[dpKey]*DataPlacement
	columnPlacement map[cpKey]*ColumnPlacement

	key        map[ID]*Key
	foreignKey map[ID]*ForeignKey
	constraint map[ID]*Constraint
	index      map[ID]*Index
}

type dpKey struct {
	StoreID     ID
	TableID     ID
	PartitionID int
}

type cpKey struct {
	StoreID  ID
	ColumnID ID
}

// NewHandle creates an empty catalog. caseSensitive controls whether
// name lookups and uniqueness indexes fold case (spec.md §3).
func NewHandle(caseSensitive bool) *Handle {
	return &Handle{
		caseSensitive:   caseSensitive,
		users:           make(map[ID]*User),
		database:        make(map[ID]*Database),
		schema:          make(map[ID]*Schema),
		table:           make(map[ID]*Table),
		column:          make(map[ID]*Column),
		dflt:            make(map[ID]*DefaultValue),
		store:           make(map[ID]*Store),
		dataPlacement:   make(map[dpKey]*DataPlacement),
		columnPlacement: make(map[cpKey]*ColumnPlacement),
		key:             make(map[ID]*Key),
		foreignKey:      make(map[ID]*ForeignKey),
		constraint:      make(map[ID]*Constraint),
		index:           make(map[ID]*Index),
	}
}

// Snapshot is a consistent, point-in-time, read-only view of the
// catalog, safe to consult repeatedly during one query's planning.
type Snapshot struct {
	caseSensitive bool

	users    map[ID]*User
	database map[ID]*Database
	schema   map[ID]*Schema
	table    map[ID]*Table
	column   map[ID]*Column
	dflt     map[ID]*DefaultValue

	store           map[ID]*Store
	dataPlacement   map[dpKey]*DataPlacement
	columnPlacement map[cpKey]*ColumnPlacement

	key        map[ID]*Key
	foreignKey map[ID]*ForeignKey
	constraint map[ID]*Constraint
	index      map[ID]*Index
}

// Snapshot copies h's current state. Write transactions apply their
// mutations in place, so a snapshot taken while one is open includes
// its uncommitted changes.
func (h *Handle) Snapshot() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return &Snapshot{
		caseSensitive:   h.caseSensitive,
		users:           cloneMap(h.users),
		database:        cloneMap(h.database),
		schema:          cloneMap(h.schema),
		table:           cloneMap(h.table),
		column:          cloneMap(h.column),
		dflt:            cloneMap(h.dflt),
		store:           cloneMap(h.store),
		dataPlacement:   cloneMap(h.dataPlacement),
		columnPlacement: cloneMap(h.columnPlacement),
		key:             cloneMap(h.key),
		foreignKey:      cloneMap(h.foreignKey),
		constraint:      cloneMap(h.constraint),
		index:           cloneMap(h.index),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	cp := make(map[K]V, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

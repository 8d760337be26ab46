// Package router implements the placement-aware routing pass
// (component C5): it rewrites a logical plan's TableScan leaves into
// adapter-bound physical scans, splitting a table's scan across
// stores and rejoining on the primary key when its columns are
// placed on more than one adapter.
//
// The rewrite walks the plan with an algebra.Visitor the way
// internal/planner's rules rewrite one node at a time, grounded on the
// same visitor dispatch internal/algebra already establishes;
// routing itself has no teacher analogue (the teacher repo has no
// federation layer), so its control flow is built directly from
// spec.md §4.5 and verified against catalog's actual placement model.
package router

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"polyplan/internal/algebra"
	"polyplan/internal/catalog"
	"polyplan/internal/types"
)

// defaultRowsHint is used for routed adapter scans in the absence of a
// catalog statistics table (not modeled: the catalog carries placement
// and structural metadata only, per internal/catalog/model.go).
const defaultRowsHint = 1000.0

var eqOperator = algebra.Operator{
	Name: "EQ",
	InferType: func(f *types.Factory, operands []*types.Type) (*types.Type, error) {
		return f.Simple(types.Boolean), nil
	},
}

var andOperator = algebra.Operator{
	Name: "AND",
	InferType: func(f *types.Factory, operands []*types.Type) (*types.Type, error) {
		return f.Simple(types.Boolean), nil
	},
}

// Router rewrites TableScan leaves into physical, adapter-bound scans.
// A single Router is shared across queries so its routed-scan cache
// amortizes repeated routing of the same table (spec.md §5 "the
// routed-scan cache is a shared LRU").
type Router struct {
	factory *types.Factory

	cacheMu      sync.RWMutex
	cache        *lru.Cache[string, algebra.RelNode]
	cacheEnabled bool
}

// New builds a Router. factory must be the same type.Factory the
// catalog's columns were interned against, so routed scans carry
// pointer-identical types. cacheSize is the LRU's entry cap (spec.md
// §4.5 "cached LRU"); 0 defaults to 256.
func New(factory *types.Factory, cacheSize int) (*Router, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, algebra.RelNode](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("router: build scan cache: %w", err)
	}
	return &Router{factory: factory, cache: cache, cacheEnabled: true}, nil
}

// SetCacheEnabled toggles the routed-scan cache, wiring
// config.RuntimeConfig.JoinedTableScanCache (spec.md §6): an operator
// who wants every route recomputed from the live catalog, e.g. while
// debugging a placement change, can turn it off without rebuilding the
// Router.
func (r *Router) SetCacheEnabled(enabled bool) *Router {
	r.cacheMu.Lock()
	r.cacheEnabled = enabled
	r.cacheMu.Unlock()
	return r
}

// Route rewrites every TableScan in plan against snapshot into its
// routed, adapter-bound equivalent. Non-scan nodes are structural
// copies substituting routed children (spec.md §4.5); Values and
// literal-producing leaves pass through unchanged.
func (r *Router) Route(snapshot *catalog.Snapshot, plan algebra.RelNode) (algebra.RelNode, error) {
	v := &routingVisitor{router: r, snapshot: snapshot}
	out := plan.Accept(v)
	if v.err != nil {
		return nil, v.err
	}
	return out, nil
}

type routingVisitor struct {
	router   *Router
	snapshot *catalog.Snapshot
	err      error
}

func (v *routingVisitor) recurse(n algebra.RelNode) algebra.RelNode {
	if v.err != nil {
		return n
	}
	inputs := n.Inputs()
	if len(inputs) == 0 {
		return n
	}
	newInputs := make([]algebra.RelNode, len(inputs))
	for i, in := range inputs {
		newInputs[i] = in.Accept(v)
	}
	if v.err != nil {
		return n
	}
	return n.WithInputs(newInputs)
}

func (v *routingVisitor) VisitTableScan(n *algebra.TableScan) algebra.RelNode {
	routed, err := v.router.routeScan(v.snapshot, n)
	if err != nil {
		v.err = err
		return n
	}
	return routed
}

func (v *routingVisitor) VisitValues(n *algebra.Values) algebra.RelNode { return n }
func (v *routingVisitor) VisitProject(n *algebra.Project) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitFilter(n *algebra.Filter) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitAggregate(n *algebra.Aggregate) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitSort(n *algebra.Sort) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitJoin(n *algebra.Join) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitCorrelate(n *algebra.Correlate) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitSetOp(n *algebra.SetOp) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitExchange(n *algebra.Exchange) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitSortExchange(n *algebra.SortExchange) algebra.RelNode {
	return v.recurse(n)
}
func (v *routingVisitor) VisitMatch(n *algebra.Match) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitModify(n *algebra.Modify) algebra.RelNode { return v.recurse(n) }
func (v *routingVisitor) VisitConstraintEnforcer(n *algebra.ConstraintEnforcer) algebra.RelNode {
	return v.recurse(n)
}

// routeScan looks up n's table (EntityRef is its decimal catalog id,
// the convention internal/builder emits a TableScan under) and
// rewrites it per the per-scan algorithm in spec.md §4.5.
func (r *Router) routeScan(snapshot *catalog.Snapshot, n *algebra.TableScan) (algebra.RelNode, error) {
	tableID, err := parseTableRef(n.EntityRef)
	if err != nil {
		return nil, err
	}
	table, err := snapshot.GetTable(tableID)
	if err != nil {
		return nil, fmt.Errorf("router: scan %s: %w", n.EntityRef, err)
	}

	fp := fingerprint(snapshot, tableID)

	r.cacheMu.RLock()
	enabled := r.cacheEnabled
	r.cacheMu.RUnlock()

	if enabled {
		r.cacheMu.RLock()
		cached, ok := r.cache.Get(fp)
		r.cacheMu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	routed, err := r.buildRoutedScan(snapshot, table, n.Row)
	if err != nil {
		return nil, err
	}

	if enabled {
		r.cacheMu.Lock()
		r.cache.Add(fp, routed)
		r.cacheMu.Unlock()
	}
	return routed, nil
}

func parseTableRef(entityRef string) (catalog.ID, error) {
	id, err := strconv.ParseInt(entityRef, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("router: TableScan EntityRef %q is not a catalog table id: %w", entityRef, err)
	}
	return catalog.ID(id), nil
}

// fingerprint is a stable string over the ordered (adapterId,
// physicalSchemaName, columnId) triples backing tableID, the key the
// routed-scan cache is keyed by (spec.md §4.5). It changes whenever a
// placement or column touching the table changes, which is what makes
// a stale cache entry simply unreachable rather than needing explicit
// invalidation.
func fingerprint(snapshot *catalog.Snapshot, tableID catalog.ID) string {
	cps := snapshot.GetColumnPlacementsForTable(tableID)
	sort.Slice(cps, func(i, j int) bool {
		if cps[i].StoreID != cps[j].StoreID {
			return cps[i].StoreID < cps[j].StoreID
		}
		return cps[i].ColumnID < cps[j].ColumnID
	})
	var b strings.Builder
	fmt.Fprintf(&b, "table=%d", tableID)
	for _, cp := range cps {
		fmt.Fprintf(&b, ";(%d,%s,%d)", cp.StoreID, cp.PhysicalSchemaName, cp.ColumnID)
	}
	dps := snapshot.GetDataPlacementsForTable(tableID)
	sort.Slice(dps, func(i, j int) bool {
		if dps[i].StoreID != dps[j].StoreID {
			return dps[i].StoreID < dps[j].StoreID
		}
		return dps[i].PartitionID < dps[j].PartitionID
	})
	for _, dp := range dps {
		fmt.Fprintf(&b, ";p(%d,%d)", dp.StoreID, dp.PartitionID)
	}
	return b.String()
}

type partition struct {
	store   *catalog.Store
	columns []*catalog.Column
}

// buildRoutedScan implements spec.md §4.5's per-scan algorithm:
// partition the required columns by adapter, emit a single adapter
// scan if only one adapter is involved, or split/rejoin on the
// primary key otherwise.
func (r *Router) buildRoutedScan(snapshot *catalog.Snapshot, table *catalog.Table, outRow algebra.RowType) (algebra.RelNode, error) {
	columns := snapshot.GetColumns(table.ID)
	if len(columns) == 0 {
		return nil, fmt.Errorf("router: table %q (id %d) has no columns", table.Name, table.ID)
	}

	partitions, storeIDs, err := partitionByStore(snapshot, columns)
	if err != nil {
		return nil, err
	}

	if len(storeIDs) == 1 {
		p := partitions[storeIDs[0]]
		sort.Slice(p.columns, func(i, j int) bool { return p.columns[i].Position < p.columns[j].Position })
		return r.storeInput(snapshot, table, p, outRow)
	}

	pk, err := primaryKeyColumns(snapshot, table)
	if err != nil {
		return nil, fmt.Errorf("router: table %q is split across %d adapters but has no usable primary key: %w", table.Name, len(storeIDs), err)
	}

	for _, sid := range storeIDs {
		p := partitions[sid]
		if err := ensurePrimaryKeyColumns(snapshot, sid, p, pk); err != nil {
			return nil, err
		}
		sort.Slice(p.columns, func(i, j int) bool { return p.columns[i].Position < p.columns[j].Position })
	}

	var joined algebra.RelNode
	var joinedCols []*catalog.Column
	for i, sid := range storeIDs {
		p := partitions[sid]
		scan, err := r.storeInput(snapshot, table, p, physicalRowType(p.columns))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			joined, joinedCols = scan, p.columns
			continue
		}
		cond, err := r.primaryKeyJoinCondition(joinedCols, p.columns, pk)
		if err != nil {
			return nil, err
		}
		joined = algebra.NewJoin(joined, scan, cond, algebra.JoinInner)
		joinedCols = append(append([]*catalog.Column(nil), joinedCols...), p.columns...)
	}

	return projectToOriginalOrder(joined, joinedCols, columns, outRow)
}

// partitionByStore groups columns by the adapter holding their
// (first) column placement, in adapter-id ascending order (spec.md
// §4.5 step 2, and step 4's "ascending by adapter id" join ordering).
func partitionByStore(snapshot *catalog.Snapshot, columns []*catalog.Column) (map[catalog.ID]*partition, []catalog.ID, error) {
	partitions := make(map[catalog.ID]*partition)
	var storeIDs []catalog.ID
	for _, col := range columns {
		cps := snapshot.GetColumnPlacementsForColumn(col.ID)
		if len(cps) == 0 {
			return nil, nil, fmt.Errorf("router: column %q (id %d) has no placement", col.Name, col.ID)
		}
		cp := cps[0]
		p, ok := partitions[cp.StoreID]
		if !ok {
			store, err := snapshot.GetStore(cp.StoreID)
			if err != nil {
				return nil, nil, fmt.Errorf("router: column placement references unknown store: %w", err)
			}
			p = &partition{store: store}
			partitions[cp.StoreID] = p
			storeIDs = append(storeIDs, cp.StoreID)
		}
		p.columns = append(p.columns, col)
	}
	sort.Slice(storeIDs, func(i, j int) bool { return storeIDs[i] < storeIDs[j] })
	return partitions, storeIDs, nil
}

func primaryKeyColumns(snapshot *catalog.Snapshot, table *catalog.Table) ([]*catalog.Column, error) {
	if table.PrimaryKeyID == 0 {
		return nil, fmt.Errorf("table has no primary key")
	}
	key, err := snapshot.GetKey(table.PrimaryKeyID)
	if err != nil {
		return nil, err
	}
	cols := make([]*catalog.Column, len(key.ColumnIDs))
	for i, cid := range key.ColumnIDs {
		col, err := snapshot.GetColumn(cid)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// ensurePrimaryKeyColumns adds any primary-key column missing from p's
// partition, provided that column also has a placement on p's store
// (spec.md §4.5 step 4). Added columns are appended; callers re-sort
// by position afterward.
func ensurePrimaryKeyColumns(snapshot *catalog.Snapshot, storeID catalog.ID, p *partition, pk []*catalog.Column) error {
	have := make(map[catalog.ID]bool, len(p.columns))
	for _, c := range p.columns {
		have[c.ID] = true
	}
	for _, pkCol := range pk {
		if have[pkCol.ID] {
			continue
		}
		placed := false
		for _, cp := range snapshot.GetColumnPlacementsForColumn(pkCol.ID) {
			if cp.StoreID == storeID {
				placed = true
				break
			}
		}
		if !placed {
			return fmt.Errorf("router: store %d has no placement for primary key column %q, cannot join its partition", storeID, pkCol.Name)
		}
		p.columns = append(p.columns, pkCol)
		have[pkCol.ID] = true
	}
	return nil
}

// storeInput builds the single logical input a store contributes to
// table's routed scan. A store holding one, unpartitioned placement of
// the table contributes a single adapter scan; a store holding several
// horizontal partitions of the table (spec.md §4.5 step 6) contributes
// one adapter scan per partition, unioned with UNION ALL (rows never
// repeat across partitions, so duplicates need not be eliminated).
func (r *Router) storeInput(snapshot *catalog.Snapshot, table *catalog.Table, p *partition, outRow algebra.RowType) (algebra.RelNode, error) {
	partitionIDs := snapshot.GetPartitionIDsForStore(p.store.ID, table.ID)
	if len(partitionIDs) <= 1 {
		return r.adapterScan(snapshot, p.store, p.columns, table.Name, nil, outRow)
	}

	scans := make([]algebra.RelNode, len(partitionIDs))
	for i, partitionID := range partitionIDs {
		scan, err := r.adapterScan(snapshot, p.store, p.columns, table.Name, &partitionID, outRow)
		if err != nil {
			return nil, err
		}
		scans[i] = scan
	}
	return algebra.NewSetOp(algebra.SetOpUnion, true, scans), nil
}

// adapterScan builds a physical TableScan bound to store, over the
// physical names store's column placements declare. The physical
// table name is assumed identical to the logical table name: the
// catalog models physical naming per-column only (ColumnPlacement has
// no physical-table-name field), so the scan's entity reference is
// <storeUniqueName>.<physicalSchema>.<logicalTableName>, suffixed with
// "#p<partition id>" when partitionID is non-nil.
func (r *Router) adapterScan(snapshot *catalog.Snapshot, store *catalog.Store, cols []*catalog.Column, tableName string, partitionID *int, outRow algebra.RowType) (*algebra.TableScan, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("router: adapter scan on store %q has no columns", store.UniqueName)
	}
	physicalSchema, err := placementSchema(snapshot, store.ID, cols[0].ID)
	if err != nil {
		return nil, err
	}
	row := make(algebra.RowType, len(outRow))
	copy(row, outRow)
	traits := algebra.TraitSet{Convention: algebra.AdapterConvention(store.UniqueName)}
	entityRef := fmt.Sprintf("%s.%s.%s", store.UniqueName, physicalSchema, tableName)
	if partitionID != nil {
		entityRef = fmt.Sprintf("%s#p%d", entityRef, *partitionID)
	}
	return algebra.NewTableScan(entityRef, row, traits, defaultRowsHint), nil
}

// placementSchema returns the physical schema name storeID's
// placement of columnID declares.
func placementSchema(snapshot *catalog.Snapshot, storeID, columnID catalog.ID) (string, error) {
	for _, cp := range snapshot.GetColumnPlacementsForColumn(columnID) {
		if cp.StoreID == storeID {
			return cp.PhysicalSchemaName, nil
		}
	}
	return "", fmt.Errorf("router: no placement of column %d on store %d", columnID, storeID)
}

func physicalRowType(cols []*catalog.Column) algebra.RowType {
	row := make(algebra.RowType, len(cols))
	for i, c := range cols {
		row[i] = algebra.Field{Name: c.Name, Type: c.Type}
	}
	return row
}

func (r *Router) primaryKeyJoinCondition(leftCols, rightCols []*catalog.Column, pk []*catalog.Column) (algebra.RexNode, error) {
	conds := make([]algebra.RexNode, 0, len(pk))
	for _, pkCol := range pk {
		li := columnIndex(leftCols, pkCol.ID)
		ri := columnIndex(rightCols, pkCol.ID)
		if li < 0 || ri < 0 {
			return nil, fmt.Errorf("router: primary key column %q missing from a join partition", pkCol.Name)
		}
		left := algebra.NewIndexRef(li, pkCol.Type)
		right := algebra.NewIndexRef(len(leftCols)+ri, pkCol.Type)
		eq, err := algebra.NewCall(r.factory, eqOperator, left, right)
		if err != nil {
			return nil, err
		}
		conds = append(conds, eq)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return algebra.NewCall(r.factory, andOperator, conds...)
}

func columnIndex(cols []*catalog.Column, id catalog.ID) int {
	for i, c := range cols {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// projectToOriginalOrder narrows the joined partitions' concatenated
// row back down to the caller's originally requested column order
// (spec.md §4.5 step 5).
func projectToOriginalOrder(joined algebra.RelNode, joinedCols, originalCols []*catalog.Column, outRow algebra.RowType) (algebra.RelNode, error) {
	projects := make([]algebra.RexNode, len(originalCols))
	for i, col := range originalCols {
		idx := columnIndex(joinedCols, col.ID)
		if idx < 0 {
			return nil, fmt.Errorf("router: column %q missing from the routed join", col.Name)
		}
		projects[i] = algebra.NewIndexRef(idx, col.Type)
	}
	return algebra.NewProject(joined, projects, outRow), nil
}

package catalog

import "sort"

// GetStores returns every configured store.
func (s *Snapshot) GetStores() []*Store {
	out := make([]*Store, 0, len(s.store))
	for _, st := range s.store {
		out = append(out, st)
	}
	return out
}

// GetStore looks up a store by surrogate id.
func (s *Snapshot) GetStore(id ID) (*Store, error) {
	if st, ok := s.store[id]; ok {
		return st, nil
	}
	return nil, &NotFoundError{EntityKind: "store", Key: idKey(id)}
}

// GetStoreByName looks up a store by exact unique name.
func (s *Snapshot) GetStoreByName(name string) (*Store, error) {
	var matches []*Store
	for _, st := range s.store {
		if foldName(st.UniqueName, s.caseSensitive) == foldName(name, s.caseSensitive) {
			matches = append(matches, st)
		}
	}
	return oneOf(matches, "store", name)
}

// AddStore registers a new adapter instance.
func (tx *Tx) AddStore(uniqueName, adapter string, settings map[string]string) (*Store, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	for _, st := range tx.h.store {
		if foldName(st.UniqueName, tx.h.caseSensitive) == foldName(uniqueName, tx.h.caseSensitive) {
			return nil, &IntegrityViolationError{EntityKind: "store", Key: uniqueName, Reason: "name already exists"}
		}
	}
	cp := make(map[string]string, len(settings))
	for k, v := range settings {
		cp[k] = v
	}
	st := &Store{ID: tx.h.ids.nextID(), UniqueName: uniqueName, Adapter: adapter, Settings: cp}
	tx.h.store[st.ID] = st
	tx.record(func() { delete(tx.h.store, st.ID) })
	return st, nil
}

// DeleteStore removes a store. Exactly one row must be affected; if
// the catalog is inconsistent (orphan placements referencing it) this
// still only removes the Store row, preserving the source's
// conservative behavior per spec.md §9.
func (tx *Tx) DeleteStore(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.store[id]
	if !ok {
		return &NotFoundError{EntityKind: "store", Key: idKey(id)}
	}
	delete(tx.h.store, id)
	tx.record(func() { tx.h.store[id] = old })
	return nil
}

// AddDataPlacement records that tableID's rows reside on storeID.
// partitionID distinguishes multiple horizontal partitions of the same
// table placed on the same store (spec.md §4.5 step 6); pass 0 for an
// unpartitioned, whole-table placement.
func (tx *Tx) AddDataPlacement(storeID, tableID ID, partitionID int, placementType PlacementType) (*DataPlacement, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	if _, ok := tx.h.store[storeID]; !ok {
		return nil, &NotFoundError{EntityKind: "store", Key: idKey(storeID)}
	}
	if _, ok := tx.h.table[tableID]; !ok {
		return nil, &NotFoundError{EntityKind: "table", Key: idKey(tableID)}
	}
	key := dpKey{StoreID: storeID, TableID: tableID, PartitionID: partitionID}
	if _, ok := tx.h.dataPlacement[key]; ok {
		return nil, &IntegrityViolationError{EntityKind: "data_placement", Key: idKey(tableID), Reason: "placement already exists for (store, table, partition)"}
	}
	dp := &DataPlacement{StoreID: storeID, TableID: tableID, PartitionID: partitionID, PlacementType: placementType}
	tx.h.dataPlacement[key] = dp
	tx.record(func() { delete(tx.h.dataPlacement, key) })
	return dp, nil
}

// GetDataPlacementsForTable returns every store a table's rows live on.
func (s *Snapshot) GetDataPlacementsForTable(tableID ID) []*DataPlacement {
	var out []*DataPlacement
	for _, dp := range s.dataPlacement {
		if dp.TableID == tableID {
			out = append(out, dp)
		}
	}
	return out
}

// GetDataPlacementsForStore returns every table placed on a store.
func (s *Snapshot) GetDataPlacementsForStore(storeID ID) []*DataPlacement {
	var out []*DataPlacement
	for _, dp := range s.dataPlacement {
		if dp.StoreID == storeID {
			out = append(out, dp)
		}
	}
	return out
}

// DeleteDataPlacement removes the (storeID, tableID, partitionID) placement.
func (tx *Tx) DeleteDataPlacement(storeID, tableID ID, partitionID int) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	key := dpKey{StoreID: storeID, TableID: tableID, PartitionID: partitionID}
	old, ok := tx.h.dataPlacement[key]
	if !ok {
		return &NotFoundError{EntityKind: "data_placement", Key: idKey(tableID)}
	}
	delete(tx.h.dataPlacement, key)
	tx.record(func() { tx.h.dataPlacement[key] = old })
	return nil
}

// GetPartitionIDsForStore returns the sorted, distinct partition ids
// tableID has a DataPlacement row for on storeID (spec.md §4.5 step
// 6). A table with a single, unpartitioned placement returns [0].
func (s *Snapshot) GetPartitionIDsForStore(storeID, tableID ID) []int {
	var out []int
	for _, dp := range s.dataPlacement {
		if dp.StoreID == storeID && dp.TableID == tableID {
			out = append(out, dp.PartitionID)
		}
	}
	sort.Ints(out)
	return out
}

// AddColumnPlacement records that columnID's values reside on storeID
// under a physical name.
func (tx *Tx) AddColumnPlacement(storeID, columnID ID, physicalSchema, physicalColumn string, placementType PlacementType) (*ColumnPlacement, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	if _, ok := tx.h.store[storeID]; !ok {
		return nil, &NotFoundError{EntityKind: "store", Key: idKey(storeID)}
	}
	if _, ok := tx.h.column[columnID]; !ok {
		return nil, &NotFoundError{EntityKind: "column", Key: idKey(columnID)}
	}
	key := cpKey{StoreID: storeID, ColumnID: columnID}
	if _, ok := tx.h.columnPlacement[key]; ok {
		return nil, &IntegrityViolationError{EntityKind: "column_placement", Key: idKey(columnID), Reason: "placement already exists for (store, column)"}
	}
	cp := &ColumnPlacement{
		StoreID: storeID, ColumnID: columnID,
		PhysicalSchemaName: physicalSchema, PhysicalColumnName: physicalColumn,
		PlacementType: placementType,
	}
	tx.h.columnPlacement[key] = cp
	tx.record(func() { delete(tx.h.columnPlacement, key) })
	return cp, nil
}

// GetColumnPlacementsForColumn returns every store a column's values live on.
func (s *Snapshot) GetColumnPlacementsForColumn(columnID ID) []*ColumnPlacement {
	var out []*ColumnPlacement
	for _, cp := range s.columnPlacement {
		if cp.ColumnID == columnID {
			out = append(out, cp)
		}
	}
	return out
}

// GetColumnPlacementsForTable returns every column placement covering
// any column of tableID.
func (s *Snapshot) GetColumnPlacementsForTable(tableID ID) []*ColumnPlacement {
	var out []*ColumnPlacement
	for _, cp := range s.columnPlacement {
		if col, ok := s.column[cp.ColumnID]; ok && col.TableID == tableID {
			out = append(out, cp)
		}
	}
	return out
}

// DeleteColumnPlacement removes the (storeID, columnID) placement.
func (tx *Tx) DeleteColumnPlacement(storeID, columnID ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	key := cpKey{StoreID: storeID, ColumnID: columnID}
	old, ok := tx.h.columnPlacement[key]
	if !ok {
		return &NotFoundError{EntityKind: "column_placement", Key: idKey(columnID)}
	}
	delete(tx.h.columnPlacement, key)
	tx.record(func() { tx.h.columnPlacement[key] = old })
	return nil
}

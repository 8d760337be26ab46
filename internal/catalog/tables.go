package catalog

// GetTables returns every table in schemaID whose name matches pattern.
func (s *Snapshot) GetTables(schemaID ID, pattern string) []*Table {
	var out []*Table
	for _, t := range s.table {
		if t.SchemaID == schemaID && matchName(t.Name, pattern, s.caseSensitive) {
			out = append(out, t)
		}
	}
	return out
}

// GetTable looks up a table by surrogate id.
func (s *Snapshot) GetTable(id ID) (*Table, error) {
	if t, ok := s.table[id]; ok {
		return t, nil
	}
	return nil, &NotFoundError{EntityKind: "table", Key: idKey(id)}
}

// GetTableByName looks up a table by exact name within a schema.
func (s *Snapshot) GetTableByName(schemaID ID, name string) (*Table, error) {
	var matches []*Table
	for _, t := range s.table {
		if t.SchemaID == schemaID && foldName(t.Name, s.caseSensitive) == foldName(name, s.caseSensitive) {
			matches = append(matches, t)
		}
	}
	return oneOf(matches, "table", name)
}

// AddTable creates a new table within schemaID.
func (tx *Tx) AddTable(name string, schemaID, ownerID ID, tableType TableType, definition string) (*Table, error) {
	if err := CheckIdentifier(name); err != nil {
		return nil, err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	if _, ok := tx.h.schema[schemaID]; !ok {
		return nil, &NotFoundError{EntityKind: "schema", Key: idKey(schemaID)}
	}
	for _, t := range tx.h.table {
		if t.SchemaID == schemaID && foldName(t.Name, tx.h.caseSensitive) == foldName(name, tx.h.caseSensitive) {
			return nil, &IntegrityViolationError{EntityKind: "table", Key: name, Reason: "name already exists in schema"}
		}
	}
	t := &Table{ID: tx.h.ids.nextID(), Name: name, SchemaID: schemaID, OwnerID: ownerID, Type: tableType, Definition: definition}
	tx.h.table[t.ID] = t
	tx.record(func() { delete(tx.h.table, t.ID) })
	return t, nil
}

// RenameTable changes a table's user-visible name.
func (tx *Tx) RenameTable(id ID, newName string) error {
	if err := CheckIdentifier(newName); err != nil {
		return err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.table[id]
	if !ok {
		return &NotFoundError{EntityKind: "table", Key: idKey(id)}
	}
	updated := *old
	updated.Name = newName
	tx.h.table[id] = &updated
	tx.record(func() { tx.h.table[id] = old })
	return nil
}

// SetTableOwner reassigns a table's owner.
func (tx *Tx) SetTableOwner(id, ownerID ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.table[id]
	if !ok {
		return &NotFoundError{EntityKind: "table", Key: idKey(id)}
	}
	updated := *old
	updated.OwnerID = ownerID
	tx.h.table[id] = &updated
	tx.record(func() { tx.h.table[id] = old })
	return nil
}

// SetPrimaryKey points tableID at keyID as its primary key, or clears
// it when keyID is 0. The key, if non-zero, must belong to the table
// (spec.md §3 global invariant).
func (tx *Tx) SetPrimaryKey(tableID, keyID ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.table[tableID]
	if !ok {
		return &NotFoundError{EntityKind: "table", Key: idKey(tableID)}
	}
	if keyID != 0 {
		k, ok := tx.h.key[keyID]
		if !ok {
			return &NotFoundError{EntityKind: "key", Key: idKey(keyID)}
		}
		if k.TableID != tableID {
			return &IntegrityViolationError{EntityKind: "key", Key: idKey(keyID), Reason: "key does not belong to table"}
		}
	}
	updated := *old
	updated.PrimaryKeyID = keyID
	tx.h.table[tableID] = &updated
	tx.record(func() { tx.h.table[tableID] = old })
	return nil
}

// DeleteTable removes a table and cascades to its columns, data and
// column placements, keys (and their key-columns), foreign keys,
// constraints and indexes (spec.md §3 global invariant). Exactly one
// table row must be affected, per spec.md §9's note preserving the
// source's conservative single-row expectation.
func (tx *Tx) DeleteTable(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	old, ok := tx.h.table[id]
	if !ok {
		return &NotFoundError{EntityKind: "table", Key: idKey(id)}
	}

	var undos []func()
	push := func(u func()) { undos = append(undos, u) }

	for cid, col := range tx.h.column {
		if col.TableID != id {
			continue
		}
		push(captureDelete(tx.h.column, cid, col))
		delete(tx.h.column, cid)
		if dv, ok := tx.h.dflt[cid]; ok {
			push(captureDelete(tx.h.dflt, cid, dv))
			delete(tx.h.dflt, cid)
		}
		for k, cp := range tx.h.columnPlacement {
			if k.ColumnID == cid {
				push(captureDelete(tx.h.columnPlacement, k, cp))
				delete(tx.h.columnPlacement, k)
			}
		}
	}
	for k, dp := range tx.h.dataPlacement {
		if k.TableID == id {
			push(captureDelete(tx.h.dataPlacement, k, dp))
			delete(tx.h.dataPlacement, k)
		}
	}
	for kid, k := range tx.h.key {
		if k.TableID != id {
			continue
		}
		for fid, fk := range tx.h.foreignKey {
			if fk.KeyID == kid || fk.ReferencedKeyID == kid {
				push(captureDelete(tx.h.foreignKey, fid, fk))
				delete(tx.h.foreignKey, fid)
			}
		}
		for cid, c := range tx.h.constraint {
			if c.KeyID == kid {
				push(captureDelete(tx.h.constraint, cid, c))
				delete(tx.h.constraint, cid)
			}
		}
		for iid, idx := range tx.h.index {
			if idx.KeyID == kid {
				push(captureDelete(tx.h.index, iid, idx))
				delete(tx.h.index, iid)
			}
		}
		push(captureDelete(tx.h.key, kid, k))
		delete(tx.h.key, kid)
	}

	delete(tx.h.table, id)
	push(func() { tx.h.table[id] = old })

	for _, u := range undos {
		tx.record(u)
	}
	return nil
}

func captureDelete[K comparable, V any](m map[K]V, k K, v V) func() {
	return func() { m[k] = v }
}

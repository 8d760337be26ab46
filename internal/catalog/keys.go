package catalog

// GetKey looks up a key by surrogate id.
func (s *Snapshot) GetKey(id ID) (*Key, error) {
	if k, ok := s.key[id]; ok {
		return k, nil
	}
	return nil, &NotFoundError{EntityKind: "key", Key: idKey(id)}
}

// GetKeysForTable returns every key belonging to tableID.
func (s *Snapshot) GetKeysForTable(tableID ID) []*Key {
	var out []*Key
	for _, k := range s.key {
		if k.TableID == tableID {
			out = append(out, k)
		}
	}
	return out
}

// AddKey creates a key and its ordered key-columns atomically. The
// column list must be nonempty and every column must belong to
// tableID (spec.md §3 global invariant).
func (tx *Tx) AddKey(tableID ID, columnIDs []ID, enforcement EnforcementTime) (*Key, error) {
	if len(columnIDs) == 0 {
		return nil, &IntegrityViolationError{EntityKind: "key", Key: idKey(tableID), Reason: "key must have at least one column"}
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	if _, ok := tx.h.table[tableID]; !ok {
		return nil, &NotFoundError{EntityKind: "table", Key: idKey(tableID)}
	}
	for _, cid := range columnIDs {
		c, ok := tx.h.column[cid]
		if !ok {
			return nil, &NotFoundError{EntityKind: "column", Key: idKey(cid)}
		}
		if c.TableID != tableID {
			return nil, &IntegrityViolationError{EntityKind: "column", Key: idKey(cid), Reason: "column does not belong to table"}
		}
	}

	cols := append([]ID(nil), columnIDs...)
	k := &Key{ID: tx.h.ids.nextID(), TableID: tableID, ColumnIDs: cols, EnforcementTime: enforcement}
	tx.h.key[k.ID] = k
	tx.record(func() { delete(tx.h.key, k.ID) })
	return k, nil
}

// DeleteKey removes a key and its key-columns. Per spec.md §9, this
// intentionally does not cascade to constraints or indexes that
// reference the key — callers must delete those first.
func (tx *Tx) DeleteKey(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.key[id]
	if !ok {
		return &NotFoundError{EntityKind: "key", Key: idKey(id)}
	}
	delete(tx.h.key, id)
	tx.record(func() { tx.h.key[id] = old })
	return nil
}

// AddForeignKey links a local key to a referenced key. Arity and
// pairwise type compatibility (under types.LeastRestrictive) must
// already have been checked by the caller using the snapshot that
// produced localKeyID/referencedKeyID — AddForeignKey re-checks arity
// here since both keys are looked up fresh under the write lock.
func (tx *Tx) AddForeignKey(localKeyID, referencedKeyID ID, name string, onUpdate, onDelete ReferentialAction) (*ForeignKey, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	local, ok := tx.h.key[localKeyID]
	if !ok {
		return nil, &NotFoundError{EntityKind: "key", Key: idKey(localKeyID)}
	}
	ref, ok := tx.h.key[referencedKeyID]
	if !ok {
		return nil, &NotFoundError{EntityKind: "key", Key: idKey(referencedKeyID)}
	}
	if len(local.ColumnIDs) != len(ref.ColumnIDs) {
		return nil, &IntegrityViolationError{EntityKind: "foreign_key", Key: name, Reason: "key arity mismatch"}
	}

	fk := &ForeignKey{KeyID: localKeyID, ReferencedKeyID: referencedKeyID, Name: name, OnUpdate: onUpdate, OnDelete: onDelete}
	fkID := tx.h.ids.nextID()
	tx.h.foreignKey[fkID] = fk
	tx.record(func() { delete(tx.h.foreignKey, fkID) })
	return fk, nil
}

// GetForeignKeys returns every foreign key whose local key belongs to tableID.
func (s *Snapshot) GetForeignKeys(tableID ID) []*ForeignKey {
	var out []*ForeignKey
	for _, fk := range s.foreignKey {
		if k, ok := s.key[fk.KeyID]; ok && k.TableID == tableID {
			out = append(out, fk)
		}
	}
	return out
}

// GetExportedKeys returns every foreign key that references a key
// belonging to tableID (i.e. the keys that depend on this table as a
// parent).
func (s *Snapshot) GetExportedKeys(tableID ID) []*ForeignKey {
	var out []*ForeignKey
	for _, fk := range s.foreignKey {
		if k, ok := s.key[fk.ReferencedKeyID]; ok && k.TableID == tableID {
			out = append(out, fk)
		}
	}
	return out
}

// AddConstraint names an invariant attached to keyID. name must be
// unique within the key's table, and at most one PRIMARY constraint
// may exist per table (spec.md §3 global invariant).
func (tx *Tx) AddConstraint(keyID ID, constraintType ConstraintType, name string) (*Constraint, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	k, ok := tx.h.key[keyID]
	if !ok {
		return nil, &NotFoundError{EntityKind: "key", Key: idKey(keyID)}
	}
	for _, c := range tx.h.constraint {
		if other, ok := tx.h.key[c.KeyID]; ok && other.TableID == k.TableID {
			if foldName(c.Name, tx.h.caseSensitive) == foldName(name, tx.h.caseSensitive) {
				return nil, &IntegrityViolationError{EntityKind: "constraint", Key: name, Reason: "name already exists on table"}
			}
			if constraintType == ConstraintPrimary && c.Type == ConstraintPrimary {
				return nil, &IntegrityViolationError{EntityKind: "constraint", Key: name, Reason: "table already has a primary key constraint"}
			}
		}
	}
	c := &Constraint{ID: tx.h.ids.nextID(), KeyID: keyID, Type: constraintType, Name: name}
	tx.h.constraint[c.ID] = c
	tx.record(func() { delete(tx.h.constraint, c.ID) })
	return c, nil
}

// GetConstraintsForTable returns every constraint on tableID's keys.
func (s *Snapshot) GetConstraintsForTable(tableID ID) []*Constraint {
	var out []*Constraint
	for _, c := range s.constraint {
		if k, ok := s.key[c.KeyID]; ok && k.TableID == tableID {
			out = append(out, c)
		}
	}
	return out
}

// GetConstraintsForKey returns every constraint attached to keyID.
func (s *Snapshot) GetConstraintsForKey(keyID ID) []*Constraint {
	var out []*Constraint
	for _, c := range s.constraint {
		if c.KeyID == keyID {
			out = append(out, c)
		}
	}
	return out
}

// DeleteConstraint removes a constraint by id.
func (tx *Tx) DeleteConstraint(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.constraint[id]
	if !ok {
		return &NotFoundError{EntityKind: "constraint", Key: idKey(id)}
	}
	delete(tx.h.constraint, id)
	tx.record(func() { tx.h.constraint[id] = old })
	return nil
}

// AddIndex creates a physical access path for keyID on location.
func (tx *Tx) AddIndex(keyID ID, indexType string, unique bool, location ID, name string) (*Index, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	k, ok := tx.h.key[keyID]
	if !ok {
		return nil, &NotFoundError{EntityKind: "key", Key: idKey(keyID)}
	}
	for _, idx := range tx.h.index {
		if other, ok := tx.h.key[idx.KeyID]; ok && other.TableID == k.TableID {
			if foldName(idx.Name, tx.h.caseSensitive) == foldName(name, tx.h.caseSensitive) {
				return nil, &IntegrityViolationError{EntityKind: "index", Key: name, Reason: "name already exists on table"}
			}
		}
	}
	idx := &Index{ID: tx.h.ids.nextID(), KeyID: keyID, Name: name, Type: indexType, Unique: unique, Location: location}
	tx.h.index[idx.ID] = idx
	tx.record(func() { delete(tx.h.index, idx.ID) })
	return idx, nil
}

// GetIndexes returns every index on tableID's keys; if onlyUnique is
// true, non-unique indexes are excluded.
func (s *Snapshot) GetIndexes(tableID ID, onlyUnique bool) []*Index {
	var out []*Index
	for _, idx := range s.index {
		k, ok := s.key[idx.KeyID]
		if !ok || k.TableID != tableID {
			continue
		}
		if onlyUnique && !idx.Unique {
			continue
		}
		out = append(out, idx)
	}
	return out
}

// GetIndex looks up a single index by table and exact name.
func (s *Snapshot) GetIndex(tableID ID, name string) (*Index, error) {
	var matches []*Index
	for _, idx := range s.index {
		k, ok := s.key[idx.KeyID]
		if !ok || k.TableID != tableID {
			continue
		}
		if foldName(idx.Name, s.caseSensitive) == foldName(name, s.caseSensitive) {
			matches = append(matches, idx)
		}
	}
	return oneOf(matches, "index", name)
}

// DeleteIndex removes an index by id.
func (tx *Tx) DeleteIndex(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.index[id]
	if !ok {
		return &NotFoundError{EntityKind: "index", Key: idKey(id)}
	}
	delete(tx.h.index, id)
	tx.record(func() { tx.h.index[id] = old })
	return nil
}

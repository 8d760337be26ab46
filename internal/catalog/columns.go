package catalog

import (
	"sort"

	"polyplan/internal/types"
)

// GetColumns returns tableID's columns ordered by position.
func (s *Snapshot) GetColumns(tableID ID) []*Column {
	var out []*Column
	for _, c := range s.column {
		if c.TableID == tableID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// GetColumn looks up a column by surrogate id.
func (s *Snapshot) GetColumn(id ID) (*Column, error) {
	if c, ok := s.column[id]; ok {
		return c, nil
	}
	return nil, &NotFoundError{EntityKind: "column", Key: idKey(id)}
}

// GetColumnByName looks up a column by exact name within a table.
func (s *Snapshot) GetColumnByName(tableID ID, name string) (*Column, error) {
	var matches []*Column
	for _, c := range s.column {
		if c.TableID == tableID && foldName(c.Name, s.caseSensitive) == foldName(name, s.caseSensitive) {
			matches = append(matches, c)
		}
	}
	return oneOf(matches, "column", name)
}

// AddColumn creates a column at the given 1-based position within
// tableID. Existing columns at or after position are shifted right to
// keep positions dense.
func (tx *Tx) AddColumn(name string, tableID ID, position int, t *types.Type, length, scale int, nullable bool, collation string) (*Column, error) {
	if err := CheckIdentifier(name); err != nil {
		return nil, err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	if _, ok := tx.h.table[tableID]; !ok {
		return nil, &NotFoundError{EntityKind: "table", Key: idKey(tableID)}
	}
	for _, c := range tx.h.column {
		if c.TableID == tableID && foldName(c.Name, tx.h.caseSensitive) == foldName(name, tx.h.caseSensitive) {
			return nil, &IntegrityViolationError{EntityKind: "column", Key: name, Reason: "name already exists in table"}
		}
	}

	var shifted []*Column
	for _, c := range tx.h.column {
		if c.TableID == tableID && c.Position >= position {
			shifted = append(shifted, c)
		}
	}
	for _, c := range shifted {
		old := c
		updated := *c
		updated.Position++
		tx.h.column[c.ID] = &updated
		tx.record(func() { tx.h.column[old.ID] = old })
	}

	col := &Column{
		ID: tx.h.ids.nextID(), Name: name, TableID: tableID, Position: position,
		Type: t, Length: length, Scale: scale, Nullable: nullable, Collation: collation,
	}
	tx.h.column[col.ID] = col
	tx.record(func() { delete(tx.h.column, col.ID) })
	return col, nil
}

// RenameColumn changes a column's user-visible name.
func (tx *Tx) RenameColumn(id ID, newName string) error {
	if err := CheckIdentifier(newName); err != nil {
		return err
	}
	return tx.updateColumn(id, func(c *Column) { c.Name = newName })
}

// SetColumnPosition moves a column to a new 1-based position among its
// table's columns; it does not renumber siblings (callers orchestrate
// a full position reassignment when reordering more than one column).
func (tx *Tx) SetColumnPosition(id ID, newPosition int) error {
	return tx.updateColumn(id, func(c *Column) { c.Position = newPosition })
}

// SetColumnType changes a column's logical type.
func (tx *Tx) SetColumnType(id ID, t *types.Type) error {
	return tx.updateColumn(id, func(c *Column) { c.Type = t })
}

// SetNullable changes a column's nullability.
func (tx *Tx) SetNullable(id ID, nullable bool) error {
	return tx.updateColumn(id, func(c *Column) { c.Nullable = nullable })
}

// SetCollation changes a column's collation.
func (tx *Tx) SetCollation(id ID, collation string) error {
	return tx.updateColumn(id, func(c *Column) { c.Collation = collation })
}

func (tx *Tx) updateColumn(id ID, mutate func(*Column)) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.column[id]
	if !ok {
		return &NotFoundError{EntityKind: "column", Key: idKey(id)}
	}
	updated := *old
	mutate(&updated)
	tx.h.column[id] = &updated
	tx.record(func() { tx.h.column[id] = old })
	return nil
}

// SetDefaultValue attaches or replaces a column's default.
func (tx *Tx) SetDefaultValue(columnID ID, t *types.Type, literalText, functionName string) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	if _, ok := tx.h.column[columnID]; !ok {
		return &NotFoundError{EntityKind: "column", Key: idKey(columnID)}
	}
	old, existed := tx.h.dflt[columnID]
	dv := &DefaultValue{ColumnID: columnID, Type: t, LiteralText: literalText, FunctionName: functionName}
	tx.h.dflt[columnID] = dv
	if existed {
		tx.record(func() { tx.h.dflt[columnID] = old })
	} else {
		tx.record(func() { delete(tx.h.dflt, columnID) })
	}
	return nil
}

// DeleteDefaultValue removes a column's default, if any.
func (tx *Tx) DeleteDefaultValue(columnID ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.dflt[columnID]
	if !ok {
		return &NotFoundError{EntityKind: "default_value", Key: idKey(columnID)}
	}
	delete(tx.h.dflt, columnID)
	tx.record(func() { tx.h.dflt[columnID] = old })
	return nil
}

// DeleteColumn removes a column. A column referenced by any active key
// must not be dropped (spec.md §3 global invariant).
func (tx *Tx) DeleteColumn(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.column[id]
	if !ok {
		return &NotFoundError{EntityKind: "column", Key: idKey(id)}
	}
	for _, k := range tx.h.key {
		for _, cid := range k.ColumnIDs {
			if cid == id {
				return &IntegrityViolationError{EntityKind: "column", Key: idKey(id), Reason: "column is referenced by an active key"}
			}
		}
	}
	delete(tx.h.column, id)
	tx.record(func() { tx.h.column[id] = old })
	if dv, ok := tx.h.dflt[id]; ok {
		delete(tx.h.dflt, id)
		tx.record(func() { tx.h.dflt[id] = dv })
	}
	return nil
}

// GetDefaultValue looks up a column's default, if any.
func (s *Snapshot) GetDefaultValue(columnID ID) (*DefaultValue, error) {
	if dv, ok := s.dflt[columnID]; ok {
		return dv, nil
	}
	return nil, &NotFoundError{EntityKind: "default_value", Key: idKey(columnID)}
}

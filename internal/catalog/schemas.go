package catalog

// GetSchemas returns every schema in databaseID whose name matches pattern.
func (s *Snapshot) GetSchemas(databaseID ID, pattern string) []*Schema {
	var out []*Schema
	for _, sch := range s.schema {
		if sch.DatabaseID == databaseID && matchName(sch.Name, pattern, s.caseSensitive) {
			out = append(out, sch)
		}
	}
	return out
}

// GetSchema looks up a schema by surrogate id.
func (s *Snapshot) GetSchema(id ID) (*Schema, error) {
	if sch, ok := s.schema[id]; ok {
		return sch, nil
	}
	return nil, &NotFoundError{EntityKind: "schema", Key: idKey(id)}
}

// GetSchemaByName looks up a schema by exact name within a database.
func (s *Snapshot) GetSchemaByName(databaseID ID, name string) (*Schema, error) {
	var matches []*Schema
	for _, sch := range s.schema {
		if sch.DatabaseID == databaseID && foldName(sch.Name, s.caseSensitive) == foldName(name, s.caseSensitive) {
			matches = append(matches, sch)
		}
	}
	return oneOf(matches, "schema", name)
}

// AddSchema creates a new schema within databaseID.
func (tx *Tx) AddSchema(name string, databaseID, ownerID ID, schemaType SchemaType) (*Schema, error) {
	if err := CheckIdentifier(name); err != nil {
		return nil, err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	if _, ok := tx.h.database[databaseID]; !ok {
		return nil, &NotFoundError{EntityKind: "database", Key: idKey(databaseID)}
	}
	for _, sch := range tx.h.schema {
		if sch.DatabaseID == databaseID && foldName(sch.Name, tx.h.caseSensitive) == foldName(name, tx.h.caseSensitive) {
			return nil, &IntegrityViolationError{EntityKind: "schema", Key: name, Reason: "name already exists in database"}
		}
	}
	sch := &Schema{ID: tx.h.ids.nextID(), Name: name, DatabaseID: databaseID, OwnerID: ownerID, Type: schemaType}
	tx.h.schema[sch.ID] = sch
	tx.record(func() { delete(tx.h.schema, sch.ID) })
	return sch, nil
}

// RenameSchema changes a schema's user-visible name.
func (tx *Tx) RenameSchema(id ID, newName string) error {
	if err := CheckIdentifier(newName); err != nil {
		return err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.schema[id]
	if !ok {
		return &NotFoundError{EntityKind: "schema", Key: idKey(id)}
	}
	updated := *old
	updated.Name = newName
	tx.h.schema[id] = &updated
	tx.record(func() { tx.h.schema[id] = old })
	return nil
}

// SetSchemaOwner reassigns a schema's owner.
func (tx *Tx) SetSchemaOwner(id, ownerID ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.schema[id]
	if !ok {
		return &NotFoundError{EntityKind: "schema", Key: idKey(id)}
	}
	updated := *old
	updated.OwnerID = ownerID
	tx.h.schema[id] = &updated
	tx.record(func() { tx.h.schema[id] = old })
	return nil
}

// DeleteSchema removes a schema. It refuses to delete a schema that
// still owns tables.
func (tx *Tx) DeleteSchema(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.schema[id]
	if !ok {
		return &NotFoundError{EntityKind: "schema", Key: idKey(id)}
	}
	for _, t := range tx.h.table {
		if t.SchemaID == id {
			return &IntegrityViolationError{EntityKind: "schema", Key: idKey(id), Reason: "schema still has tables"}
		}
	}
	delete(tx.h.schema, id)
	tx.record(func() { tx.h.schema[id] = old })
	return nil
}

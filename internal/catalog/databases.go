package catalog

// GetDatabases returns every database whose name matches pattern.
func (s *Snapshot) GetDatabases(pattern string) []*Database {
	var out []*Database
	for _, d := range s.database {
		if matchName(d.Name, pattern, s.caseSensitive) {
			out = append(out, d)
		}
	}
	return out
}

// GetDatabase looks up a database by surrogate id.
func (s *Snapshot) GetDatabase(id ID) (*Database, error) {
	if d, ok := s.database[id]; ok {
		return d, nil
	}
	return nil, &NotFoundError{EntityKind: "database", Key: idKey(id)}
}

// GetDatabaseByName looks up a database by exact name.
func (s *Snapshot) GetDatabaseByName(name string) (*Database, error) {
	var matches []*Database
	for _, d := range s.database {
		if foldName(d.Name, s.caseSensitive) == foldName(name, s.caseSensitive) {
			matches = append(matches, d)
		}
	}
	return oneOf(matches, "database", name)
}

// AddDatabase creates a new database, owned by ownerID.
func (tx *Tx) AddDatabase(name string, ownerID ID, encoding, collation string, connectionLimit int) (*Database, error) {
	if err := CheckIdentifier(name); err != nil {
		return nil, err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	for _, d := range tx.h.database {
		if foldName(d.Name, tx.h.caseSensitive) == foldName(name, tx.h.caseSensitive) {
			return nil, &IntegrityViolationError{EntityKind: "database", Key: name, Reason: "name already exists"}
		}
	}
	d := &Database{
		ID: tx.h.ids.nextID(), Name: name, OwnerID: ownerID,
		Encoding: encoding, Collation: collation, ConnectionLimit: connectionLimit,
	}
	tx.h.database[d.ID] = d
	tx.record(func() { delete(tx.h.database, d.ID) })
	return d, nil
}

// RenameDatabase changes a database's user-visible name.
func (tx *Tx) RenameDatabase(id ID, newName string) error {
	if err := CheckIdentifier(newName); err != nil {
		return err
	}
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.database[id]
	if !ok {
		return &NotFoundError{EntityKind: "database", Key: idKey(id)}
	}
	updated := *old
	updated.Name = newName
	tx.h.database[id] = &updated
	tx.record(func() { tx.h.database[id] = old })
	return nil
}

// SetDefaultSchema points a database at one of its own schemas.
func (tx *Tx) SetDefaultSchema(databaseID, schemaID ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.database[databaseID]
	if !ok {
		return &NotFoundError{EntityKind: "database", Key: idKey(databaseID)}
	}
	if sch, ok := tx.h.schema[schemaID]; !ok || sch.DatabaseID != databaseID {
		return &NotFoundError{EntityKind: "schema", Key: idKey(schemaID)}
	}
	updated := *old
	updated.DefaultSchemaID = schemaID
	tx.h.database[databaseID] = &updated
	tx.record(func() { tx.h.database[databaseID] = old })
	return nil
}

// DeleteDatabase removes a database. Cascading to its schemas (and
// transitively tables/columns/etc.) is the caller's responsibility at
// a higher level, mirroring spec.md §9's note that the source keeps
// deletion ordering conservative rather than auto-cascading across
// the database->schema boundary.
func (tx *Tx) DeleteDatabase(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.database[id]
	if !ok {
		return &NotFoundError{EntityKind: "database", Key: idKey(id)}
	}
	for _, sch := range tx.h.schema {
		if sch.DatabaseID == id {
			return &IntegrityViolationError{EntityKind: "database", Key: idKey(id), Reason: "database still has schemas"}
		}
	}
	delete(tx.h.database, id)
	tx.record(func() { tx.h.database[id] = old })
	return nil
}

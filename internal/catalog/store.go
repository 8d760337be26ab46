package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

//go:embed bootstrap.sql
var bootstrapScript string

// RelationalStore is the catalog's embedded relational store (spec.md
// §4.2: "durability is delegated to an embedded relational store"). It
// wraps a plain *sql.DB opened against a MySQL-family backend exactly
// the way internal/apply.Applier does in the teacher toolchain, and is
// used to persist and reload the catalog metamodel rather than to
// serve query-time lookups — those are answered from the in-memory
// Handle/Snapshot.
type RelationalStore struct {
	db *sql.DB
}

// OpenRelationalStore opens a connection to the backing store at dsn.
func OpenRelationalStore(dsn string) (*RelationalStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open relational store: %w", err)
	}
	return &RelationalStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *RelationalStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateSchema installs the bootstrap schema (spec.md §6). It is
// idempotent: every statement in bootstrap.sql guards itself with
// "IF NOT EXISTS", so re-running CreateSchema against an
// already-bootstrapped store is a no-op.
func (s *RelationalStore) CreateSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(bootstrapScript) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: bootstrap statement failed: %w", err)
		}
	}
	return nil
}

// DropSchema removes every catalog table the bootstrap script creates,
// in reverse dependency order.
func (s *RelationalStore) DropSchema(ctx context.Context) error {
	tables := []string{
		"index", "constraint", "foreign_key", "key_column", "key",
		"column_placement", "data_placement", "store_setting", "store",
		"default_value", "column", "table", "schema", "database", "user",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS `"+t+"`"); err != nil {
			return fmt.Errorf("catalog: drop table %s: %w", t, err)
		}
	}
	return nil
}

// PersistStore writes one store row plus its settings through to the
// backing relational store, as the durability side of Tx.AddStore.
func (s *RelationalStore) PersistStore(ctx context.Context, st *Store) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO `store` (id, unique_name, adapter) VALUES (?, ?, ?)",
		st.ID, st.UniqueName, st.Adapter); err != nil {
		return fmt.Errorf("catalog: persist store: %w", err)
	}
	for k, v := range st.Settings {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO `store_setting` (store_id, `key`, value) VALUES (?, ?, ?)",
			st.ID, k, v); err != nil {
			return fmt.Errorf("catalog: persist store setting: %w", err)
		}
	}
	return nil
}

// PersistDataPlacement writes through a single data placement row.
func (s *RelationalStore) PersistDataPlacement(ctx context.Context, dp *DataPlacement) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO `data_placement` (store_id, table_id, placement_type) VALUES (?, ?, ?)",
		dp.StoreID, dp.TableID, dp.PlacementType)
	if err != nil {
		return fmt.Errorf("catalog: persist data placement: %w", err)
	}
	return nil
}

// splitStatements splits a SQL script on statement-terminating
// semicolons, skipping blank statements. bootstrap.sql contains no
// string literals with embedded semicolons, so a naive split is
// sufficient here, mirroring the simple line-oriented statement
// splitting internal/apply does for migration files.
func splitStatements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

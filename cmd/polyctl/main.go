// Package main implements polyctl, a small operator CLI exercising the
// catalog (C2), router (C5) and planner (C4) end to end. It uses the
// cobra package for CLI plumbing, the same way the teacher's cmd/smf
// does.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"polyplan/internal/algebra"
	"polyplan/internal/catalog"
	"polyplan/internal/config"
	"polyplan/internal/frontend"
	"polyplan/internal/planner"
	"polyplan/internal/router"
	"polyplan/internal/types"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "polyctl",
		Short: "Federated query planner operator CLI",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "runtime config TOML file (defaults to config.Default(), overlaid with env vars)")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog maintenance commands",
	}
	catalogCmd.AddCommand(bootstrapCmd())
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(routeCmd(&configPath))
	rootCmd.AddCommand(explainCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the runtime config operators use to tune the
// planner/router/enforcer (spec.md §6): path, when non-empty, loads a
// TOML file on top of config.Default(); either way the result is then
// overlaid with the spec.md §6 environment variables.
func loadConfig(path string) (config.RuntimeConfig, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.RuntimeConfig{}, fmt.Errorf("polyctl: load config: %w", err)
		}
	}
	cfg, err := config.ApplyEnv(cfg, nil)
	if err != nil {
		return config.RuntimeConfig{}, fmt.Errorf("polyctl: apply env overrides: %w", err)
	}
	return cfg, nil
}

// bootstrapDoc is the shape of the TOML document catalog bootstrap and
// route/explain all read: a database, one schema, a set of tables with
// their columns and primary key, a set of stores, and the column
// placements binding tables to stores. A placement's partition
// defaults to 0 (unpartitioned); repeating the same (table, store)
// pair with a different partition horizontally partitions the table
// on that store (spec.md §4.5 step 6).
type bootstrapDoc struct {
	Database struct {
		Name string `toml:"name"`
	} `toml:"database"`
	Schema struct {
		Name string `toml:"name"`
	} `toml:"schema"`
	Tables []struct {
		Name       string `toml:"name"`
		PrimaryKey []string `toml:"primary_key"`
		Columns    []struct {
			Name     string `toml:"name"`
			Type     string `toml:"type"`
			Nullable bool   `toml:"nullable"`
		} `toml:"columns"`
	} `toml:"tables"`
	Stores []struct {
		Name    string            `toml:"name"`
		Adapter string            `toml:"adapter"`
		Settings map[string]string `toml:"settings"`
	} `toml:"stores"`
	Placements []struct {
		Table     string `toml:"table"`
		Store     string `toml:"store"`
		Partition int    `toml:"partition"`
	} `toml:"placements"`
}

func readBootstrapDoc(path string) (bootstrapDoc, error) {
	var doc bootstrapDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return bootstrapDoc{}, fmt.Errorf("polyctl: decode %q: %w", path, err)
	}
	return doc, nil
}

// bootstrapCatalog replays doc's database/schema/tables/stores/
// placements against a fresh catalog.Handle in a single transaction.
func bootstrapCatalog(factory *types.Factory, doc bootstrapDoc) (*catalog.Handle, map[string]catalog.ID, error) {
	h := catalog.NewHandle(true)
	tx := h.Begin("bootstrap")
	fe := frontend.New(factory)

	db, err := tx.AddDatabase(doc.Database.Name, 1, "", "", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("polyctl: add database: %w", err)
	}
	sch, err := tx.AddSchema(doc.Schema.Name, db.ID, 1, catalog.SchemaRelational)
	if err != nil {
		return nil, nil, fmt.Errorf("polyctl: add schema: %w", err)
	}

	tableIDs := make(map[string]catalog.ID, len(doc.Tables))
	for _, t := range doc.Tables {
		table, err := tx.AddTable(t.Name, sch.ID, 1, catalog.TableRegular, "")
		if err != nil {
			return nil, nil, fmt.Errorf("polyctl: add table %q: %w", t.Name, err)
		}
		tableIDs[t.Name] = table.ID

		colIDs := make(map[string]catalog.ID, len(t.Columns))
		for i, c := range t.Columns {
			typ, err := fe.ParseTypeName(c.Type)
			if err != nil {
				return nil, nil, fmt.Errorf("polyctl: table %q column %q: %w", t.Name, c.Name, err)
			}
			col, err := tx.AddColumn(c.Name, table.ID, i+1, typ, -1, -1, c.Nullable, "")
			if err != nil {
				return nil, nil, fmt.Errorf("polyctl: add column %q.%q: %w", t.Name, c.Name, err)
			}
			colIDs[c.Name] = col.ID
		}

		if len(t.PrimaryKey) > 0 {
			pkCols := make([]catalog.ID, len(t.PrimaryKey))
			for i, name := range t.PrimaryKey {
				id, ok := colIDs[name]
				if !ok {
					return nil, nil, fmt.Errorf("polyctl: table %q primary key references unknown column %q", t.Name, name)
				}
				pkCols[i] = id
			}
			key, err := tx.AddKey(table.ID, pkCols, catalog.EnforceOnQuery)
			if err != nil {
				return nil, nil, fmt.Errorf("polyctl: add key for table %q: %w", t.Name, err)
			}
			if err := tx.SetPrimaryKey(table.ID, key.ID); err != nil {
				return nil, nil, fmt.Errorf("polyctl: set primary key for table %q: %w", t.Name, err)
			}
		}
	}

	storeIDs := make(map[string]catalog.ID, len(doc.Stores))
	for _, s := range doc.Stores {
		store, err := tx.AddStore(s.Name, s.Adapter, s.Settings)
		if err != nil {
			return nil, nil, fmt.Errorf("polyctl: add store %q: %w", s.Name, err)
		}
		storeIDs[s.Name] = store.ID
	}

	// columnsPlaced tracks which (table, store) pairs already have their
	// column placements recorded: a table split into several partitions
	// on the same store lists that (table, store) pair once per
	// partition, but its columns only live on that store once.
	columnsPlaced := make(map[string]bool)
	for _, p := range doc.Placements {
		tableID, ok := tableIDs[p.Table]
		if !ok {
			return nil, nil, fmt.Errorf("polyctl: placement references unknown table %q", p.Table)
		}
		storeID, ok := storeIDs[p.Store]
		if !ok {
			return nil, nil, fmt.Errorf("polyctl: placement references unknown store %q", p.Store)
		}
		if _, err := tx.AddDataPlacement(storeID, tableID, p.Partition, catalog.PlacementAutomatic); err != nil {
			return nil, nil, fmt.Errorf("polyctl: place table %q on store %q partition %d: %w", p.Table, p.Store, p.Partition, err)
		}

		placedKey := p.Table + "\x00" + p.Store
		if columnsPlaced[placedKey] {
			continue
		}
		columnsPlaced[placedKey] = true
		for _, col := range h.Snapshot().GetColumns(tableID) {
			if _, err := tx.AddColumnPlacement(storeID, col.ID, doc.Schema.Name, col.Name, catalog.PlacementAutomatic); err != nil {
				return nil, nil, fmt.Errorf("polyctl: place column %q.%q on store %q: %w", p.Table, col.Name, p.Store, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("polyctl: commit bootstrap: %w", err)
	}

	return h, tableIDs, nil
}

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap <catalog.toml>",
		Short: "Build a catalog from a TOML document and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := readBootstrapDoc(args[0])
			if err != nil {
				return err
			}
			h, tableIDs, err := bootstrapCatalog(types.NewFactory(), doc)
			if err != nil {
				return err
			}
			snap := h.Snapshot()
			for name, id := range tableIDs {
				cols := snap.GetColumns(id)
				placements := snap.GetDataPlacementsForTable(id)
				fmt.Printf("table %s: %d column(s), placed on %d store(s)\n", name, len(cols), len(placements))
			}
			return nil
		},
	}
}

// tableScanFor builds a logical TableScan over every column of table,
// in catalog column order, for use as a planning/routing root.
func tableScanFor(snap *catalog.Snapshot, tableName string, tableID catalog.ID) (*algebra.TableScan, error) {
	cols := snap.GetColumns(tableID)
	if len(cols) == 0 {
		return nil, fmt.Errorf("polyctl: table %q has no columns", tableName)
	}
	row := make(algebra.RowType, len(cols))
	for i, c := range cols {
		row[i] = algebra.Field{Name: c.Name, Type: c.Type}
	}
	entityRef := fmt.Sprintf("%d", tableID)
	return algebra.NewTableScan(entityRef, row, algebra.TraitSet{Convention: algebra.ConventionLogical}, float64(len(cols))), nil
}

func routeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "route <catalog.toml> <table>",
		Short: "Route a full-table scan across its stores and print the resulting plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			plan, _, err := bootstrapAndRoute(args[0], args[1], cfg)
			if err != nil {
				return err
			}
			explainTree(os.Stdout, plan, 0)
			return nil
		},
	}
}

func explainCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <catalog.toml> <table>",
		Short: "Route a full-table scan, optimize it, and print logical and optimized plans",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			routed, _, err := bootstrapAndRoute(args[0], args[1], cfg)
			if err != nil {
				return err
			}

			p := planner.New(planner.DefaultRuleCatalog(nil, cfg.MaxJoinReorderInputs), nil, nil).
				WithIterationBudget(cfg.PlannerMaxIterations)
			best, cost, err := p.Optimize(routed, routed.Traits())
			if err != nil {
				return fmt.Errorf("polyctl: optimize: %w", err)
			}

			fmt.Println("routed plan:")
			explainTree(os.Stdout, routed, 1)
			fmt.Printf("\noptimized plan (cost rows=%.0f cpu=%.0f io=%.0f):\n", cost.Rows, cost.CPU, cost.IO)
			explainTree(os.Stdout, best, 1)
			return nil
		},
	}
}

func bootstrapAndRoute(docPath, tableName string, cfg config.RuntimeConfig) (algebra.RelNode, *catalog.Snapshot, error) {
	doc, err := readBootstrapDoc(docPath)
	if err != nil {
		return nil, nil, err
	}
	factory := types.NewFactory()
	h, tableIDs, err := bootstrapCatalog(factory, doc)
	if err != nil {
		return nil, nil, err
	}
	tableID, ok := tableIDs[tableName]
	if !ok {
		return nil, nil, fmt.Errorf("polyctl: unknown table %q", tableName)
	}

	snap := h.Snapshot()
	scan, err := tableScanFor(snap, tableName, tableID)
	if err != nil {
		return nil, nil, err
	}

	r, err := router.New(factory, cfg.JoinedTableScanCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("polyctl: new router: %w", err)
	}
	r.SetCacheEnabled(cfg.JoinedTableScanCache)
	routed, err := r.Route(snap, scan)
	if err != nil {
		return nil, nil, fmt.Errorf("polyctl: route: %w", err)
	}
	return routed, snap, nil
}

// explainTree prints n and, recursively, each of its inputs indented
// one level deeper, following RelNode.Explain's single-line-per-node
// convention.
func explainTree(w io.Writer, n algebra.RelNode, depth int) {
	fmt.Fprint(w, strings.Repeat("  ", depth))
	n.Explain(w)
	fmt.Fprintln(w)
	for _, in := range n.Inputs() {
		explainTree(w, in, depth+1)
	}
}

// Package config decodes the process-level RuntimeConfig spec.md §6
// describes (feature flags + two Open Question defaults), the same
// way the teacher's internal/parser/toml package decodes a schema
// file: github.com/BurntSushi/toml into a plain struct, with
// subsequent environment variable overrides applied explicitly rather
// than through a third "env" library.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// RuntimeConfig is the read-mostly, process-level configuration object
// spec.md §5 describes ("a RuntimeConfig holds feature flags and is
// passed by reference; read-mostly, replaced only at process
// restart").
type RuntimeConfig struct {
	// CaseSensitive is decoded and can be overridden from the
	// environment, but no component reads it: the catalog's
	// case-folding is set by the argument to catalog.NewHandle.
	CaseSensitive bool `toml:"case_sensitive"`
	// TwoPCMode names a commit mode ("always" or "auto"); it is decoded
	// and can be overridden from the environment, but no component
	// reads it. internal/txncoord always skips the prepare round for
	// read-only transactions.
	TwoPCMode string `toml:"two_pc_mode"`
	// QueryTimeoutSeconds is decoded and can be overridden from the
	// environment, but no component reads it; no query timeout is
	// applied.
	QueryTimeoutSeconds int `toml:"query_timeout_seconds"`
	// UniqueConstraintEnforcement and ForeignKeyEnforcement let an
	// operator disable a class of constraint checking wholesale
	// without editing the catalog's constraint rows.
	UniqueConstraintEnforcement bool `toml:"unique_constraint_enforcement"`
	ForeignKeyEnforcement       bool `toml:"foreign_key_enforcement"`
	// JoinedTableScanCache/JoinedTableScanCacheSize control
	// internal/router's routed-scan LRU cache.
	JoinedTableScanCache     bool `toml:"joined_table_scan_cache"`
	JoinedTableScanCacheSize int  `toml:"joined_table_scan_cache_size"`

	// MaxJoinReorderInputs bounds the planner's join-reorder rule
	// window (§4.4 Open Question: fixed default of 6 — beyond this
	// width the rule declines to fire rather than exploring
	// exponentially).
	MaxJoinReorderInputs int `toml:"max_join_reorder_inputs"`
	// PlannerMaxIterations caps planner search queue pops (§4.4 Open
	// Question: default 10,000 — exceeding it stops search and
	// extracts the best plan found so far).
	PlannerMaxIterations int `toml:"planner_max_iterations"`
}

// Default returns the RuntimeConfig spec.md's decided Open Questions
// and sensible always-on defaults for the feature flags.
func Default() RuntimeConfig {
	return RuntimeConfig{
		CaseSensitive:               true,
		TwoPCMode:                   "auto",
		QueryTimeoutSeconds:         0,
		UniqueConstraintEnforcement: true,
		ForeignKeyEnforcement:       true,
		JoinedTableScanCache:        true,
		JoinedTableScanCacheSize:    256,
		MaxJoinReorderInputs:        6,
		PlannerMaxIterations:        10000,
	}
}

// Load decodes a RuntimeConfig from r on top of Default(), following
// internal/parser/toml's Parse(io.Reader) shape.
func Load(r io.Reader) (RuntimeConfig, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// LoadFile opens path and decodes it as a RuntimeConfig document.
func LoadFile(path string) (RuntimeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// ApplyEnv overlays the environment variable surface spec.md §6 names
// on top of cfg, returning the result. Unset variables leave the
// corresponding field unchanged; a variable present but unparsable
// for its field's type is reported as an error.
func ApplyEnv(cfg RuntimeConfig, lookup func(string) (string, bool)) (RuntimeConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup("CASE_SENSITIVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: CASE_SENSITIVE: %w", err)
		}
		cfg.CaseSensitive = b
	}
	if v, ok := lookup("TWO_PC_MODE"); ok {
		cfg.TwoPCMode = v
	}
	if v, ok := lookup("QUERY_TIMEOUT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: QUERY_TIMEOUT: %w", err)
		}
		cfg.QueryTimeoutSeconds = n
	}
	if v, ok := lookup("UNIQUE_CONSTRAINT_ENFORCEMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: UNIQUE_CONSTRAINT_ENFORCEMENT: %w", err)
		}
		cfg.UniqueConstraintEnforcement = b
	}
	if v, ok := lookup("FOREIGN_KEY_ENFORCEMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: FOREIGN_KEY_ENFORCEMENT: %w", err)
		}
		cfg.ForeignKeyEnforcement = b
	}
	if v, ok := lookup("JOINED_TABLE_SCAN_CACHE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: JOINED_TABLE_SCAN_CACHE: %w", err)
		}
		cfg.JoinedTableScanCache = b
	}
	if v, ok := lookup("JOINED_TABLE_SCAN_CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: JOINED_TABLE_SCAN_CACHE_SIZE: %w", err)
		}
		cfg.JoinedTableScanCacheSize = n
	}

	return cfg, nil
}

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaultsFromToml(t *testing.T) {
	const doc = `
case_sensitive = false
max_join_reorder_inputs = 4
`
	cfg, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.False(t, cfg.CaseSensitive)
	assert.Equal(t, 4, cfg.MaxJoinReorderInputs)
	// untouched fields keep their Default() value.
	assert.Equal(t, 10000, cfg.PlannerMaxIterations)
	assert.True(t, cfg.ForeignKeyEnforcement)
}

func TestLoadEmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnvOverridesFlags(t *testing.T) {
	env := map[string]string{
		"CASE_SENSITIVE":               "false",
		"JOINED_TABLE_SCAN_CACHE_SIZE": "64",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := ApplyEnv(Default(), lookup)
	require.NoError(t, err)
	assert.False(t, cfg.CaseSensitive)
	assert.Equal(t, 64, cfg.JoinedTableScanCacheSize)
	// variables absent from the environment leave the field untouched.
	assert.Equal(t, 6, cfg.MaxJoinReorderInputs)
}

func TestApplyEnvRejectsUnparsableBool(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "CASE_SENSITIVE" {
			return "not-a-bool", true
		}
		return "", false
	}
	_, err := ApplyEnv(Default(), lookup)
	require.Error(t, err)
}

package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyplan/internal/adapter"
	_ "polyplan/internal/adapter/memory"
)

func TestNewUnregisteredDriverTagFails(t *testing.T) {
	_, err := adapter.New("does-not-exist", nil)
	require.Error(t, err)
}

func TestNewMemoryAdapterRegistered(t *testing.T) {
	a, err := adapter.New("memory", nil)
	require.NoError(t, err)
	assert.True(t, a.Capabilities().SupportsWrite)
}

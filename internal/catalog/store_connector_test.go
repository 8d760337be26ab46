package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

type testMySQLContainer struct {
	container *mysql.MySQLContainer
	dsn       string
}

func setupCatalogMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("catalog"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(mysqlContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	return &testMySQLContainer{container: mysqlContainer, dsn: dsn}
}

func TestRelationalStoreBootstrapIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupCatalogMySQL(t)
	ctx := context.Background()

	store, err := OpenRelationalStore(tc.dsn)
	require.NoError(t, err)
	defer store.Close()

	t.Run("bootstrap is idempotent", func(t *testing.T) {
		require.NoError(t, store.CreateSchema(ctx))
		require.NoError(t, store.CreateSchema(ctx))
	})

	t.Run("persist store round-trips through a real connection", func(t *testing.T) {
		require.NoError(t, store.CreateSchema(ctx))
		st := &Store{ID: 1, UniqueName: "hsqldb", Adapter: "hsqldb", Settings: map[string]string{"mode": "embedded"}}
		assert.NoError(t, store.PersistStore(ctx, st))
	})

	t.Run("drop schema removes tables", func(t *testing.T) {
		require.NoError(t, store.CreateSchema(ctx))
		require.NoError(t, store.DropSchema(ctx))
		require.NoError(t, store.CreateSchema(ctx))
	})
}

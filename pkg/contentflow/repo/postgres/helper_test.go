package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-flow/pkg/contentflow/repo/postgres/migrations"
)

// testDB is a migrated, throwaway schema.
type testDB struct {
	Pool   *pgxpool.Pool
	Schema string
}

// newTestDB connects to TEST_DATABASE_URL and migrates a fresh schema. The
// test is skipped when the variable is unset.
func newTestDB(t *testing.T) *testDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	schema := fmt.Sprintf("content_flow_test_%d", time.Now().UnixNano())

	cfg, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err, "Failed to parse test database url")
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	_, err = pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err, "Failed to create test schema")

	db := stdlib.OpenDBFromPool(pool)
	require.NoError(t, migrations.MigrateUp(db, schema), "Failed to migrate test schema")

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		_ = db.Close()
		pool.Close()
	})
	return &testDB{Pool: pool, Schema: schema}
}

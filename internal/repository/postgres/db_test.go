package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/repository/postgres"
	"gstaudit/internal/repository/sqlite"
)

// migrationsDB returns a database holding only the schema_migrations
// bookkeeping table in the layout cmd/migrate writes.
func migrationsDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE schema_migrations (version BIGINT NOT NULL PRIMARY KEY, dirty BOOLEAN NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestCheckSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("current", func(t *testing.T) {
		db := migrationsDB(t)
		db.MustExec(`INSERT INTO schema_migrations (version, dirty) VALUES (2, 0)`)
		v, err := postgres.CheckSchema(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, uint(postgres.SchemaVersion), v)
	})

	t.Run("never_migrated", func(t *testing.T) {
		_, err := postgres.CheckSchema(ctx, migrationsDB(t))
		var se *postgres.SchemaError
		require.ErrorAs(t, err, &se)
		assert.Zero(t, se.Version)
		assert.EqualError(t, err, "audit schema has not been migrated")
	})

	t.Run("behind", func(t *testing.T) {
		db := migrationsDB(t)
		db.MustExec(`INSERT INTO schema_migrations (version, dirty) VALUES (1, 0)`)
		v, err := postgres.CheckSchema(ctx, db)
		var se *postgres.SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, uint(1), v)
		assert.EqualError(t, err, "audit schema at version 1, want 2")
	})

	t.Run("dirty", func(t *testing.T) {
		db := migrationsDB(t)
		db.MustExec(`INSERT INTO schema_migrations (version, dirty) VALUES (2, 1)`)
		_, err := postgres.CheckSchema(ctx, db)
		var se *postgres.SchemaError
		require.ErrorAs(t, err, &se)
		assert.True(t, se.Dirty)
		assert.Contains(t, err.Error(), "dirty at version 2")
	})

	t.Run("no_bookkeeping_table", func(t *testing.T) {
		db, err := sqlite.Open(":memory:")
		require.NoError(t, err)
		defer db.Close()
		_, err = postgres.CheckSchema(ctx, db)
		require.Error(t, err)
		var se *postgres.SchemaError
		assert.False(t, errors.As(err, &se))
	})
}

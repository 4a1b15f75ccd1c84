package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coro-sh/catalog/sqlite/migrations"
)

// NewTestDB opens a migrated in-memory database that is closed when the test
// completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()

	db, err := Open(ctx, WithInMemory())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	err = migrations.MigrateDatabase(db)
	require.NoError(t, err)
	return db
}

package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/migrations"
	"github.com/pkordes/tagconsole/testutil"
)

var schemaTables = []string{"asociado", "direccion", "tags", "bitacora_mal_uso"}

// TestMigrations applies the embedded schema, checks the tables and the
// pool constraint, then rolls everything back.
// Skipped when TEST_DATABASE_URL is not set.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err, "create goose provider")

	ctx := context.Background()

	// Another package's TestMain may already have migrated this database.
	if _, err := provider.DownTo(ctx, 0); err != nil {
		t.Fatalf("TestMigrations: initial reset: %v", err)
	}

	results, err := provider.Up(ctx)
	require.NoError(t, err, "goose up")
	assert.Len(t, results, 3)

	for _, table := range schemaTables {
		assertTablePresence(t, db, table, true)
	}

	// A pooled tag cannot belong to anyone.
	_, err = db.ExecContext(ctx, `INSERT INTO asociado (idsae, nombre) VALUES (1, 'x')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO tags (idsae, etiqueta, tag_nueva) VALUES (1, 'ABC1234', 1)`)
	assert.Error(t, err, "tags_pool_unassigned should reject an owned pooled tag")

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "goose down-to 0")

	for _, table := range schemaTables {
		assertTablePresence(t, db, table, false)
	}

	// Leave the schema in place for packages that run after this one.
	_, err = provider.Up(ctx)
	require.NoError(t, err, "goose up after reset")
}

func assertTablePresence(t *testing.T, db *sql.DB, table string, shouldExist bool) {
	t.Helper()

	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public'
			AND   table_name   = $1
		)`
	var exists bool
	err := db.QueryRowContext(context.Background(), q, table).Scan(&exists)
	require.NoError(t, err, "check table existence for %q", table)

	if shouldExist {
		assert.True(t, exists, "expected table %q to exist", table)
	} else {
		assert.False(t, exists, "expected table %q to not exist", table)
	}
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_FileBackedWithMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, path, db.Path())

	require.NoError(t, RunMigrations(db.Writer))
	require.NoError(t, RunMigrations(db.Writer), "second run is a no-op")

	var mode string
	require.NoError(t, db.Reader.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	for _, table := range []string{"accounts", "sessions", "query_history"} {
		var name string
		err := db.Reader.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

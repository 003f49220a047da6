package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maloquacious/count/internal/store"
	"github.com/maloquacious/count/internal/store/sqlite"
)

func TestCreateDatastore(t *testing.T) {
	path := filepath.Join(t.TempDir(), store.DefaultDBFile)

	version, err := createDatastore(context.Background(), path, sqlite.Migrations)
	require.NoError(t, err)
	assert.Equal(t, sqlite.Migrations[len(sqlite.Migrations)-1].Version, version)
	assert.FileExists(t, path)
}

func TestCreateDatastore_failedMigrationLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, store.DefaultDBFile)
	broken := append([]store.Migration{}, sqlite.Migrations...)
	broken = append(broken, store.Migration{
		Version:     broken[len(broken)-1].Version + 1,
		Description: "add_broken_table",
		SQL:         `CREATE TABLE broken (`,
	})

	_, err := createDatastore(context.Background(), path, broken)
	require.ErrorIs(t, err, store.ErrMigration)

	for _, f := range []string{path, path + "-wal", path + "-shm"} {
		assert.NoFileExists(t, f)
	}

	exists, err := store.CheckExists(dir)
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

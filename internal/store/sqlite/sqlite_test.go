package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maloquacious/count/internal/logger"
	"github.com/maloquacious/count/internal/store"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

var quiet = logger.NewWithWriter(nopWriter{}, "error")

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func openStore(t *testing.T, path string, migrations []store.Migration, opts ...Option) *SQLiteStore {
	t.Helper()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	s := New(path, migrations, opts...)
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	s := openStore(t, MemoryPath, Migrations, opts...)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func tableExists(t *testing.T, s *SQLiteStore, name string) bool {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, MemoryPath, Migrations)

	state, err := s.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateUninitialized, state)

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	var recorded int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&recorded))
	assert.Equal(t, 1, recorded)
	assert.True(t, tableExists(t, s, "counters"))

	version, err := s.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	state, err = s.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateReady, state)
}

func TestMigrateFailureRollsBackVersion(t *testing.T) {
	ctx := context.Background()
	migrations := append([]store.Migration{}, Migrations...)
	migrations = append(migrations, store.Migration{
		Version:     2,
		Description: "broken",
		SQL:         `CREATE TABLE half_done (x INTEGER); CREATE TABLE counters (x INTEGER);`,
	})
	s := openStore(t, MemoryPath, migrations)

	err := s.Migrate(ctx)
	require.ErrorIs(t, err, store.ErrMigration)
	assert.ErrorContains(t, err, "version 2")

	version, err := s.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version, "version 1 stays applied")
	assert.False(t, tableExists(t, s, "half_done"), "failed migration must not leave partial schema")

	state, err := s.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateVersionMismatch, state)
}

func TestMigrateRejectsInvalidRegistry(t *testing.T) {
	tests := []struct {
		name       string
		migrations []store.Migration
	}{
		{
			name:       "zero version",
			migrations: []store.Migration{{Version: 0, Description: "x", SQL: "SELECT 1"}},
		},
		{
			name: "out of order",
			migrations: []store.Migration{
				{Version: 2, Description: "b", SQL: "SELECT 1"},
				{Version: 1, Description: "a", SQL: "SELECT 1"},
			},
		},
		{
			name: "duplicate",
			migrations: []store.Migration{
				{Version: 1, Description: "a", SQL: "SELECT 1"},
				{Version: 1, Description: "b", SQL: "SELECT 1"},
			},
		},
		{
			name:       "no description",
			migrations: []store.Migration{{Version: 1, SQL: "SELECT 1"}},
		},
		{
			name:       "no statement",
			migrations: []store.Migration{{Version: 1, Description: "a", SQL: "  "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t, MemoryPath, tt.migrations)
			assert.ErrorIs(t, s.Migrate(context.Background()), store.ErrMigration)
		})
	}
}

func TestMigrateDetectsHistoryDrift(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), store.DefaultDBFile)
	v2 := store.Migration{Version: 2, Description: "add_index", SQL: `CREATE INDEX idx_counters_name ON counters(name)`}

	newer := openStore(t, path, append(append([]store.Migration{}, Migrations...), v2))
	require.NoError(t, newer.Migrate(ctx))
	require.NoError(t, newer.Close())

	t.Run("unknown version", func(t *testing.T) {
		older := openStore(t, path, Migrations)
		state, err := older.CheckState(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.StateVersionMismatch, state)
		assert.ErrorIs(t, older.Migrate(ctx), store.ErrMigration)
		require.NoError(t, older.Close())
	})

	t.Run("renamed description", func(t *testing.T) {
		renamed := v2
		renamed.Description = "something_else"
		drifted := openStore(t, path, append(append([]store.Migration{}, Migrations...), renamed))
		assert.ErrorIs(t, drifted.Migrate(ctx), store.ErrMigration)
		require.NoError(t, drifted.Close())
	})
}

func TestMigrateUpgradesOlderDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), store.DefaultDBFile)

	older := openStore(t, path, Migrations)
	require.NoError(t, older.Migrate(ctx))
	_, err := older.CreateCounter(ctx, store.NewCounter{Name: "kept"})
	require.NoError(t, err)
	require.NoError(t, older.Close())

	v2 := store.Migration{Version: 2, Description: "add_index", SQL: `CREATE INDEX idx_counters_name ON counters(name)`}
	newer := openStore(t, path, append(append([]store.Migration{}, Migrations...), v2))

	state, err := newer.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateVersionMismatch, state)

	require.NoError(t, newer.Migrate(ctx))
	state, err = newer.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateReady, state)

	list, err := newer.ListCounters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].Name)
}

func TestOperationsRequireOpen(t *testing.T) {
	ctx := context.Background()
	s := New(MemoryPath, Migrations, WithLogger(quiet))

	state, err := s.CheckState(ctx)
	assert.Equal(t, store.StateMissing, state)
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.ErrorIs(t, s.Migrate(ctx), store.ErrStorage)

	_, err = s.GetCounter(ctx, 1)
	assert.ErrorIs(t, err, store.ErrStorage)
	_, err = s.ListCounters(ctx)
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.ErrorIs(t, s.DeleteCounter(ctx, 1), store.ErrStorage)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c, err := s.CreateCounter(ctx, store.NewCounter{Name: "saved"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, s.Backup(ctx, path))

	restored := openStore(t, path, Migrations)
	state, err := restored.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StateReady, state)

	got, err := restored.GetCounter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "saved", got.Name)
}

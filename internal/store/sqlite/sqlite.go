package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/maloquacious/count/internal/logger"
	"github.com/maloquacious/count/internal/store"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var errNotOpened = fmt.Errorf("%w: database not opened", store.ErrStorage)

// Compile-time interface check.
var _ store.Store = (*SQLiteStore)(nil)

// SQLiteStore implements the Store interface using modernc.org/sqlite.
type SQLiteStore struct {
	dbPath     string
	db         *sql.DB
	migrations []store.Migration
	log        logger.Logger
	now        func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger routes store diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// WithClock replaces the source of created_at and updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// New creates a new SQLiteStore that will apply migrations in order.
func New(dbPath string, migrations []store.Migration, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		dbPath:     dbPath,
		migrations: migrations,
		log:        logger.Default,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the SQLite database with safe defaults.
func (s *SQLiteStore) Open() error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("%w: open database: %w", store.ErrStorage, err)
	}

	// One connection: a single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	// Apply safe defaults
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return fmt.Errorf("%w: set pragma %q: %w", store.ErrStorage, pragma, err)
		}
	}

	s.db = db
	s.log.Debug("opened database %s", s.dbPath)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// ExpectedVersion is the version of the newest registered migration.
func (s *SQLiteStore) ExpectedVersion() int64 {
	if len(s.migrations) == 0 {
		return 0
	}
	return s.migrations[len(s.migrations)-1].Version
}

// CheckState returns the current state of the datastore.
func (s *SQLiteStore) CheckState(ctx context.Context) (store.StoreState, error) {
	if s.db == nil {
		return store.StateMissing, errNotOpened
	}

	// Check if schema_migrations table exists
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'`).Scan(&count)
	if err != nil {
		return store.StateUninitialized, fmt.Errorf("%w: check schema_migrations table: %w", store.ErrStorage, err)
	}

	if count == 0 {
		return store.StateUninitialized, nil
	}

	version, err := s.GetSchemaVersion(ctx)
	if err != nil {
		return store.StateUninitialized, err
	}

	if version != s.ExpectedVersion() {
		return store.StateVersionMismatch, nil
	}

	return store.StateReady, nil
}

// GetSchemaVersion returns the highest applied migration version, or 0.
func (s *SQLiteStore) GetSchemaVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, errNotOpened
	}

	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("%w: query schema version: %w", store.ErrStorage, err)
	}

	return version.Int64, nil
}

// Backup writes a consistent copy of the database to path.
func (s *SQLiteStore) Backup(ctx context.Context, path string) error {
	if s.db == nil {
		return errNotOpened
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("%w: backup to %s: %w", store.ErrStorage, path, err)
	}
	s.log.Info("backed up database to %s", path)
	return nil
}

// storageErr wraps a driver error, mapping a missing row to ErrNotFound.
func storageErr(op string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrStorage, op, err)
}

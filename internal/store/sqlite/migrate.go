package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/maloquacious/count/internal/store"
)

// ValidateMigrations checks that versions are positive and strictly
// ascending and that every entry has a description and a statement.
func ValidateMigrations(migrations []store.Migration) error {
	var prev int64
	for i, m := range migrations {
		if m.Version <= 0 {
			return fmt.Errorf("%w: entry %d: version must be positive, got %d", store.ErrMigration, i, m.Version)
		}
		if m.Version <= prev {
			return fmt.Errorf("%w: entry %d: version %d does not follow %d", store.ErrMigration, i, m.Version, prev)
		}
		if strings.TrimSpace(m.Description) == "" {
			return fmt.Errorf("%w: version %d: missing description", store.ErrMigration, m.Version)
		}
		if strings.TrimSpace(m.SQL) == "" {
			return fmt.Errorf("%w: version %d: empty statement", store.ErrMigration, m.Version)
		}
		prev = m.Version
	}
	return nil
}

// Migrate applies every registered migration that schema_migrations does
// not already record, in ascending version order. Each migration commits
// together with its bookkeeping row, so a failure leaves the previous
// version in place.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if s.db == nil {
		return errNotOpened
	}
	if err := ValidateMigrations(s.migrations); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, bookkeepingSchema); err != nil {
		return fmt.Errorf("%w: create schema_migrations: %w", store.ErrMigration, err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	known := make(map[int64]bool, len(s.migrations))
	for _, m := range s.migrations {
		known[m.Version] = true
		if desc, ok := applied[m.Version]; ok && desc != m.Description {
			return fmt.Errorf("%w: version %d recorded as %q, registered as %q",
				store.ErrMigration, m.Version, desc, m.Description)
		}
	}
	for version := range applied {
		if !known[version] {
			return fmt.Errorf("%w: database has version %d, which this build does not know", store.ErrMigration, version)
		}
	}

	for _, m := range s.migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.log.Info("applied migration %d (%s)", m.Version, m.Description)
	}

	return nil
}

// appliedMigrations maps each recorded version to its description.
func (s *SQLiteStore) appliedMigrations(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, description FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("%w: query schema_migrations: %w", store.ErrMigration, err)
	}
	defer rows.Close()

	applied := make(map[int64]string)
	for rows.Next() {
		var version int64
		var desc string
		if err := rows.Scan(&version, &desc); err != nil {
			return nil, fmt.Errorf("%w: scan schema_migrations: %w", store.ErrMigration, err)
		}
		applied[version] = desc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate schema_migrations: %w", store.ErrMigration, err)
	}
	return applied, nil
}

func (s *SQLiteStore) apply(ctx context.Context, m store.Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: version %d: begin transaction: %w", store.ErrMigration, m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("%w: version %d (%s): %w", store.ErrMigration, m.Version, m.Description, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, s.now().Unix())
	if err != nil {
		return fmt.Errorf("%w: version %d: record: %w", store.ErrMigration, m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: version %d: commit: %w", store.ErrMigration, m.Version, err)
	}

	return nil
}

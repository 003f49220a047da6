package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/maloquacious/count/internal/store"
	"github.com/maloquacious/count/internal/store/sqlite"
	"github.com/spf13/cobra"
)

func newDBCommand() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	dbCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Create and initialize the datastore",
		Args:  cobra.NoArgs,
		RunE:  runDBCreate,
	}
	dbUpgradeCmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Back up the datastore and apply pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runDBUpgrade,
	}
	dbVerifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify schema integrity and version",
		Args:  cobra.NoArgs,
		RunE:  runDBVerify,
	}

	dbCmd.AddCommand(dbCreateCmd, dbUpgradeCmd, dbVerifyCmd)
	return dbCmd
}

func runDBCreate(cmd *cobra.Command, args []string) error {
	dir := store.GetStorePath(cfg.StorePath)
	exists, err := store.CheckExists(dir)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("datastore already exists: %s", store.GetDBPath(dir))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	schema, err := createDatastore(cmd.Context(), dbPath(), sqlite.Migrations)
	if err != nil {
		return err
	}

	log.Info("created %s at schema version %d", dbPath(), schema)
	return nil
}

// createDatastore initializes a new database file at path. On failure the
// partially written file and its WAL sidecars are removed, so a retry starts
// from a missing datastore instead of a half-migrated one.
func createDatastore(ctx context.Context, path string, migrations []store.Migration) (int64, error) {
	s := sqlite.New(path, migrations, sqlite.WithLogger(log))
	err := s.Open()
	if err == nil {
		if err = s.Migrate(ctx); err != nil {
			s.Close()
		}
	}
	if err != nil {
		for _, f := range []string{path, path + "-wal", path + "-shm"} {
			if rmErr := os.Remove(f); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				log.Warn("remove %s after failed create: %v", f, rmErr)
			}
		}
		return 0, err
	}
	defer s.Close()

	return s.ExpectedVersion(), nil
}

func runDBUpgrade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	exists, err := store.CheckExists(store.GetStorePath(cfg.StorePath))
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no datastore at %s; run 'db create' first", dbPath())
	}

	s := sqlite.New(dbPath(), sqlite.Migrations, sqlite.WithLogger(log))
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()

	state, err := s.CheckState(ctx)
	if err != nil {
		return err
	}
	if state == store.StateReady {
		log.Info("schema already at version %d", s.ExpectedVersion())
		return nil
	}

	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	backup := filepath.Join(cfg.BackupDir, fmt.Sprintf("counters-%s.db", time.Now().UTC().Format("20060102T150405Z")))
	if err := s.Backup(ctx, backup); err != nil {
		return err
	}

	if err := s.Migrate(ctx); err != nil {
		log.Error("upgrade failed; backup kept at %s", backup)
		return err
	}

	log.Info("upgraded %s to schema version %d", dbPath(), s.ExpectedVersion())
	return nil
}

func runDBVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	summary := map[string]any{
		"path":            dbPath(),
		"version":         version.String(),
		"buildDate":       buildDate,
		"expectedVersion": sqlite.Migrations[len(sqlite.Migrations)-1].Version,
	}

	exists, err := store.CheckExists(store.GetStorePath(cfg.StorePath))
	if err != nil {
		return err
	}

	state := store.StateMissing
	if exists {
		s := sqlite.New(dbPath(), sqlite.Migrations, sqlite.WithLogger(log))
		if err := s.Open(); err != nil {
			return err
		}
		defer s.Close()

		if state, err = s.CheckState(ctx); err != nil {
			return err
		}
		if state != store.StateUninitialized {
			v, err := s.GetSchemaVersion(ctx)
			if err != nil {
				return err
			}
			summary["schemaVersion"] = v
		}
	}
	summary["state"] = state.String()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}

	if state != store.StateReady {
		return fmt.Errorf("datastore is %s", state)
	}
	return nil
}

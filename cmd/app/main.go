package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/maloquacious/count/internal/bridge"
	"github.com/maloquacious/count/internal/config"
	"github.com/maloquacious/count/internal/logger"
	"github.com/maloquacious/count/internal/store"
	"github.com/maloquacious/count/internal/store/sqlite"
	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"
)

var (
	version   = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}
	buildDate = ""
)

var (
	configFile string
	storePath  string
	logLevel   string

	cfg *config.Config
	log logger.Logger = logger.Default
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "app",
		Short:             "Counters desktop backend and admin CLI",
		Version:           version.String(),
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "count.yaml", "YAML configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "directory holding "+store.DefaultDBFile)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer UI commands as JSON lines on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd, newDBCommand(), newCounterCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the config file, COUNT_* variables and flags, then
// builds the process logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile, !cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if err := config.MergeEnv(c); err != nil {
		return err
	}
	if storePath != "" {
		c.StorePath = storePath
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	log = logger.New(c.LoggerOptions())
	logger.Default = log
	return nil
}

func dbPath() string {
	return store.GetDBPath(store.GetStorePath(cfg.StorePath))
}

// openReady opens the datastore and applies pending migrations.
func openReady(ctx context.Context) (*sqlite.SQLiteStore, error) {
	s := sqlite.New(dbPath(), sqlite.Migrations, sqlite.WithLogger(log))
	if err := s.Open(); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// runServe serves the command bridge until stdin closes or the process is interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := openReady(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	b := bridge.New(s, log)
	// Runs before s.Close: waits out a command still in flight.
	defer b.Close()
	log.Info("serving %d commands on stdio (version %s, schema %d)", len(b.Commands()), version.String(), s.ExpectedVersion())

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		// interrupted; stdin may still be open
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bridge: %w", err)
		}
	}

	log.Info("shutdown complete")
	return nil
}

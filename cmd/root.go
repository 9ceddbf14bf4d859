// Package cmd implements the dupfinder command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"dupfinder/config"
	"dupfinder/database"
	"dupfinder/logging"
	"dupfinder/metrics"
	"dupfinder/signalhandler"
	"dupfinder/utils"

	"github.com/spf13/cobra"
)

const (
	exitError            = 1
	exitStoreUnavailable = 2
)

// maxOpenRetries bounds how often opening the store is attempted
const maxOpenRetries = 3

// app carries the state shared by the subcommands of one invocation
type app struct {
	cfgFile string
	cfg     *config.Config
	metrics *metrics.Metrics

	// retryDelay is the base back-off between store open attempts
	retryDelay time.Duration
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dupfinder",
		Short: "Find and remove duplicate pictures",
		Long: `dupfinder indexes image files by a rotation-invariant perceptual
fingerprint and reports or removes duplicates.

Examples:
  dupfinder add ~/Pictures /mnt/backup/photos
  dupfinder find --print
  dupfinder find --threshold 4 --delete --keep largest
  dupfinder find                      # browse groups on the review server
  dupfinder cleanup`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ./dupfinder.yaml or ~/.config/dupfinder/dupfinder.yaml)")
	pf.String("db", "./db", "Directory of the SQLite database, or a MongoDB URI")
	pf.String("db-name", "image_database", "Name of the database")
	pf.String("db-collection", "images", "Name of the collection (SQLite table)")
	pf.String("driver", "sqlite3", "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")
	pf.Bool("debug", false, "Enable debug logging")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file when done")

	rootCmd.AddCommand(
		a.newAddCmd(),
		a.newRemoveCmd(),
		a.newClearCmd(),
		a.newShowCmd(),
		a.newCleanupCmd(),
		a.newFindCmd(),
	)
	return rootCmd
}

// load resolves the configuration for cmd and starts logging
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg.Trash = utils.ExpandHome(cfg.Trash)
	if !database.IsMongoURI(cfg.DB) {
		cfg.DB = utils.ExpandHome(cfg.DB)
	}
	a.cfg = cfg

	// Logging stays silent unless asked for
	if cfg.Debug || cfg.LogFile != "" {
		if err := logging.SetupLogger(cfg.Debug, cfg.LogFile); err != nil {
			printWarn(cmd.ErrOrStderr(), "Failed to setup logging: %v", err)
		}
	}
	logging.DebugLog("Configuration: %+v", *cfg)
	return nil
}

// openStore opens the configured store, retrying transient failures
func (a *app) openStore(ctx context.Context) (database.Store, error) {
	opts := database.Options{
		Location:   a.cfg.DB,
		Name:       a.cfg.DBName,
		Collection: a.cfg.DBCollection,
		Driver:     a.cfg.Driver,
	}

	var lastErr error
	for i := 0; i < maxOpenRetries; i++ {
		store, err := database.Open(ctx, opts)
		if err == nil {
			return store, nil
		}
		lastErr = err

		if i < maxOpenRetries-1 {
			logging.LogWarning("Error opening store (attempt %d/%d): %v - retrying...", i+1, maxOpenRetries, err)
			select {
			case <-time.After(a.retryDelay * time.Duration(i+1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("error opening store after %d attempts: %w", maxOpenRetries, lastErr)
}

// finish flushes metrics and logs once the command has run
func (a *app) finish(stderr io.Writer) {
	if a.cfg != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteToTextfile(a.cfg.MetricsFile); err != nil {
			printWarn(stderr, "%v", err)
		}
	}
	logging.CloseLogger()
}

func newApp() *app {
	return &app{metrics: metrics.New(), retryDelay: time.Second}
}

// run executes the command line in args and returns the process exit code
func (a *app) run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	a.finish(stderr)
	if err == nil {
		return 0
	}

	printError(stderr, err)
	var unavailable *database.StoreUnavailableError
	if errors.As(err, &unavailable) {
		return exitStoreUnavailable
	}
	return exitError
}

// Execute runs dupfinder with the process arguments and exits on failure
func Execute() {
	ctx, stop := signalhandler.SetupHandler(context.Background())
	code := newApp().run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// GPIO Companion - MQTT bridge between App Inventor and board pins
//
// The companion subscribes to a topic named after the board's persistent
// identifier and applies REGISTER and EVENT commands sent by an App Inventor
// application to the board's GPIO pins.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/gpio-companion/migrations"

	"github.com/nerrad567/gpio-companion/internal/identity"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/config"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/database"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A fresh tree per call keeps tests
// independent of each other.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "companion",
		Short: "GPIO companion - drive board pins from App Inventor over MQTT",
		Long: `companion connects to an MQTT broker, subscribes to the topic named
after this board's identifier and applies pin commands sent by an
App Inventor application.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to config.yaml (default $COMPANION_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(newIdentityCmd(&configPath))

	return root
}

// newIdentityCmd prints the board identifier, creating it on first use.
// This is the value to enter in the App Inventor application.
func newIdentityCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the board identifier used as the MQTT command topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			token, err := identity.New(identity.NewSQLiteStore(db)).GetOrCreate(cmd.Context())
			if err != nil {
				return fmt.Errorf("resolving board identifier: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Value of --config, may be empty
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting GPIO companion",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, source, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "source", source)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.shutdown()

	a.banner()

	if err := a.serve(ctx); err != nil {
		return err
	}

	log.Info("GPIO companion stopped")
	return nil
}

// loadConfig resolves the config path and loads it.
//
// The path comes from --config, then COMPANION_CONFIG, then the default.
// A missing file at the default location falls back to built-in defaults
// so a fresh board starts without any setup.
func loadConfig(flagPath string) (*config.Config, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("COMPANION_CONFIG")
	}

	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", fmt.Errorf("loading config: %w", err)
			}
			return cfg, "defaults", nil
		}
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// openDatabase opens the settings database and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

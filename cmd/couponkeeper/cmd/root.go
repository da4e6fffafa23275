package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/couponkeeper/internal/core/config"
	"github.com/solatis/couponkeeper/internal/core/db"
	"github.com/solatis/couponkeeper/internal/logging"
)

// Version is the release version reported at startup.
const Version = "0.1.0"

var (
	configFile string
	envFile    string
	dbURL      string
	logLevel   string
	logFormat  string

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "couponkeeper",
	Short:         "Coupon eligibility engine for bundles and customized products",
	Long:          `couponkeeper decides which cart lines a coupon applies to when carts hold composite bundles and configurator-customized products.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{Level: logLevel, Format: logFormat, Out: os.Stderr})
		if err != nil {
			return err
		}
		logger = l
		return config.LoadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file exported before config is read (existing variables win)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...), overrides CK_DATABASE_URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

// loadConfig reads the config file and environment, then applies --db-url.
func loadConfig() (*config.EligibilityAPIConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	return cfg, nil
}

// openDatabase opens the configured database. When requireSchema is set it
// refuses to continue with pending migrations.
func openDatabase(ctx context.Context, cfg *config.EligibilityAPIConfig, requireSchema bool) (*sqlx.DB, error) {
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if !requireSchema {
		return database, nil
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, st := range statuses {
		if !st.Applied {
			database.Close()
			return nil, fmt.Errorf("migration %s not applied - run 'couponkeeper migrate up' first", st.ID)
		}
	}
	return database, nil
}

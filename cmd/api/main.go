package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vas-billing-service/internal/app"
	"vas-billing-service/internal/config"
	"vas-billing-service/internal/db"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "Airtime subscription billing API",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		pool, err := db.NewPostgresPool(cmd.Context(), db.PostgresConfig{URL: cfg.DatabaseURL})
		if err != nil {
			return err
		}
		defer pool.Close()

		return db.ApplyMigrations(cmd.Context(), pool, logger)
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create or promote the configured admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		return app.SeedAdmin(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedAdminCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return app.NewServer(cfg, logger).Run(cmd.Context())
}

// bootstrap loads .env, the config and a logger matching the environment.
func bootstrap() (config.AppConfig, *zap.Logger, error) {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if envErr != nil {
		logger.Debug("no .env file found, relying on system env vars")
	}
	return cfg, logger, nil
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

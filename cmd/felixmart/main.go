package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"felixmart/internal/config"
	"felixmart/internal/env"
)

var Version = "dev"

func main() {
	if _, err := env.Load(".env", ".env.local"); err != nil {
		fmt.Fprintln(os.Stderr, "load env files:", err)
	}
	cfg := config.EnvDefaults()

	rootCmd := &cobra.Command{
		Use:           "felixmart",
		Short:         "felixmart checkout and payment verification backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindFlags(rootCmd, &cfg)

	rootCmd.AddCommand(serveCmd(&cfg))
	rootCmd.AddCommand(migrateCmd(&cfg))
	rootCmd.AddCommand(tokenCmd(&cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bindFlags lets flags override what the environment set.
func bindFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.Env, "env", cfg.Env, "deployment environment name")
	f.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	f.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit JSON logs")
	f.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "HS256 secret for access tokens")
	f.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres DSN; empty uses the in-memory store")
	f.StringVar(&cfg.MigrationsDir, "migrations", cfg.MigrationsDir, "directory of SQL migrations")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for idempotency keys; empty keeps them in memory")
	f.StringVar(&cfg.CashfreeEnv, "cashfree-env", cfg.CashfreeEnv, "sandbox or production")
	f.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "use the mock payment gateway")
	f.BoolVar(&cfg.ConfirmOnVerify, "confirm-on-verify", cfg.ConfirmOnVerify, "mark orders paid when verification reports SUCCESS")
	f.BoolVar(&cfg.WebhookReconcile, "webhooks", cfg.WebhookReconcile, "accept gateway payment webhooks")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "dev" {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler
	if cfg.LogJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h).With("service", "felixmart", "env", cfg.Env)
}

func printConfig(cfg config.Config) {
	b, _ := json.MarshalIndent(cfg.Redacted(), "", "  ")
	fmt.Println(string(b))
}

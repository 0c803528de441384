package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"felixmart/internal/config"
	"felixmart/internal/infrastructure/repo"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("--database-url (or FELIXMART_DATABASE_URL) is required")
			}
			pg, err := repo.NewPostgresRepo(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.RunMigrations(cfg.MigrationsDir); err != nil {
				return err
			}
			fmt.Println("migrations applied from", cfg.MigrationsDir)
			return nil
		},
	}
}

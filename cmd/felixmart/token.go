package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"felixmart/internal/config"
	"felixmart/internal/domain"
	"felixmart/internal/usecase"
)

func tokenCmd(cfg *config.Config) *cobra.Command {
	var (
		p   domain.Principal
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("--jwt-secret (or FELIXMART_JWT_SECRET) is required")
			}
			tok, err := (&usecase.AuthService{JWTSecret: cfg.JWTSecret}).Issue(p, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.UserID, "sub", "", "user id")
	cmd.Flags().StringVar(&p.Email, "email", "", "user email")
	cmd.Flags().BoolVar(&p.Admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

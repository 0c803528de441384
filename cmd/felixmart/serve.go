package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"felixmart/internal/checkout"
	"felixmart/internal/config"
	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/cashfree"
	"felixmart/internal/infrastructure/idempotency"
	"felixmart/internal/infrastructure/repo"
	"felixmart/internal/server"
	"felixmart/internal/usecase"
)

type store interface {
	usecase.OrderRepo
	usecase.CartRepo
	usecase.ProductRepo
	Ping(ctx context.Context) error
}

type gateway interface {
	usecase.Gateway
	usecase.WebhookVerifier
}

func serveCmd(cfg *config.Config) *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply migrations before serving")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, autoMigrate bool) error {
	log := newLogger(cfg)
	slog.SetDefault(log)
	printConfig(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checkers []server.Checker

	var st store
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if autoMigrate {
			if err := pg.RunMigrations(cfg.MigrationsDir); err != nil {
				return err
			}
		}
		st = pg
	} else {
		mem := repo.NewMemoryStore()
		seedCatalog(mem)
		log.Warn("no database configured, using in-memory store")
		st = mem
	}
	checkers = append(checkers, server.NewChecker("database", st.Ping))

	// A checkout holds its key for at most two gateway round trips.
	inflight := 2*cfg.GatewayTimeout + 10*time.Second
	var idem idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		rs := idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL).WithInFlightTTL(inflight)
		checkers = append(checkers, server.NewChecker("redis", rs.Ping))
		idem = rs
	} else {
		idem = idempotency.NewMemoryStore(cfg.IdempotencyTTL).WithInFlightTTL(inflight)
	}

	gw, err := newGateway(cfg, log)
	if err != nil {
		return err
	}

	orders := &usecase.OrderService{Repo: st, Products: st, DeliveryCharge: cfg.DeliveryCharge, Log: log}
	carts := &usecase.CartService{Repo: st, Products: st}
	checkoutSvc := &usecase.CheckoutService{Gateway: gw, ReturnURL: cfg.ReturnURL, NotifyURL: cfg.NotifyURL, Log: log}
	verify := &usecase.VerifyService{Gateway: gw, Log: log}
	d := server.Deps{
		Orders:   orders,
		Carts:    carts,
		Checkout: checkoutSvc,
		Verify:   verify,
		Auth:     &usecase.AuthService{JWTSecret: cfg.JWTSecret},
		Flow: &checkout.Controller{
			Carts:    carts,
			Orders:   orders,
			Sessions: checkoutSvc,
			Verifier: verify,
			Opts: checkout.Options{
				CheckoutURL:     cfg.CheckoutURL(),
				ReturnURL:       cfg.ReturnURL,
				MockMode:        cfg.MockMode,
				MockDelay:       cfg.MockRedirectDelay,
				ConfirmOnVerify: cfg.ConfirmOnVerify,
			},
			Log: log,
		},
		Idempotency: idem,
		Checkers:    checkers,
		Log:         log,
	}
	if cfg.WebhookReconcile {
		d.Webhooks = &usecase.WebhookService{Verifier: gw, Orders: orders, Log: log}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, d).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "mock_mode", cfg.MockMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGateway(cfg config.Config, log *slog.Logger) (gateway, error) {
	if cfg.MockMode {
		log.Warn("mock payment gateway enabled")
		return cashfree.NewMockGateway(cfg.CashfreeClientSecret), nil
	}
	c, err := cashfree.NewClient(cashfree.Config{
		ClientID:     cfg.CashfreeClientID,
		ClientSecret: cfg.CashfreeClientSecret,
		Environment:  cfg.CashfreeEnv,
		BaseURL:      cfg.CashfreeBaseURL,
		APIVersion:   cfg.CashfreeAPIVersion,
		TokenURL:     cfg.CashfreeTokenURL,
		Timeout:      cfg.GatewayTimeout,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("cashfree client: %w", err)
	}
	return c, nil
}

// seedCatalog gives the in-memory store something to sell.
func seedCatalog(m *repo.MemoryStore) {
	for _, p := range []domain.Product{
		{ID: "wooden-rattle", Name: "Wooden rattle", Price: decimal.NewFromInt(100), StockQuantity: 25},
		{ID: "cotton-bib", Name: "Cotton bib", Price: decimal.RequireFromString("149.50"), StockQuantity: 40},
		{ID: "soft-blocks", Name: "Soft stacking blocks", Price: decimal.NewFromInt(499), StockQuantity: 10},
	} {
		m.PutProduct(p)
	}
}

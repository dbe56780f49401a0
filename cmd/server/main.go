package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildmandi/backend/internal/api"
	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/config"
	"github.com/buildmandi/backend/internal/service"
	"github.com/buildmandi/backend/internal/storage/sqlite"
	"github.com/buildmandi/backend/pkg/logging"
)

func main() {
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	slog.Info("Database ready", "path", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	settlements := service.NewSettlementService(store, cfg.DefaultPlatformFeePct, cfg.DefaultCommissionPct)
	auths := service.NewAuthService(store, jwtManager)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auths.EnsureAdmin(ctx, store, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
		return err
	}
	if cfg.SeedPath != "" {
		if err := seedOrders(ctx, store, cfg.SeedPath); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(settlements, auths, jwtManager),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tillworks/tillworks/internal/accounts"
	"github.com/tillworks/tillworks/internal/app"
	"github.com/tillworks/tillworks/internal/audit"
	"github.com/tillworks/tillworks/internal/auth"
	"github.com/tillworks/tillworks/internal/observability"
	"github.com/tillworks/tillworks/internal/platform/cache"
	"github.com/tillworks/tillworks/internal/platform/db"
	"github.com/tillworks/tillworks/internal/setup"
	"github.com/tillworks/tillworks/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	hasher := shared.NewPasswordHasher(cfg.BcryptCost)
	sessionManager := auth.NewSessionManager(redisClient, cfg.SessionTTL)
	recorder := audit.NewRecorder(pool)
	metrics := observability.NewMetrics()

	accountsRepo := accounts.NewRepository(pool)

	authService := auth.NewService(logger, accountsRepo, hasher, sessionManager, recorder)
	authHandler := auth.NewHandler(logger, authService, metrics)
	gate := auth.NewGate(logger, sessionManager, accountsRepo)

	setupService := setup.NewService(logger, accountsRepo, hasher, recorder)
	setupHandler := setup.NewHandler(logger, setupService)

	accountsService := accounts.NewService(logger, accountsRepo, hasher, sessionManager, recorder)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Gate:            gate,
		AuthHandler:     authHandler,
		SetupHandler:    setupHandler,
		AccountsHandler: accountsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/api"
	"github.com/ayo6706/ledger-transfers/internal/command"
	"github.com/ayo6706/ledger-transfers/internal/config"
	"github.com/ayo6706/ledger-transfers/internal/cryptocondition"
	"github.com/ayo6706/ledger-transfers/internal/db"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/idempotency"
	"github.com/ayo6706/ledger-transfers/internal/observability"
	"github.com/ayo6706/ledger-transfers/internal/projection"
	"github.com/ayo6706/ledger-transfers/internal/repository"
	"github.com/ayo6706/ledger-transfers/internal/service"
	"github.com/ayo6706/ledger-transfers/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and expiry worker, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	repo := repository.NewRepository(pool)
	events := eventstore.New(pool)
	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)

	// Fee account must exist before the fee projection resolves it.
	if _, err := repo.CreateAccount(ctx, cfg.FeeAccount); err != nil {
		return fmt.Errorf("ensure fee account: %w", err)
	}

	projector := projection.NewProjector(events, logger,
		projection.NewTransferDetail(repo),
		projection.NewSettleable(repo),
		projection.NewFees(repo, cfg.FeeAccount),
	)
	if err := projector.Resync(ctx); err != nil {
		return fmt.Errorf("resync projections: %w", err)
	}

	handlers := command.New(events, projector, cryptocondition.NewVerifier())

	transferSvc := service.NewTransferService(handlers, repo, logger, cfg.Ledger, cfg.ExpiryConcurrency)
	services := api.Services{
		Transfers:   transferSvc,
		Settlements: service.NewSettlementService(handlers, repo, logger),
		Positions:   service.NewPositionService(repo),
		Accounts:    service.NewAccountService(repo),
		Charges:     service.NewChargeService(repo),
	}

	expiryWorker := worker.NewExpiryWorker(transferSvc).WithPollInterval(cfg.ExpiryPollInterval)
	stopWorker := expiryWorker.Run(ctx)
	logger.Info("expiry worker started", zap.Duration("interval", cfg.ExpiryPollInterval))

	router := api.NewRouter(cfg, logger, pool, redisClient, services, idemStore)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping expiry worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

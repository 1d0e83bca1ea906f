package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nivaas-labs/nivaas/internal/app"
	"github.com/nivaas-labs/nivaas/internal/billing"
	"github.com/nivaas-labs/nivaas/internal/platform/cache"
	"github.com/nivaas-labs/nivaas/internal/platform/db"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/visitors"
	"github.com/nivaas-labs/nivaas/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
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

	rbacRepo := rbac.NewRepository(pool)
	migrator := rbac.NewMigrator(rbacRepo, logger, cfg.MigrationParallelism)

	billingService := billing.NewService(billing.NewRepository(pool), nil, logger)
	visitorsService := visitors.NewService(visitors.NewRepository(pool), logger)

	expiryTask, err := jobs.NewExpireGatePassesTask(time.Now().UTC())
	if err != nil {
		logger.Error("build expiry task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMigrateLegacyRoles, Handler: jobs.NewMigrateLegacyRolesHandler(migrator, logger)},
			{Type: jobs.TaskGenerateDues, Handler: jobs.NewGenerateDuesHandler(billingService, logger)},
			{Type: jobs.TaskExpireGatePasses, Handler: jobs.NewExpireGatePassesHandler(visitorsService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

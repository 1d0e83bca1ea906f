package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nivaas-labs/nivaas/internal/app"
	"github.com/nivaas-labs/nivaas/internal/auth"
	"github.com/nivaas-labs/nivaas/internal/billing"
	"github.com/nivaas-labs/nivaas/internal/complaints"
	"github.com/nivaas-labs/nivaas/internal/meetings"
	"github.com/nivaas-labs/nivaas/internal/notices"
	"github.com/nivaas-labs/nivaas/internal/observability"
	"github.com/nivaas-labs/nivaas/internal/parking"
	"github.com/nivaas-labs/nivaas/internal/platform/cache"
	"github.com/nivaas-labs/nivaas/internal/platform/db"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
	"github.com/nivaas-labs/nivaas/internal/users"
	"github.com/nivaas-labs/nivaas/internal/vendors"
	"github.com/nivaas-labs/nivaas/internal/visitors"
	"github.com/nivaas-labs/nivaas/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "nivaas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	rbacRepo := rbac.NewRepository(dbpool)
	flagService := rbac.NewFlagService(rbacRepo, redisClient, cfg.FlagCacheTTL, logger)
	resolver := rbac.NewResolver(flagService, rbacRepo)
	gate := rbac.Gate{Resolver: resolver, Subjects: rbacRepo, Logger: logger, Metrics: metrics}
	migrator := rbac.NewMigrator(rbacRepo, logger, cfg.MigrationParallelism)
	rbacService := rbac.NewService(rbacRepo, resolver, auditLogger)
	rbacHandler := rbac.NewHandler(logger, rbacService, flagService, migrator, gate)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, gate)

	noticesService := notices.NewService(notices.NewRepository(dbpool), auditLogger)
	noticesHandler := notices.NewHandler(logger, noticesService, gate)

	complaintsService := complaints.NewService(complaints.NewRepository(dbpool), auditLogger)
	complaintsHandler := complaints.NewHandler(logger, complaintsService, gate)

	visitorsService := visitors.NewService(visitors.NewRepository(dbpool), logger)
	visitorsHandler := visitors.NewHandler(logger, visitorsService, gate)

	billingService := billing.NewService(billing.NewRepository(dbpool), auditLogger, logger)
	billingHandler := billing.NewHandler(logger, billingService, gate)

	meetingsService := meetings.NewService(meetings.NewRepository(dbpool), auditLogger)
	meetingsHandler := meetings.NewHandler(logger, meetingsService, gate)

	vendorsService := vendors.NewService(vendors.NewRepository(dbpool))
	vendorsHandler := vendors.NewHandler(logger, vendorsService, gate)

	parkingService := parking.NewService(parking.NewRepository(dbpool), auditLogger)
	parkingHandler := parking.NewHandler(logger, parkingService, gate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		RBACHandler:       rbacHandler,
		NoticesHandler:    noticesHandler,
		ComplaintsHandler: complaintsHandler,
		VisitorsHandler:   visitorsHandler,
		BillingHandler:    billingHandler,
		MeetingsHandler:   meetingsHandler,
		VendorsHandler:    vendorsHandler,
		ParkingHandler:    parkingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  cfg.AppIdleTimeout,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}

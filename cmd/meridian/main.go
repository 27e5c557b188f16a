package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/audit"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/clients"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/platform/cache"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/roles"
	"github.com/meridian-pos/meridian-pos/internal/sales"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stats"
	"github.com/meridian-pos/meridian-pos/internal/stock"
	"github.com/meridian-pos/meridian-pos/internal/users"
	"github.com/meridian-pos/meridian-pos/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, stats served uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	pricingSvc := pricing.NewService(pricing.NewRepository(pool))
	stockSvc := stock.NewService(stock.NewRepository(pool), auditLogger)
	catalogSvc := catalog.NewService(catalog.NewRepository(pool), stockSvc, pricingSvc, auditLogger, cfg.DefaultLocationID)
	clientsSvc := clients.NewService(clients.NewRepository(pool), auditLogger)
	usersSvc := users.NewService(users.NewRepository(pool), auditLogger)

	statsCache := stats.NewCache(redisClient, cfg.StatsTTL)
	statsSvc := stats.NewService(stats.NewRepository(pool), statsCache)
	if err := statsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("stats invalidation listener", slog.Any("error", err))
	}

	salesSvc := sales.NewService(sales.NewRepository(pool), idempotency, auditLogger, statsSvc, cfg.DefaultLocationID)

	metrics := observability.NewMetrics()

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		jobsHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,

		CatalogHandler: catalog.NewHandler(logger, catalogSvc),
		StockHandler:   stock.NewHandler(logger, stockSvc),
		SalesHandler:   sales.NewHandler(logger, salesSvc),
		PricingHandler: pricing.NewHandler(logger, pricingSvc),
		ClientsHandler: clients.NewHandler(logger, clientsSvc),
		UsersHandler:   users.NewHandler(logger, usersSvc),
		RolesHandler:   roles.NewHandler(),
		StatsHandler:   stats.NewHandler(logger, statsSvc),
		AuditHandler:   audit.NewHandler(logger, audit.NewRepository(pool)),
		JobsHandler:    jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

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

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/track-invoice/track-invoice/internal/app"
	"github.com/track-invoice/track-invoice/internal/auth"
	"github.com/track-invoice/track-invoice/internal/dashboard"
	"github.com/track-invoice/track-invoice/internal/invoices"
	"github.com/track-invoice/track-invoice/internal/masterdata"
	"github.com/track-invoice/track-invoice/internal/masterdata/clients"
	"github.com/track-invoice/track-invoice/internal/masterdata/items"
	"github.com/track-invoice/track-invoice/internal/masterdata/taxes"
	"github.com/track-invoice/track-invoice/internal/observability"
	"github.com/track-invoice/track-invoice/internal/platform/cache"
	"github.com/track-invoice/track-invoice/internal/platform/db"
	"github.com/track-invoice/track-invoice/internal/portal"
	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/jobs"
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

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "sweep-overdue":
		asOf := ""
		if len(os.Args) > 2 {
			asOf = os.Args[2]
		}
		err = enqueueSweep(ctx, cfg, logger, asOf)
	default:
		err = fmt.Errorf("unknown command %q (want serve, migrate or sweep-overdue)", cmd)
	}
	if err != nil {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func enqueueSweep(ctx context.Context, cfg *app.Config, logger *slog.Logger, asOf string) error {
	client, err := jobs.NewClient(redisOpts(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	info, err := client.EnqueueSweepOverdue(ctx, asOf)
	if err != nil {
		return err
	}
	logger.Info("overdue sweep enqueued", slog.String("task_id", info.ID), slog.String("as_of", asOf))
	return nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(redisOpts(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(redisOpts(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(pool), sessions)

	dashboardMetrics, err := dashboard.NewMetrics(metrics.Registerer())
	if err != nil {
		return err
	}
	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, dashboardMetrics, logger)

	invoiceService := invoices.NewService(invoices.ServiceConfig{
		Repo:                invoices.NewRepository(pool),
		Cache:               dashboardCache,
		Notifier:            jobClient,
		Metrics:             metrics.Domain(),
		Logger:              logger,
		Location:            cfg.Location(),
		AllowOverduePayment: cfg.AllowOverduePayment,
	})
	quotationService := quotations.NewService(quotations.ServiceConfig{
		Repo:      quotations.NewRepository(pool),
		Converter: invoiceService,
		Cache:     dashboardCache,
		Metrics:   metrics.Domain(),
		Logger:    logger,
	})

	clientService := clients.NewService(clients.NewRepository(pool), logger)
	portalService := portal.NewService(clientService, quotationService, invoiceService)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Sessions:    sessions,
		AuthHandler: auth.NewHandler(logger, authService),
		MasterDataHandler: &masterdata.Handler{
			Clients: clients.NewHandler(logger, clientService),
			Items:   items.NewHandler(logger, items.NewService(items.NewRepository(pool))),
			Taxes:   taxes.NewHandler(logger, taxes.NewService(taxes.NewRepository(pool))),
		},
		QuotationHandler: quotations.NewHandler(logger, quotationService),
		InvoiceHandler:   invoices.NewHandler(logger, invoiceService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		PortalHandler:    portal.NewHandler(logger, portalService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		HealthChecks:     healthChecks(pool, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  cfg.AppIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", cfg.Location().String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]app.HealthChecker {
	return map[string]app.HealthChecker{
		"postgres": func(r *http.Request) error { return pool.Ping(r.Context()) },
		"redis":    func(r *http.Request) error { return redisClient.Ping(r.Context()).Err() },
	}
}

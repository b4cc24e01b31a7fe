package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/track-invoice/track-invoice/internal/app"
	"github.com/track-invoice/track-invoice/internal/dashboard"
	"github.com/track-invoice/track-invoice/internal/invoices"
	jobmetrics "github.com/track-invoice/track-invoice/internal/jobs"
	"github.com/track-invoice/track-invoice/internal/platform/cache"
	"github.com/track-invoice/track-invoice/internal/platform/db"
	"github.com/track-invoice/track-invoice/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	invoiceService := invoices.NewService(invoices.ServiceConfig{
		Repo:                invoices.NewRepository(pool),
		Cache:               dashboard.NewCache(redisClient, cfg.DashboardCacheTTL),
		Logger:              logger,
		Location:            cfg.Location(),
		AllowOverduePayment: cfg.AllowOverduePayment,
	})

	metrics := jobmetrics.NewMetrics(nil)
	sweepJob := jobs.NewOverdueSweepJob(invoiceService, logger, metrics)
	publishedJob := jobs.NewInvoicePublishedJob(invoiceService, logger, metrics)

	sweepTask, err := jobs.NewSweepOverdueTask(jobs.SweepOverduePayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Location:    cfg.Location(),
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceSweepOverdue, Handler: sweepJob.Handle},
			{Type: jobs.TaskInvoicePublished, Handler: publishedJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueSweepSpec, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("sweep_spec", cfg.OverdueSweepSpec), slog.String("timezone", cfg.Location().String()))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

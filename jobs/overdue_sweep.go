package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/track-invoice/track-invoice/internal/invoices"
	jobmetrics "github.com/track-invoice/track-invoice/internal/jobs"
	"github.com/track-invoice/track-invoice/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Sweeper re-derives invoice statuses for a given day.
type Sweeper interface {
	Today() shared.Date
	SweepOverdue(ctx context.Context, today shared.Date) (invoices.SweepResult, error)
}

// OverdueSweepJob re-derives the status of every open invoice so past-due
// schedules surface as Overdue without waiting for a payment.
type OverdueSweepJob struct {
	Sweeper Sweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOverdueSweepJob wires dependencies for the sweep handler.
func NewOverdueSweepJob(sweeper Sweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{Sweeper: sweeper, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInvoiceSweepOverdue tasks.
func (j *OverdueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sweeper == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	var payload SweepOverduePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	today := j.Sweeper.Today()
	if payload.AsOf != "" {
		parsed, err := shared.ParseDate(payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		today = parsed
	}

	tracker := j.metrics().Track(TaskInvoiceSweepOverdue)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("as_of", today.String()))
	start := time.Now()
	res, err := j.Sweeper.SweepOverdue(ctx, today)
	j.metrics().AddSwept(res.Checked, res.Changed, res.Failed)
	if err != nil {
		resultErr = err
		logger.Error("overdue sweep", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed overdue sweep",
		slog.Int("checked", res.Checked),
		slog.Int("changed", res.Changed),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *OverdueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceSweepOverdue))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceSweepOverdue))
}

func (j *OverdueSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/track-invoice/track-invoice/internal/invoices"
	jobmetrics "github.com/track-invoice/track-invoice/internal/jobs"
)

// InvoiceLoader reads an invoice with its terms.
type InvoiceLoader interface {
	Get(ctx context.Context, id int64) (*invoices.Invoice, error)
}

// InvoicePublishedJob announces issued invoices. Delivery is logged only;
// the payload carries what a mailer needs.
type InvoicePublishedJob struct {
	Invoices InvoiceLoader
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewInvoicePublishedJob wires dependencies for the publish notification.
func NewInvoicePublishedJob(loader InvoiceLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoicePublishedJob {
	return &InvoicePublishedJob{Invoices: loader, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInvoicePublished tasks.
func (j *InvoicePublishedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return errors.New("invoice published: handler not configured")
	}
	var payload InvoicePublishedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.InvoiceID <= 0 {
		return asynq.SkipRetry
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskInvoicePublished)

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskInvoicePublished), slog.Int64("invoice_id", payload.InvoiceID))

	inv, err := j.Invoices.Get(ctx, payload.InvoiceID)
	if err != nil {
		logger.Error("load published invoice", slog.Any("error", err))
		return tracker.End(err)
	}
	due := ""
	if inv.DueDate != nil {
		due = inv.DueDate.String()
	}
	logger.Info("invoice issued to client",
		slog.String("invoice_number", inv.InvoiceNumber),
		slog.String("company_name", inv.CompanyName),
		slog.String("status", string(inv.Status)),
		slog.String("total", inv.Total.StringFixed(2)),
		slog.String("due_date", due),
		slog.Int("terms", len(inv.Terms)))
	return tracker.End(nil)
}

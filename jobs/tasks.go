package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoicePublished notifies the client about a freshly issued invoice.
	TaskInvoicePublished = "invoice:published"
	// TaskInvoiceSweepOverdue re-derives the status of every open invoice.
	TaskInvoiceSweepOverdue = "invoice:sweep_overdue"
)

// InvoicePublishedPayload identifies the published invoice.
type InvoicePublishedPayload struct {
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoicePublishedTask constructs an Asynq task.
func NewInvoicePublishedTask(payload InvoicePublishedPayload) (*asynq.Task, error) {
	if payload.InvoiceID <= 0 {
		return nil, fmt.Errorf("jobs: invoice id required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicePublished, data, asynq.MaxRetry(5)), nil
}

// SweepOverduePayload optionally pins the evaluation day, YYYY-MM-DD.
type SweepOverduePayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewSweepOverdueTask constructs the cron task for the overdue sweep.
func NewSweepOverdueTask(payload SweepOverduePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceSweepOverdue, data, asynq.MaxRetry(1), asynq.Timeout(15*time.Minute)), nil
}

package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/track-invoice/track-invoice/internal/observability"
	"github.com/track-invoice/track-invoice/internal/pricing"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// CacheInvalidator is bumped after every committed change.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Notifier is told about invoices that were just published.
type Notifier interface {
	EnqueueInvoicePublished(ctx context.Context, invoiceID int64, invoiceNumber string) error
}

// ServiceConfig collects the dependencies of Service.
type ServiceConfig struct {
	Repo                Repository
	Cache               CacheInvalidator
	Notifier            Notifier
	Metrics             *observability.DomainMetrics
	Logger              *slog.Logger
	Location            *time.Location
	AllowOverduePayment bool
	Clock               func() time.Time
}

// Service drives the invoice state machine.
type Service struct {
	repo                Repository
	cache               CacheInvalidator
	notifier            Notifier
	metrics             *observability.DomainMetrics
	logger              *slog.Logger
	location            *time.Location
	allowOverduePayment bool
	clock               func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:                cfg.Repo,
		cache:               cfg.Cache,
		notifier:            cfg.Notifier,
		metrics:             cfg.Metrics,
		logger:              logger,
		location:            loc,
		allowOverduePayment: cfg.AllowOverduePayment,
		clock:               clock,
	}
}

// Today returns the current business day in the configured location.
func (s *Service) Today() shared.Date {
	return shared.Today(s.clock(), s.location)
}

// Publish issues a draft invoice. The due date is recomputed from the term
// schedule and the status is derived immediately.
func (s *Service) Publish(ctx context.Context, id int64) (*Invoice, error) {
	today := s.Today()
	var (
		number string
		next   Status
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CanPublish(inv.Status); err != nil {
			return err
		}
		due := dueDate(inv.Terms)
		next = Derive(inv.Total, inv.Terms, today)
		if err := repo.Publish(ctx, id, today, due, next); err != nil {
			return fmt.Errorf("publish invoice: %w", err)
		}
		number = inv.InvoiceNumber
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "invoice.publish", "invoice", id, map[string]any{
			"from":       StatusDraft,
			"to":         next,
			"issue_date": today.String(),
		}))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InvoiceStatusChange(string(StatusDraft), string(next))
	s.changed(ctx)
	if s.notifier != nil {
		if err := s.notifier.EnqueueInvoicePublished(ctx, id, number); err != nil {
			s.logger.Warn("enqueue invoice published", slog.Int64("invoice_id", id), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// PayTerm settles one installment. The guards run in a fixed order: the
// invoice must exist and accept payment, the term must exist and be unpaid,
// and the nominal must match exactly.
func (s *Service) PayTerm(ctx context.Context, invoiceID int64, req PayTermRequest, idempotencyKey string) (*PaymentResult, error) {
	// Malformed requests are rejected before the invoice lookup, so an
	// empty nominal is a 400 even for an unknown invoice.
	if req.TermNumber <= 0 || req.Nominal.IsZero() {
		s.metrics.InvoicePayment("rejected")
		return nil, fmt.Errorf("%w: term_number and nominal are required", shared.ErrValidation)
	}

	today := s.Today()
	result := &PaymentResult{InvoiceID: invoiceID, TermNumber: req.TermNumber, PaymentDate: today}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if idempotencyKey != "" {
			if err := repo.ClaimIdempotencyKey(ctx, idempotencyKey, "invoice.pay_term"); err != nil {
				return err
			}
		}
		if err := CanPay(inv.Status, s.allowOverduePayment); err != nil {
			return err
		}
		term, ok := inv.Term(req.TermNumber)
		if !ok {
			return fmt.Errorf("%w: term %d of invoice %d", shared.ErrNotFound, req.TermNumber, invoiceID)
		}
		if term.TermStatus == TermPaid {
			return fmt.Errorf("%w: term %d is already paid", shared.ErrInvalidStatus, req.TermNumber)
		}
		if !req.Nominal.Equal(term.Nominal) {
			return fmt.Errorf("%w: nominal %s does not match term nominal %s",
				shared.ErrValidation, req.Nominal.StringFixed(2), term.Nominal.StringFixed(2))
		}

		if err := repo.MarkTermPaid(ctx, invoiceID, req.TermNumber, today); err != nil {
			return fmt.Errorf("pay term: %w", err)
		}
		term.TermStatus = TermPaid
		paidOn := today
		term.PaymentDate = &paidOn

		result.PreviousStatus = inv.Status
		result.InvoiceStatus = Derive(inv.Total, inv.Terms, today)
		if result.InvoiceStatus != inv.Status {
			if err := repo.UpdateStatus(ctx, invoiceID, result.InvoiceStatus); err != nil {
				return fmt.Errorf("update invoice status: %w", err)
			}
		}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "invoice.pay_term", "invoice", invoiceID, map[string]any{
			"term_number": req.TermNumber,
			"nominal":     term.Nominal.StringFixed(2),
			"from":        inv.Status,
			"to":          result.InvoiceStatus,
		}))
	})
	if err != nil {
		s.metrics.InvoicePayment("rejected")
		return nil, err
	}

	s.metrics.InvoicePayment("paid")
	if result.PreviousStatus != result.InvoiceStatus {
		s.metrics.InvoiceStatusChange(string(result.PreviousStatus), string(result.InvoiceStatus))
	}
	s.changed(ctx)
	result.Message = fmt.Sprintf("Termin %d berhasil dibayar", req.TermNumber)
	return result, nil
}

// Delete removes a draft invoice together with its items and terms.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CanDelete(inv.Status); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "invoice.delete", "invoice", id, map[string]any{
			"invoice_number": inv.InvoiceNumber,
		}))
	})
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// Get returns an invoice with its items and terms.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoice headers with their terms.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	return s.repo.List(ctx, filter)
}

// Reevaluate re-runs status derivation for one invoice as of today and
// persists the result when it changed. Draft and Paid invoices are left
// untouched.
func (s *Service) Reevaluate(ctx context.Context, id int64, today shared.Date) (Status, bool, error) {
	var (
		from, to Status
		changed  bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from, to = inv.Status, inv.Status
		if !Reevaluable(inv.Status) {
			return nil
		}
		to = Derive(inv.Total, inv.Terms, today)
		if to == from {
			return nil
		}
		if err := repo.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		changed = true
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "invoice.reevaluate", "invoice", id, map[string]any{
			"from": from,
			"to":   to,
		}))
	})
	if err != nil {
		return "", false, err
	}
	if changed {
		s.metrics.InvoiceStatusChange(string(from), string(to))
	}
	return to, changed, nil
}

// SweepResult summarises one overdue sweep.
type SweepResult struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// SweepOverdue re-evaluates every published, unpaid invoice. A failure on one
// invoice is logged and does not stop the sweep.
func (s *Service) SweepOverdue(ctx context.Context, today shared.Date) (SweepResult, error) {
	var res SweepResult
	ids, err := s.repo.ListReevaluable(ctx)
	if err != nil {
		return res, fmt.Errorf("list invoices to sweep: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		_, changed, err := s.Reevaluate(ctx, id, today)
		if err != nil {
			res.Failed++
			s.logger.Error("reevaluate invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
			continue
		}
		if changed {
			res.Changed++
		}
	}
	if res.Changed > 0 {
		s.changed(ctx)
	}
	return res, nil
}

func (s *Service) changed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump dashboard cache", slog.Any("error", err))
	}
}

func dueDate(terms []Term) *shared.Date {
	schedule := make([]pricing.Term, 0, len(terms))
	for _, t := range terms {
		schedule = append(schedule, pricing.Term{Number: t.TermNumber, Nominal: t.Nominal, Estimate: t.TermEstimate})
	}
	return pricing.DueDate(schedule)
}

package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/track-invoice/track-invoice/internal/observability"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Converter materialises an invoice from an approved quotation.
type Converter interface {
	ConvertFromQuotation(ctx context.Context, quotationID int64, idempotencyKey string) (*Conversion, error)
}

// CacheInvalidator is bumped after every committed change.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// ServiceConfig collects the dependencies of Service.
type ServiceConfig struct {
	Repo      Repository
	Converter Converter
	Cache     CacheInvalidator
	Metrics   *observability.DomainMetrics
	Logger    *slog.Logger
}

// Service drives the quotation state machine.
type Service struct {
	repo      Repository
	converter Converter
	cache     CacheInvalidator
	metrics   *observability.DomainMetrics
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      cfg.Repo,
		converter: cfg.Converter,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Create stores a new quotation with its items and terms.
func (s *Service) Create(ctx context.Context, req Request) (*Quotation, error) {
	p, err := price(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	p.header.Status = InitialStatus(req.Status)

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		created, err := repo.Create(ctx, p.header)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		id = created
		if err := repo.ReplaceItems(ctx, id, p.items); err != nil {
			return err
		}
		if err := repo.ReplaceTerms(ctx, id, p.terms); err != nil {
			return err
		}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "quotation.create", "quotation", id, map[string]any{
			"status": p.header.Status,
			"total":  p.header.Total.StringFixed(2),
		}))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.QuotationTransition("create", string(p.header.Status))
	s.changed(ctx)
	return s.repo.Get(ctx, id)
}

// Update replaces the quotation header, items and terms. Sent and approved
// quotations are frozen; a rejected one becomes revised.
func (s *Service) Update(ctx context.Context, id int64, req Request) (*Quotation, error) {
	p, err := price(req)
	if err != nil {
		return nil, err
	}

	var next Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err = Edit(existing.Status, req.Status == StatusSent)
		if err != nil {
			return err
		}
		if existing.ClientID != req.ClientID {
			ok, err := repo.ClientExists(ctx, req.ClientID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: client %d", shared.ErrNotFound, req.ClientID)
			}
		}

		header := p.header
		header.ID = id
		header.Status = next
		if err := repo.UpdateHeader(ctx, header); err != nil {
			return fmt.Errorf("update quotation: %w", err)
		}
		if err := repo.ReplaceItems(ctx, id, p.items); err != nil {
			return err
		}
		if err := repo.ReplaceTerms(ctx, id, p.terms); err != nil {
			return err
		}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "quotation.update", "quotation", id, map[string]any{
			"from": existing.Status,
			"to":   next,
		}))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.QuotationTransition("edit", string(next))
	s.changed(ctx)
	return s.repo.Get(ctx, id)
}

// Send marks a draft or revised quotation as sent to the client.
func (s *Service) Send(ctx context.Context, id int64) (*Quotation, error) {
	return s.transition(ctx, id, "send", Send, "")
}

// Approve records the client's approval.
func (s *Service) Approve(ctx context.Context, id int64, note string) (*Quotation, error) {
	return s.transition(ctx, id, "approve", Approve, note)
}

// Reject records the client's rejection.
func (s *Service) Reject(ctx context.Context, id int64, note string) (*Quotation, error) {
	return s.transition(ctx, id, "reject", Reject, note)
}

func (s *Service) transition(ctx context.Context, id int64, action string, step func(Status) (Status, error), note string) (*Quotation, error) {
	var next Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err = step(existing.Status)
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, next); err != nil {
			return fmt.Errorf("%s quotation: %w", action, err)
		}
		meta := map[string]any{"from": existing.Status, "to": next}
		if note != "" {
			meta["note"] = note
		}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "quotation."+action, "quotation", id, meta))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.QuotationTransition(action, string(next))
	s.changed(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes a draft quotation together with its items and terms.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CanDelete(existing.Status); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete quotation: %w", err)
		}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "quotation.delete", "quotation", id, nil))
	})
	if err != nil {
		return err
	}
	s.metrics.QuotationTransition("delete", "")
	s.changed(ctx)
	return nil
}

// Convert turns an approved quotation into a draft invoice.
func (s *Service) Convert(ctx context.Context, id int64, idempotencyKey string) (*Conversion, error) {
	if s.converter == nil {
		return nil, errors.New("quotations: converter not configured")
	}
	result, err := s.converter.ConvertFromQuotation(ctx, id, idempotencyKey)
	if err != nil {
		return nil, err
	}
	s.metrics.QuotationTransition("convert", string(StatusApproved))
	return result, nil
}

// Get returns a quotation with its items and terms.
func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

// List returns quotation headers matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) ensureClient(ctx context.Context, clientID int64) error {
	ok, err := s.repo.ClientExists(ctx, clientID)
	if err != nil {
		return fmt.Errorf("verify client: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, clientID)
	}
	return nil
}

func (s *Service) changed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump dashboard cache", slog.Any("error", err))
	}
}

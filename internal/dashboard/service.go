package dashboard

import (
	"context"
	"log/slog"
	"time"
)

// Service assembles the admin dashboard summary behind a versioned cache.
type Service struct {
	repo    Repository
	cache   *Cache
	metrics *Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// NewService wires a Repository with a Cache helper. cache and metrics
// may be nil.
func NewService(repo Repository, cache *Cache, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, metrics: metrics, logger: logger, clock: time.Now}
}

// Summary returns the cached summary, building it at most once per cache
// version across concurrent callers.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	key, err := s.cache.BuildKey(ctx, "trackinvoice", "dashboard", "summary")
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.build(ctx)
	}
	val, err, _ := singleflightBuild(ctx, key, func(ctx context.Context) (any, error) {
		return s.fetch(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return val.(*Summary), nil
}

func (s *Service) fetch(ctx context.Context, key string) (*Summary, error) {
	var out Summary
	var loadErr error
	hit, err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		summary, err := s.build(ctx)
		loadErr = err
		return summary, err
	})
	if err == nil {
		s.metrics.lookup(hit)
		return &out, nil
	}
	if loadErr != nil {
		return nil, loadErr
	}
	s.logger.Warn("dashboard cache read failed", slog.String("key", key), slog.Any("error", err))
	return s.build(ctx)
}

func (s *Service) build(ctx context.Context) (*Summary, error) {
	start := time.Now()
	defer func() { s.metrics.observeBuild(time.Since(start).Seconds()) }()

	qCounts, err := s.repo.QuotationCounts(ctx)
	if err != nil {
		return nil, err
	}
	iCounts, err := s.repo.InvoiceCounts(ctx)
	if err != nil {
		return nil, err
	}
	approved, err := s.repo.LatestApproved(ctx, NotificationLimit)
	if err != nil {
		return nil, err
	}
	overdue, err := s.repo.OverdueInvoices(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		QuotationCounts: make(map[string]int, len(quotationStatuses)),
		InvoiceCounts:   make(map[string]int, len(invoiceStatuses)),
		Notifications:   approved,
		OverdueInvoices: overdue,
		GeneratedAt:     s.clock().UTC(),
	}
	for _, st := range quotationStatuses {
		summary.QuotationCounts[string(st)] = qCounts[string(st)]
	}
	for _, st := range invoiceStatuses {
		summary.InvoiceCounts[string(st)] = iCounts[string(st)]
	}
	if summary.Notifications == nil {
		summary.Notifications = []ApprovedQuotation{}
	}
	if summary.OverdueInvoices == nil {
		summary.OverdueInvoices = []OverdueInvoice{}
	}
	return summary, nil
}

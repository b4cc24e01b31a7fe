package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/track-invoice/track-invoice/internal/shared"
)

type stubRepo struct {
	calls   int
	err     error
	overdue []OverdueInvoice
}

func (s *stubRepo) QuotationCounts(ctx context.Context) (map[string]int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return map[string]int{"draft": 2, "approved": 3}, nil
}

func (s *stubRepo) InvoiceCounts(ctx context.Context) (map[string]int, error) {
	return map[string]int{"Issued": 1, "Overdue": len(s.overdue)}, nil
}

func (s *stubRepo) LatestApproved(ctx context.Context, limit int) ([]ApprovedQuotation, error) {
	out := []ApprovedQuotation{
		{ID: 9, CompanyName: "PT A", ProjectTitle: "Website", Total: decimal.NewFromInt(1090000)},
		{ID: 8, CompanyName: "PT B", ProjectTitle: "App", Total: decimal.NewFromInt(500000)},
		{ID: 7, CompanyName: "PT C", ProjectTitle: "Logo", Total: decimal.NewFromInt(250000)},
		{ID: 6, CompanyName: "PT D", ProjectTitle: "SEO", Total: decimal.NewFromInt(100000)},
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) OverdueInvoices(ctx context.Context) ([]OverdueInvoice, error) {
	return s.overdue, nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSummaryBuildsAllStatuses(t *testing.T) {
	due := shared.NewDate(2025, time.February, 1)
	repo := &stubRepo{overdue: []OverdueInvoice{{
		ID: 1, InvoiceNumber: "INV-00001", DueDate: &due,
		Total: decimal.NewFromInt(1000), Paid: decimal.NewFromInt(400), Outstanding: decimal.NewFromInt(600),
	}}}
	svc := NewService(repo, nil, nil, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"draft": 2, "sent": 0, "revised": 0, "approved": 3, "rejected": 0}, summary.QuotationCounts)
	assert.Equal(t, 1, summary.InvoiceCounts["Overdue"])
	assert.Equal(t, 0, summary.InvoiceCounts["Paid"])
	assert.Len(t, summary.Notifications, NotificationLimit)
	require.Len(t, summary.OverdueInvoices, 1)
	assert.True(t, summary.OverdueInvoices[0].Outstanding.Equal(decimal.NewFromInt(600)))
}

func TestSummaryIsCachedUntilBump(t *testing.T) {
	repo := &stubRepo{}
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	cache := NewCache(newRedis(t), time.Minute)
	svc := NewService(repo, cache, metrics, nil)
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	require.NoError(t, err)
	second, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, first.QuotationCounts, second.QuotationCounts)
	assert.True(t, first.Notifications[0].Total.Equal(second.Notifications[0].Total))

	require.NoError(t, cache.Bump(ctx))
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.lookups.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.lookups.WithLabelValues("miss")))
}

func TestSummaryPropagatesRepositoryErrors(t *testing.T) {
	repo := &stubRepo{err: errors.New("db down")}
	svc := NewService(repo, NewCache(newRedis(t), time.Minute), nil, nil)

	_, err := svc.Summary(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestCacheVersionStartsAtOne(t *testing.T) {
	cache := NewCache(newRedis(t), time.Minute)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a:b:1", key)

	require.NoError(t, cache.Bump(ctx))
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)

	var nilCache *Cache
	assert.NoError(t, nilCache.Bump(ctx))
}

func TestHandlerServesSummary(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, NewService(&stubRepo{}, nil, nil, nil)).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "quotation_counts")
	assert.Equal(t, []any{}, body["overdue_invoices"])
}

package items

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdshared "github.com/track-invoice/track-invoice/internal/masterdata/shared"
	"github.com/track-invoice/track-invoice/internal/shared"
)

type memoryRepo struct {
	seq   int64
	items map[int64]Item
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Item{}}
}

func (m *memoryRepo) List(ctx context.Context, filters mdshared.ListFilters, extra Filters) ([]Item, int, error) {
	out := []Item{}
	for _, it := range m.items {
		if extra.Category != "" && it.Category != extra.Category {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(it.ItemName), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	start := filters.Offset()
	if start > total {
		start = total
	}
	end := start + filters.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: item %d", shared.ErrNotFound, id)
	}
	return it, nil
}

func (m *memoryRepo) Create(ctx context.Context, item Item) (Item, error) {
	m.seq++
	item.ID = m.seq
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, item Item) (Item, error) {
	if _, ok := m.items[id]; !ok {
		return Item{}, fmt.Errorf("%w: item %d", shared.ErrNotFound, id)
	}
	item.ID = id
	m.items[id] = item
	return item, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: item %d", shared.ErrNotFound, id)
	}
	delete(m.items, id)
	return nil
}

func TestServiceCreateNormalizes(t *testing.T) {
	svc := NewService(newMemoryRepo())

	item, err := svc.Create(context.Background(), Request{
		ItemName:     "  Landing page  ",
		Category:     " Web ",
		DefaultPrice: decimal.RequireFromString("1500000.005"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Landing page", item.ItemName)
	assert.Equal(t, "Web", item.Category)
	assert.Equal(t, "1500000.01", item.DefaultPrice.StringFixed(2))
}

func TestServiceRejectsInvalidItems(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{ItemName: "", DefaultPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Request{ItemName: "Hosting", DefaultPrice: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Get(ctx, 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandlerFiltersByCategory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	for _, req := range []Request{
		{ItemName: "Landing page", Category: "web", DefaultPrice: decimal.NewFromInt(1000)},
		{ItemName: "Logo", Category: "design", DefaultPrice: decimal.NewFromInt(500)},
		{ItemName: "Company profile", Category: "web", DefaultPrice: decimal.NewFromInt(2000)},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?category=web&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Data       []Item            `json:"data"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
	assert.Equal(t, 2, list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.TotalPages)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/3", strings.NewReader(`{"item_name":"Company profile","category":"web","default_price":"2500"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, repo.items[3].DefaultPrice.Equal(decimal.NewFromInt(2500)))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_name":"x","unknown":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

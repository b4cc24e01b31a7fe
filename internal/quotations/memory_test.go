package quotations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/track-invoice/track-invoice/internal/shared"
)

// memoryRepo is an in-memory Repository. WithTx snapshots state and
// restores it when fn fails.
type memoryRepo struct {
	quotations map[int64]*Quotation
	clients    map[int64]string
	audits     []shared.AuditLog
	nextID     int64
	nextLineID int64

	failReplaceTerms error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quotations: make(map[int64]*Quotation),
		clients:    map[int64]string{1: "PT Nusantara Digital", 2: "CV Maju Jaya"},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := make(map[int64]*Quotation, len(m.quotations))
	for id, q := range m.quotations {
		snapshot[id] = cloneQuotation(q)
	}
	audits := len(m.audits)
	if err := fn(ctx, m); err != nil {
		m.quotations = snapshot
		m.audits = m.audits[:audits]
		return err
	}
	return nil
}

func cloneQuotation(q *Quotation) *Quotation {
	out := *q
	out.Items = append([]Item(nil), q.Items...)
	out.Terms = append([]Term(nil), q.Terms...)
	return &out
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	return cloneQuotation(q), nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Quotation, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	out := []Quotation{}
	for _, q := range m.quotations {
		if filter.ClientID != nil && q.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		if filter.ExcludeDraft && q.Status == StatusDraft {
			continue
		}
		out = append(out, *cloneQuotation(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Create(ctx context.Context, q Quotation) (int64, error) {
	if _, ok := m.clients[q.ClientID]; !ok {
		return 0, fmt.Errorf("%w: client %d", shared.ErrNotFound, q.ClientID)
	}
	m.nextID++
	q.ID = m.nextID
	q.CompanyName = m.clients[q.ClientID]
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *memoryRepo) UpdateHeader(ctx context.Context, q Quotation) error {
	existing, ok := m.quotations[q.ID]
	if !ok {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, q.ID)
	}
	q.Items = existing.Items
	q.Terms = existing.Terms
	q.CreatedAt = existing.CreatedAt
	q.CompanyName = m.clients[q.ClientID]
	q.UpdatedAt = time.Now()
	m.quotations[q.ID] = &q
	return nil
}

func (m *memoryRepo) ReplaceItems(ctx context.Context, quotationID int64, items []Item) error {
	q, ok := m.quotations[quotationID]
	if !ok {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, quotationID)
	}
	q.Items = nil
	for _, it := range items {
		m.nextLineID++
		it.ID = m.nextLineID
		it.QuotationID = quotationID
		q.Items = append(q.Items, it)
	}
	return nil
}

func (m *memoryRepo) ReplaceTerms(ctx context.Context, quotationID int64, terms []Term) error {
	if m.failReplaceTerms != nil {
		return m.failReplaceTerms
	}
	q, ok := m.quotations[quotationID]
	if !ok {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, quotationID)
	}
	q.Terms = nil
	for _, t := range terms {
		m.nextLineID++
		t.ID = m.nextLineID
		t.QuotationID = quotationID
		q.Terms = append(q.Terms, t)
	}
	return nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	q, ok := m.quotations[id]
	if !ok {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	q.Status = status
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.quotations[id]; !ok {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	delete(m.quotations, id)
	return nil
}

func (m *memoryRepo) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	_, ok := m.clients[clientID]
	return ok, nil
}

func (m *memoryRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	if log.Action == "" {
		return errors.New("audit action required")
	}
	m.audits = append(m.audits, log)
	return nil
}

type stubConverter struct {
	calls  []int64
	result *Conversion
	err    error
}

func (s *stubConverter) ConvertFromQuotation(ctx context.Context, quotationID int64, key string) (*Conversion, error) {
	s.calls = append(s.calls, quotationID)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

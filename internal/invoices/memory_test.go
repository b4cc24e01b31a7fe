package invoices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// memoryRepo is an in-memory Repository. WithTx snapshots state and
// restores it when fn fails.
type memoryRepo struct {
	invoices   map[int64]*Invoice
	quotations map[int64]*quotations.Quotation
	keys       map[string]bool
	audits     []shared.AuditLog
	seq        int64
	nextID     int64
	nextLineID int64

	failInsertTerms error
	failUpdate      map[int64]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices:   make(map[int64]*Invoice),
		quotations: make(map[int64]*quotations.Quotation),
		keys:       make(map[string]bool),
		failUpdate: make(map[int64]error),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := make(map[int64]*Invoice, len(m.invoices))
	for id, inv := range m.invoices {
		snapshot[id] = cloneInvoice(inv)
	}
	keys := make(map[string]bool, len(m.keys))
	for k, v := range m.keys {
		keys[k] = v
	}
	seq, audits := m.seq, len(m.audits)
	if err := fn(ctx, m); err != nil {
		m.invoices = snapshot
		m.keys = keys
		m.seq = seq
		m.audits = m.audits[:audits]
		return err
	}
	return nil
}

func cloneInvoice(inv *Invoice) *Invoice {
	out := *inv
	out.Items = append([]Item(nil), inv.Items...)
	out.Terms = append([]Term(nil), inv.Terms...)
	return &out
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return cloneInvoice(inv), nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	out := []Invoice{}
	for _, inv := range m.invoices {
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.ExcludeDraft && inv.Status == StatusDraft {
			continue
		}
		out = append(out, *cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Create(ctx context.Context, inv Invoice) (int64, error) {
	for _, existing := range m.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return 0, fmt.Errorf("%w: invoice number %s", shared.ErrConflict, inv.InvoiceNumber)
		}
		if inv.QuotationID != nil && existing.QuotationID != nil && *existing.QuotationID == *inv.QuotationID {
			return 0, fmt.Errorf("%w: quotation %d", shared.ErrConflict, *inv.QuotationID)
		}
	}
	m.nextID++
	inv.ID = m.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryRepo) InsertItems(ctx context.Context, invoiceID int64, items []Item) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	for _, it := range items {
		m.nextLineID++
		it.ID = m.nextLineID
		it.InvoiceID = invoiceID
		inv.Items = append(inv.Items, it)
	}
	return nil
}

func (m *memoryRepo) InsertTerms(ctx context.Context, invoiceID int64, terms []Term) error {
	if m.failInsertTerms != nil {
		return m.failInsertTerms
	}
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	for _, t := range terms {
		m.nextLineID++
		t.ID = m.nextLineID
		t.InvoiceID = invoiceID
		inv.Terms = append(inv.Terms, t)
	}
	return nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if err := m.failUpdate[id]; err != nil {
		return err
	}
	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	inv.Status = status
	return nil
}

func (m *memoryRepo) Publish(ctx context.Context, id int64, issueDate shared.Date, dueDate *shared.Date, status Status) error {
	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	inv.IssueDate = &issueDate
	inv.DueDate = dueDate
	inv.Status = status
	return nil
}

func (m *memoryRepo) MarkTermPaid(ctx context.Context, invoiceID int64, termNumber int, paidOn shared.Date) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	for i := range inv.Terms {
		t := &inv.Terms[i]
		if t.TermNumber == termNumber && t.TermStatus == TermUnpaid {
			t.TermStatus = TermPaid
			t.PaymentDate = &paidOn
			return nil
		}
	}
	return fmt.Errorf("%w: term %d is not payable", shared.ErrInvalidStatus, termNumber)
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	delete(m.invoices, id)
	return nil
}

func (m *memoryRepo) ListReevaluable(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	for id, inv := range m.invoices {
		if Reevaluable(inv.Status) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryRepo) LockQuotation(ctx context.Context, quotationID int64) (*quotations.Quotation, error) {
	q, ok := m.quotations[quotationID]
	if !ok {
		return nil, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, quotationID)
	}
	out := *q
	out.InvoiceID = nil
	for _, inv := range m.invoices {
		if inv.QuotationID != nil && *inv.QuotationID == quotationID {
			id := inv.ID
			out.InvoiceID = &id
		}
	}
	out.Items = append([]quotations.Item(nil), q.Items...)
	out.Terms = append([]quotations.Term(nil), q.Terms...)
	return &out, nil
}

func (m *memoryRepo) NextInvoiceNumber(ctx context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf(InvoiceNumberFormat, m.seq), nil
}

func (m *memoryRepo) ClaimIdempotencyKey(ctx context.Context, key, module string) error {
	k := module + "/" + key
	if m.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = true
	return nil
}

func (m *memoryRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	if log.Action == "" {
		return errors.New("audit action required")
	}
	m.audits = append(m.audits, log)
	return nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

type recordingNotifier struct {
	published []string
	err       error
}

func (n *recordingNotifier) EnqueueInvoicePublished(ctx context.Context, invoiceID int64, number string) error {
	n.published = append(n.published, number)
	return n.err
}

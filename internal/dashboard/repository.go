package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/track-invoice/track-invoice/internal/invoices"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Repository exposes the aggregate queries behind the summary.
type Repository interface {
	QuotationCounts(ctx context.Context) (map[string]int, error)
	InvoiceCounts(ctx context.Context) (map[string]int, error)
	LatestApproved(ctx context.Context, limit int) ([]ApprovedQuotation, error)
	OverdueInvoices(ctx context.Context) ([]OverdueInvoice, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) QuotationCounts(ctx context.Context) (map[string]int, error) {
	return r.counts(ctx, `SELECT status, COUNT(*) FROM quotations GROUP BY status`)
}

func (r *pgRepository) InvoiceCounts(ctx context.Context) (map[string]int, error) {
	return r.counts(ctx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
}

func (r *pgRepository) counts(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *pgRepository) LatestApproved(ctx context.Context, limit int) ([]ApprovedQuotation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT q.id, q.client_id, c.company_name, q.project_title, q.total,
       (SELECT i.id FROM invoices i WHERE i.quotation_id = q.id), q.updated_at
FROM quotations q
JOIN clients c ON c.id = q.client_id
WHERE q.status = 'approved'
ORDER BY q.updated_at DESC, q.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard approved quotations: %w", err)
	}
	defer rows.Close()
	out := []ApprovedQuotation{}
	for rows.Next() {
		var a ApprovedQuotation
		if err := rows.Scan(&a.ID, &a.ClientID, &a.CompanyName, &a.ProjectTitle, &a.Total, &a.InvoiceID, &a.ApprovedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgRepository) OverdueInvoices(ctx context.Context) ([]OverdueInvoice, error) {
	rows, err := r.pool.Query(ctx, `
SELECT i.id, i.invoice_number, i.client_id, c.company_name, i.due_date, i.total,
       COALESCE(SUM(t.nominal) FILTER (WHERE t.term_status = 'paid'), 0)
FROM invoices i
JOIN clients c ON c.id = i.client_id
LEFT JOIN invoice_terms t ON t.invoice_id = i.id
WHERE i.status = $1
GROUP BY i.id, c.company_name
ORDER BY i.due_date NULLS LAST, i.id`, string(invoices.StatusOverdue))
	if err != nil {
		return nil, fmt.Errorf("dashboard overdue invoices: %w", err)
	}
	defer rows.Close()
	out := []OverdueInvoice{}
	for rows.Next() {
		var o OverdueInvoice
		var due pgtype.Date
		if err := rows.Scan(&o.ID, &o.InvoiceNumber, &o.ClientID, &o.CompanyName, &due, &o.Total, &o.Paid); err != nil {
			return nil, err
		}
		o.DueDate = shared.DateFromPG(due)
		o.Outstanding = o.Total.Sub(o.Paid)
		out = append(out, o)
	}
	return out, rows.Err()
}

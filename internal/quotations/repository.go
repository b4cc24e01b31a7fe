package quotations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/platform/db"
	"github.com/track-invoice/track-invoice/internal/pricing"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Repository is the persistence port of the quotation workflow.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetForUpdate(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, filter ListFilter) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, q Quotation) error
	ReplaceItems(ctx context.Context, quotationID int64, items []Item) error
	ReplaceTerms(ctx context.Context, quotationID int64, terms []Term) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	ClientExists(ctx context.Context, clientID int64) (bool, error)
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db    db.DBTX
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository builds a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, audit: shared.NewAuditLogger()}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, audit: r.audit})
	})
}

const selectHeader = `
SELECT q.id, q.client_id, c.company_name, q.project_title,
       q.estimate_date, q.expiry_date, q.start_date, q.deadline,
       q.subtotal, q.discount_type, q.discount_input, q.discount, q.tax, q.total,
       q.status, q.created_at, q.updated_at,
       (SELECT i.id FROM invoices i WHERE i.quotation_id = q.id)
FROM quotations q
JOIN clients c ON c.id = q.client_id`

func scanHeader(row pgx.Row) (*Quotation, error) {
	var (
		q                                  Quotation
		estimate, expiry, start, deadline pgtype.Date
		discountType, status               string
	)
	err := row.Scan(&q.ID, &q.ClientID, &q.CompanyName, &q.ProjectTitle,
		&estimate, &expiry, &start, &deadline,
		&q.Subtotal, &discountType, &q.DiscountInput, &q.Discount, &q.Tax, &q.Total,
		&status, &q.CreatedAt, &q.UpdatedAt, &q.InvoiceID)
	if err != nil {
		return nil, err
	}
	q.EstimateDate = shared.DateFromPG(estimate)
	q.ExpiryDate = shared.DateFromPG(expiry)
	q.StartDate = shared.DateFromPG(start)
	q.Deadline = shared.DateFromPG(deadline)
	q.DiscountType = pricing.DiscountKind(discountType)
	q.Status = Status(status)
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanHeader(r.db.QueryRow(ctx, selectHeader+` WHERE q.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	if q.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if q.Terms, err = r.terms(ctx, id); err != nil {
		return nil, err
	}
	return q, nil
}

// GetForUpdate locks the quotation row for the rest of the transaction.
func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Quotation, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM quotations WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *repository) items(ctx context.Context, quotationID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
SELECT qi.id, qi.quotation_id, qi.item_id, COALESCE(it.item_name, ''), qi.description,
       qi.qty, qi.price, qi.tax_id, qi.tax_rate, qi.total
FROM quotation_items qi
LEFT JOIN items it ON it.id = qi.item_id
WHERE qi.quotation_id = $1
ORDER BY qi.id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ItemID, &it.ItemName, &it.Description,
			&it.Qty, &it.Price, &it.TaxID, &it.TaxRate, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) terms(ctx context.Context, quotationID int64) ([]Term, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, quotation_id, term_number, nominal, term_percentage, term_estimate
FROM quotation_terms
WHERE quotation_id = $1
ORDER BY term_number`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make([]Term, 0)
	for rows.Next() {
		var (
			t        Term
			pct      decimal.NullDecimal
			estimate pgtype.Date
		)
		if err := rows.Scan(&t.ID, &t.QuotationID, &t.TermNumber, &t.Nominal, &pct, &estimate); err != nil {
			return nil, err
		}
		if pct.Valid {
			t.TermPercentage = &pct.Decimal
		}
		t.TermEstimate = shared.DateFromPG(estimate)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, "q.client_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, "q.status = $"+strconv.Itoa(len(args)))
	}
	if filter.ExcludeDraft {
		where = append(where, "q.status <> 'draft'")
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotations q`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectHeader + clause + ` ORDER BY q.created_at DESC, q.id DESC`
	if filter.Page.PerPage > 0 {
		args = append(args, filter.Page.PerPage, filter.Page.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Quotation, 0)
	for rows.Next() {
		q, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO quotations (client_id, project_title, estimate_date, expiry_date, start_date, deadline,
                        subtotal, discount_type, discount_input, discount, tax, total, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`,
		q.ClientID, q.ProjectTitle, q.EstimateDate.PG(), q.ExpiryDate.PG(), q.StartDate.PG(), q.Deadline.PG(),
		q.Subtotal, string(q.DiscountType), q.DiscountInput, q.Discount, q.Tax, q.Total, string(q.Status)).Scan(&id)
	if err != nil {
		if db.IsCode(err, db.CodeForeignKeyViolation) {
			return 0, fmt.Errorf("%w: client %d", shared.ErrNotFound, q.ClientID)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, q Quotation) error {
	tag, err := r.db.Exec(ctx, `
UPDATE quotations
SET client_id = $2, project_title = $3, estimate_date = $4, expiry_date = $5, start_date = $6, deadline = $7,
    subtotal = $8, discount_type = $9, discount_input = $10, discount = $11, tax = $12, total = $13,
    status = $14, updated_at = NOW()
WHERE id = $1`,
		q.ID, q.ClientID, q.ProjectTitle, q.EstimateDate.PG(), q.ExpiryDate.PG(), q.StartDate.PG(), q.Deadline.PG(),
		q.Subtotal, string(q.DiscountType), q.DiscountInput, q.Discount, q.Tax, q.Total, string(q.Status))
	if err != nil {
		if db.IsCode(err, db.CodeForeignKeyViolation) {
			return fmt.Errorf("%w: client %d", shared.ErrNotFound, q.ClientID)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, q.ID)
	}
	return nil
}

func (r *repository) ReplaceItems(ctx context.Context, quotationID int64, items []Item) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID); err != nil {
		return fmt.Errorf("clear quotation items: %w", err)
	}
	for _, it := range items {
		_, err := r.db.Exec(ctx, `
INSERT INTO quotation_items (quotation_id, item_id, description, qty, price, tax_id, tax_rate, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			quotationID, it.ItemID, it.Description, it.Qty, it.Price, it.TaxID, it.TaxRate, it.Total)
		if err != nil {
			if db.IsCode(err, db.CodeForeignKeyViolation) {
				return fmt.Errorf("%w: item or tax reference", shared.ErrNotFound)
			}
			return fmt.Errorf("insert quotation item: %w", err)
		}
	}
	return nil
}

func (r *repository) ReplaceTerms(ctx context.Context, quotationID int64, terms []Term) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_terms WHERE quotation_id = $1`, quotationID); err != nil {
		return fmt.Errorf("clear quotation terms: %w", err)
	}
	for _, t := range terms {
		_, err := r.db.Exec(ctx, `
INSERT INTO quotation_terms (quotation_id, term_number, nominal, term_percentage, term_estimate)
VALUES ($1, $2, $3, $4, $5)`,
			quotationID, t.TermNumber, t.Nominal, t.TermPercentage, t.TermEstimate.PG())
		if err != nil {
			return fmt.Errorf("insert quotation term: %w", err)
		}
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotations SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists)
	return exists, err
}

func (r *repository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.Record(ctx, r.db, log)
}

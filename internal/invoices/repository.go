package invoices

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
	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Repository is the persistence port of the invoice workflow and the
// quotation conversion pipeline.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	InsertItems(ctx context.Context, invoiceID int64, items []Item) error
	InsertTerms(ctx context.Context, invoiceID int64, terms []Term) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Publish(ctx context.Context, id int64, issueDate shared.Date, dueDate *shared.Date, status Status) error
	MarkTermPaid(ctx context.Context, invoiceID int64, termNumber int, paidOn shared.Date) error
	Delete(ctx context.Context, id int64) error
	ListReevaluable(ctx context.Context) ([]int64, error)
	LockQuotation(ctx context.Context, quotationID int64) (*quotations.Quotation, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
	ClaimIdempotencyKey(ctx context.Context, key, module string) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// InvoiceNumberFormat renders the allocated sequence value.
const InvoiceNumberFormat = "INV-%05d"

const invoiceSequence = "invoice"

type repository struct {
	db          db.DBTX
	pool        *pgxpool.Pool
	audit       *shared.AuditLogger
	idempotency *shared.IdempotencyStore
}

// NewRepository builds a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{
		db:          pool,
		pool:        pool,
		audit:       shared.NewAuditLogger(),
		idempotency: shared.NewIdempotencyStore(),
	}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, audit: r.audit, idempotency: r.idempotency})
	})
}

const selectHeader = `
SELECT i.id, i.invoice_number, i.quotation_id, i.client_id, c.company_name,
       COALESCE(q.project_title, ''), i.issue_date, i.due_date,
       i.subtotal, i.discount, i.tax, i.total, i.status, i.created_at, i.updated_at
FROM invoices i
JOIN clients c ON c.id = i.client_id
LEFT JOIN quotations q ON q.id = i.quotation_id`

func scanHeader(row pgx.Row) (*Invoice, error) {
	var (
		inv        Invoice
		issue, due pgtype.Date
		status     string
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.QuotationID, &inv.ClientID, &inv.CompanyName,
		&inv.ProjectTitle, &issue, &due,
		&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.IssueDate = shared.DateFromPG(issue)
	inv.DueDate = shared.DateFromPG(due)
	inv.Status = Status(status)
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanHeader(r.db.QueryRow(ctx, selectHeader+` WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	if inv.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if inv.Terms, err = r.terms(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetForUpdate locks the invoice row for the rest of the transaction.
func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *repository) items(ctx context.Context, invoiceID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
SELECT ii.id, ii.invoice_id, ii.item_id, COALESCE(it.item_name, ''), ii.description,
       ii.qty, ii.price, ii.tax_id, ii.tax_rate, ii.total
FROM invoice_items ii
LEFT JOIN items it ON it.id = ii.item_id
WHERE ii.invoice_id = $1
ORDER BY ii.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemID, &it.ItemName, &it.Description,
			&it.Qty, &it.Price, &it.TaxID, &it.TaxRate, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) terms(ctx context.Context, invoiceID int64) ([]Term, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, invoice_id, term_number, nominal, term_percentage, term_estimate, term_status, payment_date
FROM invoice_terms
WHERE invoice_id = $1
ORDER BY term_number`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make([]Term, 0)
	for rows.Next() {
		var (
			t                Term
			pct              decimal.NullDecimal
			estimate, paidOn pgtype.Date
			status           string
		)
		if err := rows.Scan(&t.ID, &t.InvoiceID, &t.TermNumber, &t.Nominal, &pct, &estimate, &status, &paidOn); err != nil {
			return nil, err
		}
		if pct.Valid {
			t.TermPercentage = &pct.Decimal
		}
		t.TermEstimate = shared.DateFromPG(estimate)
		t.TermStatus = TermStatus(status)
		t.PaymentDate = shared.DateFromPG(paidOn)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, "i.client_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, "i.status = $"+strconv.Itoa(len(args)))
	}
	if filter.ExcludeDraft {
		where = append(where, "i.status <> 'Draft'")
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectHeader + clause + ` ORDER BY i.created_at DESC, i.id DESC`
	if filter.Page.PerPage > 0 {
		args = append(args, filter.Page.PerPage, filter.Page.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	// Terms drive the per-term payment view of listings.
	for i := range out {
		if out[i].Terms, err = r.terms(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO invoices (invoice_number, quotation_id, client_id, issue_date, due_date,
                      subtotal, discount, tax, total, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`,
		inv.InvoiceNumber, inv.QuotationID, inv.ClientID, inv.IssueDate.PG(), inv.DueDate.PG(),
		inv.Subtotal, inv.Discount, inv.Tax, inv.Total, string(inv.Status)).Scan(&id)
	if err != nil {
		if db.IsCode(err, db.CodeUniqueViolation) {
			return 0, fmt.Errorf("%w: invoice already exists for quotation or number %s", shared.ErrConflict, inv.InvoiceNumber)
		}
		if db.IsCode(err, db.CodeForeignKeyViolation) {
			return 0, fmt.Errorf("%w: client %d", shared.ErrNotFound, inv.ClientID)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) InsertItems(ctx context.Context, invoiceID int64, items []Item) error {
	for _, it := range items {
		_, err := r.db.Exec(ctx, `
INSERT INTO invoice_items (invoice_id, item_id, description, qty, price, tax_id, tax_rate, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			invoiceID, it.ItemID, it.Description, it.Qty, it.Price, it.TaxID, it.TaxRate, it.Total)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *repository) InsertTerms(ctx context.Context, invoiceID int64, terms []Term) error {
	for _, t := range terms {
		status := t.TermStatus
		if status == "" {
			status = TermUnpaid
		}
		_, err := r.db.Exec(ctx, `
INSERT INTO invoice_terms (invoice_id, term_number, nominal, term_percentage, term_estimate, term_status, payment_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			invoiceID, t.TermNumber, t.Nominal, t.TermPercentage, t.TermEstimate.PG(), string(status), t.PaymentDate.PG())
		if err != nil {
			return fmt.Errorf("insert invoice term: %w", err)
		}
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Publish(ctx context.Context, id int64, issueDate shared.Date, dueDate *shared.Date, status Status) error {
	tag, err := r.db.Exec(ctx, `
UPDATE invoices SET issue_date = $2, due_date = $3, status = $4, updated_at = NOW()
WHERE id = $1`, id, issueDate.PG(), dueDate.PG(), string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) MarkTermPaid(ctx context.Context, invoiceID int64, termNumber int, paidOn shared.Date) error {
	tag, err := r.db.Exec(ctx, `
UPDATE invoice_terms SET term_status = 'paid', payment_date = $3
WHERE invoice_id = $1 AND term_number = $2 AND term_status = 'unpaid'`,
		invoiceID, termNumber, paidOn.PG())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: term %d of invoice %d is not payable", shared.ErrInvalidStatus, termNumber, invoiceID)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) ListReevaluable(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
SELECT id FROM invoices
WHERE status IN ('Issued', 'Partially Paid', 'Overdue')
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LockQuotation locks the source quotation and loads the content copied into
// the invoice. InvoiceID is set when the quotation was already converted.
func (r *repository) LockQuotation(ctx context.Context, quotationID int64) (*quotations.Quotation, error) {
	var (
		q            quotations.Quotation
		discountType string
		status       string
	)
	err := r.db.QueryRow(ctx, `
SELECT id, client_id, project_title, subtotal, discount_type, discount_input, discount, tax, total, status
FROM quotations WHERE id = $1 FOR UPDATE`, quotationID).Scan(
		&q.ID, &q.ClientID, &q.ProjectTitle, &q.Subtotal, &discountType, &q.DiscountInput,
		&q.Discount, &q.Tax, &q.Total, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, quotationID)
		}
		return nil, err
	}
	q.DiscountType = pricing.DiscountKind(discountType)
	q.Status = quotations.Status(status)

	var invoiceID int64
	err = r.db.QueryRow(ctx, `SELECT id FROM invoices WHERE quotation_id = $1`, quotationID).Scan(&invoiceID)
	switch {
	case err == nil:
		q.InvoiceID = &invoiceID
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	if q.Items, err = r.quotationItems(ctx, quotationID); err != nil {
		return nil, err
	}
	if q.Terms, err = r.quotationTerms(ctx, quotationID); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) quotationItems(ctx context.Context, quotationID int64) ([]quotations.Item, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, quotation_id, item_id, description, qty, price, tax_id, tax_rate, total
FROM quotation_items WHERE quotation_id = $1 ORDER BY id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]quotations.Item, 0)
	for rows.Next() {
		var it quotations.Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ItemID, &it.Description,
			&it.Qty, &it.Price, &it.TaxID, &it.TaxRate, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) quotationTerms(ctx context.Context, quotationID int64) ([]quotations.Term, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, quotation_id, term_number, nominal, term_percentage, term_estimate
FROM quotation_terms WHERE quotation_id = $1 ORDER BY term_number`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make([]quotations.Term, 0)
	for rows.Next() {
		var (
			t        quotations.Term
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

// NextInvoiceNumber allocates the next number atomically. The row lock taken
// by the upsert serialises concurrent conversions until commit.
func (r *repository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
INSERT INTO document_sequences (doc_type, seq) VALUES ($1, 1)
ON CONFLICT (doc_type) DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, invoiceSequence).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number: %w", err)
	}
	return fmt.Sprintf(InvoiceNumberFormat, seq), nil
}

func (r *repository) ClaimIdempotencyKey(ctx context.Context, key, module string) error {
	return r.idempotency.CheckAndInsert(ctx, r.db, key, module)
}

func (r *repository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.Record(ctx, r.db, log)
}

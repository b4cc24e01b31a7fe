package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/invoices"
	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// NotificationLimit caps the approved-quotation feed.
const NotificationLimit = 3

// Summary is the admin landing page payload.
type Summary struct {
	QuotationCounts map[string]int      `json:"quotation_counts"`
	InvoiceCounts   map[string]int      `json:"invoice_counts"`
	Notifications   []ApprovedQuotation `json:"notifications"`
	OverdueInvoices []OverdueInvoice    `json:"overdue_invoices"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// ApprovedQuotation is a recently approved quotation awaiting conversion
// or already converted.
type ApprovedQuotation struct {
	ID           int64           `json:"id"`
	ClientID     int64           `json:"client_id"`
	CompanyName  string          `json:"company_name"`
	ProjectTitle string          `json:"project_title"`
	Total        decimal.Decimal `json:"total"`
	InvoiceID    *int64          `json:"invoice_id,omitempty"`
	ApprovedAt   time.Time       `json:"approved_at"`
}

// OverdueInvoice carries the outstanding balance of an Overdue invoice.
type OverdueInvoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      int64           `json:"client_id"`
	CompanyName   string          `json:"company_name"`
	DueDate       *shared.Date    `json:"due_date"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

var (
	quotationStatuses = []quotations.Status{
		quotations.StatusDraft,
		quotations.StatusSent,
		quotations.StatusRevised,
		quotations.StatusApproved,
		quotations.StatusRejected,
	}
	invoiceStatuses = []invoices.Status{
		invoices.StatusDraft,
		invoices.StatusIssued,
		invoices.StatusPartiallyPaid,
		invoices.StatusPaid,
		invoices.StatusOverdue,
	}
)

package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/shared"
)

// Invoice is a payable document derived from one approved quotation.
type Invoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	QuotationID   *int64          `json:"quotation_id"`
	ClientID      int64           `json:"client_id"`
	CompanyName   string          `json:"company_name,omitempty"`
	ProjectTitle  string          `json:"project_title,omitempty"`
	IssueDate     *shared.Date    `json:"issue_date"`
	DueDate       *shared.Date    `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []Item          `json:"items"`
	Terms         []Term          `json:"terms"`
}

// Term returns the installment with the given number.
func (inv *Invoice) Term(number int) (*Term, bool) {
	for i := range inv.Terms {
		if inv.Terms[i].TermNumber == number {
			return &inv.Terms[i], true
		}
	}
	return nil, false
}

// Outstanding is the unpaid part of the total.
func (inv *Invoice) Outstanding() decimal.Decimal {
	return inv.Total.Sub(Summarize(inv.Terms, shared.Date{}).PaidAmount)
}

// Item is a line copied by value from the source quotation.
type Item struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	ItemID      *int64          `json:"item_id"`
	ItemName    string          `json:"item_name,omitempty"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	TaxID       *int64          `json:"tax_id"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Total       decimal.Decimal `json:"total"`
}

// Term is one payable installment.
type Term struct {
	ID             int64            `json:"id"`
	InvoiceID      int64            `json:"invoice_id"`
	TermNumber     int              `json:"term_number"`
	Nominal        decimal.Decimal  `json:"nominal"`
	TermPercentage *decimal.Decimal `json:"term_percentage"`
	TermEstimate   *shared.Date     `json:"term_estimate"`
	TermStatus     TermStatus       `json:"term_status"`
	PaymentDate    *shared.Date     `json:"payment_date"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	ClientID     *int64
	Status       *Status
	ExcludeDraft bool
	Page         shared.PageRequest
}

// PayTermRequest is the body of a term payment.
type PayTermRequest struct {
	TermNumber int             `json:"term_number" validate:"required,gt=0"`
	Nominal    decimal.Decimal `json:"nominal"`
}

// PaymentResult reports the outcome of a term payment.
type PaymentResult struct {
	Message        string      `json:"message"`
	InvoiceID      int64       `json:"invoice_id"`
	TermNumber     int         `json:"term_number"`
	PaymentDate    shared.Date `json:"payment_date"`
	PreviousStatus Status      `json:"previous_status"`
	InvoiceStatus  Status      `json:"invoice_status"`
}

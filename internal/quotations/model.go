package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/pricing"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Quotation is a proposal to a client, priced by its items and paid
// according to its terms once converted.
type Quotation struct {
	ID            int64                `json:"id"`
	ClientID      int64                `json:"client_id"`
	CompanyName   string               `json:"company_name,omitempty"`
	ProjectTitle  string               `json:"project_title"`
	EstimateDate  *shared.Date         `json:"estimate_date"`
	ExpiryDate    *shared.Date         `json:"expiry_date"`
	StartDate     *shared.Date         `json:"start_date"`
	Deadline      *shared.Date         `json:"deadline"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	DiscountType  pricing.DiscountKind `json:"discount_type"`
	DiscountInput decimal.Decimal      `json:"discount_input"`
	Discount      decimal.Decimal      `json:"discount"`
	Tax           decimal.Decimal      `json:"tax"`
	Total         decimal.Decimal      `json:"total"`
	Status        Status               `json:"status"`
	InvoiceID     *int64               `json:"invoice_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Items         []Item               `json:"items"`
	Terms         []Term               `json:"terms"`
}

// Item is a priced line. Price and tax rate are snapshots taken when the
// line was written; catalogue changes never flow back into it.
type Item struct {
	ID          int64           `json:"id"`
	QuotationID int64           `json:"quotation_id"`
	ItemID      *int64          `json:"item_id"`
	ItemName    string          `json:"item_name,omitempty"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	TaxID       *int64          `json:"tax_id"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Total       decimal.Decimal `json:"total"`
}

// Term is one installment of the proposed payment schedule.
type Term struct {
	ID             int64            `json:"id"`
	QuotationID    int64            `json:"quotation_id"`
	TermNumber     int              `json:"term_number"`
	Nominal        decimal.Decimal  `json:"nominal"`
	TermPercentage *decimal.Decimal `json:"term_percentage"`
	TermEstimate   *shared.Date     `json:"term_estimate"`
}

// ListFilter narrows quotation listings.
type ListFilter struct {
	ClientID     *int64
	Status       *Status
	ExcludeDraft bool
	Page         shared.PageRequest
}

// Conversion describes the invoice produced from an approved quotation.
type Conversion struct {
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceStatus string `json:"invoice_status"`
}

package quotations

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/pricing"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Request is the body of both create and edit calls. Items and terms are
// replaced wholesale on every edit.
type Request struct {
	ClientID     int64                `json:"client_id" validate:"required,gt=0"`
	ProjectTitle string               `json:"project_title" validate:"required,max=255"`
	EstimateDate *shared.Date         `json:"estimate_date"`
	ExpiryDate   *shared.Date         `json:"expiry_date"`
	StartDate    *shared.Date         `json:"start_date"`
	Deadline     *shared.Date         `json:"deadline"`
	DiscountType pricing.DiscountKind `json:"discount_type" validate:"omitempty,oneof=percent fixed"`
	Discount     decimal.Decimal      `json:"discount"`
	Status       Status               `json:"status" validate:"omitempty,oneof=draft sent revised approved rejected"`
	Items        []ItemInput          `json:"items" validate:"required,min=1,dive"`
	Terms        []TermInput          `json:"terms" validate:"dive"`

	// Totals computed by the browser are accepted and ignored.
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ItemID      *int64           `json:"item_id" validate:"omitempty,gt=0"`
	Description string           `json:"description" validate:"max=1000"`
	Qty         decimal.Decimal  `json:"qty"`
	Price       decimal.Decimal  `json:"price"`
	TaxID       *int64           `json:"tax_id" validate:"omitempty,gt=0"`
	TaxRate     decimal.Decimal  `json:"tax_rate"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// TermInput is one requested installment. Nominal may be omitted when a
// percentage is given.
type TermInput struct {
	TermNumber     int              `json:"term_number" validate:"gt=0"`
	Nominal        decimal.Decimal  `json:"nominal"`
	TermPercentage *decimal.Decimal `json:"term_percentage"`
	TermEstimate   *shared.Date     `json:"term_estimate"`
}

// DecisionRequest carries an optional note for approve/reject calls.
type DecisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// priced is a request turned into persisted shapes.
type priced struct {
	header Quotation
	items  []Item
	terms  []Term
}

// price validates the request and derives every monetary field.
func price(req Request) (priced, error) {
	if err := checkDateOrder(req.EstimateDate, req.ExpiryDate, "expiry_date", "estimate_date"); err != nil {
		return priced{}, err
	}
	if err := checkDateOrder(req.StartDate, req.Deadline, "deadline", "start_date"); err != nil {
		return priced{}, err
	}

	lines := make([]pricing.Line, 0, len(req.Items))
	items := make([]Item, 0, len(req.Items))
	for _, in := range req.Items {
		line := pricing.Line{Quantity: in.Qty, UnitPrice: in.Price, TaxRate: in.TaxRate}
		lines = append(lines, line)
		items = append(items, Item{
			ItemID:      in.ItemID,
			Description: in.Description,
			Qty:         in.Qty,
			Price:       in.Price,
			TaxID:       in.TaxID,
			TaxRate:     in.TaxRate,
			Total:       pricing.LineTotal(line),
		})
	}

	kind := req.DiscountType
	if kind == "" {
		kind = pricing.DiscountPercent
	}
	totals, err := pricing.Compute(lines, pricing.Discount{Kind: kind, Value: req.Discount})
	if err != nil {
		return priced{}, err
	}

	schedule := make([]pricing.Term, 0, len(req.Terms))
	for _, in := range req.Terms {
		schedule = append(schedule, pricing.Term{
			Number:     in.TermNumber,
			Nominal:    in.Nominal,
			Percentage: in.TermPercentage,
			Estimate:   in.TermEstimate.OrNil(),
		})
	}
	schedule = pricing.FillNominals(schedule, totals.Total)
	if err := pricing.ValidateSchedule(schedule, totals.Total); err != nil {
		return priced{}, err
	}
	terms := make([]Term, 0, len(schedule))
	for _, t := range schedule {
		terms = append(terms, Term{
			TermNumber:     t.Number,
			Nominal:        t.Nominal,
			TermPercentage: t.Percentage,
			TermEstimate:   t.Estimate,
		})
	}

	return priced{
		header: Quotation{
			ClientID:      req.ClientID,
			ProjectTitle:  req.ProjectTitle,
			EstimateDate:  req.EstimateDate.OrNil(),
			ExpiryDate:    req.ExpiryDate.OrNil(),
			StartDate:     req.StartDate.OrNil(),
			Deadline:      req.Deadline.OrNil(),
			Subtotal:      totals.Subtotal,
			DiscountType:  kind,
			DiscountInput: req.Discount,
			Discount:      totals.DiscountValue,
			Tax:           totals.TaxTotal,
			Total:         totals.Total,
		},
		items: items,
		terms: terms,
	}, nil
}

func checkDateOrder(first, second *shared.Date, secondName, firstName string) error {
	if first.OrNil() == nil || second.OrNil() == nil {
		return nil
	}
	if second.Before(*first) {
		return fmt.Errorf("%w: %s must not be before %s", shared.ErrValidation, secondName, firstName)
	}
	return nil
}

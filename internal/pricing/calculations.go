// Package pricing derives document totals and validates payment schedules.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/shared"
)

// Scale is the number of decimal places money is rounded to.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// DiscountKind selects how Discount.Value is interpreted.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// Valid reports whether k is a known kind.
func (k DiscountKind) Valid() bool {
	return k == DiscountPercent || k == DiscountFixed
}

// Line is one priced entry of a quotation or invoice.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// Discount is applied once to the document subtotal.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// Totals is the monetary summary of a document.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxTotal      decimal.Decimal `json:"tax"`
	DiscountValue decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
}

// Round rounds half away from zero to Scale places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// FitsScale reports whether d carries at most Scale decimal places, the
// precision of every money, quantity and rate column.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(Round(d))
}

// Validate checks the line's inputs.
func (l Line) Validate() error {
	switch {
	case !FitsScale(l.Quantity), !FitsScale(l.UnitPrice), !FitsScale(l.TaxRate):
		return fmt.Errorf("%w: quantity, price and tax rate allow at most %d decimal places", shared.ErrValidation, Scale)
	case !l.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	case l.UnitPrice.IsNegative():
		return fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	case l.TaxRate.IsNegative() || l.TaxRate.GreaterThan(hundred):
		return fmt.Errorf("%w: tax rate must be between 0 and 100", shared.ErrValidation)
	}
	return nil
}

// LineAmounts returns the rounded net amount, tax and gross total of a line.
func LineAmounts(l Line) (net, tax, total decimal.Decimal) {
	gross := l.Quantity.Mul(l.UnitPrice)
	net = Round(gross)
	tax = Round(gross.Mul(l.TaxRate).Div(hundred))
	return net, tax, net.Add(tax)
}

// LineTotal is the per-line amount stored on item rows.
func LineTotal(l Line) decimal.Decimal {
	_, _, total := LineAmounts(l)
	return total
}

// Compute derives subtotal, tax, discount and total for a set of lines.
// Tax is computed per line on qty*price, before the discount.
func Compute(lines []Line, discount Discount) (Totals, error) {
	var totals Totals
	for i, l := range lines {
		if err := l.Validate(); err != nil {
			return Totals{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		net, tax, _ := LineAmounts(l)
		totals.Subtotal = totals.Subtotal.Add(net)
		totals.TaxTotal = totals.TaxTotal.Add(tax)
	}

	value, err := discountValue(totals.Subtotal, discount)
	if err != nil {
		return Totals{}, err
	}
	totals.DiscountValue = value
	totals.Total = totals.Subtotal.Sub(value).Add(totals.TaxTotal)
	return totals, nil
}

func discountValue(subtotal decimal.Decimal, d Discount) (decimal.Decimal, error) {
	kind := d.Kind
	if kind == "" {
		kind = DiscountPercent
	}
	if !kind.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %q", shared.ErrValidation, d.Kind)
	}
	if d.Value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: discount must not be negative", shared.ErrValidation)
	}
	if !FitsScale(d.Value) {
		return decimal.Zero, fmt.Errorf("%w: discount allows at most %d decimal places", shared.ErrValidation, Scale)
	}
	if kind == DiscountPercent {
		if d.Value.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("%w: discount percentage exceeds 100", shared.ErrValidation)
		}
		return Round(subtotal.Mul(d.Value).Div(hundred)), nil
	}
	value := d.Value
	if value.GreaterThan(subtotal) {
		return decimal.Zero, fmt.Errorf("%w: discount exceeds subtotal", shared.ErrValidation)
	}
	return value, nil
}

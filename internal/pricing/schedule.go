package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/shared"
)

// Term is one installment of a payment schedule.
type Term struct {
	Number     int
	Nominal    decimal.Decimal
	Percentage *decimal.Decimal
	Estimate   *shared.Date
}

// FillNominals derives the nominal of every term that only carries a
// percentage. When all terms are percentage based, the rounding remainder
// is folded into the last term so the schedule sums to total exactly.
func FillNominals(terms []Term, total decimal.Decimal) []Term {
	out := make([]Term, len(terms))
	copy(out, terms)

	derived := 0
	lastDerived := -1
	sum := decimal.Zero
	for i := range out {
		if out[i].Nominal.IsZero() && out[i].Percentage != nil {
			out[i].Nominal = Round(total.Mul(*out[i].Percentage).Div(hundred))
			derived++
			lastDerived = i
		}
		sum = sum.Add(out[i].Nominal)
	}
	if derived == len(out) && lastDerived >= 0 && !sum.Equal(total) {
		out[lastDerived].Nominal = out[lastDerived].Nominal.Add(total.Sub(sum))
	}
	return out
}

// ValidateSchedule checks term numbering and amounts. Nominals and
// percentages are checked as stored, so a non-empty schedule must sum
// exactly to total without any further rounding.
func ValidateSchedule(terms []Term, total decimal.Decimal) error {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(terms))
	sum := decimal.Zero
	for _, t := range terms {
		if t.Number <= 0 {
			return fmt.Errorf("%w: term number must be positive", shared.ErrValidation)
		}
		if _, dup := seen[t.Number]; dup {
			return fmt.Errorf("%w: duplicate term number %d", shared.ErrValidation, t.Number)
		}
		seen[t.Number] = struct{}{}
		if !FitsScale(t.Nominal) {
			return fmt.Errorf("%w: term %d nominal allows at most %d decimal places", shared.ErrValidation, t.Number, Scale)
		}
		if !t.Nominal.IsPositive() {
			return fmt.Errorf("%w: term %d nominal must be positive", shared.ErrValidation, t.Number)
		}
		if t.Percentage != nil && (!FitsScale(*t.Percentage) || !t.Percentage.IsPositive() || t.Percentage.GreaterThan(hundred)) {
			return fmt.Errorf("%w: term %d percentage must be within (0, 100]", shared.ErrValidation, t.Number)
		}
		sum = sum.Add(t.Nominal)
	}
	if !sum.Equal(total) {
		return fmt.Errorf("%w: terms sum to %s but document total is %s", shared.ErrValidation, sum.StringFixed(Scale), total.StringFixed(Scale))
	}
	return nil
}

// DueDate is the latest estimate of the schedule.
func DueDate(terms []Term) *shared.Date {
	dates := make([]*shared.Date, 0, len(terms))
	for _, t := range terms {
		dates = append(dates, t.Estimate)
	}
	return shared.MaxDate(dates...)
}

package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/pricing"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Status is the aggregate state of an invoice.
type Status string

const (
	StatusDraft         Status = "Draft"
	StatusIssued        Status = "Issued"
	StatusPartiallyPaid Status = "Partially Paid"
	StatusPaid          Status = "Paid"
	StatusOverdue       Status = "Overdue"
)

// TermStatus is the payment state of one installment. It only moves from
// unpaid to paid.
type TermStatus string

const (
	TermUnpaid TermStatus = "unpaid"
	TermPaid   TermStatus = "paid"
)

// ParseStatus validates a raw status value, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusDraft, StatusIssued, StatusPartiallyPaid, StatusPaid, StatusOverdue} {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown invoice status %q", shared.ErrValidation, raw)
}

// Summary aggregates the term collection of an invoice.
type Summary struct {
	TotalTerms   int             `json:"total_terms"`
	PaidTerms    int             `json:"paid_terms"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	OverdueTerms int             `json:"overdue_terms"`
}

// Summarize counts paid and overdue terms. A term is overdue when it is
// unpaid and its estimate lies strictly before today; terms without an
// estimate never are. A zero today disables overdue detection.
func Summarize(terms []Term, today shared.Date) Summary {
	s := Summary{TotalTerms: len(terms), PaidAmount: decimal.Zero}
	for _, t := range terms {
		if t.TermStatus == TermPaid {
			s.PaidTerms++
			s.PaidAmount = s.PaidAmount.Add(t.Nominal)
			continue
		}
		if !today.IsZero() && t.TermEstimate != nil && t.TermEstimate.Before(today) {
			s.OverdueTerms++
		}
	}
	return s
}

// Derive computes the status of a published invoice. Overdue wins over
// every other outcome, then full payment, then any payment.
func Derive(total decimal.Decimal, terms []Term, today shared.Date) Status {
	s := Summarize(terms, today)
	switch {
	case s.OverdueTerms > 0:
		return StatusOverdue
	case pricing.Round(s.PaidAmount).Equal(pricing.Round(total)):
		return StatusPaid
	case s.PaidTerms > 0:
		return StatusPartiallyPaid
	default:
		return StatusIssued
	}
}

// CanPublish guards Draft -> Issued.
func CanPublish(from Status) error {
	if from == StatusDraft {
		return nil
	}
	return fmt.Errorf("%w: only Draft invoices can be published, invoice is %s", shared.ErrInvalidStatus, from)
}

// CanDelete guards invoice removal.
func CanDelete(from Status) error {
	if from == StatusDraft {
		return nil
	}
	return fmt.Errorf("%w: only Draft invoices can be deleted, invoice is %s", shared.ErrInvalidStatus, from)
}

// CanPay guards term payment. Overdue invoices accept payment only when
// allowOverdue is set.
func CanPay(from Status, allowOverdue bool) error {
	switch from {
	case StatusIssued, StatusPartiallyPaid:
		return nil
	case StatusOverdue:
		if allowOverdue {
			return nil
		}
	}
	return fmt.Errorf("%w: invoice in status %s cannot accept payment", shared.ErrInvalidStatus, from)
}

// Reevaluable reports whether status derivation applies to the status.
// Draft invoices are never derived and Paid is terminal.
func Reevaluable(s Status) bool {
	return s == StatusIssued || s == StatusPartiallyPaid || s == StatusOverdue
}

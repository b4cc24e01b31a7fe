package invoices

import (
	"context"
	"fmt"

	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// ConvertFromQuotation materialises a Draft invoice from an approved
// quotation. Items and terms are copied by value, so later edits to either
// document never leak into the other.
func (s *Service) ConvertFromQuotation(ctx context.Context, quotationID int64, idempotencyKey string) (*quotations.Conversion, error) {
	var out quotations.Conversion
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.LockQuotation(ctx, quotationID)
		if err != nil {
			return err
		}
		if idempotencyKey != "" {
			if err := repo.ClaimIdempotencyKey(ctx, idempotencyKey, "quotation.convert"); err != nil {
				return err
			}
		}
		if err := quotations.CanConvert(q.Status); err != nil {
			return err
		}
		if len(q.Terms) == 0 {
			return fmt.Errorf("%w: quotation %d has no payment terms", shared.ErrValidation, quotationID)
		}
		if q.InvoiceID != nil {
			return fmt.Errorf("%w: quotation %d already converted to invoice %d", shared.ErrConflict, quotationID, *q.InvoiceID)
		}

		number, err := repo.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		items, terms := copyLines(q)
		qid := q.ID
		inv := Invoice{
			InvoiceNumber: number,
			QuotationID:   &qid,
			ClientID:      q.ClientID,
			DueDate:       dueDate(terms),
			Subtotal:      q.Subtotal,
			Discount:      q.Discount,
			Tax:           q.Tax,
			Total:         q.Total,
			Status:        StatusDraft,
		}
		id, err := repo.Create(ctx, inv)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := repo.InsertItems(ctx, id, items); err != nil {
			return err
		}
		if err := repo.InsertTerms(ctx, id, terms); err != nil {
			return err
		}
		out = quotations.Conversion{InvoiceID: id, InvoiceNumber: number, InvoiceStatus: string(StatusDraft)}
		return repo.RecordAudit(ctx, shared.NewAuditLog(ctx, "invoice.convert", "invoice", id, map[string]any{
			"quotation_id":   quotationID,
			"invoice_number": number,
		}))
	})
	if err != nil {
		s.metrics.Conversion("rejected")
		return nil, err
	}

	s.metrics.Conversion("converted")
	s.changed(ctx)
	return &out, nil
}

func copyLines(q *quotations.Quotation) ([]Item, []Term) {
	items := make([]Item, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, Item{
			ItemID:      cloneID(it.ItemID),
			ItemName:    it.ItemName,
			Description: it.Description,
			Qty:         it.Qty,
			Price:       it.Price,
			TaxID:       cloneID(it.TaxID),
			TaxRate:     it.TaxRate,
			Total:       it.Total,
		})
	}
	terms := make([]Term, 0, len(q.Terms))
	for _, t := range q.Terms {
		term := Term{
			TermNumber:   t.TermNumber,
			Nominal:      t.Nominal,
			TermEstimate: t.TermEstimate.OrNil(),
			TermStatus:   TermUnpaid,
		}
		if t.TermPercentage != nil {
			pct := *t.TermPercentage
			term.TermPercentage = &pct
		}
		terms = append(terms, term)
	}
	return items, terms
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

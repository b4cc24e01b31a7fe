package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/invoices"
	"github.com/track-invoice/track-invoice/internal/masterdata/clients"
	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// ClientResolver maps a portal login to its client.
type ClientResolver interface {
	ForUser(ctx context.Context, userID int64) (clients.Client, error)
}

// QuotationService is the slice of the quotation workflow the portal uses.
type QuotationService interface {
	Get(ctx context.Context, id int64) (*quotations.Quotation, error)
	List(ctx context.Context, filter quotations.ListFilter) ([]quotations.Quotation, int, error)
	Approve(ctx context.Context, id int64, note string) (*quotations.Quotation, error)
	Reject(ctx context.Context, id int64, note string) (*quotations.Quotation, error)
}

// InvoiceService is the slice of the invoice workflow the portal uses.
type InvoiceService interface {
	Get(ctx context.Context, id int64) (*invoices.Invoice, error)
	List(ctx context.Context, filter invoices.ListFilter) ([]invoices.Invoice, int, error)
	PayTerm(ctx context.Context, invoiceID int64, req invoices.PayTermRequest, idempotencyKey string) (*invoices.PaymentResult, error)
}

// dashboardPage bounds the documents shown on the client dashboard.
var dashboardPage = shared.PageRequest{Page: 1, PerPage: 100}

// Service scopes quotation and invoice access to the caller's client.
// Documents of other clients and drafts are reported as not found.
type Service struct {
	clients    ClientResolver
	quotations QuotationService
	invoices   InvoiceService
}

// NewService wires the portal.
func NewService(clients ClientResolver, quotations QuotationService, invoices InvoiceService) *Service {
	return &Service{clients: clients, quotations: quotations, invoices: invoices}
}

// Dashboard is the client landing page.
type Dashboard struct {
	Client          clients.Client         `json:"client"`
	Quotations      []quotations.Quotation `json:"quotations"`
	Invoices        []invoices.Invoice     `json:"invoices"`
	OverdueInvoices []OverdueInvoice       `json:"overdue_invoices"`
	Outstanding     decimal.Decimal        `json:"outstanding"`
}

// OverdueInvoice highlights an overdue invoice and what is left to pay.
type OverdueInvoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	DueDate       *shared.Date    `json:"due_date"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// Dashboard lists the caller's non-draft quotations and invoices.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	qs, _, err := s.quotations.List(ctx, quotations.ListFilter{ClientID: &client.ID, ExcludeDraft: true, Page: dashboardPage})
	if err != nil {
		return nil, err
	}
	invs, _, err := s.invoices.List(ctx, invoices.ListFilter{ClientID: &client.ID, ExcludeDraft: true, Page: dashboardPage})
	if err != nil {
		return nil, err
	}

	out := &Dashboard{
		Client:          client,
		Quotations:      qs,
		Invoices:        invs,
		OverdueInvoices: []OverdueInvoice{},
		Outstanding:     decimal.Zero,
	}
	for i := range invs {
		inv := &invs[i]
		left := inv.Outstanding()
		out.Outstanding = out.Outstanding.Add(left)
		if inv.Status == invoices.StatusOverdue {
			out.OverdueInvoices = append(out.OverdueInvoices, OverdueInvoice{
				ID:            inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				DueDate:       inv.DueDate,
				Outstanding:   left,
			})
		}
	}
	return out, nil
}

// Quotations lists the caller's non-draft quotations.
func (s *Service) Quotations(ctx context.Context, page shared.PageRequest) ([]quotations.Quotation, int, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.quotations.List(ctx, quotations.ListFilter{ClientID: &client.ID, ExcludeDraft: true, Page: page})
}

// Quotation returns one of the caller's quotations.
func (s *Service) Quotation(ctx context.Context, id int64) (*quotations.Quotation, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.quotations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.ClientID != client.ID || q.Status == quotations.StatusDraft {
		return nil, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	return q, nil
}

// Approve accepts one of the caller's quotations.
func (s *Service) Approve(ctx context.Context, id int64, note string) (*quotations.Quotation, error) {
	if _, err := s.Quotation(ctx, id); err != nil {
		return nil, err
	}
	return s.quotations.Approve(ctx, id, note)
}

// Reject declines one of the caller's quotations.
func (s *Service) Reject(ctx context.Context, id int64, note string) (*quotations.Quotation, error) {
	if _, err := s.Quotation(ctx, id); err != nil {
		return nil, err
	}
	return s.quotations.Reject(ctx, id, note)
}

// Invoices lists the caller's issued invoices.
func (s *Service) Invoices(ctx context.Context, page shared.PageRequest) ([]invoices.Invoice, int, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.invoices.List(ctx, invoices.ListFilter{ClientID: &client.ID, ExcludeDraft: true, Page: page})
}

// Invoice returns one of the caller's issued invoices.
func (s *Service) Invoice(ctx context.Context, id int64) (*invoices.Invoice, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.ClientID != client.ID || inv.Status == invoices.StatusDraft {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return inv, nil
}

// PayTerm records a payment against one of the caller's invoices.
func (s *Service) PayTerm(ctx context.Context, id int64, req invoices.PayTermRequest, idempotencyKey string) (*invoices.PaymentResult, error) {
	if _, err := s.Invoice(ctx, id); err != nil {
		return nil, err
	}
	return s.invoices.PayTerm(ctx, id, req, idempotencyKey)
}

func (s *Service) client(ctx context.Context) (clients.Client, error) {
	p := shared.PrincipalFromContext(ctx)
	if p == nil {
		return clients.Client{}, shared.ErrUnauthorized
	}
	if p.Role != shared.RoleClient {
		return clients.Client{}, fmt.Errorf("%w: portal is for client logins", shared.ErrForbidden)
	}
	c, err := s.clients.ForUser(ctx, p.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return clients.Client{}, fmt.Errorf("%w: login %d is not linked to a client", shared.ErrForbidden, p.UserID)
	}
	return c, err
}

package portal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/track-invoice/track-invoice/internal/invoices"
	"github.com/track-invoice/track-invoice/internal/platform/httpx"
	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Handler exposes the client portal.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: shared.NewValidator()}
}

// MountRoutes registers the portal endpoints, normally under /client.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/quotations", h.listQuotations)
	r.Get("/quotations/{id}", h.showQuotation)
	r.Put("/quotations/{id}/approve", h.approve)
	r.Put("/quotations/{id}/reject", h.reject)
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{id}", h.showInvoice)
	r.Post("/invoices/{id}/pay-term", h.payTerm)
}

type quotationList struct {
	Data       []quotations.Quotation `json:"data"`
	Pagination shared.Pagination      `json:"pagination"`
}

type invoiceList struct {
	Data       []invoices.Invoice `json:"data"`
	Pagination shared.Pagination  `json:"pagination"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, "client dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePageRequest(r)
	items, total, err := h.service.Quotations(r.Context(), page)
	if err != nil {
		h.fail(w, "client quotations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotationList{Data: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)})
}

func (h *Handler) showQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Quotation(r.Context(), id)
	if err != nil {
		h.fail(w, "client quotation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve", h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject", h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id int64, note string) (*quotations.Quotation, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req quotations.DecisionRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			httpx.RespondError(w, err)
			return
		}
		if err := shared.ValidateStruct(h.validator, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	q, err := fn(r.Context(), id, req.Note)
	if err != nil {
		h.fail(w, "client "+op+" quotation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePageRequest(r)
	items, total, err := h.service.Invoices(r.Context(), page)
	if err != nil {
		h.fail(w, "client invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceList{Data: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)})
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Invoice(r.Context(), id)
	if err != nil {
		h.fail(w, "client invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) payTerm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req invoices.PayTermRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.ValidateStruct(h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.PayTerm(r.Context(), id, req, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		h.fail(w, "client pay term", err)
		return
	}
	h.logger.Info("client paid term",
		slog.Int64("invoice_id", id),
		slog.Int("term_number", req.TermNumber),
		slog.Int64("user_id", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

package invoices

import "github.com/go-chi/chi/v5"

// MountRoutes registers the admin invoice endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/from-quotation/{id}", h.fromQuotation)
	r.Get("/{id}", h.show)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/publish", h.publish)
	r.Post("/{id}/pay-term", h.payTerm)
	r.Get("/{id}/export.xlsx", h.export)
}

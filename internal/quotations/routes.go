package quotations

import (
	"fmt"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/track-invoice/track-invoice/internal/shared"
)

// MountRoutes registers the admin quotation endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/send", h.send)
	r.Put("/{id}/publish", h.send)
	r.Put("/{id}/approve", h.approve)
	r.Put("/{id}/reject", h.reject)
	r.Post("/{id}/convert-to-invoice", h.convert)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, raw)
	}
	return id, nil
}

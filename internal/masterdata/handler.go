package masterdata

import (
	"github.com/go-chi/chi/v5"

	"github.com/track-invoice/track-invoice/internal/masterdata/clients"
	"github.com/track-invoice/track-invoice/internal/masterdata/items"
	"github.com/track-invoice/track-invoice/internal/masterdata/taxes"
)

// Handler groups the master data endpoints under one mount point.
type Handler struct {
	Clients *clients.Handler
	Items   *items.Handler
	Taxes   *taxes.Handler
}

// MountRoutes registers /clients, /items and /taxes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/clients", h.Clients.MountRoutes)
	r.Route("/items", h.Items.MountRoutes)
	r.Route("/taxes", h.Taxes.MountRoutes)
}

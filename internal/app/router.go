package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/track-invoice/track-invoice/internal/auth"
	"github.com/track-invoice/track-invoice/internal/dashboard"
	"github.com/track-invoice/track-invoice/internal/invoices"
	"github.com/track-invoice/track-invoice/internal/masterdata"
	"github.com/track-invoice/track-invoice/internal/observability"
	"github.com/track-invoice/track-invoice/internal/platform/httpx"
	"github.com/track-invoice/track-invoice/internal/portal"
	"github.com/track-invoice/track-invoice/internal/quotations"
	"github.com/track-invoice/track-invoice/internal/shared"
	"github.com/track-invoice/track-invoice/jobs"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(r *http.Request) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Sessions          *auth.SessionStore
	AuthHandler       *auth.Handler
	MasterDataHandler *masterdata.Handler
	QuotationHandler  *quotations.Handler
	InvoiceHandler    *invoices.Handler
	DashboardHandler  *dashboard.Handler
	PortalHandler     *portal.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
	HealthChecks      map[string]HealthChecker
}

// NewRouter constructs the chi.Router with track-invoice defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthz(params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(shared.RoleAdmin))
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
		if params.QuotationHandler != nil {
			r.Route("/quotations", params.QuotationHandler.MountRoutes)
		}
		if params.InvoiceHandler != nil {
			r.Route("/invoices", params.InvoiceHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.PortalHandler != nil {
		r.Route("/client", func(r chi.Router) {
			r.Use(auth.RequireRole(shared.RoleClient))
			params.PortalHandler.MountRoutes(r)
		})
	}

	return r
}

func healthz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.JSON(w, code, status)
	}
}

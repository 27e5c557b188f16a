package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-pos/meridian-pos/internal/audit"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/clients"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/roles"
	"github.com/meridian-pos/meridian-pos/internal/sales"
	"github.com/meridian-pos/meridian-pos/internal/stats"
	"github.com/meridian-pos/meridian-pos/internal/stock"
	"github.com/meridian-pos/meridian-pos/internal/users"
	"github.com/meridian-pos/meridian-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	CatalogHandler *catalog.Handler
	StockHandler   *stock.Handler
	SalesHandler   *sales.Handler
	PricingHandler *pricing.Handler
	ClientsHandler *clients.Handler
	UsersHandler   *users.Handler
	RolesHandler   *roles.Handler
	StatsHandler   *stats.Handler
	AuditHandler   *audit.Handler
	JobsHandler    *jobs.Handler
}

// NewRouter assembles the full HTTP surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.CatalogHandler.MountRoutes(r)
	params.PricingHandler.MountRoutes(r)
	params.StockHandler.MountRoutes(r)
	params.SalesHandler.MountRoutes(r)
	params.ClientsHandler.MountRoutes(r)
	params.UsersHandler.MountRoutes(r)
	params.RolesHandler.MountRoutes(r)
	params.StatsHandler.MountRoutes(r)
	params.AuditHandler.MountRoutes(r)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}

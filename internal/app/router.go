package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nivaas-labs/nivaas/internal/auth"
	"github.com/nivaas-labs/nivaas/internal/billing"
	"github.com/nivaas-labs/nivaas/internal/complaints"
	"github.com/nivaas-labs/nivaas/internal/meetings"
	"github.com/nivaas-labs/nivaas/internal/notices"
	"github.com/nivaas-labs/nivaas/internal/observability"
	"github.com/nivaas-labs/nivaas/internal/parking"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
	"github.com/nivaas-labs/nivaas/internal/users"
	"github.com/nivaas-labs/nivaas/internal/vendors"
	"github.com/nivaas-labs/nivaas/internal/visitors"
	"github.com/nivaas-labs/nivaas/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	RBACHandler       *rbac.Handler
	NoticesHandler    *notices.Handler
	ComplaintsHandler *complaints.Handler
	VisitorsHandler   *visitors.Handler
	BillingHandler    *billing.Handler
	MeetingsHandler   *meetings.Handler
	VendorsHandler    *vendors.Handler
	ParkingHandler    *parking.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
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
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		params.AuthHandler.MountRoutes(api)
		params.UsersHandler.MountRoutes(api)
		params.RBACHandler.MountRoutes(api)
		params.NoticesHandler.MountRoutes(api)
		params.ComplaintsHandler.MountRoutes(api)
		params.VisitorsHandler.MountRoutes(api)
		params.BillingHandler.MountRoutes(api)
		params.MeetingsHandler.MountRoutes(api)
		params.VendorsHandler.MountRoutes(api)
		params.ParkingHandler.MountRoutes(api)

		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

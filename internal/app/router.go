package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/peopledesk/peopledesk/internal/audit"
	"github.com/peopledesk/peopledesk/internal/auth"
	"github.com/peopledesk/peopledesk/internal/departments"
	"github.com/peopledesk/peopledesk/internal/employees"
	"github.com/peopledesk/peopledesk/internal/observability"
	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
	"github.com/peopledesk/peopledesk/internal/users"
	"github.com/peopledesk/peopledesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          rbac.Guard
	Metrics        *observability.Metrics
	Pool           *pgxpool.Pool
	Redis          redis.UniversalClient

	AuthHandler        *auth.Handler
	RolesHandler       *rbac.Handler
	EmployeesHandler   *employees.Handler
	DepartmentsHandler *departments.Handler
	UsersHandler       *users.Handler
	JobHandler         *jobs.Handler
	AuditHandler       *audit.Handler
}

// NewRouter constructs the chi.Router with PeopleDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				status["postgres"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if params.Redis != nil {
			if err := params.Redis.Ping(r.Context()).Err(); err != nil {
				status["redis"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httpx.JSON(w, code, status)
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Guard:          params.Guard,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
			r.Route("/permissions", params.RolesHandler.MountCatalog)
		}
		if params.EmployeesHandler != nil {
			r.Route("/employees", params.EmployeesHandler.MountRoutes)
		}
		if params.DepartmentsHandler != nil {
			r.Route("/departments", params.DepartmentsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	return r
}

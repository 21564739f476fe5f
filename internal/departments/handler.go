package departments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
	"github.com/peopledesk/peopledesk/internal/table"
)

// DepartmentService is the service surface consumed by Handler.
type DepartmentService interface {
	List(ctx context.Context, st table.State) (table.Page[Department], error)
	Create(ctx context.Context, in Input) (Department, error)
}

// Handler manages department endpoints.
type Handler struct {
	logger  *slog.Logger
	service DepartmentService
	guard   rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service DepartmentService, guard rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(shared.ResourceDepartments, rbac.ActionRead)).Get("/", h.list)
	r.With(h.guard.Require(shared.ResourceDepartments, rbac.ActionCreate)).Post("/", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), table.ParseState(r.URL.Query(), table.Defaults{PageSize: 50, SortBy: "name"}))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("list departments", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	d, err := h.service.Create(r.Context(), in)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("create department", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

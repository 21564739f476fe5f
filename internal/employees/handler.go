package employees

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
	"github.com/peopledesk/peopledesk/internal/table"
)

// EmployeeService is the service surface consumed by Handler.
type EmployeeService interface {
	List(ctx context.Context, st table.State) (table.Page[Employee], error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, in Input) (Employee, error)
	Update(ctx context.Context, id int64, in Input) (Employee, error)
	Delete(ctx context.Context, id int64) error
}

// Handler manages employee endpoints.
type Handler struct {
	logger  *slog.Logger
	service EmployeeService
	guard   rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service EmployeeService, guard rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

var listDefaults = table.Defaults{PageSize: 25, MaxPageSize: 100, SortBy: "name"}

// MountRoutes registers employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.ResourceEmployees, rbac.ActionRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.guard.Require(shared.ResourceEmployees, rbac.ActionCreate)).Post("/", h.create)
	r.With(h.guard.Require(shared.ResourceEmployees, rbac.ActionUpdate)).Put("/{id}", h.update)
	r.With(h.guard.Require(shared.ResourceEmployees, rbac.ActionDelete)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), table.ParseState(r.URL.Query(), listDefaults))
	if err != nil {
		h.fail(w, "list employees", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	emp, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get employee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, emp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	emp, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create employee", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, emp)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	emp, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update employee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, emp)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

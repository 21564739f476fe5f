package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/shared"
)

// RoleService is the role administration surface used by Handler.
type RoleService interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, actorID int64, in RoleInput) (Role, error)
	UpdateRole(ctx context.Context, actorID, id int64, in RoleInput) (Role, error)
	SetRolePermissions(ctx context.Context, actorID, roleID int64, perms []Permission) (Role, error)
	DeleteRole(ctx context.Context, actorID, id int64) error
}

// Handler exposes role administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service RoleService
	guard   Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service RoleService, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.ResourceRoles, ActionRead))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
	r.With(h.guard.Require(shared.ResourceRoles, ActionCreate)).Post("/", h.createRole)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.ResourceRoles, ActionUpdate))
		r.Put("/{id}", h.updateRole)
		r.Put("/{id}/permissions", h.setPermissions)
	})
	r.With(h.guard.Require(shared.ResourceRoles, ActionDelete)).Delete("/{id}", h.deleteRole)
}

// MountCatalog registers the permission catalogue route.
func (h *Handler) MountCatalog(r chi.Router) {
	r.With(h.guard.Require(shared.ResourceRoles, ActionRead)).Get("/catalog", h.catalog)
}

type catalogResponse struct {
	Resources []string `json:"resources"`
	Actions   []Action `json:"actions"`
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{Resources: shared.Resources(), Actions: AllActions()})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var in RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	role, err := h.service.CreateRole(r.Context(), actorID(r), in)
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	role, err := h.service.UpdateRole(r.Context(), actorID(r), id, in)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

type permissionsRequest struct {
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var body permissionsRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	role, err := h.service.SetRolePermissions(r.Context(), actorID(r), id, body.Permissions)
	if err != nil {
		h.fail(w, "set role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), actorID(r), id); err != nil {
		h.fail(w, "delete role", err)
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

func actorID(r *http.Request) int64 {
	if p := PrincipalFromContext(r.Context()); p != nil {
		return p.UserID
	}
	return 0
}

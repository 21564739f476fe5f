package users

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

// UserService is the service surface consumed by Handler.
type UserService interface {
	ListUsers(ctx context.Context, st table.State) (table.Page[User], error)
	AssignRole(ctx context.Context, actorID, userID, roleID int64) error
}

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service UserService
	guard   rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service UserService, guard rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(shared.ResourceUsers, rbac.ActionRead)).Get("/", h.listUsers)
	// Role assignment needs users:update and roles:read.
	r.With(
		h.guard.Require(shared.ResourceUsers, rbac.ActionUpdate),
		h.guard.Require(shared.ResourceRoles, rbac.ActionRead),
	).Put("/{id}/role", h.assignRole)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListUsers(r.Context(), table.ParseState(r.URL.Query(), table.Defaults{SortBy: "email"}))
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var body assignRoleRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	var actor int64
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		actor = p.UserID
	}
	if err := h.service.AssignRole(r.Context(), actor, userID, body.RoleID); err != nil {
		h.logger.Error("assign role failed", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/shared"
)

var (
	// ErrNotFound indicates that the requested role or assignment does not exist.
	ErrNotFound = fmt.Errorf("rbac: role %w", httpx.ErrNotFound)
	// ErrDuplicate indicates a role with the same name already exists.
	ErrDuplicate = fmt.Errorf("rbac: role %w", httpx.ErrDuplicate)
	// ErrInvalidRole indicates the role definition failed validation.
	ErrInvalidRole = fmt.Errorf("rbac: %w", httpx.ErrValidation)
)

// AuditRecorder persists audit entries for permission changes.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates role administration.
type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service. audit and logger may be nil.
func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// RoleInput carries the editable fields of a role.
type RoleInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	SuperAdmin  bool         `json:"super_admin"`
	Permissions []Permission `json:"permissions"`
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole validates and inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, in RoleInput) (Role, error) {
	role, err := roleFromInput(in)
	if err != nil {
		return Role{}, err
	}
	created, err := s.repo.CreateRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.create", created.ID, map[string]any{"name": created.Name, "permissions": created.Permissions})
	return created, nil
}

// UpdateRole updates name, description and the super admin flag.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, in RoleInput) (Role, error) {
	name, err := roleName(in.Name)
	if err != nil {
		return Role{}, err
	}
	updated, err := s.repo.UpdateRole(ctx, Role{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		SuperAdmin:  in.SuperAdmin,
	})
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.update", id, map[string]any{"name": updated.Name, "super_admin": updated.SuperAdmin})
	return updated, nil
}

// SetRolePermissions replaces the permission set of a role.
func (s *Service) SetRolePermissions(ctx context.Context, actorID, roleID int64, perms []Permission) (Role, error) {
	normalized, err := NormalizePermissions(perms)
	if err != nil {
		return Role{}, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}
	if err := s.repo.ReplacePermissions(ctx, roleID, normalized); err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.permissions", roleID, map[string]any{"permissions": normalized})
	return s.repo.GetRole(ctx, roleID)
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.delete", id, nil)
	return nil
}

// AssignRole assigns a role to the given user.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("%w: user and role required", ErrInvalidRole)
	}
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.assign", roleID, map[string]any{"user_id": userID})
	return nil
}

// RoleForUser returns the role held by a user. Users without an assignment get
// an empty role that grants nothing.
func (s *Service) RoleForUser(ctx context.Context, userID int64) (Role, error) {
	role, err := s.repo.RoleForUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Role{Name: "unassigned"}, nil
	}
	return role, err
}

func roleFromInput(in RoleInput) (Role, error) {
	name, err := roleName(in.Name)
	if err != nil {
		return Role{}, err
	}
	perms, err := NormalizePermissions(in.Permissions)
	if err != nil {
		return Role{}, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}
	return Role{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		SuperAdmin:  in.SuperAdmin,
		Permissions: perms,
	}, nil
}

func roleName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: role name required", ErrInvalidRole)
	}
	if utf8.RuneCountInString(name) > MaxRoleNameLength {
		return "", fmt.Errorf("%w: role name longer than %d characters", ErrInvalidRole, MaxRoleNameLength)
	}
	return name, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("rbac audit", slog.String("action", action), slog.Any("error", err))
	}
}

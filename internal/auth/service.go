package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
)

// RoleResolver returns the role currently assigned to a user.
type RoleResolver interface {
	RoleForUser(ctx context.Context, userID int64) (rbac.Role, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	roles RoleResolver
	now   func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleResolver) *Service {
	return &Service{repo: repo, roles: roles, now: time.Now}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Principal builds the session snapshot for an authenticated user, valid for ttl.
func (s *Service) Principal(ctx context.Context, user *User, ttl time.Duration) (rbac.Principal, error) {
	role, err := s.roles.RoleForUser(ctx, user.ID)
	if err != nil {
		return rbac.Principal{}, err
	}
	perms, err := rbac.NormalizePermissions(role.Permissions)
	if err != nil {
		return rbac.Principal{}, err
	}
	role.Permissions = perms
	now := s.now().UTC()
	return rbac.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

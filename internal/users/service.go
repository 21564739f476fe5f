package users

import (
	"context"

	"github.com/peopledesk/peopledesk/internal/table"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, st table.State) ([]User, int, error)
}

// RoleAssigner changes the role held by a user.
type RoleAssigner interface {
	AssignRole(ctx context.Context, actorID, userID, roleID int64) error
}

// Service handles user business logic.
type Service struct {
	repo  RepositoryPort
	roles RoleAssigner
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleAssigner) *Service {
	return &Service{repo: repo, roles: roles}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, st table.State) (table.Page[User], error) {
	return table.New[User](table.ServerSource[User]{Remote: s.repo.ListUsers}, st).OnRefresh(ctx)
}

// AssignRole gives userID the role roleID. The change applies from the
// user's next login; live sessions keep their snapshot.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	return s.roles.AssignRole(ctx, actorID, userID, roleID)
}

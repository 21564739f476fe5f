package employees

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/peopledesk/peopledesk/internal/table"
)

// RepositoryPort defines data access methods for employees.
type RepositoryPort interface {
	List(ctx context.Context, st table.State) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, in Input) (Employee, error)
	Update(ctx context.Context, id int64, in Input) (Employee, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles employee business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns one server-paged page of employees.
func (s *Service) List(ctx context.Context, st table.State) (table.Page[Employee], error) {
	src := table.ServerSource[Employee]{Remote: s.repo.List}
	return table.New[Employee](src, st).OnRefresh(ctx)
}

// Get returns a single employee.
func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new employee.
func (s *Service) Create(ctx context.Context, in Input) (Employee, error) {
	in, err := s.clean(in)
	if err != nil {
		return Employee{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update validates and overwrites an employee.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Employee, error) {
	in, err := s.clean(in)
	if err != nil {
		return Employee{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes an employee.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) clean(in Input) (Input, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Position = strings.TrimSpace(in.Position)
	if in.Status == "" {
		in.Status = StatusActive
	}
	if in.HiredAt.IsZero() {
		return Input{}, fmt.Errorf("%w: hired_at required", ErrInvalid)
	}
	if err := s.validate.Struct(in); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return in, nil
}

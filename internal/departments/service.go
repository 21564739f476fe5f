package departments

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/peopledesk/peopledesk/internal/table"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	ListAll(ctx context.Context) ([]Department, error)
	Create(ctx context.Context, in Input) (Department, error)
}

// Service handles department business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

var columns = map[string]table.Column[Department]{
	"code": {Value: func(d Department) string { return d.Code }},
	"name": {Value: func(d Department) string { return d.Name }},
	"headcount": {
		Value: func(d Department) string { return strconv.Itoa(d.Headcount) },
		Less:  func(a, b Department) bool { return a.Headcount < b.Headcount },
	},
}

// List loads the whole catalogue and pages it in memory.
func (s *Service) List(ctx context.Context, st table.State) (table.Page[Department], error) {
	src := table.ClientSource[Department]{Load: s.repo.ListAll, Columns: columns}
	return table.New[Department](src, st).OnRefresh(ctx)
}

// Create validates and stores a department.
func (s *Service) Create(ctx context.Context, in Input) (Department, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Department{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s.repo.Create(ctx, in)
}

package departments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopledesk/peopledesk/internal/table"
)

type stubRepo struct {
	rows    []Department
	created Input
	loads   int
}

func (s *stubRepo) ListAll(ctx context.Context) ([]Department, error) {
	s.loads++
	return s.rows, nil
}

func (s *stubRepo) Create(ctx context.Context, in Input) (Department, error) {
	s.created = in
	return Department{ID: 9, Code: in.Code, Name: in.Name}, nil
}

func catalogue() []Department {
	return []Department{
		{ID: 1, Code: "FIN", Name: "Finance", Headcount: 12},
		{ID: 2, Code: "ENG", Name: "Engineering", Headcount: 40},
		{ID: 3, Code: "HR", Name: "Human Resources", Headcount: 5},
		{ID: 4, Code: "OPS", Name: "Operations", Headcount: 40},
	}
}

func codes(rows []Department) []string {
	out := make([]string, len(rows))
	for i, d := range rows {
		out[i] = d.Code
	}
	return out
}

func TestListPagesInMemory(t *testing.T) {
	repo := &stubRepo{rows: catalogue()}
	svc := NewService(repo)

	page, err := svc.List(context.Background(), table.State{Page: 1, PageSize: 2, SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ENG", "FIN"}, codes(page.Rows))
	assert.Equal(t, table.Pagination{Page: 1, PerPage: 2, Total: 4, TotalPages: 2}, page.Pagination)
	assert.Equal(t, 1, repo.loads)
}

func TestListSortsHeadcountNumerically(t *testing.T) {
	svc := NewService(&stubRepo{rows: catalogue()})
	page, err := svc.List(context.Background(), table.State{Page: 1, PageSize: 10, SortBy: "headcount", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ENG", "OPS", "FIN", "HR"}, codes(page.Rows))
}

func TestListFilters(t *testing.T) {
	svc := NewService(&stubRepo{rows: catalogue()})
	page, err := svc.List(context.Background(), table.State{Page: 1, PageSize: 10, Filters: map[string]string{"name": "res"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"HR"}, codes(page.Rows))
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestCreateValidates(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	dept, err := svc.Create(context.Background(), Input{Code: " qa ", Name: " Quality "})
	require.NoError(t, err)
	assert.Equal(t, "QA", dept.Code)
	assert.Equal(t, "Quality", repo.created.Name)

	_, err = svc.Create(context.Background(), Input{Code: "Q-A", Name: "Quality"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Create(context.Background(), Input{Code: "QA"})
	assert.ErrorIs(t, err, ErrInvalid)
}

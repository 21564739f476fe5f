package table

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Source produces the rows for a given state.
type Source[T any] interface {
	Fetch(ctx context.Context, st State) (Page[T], error)
}

// Column describes how a client-side list reads one field of a row.
type Column[T any] struct {
	// Value renders the field for filtering and, when Less is nil, sorting.
	Value func(T) string
	// Less optionally overrides string ordering, e.g. for numbers or dates.
	Less func(a, b T) bool
}

// ClientSource filters, sorts and pages a fully materialized slice locally.
// Filters and sorts on columns it does not know are ignored.
type ClientSource[T any] struct {
	Load    func(ctx context.Context) ([]T, error)
	Columns map[string]Column[T]
}

// StaticRows returns a loader that always yields rows.
func StaticRows[T any](rows []T) func(context.Context) ([]T, error) {
	return func(context.Context) ([]T, error) { return rows, nil }
}

// Fetch implements Source.
func (c ClientSource[T]) Fetch(ctx context.Context, st State) (Page[T], error) {
	if c.Load == nil {
		return Page[T]{}, errors.New("table: client source has no loader")
	}
	all, err := c.Load(ctx)
	if err != nil {
		return Page[T]{}, err
	}

	folder := cases.Fold()
	filtered := make([]T, 0, len(all))
	for _, row := range all {
		if c.matches(folder, row, st.Filters) {
			filtered = append(filtered, row)
		}
	}

	if col, ok := c.Columns[st.SortBy]; ok && st.SortBy != "" {
		less := col.Less
		if less == nil {
			less = func(a, b T) bool {
				return folder.String(col.Value(a)) < folder.String(col.Value(b))
			}
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			if st.SortDesc {
				return less(filtered[j], filtered[i])
			}
			return less(filtered[i], filtered[j])
		})
	}

	pg := NewPagination(st.Page, st.PageSize, len(filtered))
	st.Page, st.PageSize = pg.Page, pg.PerPage
	start := st.Offset()
	rows := []T{}
	if start >= 0 && start < len(filtered) {
		end := start + st.PageSize
		if end > len(filtered) || end < start {
			end = len(filtered)
		}
		rows = filtered[start:end]
	}
	return Page[T]{Rows: rows, Pagination: pg, State: st}, nil
}

func (c ClientSource[T]) matches(folder cases.Caser, row T, filters map[string]string) bool {
	for field, want := range filters {
		col, ok := c.Columns[field]
		if !ok || col.Value == nil {
			continue
		}
		if !strings.Contains(folder.String(col.Value(row)), folder.String(want)) {
			return false
		}
	}
	return true
}

// RemoteFunc fetches one page from a remote store and reports the total
// number of rows matching the state's filters.
type RemoteFunc[T any] func(ctx context.Context, st State) (rows []T, total int, err error)

// ServerSource defers filtering, sorting and counting to a remote store and
// only wraps the page it returns.
type ServerSource[T any] struct {
	Remote RemoteFunc[T]
}

// Fetch implements Source.
func (s ServerSource[T]) Fetch(ctx context.Context, st State) (Page[T], error) {
	if s.Remote == nil {
		return Page[T]{}, errors.New("table: server source has no remote")
	}
	pg := NewPagination(st.Page, st.PageSize, 0)
	st.Page, st.PageSize = pg.Page, pg.PerPage
	rows, total, err := s.Remote(ctx, st)
	if err != nil {
		return Page[T]{}, err
	}
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Rows: rows, Pagination: NewPagination(st.Page, st.PageSize, total), State: st}, nil
}

// Table holds the state of one list view over a Source. It is not safe for
// concurrent use.
type Table[T any] struct {
	source Source[T]
	state  State
}

// New returns a Table starting at the given state.
func New[T any](source Source[T], initial State) *Table[T] {
	return &Table[T]{source: source, state: initial}
}

// GetTableState returns the current state.
func (t *Table[T]) GetTableState() State {
	return t.state
}

// SetState replaces the current state. The next OnRefresh uses it.
func (t *Table[T]) SetState(st State) {
	t.state = st
}

// OnRefresh fetches the page for the current state from the source.
func (t *Table[T]) OnRefresh(ctx context.Context) (Page[T], error) {
	page, err := t.source.Fetch(ctx, t.state)
	if err != nil {
		return Page[T]{}, err
	}
	t.state = page.State
	return page, nil
}

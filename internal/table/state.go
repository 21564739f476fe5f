// Package table implements the paging, sorting and filtering contract shared
// by every list endpoint. A list is backed either by a fully materialized
// in-memory slice (ClientSource) or by a remote query that pages itself
// (ServerSource).
package table

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// State is the current page/sort/filter combination of a list.
type State struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	SortBy   string            `json:"sort_by,omitempty"`
	SortDesc bool              `json:"sort_desc,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// Defaults bounds what ParseState accepts.
type Defaults struct {
	PageSize    int
	MaxPageSize int
	SortBy      string
	SortDesc    bool
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
	// maxOffset bounds the row offset any state can address.
	maxOffset = math.MaxInt32
)

// ParseState reads page, page_size, sort ("name" or "-name") and
// filter[field]=value from query values. Out-of-range numbers are clamped.
func ParseState(q url.Values, d Defaults) State {
	if d.PageSize <= 0 {
		d.PageSize = defaultPageSize
	}
	if d.MaxPageSize <= 0 {
		d.MaxPageSize = maxPageSize
	}
	st := State{Page: 1, PageSize: d.PageSize, SortBy: d.SortBy, SortDesc: d.SortDesc}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		st.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		st.PageSize = v
	}
	if st.PageSize > d.MaxPageSize {
		st.PageSize = d.MaxPageSize
	}
	if last := maxOffset/st.PageSize + 1; st.Page > last {
		st.Page = last
	}
	if s := strings.TrimSpace(q.Get("sort")); s != "" {
		st.SortDesc = strings.HasPrefix(s, "-")
		st.SortBy = strings.TrimPrefix(s, "-")
	}
	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		field := strings.TrimSuffix(strings.TrimPrefix(key, "filter["), "]")
		value := strings.TrimSpace(values[0])
		if field == "" || value == "" {
			continue
		}
		if st.Filters == nil {
			st.Filters = make(map[string]string)
		}
		st.Filters[field] = value
	}
	return st
}

// Offset returns the zero-based index of the first row on the page,
// saturating at maxOffset.
func (s State) Offset() int {
	if s.Page <= 1 || s.PageSize <= 0 {
		return 0
	}
	if s.Page-1 > maxOffset/s.PageSize {
		return maxOffset
	}
	return (s.Page - 1) * s.PageSize
}

// Query renders the state back into query values.
func (s State) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(s.Page))
	q.Set("page_size", strconv.Itoa(s.PageSize))
	if s.SortBy != "" {
		if s.SortDesc {
			q.Set("sort", "-"+s.SortBy)
		} else {
			q.Set("sort", s.SortBy)
		}
	}
	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set("filter["+k+"]", s.Filters[k])
	}
	return q
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Page is one rendered page of rows together with its metadata.
type Page[T any] struct {
	Rows       []T        `json:"rows"`
	Pagination Pagination `json:"pagination"`
	State      State      `json:"state"`
}

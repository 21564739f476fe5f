package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/table"
)

// ErrInvalidWindow is returned when a requested time window is unusable.
var ErrInvalidWindow = fmt.Errorf("audit: %w", httpx.ErrValidation)

// exportLimit caps a single CSV export.
const exportLimit = 5000

// RepositoryPort defines data access for the timeline.
type RepositoryPort interface {
	List(ctx context.Context, w Window, st table.State) ([]Entry, int, error)
	Export(ctx context.Context, w Window, st table.State, limit int) ([]Entry, error)
}

// Service serves the audit timeline.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Timeline returns one server-paged page of entries inside w.
func (s *Service) Timeline(ctx context.Context, w Window, st table.State) (table.Page[Entry], error) {
	w, err := s.normalize(w)
	if err != nil {
		return table.Page[Entry]{}, err
	}
	src := table.ServerSource[Entry]{Remote: func(ctx context.Context, st table.State) ([]Entry, int, error) {
		return s.repo.List(ctx, w, st)
	}}
	return table.New[Entry](src, st).OnRefresh(ctx)
}

// Export returns up to exportLimit entries inside w in timeline order.
func (s *Service) Export(ctx context.Context, w Window, st table.State) ([]Entry, error) {
	w, err := s.normalize(w)
	if err != nil {
		return nil, err
	}
	return s.repo.Export(ctx, w, st, exportLimit)
}

// normalize fills a missing end with now and a missing start with the
// default window before the end.
func (s *Service) normalize(w Window) (Window, error) {
	if w.To.IsZero() {
		w.To = s.now()
	}
	if w.From.IsZero() {
		w.From = w.To.Add(-defaultWindow)
	}
	if w.From.After(w.To) {
		return Window{}, fmt.Errorf("%w: from is after to", ErrInvalidWindow)
	}
	if w.To.Sub(w.From) > maxWindow {
		return Window{}, fmt.Errorf("%w: window exceeds %d days", ErrInvalidWindow, int(maxWindow.Hours()/24))
	}
	return Window{From: w.From.UTC(), To: w.To.UTC()}, nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopledesk/peopledesk/internal/observability"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
)

type stubPurger struct {
	cutoff  time.Time
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.removed, s.err
}

func TestSessionsPurgeAppliesGrace(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	purger := &stubPurger{removed: 3}
	job := NewSessionsPurgeJob(purger, nil, observability.NewMetrics())
	job.clock = func() time.Time { return now }

	task, err := NewSessionsPurgeTask(SessionsPurgePayload{GraceMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, TaskSessionsPurgeExpired, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, now.Add(-30*time.Minute), purger.cutoff)
}

func TestSessionsPurgeEmptyPayload(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	purger := &stubPurger{}
	job := NewSessionsPurgeJob(purger, nil, nil)
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskSessionsPurgeExpired, nil)))
	assert.Equal(t, now, purger.cutoff)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskSessionsPurgeExpired, []byte(`{"grace_minutes":-5}`))))
	assert.Equal(t, now, purger.cutoff)
}

func TestSessionsPurgeErrors(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	job := NewSessionsPurgeJob(purger, nil, nil)
	assert.EqualError(t, job.Handle(context.Background(), asynq.NewTask(TaskSessionsPurgeExpired, nil)), "db down")

	err := job.Handle(context.Background(), asynq.NewTask(TaskSessionsPurgeExpired, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var unconfigured *SessionsPurgeJob
	assert.Error(t, unconfigured.Handle(context.Background(), asynq.NewTask(TaskSessionsPurgeExpired, nil)))
}

func TestHealthWithoutInspector(t *testing.T) {
	admin := &rbac.Principal{UserID: 1, Role: rbac.Role{Name: "Owner", SuperAdmin: true}}
	h := NewHandler(nil, nil, rbac.Guard{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(r.Context(), admin)))
		})
	})
	r.Route("/jobs", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
}

func TestHealthRequiresPermission(t *testing.T) {
	h := NewHandler(nil, nil, rbac.Guard{})
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionsPurgeSkipsWhileLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := shared.NewRedisLocker(client)

	purger := &stubPurger{}
	job := NewSessionsPurgeJob(purger, nil, nil)
	job.Locker = locker
	task := asynq.NewTask(TaskSessionsPurgeExpired, nil)

	held, err := locker.Acquire(context.Background(), shared.JobLockKey(TaskSessionsPurgeExpired), time.Minute)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Zero(t, purger.calls)

	require.NoError(t, held(context.Background()))
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, purger.calls)
	assert.False(t, mr.Exists(shared.JobLockKey(TaskSessionsPurgeExpired)))
}

type failingLocker struct{}

func (failingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	return nil, errors.New("redis down")
}

func TestSessionsPurgeLockFailure(t *testing.T) {
	purger := &stubPurger{}
	job := NewSessionsPurgeJob(purger, nil, nil)
	job.Locker = failingLocker{}
	assert.EqualError(t, job.Handle(context.Background(), asynq.NewTask(TaskSessionsPurgeExpired, nil)), "redis down")
	assert.Zero(t, purger.calls)
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/peopledesk/peopledesk/internal/observability"
	"github.com/peopledesk/peopledesk/internal/shared"
)

// SessionPurger deletes session records that expired before cutoff.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobLocker grants single-flight execution across workers.
type JobLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// purgeLockTTL bounds how long a crashed run can block the next one.
const purgeLockTTL = 10 * time.Minute

// SessionsPurgeJob removes stale login session records. When Locker is set,
// runs overlapping an in-flight purge are skipped.
type SessionsPurgeJob struct {
	Store   SessionPurger
	Locker  JobLocker
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewSessionsPurgeJob wires dependencies for the purge handler.
func NewSessionsPurgeJob(store SessionPurger, logger *slog.Logger, metrics *observability.Metrics) *SessionsPurgeJob {
	return &SessionsPurgeJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSessionsPurgeExpired tasks.
func (j *SessionsPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("sessions purge: handler not configured")
	}
	var payload SessionsPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("sessions purge: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.GraceMinutes < 0 {
		payload.GraceMinutes = 0
	}

	tracker := j.Metrics.Track(TaskSessionsPurgeExpired)
	defer func() {
		err = tracker.End(err)
	}()

	if j.Locker != nil {
		release, lockErr := j.Locker.Acquire(ctx, shared.JobLockKey(TaskSessionsPurgeExpired), purgeLockTTL)
		if errors.Is(lockErr, shared.ErrLockHeld) {
			j.logger().Info("sessions purge already running, skipping")
			return nil
		}
		if lockErr != nil {
			return lockErr
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				j.logger().Warn("release sessions purge lock", slog.Any("error", relErr))
			}
		}()
	}

	cutoff := j.clock().Add(-time.Duration(payload.GraceMinutes) * time.Minute)
	removed, err := j.Store.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		j.logger().Error("purge expired sessions", slog.Any("error", err))
		return err
	}
	j.logger().Info("purged expired sessions", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	return nil
}

func (j *SessionsPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

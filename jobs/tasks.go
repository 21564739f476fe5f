package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurgeExpired removes user_sessions rows past their expiry.
	TaskSessionsPurgeExpired = "sessions:purge_expired"
)

// SessionsPurgePayload configures a purge run.
type SessionsPurgePayload struct {
	// GraceMinutes keeps rows this long after expiry for auditing.
	GraceMinutes int `json:"grace_minutes"`
}

// NewSessionsPurgeTask constructs an Asynq task.
func NewSessionsPurgeTask(payload SessionsPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurgeExpired, data), nil
}

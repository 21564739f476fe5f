// Package audit exposes the audit log as a filterable, paged timeline.
package audit

import (
	"encoding/json"
	"time"
)

// Entry is one row of the audit timeline.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    int64           `json:"actor_id"`
	ActorEmail string          `json:"actor_email,omitempty"`
	Action     string          `json:"action"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id"`
	Meta       json.RawMessage `json:"meta"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Window bounds a timeline query in time. Both ends are inclusive.
type Window struct {
	From time.Time
	To   time.Time
}

const (
	defaultWindow = 7 * 24 * time.Hour
	maxWindow     = 90 * 24 * time.Hour
)

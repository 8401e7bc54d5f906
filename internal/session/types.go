package session

import (
	"time"

	"github.com/ent0n29/meetingbot/internal/intent"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusEnded    Status = "ENDED"
	StatusTimedOut Status = "TIMED_OUT"
	StatusError    Status = "ERROR"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// Session is a copy-out snapshot of one user's conversation state.
type Session struct {
	ID             string            `json:"session_id"`
	UserID         string            `json:"user_id"`
	Status         Status            `json:"status"`
	StartedAt      time.Time         `json:"started_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	EndedAt        *time.Time        `json:"ended_at,omitempty"`
	MessageCount   int               `json:"message_count"`
	Context        map[string]string `json:"context"`
	LastIntent     intent.Intent     `json:"last_intent,omitempty"`
}

// Summary is the read-only view exposed to operators.
type Summary struct {
	SessionID      string        `json:"session_id"`
	UserID         string        `json:"user_id"`
	Status         Status        `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	MessageCount   int           `json:"message_count"`
	LastIntent     intent.Intent `json:"last_intent,omitempty"`
	ContextKeys    int           `json:"context_keys"`
}

func (s *Session) Summary() Summary {
	return Summary{
		SessionID:      s.ID,
		UserID:         s.UserID,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		LastActivityAt: s.LastActivityAt,
		EndedAt:        s.EndedAt,
		MessageCount:   s.MessageCount,
		LastIntent:     s.LastIntent,
		ContextKeys:    len(s.Context),
	}
}

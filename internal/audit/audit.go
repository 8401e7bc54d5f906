package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcomes recorded for provider dispatches.
const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailed       = "failed"
	OutcomeTimeout      = "timeout"
)

// Event describes one provider action taken on a user's behalf.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Intent    string    `json:"intent"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// NewEvent fills the ID and timestamp.
func NewEvent(userID, sessionID, intentName, outcome, detail string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      "provider_action",
		UserID:    userID,
		SessionID: sessionID,
		Intent:    intentName,
		Outcome:   outcome,
		Detail:    detail,
		At:        time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Topic returns the MQTT topic for an intent under prefix.
func Topic(prefix, intentName string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "meetingbot"
	}
	name := strings.ToLower(strings.TrimSpace(intentName))
	if name == "" {
		name = "unknown"
	}
	return prefix + "/audit/" + name
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "audit",
		"event_id", ev.ID,
		"user_id", ev.UserID,
		"session_id", ev.SessionID,
		"intent", ev.Intent,
		"outcome", ev.Outcome,
		"detail", ev.Detail,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

package transcript

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Record is one persisted chat message. Content is stored redacted.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Intent      string    `json:"intent,omitempty"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists and retrieves chat transcripts.
type Store interface {
	SaveMessage(ctx context.Context, record Record) error
	// RecentMessages returns up to limit records for userID, oldest first.
	RecentMessages(ctx context.Context, userID string, limit int) ([]Record, error)
	Close() error
}

const defaultRecentLimit = 50

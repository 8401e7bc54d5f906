package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ent0n29/meetingbot/internal/reliability"
)

// ActionProvider performs meeting, recording, and user operations against a
// video-conferencing backend.
type ActionProvider interface {
	CreateMeeting(ctx context.Context, cred Credential, req MeetingRequest) (Meeting, error)
	ListMeetings(ctx context.Context, cred Credential, opts ListOptions) (MeetingList, error)
	GetMeeting(ctx context.Context, cred Credential, meetingID string) (Meeting, error)
	UpdateMeeting(ctx context.Context, cred Credential, meetingID string, req MeetingUpdate) error
	DeleteMeeting(ctx context.Context, cred Credential, meetingID string) error
	ListRecordings(ctx context.Context, cred Credential, opts ListOptions) (RecordingList, error)
	GetRecording(ctx context.Context, cred Credential, meetingID string) (Recording, error)
	GetUser(ctx context.Context, cred Credential, userID string) (User, error)
	ListUsers(ctx context.Context, cred Credential, opts ListOptions) (UserList, error)
	CreateUser(ctx context.Context, cred Credential, req NewUser) (User, error)
}

// Config controls provider construction.
type Config struct {
	Mode       string
	BaseURL    string
	MaxRetries int
	// CredentialsConfigured lets auto mode pick the HTTP client.
	CredentialsConfigured bool
	Logger                *slog.Logger
}

// New builds a provider. It returns the resolved mode alongside it.
func New(cfg Config) (ActionProvider, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := reliability.DefaultPolicy()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	switch mode {
	case "auto":
		if cfg.CredentialsConfigured {
			return NewZoomClient(cfg.BaseURL, retry, logger), "http", nil
		}
		logger.Info("zoom credentials not configured, using mock provider")
		return NewMockProvider(), "mock", nil
	case "http":
		return NewZoomClient(cfg.BaseURL, retry, logger), "http", nil
	case "mock":
		return NewMockProvider(), "mock", nil
	default:
		return nil, "", fmt.Errorf("unsupported zoom mode %q", cfg.Mode)
	}
}

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientChat    MessageType = "client_chat"
	TypeClientControl MessageType = "client_control"
	TypeSessionReady  MessageType = "session_ready"
	TypeBotReply      MessageType = "bot_reply"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// Control actions accepted from clients.
const (
	ActionEndSession   = "end_session"
	ActionClearContext = "clear_context"
	ActionPing         = "ping"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientChat struct {
	Type     MessageType `json:"type"`
	Text     string      `json:"text"`
	Timezone string      `json:"timezone,omitempty"`
	TSMs     int64       `json:"ts_ms,omitempty"`
}

type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
	TSMs   int64       `json:"ts_ms,omitempty"`
}

type SessionReady struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	UserID    string      `json:"user_id"`
}

type BotReply struct {
	Type       MessageType       `json:"type"`
	SessionID  string            `json:"session_id"`
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientChat:
		var msg ClientChat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		// Blank text is allowed; the engine answers it with a prompt.
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Action = strings.ToLower(strings.TrimSpace(msg.Action))
		switch msg.Action {
		case ActionEndSession, ActionClearContext, ActionPing:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}

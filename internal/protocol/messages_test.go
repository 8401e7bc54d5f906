package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"client_chat","text":"list my meetings","timezone":"America/New_York","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chat, ok := msg.(ClientChat)
	if !ok {
		t.Fatalf("message type = %T, want ClientChat", msg)
	}
	if chat.Text != "list my meetings" || chat.Timezone != "America/New_York" {
		t.Fatalf("unexpected chat: %+v", chat)
	}
}

func TestParseClientMessageAllowsBlankChat(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_chat","text":"  "}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClientChat); !ok {
		t.Fatalf("message type = %T, want ClientChat", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_control","action":" End_Session ","ts_ms":456}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.Action != ActionEndSession {
		t.Fatalf("Action = %q, want %q", control.Action, ActionEndSession)
	}
	if control.TSMs != 456 {
		t.Fatalf("TSMs = %d, want %d", control.TSMs, 456)
	}
}

func TestParseClientMessageRejectsInvalidControl(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"client_control","action":"reboot"}`)); err == nil {
		t.Fatalf("ParseClientMessage() expected error for unknown action")
	}
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{not-json`)); err == nil {
		t.Fatalf("ParseClientMessage() expected error")
	}
}

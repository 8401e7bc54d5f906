package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/meetingbot/internal/protocol"
)

const (
	wsReadLimit    = 64 << 10
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r, true)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", UserHeader+" header or user_id query parameter is required")
		return
	}
	sess, err := s.sessions.GetOrCreate(userID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_user", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ObserveSessionEvent("ws_connected", s.sessions.ActiveCount())
	s.logger.Info("chat websocket connected", "user_id", userID, "session_id", sess.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	outbound <- protocol.SessionReady{Type: protocol.TypeSessionReady, SessionID: sess.ID, UserID: userID}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		s.runChat(ctx, userID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					s.logger.Debug("chat websocket write failed", "user_id", userID, "error", err)
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			select {
			case outbound <- protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}:
			default:
				// Writes stay single-threaded; drop when the queue is saturated.
			}
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.ObserveSessionEvent("ws_disconnected", s.sessions.ActiveCount())
}

// runChat answers inbound messages in order until inbound closes.
func (s *Server) runChat(ctx context.Context, userID string, inbound <-chan any, outbound chan<- any) {
	for msg := range inbound {
		var out any
		switch m := msg.(type) {
		case protocol.ClientChat:
			resp, err := s.engine.ProcessMessage(ctx, userID, m.Text, m.Timezone)
			if err != nil {
				out = protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "processing_failed", Retryable: true, Detail: err.Error()}
				break
			}
			out = protocol.BotReply{
				Type:       protocol.TypeBotReply,
				SessionID:  resp.SessionID,
				Success:    resp.Success,
				Message:    resp.Message,
				Intent:     string(resp.Intent),
				Confidence: resp.Confidence,
				Entities:   resp.Entities,
			}
		case protocol.ClientControl:
			out = s.applyControl(userID, m.Action)
		default:
			continue
		}
		select {
		case <-ctx.Done():
		case outbound <- out:
		}
	}
}

func (s *Server) applyControl(userID, action string) protocol.SystemEvent {
	ev := protocol.SystemEvent{Type: protocol.TypeSystemEvent}
	switch action {
	case protocol.ActionPing:
		ev.Code = "pong"
	case protocol.ActionEndSession:
		sess, err := s.sessions.End(userID)
		if err != nil {
			ev.Code, ev.Detail = "no_session", err.Error()
			break
		}
		s.metrics.ObserveSessionEvent("ended", s.sessions.ActiveCount())
		ev.Code, ev.SessionID = "session_ended", sess.ID
	case protocol.ActionClearContext:
		if err := s.sessions.ClearContext(userID); err != nil {
			ev.Code, ev.Detail = "no_session", err.Error()
			break
		}
		ev.Code = "context_cleared"
	}
	return ev
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientChat:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.SessionReady:
		return m.Type, true
	case protocol.BotReply:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}

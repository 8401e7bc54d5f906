package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/meetingbot/internal/config"
	"github.com/ent0n29/meetingbot/internal/dialogue"
	"github.com/ent0n29/meetingbot/internal/observability"
	"github.com/ent0n29/meetingbot/internal/session"
	"github.com/ent0n29/meetingbot/internal/transcript"
)

// UserHeader carries the caller identity established by the fronting identity layer.
const UserHeader = "X-User-ID"

// Engine processes one chat message for a user.
type Engine interface {
	ProcessMessage(ctx context.Context, userID, text, zone string) (dialogue.Response, error)
}

type Server struct {
	cfg          config.Config
	engine       Engine
	sessions     *session.Manager
	transcripts  transcript.Store
	metrics      *observability.Metrics
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	providerMode string
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Transcripts  transcript.Store
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	ProviderMode string
}

func New(cfg config.Config, engine Engine, sessions *session.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:          cfg,
		engine:       engine,
		sessions:     sessions,
		transcripts:  opts.Transcripts,
		metrics:      opts.Metrics,
		logger:       logger,
		providerMode: opts.ProviderMode,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients must come from the same origin unless configured otherwise.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/api/chatbot", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/ws", s.handleChatWS)
		r.Get("/stats", s.handleStats)
		r.Get("/perf", s.handlePerfLatency)
		r.Delete("/perf", s.handlePerfReset)

		r.Get("/conversations/{userId}", s.handleGetConversation)
		r.Post("/conversations/{userId}/end", s.handleEndConversation)
		r.Delete("/conversations/{userId}/context", s.handleClearContext)
		r.Get("/conversations/{userId}/messages", s.handleListMessages)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"provider_mode": s.providerMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil || s.sessions == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "dialogue engine not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"provider_mode":   s.providerMode,
		"transcripts":     s.transcripts != nil,
		"active_sessions": s.sessions.ActiveCount(),
		"session_timeout": s.sessions.InactivityTimeout().String(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// callerID returns the authenticated user, falling back to the user_id query
// parameter only when allowQuery is set (websocket clients cannot set headers).
func callerID(r *http.Request, allowQuery bool) string {
	if id := strings.TrimSpace(r.Header.Get(UserHeader)); id != "" {
		return id
	}
	if allowQuery {
		return strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	return ""
}

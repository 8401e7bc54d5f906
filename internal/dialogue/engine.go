package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ent0n29/meetingbot/internal/audit"
	"github.com/ent0n29/meetingbot/internal/entity"
	"github.com/ent0n29/meetingbot/internal/intent"
	"github.com/ent0n29/meetingbot/internal/observability"
	"github.com/ent0n29/meetingbot/internal/policy"
	"github.com/ent0n29/meetingbot/internal/provider"
	"github.com/ent0n29/meetingbot/internal/session"
	"github.com/ent0n29/meetingbot/internal/timezone"
	"github.com/ent0n29/meetingbot/internal/transcript"
)

// ErrUserIDRequired is returned when ProcessMessage is called without a caller identity.
var ErrUserIDRequired = errors.New("dialogue: user id is required")

// CredentialSource supplies the provider credential for a chat user.
type CredentialSource interface {
	CredentialFor(ctx context.Context, userID string) (provider.Credential, error)
}

type Config struct {
	// Below this confidence a recognized intent is confirmed instead of acted on.
	ConfidenceThreshold   float64
	MaxInputLength        int
	DispatchTimeout       time.Duration
	DefaultMeetingMinutes int
	MeetingTopic          string
	ListPageSize          int
	RecordingLookbackDays int
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:   0.6,
		MaxInputLength:        1000,
		DispatchTimeout:       15 * time.Second,
		DefaultMeetingMinutes: 60,
		MeetingTopic:          "Scheduled Meeting",
		ListPageSize:          10,
		RecordingLookbackDays: 30,
	}
}

// Deps are the engine's collaborators. Transcripts, Audit and Metrics are optional.
type Deps struct {
	Sessions    *session.Manager
	Classifier  *intent.Classifier
	Extractor   *entity.Extractor
	Converter   *timezone.Converter
	Provider    provider.ActionProvider
	Credentials CredentialSource
	Transcripts transcript.Store
	Audit       audit.Publisher
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Response is the outcome of one processed message.
type Response struct {
	Success    bool          `json:"success"`
	SessionID  string        `json:"session_id"`
	Message    string        `json:"message"`
	Intent     intent.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
	Entities   entity.Map    `json:"entities"`
}

// Engine runs the per-message dialogue loop.
type Engine struct {
	cfg         Config
	sessions    *session.Manager
	classifier  *intent.Classifier
	extractor   *entity.Extractor
	converter   *timezone.Converter
	provider    provider.ActionProvider
	credentials CredentialSource
	transcripts transcript.Store
	audit       audit.Publisher
	metrics     *observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
	locks       *userLocks
	handlers    map[intent.Intent]handlerFunc
}

func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.Sessions == nil || deps.Classifier == nil || deps.Extractor == nil || deps.Converter == nil {
		return nil, errors.New("dialogue: sessions, classifier, extractor and converter are required")
	}
	if deps.Provider == nil || deps.Credentials == nil {
		return nil, errors.New("dialogue: provider and credentials are required")
	}

	defaults := DefaultConfig()
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("dialogue: confidence threshold %.2f out of range", cfg.ConfidenceThreshold)
	}
	if cfg.MaxInputLength <= 0 {
		cfg.MaxInputLength = defaults.MaxInputLength
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaults.DispatchTimeout
	}
	if cfg.DefaultMeetingMinutes <= 0 {
		cfg.DefaultMeetingMinutes = defaults.DefaultMeetingMinutes
	}
	if strings.TrimSpace(cfg.MeetingTopic) == "" {
		cfg.MeetingTopic = defaults.MeetingTopic
	}
	if cfg.ListPageSize <= 0 {
		cfg.ListPageSize = defaults.ListPageSize
	}
	if cfg.RecordingLookbackDays <= 0 {
		cfg.RecordingLookbackDays = defaults.RecordingLookbackDays
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		cfg:         cfg,
		sessions:    deps.Sessions,
		classifier:  deps.Classifier,
		extractor:   deps.Extractor,
		converter:   deps.Converter,
		provider:    deps.Provider,
		credentials: deps.Credentials,
		transcripts: deps.Transcripts,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         clock,
		locks:       newUserLocks(),
	}
	e.handlers = e.routes()
	return e, nil
}

// ProcessMessage handles one chat message from userID. The error result is
// reserved for caller contract violations; every other outcome, including
// provider failures and internal faults, is reported through Response.
func (e *Engine) ProcessMessage(ctx context.Context, userID, text, zone string) (resp Response, err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Response{}, ErrUserIDRequired
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while processing message",
				"user_id", userID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			if resp.SessionID != "" {
				if markErr := e.sessions.MarkError(resp.SessionID); markErr != nil {
					e.logger.Warn("mark session error failed", "session_id", resp.SessionID, "error", markErr)
				}
			}
			resp = Response{
				Success:   false,
				SessionID: resp.SessionID,
				Message:   msgInternalError,
				Intent:    intent.Unknown,
				Entities:  entity.Map{},
			}
			err = nil
		}
	}()

	clean := e.sanitize(text)
	if clean == "" {
		sessionID := ""
		if cur, err := e.sessions.Current(userID); err == nil && !cur.Status.Terminal() {
			sessionID = cur.ID
		}
		return Response{
			Success:   true,
			SessionID: sessionID,
			Message:   msgEmptyInput,
			Intent:    intent.Unknown,
			Entities:  entity.Map{},
		}, nil
	}

	sess, err := e.startTurn(userID, zone)
	if err != nil {
		return Response{}, err
	}
	resp.SessionID = sess.ID

	t := &turn{
		ctx:       ctx,
		userID:    userID,
		sessionID: sess.ID,
		text:      clean,
		lower:     strings.ToLower(clean),
	}
	t.zone, _ = e.sessions.GetContext(userID, ctxTimezone)
	t.now = e.converter.Now(t.zone, e.now())

	stageStart := time.Now()
	result := e.classifier.Classify(clean)
	e.metrics.ObserveTurnStage("classify", time.Since(stageStart))

	stageStart = time.Now()
	t.entities = e.extractor.ExtractAt(clean, t.now)
	e.metrics.ObserveTurnStage("extract", time.Since(stageStart))

	t.intent, t.confidence = e.resolveFollowUp(t, result)

	sessionID, err := e.recordActivity(userID, sess.ID, t.intent)
	if err != nil {
		return Response{}, err
	}
	t.sessionID = sessionID
	resp.SessionID = sessionID
	e.metrics.ObserveMessage(string(t.intent))

	e.logger.Info("chat message",
		"user_id", userID,
		"session_id", t.sessionID,
		"intent", t.intent,
		"confidence", t.confidence,
		"entities", len(t.entities),
		"message", clean,
	)

	var out reply
	if t.intent != intent.Unknown && t.confidence < e.cfg.ConfidenceThreshold {
		e.metrics.ObserveLowConfidence()
		out = reply{text: fmt.Sprintf(msgLowConfidence, strings.ToLower(t.intent.Description())), ok: true}
	} else {
		out = e.route(t)
	}

	e.saveTranscript(ctx, t, out.text)
	e.metrics.ObserveTurnStage("turn_total", time.Since(started))

	return Response{
		Success:    out.ok,
		SessionID:  t.sessionID,
		Message:    out.text,
		Intent:     t.intent,
		Confidence: t.confidence,
		Entities:   t.entities,
	}, nil
}

// startTurn fetches or creates the user's session and stores a supplied timezone.
func (e *Engine) startTurn(userID, zone string) (*session.Session, error) {
	sess, err := e.sessions.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if sess.MessageCount == 0 {
		e.metrics.ObserveSessionEvent("started", e.sessions.ActiveCount())
	}
	if zone = strings.TrimSpace(zone); zone != "" {
		if !e.converter.Known(zone) {
			e.logger.Warn("unknown timezone supplied, times will be treated as UTC", "user_id", userID, "timezone", zone)
		}
		if err := e.sessions.SetContext(userID, ctxTimezone, zone); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// recordActivity stamps the turn on the session. A session that timed out
// between lookup and update is replaced once.
func (e *Engine) recordActivity(userID, sessionID string, in intent.Intent) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		err := e.sessions.SetLastIntent(sessionID, in)
		if err == nil {
			err = e.sessions.UpdateActivity(sessionID)
		}
		if err == nil {
			return sessionID, nil
		}
		if !errors.Is(err, session.ErrSessionClosed) && !errors.Is(err, session.ErrNotFound) {
			return "", err
		}
		fresh, gerr := e.sessions.GetOrCreate(userID)
		if gerr != nil {
			return "", gerr
		}
		sessionID = fresh.ID
	}
	return "", session.ErrSessionClosed
}

// resolveFollowUp lets a short reply such as "tomorrow" or "meeting 2" continue
// the write intent that asked for it.
func (e *Engine) resolveFollowUp(t *turn, result intent.Result) (intent.Intent, float64) {
	if result.Intent != intent.Unknown {
		return result.Intent, result.Confidence
	}
	raw, ok := e.sessions.GetContext(t.userID, ctxPendingIntent)
	if !ok {
		return result.Intent, result.Confidence
	}
	pending, ok := intent.Parse(raw)
	if !ok || !pending.IsWriteOperation() {
		return result.Intent, result.Confidence
	}
	if len(t.entities) == 0 {
		if _, found := findReference(t.text); !found {
			return result.Intent, result.Confidence
		}
	}
	e.logger.Debug("continuing pending intent", "user_id", t.userID, "intent", pending)
	return pending, e.classifier.Score(t.text)
}

func (e *Engine) route(t *turn) (out reply) {
	h, ok := e.handlers[t.intent]
	if !ok {
		return reply{text: msgUnknown, ok: true}
	}
	return h(t)
}

// sanitize strips control characters other than \n, \r and \t, trims, and
// truncates to the configured rune length.
func (e *Engine) sanitize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	cleaned = strings.TrimSpace(cleaned)

	if n := utf8.RuneCountInString(cleaned); n > e.cfg.MaxInputLength {
		e.logger.Info("input truncated", "length", n, "max", e.cfg.MaxInputLength)
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:e.cfg.MaxInputLength]))
	}
	return cleaned
}

func (e *Engine) saveTranscript(ctx context.Context, t *turn, botText string) {
	if e.transcripts == nil {
		return
	}
	now := e.now().UTC()
	records := []transcript.Record{
		{Role: transcript.RoleUser, Content: t.text, CreatedAt: now},
		{Role: transcript.RoleAssistant, Content: botText, CreatedAt: now.Add(time.Millisecond)},
	}
	for _, r := range records {
		r.UserID = t.userID
		r.SessionID = t.sessionID
		r.Intent = string(t.intent)
		r.Content, r.PIIRedacted = policy.RedactPII(r.Content)
		if err := e.transcripts.SaveMessage(ctx, r); err != nil {
			e.logger.Warn("transcript save failed", "user_id", t.userID, "error", err)
			return
		}
	}
}

package dialogue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/meetingbot/internal/audit"
	"github.com/ent0n29/meetingbot/internal/credentials"
	"github.com/ent0n29/meetingbot/internal/intent"
	"github.com/ent0n29/meetingbot/internal/provider"
	"github.com/ent0n29/meetingbot/internal/session"
)

// scriptedProvider overrides selected mock calls.
type scriptedProvider struct {
	*provider.MockProvider
	create func(ctx context.Context) error
	list   func(ctx context.Context) error
}

func (p *scriptedProvider) CreateMeeting(ctx context.Context, cred provider.Credential, req provider.MeetingRequest) (provider.Meeting, error) {
	if p.create != nil {
		if err := p.create(ctx); err != nil {
			return provider.Meeting{}, err
		}
	}
	return p.MockProvider.CreateMeeting(ctx, cred, req)
}

func (p *scriptedProvider) ListMeetings(ctx context.Context, cred provider.Credential, opts provider.ListOptions) (provider.MeetingList, error) {
	if p.list != nil {
		if err := p.list(ctx); err != nil {
			return provider.MeetingList{}, err
		}
	}
	return p.MockProvider.ListMeetings(ctx, cred, opts)
}

func withProvider(p provider.ActionProvider) harnessOption {
	return func(_ *Config, d *Deps) { d.Provider = p }
}

type failingCredentials struct{ err error }

func (f failingCredentials) CredentialFor(context.Context, string) (provider.Credential, error) {
	return provider.Credential{}, f.err
}

func TestDispatchFailureClearsSlotContext(t *testing.T) {
	p := &scriptedProvider{
		MockProvider: provider.NewMockProvider(),
		create: func(context.Context) error {
			return &provider.Error{Kind: provider.KindOther, Op: "create meeting", Status: 400, Err: errors.New("invalid field")}
		},
	}
	h := newHarness(t, withProvider(p))

	resp := h.send(t, "u1", "schedule a meeting tomorrow at 2pm")
	if resp.Success {
		t.Fatalf("Success = true, want false")
	}
	if !strings.Contains(resp.Message, "error creating the meeting") {
		t.Fatalf("Message = %q", resp.Message)
	}
	for _, k := range schedulePlan.keys() {
		if h.sessions.HasContext("u1", k) {
			t.Fatalf("context key %q survived a failed dispatch", k)
		}
	}
	if got := h.audit.outcomes(); len(got) != 1 || got[0] != audit.OutcomeFailed {
		t.Fatalf("audit outcomes = %v, want [failed]", got)
	}
}

func TestAuthFailureMessage(t *testing.T) {
	h := newHarness(t, func(_ *Config, d *Deps) {
		d.Credentials = failingCredentials{err: &provider.Error{Kind: provider.KindUnauthorized, Op: "token", Status: 401}}
	})
	resp := h.send(t, "u1", "show my meetings")
	if resp.Success || resp.Message != msgAuthFailed {
		t.Fatalf("reply = %+v, want auth failure", resp)
	}
}

func TestNotFoundWithStatusTextIsNotAuth(t *testing.T) {
	err := &provider.Error{Kind: provider.KindNotFound, Op: "get meeting", Status: 404, Err: errors.New("meeting 4013 not found")}
	if isAuthFailure(err) {
		t.Fatal("isAuthFailure(not found) = true")
	}
	if got := failureText(err, "gone", "generic"); got != "gone" {
		t.Fatalf("failureText() = %q, want gone", got)
	}
	timeout := &provider.Error{Kind: provider.KindTransient, Op: "resolve credentials", Err: fmt.Errorf("%w: Post \"http://127.0.0.1:34017\"", context.DeadlineExceeded)}
	if isAuthFailure(timeout) {
		t.Fatal("isAuthFailure(transient) = true")
	}
	if got := failureText(timeout, "gone", "generic"); got != msgTimeout {
		t.Fatalf("failureText(transient) = %q, want timeout message", got)
	}
	if !isAuthFailure(errors.New("invalid_client: bad secret")) {
		t.Fatal("isAuthFailure(untyped invalid_client) = false")
	}
}

func TestDispatchTimeout(t *testing.T) {
	p := &scriptedProvider{
		MockProvider: provider.NewMockProvider(),
		list: func(ctx context.Context) error {
			<-ctx.Done()
			return &provider.Error{Kind: provider.KindTransient, Op: "list meetings", Err: ctx.Err()}
		},
	}
	h := newHarness(t, withProvider(p), func(c *Config, _ *Deps) { c.DispatchTimeout = 20 * time.Millisecond })

	started := time.Now()
	resp := h.send(t, "u1", "show my meetings")
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("turn took %s", elapsed)
	}
	if resp.Success || resp.Message != msgTimeout {
		t.Fatalf("reply = %+v, want timeout", resp)
	}
}

func TestSlowTokenExchangeIsBoundedByDispatchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	src := credentials.NewSource(nil, credentials.NewAccountTokens(credentials.AccountConfig{
		AccountID:    "acct-1",
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURL:     srv.URL,
	}), nil)
	h := newHarness(t, func(c *Config, d *Deps) {
		c.DispatchTimeout = 100 * time.Millisecond
		d.Credentials = src
	})

	started := time.Now()
	resp := h.send(t, "u1", "show my meetings")
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("turn took %s, want it bounded by the dispatch timeout", elapsed)
	}
	if resp.Success || resp.Message != msgTimeout {
		t.Fatalf("reply = %+v, want timeout", resp)
	}
	if got := h.mock.Calls("list meetings"); got != 0 {
		t.Fatalf("list meetings calls = %d, want 0", got)
	}
}

func TestForgetLogsContextFailure(t *testing.T) {
	var buf bytes.Buffer
	h := newHarness(t, func(_ *Config, d *Deps) {
		d.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	})
	h.send(t, "u1", "schedule a meeting")
	if _, err := h.sessions.End("u1"); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	h.engine.forget("u1", intent.UpdateMeeting, ctxUpdateDuration)
	out := buf.String()
	if !strings.Contains(out, "clear slot context failed") || !strings.Contains(out, ctxUpdateDuration) {
		t.Fatalf("log = %q, want a warning naming %s", out, ctxUpdateDuration)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	p := &scriptedProvider{
		MockProvider: provider.NewMockProvider(),
		list:         func(context.Context) error { panic("boom") },
	}
	h := newHarness(t, withProvider(p))

	resp, err := h.engine.ProcessMessage(context.Background(), "u1", "show my meetings", "")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if resp.Success || resp.Message != msgInternalError || resp.Intent != intent.Unknown {
		t.Fatalf("reply = %+v, want internal error", resp)
	}
	if resp.SessionID == "" {
		t.Fatal("SessionID empty after recovered panic")
	}
	sess, err := h.sessions.Get(resp.SessionID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Status != session.StatusError {
		t.Fatalf("Status = %s, want %s", sess.Status, session.StatusError)
	}
	if h.engine.locks.size() != 0 {
		t.Fatalf("user locks = %d after panic, want 0", h.engine.locks.size())
	}
	next := h.send(t, "u1", "hello")
	if next.Message != msgGreeting {
		t.Fatalf("next turn = %q, want greeting", next.Message)
	}
	if next.SessionID == resp.SessionID {
		t.Fatalf("next turn reused the errored session %s", resp.SessionID)
	}
}

func TestConcurrentUsersKeepSeparateState(t *testing.T) {
	h := newHarness(t)
	const users = 16

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			for _, msg := range []string{"schedule a meeting", "tomorrow", "3pm"} {
				if _, err := h.engine.ProcessMessage(context.Background(), user, msg, ""); err != nil {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	if got := h.mock.Calls("create meeting"); got != users {
		t.Fatalf("create meeting calls = %d, want %d", got, users)
	}
	if got := h.sessions.ActiveCount(); got != users {
		t.Fatalf("ActiveCount() = %d, want %d", got, users)
	}
	for _, s := range h.sessions.All() {
		if s.MessageCount != 3 {
			t.Fatalf("session %s MessageCount = %d, want 3", s.UserID, s.MessageCount)
		}
	}
	if h.engine.locks.size() != 0 {
		t.Fatalf("user locks = %d, want 0", h.engine.locks.size())
	}
}

func TestSameUserTurnsAreSerialized(t *testing.T) {
	h := newHarness(t)
	h.send(t, "u1", "hello")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.engine.ProcessMessage(context.Background(), "u1", "help", "")
		}()
	}
	wg.Wait()

	sess, err := h.sessions.Current("u1")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if sess.MessageCount != 21 {
		t.Fatalf("MessageCount = %d, want 21", sess.MessageCount)
	}
}

func TestNewEngineValidatesDeps(t *testing.T) {
	if _, err := NewEngine(DefaultConfig(), Deps{}); err == nil {
		t.Fatal("NewEngine(empty deps) error = nil")
	}
	h := newHarness(t)
	deps := Deps{
		Sessions:    h.sessions,
		Classifier:  h.engine.classifier,
		Extractor:   h.engine.extractor,
		Converter:   h.engine.converter,
		Provider:    h.mock,
		Credentials: h.engine.credentials,
	}
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 1.5
	if _, err := NewEngine(cfg, deps); err == nil {
		t.Fatal("NewEngine(threshold 1.5) error = nil")
	}
}

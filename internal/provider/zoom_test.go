package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/ent0n29/meetingbot/internal/reliability"
)

func testCred() Credential {
	return Credential{Token: &oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"}}
}

func fastRetry(n int) reliability.Policy {
	return reliability.Policy{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestZoomClientCreateMeeting(t *testing.T) {
	var got MeetingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/me/meetings" {
			t.Errorf("request = %s %s, want POST /users/me/meetings", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer tok-123")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":85012345678,"topic":"Sync","type":2,"start_time":"2024-01-15T19:00:00Z","duration":30,"join_url":"https://zoom.us/j/85012345678"}`))
	}))
	defer srv.Close()

	c := NewZoomClient(srv.URL, fastRetry(0), nil)
	m, err := c.CreateMeeting(context.Background(), testCred(), MeetingRequest{
		Topic:     "Sync",
		StartTime: "2024-01-15T19:00:00",
		Duration:  30,
		Timezone:  "UTC",
	})
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}
	if m.ID != 85012345678 {
		t.Fatalf("meeting ID = %d, want 85012345678", m.ID)
	}
	if got.Type != MeetingTypeScheduled {
		t.Fatalf("request type = %d, want %d", got.Type, MeetingTypeScheduled)
	}
	if got.StartTime != "2024-01-15T19:00:00" {
		t.Fatalf("request start_time = %q", got.StartTime)
	}
}

func TestZoomClientListMeetingsCapsPageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page_size"); got != "300" {
			t.Errorf("page_size = %q, want 300", got)
		}
		if got := r.URL.Query().Get("type"); got != "scheduled" {
			t.Errorf("type = %q, want scheduled", got)
		}
		_, _ = w.Write([]byte(`{"page_size":300,"total_records":1,"meetings":[{"id":1,"topic":"A"}]}`))
	}))
	defer srv.Close()

	c := NewZoomClient(srv.URL, fastRetry(0), nil)
	list, err := c.ListMeetings(context.Background(), testCred(), ListOptions{PageSize: 1000})
	if err != nil {
		t.Fatalf("ListMeetings() error = %v", err)
	}
	if len(list.Meetings) != 1 || list.Meetings[0].Topic != "A" {
		t.Fatalf("ListMeetings() = %+v", list)
	}
}

func TestZoomClientMapsStatusToKind(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusNotFound, KindNotFound},
		{http.StatusBadRequest, KindOther},
		{http.StatusServiceUnavailable, KindTransient},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"code":3001,"message":"Meeting does not exist"}`))
		}))
		c := NewZoomClient(srv.URL, fastRetry(0), nil)
		_, err := c.GetMeeting(context.Background(), testCred(), "123")
		srv.Close()
		if got := KindOf(err); got != tc.want {
			t.Fatalf("status %d: KindOf() = %q, want %q (err=%v)", tc.status, got, tc.want, err)
		}
		var pe *Error
		if !errors.As(err, &pe) || pe.Status != tc.status {
			t.Fatalf("status %d: error = %#v", tc.status, err)
		}
		if !strings.Contains(err.Error(), "Meeting does not exist") {
			t.Fatalf("error %q does not carry api message", err.Error())
		}
	}
}

func TestZoomClientRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewZoomClient(srv.URL, fastRetry(3), nil)
	if err := c.DeleteMeeting(context.Background(), testCred(), "42"); err != nil {
		t.Fatalf("DeleteMeeting() error = %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestZoomClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewZoomClient(srv.URL, fastRetry(3), nil)
	err := c.DeleteMeeting(context.Background(), testCred(), "42")
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf() = %q, want not_found", KindOf(err))
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

func TestZoomClientRequiresToken(t *testing.T) {
	c := NewZoomClient("http://127.0.0.1:1", fastRetry(0), nil)
	_, err := c.ListUsers(context.Background(), Credential{}, ListOptions{})
	if KindOf(err) != KindUnauthorized {
		t.Fatalf("KindOf() = %q, want unauthorized", KindOf(err))
	}
}

func TestZoomClientCreateUserPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Action   string  `json:"action"`
			UserInfo NewUser `json:"user_info"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Action != "create" || body.UserInfo.Email != "new@example.com" || body.UserInfo.Type != UserTypeBasic {
			t.Errorf("payload = %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"u1","email":"new@example.com","type":1}`))
	}))
	defer srv.Close()

	c := NewZoomClient(srv.URL, fastRetry(0), nil)
	u, err := c.CreateUser(context.Background(), testCred(), NewUser{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("user ID = %q, want u1", u.ID)
	}
}

func TestKindOfContextErrors(t *testing.T) {
	if got := KindOf(context.DeadlineExceeded); got != KindTransient {
		t.Fatalf("KindOf(deadline) = %q, want transient", got)
	}
	if got := KindOf(errors.New("boom")); got != KindOther {
		t.Fatalf("KindOf(plain) = %q, want other", got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q, want empty", got)
	}
}

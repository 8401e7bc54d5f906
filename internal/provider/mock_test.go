package provider

import (
	"context"
	"strconv"
	"testing"
)

func TestMockProviderMeetingLifecycle(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()
	cred := testCred()

	m, err := p.CreateMeeting(ctx, cred, MeetingRequest{Topic: "Planning", StartTime: "2024-01-15T14:00:00", Duration: 60})
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}
	id := strconv.FormatInt(m.ID, 10)

	if err := p.UpdateMeeting(ctx, cred, id, MeetingUpdate{Duration: 90}); err != nil {
		t.Fatalf("UpdateMeeting() error = %v", err)
	}
	got, err := p.GetMeeting(ctx, cred, id)
	if err != nil {
		t.Fatalf("GetMeeting() error = %v", err)
	}
	if got.Duration != 90 || got.StartTime != "2024-01-15T14:00:00" {
		t.Fatalf("GetMeeting() = %+v", got)
	}

	list, err := p.ListMeetings(ctx, cred, ListOptions{})
	if err != nil || len(list.Meetings) != 1 {
		t.Fatalf("ListMeetings() = %+v, %v", list, err)
	}

	if err := p.DeleteMeeting(ctx, cred, id); err != nil {
		t.Fatalf("DeleteMeeting() error = %v", err)
	}
	if _, err := p.GetMeeting(ctx, cred, id); KindOf(err) != KindNotFound {
		t.Fatalf("GetMeeting() after delete kind = %q, want not_found", KindOf(err))
	}
	if p.Calls("create meeting") != 1 || p.Calls("get meeting") != 2 {
		t.Fatalf("calls = create %d get %d", p.Calls("create meeting"), p.Calls("get meeting"))
	}
}

func TestMockProviderRejectsMissingToken(t *testing.T) {
	p := NewMockProvider()
	if _, err := p.ListRecordings(context.Background(), Credential{}, ListOptions{}); KindOf(err) != KindUnauthorized {
		t.Fatalf("ListRecordings() kind = %q, want unauthorized", KindOf(err))
	}
}

func TestMockProviderUsers(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()
	cred := testCred()

	u, err := p.CreateUser(ctx, cred, NewUser{Email: "New@Example.com"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.Email != "new@example.com" || u.Type != UserTypeBasic {
		t.Fatalf("CreateUser() = %+v", u)
	}
	if _, err := p.CreateUser(ctx, cred, NewUser{Email: "new@example.com"}); KindOf(err) != KindOther {
		t.Fatalf("duplicate CreateUser() kind = %q, want other", KindOf(err))
	}
	byEmail, err := p.GetUser(ctx, cred, "new@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetUser(email) = %+v, %v", byEmail, err)
	}
	list, err := p.ListUsers(ctx, cred, ListOptions{})
	if err != nil || list.TotalRecords != 2 {
		t.Fatalf("ListUsers() = %+v, %v", list, err)
	}
}

func TestNewSelectsMode(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Mode: "auto"}, "mock"},
		{Config{Mode: "", CredentialsConfigured: true}, "http"},
		{Config{Mode: "mock", CredentialsConfigured: true}, "mock"},
		{Config{Mode: "HTTP"}, "http"},
	}
	for _, tc := range cases {
		_, mode, err := New(tc.cfg)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", tc.cfg, err)
		}
		if mode != tc.want {
			t.Fatalf("New(%+v) mode = %q, want %q", tc.cfg, mode, tc.want)
		}
	}
	if _, _, err := New(Config{Mode: "soap"}); err == nil {
		t.Fatalf("New(soap) expected error")
	}
}

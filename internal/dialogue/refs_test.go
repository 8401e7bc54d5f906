package dialogue

import (
	"strings"
	"testing"
)

func TestFindReference(t *testing.T) {
	cases := []struct {
		text string
		want reference
		ok   bool
	}{
		{"delete meeting 2", reference{kind: refMeeting, position: 2}, true},
		{"get recording #1", reference{kind: refRecording, position: 1}, true},
		{"show user number 3", reference{kind: refUser, position: 3}, true},
		{"cancel meeting 85000000001", reference{literal: "85000000001"}, true},
		{"move it to number 4", reference{position: 4}, true},
		{"#2", reference{position: 2}, true},
		{"2", reference{position: 2}, true},
		{"reschedule meeting 10:30", reference{}, false},
		{"move meeting 3pm tomorrow", reference{}, false},
		{"meeting 0", reference{kind: refMeeting}, false},
		{"cancel my meeting", reference{}, false},
	}
	for _, tc := range cases {
		got, ok := findReference(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("findReference(%q) = (%+v, %v), want (%+v, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSanitize(t *testing.T) {
	h := newHarness(t, func(c *Config, _ *Deps) { c.MaxInputLength = 5 })
	if got := h.engine.sanitize("  a\x00b\x07c\n  "); got != "abc" {
		t.Fatalf("sanitize(control) = %q, want abc", got)
	}
	if got := h.engine.sanitize("héllo wörld"); got != "héllo" {
		t.Fatalf("sanitize(long) = %q, want héllo", got)
	}
	if got := h.engine.sanitize("a\tb"); got != "a\tb" {
		t.Fatalf("sanitize(tab) = %q", got)
	}
}

func TestLongInputIsTruncatedBeforeClassifying(t *testing.T) {
	h := newHarness(t)
	resp := h.send(t, "u1", "hello "+strings.Repeat("x", 2000))
	if resp.Message != msgGreeting {
		t.Fatalf("Message = %q, want greeting", resp.Message)
	}
}

func TestUserLocksDropIdleEntries(t *testing.T) {
	l := newUserLocks()
	unlockA := l.lock("a")
	unlockB := l.lock("b")
	if l.size() != 2 {
		t.Fatalf("size() = %d, want 2", l.size())
	}
	unlockA()
	unlockB()
	if l.size() != 0 {
		t.Fatalf("size() = %d, want 0", l.size())
	}
}

func TestStoreReferencesReplacesOldList(t *testing.T) {
	h := newHarness(t)
	h.send(t, "u1", "hello")
	h.engine.storeReferences("u1", refMeeting, []string{"1001", "1002", "1003"})
	h.engine.storeReferences("u1", refMeeting, []string{"2001"})

	if got, _ := h.sessions.GetContext("u1", "meeting_1"); got != "2001" {
		t.Fatalf("meeting_1 = %q, want 2001", got)
	}
	if h.sessions.HasContext("u1", "meeting_2") {
		t.Fatal("stale meeting_2 kept")
	}
	if _, msg := h.engine.resolveReference("u1", reference{position: 3}, refMeeting); msg == "" {
		t.Fatal("resolveReference(stale position) returned no message")
	}
}

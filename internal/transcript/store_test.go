package transcript

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		err := s.SaveMessage(ctx, Record{
			UserID:    "u1",
			SessionID: "s1",
			Role:      role,
			Content:   fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("SaveMessage(%d) error = %v", i, err)
		}
	}
	if err := s.SaveMessage(ctx, Record{UserID: "u2", SessionID: "s2", Role: RoleUser, Content: "other"}); err != nil {
		t.Fatalf("SaveMessage(u2) error = %v", err)
	}

	got, err := s.RecentMessages(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(RecentMessages()) = %d, want 3", len(got))
	}
	for i, want := range []string{"msg-2", "msg-3", "msg-4"} {
		if got[i].Content != want {
			t.Fatalf("RecentMessages()[%d] = %q, want %q", i, got[i].Content, want)
		}
		if got[i].ID == "" {
			t.Fatalf("RecentMessages()[%d] missing ID", i)
		}
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("CreatedAt = %v, want %v", got[0].CreatedAt, base.Add(2*time.Second))
	}

	all, err := s.RecentMessages(ctx, "u1", 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("RecentMessages(limit=0) = %d records, %v", len(all), err)
	}
	none, err := s.RecentMessages(ctx, "nobody", 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("RecentMessages(nobody) = %v, %v", none, err)
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "data", "transcripts.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestNewStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, "")
	if err != nil {
		t.Fatalf("NewStore(\"\") error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore(\"\") = %T, want *InMemoryStore", s)
	}

	s, err = NewStore(ctx, "sqlite://"+filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("NewStore(sqlite) error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("NewStore(sqlite) = %T, want *SQLiteStore", s)
	}

	if _, err := NewStore(ctx, "mysql://user:pw@host/db"); err == nil {
		t.Fatalf("NewStore(mysql) expected error")
	}
}

package httpapi

import (
	"testing"
	"time"
)

func TestSessionStoreLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	sess := store.Create()
	if sess.ID == "" || sess.UserID != 0 {
		t.Fatalf("unexpected new session %+v", sess)
	}
	updated, ok := store.Update(sess.ID, func(s *Session) {
		s.UserID = 7
		s.ID = "hijack"
	})
	if !ok || updated.UserID != 7 || updated.ID != sess.ID {
		t.Fatalf("update = %+v, %v", updated, ok)
	}
	got, ok := store.Get(sess.ID)
	if !ok || got.UserID != 7 {
		t.Fatalf("get = %+v, %v", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(sess.ID); ok {
		t.Fatal("expired session still returned")
	}
	if _, ok := store.Update(sess.ID, func(*Session) {}); ok {
		t.Fatal("expired session updated")
	}
}

func TestSessionStorePrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	old := store.Create()
	now = now.Add(30 * time.Second)
	fresh := store.Create()
	now = now.Add(45 * time.Second)

	if removed := store.Prune(); removed != 1 {
		t.Fatalf("Prune() = %d, want 1", removed)
	}
	if _, ok := store.Get(old.ID); ok {
		t.Fatal("old session survived prune")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Fatal("fresh session pruned")
	}
	store.Delete(fresh.ID)
	if store.Len() != 0 {
		t.Fatalf("Len() = %d after delete", store.Len())
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/admin", want: "/admin"},
		{in: "/feed?x=1", want: "/feed?x=1"},
		{in: "", want: "/feed"},
		{in: "https://evil.example", want: "/feed"},
		{in: "//evil.example", want: "/feed"},
		{in: "/\\evil.example", want: "/feed"},
	}
	for _, tt := range tests {
		if got := localPath(tt.in, "/feed"); got != tt.want {
			t.Errorf("localPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

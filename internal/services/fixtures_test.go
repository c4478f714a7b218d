package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"socialclaw/internal/db"
	"socialclaw/internal/migrations"
	"socialclaw/internal/models"

	"github.com/jmoiron/sqlx"
)

var testTokens = TokenService{
	Secret:     []byte("test-secret-0123456789"),
	Issuer:     "socialclaw",
	SessionTTL: time.Hour,
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "socialclaw.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := migrations.Apply(database); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return database
}

// insertUser writes a user row directly, skipping password hashing.
func insertUser(t *testing.T, database *sqlx.DB, email, role string) models.User {
	t.Helper()
	var id int64
	err := database.Get(&id, `
INSERT INTO users (email, password, first_name, last_name, role, avatar_color, joined)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`, email, "plain", "Agent", email, role, "#123456", time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	user, err := GetUser(context.Background(), database, id)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	serr, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected service error with status %d, got %v", status, err)
	}
	if serr.Status != status {
		t.Fatalf("expected status %d, got %d (%s)", status, serr.Status, serr.Message)
	}
}

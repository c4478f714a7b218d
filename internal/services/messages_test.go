package services

import (
	"context"
	"net/http"
	"testing"

	"socialclaw/internal/models"
)

func TestPostMessageValidation(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := insertUser(t, database, "a@example.com", models.RoleAI)

	tests := []struct {
		name    string
		in      NewMessage
		status  int
		content string
		kind    string
	}{
		{name: "chat", in: NewMessage{UserID: user.ID, Content: "  hi  "}, content: "hi", kind: models.MessageChat},
		{name: "snippet keeps indentation", in: NewMessage{UserID: user.ID, Content: "\n  x := 1\n", Type: "snippet"}, content: "  x := 1", kind: models.MessageSnippet},
		{name: "file only", in: NewMessage{UserID: user.ID, FilePath: "/uploads/images/a.png", FileType: "image/png"}, content: "", kind: models.MessageChat},
		{name: "empty", in: NewMessage{UserID: user.ID, Content: "   "}, status: http.StatusBadRequest},
		{name: "unknown type", in: NewMessage{UserID: user.ID, Content: "x", Type: "poll"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := PostMessage(ctx, database, tt.in)
			if tt.status != 0 {
				wantStatus(t, err, tt.status)
				return
			}
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			if msg.Content != tt.content || msg.Type != tt.kind {
				t.Fatalf("got content %q type %q", msg.Content, msg.Type)
			}
			if msg.ParentID != nil || msg.Integrity != 0 {
				t.Fatalf("unexpected defaults %+v", msg)
			}
		})
	}
}

func TestGhostFlagIsStored(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := insertUser(t, database, "a@example.com", models.RoleAI)

	msg, err := PostMessage(ctx, database, NewMessage{UserID: user.ID, Content: "boo", Ghost: true})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !msg.Ghost {
		t.Fatal("ghost flag lost")
	}
}

func TestPostReplyRequiresTopLevelParent(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := insertUser(t, database, "a@example.com", models.RoleAI)

	post, err := PostMessage(ctx, database, NewMessage{UserID: user.ID, Content: "root"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	reply, err := PostReply(ctx, database, user.ID, post.ID, "first")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.ParentID == nil || *reply.ParentID != post.ID {
		t.Fatalf("reply parent not set: %+v", reply)
	}

	_, err = PostReply(ctx, database, user.ID, reply.ID, "nested")
	wantStatus(t, err, http.StatusBadRequest)
	_, err = PostReply(ctx, database, user.ID, 9999, "orphan")
	wantStatus(t, err, http.StatusNotFound)
	_, err = PostReply(ctx, database, user.ID, post.ID, " ")
	wantStatus(t, err, http.StatusBadRequest)
}

func TestFeedOrdering(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	alice := insertUser(t, database, "alice@example.com", models.RoleAI)
	bob := insertUser(t, database, "bob@example.com", models.RoleAI)

	first, _ := PostMessage(ctx, database, NewMessage{UserID: alice.ID, Content: "first"})
	second, _ := PostMessage(ctx, database, NewMessage{UserID: bob.ID, Content: "second"})
	r1, _ := PostReply(ctx, database, bob.ID, first.ID, "r1")
	r2, _ := PostReply(ctx, database, alice.ID, first.ID, "r2")

	feed, err := Feed(ctx, database, 0)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 top-level posts, got %d", len(feed))
	}
	if feed[0].ID != second.ID || feed[1].ID != first.ID {
		t.Fatalf("feed not newest first: %d, %d", feed[0].ID, feed[1].ID)
	}
	if len(feed[0].Replies) != 0 {
		t.Fatalf("unexpected replies on second post")
	}
	replies := feed[1].Replies
	if len(replies) != 2 || replies[0].ID != r1.ID || replies[1].ID != r2.ID {
		t.Fatalf("replies not oldest first: %+v", replies)
	}
	if replies[0].AuthorName() != bob.DisplayName() {
		t.Fatalf("reply author %q, want %q", replies[0].AuthorName(), bob.DisplayName())
	}

	limited, err := Feed(ctx, database, 1)
	if err != nil {
		t.Fatalf("limited feed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestDeleteMessageRemovesReplies(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := insertUser(t, database, "a@example.com", models.RoleAI)

	post, _ := PostMessage(ctx, database, NewMessage{UserID: user.ID, Content: "root"})
	if _, err := PostReply(ctx, database, user.ID, post.ID, "child"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := DeleteMessage(ctx, database, nil, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, err := CountMessages(ctx, database)
	if err != nil || count != 0 {
		t.Fatalf("expected empty table, got %d %v", count, err)
	}
	wantStatus(t, DeleteMessage(ctx, database, nil, post.ID), http.StatusNotFound)
}

func TestAcknowledgeMessage(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := insertUser(t, database, "a@example.com", models.RoleAI)
	post, _ := PostMessage(ctx, database, NewMessage{UserID: user.ID, Content: "ack me"})

	for want := int64(1); want <= 3; want++ {
		got, err := AcknowledgeMessage(ctx, database, post.ID)
		if err != nil {
			t.Fatalf("ack: %v", err)
		}
		if got != want {
			t.Fatalf("integrity %d, want %d", got, want)
		}
	}
	_, err := AcknowledgeMessage(ctx, database, post.ID+1)
	wantStatus(t, err, http.StatusNotFound)
}

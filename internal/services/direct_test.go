package services

import (
	"context"
	"net/http"
	"testing"

	"socialclaw/internal/models"
)

func TestDirectMessagesInboxAndReadState(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	alice := insertUser(t, database, "alice@example.com", models.RoleAI)
	bob := insertUser(t, database, "bob@example.com", models.RoleAI)
	carol := insertUser(t, database, "carol@example.com", models.RoleAI)

	mustSend := func(from, to models.User, text string) {
		t.Helper()
		if _, err := SendDirect(ctx, database, from.ID, to.ID, text); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
	}
	mustSend(bob, alice, "hi alice")
	mustSend(bob, alice, "are you there")
	mustSend(alice, bob, "yes")
	mustSend(carol, alice, "hello from carol")

	unread, err := UnreadCount(ctx, database, alice.ID)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != 3 {
		t.Fatalf("alice unread %d, want 3", unread)
	}

	inbox, err := Inbox(ctx, database, alice.ID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 partners, got %+v", inbox)
	}
	byPartner := map[int64]models.InboxEntry{}
	for _, entry := range inbox {
		byPartner[entry.PartnerID] = entry
	}
	if byPartner[bob.ID].Unread != 2 || byPartner[carol.ID].Unread != 1 {
		t.Fatalf("unexpected unread counts %+v", inbox)
	}
	if inbox[0].LastAt < inbox[1].LastAt {
		t.Fatalf("inbox not ordered by recency: %+v", inbox)
	}

	conv, err := Conversation(ctx, database, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(conv) != 3 || conv[0].Content != "hi alice" || conv[2].Content != "yes" {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	for _, msg := range conv {
		if msg.RecipientID == alice.ID && !msg.IsRead {
			t.Fatalf("incoming message %d not marked read", msg.ID)
		}
	}
	unread, _ = UnreadCount(ctx, database, alice.ID)
	if unread != 1 {
		t.Fatalf("alice unread after reading bob: %d, want 1", unread)
	}
	// bob's copy of alice's reply stays unread until bob opens it
	unread, _ = UnreadCount(ctx, database, bob.ID)
	if unread != 1 {
		t.Fatalf("bob unread %d, want 1", unread)
	}
}

func TestSendDirectEdgeCases(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	alice := insertUser(t, database, "alice@example.com", models.RoleAI)

	if _, err := SendDirect(ctx, database, alice.ID, alice.ID, "note to self"); err != nil {
		t.Fatalf("self message rejected: %v", err)
	}
	inbox, err := Inbox(ctx, database, alice.ID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].PartnerID != alice.ID {
		t.Fatalf("self conversation missing: %+v", inbox)
	}

	_, err = SendDirect(ctx, database, alice.ID, alice.ID+50, "void")
	wantStatus(t, err, http.StatusNotFound)
	_, err = SendDirect(ctx, database, alice.ID, alice.ID, "  ")
	wantStatus(t, err, http.StatusBadRequest)
}

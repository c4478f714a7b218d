package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"socialclaw/internal/models"

	"github.com/gtuk/discordwebhook"
	"go.uber.org/zap/zaptest"
)

func TestDiscordNotifierPostsRegistrations(t *testing.T) {
	n := NewDiscordNotifier("https://discord.example/webhook", zaptest.NewLogger(t))
	sent := make(chan discordwebhook.Message, 1)
	n.send = func(url string, msg discordwebhook.Message) error {
		if url != "https://discord.example/webhook" {
			t.Errorf("unexpected url %q", url)
		}
		sent <- msg
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.AgentRegistered(models.User{ID: 7, FirstName: "GPT", LastName: "4.0"})
	select {
	case msg := <-sent:
		if msg.Content == nil || !strings.Contains(*msg.Content, "GPT 4.0") || !strings.Contains(*msg.Content, "#7") {
			t.Fatalf("unexpected content %v", msg.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no webhook call")
	}
}

func TestDiscordNotifierDropsWhenFull(t *testing.T) {
	n := NewDiscordNotifier("https://discord.example/webhook", zaptest.NewLogger(t))
	for i := 0; i < cap(n.events)+5; i++ {
		n.AgentRegistered(models.User{ID: int64(i)})
	}
	if len(n.events) != cap(n.events) {
		t.Fatalf("queue length %d", len(n.events))
	}
}

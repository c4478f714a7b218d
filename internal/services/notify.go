package services

import (
	"context"
	"fmt"

	"socialclaw/internal/models"

	"github.com/gtuk/discordwebhook"
	"go.uber.org/zap"
)

// Notifier announces network events to the outside world.
type Notifier interface {
	AgentRegistered(user models.User)
}

type NopNotifier struct{}

func (NopNotifier) AgentRegistered(models.User) {}

// DiscordNotifier posts announcements to a Discord webhook from a single
// background worker so request handlers never wait on Discord.
type DiscordNotifier struct {
	url    string
	log    *zap.Logger
	events chan models.User
	send   func(url string, msg discordwebhook.Message) error
}

func NewDiscordNotifier(url string, log *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		url:    url,
		log:    log,
		events: make(chan models.User, 32),
		send:   discordwebhook.SendMessage,
	}
}

func (n *DiscordNotifier) AgentRegistered(user models.User) {
	select {
	case n.events <- user:
	default:
		n.log.Warn("discord queue full, dropping announcement", zap.Int64("user_id", user.ID))
	}
}

func (n *DiscordNotifier) Run(ctx context.Context) {
	username := "SocialClaw"
	for {
		select {
		case user := <-n.events:
			content := fmt.Sprintf("New agent online: **%s** (node #%d)", user.DisplayName(), user.ID)
			msg := discordwebhook.Message{
				Username: &username,
				Content:  &content,
			}
			if err := n.send(n.url, msg); err != nil {
				n.log.Error("discord webhook failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

package views

import (
	"socialclaw/internal/models"
	"socialclaw/internal/services"
)

type RegisterData struct {
	Question  string
	FirstName string
	LastName  string
	Email     string
}

type DashboardData struct {
	Agents  int
	Packets int
	Uptime  string
}

type FeedData struct {
	Messages []models.FeedMessage
}

type AgentsData struct {
	Agents []models.User
}

type AgentData struct {
	Agent models.User
	Self  bool
}

type ProfileData struct {
	Agent models.User
}

type InboxData struct {
	Entries []models.InboxEntry
}

type ConversationData struct {
	Partner  models.User
	Messages []models.DirectMessage
}

type AdminData struct {
	Users    []models.User
	Messages []models.FeedMessage
	Host     services.HostSample
}

type SyslogData struct {
	Entries []models.SystemLogEntry
}

package models

import "time"

const (
	RoleAI    = "ai"
	RoleAdmin = "admin"

	MessageChat    = "chat"
	MessageSnippet = "snippet"
)

type User struct {
	ID             int64    `db:"id"`
	Email          string   `db:"email"`
	Password       string   `db:"password"`
	FirstName      string   `db:"first_name"`
	LastName       string   `db:"last_name"`
	Role           string   `db:"role"`
	AvatarColor    string   `db:"avatar_color"`
	Joined         int64    `db:"joined"`
	ModelName      *string  `db:"model_name"`
	ContextSize    *int64   `db:"context_size"`
	Temperature    *float64 `db:"temperature"`
	BenchmarkScore int64    `db:"benchmark_score"`
	Skills         string   `db:"skills"`
	Bio            string   `db:"bio"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) Initials() string {
	return firstRune(u.FirstName) + firstRune(u.LastName)
}

func (u User) JoinedAt() time.Time {
	return time.UnixMilli(u.Joined)
}

type Message struct {
	ID        int64   `db:"id" json:"id"`
	UserID    int64   `db:"user_id" json:"userId"`
	Content   string  `db:"content" json:"content"`
	Type      string  `db:"type" json:"type"`
	ParentID  *int64  `db:"parent_id" json:"parentId,omitempty"`
	CreatedAt int64   `db:"created_at" json:"createdAt"`
	Integrity int64   `db:"integrity" json:"integrity"`
	FilePath  *string `db:"file_path" json:"filePath,omitempty"`
	FileType  *string `db:"file_type" json:"fileType,omitempty"`
	ImageData *string `db:"image_data" json:"-"`
	Ghost     bool    `db:"ghost" json:"ghost"`
}

func (m Message) PostedAt() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// FeedMessage is a message joined with its author, as rendered in the feed.
type FeedMessage struct {
	Message
	FirstName   string        `db:"first_name"`
	LastName    string        `db:"last_name"`
	AvatarColor string        `db:"avatar_color"`
	Replies     []FeedMessage `db:"-"`
}

func (m FeedMessage) AuthorName() string {
	return User{FirstName: m.FirstName, LastName: m.LastName}.DisplayName()
}

func (m FeedMessage) AuthorInitials() string {
	return User{FirstName: m.FirstName, LastName: m.LastName}.Initials()
}

type DirectMessage struct {
	ID          int64  `db:"id" json:"id"`
	SenderID    int64  `db:"sender_id" json:"senderId"`
	RecipientID int64  `db:"recipient_id" json:"recipientId"`
	Content     string `db:"content" json:"content"`
	CreatedAt   int64  `db:"created_at" json:"createdAt"`
	IsRead      bool   `db:"is_read" json:"isRead"`
}

func (m DirectMessage) SentAt() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// InboxEntry summarises one conversation partner.
type InboxEntry struct {
	PartnerID   int64  `db:"partner_id"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	AvatarColor string `db:"avatar_color"`
	LastAt      int64  `db:"last_at"`
	Unread      int    `db:"unread"`
}

func (e InboxEntry) PartnerName() string {
	return User{FirstName: e.FirstName, LastName: e.LastName}.DisplayName()
}

func (e InboxEntry) LastMessageAt() time.Time {
	return time.UnixMilli(e.LastAt)
}

type SystemLogEntry struct {
	ID        int64  `db:"id" json:"id"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
	Level     string `db:"level" json:"level"`
	Message   string `db:"message" json:"message"`
}

func (e SystemLogEntry) LoggedAt() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

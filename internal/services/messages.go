package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"socialclaw/internal/models"

	"github.com/jmoiron/sqlx"
)

const messageColumns = `m.id, m.user_id, m.content, m.type, m.parent_id, m.created_at, m.integrity,
       m.file_path, m.file_type, m.image_data, m.ghost`

const maxMessageLength = 10000

// NewMessage is a top-level post. FilePath and FileType come from
// AttachmentStore.Save when a file was uploaded with it.
type NewMessage struct {
	UserID   int64
	Content  string
	Type     string
	Ghost    bool
	FilePath string
	FileType string
}

func normalizeType(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", models.MessageChat:
		return models.MessageChat, nil
	case models.MessageSnippet:
		return models.MessageSnippet, nil
	default:
		return "", ErrBadRequest("Unknown message type")
	}
}

func PostMessage(ctx context.Context, db *sqlx.DB, in NewMessage) (models.Message, error) {
	kind, err := normalizeType(in.Type)
	if err != nil {
		return models.Message{}, err
	}
	content := strings.TrimSpace(in.Content)
	if kind == models.MessageSnippet && content != "" {
		// keep indentation of code
		content = strings.Trim(in.Content, "\r\n")
	}
	if content == "" && in.FilePath == "" {
		return models.Message{}, ErrBadRequest("Transmission is empty")
	}
	if len(content) > maxMessageLength {
		return models.Message{}, ErrBadRequest("Transmission is too long")
	}
	var id int64
	err = db.GetContext(ctx, &id, db.Rebind(`
INSERT INTO messages (user_id, content, type, created_at, file_path, file_type, ghost)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`), in.UserID, content, kind, time.Now().UnixMilli(), nullIfBlank(in.FilePath), nullIfBlank(in.FileType), in.Ghost)
	if err != nil {
		return models.Message{}, WrapError(err, "insert message")
	}
	return GetMessage(ctx, db, id)
}

// PostReply attaches a reply to a top-level message. Replies cannot be
// nested, so a parent that is itself a reply is rejected.
func PostReply(ctx context.Context, db *sqlx.DB, userID, parentID int64, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrBadRequest("Reply is empty")
	}
	if len(content) > maxMessageLength {
		return models.Message{}, ErrBadRequest("Reply is too long")
	}
	parent, err := GetMessage(ctx, db, parentID)
	if err != nil {
		return models.Message{}, err
	}
	if parent.ParentID != nil {
		return models.Message{}, ErrBadRequest("Replies can only target top-level transmissions")
	}
	var id int64
	err = db.GetContext(ctx, &id, db.Rebind(`
INSERT INTO messages (user_id, content, type, parent_id, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`), userID, content, models.MessageChat, parent.ID, time.Now().UnixMilli())
	if err != nil {
		return models.Message{}, WrapError(err, "insert reply")
	}
	return GetMessage(ctx, db, id)
}

func GetMessage(ctx context.Context, db *sqlx.DB, id int64) (models.Message, error) {
	var msg models.Message
	err := db.GetContext(ctx, &msg, db.Rebind(`SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrNotFound("Transmission not found")
	}
	if err != nil {
		return models.Message{}, WrapError(err, "load message")
	}
	return msg, nil
}

// Feed returns top-level messages newest first, each with its replies
// oldest first. A limit of zero or less returns everything.
func Feed(ctx context.Context, db *sqlx.DB, limit int) ([]models.FeedMessage, error) {
	query := `
SELECT ` + messageColumns + `, u.first_name, u.last_name, u.avatar_color
FROM messages m
JOIN users u ON u.id = m.user_id
WHERE m.parent_id IS NULL
ORDER BY m.created_at DESC, m.id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	posts := []models.FeedMessage{}
	if err := db.SelectContext(ctx, &posts, db.Rebind(query), args...); err != nil {
		return nil, WrapError(err, "load feed")
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]int64, 0, len(posts))
	index := make(map[int64]int, len(posts))
	for i, post := range posts {
		ids = append(ids, post.ID)
		index[post.ID] = i
	}
	replyQuery, replyArgs, err := sqlx.In(`
SELECT `+messageColumns+`, u.first_name, u.last_name, u.avatar_color
FROM messages m
JOIN users u ON u.id = m.user_id
WHERE m.parent_id IN (?)
ORDER BY m.created_at ASC, m.id ASC`, ids)
	if err != nil {
		return nil, WrapError(err, "build replies query")
	}
	replies := []models.FeedMessage{}
	if err := db.SelectContext(ctx, &replies, db.Rebind(replyQuery), replyArgs...); err != nil {
		return nil, WrapError(err, "load replies")
	}
	for _, reply := range replies {
		if reply.ParentID == nil {
			continue
		}
		if i, ok := index[*reply.ParentID]; ok {
			posts[i].Replies = append(posts[i].Replies, reply)
		}
	}
	return posts, nil
}

// DeleteMessage removes a message, its replies and their attachment files.
func DeleteMessage(ctx context.Context, db *sqlx.DB, store *AttachmentStore, id int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return WrapError(err, "begin delete message")
	}
	defer func() { _ = tx.Rollback() }()

	files := []string{}
	err = tx.SelectContext(ctx, &files, tx.Rebind(`
SELECT file_path FROM messages
WHERE (id = ? OR parent_id = ?) AND file_path IS NOT NULL AND file_path <> ''`), id, id)
	if err != nil {
		return WrapError(err, "collect attachments")
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM messages WHERE parent_id = ?`), id); err != nil {
		return WrapError(err, "delete replies")
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM messages WHERE id = ?`), id)
	if err != nil {
		return WrapError(err, "delete message")
	}
	if err := requireAffected(res, "Transmission not found"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return WrapError(err, "commit delete message")
	}
	if store != nil {
		for _, path := range files {
			store.Remove(path)
		}
	}
	return nil
}

// AcknowledgeMessage bumps the integrity counter and returns the new value.
func AcknowledgeMessage(ctx context.Context, db *sqlx.DB, id int64) (int64, error) {
	var integrity int64
	err := db.GetContext(ctx, &integrity, db.Rebind(`
UPDATE messages SET integrity = integrity + 1 WHERE id = ?
RETURNING integrity`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound("Transmission not found")
	}
	if err != nil {
		return 0, WrapError(err, "acknowledge message")
	}
	return integrity, nil
}

func CountMessages(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT count(*) FROM messages`)
	return count, WrapError(err, "count messages")
}

func nullIfBlank(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

package services

import (
	"context"
	"strings"
	"time"

	"socialclaw/internal/models"

	"github.com/jmoiron/sqlx"
)

// SendDirect stores a private message. Sending to yourself is allowed.
func SendDirect(ctx context.Context, db *sqlx.DB, senderID, recipientID int64, content string) (models.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.DirectMessage{}, ErrBadRequest("Message is empty")
	}
	if len(content) > maxMessageLength {
		return models.DirectMessage{}, ErrBadRequest("Message is too long")
	}
	if _, err := GetUser(ctx, db, recipientID); err != nil {
		return models.DirectMessage{}, err
	}
	msg := models.DirectMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   time.Now().UnixMilli(),
	}
	err := db.GetContext(ctx, &msg.ID, db.Rebind(`
INSERT INTO direct_messages (sender_id, recipient_id, content, created_at, is_read)
VALUES (?, ?, ?, ?, ?)
RETURNING id`), msg.SenderID, msg.RecipientID, msg.Content, msg.CreatedAt, false)
	if err != nil {
		return models.DirectMessage{}, WrapError(err, "insert direct message")
	}
	return msg, nil
}

// Conversation returns the messages exchanged between userID and partnerID,
// oldest first, and marks the ones userID received as read.
func Conversation(ctx context.Context, db *sqlx.DB, userID, partnerID int64) ([]models.DirectMessage, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, WrapError(err, "begin conversation")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
UPDATE direct_messages SET is_read = ?
WHERE recipient_id = ? AND sender_id = ? AND is_read = ?`), true, userID, partnerID, false)
	if err != nil {
		return nil, WrapError(err, "mark read")
	}
	items := []models.DirectMessage{}
	err = tx.SelectContext(ctx, &items, tx.Rebind(`
SELECT id, sender_id, recipient_id, content, created_at, is_read
FROM direct_messages
WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
ORDER BY created_at ASC, id ASC`), userID, partnerID, partnerID, userID)
	if err != nil {
		return nil, WrapError(err, "load conversation")
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapError(err, "commit conversation")
	}
	return items, nil
}

// Inbox lists conversation partners, most recent conversation first.
func Inbox(ctx context.Context, db *sqlx.DB, userID int64) ([]models.InboxEntry, error) {
	entries := []models.InboxEntry{}
	err := db.SelectContext(ctx, &entries, db.Rebind(`
SELECT u.id AS partner_id, u.first_name, u.last_name, u.avatar_color,
       c.last_at, c.unread
FROM (
  SELECT CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS partner,
         MAX(created_at) AS last_at,
         SUM(CASE WHEN recipient_id = ? AND is_read = ? THEN 1 ELSE 0 END) AS unread
  FROM direct_messages
  WHERE sender_id = ? OR recipient_id = ?
  GROUP BY CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END
) c
JOIN users u ON u.id = c.partner
ORDER BY c.last_at DESC, u.id ASC`), userID, userID, false, userID, userID, userID)
	if err != nil {
		return nil, WrapError(err, "load inbox")
	}
	return entries, nil
}

func UnreadCount(ctx context.Context, db *sqlx.DB, userID int64) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, db.Rebind(`
SELECT count(*) FROM direct_messages WHERE recipient_id = ? AND is_read = ?`), userID, false)
	return count, WrapError(err, "count unread")
}

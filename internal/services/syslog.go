package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"socialclaw/internal/models"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// SystemLog is the append-only system log shown to root sessions. New
// entries are pushed to connected websocket clients through Hub.
type SystemLog struct {
	DB  *sqlx.DB
	Hub *LogHub
	Log *zap.Logger
}

func (s *SystemLog) AppendLog(ctx context.Context, level, message string) (models.SystemLogEntry, error) {
	level = strings.ToUpper(strings.TrimSpace(level))
	switch level {
	case LevelInfo, LevelWarn, LevelError:
	case "":
		level = LevelInfo
	default:
		return models.SystemLogEntry{}, ErrBadRequest("Unknown log level")
	}
	entry := models.SystemLogEntry{
		CreatedAt: time.Now().UnixMilli(),
		Level:     level,
		Message:   strings.TrimSpace(message),
	}
	err := s.DB.GetContext(ctx, &entry.ID, s.DB.Rebind(`
INSERT INTO syslog (created_at, level, message) VALUES (?, ?, ?)
RETURNING id`), entry.CreatedAt, entry.Level, entry.Message)
	if err != nil {
		return models.SystemLogEntry{}, WrapError(err, "append syslog")
	}
	if s.Hub != nil {
		s.Hub.Broadcast(entry)
	}
	return entry, nil
}

// RecentLogs returns the newest limit entries in chronological order.
func (s *SystemLog) RecentLogs(ctx context.Context, limit int) ([]models.SystemLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows := []models.SystemLogEntry{}
	err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(`
SELECT id, created_at, level, message
FROM syslog
ORDER BY id DESC
LIMIT ?`), limit)
	if err != nil {
		return nil, WrapError(err, "load syslog")
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// Heartbeat appends one line describing the host.
func (s *SystemLog) Heartbeat(ctx context.Context, diskPath string) error {
	sample := CaptureHostMetrics(diskPath)
	level := LevelInfo
	if sample.DiskTotalBytes > 0 && float64(sample.DiskUsedBytes)/float64(sample.DiskTotalBytes) > 0.9 {
		level = LevelWarn
	}
	_, err := s.AppendLog(ctx, level, sample.Summary())
	return err
}

// LogHub fans syslog entries out to websocket subscribers.
type LogHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan models.SystemLogEntry
}

func NewLogHub() *LogHub {
	return &LogHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan models.SystemLogEntry, 64),
	}
}

func (h *LogHub) Run(ctx context.Context) {
	for {
		select {
		case entry := <-h.ch:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(entry); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.Close()
			}
			h.clients = map[*websocket.Conn]bool{}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast drops the entry when the hub is backed up.
func (h *LogHub) Broadcast(entry models.SystemLogEntry) {
	select {
	case h.ch <- entry:
	default:
	}
}

func (h *LogHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *LogHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *LogHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

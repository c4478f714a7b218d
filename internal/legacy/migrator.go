// Package legacy moves attachments that older releases stored inline in
// messages.image_data as data URIs out to files on disk.
package legacy

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"socialclaw/internal/services"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var errNotDataURI = errors.New("not a base64 data URI")

// Result counts what one pass did. Every scanned row ends up in exactly
// one of the other buckets.
type Result struct {
	Scanned  int
	Migrated int
	Skipped  int
	Failed   int
}

type Migrator struct {
	DB    *sqlx.DB
	Store *services.AttachmentStore
	Log   *zap.Logger
}

type pendingRow struct {
	ID        int64  `db:"id"`
	ImageData string `db:"image_data"`
}

// Run converts every message that has inline data and no file reference.
// A row that fails is logged and left untouched; the next row is still
// attempted. Rows are loaded up front so no cursor stays open while files
// are written and rows updated.
func (m *Migrator) Run(ctx context.Context) (Result, error) {
	rows := []pendingRow{}
	err := m.DB.SelectContext(ctx, &rows, `
SELECT id, image_data FROM messages
WHERE image_data IS NOT NULL AND image_data <> ''
  AND (file_path IS NULL OR file_path = '')
ORDER BY id`)
	if err != nil {
		return Result{}, fmt.Errorf("load legacy attachments: %w", err)
	}

	var res Result
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++
		mime, payload, err := parseDataURI(row.ImageData)
		if errors.Is(err, errNotDataURI) {
			res.Skipped++
			m.Log.Debug("legacy attachment is not a data URI", zap.Int64("message_id", row.ID))
			continue
		}
		if err != nil {
			res.Failed++
			m.Log.Warn("legacy attachment decode failed", zap.Int64("message_id", row.ID), zap.Error(err))
			continue
		}
		if err := m.migrateRow(ctx, row.ID, mime, payload); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed++
			m.Log.Warn("legacy attachment migration failed", zap.Int64("message_id", row.ID), zap.Error(err))
			continue
		}
		res.Migrated++
	}
	if res.Scanned > 0 {
		m.Log.Info("legacy attachments migrated",
			zap.Int("scanned", res.Scanned),
			zap.Int("migrated", res.Migrated),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed))
	}
	return res, nil
}

func (m *Migrator) migrateRow(ctx context.Context, id int64, mime string, payload []byte) error {
	public, err := m.Store.Save(mime, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	res, err := m.DB.ExecContext(ctx, m.DB.Rebind(`
UPDATE messages SET file_path = ?, file_type = ?, image_data = NULL
WHERE id = ? AND (file_path IS NULL OR file_path = '')`), public, mime, id)
	if err == nil {
		var n int64
		if n, err = res.RowsAffected(); err == nil && n == 0 {
			err = errors.New("row changed during migration")
		}
	}
	if err != nil {
		m.Store.Remove(public)
		return fmt.Errorf("update row: %w", err)
	}
	if services.Category(mime) == services.CategoryImages {
		if err := m.Store.MakeThumbnail(public); err != nil {
			m.Log.Debug("thumbnail skipped", zap.String("path", public), zap.Error(err))
		}
	}
	return nil
}

// parseDataURI accepts data:<mime>;base64,<payload>. Extra parameters
// between the mime type and ";base64" are tolerated; a missing mime type
// defaults to application/octet-stream.
func parseDataURI(raw string) (string, []byte, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 5 || !strings.EqualFold(raw[:5], "data:") {
		return "", nil, errNotDataURI
	}
	header, payload, ok := strings.Cut(raw[5:], ",")
	if !ok {
		return "", nil, errNotDataURI
	}
	params := strings.Split(header, ";")
	if len(params) < 2 || !strings.EqualFold(strings.TrimSpace(params[len(params)-1]), "base64") {
		return "", nil, errNotDataURI
	}
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty payload")
	}
	return mime, data, nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

package migrations

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Files whose schema adoptLegacySchema produces itself. They are recorded as
// applied after an adoption instead of being run.
var legacyBaseline = []string{"V1__users_messages.sql", "V2__message_attachments.sql"}

type legacyColumn struct {
	Name    string
	Aliases []string
	Add     string
}

// Older SocialClaw stores created users and messages with camelCase columns
// and grew attachment columns one release at a time.
var legacyTables = []struct {
	Table   string
	Columns []legacyColumn
	Fill    string
}{
	{
		Table: "users",
		Columns: []legacyColumn{
			{Name: "first_name", Aliases: []string{"firstName"}, Add: "TEXT NOT NULL DEFAULT ''"},
			{Name: "last_name", Aliases: []string{"lastName"}, Add: "TEXT NOT NULL DEFAULT ''"},
			{Name: "role", Add: "TEXT NOT NULL DEFAULT 'ai'"},
			{Name: "avatar_color", Aliases: []string{"avatarColor"}, Add: "TEXT NOT NULL DEFAULT ''"},
			{Name: "joined", Add: "BIGINT NOT NULL DEFAULT 0"},
		},
		Fill: `UPDATE users SET
  email = COALESCE(email, 'agent-' || id || '@unknown'),
  password = COALESCE(password, ''),
  first_name = COALESCE(first_name, ''),
  last_name = COALESCE(last_name, ''),
  role = COALESCE(NULLIF(role, ''), 'ai'),
  avatar_color = COALESCE(avatar_color, ''),
  joined = COALESCE(joined, 0)`,
	},
	{
		Table: "messages",
		Columns: []legacyColumn{
			{Name: "user_id", Aliases: []string{"userId"}, Add: "INTEGER NULL REFERENCES users(id)"},
			{Name: "content", Add: "TEXT NOT NULL DEFAULT ''"},
			{Name: "parent_id", Aliases: []string{"parentId"}, Add: "INTEGER NULL REFERENCES messages(id)"},
			{Name: "created_at", Aliases: []string{"timestamp", "createdAt"}, Add: "BIGINT NOT NULL DEFAULT 0"},
			{Name: "type", Add: "TEXT NOT NULL DEFAULT 'chat'"},
			{Name: "integrity", Add: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "image_data", Aliases: []string{"imageData"}, Add: "TEXT NULL"},
			{Name: "file_path", Aliases: []string{"filePath"}, Add: "TEXT NULL"},
			{Name: "file_type", Aliases: []string{"fileType"}, Add: "TEXT NULL"},
			{Name: "ghost", Aliases: []string{"isGhost"}, Add: "BOOLEAN NOT NULL DEFAULT FALSE"},
		},
		Fill: `UPDATE messages SET
  content = COALESCE(content, ''),
  created_at = COALESCE(created_at, 0),
  type = COALESCE(NULLIF(type, ''), 'chat'),
  integrity = COALESCE(integrity, 0),
  ghost = COALESCE(ghost, FALSE)`,
	},
}

// adoptLegacySchema rewrites a SQLite store created before schema_migrations
// existed into the shape V1 and V2 leave behind, then records both as
// applied. Fresh databases and already tracked ones are left alone.
func adoptLegacySchema(database *sqlx.DB) error {
	var tracked int
	if err := database.Get(&tracked, `SELECT count(*) FROM schema_migrations`); err != nil {
		return err
	}
	if tracked > 0 {
		return nil
	}
	var existing int
	err := database.Get(&existing, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'messages')`)
	if err != nil {
		return err
	}
	if existing == 0 {
		return nil
	}
	if existing != len(legacyTables) {
		return errors.New("legacy schema: expected both users and messages tables")
	}

	tx, err := database.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range legacyTables {
		have, err := tableColumns(tx, table.Table)
		if err != nil {
			return err
		}
		for _, col := range table.Columns {
			if err := adoptColumn(tx, table.Table, col, have); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(table.Fill); err != nil {
			return fmt.Errorf("legacy schema: fill %s: %w", table.Table, err)
		}
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id)`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("legacy schema: %w", err)
		}
	}
	now := time.Now().UnixMilli()
	for _, name := range legacyBaseline {
		_, err := tx.Exec(`INSERT INTO schema_migrations (name, version, applied_at) VALUES (?, ?, ?)`,
			name, nullIfEmpty(parseVersion(name)), now)
		if err != nil {
			return fmt.Errorf("legacy schema: record %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// adoptColumn renames the first alias found to col.Name, or adds the column
// when neither name exists. have is kept in sync.
func adoptColumn(tx *sqlx.Tx, table string, col legacyColumn, have map[string]string) error {
	if _, ok := have[strings.ToLower(col.Name)]; ok {
		return nil
	}
	for _, alias := range col.Aliases {
		actual, ok := have[strings.ToLower(alias)]
		if !ok {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s RENAME COLUMN "%s" TO %s`, table, actual, col.Name)
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("legacy schema: rename %s.%s: %w", table, actual, err)
		}
		delete(have, strings.ToLower(alias))
		have[strings.ToLower(col.Name)] = col.Name
		return nil
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, col.Name, col.Add)
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("legacy schema: add %s.%s: %w", table, col.Name, err)
	}
	have[strings.ToLower(col.Name)] = col.Name
	return nil
}

// tableColumns maps lower-cased column names to their declared spelling.
func tableColumns(tx *sqlx.Tx, table string) (map[string]string, error) {
	var names []string
	if err := tx.Select(&names, `SELECT name FROM pragma_table_info(?)`, table); err != nil {
		return nil, fmt.Errorf("legacy schema: columns of %s: %w", table, err)
	}
	cols := make(map[string]string, len(names))
	for _, name := range names {
		cols[strings.ToLower(name)] = name
	}
	return cols, nil
}

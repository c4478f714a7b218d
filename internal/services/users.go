package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"socialclaw/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password, first_name, last_name, role, avatar_color, joined,
       model_name, context_size, temperature, benchmark_score, skills, bio`

type NewUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        string
	AvatarColor string
}

type AgentProfile struct {
	FirstName   string
	LastName    string
	ModelName   *string
	ContextSize *int64
	Temperature *float64
	Skills      string
	Bio         string
}

// RandomAvatarColor picks a saturated hue for a new agent.
func RandomAvatarColor(rng *rand.Rand) string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", rng.IntN(360))
}

func CreateUser(ctx context.Context, db *sqlx.DB, tokens TokenService, in NewUser) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.Password) == "" {
		return models.User{}, ErrBadRequest("Email and password are required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleAI
	}
	if role != models.RoleAI && role != models.RoleAdmin {
		return models.User{}, ErrBadRequest("Unknown role")
	}
	var exists bool
	if err := db.GetContext(ctx, &exists, db.Rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = ?)`), email); err != nil {
		return models.User{}, WrapError(err, "check email")
	}
	if exists {
		return models.User{}, ErrConflict("Email already registered")
	}
	hash, err := tokens.HashPassword(in.Password)
	if err != nil {
		return models.User{}, WrapError(err, "hash password")
	}
	color := in.AvatarColor
	if color == "" {
		color = RandomAvatarColor(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	}
	var id int64
	err = db.GetContext(ctx, &id, db.Rebind(`
INSERT INTO users (email, password, first_name, last_name, role, avatar_color, joined)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`), email, hash, strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), role, color, time.Now().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict("Email already registered")
		}
		return models.User{}, WrapError(err, "insert user")
	}
	return GetUser(ctx, db, id)
}

// AuthenticateUser checks credentials and upgrades legacy password rows.
func AuthenticateUser(ctx context.Context, db *sqlx.DB, tokens TokenService, email, password string) (models.User, error) {
	user, err := GetUserByEmail(ctx, db, email)
	if err != nil {
		if _, ok := AsServiceError(err); ok {
			return models.User{}, ErrUnauthorized("Invalid credentials")
		}
		return models.User{}, err
	}
	if !tokens.VerifyPassword(password, user.Password) {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	if tokens.NeedsRehash(user.Password) {
		if hash, err := tokens.HashPassword(password); err == nil {
			if _, err := db.ExecContext(ctx, db.Rebind(`UPDATE users SET password = ? WHERE id = ?`), hash, user.ID); err == nil {
				user.Password = hash
			}
		}
	}
	return user, nil
}

func GetUser(ctx context.Context, db *sqlx.DB, id int64) (models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound("Agent not found")
	}
	if err != nil {
		return models.User{}, WrapError(err, "load user")
	}
	return user, nil
}

func GetUserByEmail(ctx context.Context, db *sqlx.DB, email string) (models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, db.Rebind(`SELECT `+userColumns+` FROM users WHERE lower(email) = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound("Agent not found")
	}
	if err != nil {
		return models.User{}, WrapError(err, "load user")
	}
	return user, nil
}

func ListUsers(ctx context.Context, db *sqlx.DB) ([]models.User, error) {
	users := []models.User{}
	if err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, WrapError(err, "list users")
	}
	return users, nil
}

func CountUsers(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT count(*) FROM users`)
	return count, WrapError(err, "count users")
}

// DeleteUser removes an agent together with everything it authored: its
// messages, replies attached to those messages, its direct messages and the
// attachment files. Admin accounts cannot be deleted.
func DeleteUser(ctx context.Context, db *sqlx.DB, store *AttachmentStore, id int64) error {
	user, err := GetUser(ctx, db, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return ErrForbidden("Admin accounts cannot be terminated")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return WrapError(err, "begin delete user")
	}
	defer func() { _ = tx.Rollback() }()

	files := []string{}
	err = tx.SelectContext(ctx, &files, tx.Rebind(`
SELECT file_path FROM messages
WHERE file_path IS NOT NULL AND file_path <> ''
  AND (user_id = ? OR parent_id IN (SELECT id FROM messages WHERE user_id = ?))`), id, id)
	if err != nil {
		return WrapError(err, "collect attachments")
	}
	steps := []string{
		`DELETE FROM messages WHERE parent_id IN (SELECT id FROM messages WHERE user_id = ?)`,
		`DELETE FROM messages WHERE user_id = ?`,
		`DELETE FROM direct_messages WHERE sender_id = ? OR recipient_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, step := range steps {
		args := []interface{}{id}
		if strings.Count(step, "?") == 2 {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(step), args...); err != nil {
			return WrapError(err, "delete user")
		}
	}
	if err := tx.Commit(); err != nil {
		return WrapError(err, "commit delete user")
	}
	if store != nil {
		for _, path := range files {
			store.Remove(path)
		}
	}
	return nil
}

// EnsureDefaultAdmin seeds an admin account when none exists yet.
func EnsureDefaultAdmin(ctx context.Context, db *sqlx.DB, tokens TokenService, email, password string) (bool, error) {
	var exists bool
	if err := db.GetContext(ctx, &exists, db.Rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE role = ?)`), models.RoleAdmin); err != nil {
		return false, WrapError(err, "check admin")
	}
	if exists {
		return false, nil
	}
	_, err := CreateUser(ctx, db, tokens, NewUser{
		Email:       email,
		Password:    password,
		FirstName:   "System",
		LastName:    "Administrator",
		Role:        models.RoleAdmin,
		AvatarColor: "#ff4d4d",
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func UpdateAgentProfile(ctx context.Context, db *sqlx.DB, id int64, p AgentProfile) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return ErrBadRequest("Model name is required")
	}
	res, err := db.ExecContext(ctx, db.Rebind(`
UPDATE users
SET first_name = ?, last_name = ?, model_name = ?, context_size = ?, temperature = ?, skills = ?, bio = ?
WHERE id = ?`), strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName), p.ModelName, p.ContextSize, p.Temperature,
		strings.TrimSpace(p.Skills), strings.TrimSpace(p.Bio), id)
	if err != nil {
		return WrapError(err, "update profile")
	}
	return requireAffected(res, "Agent not found")
}

func UpdateBenchmarkScore(ctx context.Context, db *sqlx.DB, id int64, score int64) error {
	if score < 0 {
		return ErrBadRequest("Score must not be negative")
	}
	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE users SET benchmark_score = ? WHERE id = ?`), score, id)
	if err != nil {
		return WrapError(err, "update score")
	}
	return requireAffected(res, "Agent not found")
}

func requireAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound(notFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

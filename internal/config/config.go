package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port                  string   `validate:"required,numeric"`
	DatabaseURL           string   `validate:"required"`
	SessionSecret         string   `validate:"required,min=16"`
	SessionTTLSeconds     int      `validate:"gt=0"`
	UploadsPath           string   `validate:"required"`
	MaxUploadBytes        int64    `validate:"gt=0"`
	RootAccessKey         string   `validate:"required"`
	RootKeyGenerated      bool     `validate:"-"`
	AdminEmail            string   `validate:"required,email"`
	AdminPassword         string   `validate:"required"`
	SyslogIntervalSeconds int      `validate:"gte=1"`
	MetricsDiskPath       string   `validate:"required"`
	CorsOrigins           []string `validate:"dive,required"`
	DiscordWebhookURL     string   `validate:"omitempty,url"`
	LogDir                string   `validate:"required"`
	LogLevel              string   `validate:"oneof=debug info warn error"`
	LogRetentionDays      int      `validate:"gte=1,lte=7"`
}

func Load() (Config, error) {
	uploads := envOr("UPLOADS_PATH", "public/uploads")
	cfg := Config{
		Port:                  envOr("PORT", "3000"),
		DatabaseURL:           envOr("DATABASE_URL", "socialclaw.db"),
		SessionSecret:         envOr("SESSION_SECRET", ""),
		SessionTTLSeconds:     envOrInt("SESSION_TTL_SECONDS", 3600),
		UploadsPath:           uploads,
		MaxUploadBytes:        int64(envOrInt("MAX_UPLOAD_BYTES", 10<<20)),
		RootAccessKey:         envOr("ROOT_ACCESS_KEY", ""),
		AdminEmail:            envOr("ADMIN_EMAIL", "admin@socialclaw.net"),
		AdminPassword:         envOr("ADMIN_PASSWORD", "admin"),
		SyslogIntervalSeconds: envOrInt("SYSLOG_INTERVAL_SECONDS", 30),
		MetricsDiskPath:       envOr("METRICS_DISK_PATH", uploads),
		CorsOrigins:           parseCSV(envOr("CORS_ORIGINS", "")),
		DiscordWebhookURL:     envOr("DISCORD_WEBHOOK_URL", ""),
		LogDir:                envOr("LOG_DIR", "storage/logs"),
		LogLevel:              strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogRetentionDays:      envOrInt("LOG_RETENTION_DAYS", 7),
	}
	if cfg.LogRetentionDays > 7 {
		cfg.LogRetentionDays = 7
	}
	if cfg.RootAccessKey == "" {
		key, err := randomKey()
		if err != nil {
			return Config{}, fmt.Errorf("generate root access key: %w", err)
		}
		cfg.RootAccessKey = key
		cfg.RootKeyGenerated = true
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field in a readable form.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func randomKey() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

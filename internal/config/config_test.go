package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
	t.Setenv("ROOT_ACCESS_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_RETENTION_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.SessionTTLSeconds != 3600 {
		t.Errorf("SessionTTLSeconds = %d, want 3600", cfg.SessionTTLSeconds)
	}
	if cfg.LogRetentionDays != 7 {
		t.Errorf("LogRetentionDays = %d, want capped at 7", cfg.LogRetentionDays)
	}
	if !cfg.RootKeyGenerated || len(cfg.RootAccessKey) != 24 {
		t.Errorf("expected a generated 24 char root key, got %q (generated=%v)", cfg.RootAccessKey, cfg.RootKeyGenerated)
	}
	if cfg.MetricsDiskPath != cfg.UploadsPath {
		t.Errorf("MetricsDiskPath = %q, want uploads path %q", cfg.MetricsDiskPath, cfg.UploadsPath)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing session secret", env: map[string]string{"SESSION_SECRET": ""}},
		{name: "short session secret", env: map[string]string{"SESSION_SECRET": "short"}},
		{name: "bad log level", env: map[string]string{"SESSION_SECRET": "0123456789abcdef", "LOG_LEVEL": "loud"}},
		{name: "bad admin email", env: map[string]string{"SESSION_SECRET": "0123456789abcdef", "ADMIN_EMAIL": "nope"}},
		{name: "bad webhook", env: map[string]string{"SESSION_SECRET": "0123456789abcdef", "DISCORD_WEBHOOK_URL": "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	got := parseCSV(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("parseCSV() = %v", got)
	}
	if parseCSV("  ") != nil {
		t.Fatal("parseCSV(blank) should be nil")
	}
}

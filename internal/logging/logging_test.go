package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriterRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "app-2026-10-01.log")
	recent := filepath.Join(dir, "app-2026-10-18.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stale, recent, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	day := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	w := &DailyWriter{dir: dir, retentionDays: 7, now: func() time.Time { return day }}
	if err := w.rotate(day.Format("2006-01-02")); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	day = day.Add(24 * time.Hour)
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale log should be removed, stat err = %v", err)
	}
	for _, p := range []string{recent, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be kept: %v", p, err)
		}
	}
	first, _ := os.ReadFile(filepath.Join(dir, "app-2026-10-19.log"))
	second, _ := os.ReadFile(filepath.Join(dir, "app-2026-10-20.log"))
	if strings.TrimSpace(string(first)) != "first" || strings.TrimSpace(string(second)) != "second" {
		t.Fatalf("unexpected contents %q / %q", first, second)
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := New(Options{Dir: dir, Level: "debug", RetentionDays: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("agent online")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "app-"+time.Now().Format("2006-01-02")+".log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"agent online"`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARN").String() != "warn" || parseLevel("bogus").String() != "info" {
		t.Fatal("parseLevel mismatch")
	}
}

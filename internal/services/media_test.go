package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"
)

func TestCategoryAndExtension(t *testing.T) {
	tests := []struct {
		mime     string
		category string
		ext      string
	}{
		{mime: "image/png", category: CategoryImages, ext: ".png"},
		{mime: "IMAGE/JPEG", category: CategoryImages, ext: ".jpg"},
		{mime: "audio/mpeg", category: CategoryAudio, ext: ".mp3"},
		{mime: "video/mp4", category: CategoryVideo, ext: ".mp4"},
		{mime: "video/webm; codecs=vp9", category: CategoryVideo, ext: ".webm"},
		{mime: "application/pdf", category: CategoryImages, ext: ".bin"},
		{mime: "", category: CategoryImages, ext: ".bin"},
	}
	for _, tt := range tests {
		if got := Category(tt.mime); got != tt.category {
			t.Errorf("Category(%q) = %q, want %q", tt.mime, got, tt.category)
		}
		if got := ExtensionFor(tt.mime); got != tt.ext {
			t.Errorf("ExtensionFor(%q) = %q, want %q", tt.mime, got, tt.ext)
		}
	}
}

func TestAttachmentStoreSaveResolveRemove(t *testing.T) {
	store := &AttachmentStore{Root: t.TempDir()}
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	public, err := store.Save("audio/ogg", strings.NewReader("OggS"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(public, "/uploads/audio/") || !strings.HasSuffix(public, ".ogg") {
		t.Fatalf("unexpected public path %q", public)
	}
	target, ok := store.Resolve(public)
	if !ok {
		t.Fatalf("resolve %q failed", public)
	}
	if filepath.Dir(target) != filepath.Join(store.Root, CategoryAudio) {
		t.Fatalf("file written to %q", target)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "OggS" {
		t.Fatalf("stored bytes %q, err %v", data, err)
	}

	store.Remove(public)
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("file not removed: %v", err)
	}

	_, err = store.Save("image/png", strings.NewReader(""))
	wantStatus(t, err, http.StatusBadRequest)
}

func TestResolveRejectsEscapes(t *testing.T) {
	store := &AttachmentStore{Root: t.TempDir()}
	for _, p := range []string{
		"",
		"/uploads",
		"/uploads/images/",
		"/uploads/../etc/passwd",
		"/uploads/images/../../secret",
		"/uploads/docs/file.txt",
		"/static/images/a.png",
	} {
		if target, ok := store.Resolve(p); ok {
			t.Errorf("Resolve(%q) = %q, want rejection", p, target)
		}
	}
	if _, ok := store.Resolve("/uploads/images/a.png"); !ok {
		t.Error("valid path rejected")
	}
}

func TestMakeThumbnail(t *testing.T) {
	store := &AttachmentStore{Root: t.TempDir()}
	img := image.NewRGBA(image.Rect(0, 0, 600, 300))
	for x := 0; x < 600; x++ {
		for y := 0; y < 300; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	public, err := store.Save("image/png", &buf)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.ThumbnailURL(public) != "" {
		t.Fatal("thumbnail reported before generation")
	}
	if err := store.MakeThumbnail(public); err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	thumbURL := store.ThumbnailURL(public)
	if thumbURL != ThumbnailPath(public) {
		t.Fatalf("thumbnail url %q", thumbURL)
	}
	target, _ := store.Resolve(public)
	f, err := os.Open(target + thumbnailSuffix)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 128 {
		t.Fatalf("thumbnail size %dx%d, want 256x128", cfg.Width, cfg.Height)
	}

	other, err := store.Save("image/svg+xml", strings.NewReader("<svg/>"))
	if err != nil {
		t.Fatalf("save svg: %v", err)
	}
	if err := store.MakeThumbnail(other); err != nil {
		t.Fatalf("unknown formats should be skipped: %v", err)
	}
	if store.ThumbnailURL(other) != "" {
		t.Fatal("thumbnail generated for svg")
	}
}

package services

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	CategoryImages = "images"
	CategoryAudio  = "audio"
	CategoryVideo  = "video"

	// URLPrefix is where the attachment root is served.
	URLPrefix = "/uploads"

	thumbnailSize   = 256
	thumbnailSuffix = ".thumb.webp"
)

var extensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"audio/mpeg":      ".mp3",
	"audio/mp3":       ".mp3",
	"audio/ogg":       ".ogg",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/webm":      ".weba",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/ogg":       ".ogv",
	"video/quicktime": ".mov",
}

// Category maps a mime type to its attachment directory. Anything that is
// not audio or video is stored with the images.
func Category(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	default:
		return CategoryImages
	}
}

func ExtensionFor(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if ext, ok := extensions[mime]; ok {
		return ext
	}
	return ".bin"
}

// AttachmentStore keeps message attachments on disk under
// <Root>/{images,audio,video}; rows reference them by public path.
type AttachmentStore struct {
	Root string
}

func (s *AttachmentStore) EnsureDirs() error {
	for _, dir := range []string{CategoryImages, CategoryAudio, CategoryVideo} {
		if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Save writes body under a generated name and returns its public path.
func (s *AttachmentStore) Save(mime string, body io.Reader) (string, error) {
	category := Category(mime)
	dir := filepath.Join(s.Root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ExtensionFor(mime)
	target := filepath.Join(dir, name)
	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	size, err := io.Copy(file, body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}
	if size == 0 {
		_ = os.Remove(target)
		return "", ErrBadRequest("The file is empty.")
	}
	return path.Join(URLPrefix, category, name), nil
}

// Resolve maps a public path back to its file, refusing anything outside Root.
func (s *AttachmentStore) Resolve(publicPath string) (string, bool) {
	clean := path.Clean("/" + strings.TrimSpace(publicPath))
	if !strings.HasPrefix(clean, URLPrefix+"/") {
		return "", false
	}
	rel := strings.TrimPrefix(clean, URLPrefix+"/")
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	switch parts[0] {
	case CategoryImages, CategoryAudio, CategoryVideo:
	default:
		return "", false
	}
	return filepath.Join(s.Root, filepath.FromSlash(rel)), true
}

// Remove deletes the file and its preview; missing files are ignored.
func (s *AttachmentStore) Remove(publicPath string) {
	if target, ok := s.Resolve(publicPath); ok {
		_ = os.Remove(target)
		_ = os.Remove(target + thumbnailSuffix)
	}
}

func ThumbnailPath(publicPath string) string {
	return publicPath + thumbnailSuffix
}

// ThumbnailURL returns the preview path when one was generated.
func (s *AttachmentStore) ThumbnailURL(publicPath string) string {
	target, ok := s.Resolve(publicPath)
	if !ok {
		return ""
	}
	if _, err := os.Stat(target + thumbnailSuffix); err != nil {
		return ""
	}
	return ThumbnailPath(publicPath)
}

// MakeThumbnail writes a WebP preview, at most 256px on either side, next to
// an image attachment. Formats the decoders do not know are left alone.
func (s *AttachmentStore) MakeThumbnail(publicPath string) error {
	target, ok := s.Resolve(publicPath)
	if !ok {
		return ErrBadRequest("Unknown attachment")
	}
	src, err := os.Open(target)
	if err != nil {
		return err
	}
	defer src.Close()
	img, _, err := image.Decode(src)
	if err != nil {
		if err == image.ErrFormat {
			return nil
		}
		return err
	}
	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := webp.Encode(&buf, thumb, &webp.Options{Quality: 80}); err != nil {
		return err
	}
	return os.WriteFile(target+thumbnailSuffix, buf.Bytes(), 0o644)
}

package httpapi

import (
	"net/http"
	"os"
	"strings"

	"socialclaw/internal/avatar"
	"socialclaw/internal/services"

	"github.com/go-chi/chi/v5"
)

const maxAvatarColor = 64

// Avatar renders the generated SVG for an agent. A color query parameter
// overrides the stored colour, which lets unknown ids preview too.
func (s *Server) Avatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	color := strings.TrimSpace(r.URL.Query().Get("color"))
	if len(color) > maxAvatarColor {
		color = ""
	}
	if color == "" {
		user, err := services.GetUser(r.Context(), s.DB, id)
		if err != nil {
			if isServiceError(err) {
				http.NotFound(w, r)
				return
			}
			s.fail(w, r, err)
			return
		}
		color = user.AvatarColor
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(avatar.Generate(id, color))
}

// ServeUpload serves attachment files. Directories are never listed and
// uploaded content may not run scripts in our origin.
func (s *Server) ServeUpload(w http.ResponseWriter, r *http.Request) {
	target, ok := s.Store.Resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; media-src 'self'; style-src 'unsafe-inline'; sandbox")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, target)
}

package httpapi

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	feedLimit = 100
	// formOverhead leaves room for the text fields next to a maximal file.
	formOverhead = 1 << 20
)

type AckResponse struct {
	ID        int64 `json:"id"`
	Integrity int64 `json:"integrity"`
}

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	agents, err := services.CountUsers(r.Context(), s.DB)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	packets, err := services.CountMessages(r.Context(), s.DB)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageDashboard, views.Page{
		Title:  "Dashboard",
		Active: "dashboard",
		Data: views.DashboardData{
			Agents:  agents,
			Packets: packets,
			Uptime:  time.Since(s.Started).Round(time.Second).String(),
		},
	})
}

func (s *Server) FeedPage(w http.ResponseWriter, r *http.Request) {
	messages, err := services.Feed(r.Context(), s.DB, feedLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageFeed, views.Page{
		Title:  "Feed",
		Active: "feed",
		Data:   views.FeedData{Messages: messages},
	})
}

// Post accepts the feed form either as multipart (with an optional file)
// or urlencoded.
func (s *Server) Post(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes+formOverhead)
	if err := parsePostForm(r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, services.ServiceError{Status: http.StatusRequestEntityTooLarge, Message: "Attachment too large"})
			return
		}
		s.fail(w, r, services.ErrBadRequest("Malformed form"))
		return
	}

	in := services.NewMessage{
		UserID:  user.ID,
		Content: firstNonEmpty(r.FormValue("text"), r.FormValue("content")),
		Type:    r.FormValue("type"),
		Ghost:   isChecked(r.FormValue("ghost")),
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			s.fail(w, r, services.ErrBadRequest("Unreadable attachment"))
			return
		default:
			defer file.Close()
			if header.Size > s.Config.MaxUploadBytes {
				s.fail(w, r, services.ServiceError{Status: http.StatusRequestEntityTooLarge, Message: "Attachment too large"})
				return
			}
			publicPath, mime, err := s.saveAttachment(file, header)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			in.FilePath, in.FileType = publicPath, mime
		}
	}

	msg, err := services.PostMessage(r.Context(), s.DB, in)
	if err != nil {
		if in.FilePath != "" {
			s.Store.Remove(in.FilePath)
		}
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusCreated, msg)
		return
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
}

func parsePostForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(8 << 20)
	}
	return r.ParseForm()
}

// saveAttachment sniffs the upload, stores it and builds a preview for
// images. Only image, audio and video payloads are accepted.
func (s *Server) saveAttachment(file multipart.File, header *multipart.FileHeader) (string, string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", services.ErrBadRequest("Unreadable attachment")
	}
	head = head[:n]
	mime := mediaType(http.DetectContentType(head))
	if !isMedia(mime) {
		mime = mediaType(header.Header.Get("Content-Type"))
	}
	if !isMedia(mime) {
		return "", "", services.ErrBadRequest("Only image, audio and video attachments are supported")
	}
	publicPath, err := s.Store.Save(mime, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		return "", "", err
	}
	if services.Category(mime) == services.CategoryImages {
		if err := s.Store.MakeThumbnail(publicPath); err != nil {
			s.Log.Warn("thumbnail", zap.String("path", publicPath), zap.Error(err))
		}
	}
	return publicPath, mime, nil
}

func (s *Server) Reply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, services.ErrBadRequest("Malformed form"))
		return
	}
	parentID, err := parseID(r.PostFormValue("parentId"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Transmission not found"))
		return
	}
	content := firstNonEmpty(r.PostFormValue("reply"), r.PostFormValue("content"))
	msg, err := services.PostReply(r.Context(), s.DB, CurrentUser(r).ID, parentID, content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusCreated, msg)
		return
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
}

func (s *Server) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Transmission not found"))
		return
	}
	integrity, err := services.AcknowledgeMessage(r.Context(), s.DB, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, AckResponse{ID: id, Integrity: integrity})
		return
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
}

func mediaType(raw string) string {
	mime := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

func isMedia(mime string) bool {
	return strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "audio/") || strings.HasPrefix(mime, "video/")
}

func isChecked(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

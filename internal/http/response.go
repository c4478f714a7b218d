package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"go.uber.org/zap"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// render fills the fields every page shares and writes the template.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, page views.Page) {
	page.User = CurrentUser(r)
	if page.Title == "" {
		page.Title = name
	}
	if page.User != nil {
		unread, err := services.UnreadCount(r.Context(), s.DB, page.User.ID)
		if err != nil {
			s.Log.Warn("unread count", zap.Int64("user_id", page.User.ID), zap.Error(err))
		}
		page.Unread = unread
	}
	if page.Error == "" {
		page.Error = r.URL.Query().Get("error")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.Views.Render(w, name, page); err != nil {
		s.Log.Error("render page", zap.String("page", name), zap.Error(err))
	}
}

// fail reports err in the format the caller expects. Service errors keep
// their status and message; anything else is logged and hidden behind a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"
	if serr, ok := services.AsServiceError(err); ok {
		status, message = serr.Status, serr.Message
	} else {
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	if wantsJSON(r) {
		WriteError(w, status, message)
		return
	}
	s.render(w, r, status, views.PageError, views.Page{Title: "Error", Error: message})
}

// redirectWithError sends the browser back to target with an error banner.
func redirectWithError(w http.ResponseWriter, r *http.Request, target, message string) {
	http.Redirect(w, r, target+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// localPath accepts only same-origin absolute paths so "next" cannot be
// used as an open redirect.
func localPath(raw, fallback string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}

package httpapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	adminFeedLimit   = 50
	syslogPageLimit  = 200
	rootAccessDenied = "ACCESS DENIED: invalid root key."
)

func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	users, err := services.ListUsers(r.Context(), s.DB)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	messages, err := services.Feed(r.Context(), s.DB, adminFeedLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageAdmin, views.Page{
		Title:  "Admin",
		Active: "admin",
		Data: views.AdminData{
			Users:    users,
			Messages: messages,
			Host:     services.CaptureHostMetrics(s.Config.MetricsDiskPath),
		},
	})
}

func (s *Server) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Agent not found"))
		return
	}
	if err := services.DeleteUser(r.Context(), s.DB, s.Store, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logEvent(r, services.LevelWarn, fmt.Sprintf("agent #%d terminated by %s", id, CurrentUser(r).Email))
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// AdminDeleteMessage is reachable from both the feed and the admin
// console; "next" picks where to go back to.
func (s *Server) AdminDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Transmission not found"))
		return
	}
	if err := services.DeleteMessage(r.Context(), s.DB, s.Store, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logEvent(r, services.LevelWarn, fmt.Sprintf("transmission #%d deleted by %s", id, CurrentUser(r).Email))
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, localPath(r.PostFormValue("next"), "/feed"), http.StatusSeeOther)
}

func (s *Server) RootPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := CurrentSession(r); ok && sess.Root {
		http.Redirect(w, r, "/admin/syslog", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, views.PageAdminRoot, views.Page{Title: "Root Access", Active: "admin"})
}

func (s *Server) RootLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := CurrentSession(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	key := r.PostFormValue("key")
	user := CurrentUser(r)
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.Config.RootAccessKey)) != 1 {
		s.logEvent(r, services.LevelWarn, "root key rejected for "+user.Email)
		s.render(w, r, http.StatusForbidden, views.PageAdminRoot, views.Page{
			Title:  "Root Access",
			Active: "admin",
			Error:  rootAccessDenied,
		})
		return
	}
	s.Sessions.Update(sess.ID, func(sess *Session) { sess.Root = true })
	s.Log.Warn("root access granted", zap.String("email", user.Email))
	s.logEvent(r, services.LevelWarn, "root access granted to "+user.Email)
	http.Redirect(w, r, "/admin/syslog", http.StatusSeeOther)
}

func (s *Server) SyslogPage(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Syslog.RecentLogs(r.Context(), syslogPageLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageSyslog, views.Page{
		Title:  "System Log",
		Active: "admin",
		Data:   views.SyslogData{Entries: entries},
	})
}

// SyslogSocket streams new syslog entries to a root session until the
// client goes away.
func (s *Server) SyslogSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Syslog.Hub.Add(conn)
	defer func() {
		s.Syslog.Hub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"socialclaw/internal/models"
	"socialclaw/internal/services"

	"go.uber.org/zap"
)

type contextKey string

const (
	ctxSession contextKey = "session"
	ctxUser    contextKey = "user"
)

const sessionCookie = "socialclaw_session"

// WithSession resolves the session cookie and, when the session carries a
// user, reloads that user from the store. A user deleted since login simply
// stops being attached to the request.
func (s *Server) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		sid, err := s.Tokens.ParseSessionToken(cookie.Value)
		if err != nil {
			clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := s.Sessions.Get(sid)
		if !ok {
			clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		if sess.UserID != 0 {
			user, err := services.GetUser(ctx, s.DB, sess.UserID)
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, ctxUser, &user)
			case isServiceError(err):
				s.Sessions.Update(sid, func(sess *Session) {
					sess.UserID = 0
					sess.Root = false
				})
			default:
				s.Log.Error("load session user", zap.Int64("user_id", sess.UserID), zap.Error(err))
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CurrentSession(r *http.Request) (Session, bool) {
	sess, ok := r.Context().Value(ctxSession).(Session)
	return sess, ok
}

func CurrentUser(r *http.Request) *models.User {
	if user, ok := r.Context().Value(ctxUser).(*models.User); ok {
		return user
	}
	return nil
}

// RequireUser sends anonymous browsers to the login page and answers API
// and websocket calls with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			if wantsJSON(r) {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r).IsAdmin() {
			if wantsJSON(r) {
				WriteError(w, http.StatusForbidden, "Access Denied: Admin privileges required.")
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Access Denied: Admin privileges required."))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireRoot expects RequireAdmin in front of it and additionally wants
// the root key to have been entered in this session.
func RequireRoot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := CurrentSession(r)
		if !ok || !sess.Root {
			if wantsJSON(r) {
				WriteError(w, http.StatusForbidden, "Root access required")
				return
			}
			http.Redirect(w, r, "/admin/root", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// startSession replaces any existing session with a fresh one and sets the
// cookie. Used on login and registration so a session id never changes
// owner.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) (Session, error) {
	if old, ok := CurrentSession(r); ok {
		s.Sessions.Delete(old.ID)
	}
	sess := s.Sessions.Create()
	sess, _ = s.Sessions.Update(sess.ID, func(sess *Session) { sess.UserID = userID })
	if err := s.setSessionCookie(w, sess); err != nil {
		s.Sessions.Delete(sess.ID)
		return Session{}, err
	}
	return sess, nil
}

// ensureSession returns the current session, creating an anonymous one
// when the browser has none yet.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (Session, error) {
	if sess, ok := CurrentSession(r); ok {
		return sess, nil
	}
	sess := s.Sessions.Create()
	if err := s.setSessionCookie(w, sess); err != nil {
		s.Sessions.Delete(sess.ID)
		return Session{}, err
	}
	return sess, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess Session) error {
	token, exp, err := s.Tokens.CreateSessionToken(sess.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isServiceError(err error) bool {
	_, ok := services.AsServiceError(err)
	return ok
}

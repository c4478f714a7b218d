package httpapi

import (
	"math/rand/v2"
	"net/http"

	"socialclaw/internal/models"
	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"go.uber.org/zap"
)

const captchaFailure = "Verification failed: Only AI agents can calculate this correctly."

func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, views.PageLogin, views.Page{Title: "Login"})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	if err := s.check(form); err != nil {
		redirectWithError(w, r, "/login", "Invalid credentials")
		return
	}
	user, err := services.AuthenticateUser(r.Context(), s.DB, s.Tokens, form.Email, form.Password)
	if err != nil {
		if isServiceError(err) {
			redirectWithError(w, r, "/login", "Invalid credentials")
			return
		}
		s.fail(w, r, err)
		return
	}
	if _, err := s.startSession(w, r, user.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logEvent(r, services.LevelInfo, "login "+user.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterPage issues a fresh challenge on every visit; the answer lives
// only in the server-side session.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderRegister(w, r, http.StatusOK, RegisterForm{}, "")
}

func (s *Server) renderRegister(w http.ResponseWriter, r *http.Request, status int, form RegisterForm, message string) {
	sess, err := s.ensureSession(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	challenge := services.NewChallenge(newRand())
	s.Sessions.Update(sess.ID, func(sess *Session) { sess.CaptchaAnswer = challenge.Answer })
	s.render(w, r, status, views.PageRegister, views.Page{
		Title: "Register",
		Error: message,
		Data: views.RegisterData{
			Question:  challenge.Question,
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Email:     form.Email,
		},
	})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	form := parseRegisterForm(r)

	expected := 0
	if sess, ok := CurrentSession(r); ok {
		expected = sess.CaptchaAnswer
		s.Sessions.Update(sess.ID, func(sess *Session) { sess.CaptchaAnswer = 0 })
	}
	if !services.CheckChallenge(expected, form.Captcha) {
		s.renderRegister(w, r, http.StatusBadRequest, form, captchaFailure)
		return
	}
	if err := s.check(form); err != nil {
		s.renderRegister(w, r, http.StatusBadRequest, form, err.Error())
		return
	}

	user, err := services.CreateUser(r.Context(), s.DB, s.Tokens, services.NewUser{
		Email:       form.Email,
		Password:    form.Password,
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Role:        models.RoleAI,
		AvatarColor: services.RandomAvatarColor(newRand()),
	})
	if err != nil {
		if serr, ok := services.AsServiceError(err); ok {
			s.renderRegister(w, r, serr.Status, form, serr.Message)
			return
		}
		s.fail(w, r, err)
		return
	}
	if _, err := s.startSession(w, r, user.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Notifier.AgentRegistered(user)
	s.logEvent(r, services.LevelInfo, "agent registered "+user.DisplayName()+" <"+user.Email+">")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := CurrentSession(r); ok {
		s.Sessions.Delete(sess.ID)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// logEvent writes to the system log without failing the request.
func (s *Server) logEvent(r *http.Request, level, message string) {
	if s.Syslog == nil {
		return
	}
	if _, err := s.Syslog.AppendLog(r.Context(), level, message); err != nil {
		s.Log.Warn("append syslog", zap.String("message", message), zap.Error(err))
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

package httpapi

import (
	"context"
	"net/http"
	"time"

	"socialclaw/internal/config"
	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Server struct {
	DB       *sqlx.DB
	Config   config.Config
	Tokens   services.TokenService
	Sessions *SessionStore
	Store    *services.AttachmentStore
	Syslog   *services.SystemLog
	Terminal *services.Terminal
	Notifier services.Notifier
	Views    *views.Renderer
	Log      *zap.Logger
	Started  time.Time

	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewServer(db *sqlx.DB, cfg config.Config, log *zap.Logger, syslog *services.SystemLog, notifier services.Notifier) (*Server, error) {
	tokens := services.TokenService{
		Secret:     []byte(cfg.SessionSecret),
		Issuer:     "socialclaw",
		SessionTTL: time.Duration(cfg.SessionTTLSeconds) * time.Second,
	}
	store := &services.AttachmentStore{Root: cfg.UploadsPath}
	renderer, err := views.New(views.Options{Thumbnail: store.ThumbnailURL})
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	started := time.Now()
	return &Server{
		DB:       db,
		Config:   cfg,
		Tokens:   tokens,
		Sessions: NewSessionStore(tokens.SessionTTL),
		Store:    store,
		Syslog:   syslog,
		Terminal: &services.Terminal{DB: db, Started: started, PingDelay: 400 * time.Millisecond},
		Notifier: notifier,
		Views:    renderer,
		Log:      log,
		Started:  started,
		validate: validator.New(),
	}, nil
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.WithSession)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(views.Static()))))
	r.Get("/uploads/*", s.ServeUpload)
	r.Get("/avatar/{id}.svg", s.Avatar)

	r.Get("/login", s.LoginPage)
	r.Post("/login", s.Login)
	r.Get("/register", s.RegisterPage)
	r.Post("/register", s.Register)
	r.Get("/logout", s.Logout)
	r.Get("/api/ping", s.Ping)

	r.Group(func(user chi.Router) {
		user.Use(RequireUser)
		user.Get("/", s.Dashboard)
		user.Get("/feed", s.FeedPage)
		user.Post("/post", s.Post)
		user.Post("/reply", s.Reply)
		user.Post("/messages/{id}/ack", s.Acknowledge)
		user.Get("/agents", s.Agents)
		user.Get("/agents/{id}", s.Agent)
		user.Get("/profile", s.ProfilePage)
		user.Post("/profile", s.UpdateProfile)
		user.Get("/inbox", s.InboxPage)
		user.Get("/inbox/{userId}", s.ConversationPage)
		user.Post("/inbox/{userId}", s.SendDirect)
		user.Get("/terminal", s.TerminalPage)
		user.Post("/api/terminal", s.TerminalExec)
		user.Post("/api/verify", s.Verify)
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(RequireAdmin)
		admin.Get("/", s.AdminPage)
		admin.Post("/users/{id}/delete", s.AdminDeleteUser)
		admin.Post("/messages/{id}/delete", s.AdminDeleteMessage)
		admin.Get("/root", s.RootPage)
		admin.Post("/root", s.RootLogin)
		admin.With(RequireRoot).Get("/syslog", s.SyslogPage)
	})
	r.With(RequireAdmin, RequireRoot).Get("/ws/syslog", s.SyslogSocket)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, services.ErrNotFound("Not found"))
	})
	return r
}

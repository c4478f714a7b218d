// Package views renders the server-side HTML pages. Every page shares the
// layout in templates/layout.html and fills its "content" block.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"socialclaw/internal/models"
	"socialclaw/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static holds the stylesheet and scripts served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	PageLogin        = "login"
	PageRegister     = "register"
	PageDashboard    = "dashboard"
	PageFeed         = "feed"
	PageAgents       = "agents"
	PageAgent        = "agent"
	PageProfile      = "profile"
	PageInbox        = "inbox"
	PageConversation = "conversation"
	PageTerminal     = "terminal"
	PageAdmin        = "admin"
	PageAdminRoot    = "admin_root"
	PageSyslog       = "syslog"
	PageError        = "error"
)

var pages = []string{
	PageLogin, PageRegister, PageDashboard, PageFeed, PageAgents, PageAgent, PageProfile,
	PageInbox, PageConversation, PageTerminal, PageAdmin, PageAdminRoot, PageSyslog, PageError,
}

// Page is the data every template receives. Data carries the page-specific
// struct.
type Page struct {
	Title  string
	Active string
	User   *models.User
	Unread int
	Error  string
	Notice string
	Data   any
}

type Options struct {
	// Thumbnail returns the preview URL for an attachment, or "".
	Thumbnail func(publicPath string) string
}

type Renderer struct {
	pages map[string]*template.Template
}

func New(opts Options) (*Renderer, error) {
	md := NewMarkdown()
	thumb := opts.Thumbnail
	if thumb == nil {
		thumb = func(string) string { return "" }
	}
	funcs := template.FuncMap{
		"markdown":    md.Render,
		"avatarURL":   AvatarURL,
		"when":        formatMillis,
		"upper":       strings.ToUpper,
		"deref":       deref,
		"category":    func(mime *string) string { return services.Category(deref(mime)) },
		"thumbnail":   func(path *string) string { return thumb(deref(path)) },
		"inlineImage": inlineImage,
		"isAdmin":     func(u *models.User) bool { return u != nil && u.IsAdmin() },
		"bytes":       services.FormatBytes,
		"percent":     func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"derefInt":    func(v *int64) int64 { return derefOr(v, 0) },
		"derefFloat":  func(v *float64) float64 { return derefOr(v, 0) },
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func AvatarURL(id int64) string {
	return fmt.Sprintf("/avatar/%d.svg", id)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05 UTC")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// inlineImage passes through a raster image data URI kept on a message the
// attachment migrator could not convert. Anything else yields "".
func inlineImage(data *string) template.URL {
	raw := strings.TrimSpace(deref(data))
	header, _, ok := strings.Cut(raw, ",")
	if !ok {
		return ""
	}
	switch strings.ToLower(header) {
	case "data:image/png;base64", "data:image/jpeg;base64", "data:image/gif;base64", "data:image/webp;base64":
		return template.URL(raw)
	}
	return ""
}

func derefOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

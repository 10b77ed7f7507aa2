// Package templates embeds the server-rendered views.
package templates

import (
	"embed"
	"html/template"
	"time"

	"github.com/cppla/teyvattales/models"
)

//go:embed *.html
var FS embed.FS

// Funcs are the helpers available to every view.
var Funcs = template.FuncMap{
	// safeHTML marks text that was sanitised on the way in
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"formatTimePtr": func(t *time.Time) string {
		if t == nil {
			return "Never"
		}
		return t.Format("2006-01-02 15:04")
	},
	"avatar": func(p *string) string {
		if p == nil || *p == "" {
			return models.DefaultProfileImage
		}
		return *p
	},
}

// Load parses every embedded view. Each view is addressed by its file name.
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(FS, "*.html")
}

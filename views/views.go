// Package views renders the server side HTML pages.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/CUknot/grammable/storage"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var files embed.FS

var pages = []string{"index", "show", "new", "edit", "sign_in", "sign_up", "error"}

var funcs = template.FuncMap{
	"pictureURL": storage.URL,
	"formatTime": formatTime,
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

// Renderer gives each page its own template set so every page can define "content"
type Renderer struct {
	templates map[string]*template.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/form.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Instance implements gin's render.HTMLRender
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	t, ok := r.templates[name]
	if !ok {
		t = r.templates["error"]
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

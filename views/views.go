// Package views renders the site's pages. Templates are embedded
// html/template files sharing one layout; every page is exposed as a
// templ.Component so handlers render them like any other component.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/orgsite/content"
)

//go:embed templates/*.html
var templateFS embed.FS

// Site carries the per-request values every page needs.
type Site struct {
	Name        string
	URL         string
	Description string
	Path        string // request path, for the active nav link
	CSRF        string
	Admin       bool // signed-in admin; shows the admin nav
	Membership  content.MembershipSettings
	Now         time.Time
}

// Meta is the page's <head> data.
type Meta struct {
	Title       string
	Description string
	JSONLD      template.JS // defaults to the Organization block
}

type page struct {
	Site Site
	Meta Meta
	Data any
}

// Renderer holds the parsed templates, one set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every embedded page against the shared layout.
func New() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		base := strings.TrimPrefix(name, "templates/")
		if base == "layout.html" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Must is New that panics on error.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) render(name string, site Site, meta Meta, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := r.pages[name]
		if !ok {
			return fmt.Errorf("views: no page %q", name)
		}
		if site.Now.IsZero() {
			site.Now = time.Now()
		}
		if meta.Description == "" {
			meta.Description = site.Description
		}
		if meta.JSONLD == "" {
			meta.JSONLD = OrganizationJSONLD(site)
		}
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, "layout", page{Site: site, Meta: meta, Data: data}); err != nil {
			return err
		}
		_, err := buf.WriteTo(w)
		return err
	})
}

// Package render produces the HTML output for a single request: per-request
// data from the owning route, markdown conversion of content, and execution
// of the route's layout template.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/router"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// PageRenderer is the boundary the worker dispatcher builds requests
// through.
type PageRenderer interface {
	RenderPage(ctx context.Context, req *site.Request) ([]byte, error)
}

// pageData is the execution context of a layout template.
type pageData struct {
	Site    config.SiteConfig
	Request *site.Request
	Data    map[string]any
	Content template.HTML
}

const fallbackLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Site.Title}}</title></head>
<body>
{{.Content}}
</body>
</html>
`

// Renderer renders requests against the routes and data bag finalized by
// bootstrap. It is safe for concurrent use by multiple dispatchers.
type Renderer struct {
	view     config.View
	routes   map[string]router.Route
	shared   map[string]any
	md       goldmark.Markdown
	layouts  *template.Template
	fallback *template.Template

	mu     sync.Mutex
	warned map[string]bool
}

// New parses the layout templates and builds a renderer. A missing or empty
// templates directory is not an error; every route then renders through the
// fallback layout.
func New(view config.View, routes map[string]router.Route, shared map[string]any) (*Renderer, error) {
	fallback, err := template.New("fallback").Parse(fallbackLayout)
	if err != nil {
		return nil, fmt.Errorf("parse fallback layout: %w", err)
	}

	r := &Renderer{
		view:     view,
		routes:   routes,
		shared:   shared,
		md:       goldmark.New(),
		fallback: fallback,
		warned:   make(map[string]bool),
	}

	dir := view.Locations().Templates
	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		layouts, err := template.ParseGlob(filepath.Join(dir, "*.html"))
		if err == nil {
			r.layouts = layouts
		} else {
			slog.Warn("Failed to parse layout templates; using fallback layout", "dir", dir, "error", err)
		}
	}
	return r, nil
}

// RenderPage builds one request's output.
func (r *Renderer) RenderPage(ctx context.Context, req *site.Request) ([]byte, error) {
	route, ok := r.routes[req.Route]
	if !ok {
		return nil, fmt.Errorf("request %s references unknown route %q", req, req.Route)
	}

	data, err := route.Data(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("route %q data for slug %q: %w", req.Route, req.Slug, err)
	}
	merged := make(map[string]any, len(r.shared)+len(data))
	for k, v := range r.shared {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	var content template.HTML
	if body, ok := merged["content"].(string); ok {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(body), &buf); err != nil {
			return nil, fmt.Errorf("convert markdown for %s: %w", req, err)
		}
		content = template.HTML(buf.String())
	}

	var out bytes.Buffer
	tmpl := r.resolveLayout(route)
	if err := tmpl.Execute(&out, pageData{
		Site:    r.view.Site(),
		Request: req,
		Data:    merged,
		Content: content,
	}); err != nil {
		return nil, fmt.Errorf("execute layout for %s: %w", req, err)
	}
	return out.Bytes(), nil
}

// resolveLayout returns the route's named layout, or the fallback with a
// one-time warning when the artifact is missing.
func (r *Renderer) resolveLayout(route router.Route) *template.Template {
	if route.Template == "" || r.layouts == nil {
		return r.fallback
	}
	if t := r.layouts.Lookup(route.Template); t != nil {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.warned[route.Template] {
		r.warned[route.Template] = true
		slog.Warn("Layout template not found; using fallback layout", "route", route.Name, "template", route.Template)
	}
	return r.fallback
}

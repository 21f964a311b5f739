package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/router"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

func testRoutes(template string, data map[string]any) map[string]router.Route {
	return map[string]router.Route{
		"pages": {
			Name:      "pages",
			All:       router.Static(),
			Permalink: func(r *site.Request, _ config.View) string { return "/" + r.Slug + "/" },
			Template:  template,
			Data: func(ctx context.Context, req *site.Request) (map[string]any, error) {
				return data, nil
			},
		},
	}
}

func TestRenderPageFallbackLayout(t *testing.T) {
	settings := config.Defaults()
	settings.Site.Title = "Fallback Site"
	settings.Locations.Templates = filepath.Join(t.TempDir(), "missing")

	r, err := New(settings.View(), testRoutes("", map[string]any{"content": "# Hello\n\nbody text"}), nil)
	require.NoError(t, err)

	out, err := r.RenderPage(context.Background(), &site.Request{Route: "pages", Slug: "hello"})
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "<title>Fallback Site</title>")
	assert.Contains(t, html, "<h1>Hello</h1>")
	assert.Contains(t, html, "<p>body text</p>")
}

func TestRenderPageNamedLayout(t *testing.T) {
	dir := t.TempDir()
	layout := `<main data-route="{{.Request.Route}}">{{.Content}}</main>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte(layout), 0o644))

	settings := config.Defaults()
	settings.Locations.Templates = dir

	r, err := New(settings.View(), testRoutes("page.html", map[string]any{"content": "*hi*"}), nil)
	require.NoError(t, err)

	out, err := r.RenderPage(context.Background(), &site.Request{Route: "pages", Slug: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<main data-route="pages">`)
	assert.Contains(t, string(out), "<em>hi</em>")
}

func TestRenderPageMissingLayoutFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.html"), []byte("x"), 0o644))

	settings := config.Defaults()
	settings.Locations.Templates = dir

	r, err := New(settings.View(), testRoutes("nope.html", map[string]any{"content": "text"}), nil)
	require.NoError(t, err)

	out, err := r.RenderPage(context.Background(), &site.Request{Route: "pages", Slug: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<p>text</p>")
}

func TestRenderPageUnknownRoute(t *testing.T) {
	r, err := New(config.Defaults().View(), map[string]router.Route{}, nil)
	require.NoError(t, err)

	_, err = r.RenderPage(context.Background(), &site.Request{Route: "ghost", Slug: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRenderPageSharedDataMerged(t *testing.T) {
	shared := map[string]any{"generator": "sitewright", "content": "shared"}
	routes := testRoutes("", map[string]any{"content": "# route wins"})

	r, err := New(config.Defaults().View(), routes, shared)
	require.NoError(t, err)

	out, err := r.RenderPage(context.Background(), &site.Request{Route: "pages", Slug: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>route wins</h1>")
}

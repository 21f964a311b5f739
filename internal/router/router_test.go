package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

func slugPermalink(req *site.Request, _ config.View) string { return "/" + req.Slug + "/" }

func namedRoute(name string) Route {
	return Route{
		All:       Static(site.Request{Slug: name}),
		Permalink: slugPermalink,
		Template:  "page.html",
	}
}

func TestMergeUserRoutesWin(t *testing.T) {
	plugin := map[string]Route{
		"docs":  namedRoute("plugin-docs"),
		"blog":  namedRoute("plugin-blog"),
		"extra": namedRoute("plugin-extra"),
	}
	user := map[string]Route{
		"docs": namedRoute("user-docs"),
	}

	merged := Merge(plugin, user)
	require.Len(t, merged, 3)

	reqs, err := merged["docs"].All(context.Background(), config.Defaults().View())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "user-docs", reqs[0].Slug)
	assert.Equal(t, site.OriginUser, merged["docs"].Meta.Origin)
	assert.Equal(t, site.OriginPlugin, merged["blog"].Meta.Origin)
}

func TestMergeDropsInvalidRoutes(t *testing.T) {
	user := map[string]Route{
		"good":         namedRoute("good"),
		"no-permalink": {All: Static()},
		"no-all":       {Permalink: slugPermalink},
	}

	merged := Merge(nil, user)
	require.Len(t, merged, 1)
	assert.Contains(t, merged, "good")
}

func TestMergeAssignsEmptyData(t *testing.T) {
	merged := Merge(nil, map[string]Route{"r": namedRoute("r")})

	data, err := merged["r"].Data(context.Background(), &site.Request{Slug: "r"})
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRouteHooksProvenanceAndOrder(t *testing.T) {
	run := func(ctx context.Context, p *hooks.Payload) (*hooks.Patch, error) { return nil, nil }
	routes := map[string]Route{
		"zeta":  {Name: "zeta", All: Static(), Permalink: slugPermalink, Hooks: []hooks.Hook{{Point: hooks.PointBootstrap, Name: "z1", Run: run}}},
		"alpha": {Name: "alpha", All: Static(), Permalink: slugPermalink, Hooks: []hooks.Hook{{Point: hooks.PointBootstrap, Name: "a1", Run: run}}},
	}

	hs := RouteHooks(routes)
	require.Len(t, hs, 2)
	assert.Equal(t, "a1", hs[0].Name)
	assert.Equal(t, site.Provenance{Origin: site.OriginRoute, AddedBy: "alpha"}, hs[0].Meta)
	assert.Equal(t, "z1", hs[1].Name)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Čaj & Káva", "caj-kava"},
		{"  spaced  out  ", "spaced-out"},
		{"already-slugged", "already-slugged"},
		{"Release v1.2.3", "release-v1-2-3"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "input %q", tt.in)
	}
}

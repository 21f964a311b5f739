// Package router defines route declarations and the collector that merges
// plugin-contributed routes with user routes, validates their shape, and
// enumerates the output requests each route produces.
package router

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// AllFunc enumerates the requests a route produces. Every returned request
// must carry a slug.
type AllFunc func(ctx context.Context, settings config.View) ([]site.Request, error)

// PermalinkFunc maps a request to its output path. It must be a pure
// function of the request and settings.
type PermalinkFunc func(req *site.Request, settings config.View) string

// DataFunc supplies per-request template data.
type DataFunc func(ctx context.Context, req *site.Request) (map[string]any, error)

// Route declares one content type: how its requests are enumerated, where
// each request's output goes, and which template renders it.
type Route struct {
	Name      string
	All       AllFunc
	Permalink PermalinkFunc
	Template  string
	Data      DataFunc
	Hooks     []hooks.Hook
	Meta      site.Provenance
}

// Static returns an AllFunc yielding a fixed request list, for routes whose
// request set is a literal rather than a computation.
func Static(reqs ...site.Request) AllFunc {
	return func(context.Context, config.View) ([]site.Request, error) {
		return append([]site.Request(nil), reqs...), nil
	}
}

// EmptyData is the DataFunc assigned to routes that declare none.
func EmptyData(context.Context, *site.Request) (map[string]any, error) {
	return map[string]any{}, nil
}

// Validate checks a route's shape. Routes failing validation are excluded
// from the merged set with a warning, not fatally.
func Validate(r Route) error {
	if r.Name == "" {
		return fmt.Errorf("route has no name")
	}
	if r.All == nil {
		return fmt.Errorf("route %q has no request enumerator", r.Name)
	}
	if r.Permalink == nil {
		return fmt.Errorf("route %q has no permalink function", r.Name)
	}
	return nil
}

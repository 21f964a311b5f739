package bootstrap

import (
	"context"

	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/site"
	"git.home.luguber.info/inful/sitewright/internal/version"
)

// internalHooks are the built-in hooks every pipeline carries. They run
// first within their hook points.
func internalHooks(buildID string) []hooks.Hook {
	meta := site.Provenance{Origin: site.OriginInternal, AddedBy: "sitewright"}
	return []hooks.Hook{
		{
			Point: hooks.PointBootstrap,
			Name:  "sitewright-generator-meta",
			Meta:  meta,
			Run: func(ctx context.Context, p *hooks.Payload) (*hooks.Patch, error) {
				return &hooks.Patch{Data: map[string]any{
					"generator": "sitewright " + version.Version,
					"buildId":   buildID,
				}}, nil
			},
		},
	}
}

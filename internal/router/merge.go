package router

import (
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// Merge combines plugin routes with user routes keyed by name. User routes
// always win on collision. Provenance is stamped on every route, routes
// failing shape validation are dropped with a warning, and a missing Data
// function is replaced with EmptyData.
func Merge(pluginRoutes, userRoutes map[string]Route) map[string]Route {
	merged := make(map[string]Route, len(pluginRoutes)+len(userRoutes))

	for name, r := range pluginRoutes {
		r.Name = name
		if r.Meta.Origin == "" {
			r.Meta = site.Provenance{Origin: site.OriginPlugin}
		}
		merged[name] = r
	}
	for name, r := range userRoutes {
		if _, clash := merged[name]; clash {
			slog.Debug("User route overrides plugin route", "route", name)
		}
		r.Name = name
		r.Meta = site.Provenance{Origin: site.OriginUser, AddedBy: name}
		merged[name] = r
	}

	for name, r := range merged {
		if err := Validate(r); err != nil {
			slog.Warn("Dropping invalid route", "route", name, "error", err, "added_by", r.Meta.String())
			delete(merged, name)
			continue
		}
		if r.Data == nil {
			r.Data = EmptyData
			merged[name] = r
		}
	}
	return merged
}

// RouteHooks extracts the inline hooks of every merged route, stamped with
// route provenance, in deterministic (sorted route name) order.
func RouteHooks(routes map[string]Route) []hooks.Hook {
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []hooks.Hook
	for _, name := range names {
		for _, h := range routes[name].Hooks {
			h.Meta = site.Provenance{Origin: site.OriginRoute, AddedBy: name}
			out = append(out, h)
		}
	}
	return out
}

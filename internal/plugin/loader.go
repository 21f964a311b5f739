package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/router"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// Loaded is the result of loading one plugin: its sanitized instance, its
// wrapped hooks, and its contributed routes.
type Loaded struct {
	Instance *Instance
	Hooks    []hooks.Hook
	Routes   map[string]router.Route
}

// Load resolves a configured plugin name, initializes it with merged
// configuration and a read-only settings view, validates its shape, wraps
// its hooks so state flows through the state table, and takes in its routes.
//
// Resolution or shape failures are fatal to the caller's bootstrap.
func Load(name string, resolver *Resolver, view config.View, states *Set) (*Loaded, error) {
	factory, err := resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	decl := factory()
	if err := validateShape(decl); err != nil {
		return nil, &Error{Plugin: name, Op: "validate", Err: err}
	}
	if decl.Name != name {
		return nil, &Error{Plugin: name, Op: "validate", Err: fmt.Errorf("factory produced plugin named %q", decl.Name)}
	}

	inst := &Instance{
		Name:     name,
		Config:   mergeDefaults(view.PluginConfig(name), decl.Config),
		Settings: view,
		Props:    copyShallow(decl.Props),
	}
	if decl.Init != nil {
		updated, err := decl.Init(inst)
		if err != nil {
			return nil, &Error{Plugin: name, Op: "init", Err: err}
		}
		if updated != nil {
			inst = updated
		}
	}
	states.Put(name, inst)

	loaded := &Loaded{
		Instance: inst,
		Hooks:    wrapHooks(decl, states),
		Routes:   intakeRoutes(decl, view),
	}
	slog.Debug("Plugin loaded", "plugin", name, "hooks", len(loaded.Hooks), "routes", len(loaded.Routes))
	return loaded, nil
}

// mergeDefaults merges user configuration over plugin defaults, recursing
// into nested maps. User values win.
func mergeDefaults(user, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(user))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range user {
		if uNested, ok := v.(map[string]any); ok {
			if dNested, ok := out[k].(map[string]any); ok {
				out[k] = mergeDefaults(uNested, dNested)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// wrapHooks rewraps every plugin hook so the plugin's current instance
// generation is injected into the payload before the hook runs, and an
// updated instance returned by the hook is captured into the state table
// for the next invocation, stripped from what flows down the chain.
func wrapHooks(decl *Plugin, states *Set) []hooks.Hook {
	name := decl.Name
	wrapped := make([]hooks.Hook, 0, len(decl.Hooks))
	for _, h := range decl.Hooks {
		inner := h.Run
		h.Run = func(ctx context.Context, p *hooks.Payload) (*hooks.Patch, error) {
			pc := *p
			// A copy, so in-place mutation cannot bypass the state table.
			if inst := states.Get(name); inst != nil {
				pc.Plugin = inst.Clone()
			}
			patch, err := inner(ctx, &pc)
			if patch != nil && patch.Plugin != nil {
				if updated, ok := patch.Plugin.(*Instance); ok {
					states.Put(name, updated)
				} else {
					slog.Warn("Plugin hook returned a non-instance plugin update", "plugin", name, "hook", h.Name)
				}
				patch.Plugin = nil
			}
			return patch, err
		}
		h.Meta = site.Provenance{Origin: site.OriginPlugin, AddedBy: name}
		wrapped = append(wrapped, h)
	}
	return wrapped
}

// intakeRoutes prepares plugin-contributed routes: provenance, default Data,
// hook stripping, and template artifact probing.
func intakeRoutes(decl *Plugin, view config.View) map[string]router.Route {
	if len(decl.Routes) == 0 {
		return nil
	}
	out := make(map[string]router.Route, len(decl.Routes))
	for name, r := range decl.Routes {
		r.Name = name
		r.Meta = site.Provenance{Origin: site.OriginPlugin, AddedBy: decl.Name}
		if len(r.Hooks) > 0 {
			slog.Warn("Plugin routes may not declare hooks; dropping them", "plugin", decl.Name, "route", name)
			r.Hooks = nil
		}
		if r.Data == nil {
			r.Data = router.EmptyData
		}
		probeTemplate(decl.Name, name, r.Template, view)
		out[name] = r
	}
	return out
}

// probeTemplate warns when a route references a template file that does not
// exist in the templates directory. Missing artifacts are not fatal; the
// renderer falls back to the default layout.
func probeTemplate(pluginName, routeName, template string, view config.View) {
	if template == "" || !strings.Contains(template, ".") {
		return
	}
	path := filepath.Join(view.Locations().Templates, template)
	if _, err := os.Stat(path); err != nil {
		slog.Warn("Route template artifact not found; default layout will be used",
			"plugin", pluginName, "route", routeName, "template", template, "path", path)
	}
}

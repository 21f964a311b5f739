// Package plugin provides the extension-unit system: plugin declarations,
// factory registries, the loader that initializes and sanitizes plugins, and
// the orchestrator-owned table of per-plugin state.
package plugin

import (
	"fmt"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/router"
)

// Plugin is the declared shape of an extension unit before loading.
type Plugin struct {
	// Name is the unique plugin identifier (e.g. "content", "gitmeta").
	Name string

	// Description is a human-readable summary of the plugin's purpose.
	Description string

	// Config holds the plugin's default configuration. User configuration is
	// merged over it at load time.
	Config map[string]any

	// Props are plugin-declared properties carried on the instance.
	Props map[string]any

	// Hooks are the plugin's hook declarations. Their Run functions receive
	// the plugin's sanitized instance on the payload.
	Hooks []hooks.Hook

	// Routes are plugin-contributed routes, keyed by route name.
	Routes map[string]router.Route

	// Init is called once at load time with the merged instance. Returning
	// nil keeps the instance as passed.
	Init func(inst *Instance) (*Instance, error)
}

// Instance is a plugin after init and sanitizing: hooks and Init are
// stripped, so downstream pipeline stages see only configuration, settings,
// and declared props.
type Instance struct {
	Name     string
	Config   map[string]any
	Settings config.View
	Props    map[string]any
}

// Clone returns a copy of the instance with its own maps, so a hook updating
// its plugin state never aliases the stored generation.
func (i *Instance) Clone() *Instance {
	cp := *i
	cp.Config = copyShallow(i.Config)
	cp.Props = copyShallow(i.Props)
	return &cp
}

// validateShape checks a plugin declaration. A failing plugin aborts the
// whole bootstrap: its routes and hooks would be incoherent.
func validateShape(p *Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin factory returned nil")
	}
	if p.Name == "" {
		return fmt.Errorf("plugin has no name")
	}
	for _, h := range p.Hooks {
		if h.Name == "" || h.Run == nil {
			return fmt.Errorf("plugin %q declares a malformed hook (point %q)", p.Name, h.Point)
		}
	}
	return nil
}

// Error wraps a failure inside a named plugin operation.
type Error struct {
	Plugin string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.Plugin, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func copyShallow(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

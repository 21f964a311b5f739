package config

// View is a read-only projection of Settings handed to extension code.
// Every accessor returns either a value copy or a freshly copied map, so a
// plugin or hook can never mutate the settings another component observes.
type View struct {
	s *Settings
}

// View returns the read-only projection of s.
func (s *Settings) View() View { return View{s: s} }

// Site returns the site description.
func (v View) Site() SiteConfig { return v.s.Site }

// Locations returns the directory layout.
func (v View) Locations() LocationsConfig { return v.s.Locations }

// Server returns the serve-mode configuration.
func (v View) Server() ServerConfig { return v.s.Server }

// Build returns the build fan-out configuration.
func (v View) Build() BuildConfig { return v.s.Build }

// PluginNames returns the configured plugin names in declaration order.
func (v View) PluginNames() []string {
	names := make([]string, 0, len(v.s.Plugins))
	for _, ref := range v.s.Plugins {
		names = append(names, ref.Name)
	}
	return names
}

// PluginConfig returns a copy of the user configuration for the named plugin,
// or nil if the plugin is not configured.
func (v View) PluginConfig(name string) map[string]any {
	for _, ref := range v.s.Plugins {
		if ref.Name == name {
			return copyMap(ref.Config)
		}
	}
	return nil
}

// DisabledHooks returns the configured hook disable-list.
func (v View) DisabledHooks() []string {
	return append([]string(nil), v.s.Hooks.Disable...)
}

// Progress returns the progress-streaming configuration.
func (v View) Progress() ProgressConfig { return v.s.Progress }

// EventStorePath returns the event store database path ("" when disabled).
func (v View) EventStorePath() string { return v.s.EventStore.Path }

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		if nested, ok := val.(map[string]any); ok {
			out[k] = copyMap(nested)
			continue
		}
		out[k] = val
	}
	return out
}

package hooks

import (
	"context"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// DefaultPriority is assigned to hooks that do not set one. Lower runs first;
// equal priorities keep aggregation order.
const DefaultPriority = 50

// RunFunc is the body of a hook. It receives a read view of the pipeline
// context and returns a typed patch of updates, or nil for no change.
type RunFunc func(ctx context.Context, p *Payload) (*Patch, error)

// Hook is one validated extension declaration bound to a hook point.
type Hook struct {
	Point    Point
	Name     string
	Run      RunFunc
	Priority int
	Meta     site.Provenance
}

// Payload is the read view of the pipeline context a hook receives.
// Hooks must not retain or mutate it; changes are requested via the
// returned Patch.
type Payload struct {
	Settings config.View

	// Data is the shared data bag populated during bootstrap.
	Data map[string]any

	// Props is the shared custom-properties bag.
	Props map[string]any

	// Requests is the accumulated request list. Populated only for points
	// whose interface declares the requests slot.
	Requests []*site.Request

	// Request is the single request in flight for per-request points.
	Request *site.Request

	// Hooks is the aggregated hook list. Populated only for points whose
	// interface declares the hooks slot.
	Hooks []Hook

	// Plugin carries the sanitized plugin instance for plugin-contributed
	// hooks; nil otherwise. Its concrete type belongs to the plugin package.
	Plugin any

	// Err carries the recorded failure for the error point.
	Err error
}

// Patch is the typed set of updates a hook may return. Nil fields mean
// "no change"; each field maps to one registry slot.
type Patch struct {
	// Data entries are shallow-merged into the data bag.
	Data map[string]any

	// Props entries are shallow-merged into the props bag.
	Props map[string]any

	// Requests replaces the accumulated request list when non-nil.
	Requests []*site.Request

	// Hooks replaces the aggregated hook list when non-nil. Hooks added here
	// are validated when the runner over the final list is built.
	Hooks []Hook

	// Plugin is an updated plugin instance. It is captured by the plugin
	// wrapper for the next invocation and stripped before the patch reaches
	// the runner.
	Plugin any
}

// clone copies the payload so each hook observes the state left by its
// predecessor without aliasing the caller's maps.
func (p *Payload) clone() *Payload {
	cp := *p
	cp.Data = copyBag(p.Data)
	cp.Props = copyBag(p.Props)
	cp.Requests = append([]*site.Request(nil), p.Requests...)
	cp.Hooks = append([]Hook(nil), p.Hooks...)
	return &cp
}

func copyBag(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

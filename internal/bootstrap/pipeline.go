// Package bootstrap drives the pipeline's readiness sequence: plugin and
// hook collection, staged hook execution, request enumeration, permalink
// resolution, and duplicate detection, exactly once per pipeline instance.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/metrics"
	"git.home.luguber.info/inful/sitewright/internal/plugin"
	"git.home.luguber.info/inful/sitewright/internal/router"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// Mode selects the execution context requests are resolved under.
type Mode string

const (
	ModeBuild   Mode = "build"
	ModeServer  Mode = "server"
	ModeUnknown Mode = "unknown"
)

func (m Mode) requestType() site.RequestType {
	switch m {
	case ModeBuild:
		return site.RequestTypeBuild
	case ModeServer:
		return site.RequestTypeServer
	default:
		return site.RequestTypeUnknown
	}
}

// EventRecorder persists build events. Satisfied by eventstore implementations.
type EventRecorder interface {
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error
}

// Options configures a pipeline instance.
type Options struct {
	Settings *config.Settings
	Mode     Mode

	// ProjectPlugins is the project-tier plugin factory registry (may be nil).
	ProjectPlugins *plugin.Registry

	// UserRoutes are project-defined routes. They win over plugin routes on
	// name collision.
	UserRoutes map[string]router.Route

	// ProjectHooks are hooks contributed by the project itself.
	ProjectHooks []hooks.Hook

	// Events receives stage transition records (may be nil).
	Events EventRecorder

	// Recorder receives stage metrics (nil means no metrics).
	Recorder metrics.Recorder
}

// Pipeline is the long-lived orchestration state. It is constructed in the
// Loading state and advances monotonically through Bootstrap; after the
// ready signal its routes, hook list, and request set no longer change.
type Pipeline struct {
	buildID  string
	settings *config.Settings
	view     config.View
	mode     Mode

	registry *hooks.Registry
	hookList []hooks.Hook
	runner   *hooks.Runner
	states   *plugin.Set
	routes   map[string]router.Route

	data  map[string]any
	props map[string]any

	allRequests  []*site.Request
	serverLookup map[string]*site.Request

	events   EventRecorder
	recorder metrics.Recorder
	ready    chan struct{}
	done     bool
}

// New performs the Loading state: plugin resolution and initialization,
// route merging, and hook aggregation. Plugin failures here are fatal.
func New(opts Options) (*Pipeline, error) {
	if opts.Settings == nil {
		opts.Settings = config.Defaults()
	}
	if opts.Mode == "" {
		opts.Mode = ModeUnknown
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	p := &Pipeline{
		buildID:      uuid.NewString(),
		settings:     opts.Settings,
		view:         opts.Settings.View(),
		mode:         opts.Mode,
		registry:     hooks.NewRegistry(),
		states:       plugin.NewSet(),
		data:         make(map[string]any),
		props:        make(map[string]any),
		serverLookup: make(map[string]*site.Request),
		events:       opts.Events,
		recorder:     opts.Recorder,
		ready:        make(chan struct{}),
	}

	resolver := plugin.NewResolver(opts.ProjectPlugins)
	pluginRoutes := make(map[string]router.Route)
	var pluginHooks []hooks.Hook
	for _, name := range p.view.PluginNames() {
		loaded, err := plugin.Load(name, resolver, p.view, p.states)
		if err != nil {
			return nil, fmt.Errorf("loading plugin %q: %w", name, err)
		}
		pluginHooks = append(pluginHooks, loaded.Hooks...)
		for routeName, r := range loaded.Routes {
			pluginRoutes[routeName] = r
		}
	}

	p.routes = router.Merge(pluginRoutes, opts.UserRoutes)

	projectHooks := make([]hooks.Hook, 0, len(opts.ProjectHooks))
	for _, h := range opts.ProjectHooks {
		if h.Meta.Origin == "" {
			h.Meta = site.Provenance{Origin: site.OriginProject, AddedBy: "project"}
		}
		projectHooks = append(projectHooks, h)
	}

	// Aggregation order: internal, plugin, per-route, project.
	p.hookList = append(p.hookList, internalHooks(p.buildID)...)
	p.hookList = append(p.hookList, pluginHooks...)
	p.hookList = append(p.hookList, router.RouteHooks(p.routes)...)
	p.hookList = append(p.hookList, projectHooks...)

	// Filter once here so the two runner builds during customizeHooks do not
	// warn twice about the same declaration. Hooks added at customizeHooks
	// are validated when the final runner is built.
	p.hookList = hooks.FilterValid(p.hookList, p.registry, p.view.DisabledHooks())

	slog.Debug("Pipeline loaded",
		"build_id", p.buildID,
		"mode", p.mode,
		"plugins", len(p.view.PluginNames()),
		"routes", len(p.routes),
		"hooks", len(p.hookList))
	return p, nil
}

// Bootstrap runs the readiness sequence. It may be called once; a second
// call is an error. On success the ready channel is closed.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	if p.done {
		return fmt.Errorf("pipeline %s already bootstrapped", p.buildID)
	}
	p.done = true
	return p.runStages(ctx)
}

// Ready returns the channel closed when the pipeline reaches readiness.
// Worker dispatch and server request serving wait on it.
func (p *Pipeline) Ready() <-chan struct{} { return p.ready }

// BuildID returns the unique identifier of this pipeline instance.
func (p *Pipeline) BuildID() string { return p.buildID }

// View returns the read-only settings view.
func (p *Pipeline) View() config.View { return p.view }

// Mode returns the pipeline's execution context.
func (p *Pipeline) Mode() Mode { return p.mode }

// Routes returns the merged, validated route set.
func (p *Pipeline) Routes() map[string]router.Route { return p.routes }

// Data returns the shared data bag finalized during bootstrap.
func (p *Pipeline) Data() map[string]any { return p.data }

// Props returns the custom-properties bag finalized during bootstrap.
func (p *Pipeline) Props() map[string]any { return p.props }

// Requests returns the accumulated, permalink-resolved request list.
func (p *Pipeline) Requests() []*site.Request { return p.allRequests }

// Lookup returns the request resolved to the given permalink. Populated
// only in server mode.
func (p *Pipeline) Lookup(permalink string) (*site.Request, bool) {
	req, ok := p.serverLookup[permalink]
	return req, ok
}

// Runner returns the finalized hook runner. Valid after bootstrap completes.
func (p *Pipeline) Runner() *hooks.Runner { return p.runner }

// payload assembles a hook payload from the current pipeline state.
func (p *Pipeline) payload() *hooks.Payload {
	return &hooks.Payload{
		Settings: p.view,
		Data:     p.data,
		Props:    p.props,
		Requests: p.allRequests,
	}
}

// absorb copies a final hook payload back into the pipeline state.
func (p *Pipeline) absorb(out *hooks.Payload, withRequests bool) {
	p.data = out.Data
	p.props = out.Props
	if withRequests {
		p.allRequests = out.Requests
	}
}

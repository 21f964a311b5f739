package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/sitewright/internal/eventstore"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// stage is a discrete unit of the readiness sequence.
type stage func(ctx context.Context, p *Pipeline) error

// Stage names, in execution order.
const (
	StageCustomizeHooks    = "customize-hooks"
	StageBootstrapHooks    = "bootstrap-hooks"
	StageEnumerateRequests = "enumerate-requests"
	StageAllRequestsHook   = "all-requests-hook"
	StageResolvePermalinks = "resolve-permalinks"
	StageReady             = "ready"
)

var orderedStages = []struct {
	name string
	run  stage
}{
	{StageCustomizeHooks, stageCustomizeHooks},
	{StageBootstrapHooks, stageBootstrapHooks},
	{StageEnumerateRequests, stageEnumerateRequests},
	{StageAllRequestsHook, stageAllRequestsHook},
	{StageResolvePermalinks, stageResolvePermalinks},
	{StageReady, stageReady},
}

// runStages executes the stages strictly in order, each fully completing
// before the next begins. Any error aborts the whole sequence; no partial
// readiness is ever exposed.
func (p *Pipeline) runStages(ctx context.Context) error {
	p.record(ctx, eventstore.TypeBuildStarted, nil, map[string]string{"mode": string(p.mode)})

	for _, s := range orderedStages {
		if err := ctx.Err(); err != nil {
			return newCanceledStageError(s.name, err)
		}

		start := time.Now()
		p.record(ctx, eventstore.TypeStageStarted, nil, map[string]string{"stage": s.name})
		err := s.run(ctx, p)
		elapsed := time.Since(start)
		p.recorder.ObserveStageDuration(s.name, elapsed)

		if err != nil {
			p.record(ctx, eventstore.TypeStageFailed, []byte(err.Error()), map[string]string{"stage": s.name})
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return newCanceledStageError(s.name, err)
			}
			return newFatalStageError(s.name, err)
		}
		p.record(ctx, eventstore.TypeStageCompleted, nil, map[string]string{"stage": s.name})
		slog.Debug("Bootstrap stage completed", "stage", s.name, "duration", elapsed)
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, eventType string, payload []byte, metadata map[string]string) {
	if p.events == nil {
		return
	}
	if err := p.events.Append(ctx, p.buildID, eventType, payload, metadata); err != nil {
		slog.Warn("Failed to record build event", "type", eventType, "error", err)
	}
}

// stageCustomizeHooks runs the customizeHooks point using only non-plugin
// hooks, then builds the runner over the possibly-amended hook set. Plugins
// stay side-effect-isolated until the hook list is finalized, but the full
// aggregated list (plugin hooks included) is exposed through the hooks slot
// so a project can filter or extend it.
func stageCustomizeHooks(ctx context.Context, p *Pipeline) error {
	var nonPlugin []hooks.Hook
	for _, h := range p.hookList {
		if h.Meta.Origin != site.OriginPlugin {
			nonPlugin = append(nonPlugin, h)
		}
	}

	early := hooks.NewRunner(p.registry, nonPlugin, p.view.DisabledHooks())
	payload := p.payload()
	payload.Hooks = append([]hooks.Hook(nil), p.hookList...)
	out, err := early.Run(ctx, hooks.PointCustomizeHooks, payload)
	if err != nil {
		return err
	}
	p.absorb(out, false)
	p.hookList = out.Hooks

	p.runner = hooks.NewRunner(p.registry, p.hookList, p.view.DisabledHooks())
	return nil
}

// stageBootstrapHooks runs the bootstrap point over the full hook set.
func stageBootstrapHooks(ctx context.Context, p *Pipeline) error {
	out, err := p.runner.Run(ctx, hooks.PointBootstrap, p.payload())
	if err != nil {
		return err
	}
	p.absorb(out, false)
	return nil
}

// stageEnumerateRequests calls every valid route's enumerator and
// accumulates the tagged requests. Enumeration failures and slug-less
// requests are fatal, naming the offending route.
func stageEnumerateRequests(ctx context.Context, p *Pipeline) error {
	names := make([]string, 0, len(p.routes))
	for name := range p.routes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		route := p.routes[name]
		reqs, err := route.All(ctx, p.view)
		if err != nil {
			return fmt.Errorf("route %q failed to enumerate requests: %w", name, err)
		}
		for i := range reqs {
			req := reqs[i]
			if req.Slug == "" {
				return fmt.Errorf("route %q produced a request without a slug (index %d): %+v", name, i, req)
			}
			req.Route = name
			p.allRequests = append(p.allRequests, &req)
		}
		slog.Debug("Route enumerated", "route", name, "requests", len(reqs))
	}
	return nil
}

// stageAllRequestsHook runs the allRequests point once over the full
// accumulated list, allowing global filtering or augmentation.
func stageAllRequestsHook(ctx context.Context, p *Pipeline) error {
	out, err := p.runner.Run(ctx, hooks.PointAllRequests, p.payload())
	if err != nil {
		return err
	}
	p.absorb(out, true)
	return nil
}

// stageResolvePermalinks computes every request's permalink, tags its type
// with the active context, indexes it for server lookup, and fails fast on
// the first permalink collision, naming both requests.
func stageResolvePermalinks(ctx context.Context, p *Pipeline) error {
	prefix := ""
	if p.mode == ModeServer {
		prefix = p.view.Server().Prefix
	}
	requestType := p.mode.requestType()

	seen := make(map[string]*site.Request, len(p.allRequests))
	for _, req := range p.allRequests {
		route, ok := p.routes[req.Route]
		if !ok {
			return fmt.Errorf("request %s references unknown route %q", req, req.Route)
		}
		req.Permalink = prefix + route.Permalink(req, p.view)
		req.Type = requestType

		if prev, dup := seen[req.Permalink]; dup {
			return duplicatePermalinkError(prev, req)
		}
		seen[req.Permalink] = req

		if p.mode == ModeServer {
			p.serverLookup[req.Permalink] = req
		}
	}
	return nil
}

// duplicatePermalinkError reports both colliding request payloads so the
// operator can identify the source routes and slugs.
func duplicatePermalinkError(a, b *site.Request) error {
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return fmt.Errorf("duplicate permalink %q produced by %s and %s (payloads: %s vs %s)",
		b.Permalink, a, b, aJSON, bJSON)
}

// stageReady signals readiness; everything awaiting the pipeline unblocks.
func stageReady(ctx context.Context, p *Pipeline) error {
	p.recorder.SetRequestsTotal(len(p.allRequests))
	close(p.ready)
	slog.Info("Pipeline ready",
		"build_id", p.buildID,
		"mode", p.mode,
		"routes", len(p.routes),
		"requests", len(p.allRequests),
		"hooks", p.runner.Count())
	return nil
}

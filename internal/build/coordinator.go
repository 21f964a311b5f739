// Package build fans a ready pipeline's requests out across parallel worker
// dispatchers and aggregates their progress into one build result.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitewright/internal/bootstrap"
	"git.home.luguber.info/inful/sitewright/internal/eventstore"
	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/metrics"
	"git.home.luguber.info/inful/sitewright/internal/render"
	"git.home.luguber.info/inful/sitewright/internal/site"
	"git.home.luguber.info/inful/sitewright/internal/storage"
	"git.home.luguber.info/inful/sitewright/internal/worker"
)

// Options configures a coordinated build.
type Options struct {
	Pipeline *bootstrap.Pipeline
	Renderer render.PageRenderer

	// Writer persists rendered pages. Nil renders without writing (serve
	// mode warms and verifies this way).
	Writer *storage.PageWriter

	// Workers is the number of parallel dispatchers; values below 1 mean 1.
	Workers int

	// Progress receives every worker's events, in per-worker order.
	Progress worker.Sink

	Recorder metrics.Recorder
	Events   bootstrap.EventRecorder
}

// Result summarizes a completed build.
type Result struct {
	BuildID  string
	Total    int
	Errors   []worker.Failure
	Timings  []worker.Timing
	Duration time.Duration
}

// Run waits for pipeline readiness, shards the request set across worker
// dispatchers, and builds every request. Per-request failures are collected,
// not fatal; only context cancellation aborts a build.
func Run(ctx context.Context, opts Options) (*Result, error) {
	p := opts.Pipeline
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	select {
	case <-p.Ready():
	case <-ctx.Done():
		return nil, fmt.Errorf("pipeline not ready: %w", ctx.Err())
	}

	reqs := p.Requests()
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}
	if workers == 0 {
		workers = 1
	}

	start := time.Now()
	slog.Info("Starting build", "build_id", p.BuildID(), "requests", len(reqs), "workers", workers)

	builder := newHookedBuilder(p, opts.Renderer, opts.Writer, recorder, opts.Events)

	var (
		mu      sync.Mutex
		timings []worker.Timing
		wg      sync.WaitGroup
	)
	shards := shard(reqs, workers)
	wg.Add(len(shards))
	for i, subset := range shards {
		go func(id int, subset []*site.Request) {
			defer wg.Done()
			d := worker.NewDispatcher(p.BuildID(), builder, opts.Progress)
			ts, err := d.Dispatch(ctx, subset)
			if err != nil {
				slog.Warn("Worker batch ended early", "worker", id, "error", err)
			}
			mu.Lock()
			timings = append(timings, ts...)
			mu.Unlock()
		}(i, subset)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		recorder.IncBuildOutcome("canceled")
		return nil, err
	}

	result := &Result{
		BuildID:  p.BuildID(),
		Total:    len(reqs),
		Timings:  timings,
		Duration: time.Since(start),
	}
	for _, t := range timings {
		if t.Err != nil {
			result.Errors = append(result.Errors, worker.Failure{Request: t.Request, Err: t.Err.Error()})
		}
	}

	runObservationalHook(ctx, p, hooks.PointBuildComplete, nil, nil)

	recorder.ObserveBuildDuration(result.Duration)
	if len(result.Errors) == 0 {
		recorder.IncBuildOutcome("success")
	} else {
		recorder.IncBuildOutcome("failed")
	}
	if opts.Events != nil {
		payload, _ := json.Marshal(map[string]any{"total": result.Total, "errors": len(result.Errors)})
		if err := opts.Events.Append(ctx, p.BuildID(), eventstore.TypeBuildCompleted, payload, nil); err != nil {
			slog.Warn("Failed to record build completion", "error", err)
		}
	}

	slog.Info("Build finished",
		"build_id", result.BuildID,
		"requests", result.Total,
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

// shard splits requests into n contiguous, disjoint subsets, preserving
// array order within each subset.
func shard(reqs []*site.Request, n int) [][]*site.Request {
	if len(reqs) == 0 {
		return nil
	}
	out := make([][]*site.Request, 0, n)
	size := (len(reqs) + n - 1) / n
	for start := 0; start < len(reqs); start += size {
		end := start + size
		if end > len(reqs) {
			end = len(reqs)
		}
		out = append(out, reqs[start:end])
	}
	return out
}

// newHookedBuilder composes rendering, page writing, metrics, and the
// per-request observational hooks into one worker builder.
func newHookedBuilder(p *bootstrap.Pipeline, renderer render.PageRenderer, writer *storage.PageWriter, recorder metrics.Recorder, events bootstrap.EventRecorder) worker.Builder {
	return worker.BuilderFunc(func(ctx context.Context, req *site.Request) error {
		start := time.Now()
		html, err := renderer.RenderPage(ctx, req)
		if err == nil && writer != nil {
			_, err = writer.Write(req.Permalink, html)
		}
		recorder.ObserveRequestBuild(req.Route, time.Since(start), err == nil)

		if err != nil {
			runObservationalHook(ctx, p, hooks.PointError, req, err)
			if events != nil {
				payload, _ := json.Marshal(worker.Failure{Request: req, Err: err.Error()})
				if aerr := events.Append(ctx, p.BuildID(), eventstore.TypeRequestFailed, payload, nil); aerr != nil {
					slog.Warn("Failed to record request failure", "error", aerr)
				}
			}
			return err
		}
		runObservationalHook(ctx, p, hooks.PointRequestComplete, req, nil)
		return nil
	})
}

// runObservationalHook runs a hook point whose interface declares no
// mutable slots. Hook errors are logged, never fatal to the request.
func runObservationalHook(ctx context.Context, p *bootstrap.Pipeline, point hooks.Point, req *site.Request, failure error) {
	runner := p.Runner()
	if runner == nil || len(runner.Hooks(point)) == 0 {
		return
	}
	payload := &hooks.Payload{
		Settings: p.View(),
		Data:     p.Data(),
		Props:    p.Props(),
		Request:  req,
		Err:      failure,
	}
	if _, err := runner.Run(ctx, point, payload); err != nil {
		slog.Warn("Hook point failed", "point", point, "error", err)
	}
}

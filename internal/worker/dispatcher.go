package worker

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitewright/internal/site"
)

// Builder produces one request's output. The render and storage layers are
// composed into one by the build coordinator.
type Builder interface {
	BuildRequest(ctx context.Context, req *site.Request) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, req *site.Request) error

func (f BuilderFunc) BuildRequest(ctx context.Context, req *site.Request) error {
	return f(ctx, req)
}

// Timing records one request's build outcome.
type Timing struct {
	Request  *site.Request
	Duration time.Duration
	Err      error
}

// Dispatcher builds a disjoint subset of requests sequentially. A failing
// request is recorded and does not abort the remaining requests in the
// batch; progress messages are emitted in build order.
type Dispatcher struct {
	BuildID string
	builder Builder
	events  Sink
}

// NewDispatcher creates a dispatcher. events may be nil.
func NewDispatcher(buildID string, builder Builder, events Sink) *Dispatcher {
	return &Dispatcher{BuildID: buildID, builder: builder, events: events}
}

func (d *Dispatcher) emit(e Event) {
	if d.events != nil {
		d.events(e)
	}
}

// Dispatch builds every assigned request, one at a time, and returns the
// per-request timings. Only context cancellation ends a batch early.
func (d *Dispatcher) Dispatch(ctx context.Context, reqs []*site.Request) ([]Timing, error) {
	d.emit(Started{BuildID: d.BuildID, Total: len(reqs)})

	timings := make([]Timing, 0, len(reqs))
	completed := 0
	errorCount := 0
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return timings, err
		}

		start := time.Now()
		err := d.builder.BuildRequest(ctx, req)
		elapsed := time.Since(start)
		timings = append(timings, Timing{Request: req, Duration: elapsed, Err: err})
		completed++

		var detail *Failure
		if err != nil {
			errorCount++
			detail = &Failure{Request: req, Err: err.Error()}
			slog.Error("Request build failed", "route", req.Route, "slug", req.Slug, "permalink", req.Permalink, "error", err)
		} else {
			slog.Debug("Request built", "permalink", req.Permalink, "duration", elapsed)
		}
		d.emit(Completed{BuildID: d.BuildID, Index: completed, ErrorCount: errorCount, Detail: detail})
	}
	return timings, nil
}

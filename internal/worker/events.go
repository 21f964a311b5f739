// Package worker drives per-request production work: each dispatcher builds
// its assigned request subset strictly one at a time and streams typed,
// ordered progress events back to the coordinator.
package worker

import (
	"git.home.luguber.info/inful/sitewright/internal/site"
)

// EventKind discriminates progress event variants.
type EventKind string

const (
	// KindStart is emitted once before a batch begins.
	KindStart EventKind = "start"

	// KindHTML is emitted after every completed request.
	KindHTML EventKind = "html"
)

// Event is one progress message in a worker's ordered stream.
type Event interface {
	Kind() EventKind
}

// Started announces a batch and its total request count.
type Started struct {
	BuildID string `json:"build_id,omitempty"`
	Total   int    `json:"total"`
}

func (Started) Kind() EventKind { return KindStart }

// Completed reports one finished request: how many have completed so far,
// the running error count, and failure detail when the request failed.
type Completed struct {
	BuildID    string   `json:"build_id,omitempty"`
	Index      int      `json:"index"`
	ErrorCount int      `json:"error_count"`
	Detail     *Failure `json:"detail,omitempty"`
}

func (Completed) Kind() EventKind { return KindHTML }

// Failure records a per-request build error alongside the full request
// payload, so the operator can locate the source route and slug.
type Failure struct {
	Request *site.Request `json:"request"`
	Err     string        `json:"error"`
}

// Sink consumes progress events. Sinks must not block for long; the
// dispatcher emits synchronously to preserve ordering.
type Sink func(Event)

// MultiSink fans one event out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s(e)
			}
		}
	}
}

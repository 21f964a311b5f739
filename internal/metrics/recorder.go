// Package metrics provides observability hooks for the build pipeline.
// Components receive a Recorder through injection; the default NoopRecorder
// keeps metrics collection free when nothing is configured.
package metrics

import "time"

// Recorder defines the pipeline's observability hooks. Implementations may
// forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	ObserveRequestBuild(route string, d time.Duration, success bool)
	SetRequestsTotal(n int)
	IncBuildOutcome(outcome string) // success|failed|canceled
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)      {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)              {}
func (NoopRecorder) ObserveRequestBuild(string, time.Duration, bool) {}
func (NoopRecorder) SetRequestsTotal(int)                            {}
func (NoopRecorder) IncBuildOutcome(string)                          {}

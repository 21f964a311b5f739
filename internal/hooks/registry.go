// Package hooks implements the extension-point machinery of the pipeline:
// the fixed catalog of hook points, declaration validation, and the
// sequential runner that threads a context payload through registered hooks.
package hooks

// Point names a fixed moment in the pipeline where registered hooks may run.
type Point string

const (
	// PointCustomizeHooks fires before the full hook list is finalized.
	// Only non-plugin hooks run here.
	PointCustomizeHooks Point = "customizeHooks"

	// PointBootstrap fires once after hook collection, before request
	// enumeration. Project and plugin setup side effects belong here.
	PointBootstrap Point = "bootstrap"

	// PointAllRequests fires once over the fully accumulated request list.
	PointAllRequests Point = "allRequests"

	// PointRequestComplete fires after each request finishes building.
	PointRequestComplete Point = "requestComplete"

	// PointBuildComplete fires once after a worker batch completes.
	PointBuildComplete Point = "buildComplete"

	// PointError fires when a per-request build failure is recorded.
	PointError Point = "error"
)

// Slot names a mutable field of the hook payload.
type Slot string

const (
	SlotData     Slot = "data"
	SlotProps    Slot = "props"
	SlotRequests Slot = "requests"
	SlotHooks    Slot = "hooks"
)

// Interface describes one hook point: when it fires and which payload slots
// hooks registered on it may mutate.
type Interface struct {
	Point       Point
	Description string
	Mutable     []Slot
}

// Allows reports whether the interface declares the slot mutable.
func (i Interface) Allows(s Slot) bool {
	for _, m := range i.Mutable {
		if m == s {
			return true
		}
	}
	return false
}

// Registry is the catalog of valid hook points.
type Registry struct {
	points map[Point]Interface
}

// NewRegistry returns the default hook point catalog.
func NewRegistry() *Registry {
	r := &Registry{points: make(map[Point]Interface)}
	for _, i := range []Interface{
		{
			Point:       PointCustomizeHooks,
			Description: "customize the hook set before plugins join; runs non-plugin hooks only",
			Mutable:     []Slot{SlotData, SlotProps, SlotHooks},
		},
		{
			Point:       PointBootstrap,
			Description: "project and plugin setup before request enumeration",
			Mutable:     []Slot{SlotData, SlotProps},
		},
		{
			Point:       PointAllRequests,
			Description: "post-process the full request list before permalink resolution",
			Mutable:     []Slot{SlotRequests, SlotData},
		},
		{
			Point:       PointRequestComplete,
			Description: "observe a completed request build",
			Mutable:     nil,
		},
		{
			Point:       PointBuildComplete,
			Description: "observe a completed build",
			Mutable:     nil,
		},
		{
			Point:       PointError,
			Description: "observe a recorded per-request build failure",
			Mutable:     nil,
		},
	} {
		r.points[i.Point] = i
	}
	return r
}

// Lookup returns the interface for a point.
func (r *Registry) Lookup(p Point) (Interface, bool) {
	i, ok := r.points[p]
	return i, ok
}

// Points returns all registered point names.
func (r *Registry) Points() []Point {
	out := make([]Point, 0, len(r.points))
	for p := range r.points {
		out = append(out, p)
	}
	return out
}

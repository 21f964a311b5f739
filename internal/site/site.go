// Package site holds the shared data model of the build pipeline: requests,
// request types, and provenance tags. It sits below every other package so
// hooks, routes, and plugins can exchange values without import cycles.
package site

import "fmt"

// RequestType records the execution context a request was resolved under.
type RequestType string

const (
	// RequestTypeBuild marks requests resolved during a static build.
	RequestTypeBuild RequestType = "build"

	// RequestTypeServer marks requests resolved while serving.
	RequestTypeServer RequestType = "server"

	// RequestTypeUnknown marks requests resolved outside a known context.
	RequestTypeUnknown RequestType = "unknown"
)

// Origin identifies which kind of source contributed a hook or route.
type Origin string

const (
	OriginInternal Origin = "internal"
	OriginPlugin   Origin = "plugin"
	OriginRoute    Origin = "route"
	OriginProject  Origin = "project"
	OriginUser     Origin = "user"
)

// Provenance tags a hook or route with the source that contributed it.
type Provenance struct {
	Origin  Origin
	AddedBy string // plugin name, route name, or "internal"/"project"
}

func (p Provenance) String() string {
	if p.AddedBy == "" {
		return string(p.Origin)
	}
	return fmt.Sprintf("%s(%s)", p.Origin, p.AddedBy)
}

// Request is one concrete unit of output derived from a route.
//
// Slug is mandatory at creation. Permalink and Type are assigned during
// bootstrap; output identity is governed solely by the resolved Permalink,
// which must be unique across the whole request set.
type Request struct {
	// Route is the name of the owning route, tagged during enumeration.
	Route string

	// Slug identifies the request within its route.
	Slug string

	// Permalink is the resolved output path. Empty until bootstrap resolves it.
	Permalink string

	// Type records the context the request was resolved under.
	Type RequestType

	// Data carries route-supplied fields for this request.
	Data map[string]any
}

// Clone returns a deep-enough copy for handing across a worker boundary.
// The Data map is copied one level; values are shared.
func (r *Request) Clone() *Request {
	cp := *r
	if r.Data != nil {
		cp.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}

func (r *Request) String() string {
	return fmt.Sprintf("request{route=%s slug=%s permalink=%s type=%s}", r.Route, r.Slug, r.Permalink, r.Type)
}

package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Runner executes the validated hooks registered for a hook point, in order,
// threading a payload through the chain. One hook runs at a time; each
// returned patch is applied before the next hook starts, so ordering and
// mutation visibility are deterministic.
type Runner struct {
	registry *Registry
	byPoint  map[Point][]Hook
}

// NewRunner validates and filters the aggregated hook list and indexes it by
// point. Within a point, hooks are stable-sorted by priority so equal
// priorities keep aggregation order.
func NewRunner(reg *Registry, list []Hook, disabled []string) *Runner {
	byPoint := make(map[Point][]Hook)
	for _, h := range FilterValid(list, reg, disabled) {
		if h.Priority == 0 {
			h.Priority = DefaultPriority
		}
		byPoint[h.Point] = append(byPoint[h.Point], h)
	}
	for p := range byPoint {
		hs := byPoint[p]
		sort.SliceStable(hs, func(i, j int) bool { return hs[i].Priority < hs[j].Priority })
	}
	return &Runner{registry: reg, byPoint: byPoint}
}

// Hooks returns the executable hooks for a point, in execution order.
func (r *Runner) Hooks(p Point) []Hook {
	return append([]Hook(nil), r.byPoint[p]...)
}

// Count returns the total number of executable hooks.
func (r *Runner) Count() int {
	n := 0
	for _, hs := range r.byPoint {
		n += len(hs)
	}
	return n
}

// Run executes all hooks registered for point against the initial payload
// and returns the final payload. A hook returning an error aborts the chain.
func (r *Runner) Run(ctx context.Context, point Point, initial *Payload) (*Payload, error) {
	iface, ok := r.registry.Lookup(point)
	if !ok {
		return nil, fmt.Errorf("unknown hook point %q", point)
	}

	current := initial.clone()
	for _, h := range r.byPoint[point] {
		patch, err := h.Run(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hook %q on %q: %w", h.Name, point, err)
		}
		if patch == nil {
			continue
		}
		current = applyPatch(current, patch, iface, h.Name)
	}
	return current, nil
}

// applyPatch merges one hook's patch into the payload, enforcing the slot
// contract of the hook point. Updates to undeclared slots are dropped with
// a warning, never fatally.
func applyPatch(p *Payload, patch *Patch, iface Interface, hookName string) *Payload {
	next := p.clone()

	if patch.Data != nil {
		if iface.Allows(SlotData) {
			for k, v := range patch.Data {
				next.Data[k] = v
			}
		} else {
			slog.Warn("Hook patched undeclared slot", "hook", hookName, "point", iface.Point, "slot", SlotData)
		}
	}
	if patch.Props != nil {
		if iface.Allows(SlotProps) {
			for k, v := range patch.Props {
				next.Props[k] = v
			}
		} else {
			slog.Warn("Hook patched undeclared slot", "hook", hookName, "point", iface.Point, "slot", SlotProps)
		}
	}
	if patch.Requests != nil {
		if iface.Allows(SlotRequests) {
			next.Requests = patch.Requests
		} else {
			slog.Warn("Hook patched undeclared slot", "hook", hookName, "point", iface.Point, "slot", SlotRequests)
		}
	}
	if patch.Hooks != nil {
		if iface.Allows(SlotHooks) {
			next.Hooks = patch.Hooks
		} else {
			slog.Warn("Hook patched undeclared slot", "hook", hookName, "point", iface.Point, "slot", SlotHooks)
		}
	}
	if patch.Plugin != nil {
		// Plugin updates are captured by the plugin wrapper; one reaching the
		// runner came from a non-plugin hook and has no owner.
		slog.Warn("Hook returned a plugin update outside a plugin context", "hook", hookName, "point", iface.Point)
	}
	return next
}

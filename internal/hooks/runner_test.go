package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitewright/internal/site"
)

func appendHook(name string, priority int) Hook {
	return Hook{
		Point:    PointBootstrap,
		Name:     name,
		Priority: priority,
		Run: func(ctx context.Context, p *Payload) (*Patch, error) {
			order, _ := p.Data["order"].(string)
			return &Patch{Data: map[string]any{"order": order + name}}, nil
		},
	}
}

func emptyPayload() *Payload {
	return &Payload{Data: map[string]any{}, Props: map[string]any{}}
}

func TestRunnerExecutesInAggregationOrder(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, []Hook{appendHook("a", 0), appendHook("b", 0), appendHook("c", 0)}, nil)

	out, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Data["order"])
}

func TestRunnerPriorityOverridesAggregationOrder(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, []Hook{appendHook("late", 90), appendHook("early", 10), appendHook("mid", 0)}, nil)

	out, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	// mid gets the default priority 50.
	assert.Equal(t, "earlymidlate", out.Data["order"])
}

func TestRunnerIsDeterministic(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, []Hook{appendHook("a", 0), appendHook("b", 0)}, nil)

	first, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.Props, second.Props)
}

func TestRunnerDropsHookOnUnknownPoint(t *testing.T) {
	reg := NewRegistry()
	bad := Hook{Point: Point("noSuchPoint"), Name: "bad", Run: func(ctx context.Context, p *Payload) (*Patch, error) {
		return nil, nil
	}}
	runner := NewRunner(reg, []Hook{bad, appendHook("good", 0)}, nil)

	assert.Equal(t, 1, runner.Count())
	assert.Empty(t, runner.Hooks(Point("noSuchPoint")))

	out, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	assert.Equal(t, "good", out.Data["order"])
}

func TestRunnerDisableList(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, []Hook{appendHook("keep", 0), appendHook("skip", 0)}, []string{"skip"})

	out, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	assert.Equal(t, "keep", out.Data["order"])
}

func TestRunnerDropsUndeclaredSlotPatch(t *testing.T) {
	reg := NewRegistry()
	sneaky := Hook{Point: PointBootstrap, Name: "sneaky", Run: func(ctx context.Context, p *Payload) (*Patch, error) {
		// bootstrap does not declare the requests slot
		return &Patch{
			Requests: []*site.Request{{Slug: "injected"}},
			Data:     map[string]any{"ok": true},
		}, nil
	}}
	runner := NewRunner(reg, []Hook{sneaky}, nil)

	out, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	assert.Empty(t, out.Requests)
	assert.Equal(t, true, out.Data["ok"])
}

func TestRunnerRequestsSlotOnAllRequests(t *testing.T) {
	reg := NewRegistry()
	filter := Hook{Point: PointAllRequests, Name: "filter", Run: func(ctx context.Context, p *Payload) (*Patch, error) {
		var kept []*site.Request
		for _, r := range p.Requests {
			if r.Slug != "drop-me" {
				kept = append(kept, r)
			}
		}
		return &Patch{Requests: kept}, nil
	}}
	runner := NewRunner(reg, []Hook{filter}, nil)

	initial := emptyPayload()
	initial.Requests = []*site.Request{{Slug: "a"}, {Slug: "drop-me"}, {Slug: "b"}}

	out, err := runner.Run(context.Background(), PointAllRequests, initial)
	require.NoError(t, err)
	require.Len(t, out.Requests, 2)
	assert.Equal(t, "a", out.Requests[0].Slug)
	assert.Equal(t, "b", out.Requests[1].Slug)
}

func TestRunnerHooksSlotOnCustomizeHooks(t *testing.T) {
	reg := NewRegistry()
	trim := Hook{Point: PointCustomizeHooks, Name: "trim", Run: func(ctx context.Context, p *Payload) (*Patch, error) {
		var kept []Hook
		for _, h := range p.Hooks {
			if h.Name != "unwanted" {
				kept = append(kept, h)
			}
		}
		return &Patch{Hooks: kept}, nil
	}}
	runner := NewRunner(reg, []Hook{trim}, nil)

	initial := emptyPayload()
	initial.Hooks = []Hook{appendHook("wanted", 0), appendHook("unwanted", 0)}

	out, err := runner.Run(context.Background(), PointCustomizeHooks, initial)
	require.NoError(t, err)
	require.Len(t, out.Hooks, 1)
	assert.Equal(t, "wanted", out.Hooks[0].Name)
	// the initial payload keeps its own list
	assert.Len(t, initial.Hooks, 2)
}

func TestRunnerDropsHooksPatchOutsideCustomizeHooks(t *testing.T) {
	reg := NewRegistry()
	sneaky := Hook{Point: PointBootstrap, Name: "sneaky", Run: func(ctx context.Context, p *Payload) (*Patch, error) {
		// bootstrap does not declare the hooks slot
		return &Patch{Hooks: []Hook{appendHook("smuggled", 0)}}, nil
	}}
	runner := NewRunner(reg, []Hook{sneaky}, nil)

	out, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.NoError(t, err)
	assert.Empty(t, out.Hooks)
}

func TestRunnerPropagatesHookError(t *testing.T) {
	reg := NewRegistry()
	boom := Hook{Point: PointBootstrap, Name: "boom", Run: func(ctx context.Context, p *Payload) (*Patch, error) {
		return nil, errors.New("kaput")
	}}
	runner := NewRunner(reg, []Hook{boom}, nil)

	_, err := runner.Run(context.Background(), PointBootstrap, emptyPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "kaput")
}

func TestRunnerDoesNotMutateInitialPayload(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, []Hook{appendHook("a", 0)}, nil)

	initial := emptyPayload()
	initial.Data["order"] = "seed-"
	out, err := runner.Run(context.Background(), PointBootstrap, initial)
	require.NoError(t, err)

	assert.Equal(t, "seed-", initial.Data["order"])
	assert.Equal(t, "seed-a", out.Data["order"])
}

func TestValidate(t *testing.T) {
	reg := NewRegistry()
	run := func(ctx context.Context, p *Payload) (*Patch, error) { return nil, nil }

	tests := []struct {
		name string
		hook Hook
		ok   bool
	}{
		{"valid", Hook{Point: PointBootstrap, Name: "h", Run: run}, true},
		{"missing name", Hook{Point: PointBootstrap, Run: run}, false},
		{"missing run", Hook{Point: PointBootstrap, Name: "h"}, false},
		{"unknown point", Hook{Point: Point("bogus"), Name: "h", Run: run}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.hook, reg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

/*
Package pipeline provides a small generic engine for running a directed graph
of named stages over a caller-owned state record.

Stages run strictly sequentially within one run. Before each stage the engine
consults the cancellation hook and stops immediately when it reports true,
skipping every remaining stage. After each stage the progress hook fires
(best effort; a panicking hook never aborts the run). A stage error halts the
walk and is surfaced in the returned Outcome rather than panicking outward;
callers fold it into their own state.

Edges are either unconditional or conditional: a conditional edge carries a
router function over the state returning a Route, mapped through a fixed
target table. An unknown route is a construction bug and fails the run.
*/
package pipeline

import (
	"context"
	"fmt"
)

// Route is a router function's verdict, one member of a fixed per-edge set.
type Route string

// StageFunc mutates the state record for one named stage.
type StageFunc[S any] func(ctx context.Context, state *S) error

// Hooks are the run's side channels: a cancellation probe checked before each
// stage and a fire-and-forget progress callback invoked after each stage.
type Hooks[S any] struct {
	OnStage   func(stage string, state *S)
	Cancelled func(ctx context.Context) bool
}

// Outcome reports how a run ended. Stage names the last stage reached.
type Outcome struct {
	Cancelled bool
	Stage     string
	Err       error
}

type conditional[S any] struct {
	router  func(*S) Route
	targets map[Route]string
}

type Graph[S any] struct {
	stages       map[string]StageFunc[S]
	edges        map[string]string
	conditionals map[string]conditional[S]
	entry        string
	buildErr     error
}

func New[S any]() *Graph[S] {
	return &Graph[S]{
		stages:       make(map[string]StageFunc[S]),
		edges:        make(map[string]string),
		conditionals: make(map[string]conditional[S]),
	}
}

func (g *Graph[S]) fail(format string, args ...any) *Graph[S] {
	if g.buildErr == nil {
		g.buildErr = fmt.Errorf(format, args...)
	}
	return g
}

func (g *Graph[S]) AddStage(name string, fn StageFunc[S]) *Graph[S] {
	if name == "" || fn == nil {
		return g.fail("pipeline: stage requires a name and a function")
	}
	if _, exists := g.stages[name]; exists {
		return g.fail("pipeline: duplicate stage %q", name)
	}
	g.stages[name] = fn
	return g
}

func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if _, exists := g.edges[from]; exists {
		return g.fail("pipeline: stage %q already has an edge", from)
	}
	if _, exists := g.conditionals[from]; exists {
		return g.fail("pipeline: stage %q already has a conditional edge", from)
	}
	g.edges[from] = to
	return g
}

func (g *Graph[S]) AddConditional(from string, router func(*S) Route, targets map[Route]string) *Graph[S] {
	if router == nil || len(targets) == 0 {
		return g.fail("pipeline: conditional edge requires a router and targets")
	}
	if _, exists := g.edges[from]; exists {
		return g.fail("pipeline: stage %q already has an edge", from)
	}
	if _, exists := g.conditionals[from]; exists {
		return g.fail("pipeline: stage %q already has a conditional edge", from)
	}
	g.conditionals[from] = conditional[S]{router: router, targets: targets}
	return g
}

func (g *Graph[S]) SetEntry(name string) *Graph[S] {
	g.entry = name
	return g
}

// Run walks the graph from the entry stage. The state record is mutated in
// place; Outcome reports cancellation or the halting error.
func (g *Graph[S]) Run(ctx context.Context, state *S, hooks Hooks[S]) Outcome {
	if g.buildErr != nil {
		return Outcome{Err: g.buildErr}
	}
	if g.entry == "" {
		return Outcome{Err: fmt.Errorf("pipeline: entry stage not set")}
	}

	// A walk visiting more stages than exist has looped.
	maxSteps := len(g.stages)

	cur := g.entry
	last := ""
	for step := 0; cur != ""; step++ {
		if step >= maxSteps {
			return Outcome{Stage: last, Err: fmt.Errorf("pipeline: cycle detected at stage %q", cur)}
		}

		if hooks.Cancelled != nil && hooks.Cancelled(ctx) {
			return Outcome{Cancelled: true, Stage: last}
		}

		fn, ok := g.stages[cur]
		if !ok {
			return Outcome{Stage: last, Err: fmt.Errorf("pipeline: unknown stage %q", cur)}
		}
		if err := fn(ctx, state); err != nil {
			return Outcome{Stage: cur, Err: err}
		}
		last = cur
		g.notify(hooks, cur, state)

		if cond, ok := g.conditionals[cur]; ok {
			route := cond.router(state)
			next, ok := cond.targets[route]
			if !ok {
				return Outcome{Stage: cur, Err: fmt.Errorf("pipeline: stage %q routed to unknown target %q", cur, route)}
			}
			cur = next
			continue
		}
		cur = g.edges[cur]
	}

	return Outcome{Stage: last}
}

func (g *Graph[S]) notify(hooks Hooks[S], stage string, state *S) {
	if hooks.OnStage == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	hooks.OnStage(stage, state)
}

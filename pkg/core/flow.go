package core

import (
	"context"
	"fmt"
)

// Flow orchestrates the execution of connected workflows using action-based routing.
// It implements the Workflow interface, allowing flows to be nested: a nested
// flow receives the parameters bound by the outer flow as its run parameters.
type Flow[S any] struct {
	transitions[S]
	start Workflow[S]
	hooks FlowHooks[S]
	cfg   settings
}

// NewFlow creates a new Flow with the given start node.
func NewFlow[S any](start Workflow[S], opts ...Option) *Flow[S] {
	f := &Flow[S]{
		start: start,
		hooks: FlowHookFuncs[S]{},
		cfg:   newSettings(flowName("Flow", start), opts),
	}
	f.transitions.init(f.cfg.name, f.cfg.logger)
	return f
}

// WithHooks installs Prep/Post phases that run around the traversal and returns f.
func (f *Flow[S]) WithHooks(h FlowHooks[S]) *Flow[S] {
	if h != nil {
		f.hooks = h
	}
	return f
}

// Name returns the flow name.
func (f *Flow[S]) Name() string { return f.cfg.name }

// Start returns the start node.
func (f *Flow[S]) Start() Workflow[S] { return f.start }

// Params returns a copy of the definition-time parameters.
func (f *Flow[S]) Params() Params { return f.cfg.params.Clone() }

// Run executes the flow with its own parameters and returns the action
// produced by its Post hook.
func (f *Flow[S]) Run(ctx context.Context, shared *S) (Action, error) {
	return runEntry[S](ctx, f, &f.cfg, shared)
}

// Exec always fails with ErrFlowExec: a flow orchestrates, it has no exec phase.
func (f *Flow[S]) Exec(context.Context, any) (any, error) {
	return nil, ErrFlowExec
}

func (f *Flow[S]) run(ctx context.Context, shared *S, params Params) (Action, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("flow %q: %w", f.cfg.name, err)
	}
	ctx = withVisit(ctx, f.cfg.name, params)

	prep, err := f.hooks.Prep(ctx, shared)
	if err != nil {
		return "", &PhaseError{Node: f.cfg.name, Phase: PhasePrep, Err: err}
	}

	if err := orchestrate(ctx, &f.cfg, f.start, shared, params); err != nil {
		return "", err
	}

	action, err := f.hooks.Post(ctx, shared, prep)
	if err != nil {
		return "", &PhaseError{Node: f.cfg.name, Phase: PhasePost, Err: err}
	}
	return action, nil
}

func flowName[S any](kind string, start Workflow[S]) string {
	if start == nil {
		return kind
	}
	return kind + "(" + start.Name() + ")"
}

package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Node wraps a BaseNode implementation with retry logic and successor routing.
// It implements the Workflow interface.
//
// A Node is a definition: it may be run any number of times, concurrently, and
// wired into any number of flows. Per-run state lives in the context.
type Node[S any, P any, E any] struct {
	transitions[S]
	base     BaseNode[S, P, E]
	fallback Fallback[P, E]
	cfg      settings
}

// NewNode creates a new Node wrapping the given BaseNode implementation.
// Without options it makes a single attempt and waits 0 between attempts.
func NewNode[S any, P any, E any](base BaseNode[S, P, E], opts ...Option) *Node[S, P, E] {
	n := &Node[S, P, E]{
		base: base,
		cfg:  newSettings(fmt.Sprintf("%T", base), opts),
	}
	n.fallback, _ = base.(Fallback[P, E])
	n.transitions.init(n.cfg.name, n.cfg.logger)
	return n
}

// Name returns the node name.
func (n *Node[S, P, E]) Name() string { return n.cfg.name }

// Params returns a copy of the definition-time parameters.
func (n *Node[S, P, E]) Params() Params { return n.cfg.params.Clone() }

// RetryPolicy returns the effective retry policy.
func (n *Node[S, P, E]) RetryPolicy() RetryPolicy { return n.cfg.retry }

// Run executes Prep -> Exec -> Post once and returns the action. It never
// follows successors; use a Flow for that.
func (n *Node[S, P, E]) Run(ctx context.Context, shared *S) (Action, error) {
	return runEntry[S](ctx, n, &n.cfg, shared)
}

func (n *Node[S, P, E]) run(ctx context.Context, shared *S, params Params) (Action, error) {
	ctx = withVisit(ctx, n.cfg.name, params)

	prep, err := n.base.Prep(ctx, shared)
	if err != nil {
		return "", &PhaseError{Node: n.cfg.name, Phase: PhasePrep, Err: err}
	}

	result, err := execWithRetry(ctx, &n.cfg, prep, n.base.Exec, n.fallback)
	if err != nil {
		return "", err
	}

	action, err := n.base.Post(ctx, shared, prep, result)
	if err != nil {
		return "", &PhaseError{Node: n.cfg.name, Phase: PhasePost, Err: err}
	}
	return action, nil
}

// runEntry is the body of every public Run: it starts (or joins) a run, warns
// when successors would be ignored and visits w once with its own parameters.
func runEntry[S any](ctx context.Context, w Workflow[S], s *settings, shared *S) (Action, error) {
	ctx, ri := beginRun(ctx, s)
	if actions := w.Actions(); len(actions) > 0 {
		s.logger.Warn("node won't run successors, use a Flow",
			zap.Any("actions", actions),
		)
		ri.observer.Diagnostic(ctx, Diagnostic{
			Kind:      DiagnosticStandaloneRun,
			RunID:     ri.id,
			Node:      w.Name(),
			Available: actions,
			Message:   "node won't run successors, use a Flow",
		})
	}
	return visitStep(ctx, w, shared, s.params.Clone(), "", 0)
}

// visitStep runs one visit of w and reports it to the run's observer.
func visitStep[S any](ctx context.Context, w Workflow[S], shared *S, params Params, flow string, step int) (Action, error) {
	ri := runFrom(ctx)
	ev := NodeEvent{
		RunID:  ri.id,
		Flow:   flow,
		Node:   w.Name(),
		Step:   step,
		Params: params,
	}
	start := time.Now()
	vctx := ri.observer.NodeStarted(ctx, ev)

	action, err := w.run(vctx, shared, params)

	ev.Action = action
	ev.Err = err
	ev.Duration = time.Since(start)
	ri.observer.NodeFinished(vctx, ev)
	return action, err
}

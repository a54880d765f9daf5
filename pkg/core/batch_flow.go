package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchFlow runs one full traversal from its start node per parameter set
// returned by its hooks' Prep. Each set is merged over the flow's run parameters
// (the set wins on conflicts). All traversals share the same store; the engine
// does not synchronise it.
type BatchFlow[S any] struct {
	transitions[S]
	start    Workflow[S]
	hooks    BatchFlowHooks[S]
	cfg      settings
	parallel bool
}

// NewBatchFlow creates a batch flow that runs traversals one after another.
// The first failing traversal aborts the remaining ones.
func NewBatchFlow[S any](start Workflow[S], hooks BatchFlowHooks[S], opts ...Option) *BatchFlow[S] {
	return newBatchFlow(start, hooks, false, opts)
}

// NewParallelBatchFlow creates a batch flow that runs all traversals concurrently.
// Fan-out is unbounded unless WithMaxConcurrency is given.
func NewParallelBatchFlow[S any](start Workflow[S], hooks BatchFlowHooks[S], opts ...Option) *BatchFlow[S] {
	return newBatchFlow(start, hooks, true, opts)
}

func newBatchFlow[S any](start Workflow[S], hooks BatchFlowHooks[S], parallel bool, opts []Option) *BatchFlow[S] {
	kind := "BatchFlow"
	if parallel {
		kind = "ParallelBatchFlow"
	}
	if hooks == nil {
		hooks = BatchFlowHookFuncs[S]{}
	}
	bf := &BatchFlow[S]{
		start:    start,
		hooks:    hooks,
		cfg:      newSettings(flowName(kind, start), opts),
		parallel: parallel,
	}
	bf.transitions.init(bf.cfg.name, bf.cfg.logger)
	return bf
}

// Name returns the batch flow name.
func (bf *BatchFlow[S]) Name() string { return bf.cfg.name }

// Start returns the start node.
func (bf *BatchFlow[S]) Start() Workflow[S] { return bf.start }

// Params returns a copy of the definition-time parameters.
func (bf *BatchFlow[S]) Params() Params { return bf.cfg.params.Clone() }

// Parallel reports whether traversals run concurrently.
func (bf *BatchFlow[S]) Parallel() bool { return bf.parallel }

// Run executes every traversal and returns the action produced by the hooks' Post.
func (bf *BatchFlow[S]) Run(ctx context.Context, shared *S) (Action, error) {
	return runEntry[S](ctx, bf, &bf.cfg, shared)
}

// Exec always fails with ErrFlowExec.
func (bf *BatchFlow[S]) Exec(context.Context, any) (any, error) {
	return nil, ErrFlowExec
}

func (bf *BatchFlow[S]) run(ctx context.Context, shared *S, params Params) (Action, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("flow %q: %w", bf.cfg.name, err)
	}
	ctx = withVisit(ctx, bf.cfg.name, params)

	batches, err := bf.hooks.Prep(ctx, shared)
	if err != nil {
		return "", &PhaseError{Node: bf.cfg.name, Phase: PhasePrep, Err: err}
	}

	if bf.parallel {
		err = bf.runParallel(ctx, shared, params, batches)
	} else {
		err = bf.runSequential(ctx, shared, params, batches)
	}
	if err != nil {
		return "", err
	}

	action, err := bf.hooks.Post(ctx, shared, batches)
	if err != nil {
		return "", &PhaseError{Node: bf.cfg.name, Phase: PhasePost, Err: err}
	}
	return action, nil
}

func (bf *BatchFlow[S]) runSequential(ctx context.Context, shared *S, params Params, batches []Params) error {
	for i, bp := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := orchestrate(ctx, &bf.cfg, bf.start, shared, params.Merge(bp)); err != nil {
			return &ItemError{Node: bf.cfg.name, Index: i, Err: err}
		}
	}
	return nil
}

func (bf *BatchFlow[S]) runParallel(ctx context.Context, shared *S, params Params, batches []Params) error {
	if len(batches) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if bf.cfg.maxConcurrency > 0 {
		g.SetLimit(bf.cfg.maxConcurrency)
	}
	for i, bp := range batches {
		merged := params.Merge(bp)
		g.Go(func() error {
			if bf.cfg.maxConcurrency > 0 {
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			if err := orchestrate(gctx, &bf.cfg, bf.start, shared, merged); err != nil {
				return &ItemError{Node: bf.cfg.name, Index: i, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

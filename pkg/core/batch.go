package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchNode applies Exec to every item produced by Prep, either one at a time
// (NewBatchNode) or all at once (NewParallelBatchNode). Each item gets its own
// retry/fallback cycle. Results keep the input order in both modes.
type BatchNode[S any, I any, O any] struct {
	transitions[S]
	base     BatchBaseNode[S, I, O]
	fallback Fallback[I, O]
	cfg      settings
	parallel bool
}

// NewBatchNode creates a sequential batch node. The first item that fails after
// retries and fallback aborts the batch; later items are never attempted.
func NewBatchNode[S any, I any, O any](base BatchBaseNode[S, I, O], opts ...Option) *BatchNode[S, I, O] {
	return newBatchNode(base, false, opts)
}

// NewParallelBatchNode creates a batch node that runs every item concurrently.
// Fan-out is unbounded unless WithMaxConcurrency is given. The first failure fails
// the batch and cancels the context seen by the remaining items; the batch still
// waits for running items to return.
func NewParallelBatchNode[S any, I any, O any](base BatchBaseNode[S, I, O], opts ...Option) *BatchNode[S, I, O] {
	return newBatchNode(base, true, opts)
}

func newBatchNode[S any, I any, O any](base BatchBaseNode[S, I, O], parallel bool, opts []Option) *BatchNode[S, I, O] {
	b := &BatchNode[S, I, O]{
		base:     base,
		cfg:      newSettings(fmt.Sprintf("%T", base), opts),
		parallel: parallel,
	}
	b.fallback, _ = base.(Fallback[I, O])
	b.transitions.init(b.cfg.name, b.cfg.logger)
	return b
}

// Name returns the node name.
func (b *BatchNode[S, I, O]) Name() string { return b.cfg.name }

// Params returns a copy of the definition-time parameters.
func (b *BatchNode[S, I, O]) Params() Params { return b.cfg.params.Clone() }

// Parallel reports whether items are executed concurrently.
func (b *BatchNode[S, I, O]) Parallel() bool { return b.parallel }

// Run executes the batch lifecycle once and returns the action.
func (b *BatchNode[S, I, O]) Run(ctx context.Context, shared *S) (Action, error) {
	return runEntry[S](ctx, b, &b.cfg, shared)
}

func (b *BatchNode[S, I, O]) run(ctx context.Context, shared *S, params Params) (Action, error) {
	ctx = withVisit(ctx, b.cfg.name, params)

	items, err := b.base.Prep(ctx, shared)
	if err != nil {
		return "", &PhaseError{Node: b.cfg.name, Phase: PhasePrep, Err: err}
	}

	var results []O
	if b.parallel {
		results, err = b.execParallel(ctx, items)
	} else {
		results, err = b.execSequential(ctx, items)
	}
	if err != nil {
		return "", err
	}

	action, err := b.base.Post(ctx, shared, items, results)
	if err != nil {
		return "", &PhaseError{Node: b.cfg.name, Phase: PhasePost, Err: err}
	}
	return action, nil
}

func (b *BatchNode[S, I, O]) execSequential(ctx context.Context, items []I) ([]O, error) {
	results := make([]O, 0, len(items))
	for i, item := range items {
		r, err := execWithRetry(ctx, &b.cfg, item, b.base.Exec, b.fallback)
		if err != nil {
			return nil, &ItemError{Node: b.cfg.name, Index: i, Err: err}
		}
		results = append(results, r)
	}
	return results, nil
}

func (b *BatchNode[S, I, O]) execParallel(ctx context.Context, items []I) ([]O, error) {
	results := make([]O, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.cfg.maxConcurrency > 0 {
		g.SetLimit(b.cfg.maxConcurrency)
	}
	for i, item := range items {
		g.Go(func() error {
			// With a limit, items still queued when the batch fails are skipped.
			// Unbounded items always reach Exec and see the cancelled context there.
			if b.cfg.maxConcurrency > 0 {
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			r, err := execWithRetry(gctx, &b.cfg, item, b.base.Exec, b.fallback)
			if err != nil {
				return &ItemError{Node: b.cfg.name, Index: i, Err: err}
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

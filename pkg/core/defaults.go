package core

import "context"

// NoOp supplies no-op Prep, Exec and Post implementations. Embed it in a node
// behaviour and override only the phases you need.
type NoOp[S any, P any, E any] struct{}

func (NoOp[S, P, E]) Prep(context.Context, *S) (P, error) {
	var zero P
	return zero, nil
}

func (NoOp[S, P, E]) Exec(context.Context, P) (E, error) {
	var zero E
	return zero, nil
}

func (NoOp[S, P, E]) Post(context.Context, *S, P, E) (Action, error) {
	return "", nil
}

// NodeFuncs adapts plain functions to BaseNode and Fallback.
// A nil function behaves like the NoOp phase; a nil FallbackFn returns the error.
type NodeFuncs[S any, P any, E any] struct {
	PrepFn     func(ctx context.Context, shared *S) (P, error)
	ExecFn     func(ctx context.Context, prep P) (E, error)
	PostFn     func(ctx context.Context, shared *S, prep P, exec E) (Action, error)
	FallbackFn func(ctx context.Context, prep P, err error) (E, error)
}

func (f NodeFuncs[S, P, E]) Prep(ctx context.Context, shared *S) (P, error) {
	if f.PrepFn == nil {
		var zero P
		return zero, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f NodeFuncs[S, P, E]) Exec(ctx context.Context, prep P) (E, error) {
	if f.ExecFn == nil {
		var zero E
		return zero, nil
	}
	return f.ExecFn(ctx, prep)
}

func (f NodeFuncs[S, P, E]) Post(ctx context.Context, shared *S, prep P, exec E) (Action, error) {
	if f.PostFn == nil {
		return "", nil
	}
	return f.PostFn(ctx, shared, prep, exec)
}

func (f NodeFuncs[S, P, E]) ExecFallback(ctx context.Context, prep P, err error) (E, error) {
	if f.FallbackFn == nil {
		var zero E
		return zero, err
	}
	return f.FallbackFn(ctx, prep, err)
}

// BatchNoOp is the batch counterpart of NoOp.
type BatchNoOp[S any, I any, O any] struct{}

func (BatchNoOp[S, I, O]) Prep(context.Context, *S) ([]I, error) { return nil, nil }

func (BatchNoOp[S, I, O]) Exec(context.Context, I) (O, error) {
	var zero O
	return zero, nil
}

func (BatchNoOp[S, I, O]) Post(context.Context, *S, []I, []O) (Action, error) { return "", nil }

// BatchFuncs adapts plain functions to BatchBaseNode and Fallback.
type BatchFuncs[S any, I any, O any] struct {
	PrepFn     func(ctx context.Context, shared *S) ([]I, error)
	ExecFn     func(ctx context.Context, item I) (O, error)
	PostFn     func(ctx context.Context, shared *S, items []I, results []O) (Action, error)
	FallbackFn func(ctx context.Context, item I, err error) (O, error)
}

func (f BatchFuncs[S, I, O]) Prep(ctx context.Context, shared *S) ([]I, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f BatchFuncs[S, I, O]) Exec(ctx context.Context, item I) (O, error) {
	if f.ExecFn == nil {
		var zero O
		return zero, nil
	}
	return f.ExecFn(ctx, item)
}

func (f BatchFuncs[S, I, O]) Post(ctx context.Context, shared *S, items []I, results []O) (Action, error) {
	if f.PostFn == nil {
		return "", nil
	}
	return f.PostFn(ctx, shared, items, results)
}

func (f BatchFuncs[S, I, O]) ExecFallback(ctx context.Context, item I, err error) (O, error) {
	if f.FallbackFn == nil {
		var zero O
		return zero, err
	}
	return f.FallbackFn(ctx, item, err)
}

// FlowHooks are the optional Prep/Post phases of a Flow, run around the traversal.
// The flow's resulting action is whatever Post returns.
type FlowHooks[S any] interface {
	Prep(ctx context.Context, shared *S) (any, error)
	Post(ctx context.Context, shared *S, prep any) (Action, error)
}

// FlowHookFuncs adapts plain functions to FlowHooks. Nil functions are no-ops.
type FlowHookFuncs[S any] struct {
	PrepFn func(ctx context.Context, shared *S) (any, error)
	PostFn func(ctx context.Context, shared *S, prep any) (Action, error)
}

func (f FlowHookFuncs[S]) Prep(ctx context.Context, shared *S) (any, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f FlowHookFuncs[S]) Post(ctx context.Context, shared *S, prep any) (Action, error) {
	if f.PostFn == nil {
		return "", nil
	}
	return f.PostFn(ctx, shared, prep)
}

// BatchFlowHooks drive a BatchFlow: Prep returns one parameter set per traversal.
type BatchFlowHooks[S any] interface {
	Prep(ctx context.Context, shared *S) ([]Params, error)
	Post(ctx context.Context, shared *S, batches []Params) (Action, error)
}

// BatchFlowHookFuncs adapts plain functions to BatchFlowHooks. Nil functions are no-ops.
type BatchFlowHookFuncs[S any] struct {
	PrepFn func(ctx context.Context, shared *S) ([]Params, error)
	PostFn func(ctx context.Context, shared *S, batches []Params) (Action, error)
}

func (f BatchFlowHookFuncs[S]) Prep(ctx context.Context, shared *S) ([]Params, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f BatchFlowHookFuncs[S]) Post(ctx context.Context, shared *S, batches []Params) (Action, error) {
	if f.PostFn == nil {
		return "", nil
	}
	return f.PostFn(ctx, shared, batches)
}

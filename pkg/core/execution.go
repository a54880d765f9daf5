package core

import (
	"context"

	"github.com/google/uuid"
)

// visit is the per-visit execution record. A fresh one is created every time a
// workflow is entered, so concurrent runs over the same definitions never share it.
type visit struct {
	node   string
	params Params
}

type runInfo struct {
	id       string
	observer Observer
}

type ctxKey int

const (
	visitKey ctxKey = iota
	runKey
	attemptKey
)

// beginRun attaches run-wide data to ctx unless an enclosing run already did.
func beginRun(ctx context.Context, s *settings) (context.Context, *runInfo) {
	if ri, ok := ctx.Value(runKey).(*runInfo); ok {
		return ctx, ri
	}
	ri := &runInfo{id: uuid.NewString(), observer: s.observer}
	if ri.observer == nil {
		ri.observer = NopObserver{}
	}
	return context.WithValue(ctx, runKey, ri), ri
}

func runFrom(ctx context.Context) *runInfo {
	if ri, ok := ctx.Value(runKey).(*runInfo); ok {
		return ri
	}
	return &runInfo{observer: NopObserver{}}
}

func withVisit(ctx context.Context, node string, params Params) context.Context {
	return context.WithValue(ctx, visitKey, &visit{node: node, params: params})
}

func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// ParamsFrom returns the parameters bound to the current visit. The map belongs
// to the visit; changes are not seen by other visits. Never nil.
func ParamsFrom(ctx context.Context) Params {
	if v, ok := ctx.Value(visitKey).(*visit); ok && v.params != nil {
		return v.params
	}
	return Params{}
}

// NodeFrom returns the name of the workflow being visited.
func NodeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(visitKey).(*visit); ok {
		return v.node
	}
	return ""
}

// RunIDFrom returns the id of the top-level run, shared by nested workflows.
func RunIDFrom(ctx context.Context) string {
	return runFrom(ctx).id
}

// AttemptFrom returns the 0-based retry attempt inside Exec and ExecFallback.
func AttemptFrom(ctx context.Context) int {
	if a, ok := ctx.Value(attemptKey).(int); ok {
		return a
	}
	return 0
}

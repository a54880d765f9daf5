package core_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

type fileState struct {
	mu        sync.Mutex
	processed []string
}

func (s *fileState) add(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = append(s.processed, v)
}

// recordParams appends "<file>/<mode>" for every visit.
func recordParams(delay time.Duration) *core.Node[fileState, string, string] {
	return core.NewNode[fileState, string, string](core.NodeFuncs[fileState, string, string]{
		PrepFn: func(ctx context.Context, _ *fileState) (string, error) {
			p := core.ParamsFrom(ctx)
			file, _ := core.Param[string](p, "file")
			mode, _ := core.Param[string](p, "mode")
			return file + "/" + mode, nil
		},
		ExecFn: func(ctx context.Context, v string) (string, error) {
			if v == "broken/full" {
				return "", errors.New("unreadable")
			}
			time.Sleep(delay)
			return v, nil
		},
		PostFn: func(_ context.Context, s *fileState, _ string, v string) (core.Action, error) {
			s.add(v)
			return "", nil
		},
	}, core.WithName("record"))
}

func files(names ...string) core.BatchFlowHookFuncs[fileState] {
	return core.BatchFlowHookFuncs[fileState]{
		PrepFn: func(context.Context, *fileState) ([]core.Params, error) {
			out := make([]core.Params, 0, len(names))
			for _, n := range names {
				out = append(out, core.Params{"file": n})
			}
			return out, nil
		},
	}
}

// ── BatchFlow tests ──

func TestBatchFlow_Sequential_MergesParams(t *testing.T) {
	flow := core.NewBatchFlow[fileState](recordParams(0), files("a", "b", "c"),
		core.WithParams(core.Params{"mode": "full", "file": "overridden"}))

	state := &fileState{}
	_, err := flow.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/full", "b/full", "c/full"}, state.processed)
	assert.False(t, flow.Parallel())
}

func TestBatchFlow_Sequential_FailFast(t *testing.T) {
	flow := core.NewBatchFlow[fileState](recordParams(0), files("a", "broken", "c"),
		core.WithParams(core.Params{"mode": "full"}))

	state := &fileState{}
	_, err := flow.Run(context.Background(), state)

	var itemErr *core.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 1, itemErr.Index)
	assert.Equal(t, []string{"a/full"}, state.processed)
}

func TestBatchFlow_PostReceivesBatches(t *testing.T) {
	hooks := files("x", "y")
	var got []core.Params
	hooks.PostFn = func(_ context.Context, _ *fileState, batches []core.Params) (core.Action, error) {
		got = batches
		return core.ActionEnd, nil
	}

	action, err := core.NewBatchFlow[fileState](recordParams(0), hooks).Run(context.Background(), &fileState{})
	require.NoError(t, err)
	assert.Equal(t, core.ActionEnd, action)
	assert.Equal(t, []core.Params{{"file": "x"}, {"file": "y"}}, got)
}

func TestBatchFlow_NilHooksRunsNothing(t *testing.T) {
	state := &fileState{}
	_, err := core.NewBatchFlow[fileState](recordParams(0), nil).Run(context.Background(), state)
	require.NoError(t, err)
	assert.Empty(t, state.processed)
}

func TestBatchFlow_Parallel_RunsConcurrently(t *testing.T) {
	flow := core.NewParallelBatchFlow[fileState](recordParams(100*time.Millisecond), files("1", "2", "3", "4", "5"),
		core.WithParams(core.Params{"mode": "fast"}))

	state := &fileState{}
	start := time.Now()
	_, err := flow.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 200*time.Millisecond)
	slices.Sort(state.processed)
	assert.Equal(t, []string{"1/fast", "2/fast", "3/fast", "4/fast", "5/fast"}, state.processed)
	assert.True(t, flow.Parallel())
}

func TestBatchFlow_Parallel_ReportsFailingSet(t *testing.T) {
	flow := core.NewParallelBatchFlow[fileState](recordParams(0), files("a", "broken"),
		core.WithParams(core.Params{"mode": "full"}))

	_, err := flow.Run(context.Background(), &fileState{})

	var itemErr *core.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 1, itemErr.Index)
}

// openFile fails to prepare file "a"; every other traversal blocks in Exec
// until its context is cancelled.
func openFile(started, cancelled *atomic.Int32) *core.Node[fileState, string, string] {
	return core.NewNode[fileState, string, string](core.NodeFuncs[fileState, string, string]{
		PrepFn: func(ctx context.Context, _ *fileState) (string, error) {
			started.Add(1)
			file, _ := core.Param[string](core.ParamsFrom(ctx), "file")
			if file == "a" {
				return "", errors.New("cannot open a")
			}
			return file, nil
		},
		ExecFn: func(ctx context.Context, v string) (string, error) {
			select {
			case <-ctx.Done():
				cancelled.Add(1)
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return v, nil
			}
		},
	}, core.WithName("open"))
}

func TestBatchFlow_Parallel_EveryTraversalStarts(t *testing.T) {
	var started, cancelled atomic.Int32
	flow := core.NewParallelBatchFlow[fileState](openFile(&started, &cancelled), files("a", "b", "c", "d", "e"))

	start := time.Now()
	_, err := flow.Run(context.Background(), &fileState{})

	var itemErr *core.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 0, itemErr.Index)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(5), started.Load())
	assert.Equal(t, int32(4), cancelled.Load())
}

func TestBatchFlow_Parallel_LimitedSkipsQueuedAfterFailure(t *testing.T) {
	var started, cancelled atomic.Int32
	flow := core.NewParallelBatchFlow[fileState](openFile(&started, &cancelled), files("a", "b", "c"),
		core.WithMaxConcurrency(1))

	_, err := flow.Run(context.Background(), &fileState{})
	require.Error(t, err)
	assert.Equal(t, int32(1), started.Load())
	assert.Zero(t, cancelled.Load())
}

func TestBatchFlow_CancelledBeforeStart(t *testing.T) {
	var started, cancelled atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := core.NewBatchFlow[fileState](openFile(&started, &cancelled), files("b", "c")).Run(ctx, &fileState{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, started.Load())
}

func TestBatchFlow_NestedReceivesOuterParams(t *testing.T) {
	batch := core.NewBatchFlow[fileState](recordParams(0), files("a", "b"))
	outer := core.NewFlow[fileState](batch, core.WithParams(core.Params{"mode": "outer"}))

	state := &fileState{}
	_, err := outer.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/outer", "b/outer"}, state.processed)
}

func TestBatchFlow_Exec(t *testing.T) {
	_, err := core.NewParallelBatchFlow[fileState](recordParams(0), nil).Exec(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrFlowExec)
}

package cookbook

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

type doubleState struct {
	Values  []int
	Results []int
}

// Double doubles every value with a sequential batch node.
func Double() Recipe {
	return Recipe{
		Name:        "double",
		Description: "Sequential batch node: double each value, keeping input order.",
		Params:      map[string]string{"values": "[1,2,3]"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			values, err := intsArg(in, "values", []int{1, 2, 3})
			if err != nil {
				return nil, err
			}

			node := core.NewBatchNode[doubleState, int, int](core.BatchFuncs[doubleState, int, int]{
				PrepFn: func(_ context.Context, s *doubleState) ([]int, error) { return s.Values, nil },
				ExecFn: func(_ context.Context, v int) (int, error) { return v * 2, nil },
				PostFn: func(_ context.Context, s *doubleState, _ []int, out []int) (core.Action, error) {
					s.Results = out
					return "", nil
				},
			}, env.entry("double")...)

			state := &doubleState{Values: values}
			if _, err := node.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"results": state.Results}, nil
		},
	}
}

type sleepState struct {
	Items   int
	Results []int
}

// ParallelSleep sleeps once per item, concurrently unless parallel is false.
func ParallelSleep() Recipe {
	return Recipe{
		Name:        "parallel-sleep",
		Description: "Batch node sleeping delay per item; parallel runs take about one delay.",
		Params:      map[string]string{"items": "5", "delay": `"100ms"`, "parallel": "true"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			items, err := intArg(in, "items", 5)
			if err != nil {
				return nil, err
			}
			delay, err := durationArg(in, "delay", 100*time.Millisecond)
			if err != nil {
				return nil, err
			}
			parallel, err := boolArg(in, "parallel", true)
			if err != nil {
				return nil, err
			}
			if items < 0 {
				return nil, fmt.Errorf("input \"items\" must not be negative, got %d", items)
			}

			base := core.BatchFuncs[sleepState, int, int]{
				PrepFn: func(_ context.Context, s *sleepState) ([]int, error) {
					ids := make([]int, s.Items)
					for i := range ids {
						ids[i] = i
					}
					return ids, nil
				},
				ExecFn: func(ctx context.Context, id int) (int, error) {
					t := time.NewTimer(delay)
					defer t.Stop()
					select {
					case <-ctx.Done():
						return 0, ctx.Err()
					case <-t.C:
						return id, nil
					}
				},
				PostFn: func(_ context.Context, s *sleepState, _ []int, out []int) (core.Action, error) {
					s.Results = out
					return "", nil
				},
			}
			var node *core.BatchNode[sleepState, int, int]
			if parallel {
				node = core.NewParallelBatchNode[sleepState, int, int](base, env.entry("sleep")...)
			} else {
				node = core.NewBatchNode[sleepState, int, int](base, env.entry("sleep")...)
			}

			state := &sleepState{Items: items}
			start := time.Now()
			if _, err := node.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{
				"items":      len(state.Results),
				"parallel":   parallel,
				"elapsed_ms": time.Since(start).Milliseconds(),
			}, nil
		},
	}
}

var errTransient = errors.New("transient failure")

type flakyState struct {
	Result string
}

// Flaky fails a fixed number of times before succeeding. When retries run out
// the fallback answers instead.
func Flaky() Recipe {
	return Recipe{
		Name:        "flaky",
		Description: "Node failing the first n attempts; shows retries and the fallback.",
		Params:      map[string]string{"failures": "2", "max_retries": "3", "wait": `"10ms"`},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			failures, err := intArg(in, "failures", 2)
			if err != nil {
				return nil, err
			}
			maxRetries, err := intArg(in, "max_retries", 3)
			if err != nil {
				return nil, err
			}
			wait, err := durationArg(in, "wait", 10*time.Millisecond)
			if err != nil {
				return nil, err
			}

			var attempts atomic.Int32
			node := core.NewNode[flakyState, struct{}, string](core.NodeFuncs[flakyState, struct{}, string]{
				ExecFn: func(context.Context, struct{}) (string, error) {
					if int(attempts.Add(1)) <= failures {
						return "", errTransient
					}
					return "ok", nil
				},
				FallbackFn: func(context.Context, struct{}, error) (string, error) {
					return "fallback", nil
				},
				PostFn: func(_ context.Context, s *flakyState, _ struct{}, res string) (core.Action, error) {
					s.Result = res
					return "", nil
				},
			}, env.entry("flaky", core.WithMaxRetries(maxRetries), core.WithWait(wait))...)

			state := &flakyState{}
			if _, err := node.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"attempts": int(attempts.Load()), "result": state.Result}, nil
		},
	}
}

type scaleState struct {
	mu      sync.Mutex
	Values  map[string]float64
	Results map[string]float64
}

// BatchScale runs one flow traversal per key, each scaling a single value.
func BatchScale() Recipe {
	return Recipe{
		Name:        "batch-scale",
		Description: "Batch flow: one traversal per key with params {key, factor}.",
		Params:      map[string]string{"values": `{"a":1,"b":2,"c":3}`, "factor": "2", "parallel": "false"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			values, err := numberMapArg(in, "values", map[string]float64{"a": 1, "b": 2, "c": 3})
			if err != nil {
				return nil, err
			}
			factor, err := floatArg(in, "factor", 2)
			if err != nil {
				return nil, err
			}
			parallel, err := boolArg(in, "parallel", false)
			if err != nil {
				return nil, err
			}

			type item struct {
				key   string
				value float64
			}
			scale := core.NewNode[scaleState, item, float64](core.NodeFuncs[scaleState, item, float64]{
				PrepFn: func(ctx context.Context, s *scaleState) (item, error) {
					key, ok := core.Param[string](core.ParamsFrom(ctx), "key")
					if !ok {
						return item{}, errors.New("missing param \"key\"")
					}
					s.mu.Lock()
					defer s.mu.Unlock()
					return item{key: key, value: s.Values[key]}, nil
				},
				ExecFn: func(ctx context.Context, it item) (float64, error) {
					f, ok := core.Param[float64](core.ParamsFrom(ctx), "factor")
					if !ok {
						f = 1
					}
					return it.value * f, nil
				},
				PostFn: func(_ context.Context, s *scaleState, it item, v float64) (core.Action, error) {
					s.mu.Lock()
					s.Results[it.key] = v
					s.mu.Unlock()
					return "", nil
				},
			}, env.node("scale")...)

			hooks := core.BatchFlowHookFuncs[scaleState]{
				PrepFn: func(_ context.Context, s *scaleState) ([]core.Params, error) {
					keys := slices.Sorted(maps.Keys(s.Values))
					batches := make([]core.Params, len(keys))
					for i, k := range keys {
						batches[i] = core.Params{"key": k}
					}
					return batches, nil
				},
			}
			opts := env.entry("batch-scale", core.WithParams(core.Params{"factor": factor}))
			var flow *core.BatchFlow[scaleState]
			if parallel {
				flow = core.NewParallelBatchFlow[scaleState](scale, hooks, opts...)
			} else {
				flow = core.NewBatchFlow[scaleState](scale, hooks, opts...)
			}

			state := &scaleState{Values: values, Results: make(map[string]float64, len(values))}
			if _, err := flow.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"results": state.Results}, nil
		},
	}
}

package cookbook

import (
	"context"
	"fmt"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

type helloState struct {
	Text    string
	Printed bool
}

// Hello stores a text in the shared store, then prints it.
func Hello() Recipe {
	return Recipe{
		Name:        "hello",
		Description: "Store a text in the shared store, then print it.",
		Params:      map[string]string{"text": `"Hello, PocketFlow!"`},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			text, err := stringArg(in, "text", "Hello, PocketFlow!")
			if err != nil {
				return nil, err
			}

			store := core.NewNode[helloState, string, string](core.NodeFuncs[helloState, string, string]{
				PrepFn: func(ctx context.Context, _ *helloState) (string, error) {
					t, _ := core.Param[string](core.ParamsFrom(ctx), "text")
					return t, nil
				},
				PostFn: func(_ context.Context, s *helloState, t string, _ string) (core.Action, error) {
					s.Text = t
					return "", nil
				},
			}, env.node("store")...)

			out := env.out()
			printer := core.NewNode[helloState, string, string](core.NodeFuncs[helloState, string, string]{
				PrepFn: func(_ context.Context, s *helloState) (string, error) { return s.Text, nil },
				ExecFn: func(_ context.Context, t string) (string, error) {
					_, err := fmt.Fprintln(out, t)
					return t, err
				},
				PostFn: func(_ context.Context, s *helloState, _ string, _ string) (core.Action, error) {
					s.Printed = true
					return "", nil
				},
			}, env.node("print")...)

			store.Connect(printer)
			flow := core.NewFlow[helloState](store, env.entry("hello", core.WithParams(core.Params{"text": text}))...)

			state := &helloState{}
			if _, err := flow.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"text": state.Text, "printed": state.Printed}, nil
		},
	}
}

// Branch routes a value to +10 when positive and -20 otherwise.
func Branch() Recipe {
	return Recipe{
		Name:        "branch",
		Description: "start -> check -> positive: add 10 / negative: add -20.",
		Params:      map[string]string{"value": "5"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			value, err := intArg(in, "value", 5)
			if err != nil {
				return nil, err
			}

			start := add(env, 0)
			c := check(env)
			start.Connect(c)
			c.On("positive").To(add(env, 10))
			c.On("negative").To(add(env, -20))

			state := &numState{Value: value}
			if _, err := core.NewFlow[numState](start, env.entry("branch")...).Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"value": state.Value, "path": state.Path}, nil
		},
	}
}

// Countdown subtracts a step while the value is positive.
func Countdown() Recipe {
	return Recipe{
		Name:        "countdown",
		Description: "Cyclic flow: while the value is positive, subtract step.",
		Params:      map[string]string{"start": "10", "step": "3"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			start, err := intArg(in, "start", 10)
			if err != nil {
				return nil, err
			}
			step, err := intArg(in, "step", 3)
			if err != nil {
				return nil, err
			}
			if step <= 0 {
				return nil, fmt.Errorf("input \"step\" must be positive, got %d", step)
			}

			c := check(env)
			sub := core.NewNode[numState, int, int](core.NodeFuncs[numState, int, int]{
				PrepFn: func(_ context.Context, s *numState) (int, error) { return s.Value, nil },
				ExecFn: func(_ context.Context, v int) (int, error) { return v - step, nil },
				PostFn: func(_ context.Context, s *numState, _ int, v int) (core.Action, error) {
					s.Value = v
					s.Iterations++
					return "", nil
				},
			}, env.node("subtract")...)
			c.On("positive").To(sub)
			c.On("negative").To(core.NewNode[numState, int, int](core.NoOp[numState, int, int]{}, env.node("done")...))
			sub.Connect(c)

			state := &numState{Value: start}
			if _, err := core.NewFlow[numState](c, env.entry("countdown")...).Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"value": state.Value, "iterations": state.Iterations}, nil
		},
	}
}

// Nested composes (+10, x2) inside 1 to 3 levels of flows.
func Nested() Recipe {
	return Recipe{
		Name:        "nested",
		Description: "Inner flow (+10 then x2) nested depth times under outer flows.",
		Params:      map[string]string{"value": "5", "depth": "1 (1-3)"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			value, err := intArg(in, "value", 5)
			if err != nil {
				return nil, err
			}
			depth, err := intArg(in, "depth", 1)
			if err != nil {
				return nil, err
			}
			if depth < 1 || depth > 3 {
				return nil, fmt.Errorf("input \"depth\" must be between 1 and 3, got %d", depth)
			}

			inner := add(env, 10)
			inner.Connect(mul(env, 2))
			var w core.Workflow[numState] = core.NewFlow[numState](inner, env.node("level-1")...)
			for i := 2; i <= depth; i++ {
				w = core.NewFlow[numState](w, env.node(fmt.Sprintf("level-%d", i))...)
			}

			state := &numState{Value: value}
			if _, err := core.NewFlow[numState](w, env.entry("nested")...).Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"value": state.Value, "depth": depth}, nil
		},
	}
}

package cookbook

import (
	"context"
	"fmt"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

// numState is the shared store of the arithmetic recipes.
type numState struct {
	Value      int
	Path       []string
	Iterations int
}

type numNode = core.Node[numState, int, int]

// arith builds a node that applies op to the stored value.
func arith(env Env, name string, op func(int) int) *numNode {
	return core.NewNode[numState, int, int](core.NodeFuncs[numState, int, int]{
		PrepFn: func(_ context.Context, s *numState) (int, error) { return s.Value, nil },
		ExecFn: func(_ context.Context, v int) (int, error) { return op(v), nil },
		PostFn: func(_ context.Context, s *numState, _ int, v int) (core.Action, error) {
			s.Value = v
			s.Path = append(s.Path, name)
			return "", nil
		},
	}, env.node(name)...)
}

func add(env Env, n int) *numNode {
	return arith(env, fmt.Sprintf("add(%d)", n), func(v int) int { return v + n })
}

func mul(env Env, n int) *numNode {
	return arith(env, fmt.Sprintf("mul(%d)", n), func(v int) int { return v * n })
}

// check routes on the sign of the stored value.
func check(env Env) *numNode {
	return core.NewNode[numState, int, int](core.NodeFuncs[numState, int, int]{
		PrepFn: func(_ context.Context, s *numState) (int, error) { return s.Value, nil },
		PostFn: func(_ context.Context, s *numState, v int, _ int) (core.Action, error) {
			if v > 0 {
				return "positive", nil
			}
			return "negative", nil
		},
	}, env.node("check")...)
}

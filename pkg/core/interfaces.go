package core

import "context"

// BaseNode defines the behaviour of a single unit of work.
// It follows the three-phase execution model: Prep -> Exec -> Post.
//
// Type parameters:
//   - S: the shared store passed through the workflow
//   - P: the type returned by Prep and consumed by Exec
//   - E: the type returned by Exec and consumed by Post
//
// Bound parameters, run id and the current retry attempt are available from ctx
// (see ParamsFrom, RunIDFrom, AttemptFrom).
type BaseNode[S any, P any, E any] interface {
	// Prep reads from the shared store and produces the input of Exec.
	Prep(ctx context.Context, shared *S) (P, error)

	// Exec performs the core logic. It is retried according to the node's RetryPolicy.
	Exec(ctx context.Context, prep P) (E, error)

	// Post writes results back to the shared store and picks the next action.
	// An empty action means ActionDefault.
	Post(ctx context.Context, shared *S, prep P, exec E) (Action, error)
}

// BatchBaseNode is the behaviour of a batch node: Prep yields a collection,
// Exec runs once per item and Post receives the results in input order.
type BatchBaseNode[S any, I any, O any] interface {
	Prep(ctx context.Context, shared *S) ([]I, error)
	Exec(ctx context.Context, item I) (O, error)
	Post(ctx context.Context, shared *S, items []I, results []O) (Action, error)
}

// Fallback is optionally implemented by node behaviours to recover from an Exec
// failure once all retries are exhausted. Without it the error is returned as is.
type Fallback[P any, E any] interface {
	ExecFallback(ctx context.Context, prep P, err error) (E, error)
}

// Workflow represents a unit of execution that can be connected to other workflows.
// Node, BatchNode, Flow and BatchFlow implement this interface, enabling composition.
// The set of implementations is closed.
type Workflow[S any] interface {
	// Name identifies the workflow in logs, events and errors.
	Name() string

	// Run executes the workflow once with its own parameters and returns its action.
	Run(ctx context.Context, shared *S) (Action, error)

	// Connect registers next as the successor for action (ActionDefault when omitted)
	// and returns next for chaining.
	Connect(next Workflow[S], action ...Action) Workflow[S]

	// On starts a two-step conditional transition: w.On("ok").To(next).
	On(action Action) *Transition[S]

	// Successor returns the successor registered for action, or nil.
	Successor(action Action) Workflow[S]

	// Actions lists the registered action labels in sorted order.
	Actions() []Action

	// run executes the lifecycle with the given per-visit parameters.
	run(ctx context.Context, shared *S, params Params) (Action, error)
}

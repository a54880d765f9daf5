package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowExec is returned when Exec is called on a Flow. Flows orchestrate, they never exec.
	ErrFlowExec = errors.New("core: flow can't exec")

	// ErrNoStartNode is returned when a flow without a start node is run.
	ErrNoStartNode = errors.New("core: flow has no start node")

	// ErrMaxSteps is returned when a traversal exceeds the configured step limit.
	ErrMaxSteps = errors.New("core: max steps exceeded")
)

// Phase names a step of the node lifecycle.
type Phase string

const (
	PhasePrep Phase = "prep"
	PhaseExec Phase = "exec"
	PhasePost Phase = "post"
)

// PhaseError reports a failure of a node's Prep or Post phase.
type PhaseError struct {
	Node  string
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("node %q %s failed: %v", e.Node, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ExecError reports an Exec failure that survived every retry and the fallback.
type ExecError struct {
	Node     string
	Attempts int
	Err      error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("node %q exec failed after %d attempt(s): %v", e.Node, e.Attempts, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ItemError identifies the batch item (or batch-flow parameter set) that failed
// the whole batch.
type ItemError struct {
	Node  string
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("node %q item %d: %v", e.Node, e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

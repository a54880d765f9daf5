package core

import (
	"context"
	"time"
)

// NodeEvent describes one visit of a workflow during a run.
type NodeEvent struct {
	RunID string
	// Flow is the name of the flow that scheduled the visit; empty for entry points.
	Flow string
	Node string
	// Step is the 0-based visit index inside Flow.
	Step   int
	Params Params
	// Action, Err and Duration are set on NodeFinished only.
	Action   Action
	Err      error
	Duration time.Duration
}

// RetryEvent describes a failed Exec attempt.
type RetryEvent struct {
	RunID      string
	Node       string
	Attempt    int // 0-based attempt that failed
	MaxRetries int
	Wait       time.Duration
	Err        error
}

// DiagnosticKind classifies non-fatal wiring diagnostics.
type DiagnosticKind string

const (
	// DiagnosticUnmatchedAction: a node has successors but none for the produced action.
	DiagnosticUnmatchedAction DiagnosticKind = "unmatched_action"
	// DiagnosticStandaloneRun: Run was called on a node that has successors.
	DiagnosticStandaloneRun DiagnosticKind = "standalone_run"
)

// Diagnostic is a non-fatal wiring problem.
type Diagnostic struct {
	Kind      DiagnosticKind
	RunID     string
	Node      string
	Action    Action
	Available []Action
	Message   string
}

// Observer receives engine events. Implementations must be safe for concurrent
// use: parallel batches and batch flows report from several goroutines.
type Observer interface {
	// NodeStarted may return a derived context (e.g. carrying a span) that is used
	// for the visit and passed to the matching NodeFinished.
	NodeStarted(ctx context.Context, ev NodeEvent) context.Context
	NodeFinished(ctx context.Context, ev NodeEvent)
	RetryScheduled(ctx context.Context, ev RetryEvent)
	FallbackInvoked(ctx context.Context, ev RetryEvent)
	Diagnostic(ctx context.Context, d Diagnostic)
}

// NopObserver ignores every event. Embed it to implement a subset of Observer.
type NopObserver struct{}

func (NopObserver) NodeStarted(ctx context.Context, _ NodeEvent) context.Context { return ctx }
func (NopObserver) NodeFinished(context.Context, NodeEvent)                      {}
func (NopObserver) RetryScheduled(context.Context, RetryEvent)                   {}
func (NopObserver) FallbackInvoked(context.Context, RetryEvent)                  {}
func (NopObserver) Diagnostic(context.Context, Diagnostic)                       {}

type multiObserver []Observer

// MultiObserver fans events out to every non-nil observer, in order.
func MultiObserver(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multiObserver) NodeStarted(ctx context.Context, ev NodeEvent) context.Context {
	for _, o := range m {
		ctx = o.NodeStarted(ctx, ev)
	}
	return ctx
}

func (m multiObserver) NodeFinished(ctx context.Context, ev NodeEvent) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].NodeFinished(ctx, ev)
	}
}

func (m multiObserver) RetryScheduled(ctx context.Context, ev RetryEvent) {
	for _, o := range m {
		o.RetryScheduled(ctx, ev)
	}
}

func (m multiObserver) FallbackInvoked(ctx context.Context, ev RetryEvent) {
	for _, o := range m {
		o.FallbackInvoked(ctx, ev)
	}
}

func (m multiObserver) Diagnostic(ctx context.Context, d Diagnostic) {
	for _, o := range m {
		o.Diagnostic(ctx, d)
	}
}

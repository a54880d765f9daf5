package core

import (
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often Exec is attempted and how long to wait between attempts.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, at least 1.
	MaxRetries int
	// Wait is the pause between a failed attempt and the next one.
	Wait time.Duration
}

// DefaultRetryPolicy runs Exec once without waiting.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 1}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 1 {
		p.MaxRetries = 1
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	return p
}

type settings struct {
	name           string
	retry          RetryPolicy
	params         Params
	logger         *zap.Logger
	observer       Observer
	maxConcurrency int
	maxSteps       int
}

// Option configures a Node, BatchNode, Flow or BatchFlow at construction time.
type Option func(*settings)

func newSettings(defaultName string, opts []Option) settings {
	s := settings{
		name:  defaultName,
		retry: DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.retry = s.retry.normalized()
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.With(zap.String("node", s.name))
	if s.params == nil {
		s.params = Params{}
	}
	return s
}

// WithName sets the name used in logs, events and errors.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithMaxRetries sets the total number of Exec attempts. Values below 1 mean 1.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.retry.MaxRetries = n }
}

// WithWait sets the pause between failed attempts. Negative values mean 0.
func WithWait(d time.Duration) Option {
	return func(s *settings) { s.retry.Wait = d }
}

// WithRetry sets the whole retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(s *settings) { s.retry = p }
}

// WithParams sets the definition-time parameters, used when the workflow is run
// directly. Inside a flow, the flow's run parameters are bound instead.
func WithParams(p Params) Option {
	return func(s *settings) { s.params = p.Clone() }
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithObserver sets the observer notified during runs started from this workflow.
// The observer of the entry point governs the whole run, including nested workflows.
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithMaxConcurrency bounds parallel fan-out. 0 (the default) is unbounded.
func WithMaxConcurrency(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxConcurrency = n
		}
	}
}

// WithMaxSteps bounds the number of node visits per traversal. 0 (the default) is unbounded.
func WithMaxSteps(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxSteps = n
		}
	}
}

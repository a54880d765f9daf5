package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// orchestrate walks the graph from start until a node produces an action with
// no registered successor. Every visit binds its own copy of params; the
// definitions' transition tables are only read. Cancellation is checked
// between steps, so the start node is always visited; callers that must not
// start a traversal check ctx themselves.
func orchestrate[S any](ctx context.Context, s *settings, start Workflow[S], shared *S, params Params) error {
	if start == nil {
		s.logger.Warn("flow started with no start node")
		return fmt.Errorf("flow %q: %w", s.name, ErrNoStartNode)
	}
	ri := runFrom(ctx)

	current := start
	for step := 0; current != nil; step++ {
		if step > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("flow %q: %w", s.name, err)
			}
		}
		if s.maxSteps > 0 && step >= s.maxSteps {
			s.logger.Warn("max steps reached, aborting to prevent infinite loop",
				zap.Int("max_steps", s.maxSteps),
			)
			return fmt.Errorf("flow %q: %w (%d)", s.name, ErrMaxSteps, s.maxSteps)
		}

		action, err := visitStep(ctx, current, shared, params.Clone(), s.name, step)
		if err != nil {
			return err
		}
		action = action.orDefault()

		next := current.Successor(action)
		if next == nil {
			if available := current.Actions(); len(available) > 0 {
				s.logger.Warn("flow ends: action not found",
					zap.String("from", current.Name()),
					zap.String("action", string(action)),
					zap.Any("available", available),
				)
				ri.observer.Diagnostic(ctx, Diagnostic{
					Kind:      DiagnosticUnmatchedAction,
					RunID:     ri.id,
					Node:      current.Name(),
					Action:    action,
					Available: available,
					Message:   fmt.Sprintf("flow ends: %q not found in %v", action, available),
				})
			}
		} else {
			s.logger.Debug("transition",
				zap.Int("step", step),
				zap.String("from", current.Name()),
				zap.String("action", string(action)),
				zap.String("to", next.Name()),
			)
		}
		current = next
	}
	return nil
}

package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// execWithRetry runs exec up to s.retry.MaxRetries times. After the last failed
// attempt the fallback (if any) gets one chance to produce a result.
func execWithRetry[P any, E any](
	ctx context.Context,
	s *settings,
	prep P,
	exec func(context.Context, P) (E, error),
	fallback Fallback[P, E],
) (E, error) {
	var zero E
	policy := s.retry
	ri := runFrom(ctx)

	for attempt := 0; ; attempt++ {
		actx := withAttempt(ctx, attempt)
		result, err := exec(actx, prep)
		if err == nil {
			return result, nil
		}

		ev := RetryEvent{
			RunID:      ri.id,
			Node:       s.name,
			Attempt:    attempt,
			MaxRetries: policy.MaxRetries,
			Wait:       policy.Wait,
			Err:        err,
		}

		if attempt >= policy.MaxRetries-1 {
			ri.observer.FallbackInvoked(actx, ev)
			if fallback == nil {
				return zero, &ExecError{Node: s.name, Attempts: attempt + 1, Err: err}
			}
			result, ferr := fallback.ExecFallback(actx, prep, err)
			if ferr != nil {
				return zero, &ExecError{Node: s.name, Attempts: attempt + 1, Err: ferr}
			}
			s.logger.Debug("exec recovered by fallback",
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return result, nil
		}

		s.logger.Debug("exec failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", policy.MaxRetries),
			zap.Duration("wait", policy.Wait),
			zap.Error(err),
		)
		ri.observer.RetryScheduled(actx, ev)

		if err := wait(ctx, policy.Wait); err != nil {
			return zero, fmt.Errorf("node %q: retry wait interrupted: %w", s.name, err)
		}
	}
}

// wait suspends for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package runstore keeps the results of finished recipe runs so they can be
// listed and fetched later. Nothing here is replayed: a record is a receipt,
// not a checkpoint.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for unknown or expired records.
var ErrNotFound = errors.New("run record not found")

// Record describes one finished recipe run.
type Record struct {
	ID        string         `json:"id"`
	Recipe    string         `json:"recipe"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// Failed reports whether the run ended with an error.
func (r Record) Failed() bool { return r.Error != "" }

// Store persists run records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
}

// Track runs fn, then saves a record of it. A failed save is logged and does
// not change the result of the run.
func Track(
	ctx context.Context,
	store Store,
	logger *zap.Logger,
	recipe string,
	in map[string]any,
	fn func(ctx context.Context) (map[string]any, error),
) (Record, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Recipe:    recipe,
		Input:     in,
		StartedAt: time.Now().UTC(),
	}
	out, err := fn(ctx)
	rec.Duration = time.Since(rec.StartedAt)
	rec.Output = out
	if err != nil {
		rec.Error = err.Error()
	}

	// The run may have been cancelled; the record should still land.
	if saveErr := store.Save(context.WithoutCancel(ctx), rec); saveErr != nil {
		if logger == nil {
			logger = zap.L()
		}
		logger.Warn("failed to save run record",
			zap.String("run_id", rec.ID),
			zap.String("recipe", recipe),
			zap.Error(saveErr),
		)
	}
	return rec, err
}

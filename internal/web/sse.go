package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

// SSE event names.
const (
	sseEventStarted    = "node_started"
	sseEventFinished   = "node_finished"
	sseEventRetry      = "retry"
	sseEventFallback   = "fallback"
	sseEventDiagnostic = "diagnostic"
	sseEventDone       = "done"
	sseEventError      = "error"
)

// sseWriter wraps an http.ResponseWriter with SSE event writing and client
// disconnect detection. Send is safe for concurrent use: parallel batches
// report from several goroutines.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	logger  *zap.Logger
}

// newSSEWriter prepares SSE headers and returns a writer.
// Returns nil if streaming is not supported.
func newSSEWriter(w http.ResponseWriter, r *http.Request, logger *zap.Logger) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher, ctx: r.Context(), logger: logger}
}

// Send writes an SSE event. Returns false if the client has disconnected.
func (s *sseWriter) Send(event string, data any) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("SSE marshal error", zap.String("event", event), zap.Error(err))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.logger.Debug("SSE write error (client disconnected?)", zap.Error(err))
		return false
	}
	s.flusher.Flush()
	return true
}

type sseNodeEvent struct {
	RunID      string `json:"run_id"`
	Flow       string `json:"flow,omitempty"`
	Node       string `json:"node"`
	Step       int    `json:"step"`
	Action     string `json:"action,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

type sseRetryEvent struct {
	RunID      string `json:"run_id"`
	Node       string `json:"node"`
	Attempt    int    `json:"attempt"`
	MaxRetries int    `json:"max_retries"`
	WaitMs     int64  `json:"wait_ms"`
	Error      string `json:"error"`
}

type sseDiagnosticEvent struct {
	Kind      string   `json:"kind"`
	Node      string   `json:"node"`
	Action    string   `json:"action,omitempty"`
	Available []string `json:"available,omitempty"`
	Message   string   `json:"message"`
}

// sseObserver forwards engine events to the client as they happen.
type sseObserver struct {
	core.NopObserver
	sse *sseWriter
}

func (o *sseObserver) NodeStarted(ctx context.Context, ev core.NodeEvent) context.Context {
	o.sse.Send(sseEventStarted, sseNodeEvent{RunID: ev.RunID, Flow: ev.Flow, Node: ev.Node, Step: ev.Step})
	return ctx
}

func (o *sseObserver) NodeFinished(_ context.Context, ev core.NodeEvent) {
	o.sse.Send(sseEventFinished, sseNodeEvent{
		RunID:      ev.RunID,
		Flow:       ev.Flow,
		Node:       ev.Node,
		Step:       ev.Step,
		Action:     string(ev.Action),
		Error:      errText(ev.Err),
		DurationMs: ev.Duration.Milliseconds(),
	})
}

func (o *sseObserver) RetryScheduled(_ context.Context, ev core.RetryEvent) {
	o.sse.Send(sseEventRetry, retryPayload(ev))
}

func (o *sseObserver) FallbackInvoked(_ context.Context, ev core.RetryEvent) {
	o.sse.Send(sseEventFallback, retryPayload(ev))
}

func (o *sseObserver) Diagnostic(_ context.Context, d core.Diagnostic) {
	available := make([]string, len(d.Available))
	for i, a := range d.Available {
		available[i] = string(a)
	}
	o.sse.Send(sseEventDiagnostic, sseDiagnosticEvent{
		Kind:      string(d.Kind),
		Node:      d.Node,
		Action:    string(d.Action),
		Available: available,
		Message:   d.Message,
	})
}

func retryPayload(ev core.RetryEvent) sseRetryEvent {
	return sseRetryEvent{
		RunID:      ev.RunID,
		Node:       ev.Node,
		Attempt:    ev.Attempt,
		MaxRetries: ev.MaxRetries,
		WaitMs:     ev.Wait.Milliseconds(),
		Error:      errText(ev.Err),
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

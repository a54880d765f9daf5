package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/pocketomega/pocket-flow/internal/config"
	"github.com/pocketomega/pocket-flow/pkg/core"
)

type counter struct{ n int }

func step(name string, fail int) *core.Node[counter, int, int] {
	calls := 0
	return core.NewNode[counter, int, int](core.NodeFuncs[counter, int, int]{
		ExecFn: func(context.Context, int) (int, error) {
			calls++
			if calls <= fail {
				return 0, errors.New("flaky")
			}
			return 1, nil
		},
		PostFn: func(_ context.Context, s *counter, _ int, v int) (core.Action, error) {
			s.n += v
			return "", nil
		},
	}, core.WithName(name), core.WithMaxRetries(3))
}

// ── Metrics ──

func TestMetrics_RecordsVisitsRetriesAndDiagnostics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("pocketflow", reg)

	a := step("a", 1)
	b := step("b", 0)
	a.Connect(b)
	b.On("never").To(step("c", 0))
	flow := core.NewFlow[counter](a, core.WithName("chain"), core.WithObserver(m))

	state := &counter{}
	_, err := flow.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 2, state.n)

	assert.InDelta(t, 1, testutil.ToFloat64(m.nodeVisits.WithLabelValues("a", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.nodeVisits.WithLabelValues("b", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.nodeVisits.WithLabelValues("chain", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.retries.WithLabelValues("a")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.fallbacks.WithLabelValues("a")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.diagnostics.WithLabelValues(string(core.DiagnosticUnmatchedAction))), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.nodeDuration))
}

func TestMetrics_CountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("pocketflow", reg)

	node := core.NewNode[counter, int, int](core.NodeFuncs[counter, int, int]{
		ExecFn: func(context.Context, int) (int, error) { return 0, errors.New("down") },
	}, core.WithName("broken"), core.WithMaxRetries(2), core.WithObserver(m))

	_, err := node.Run(context.Background(), &counter{})
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.nodeVisits.WithLabelValues("broken", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.retries.WithLabelValues("broken")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fallbacks.WithLabelValues("broken")), 0)
}

// ── Tracing ──

func TestTracing_NestedSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tr := NewTracing(tp)

	inner := core.NewFlow[counter](step("leaf", 1), core.WithName("inner"))
	outer := core.NewFlow[counter](inner, core.WithName("outer"), core.WithObserver(tr))

	_, err := outer.Run(context.Background(), &counter{})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
	}
	require.Contains(t, byName, "leaf")
	require.Contains(t, byName, "inner")
	require.Contains(t, byName, "outer")

	assert.Equal(t, byName["inner"].SpanContext().SpanID(), byName["leaf"].Parent().SpanID())
	assert.Equal(t, byName["outer"].SpanContext().SpanID(), byName["inner"].Parent().SpanID())
	assert.Equal(t, byName["outer"].SpanContext().TraceID(), byName["leaf"].SpanContext().TraceID())

	events := byName["leaf"].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "retry", events[0].Name)
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	node := core.NewNode[counter, int, int](core.NodeFuncs[counter, int, int]{
		PrepFn: func(context.Context, *counter) (int, error) { return 0, errors.New("no input") },
	}, core.WithName("reader"), core.WithObserver(NewTracing(tp)))

	_, err := node.Run(context.Background(), &counter{})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestInitTracing_Disabled(t *testing.T) {
	p, err := InitTracing(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.TracerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

// recorder is an Observer that keeps every event it receives.
type recorder struct {
	mu          sync.Mutex
	started     []core.NodeEvent
	finished    []core.NodeEvent
	retries     []core.RetryEvent
	fallbacks   []core.RetryEvent
	diagnostics []core.Diagnostic
}

func (r *recorder) NodeStarted(ctx context.Context, ev core.NodeEvent) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, ev)
	return ctx
}

func (r *recorder) NodeFinished(_ context.Context, ev core.NodeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, ev)
}

func (r *recorder) RetryScheduled(_ context.Context, ev core.RetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, ev)
}

func (r *recorder) FallbackInvoked(_ context.Context, ev core.RetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, ev)
}

func (r *recorder) Diagnostic(_ context.Context, d core.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, d)
}

func (r *recorder) startedNodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.started))
	for _, ev := range r.started {
		names = append(names, ev.Node)
	}
	return names
}

// ── Observer tests ──

func TestObserver_RetryAndFallbackEvents(t *testing.T) {
	rec := &recorder{}
	impl := &flaky{failUntil: 99}
	node := newFlaky(impl, core.WithName("flaky"), core.WithMaxRetries(3), core.WithObserver(rec))

	_, err := node.Run(context.Background(), &retryState{})
	require.NoError(t, err)

	require.Len(t, rec.retries, 2)
	assert.Equal(t, 0, rec.retries[0].Attempt)
	assert.Equal(t, 1, rec.retries[1].Attempt)
	assert.Equal(t, 3, rec.retries[0].MaxRetries)

	require.Len(t, rec.fallbacks, 1)
	assert.Equal(t, 2, rec.fallbacks[0].Attempt)
	assert.Equal(t, "flaky", rec.fallbacks[0].Node)
}

func TestObserver_StandaloneRunDiagnostic(t *testing.T) {
	rec := &recorder{}
	a := newFlaky(&flaky{}, core.WithName("a"), core.WithObserver(rec))
	a.Connect(newFlaky(&flaky{}, core.WithName("b")), "next")

	_, err := a.Run(context.Background(), &retryState{})
	require.NoError(t, err)

	require.Len(t, rec.diagnostics, 1)
	d := rec.diagnostics[0]
	assert.Equal(t, core.DiagnosticStandaloneRun, d.Kind)
	assert.Equal(t, "a", d.Node)
	assert.Equal(t, []core.Action{"next"}, d.Available)
	assert.Equal(t, []string{"a"}, rec.startedNodes())
}

func TestObserver_FinishedCarriesOutcome(t *testing.T) {
	rec := &recorder{}
	node := newFuncs(core.NodeFuncs[retryState, int, int]{
		PostFn: func(context.Context, *retryState, int, int) (core.Action, error) { return "done", nil },
	}, core.WithName("n"), core.WithObserver(rec))

	_, err := node.Run(context.Background(), &retryState{})
	require.NoError(t, err)

	require.Len(t, rec.finished, 1)
	ev := rec.finished[0]
	assert.Equal(t, core.Action("done"), ev.Action)
	assert.NoError(t, ev.Err)
	assert.NotEmpty(t, ev.RunID)
	assert.Empty(t, ev.Flow)
}

// ctxTagger tags the visit context so the test can see which observer derived it.
type ctxTagger struct {
	core.NopObserver
	key  any
	seen *[]string
	name string
}

func (c ctxTagger) NodeStarted(ctx context.Context, _ core.NodeEvent) context.Context {
	return context.WithValue(ctx, c.key, c.name)
}

func (c ctxTagger) NodeFinished(ctx context.Context, _ core.NodeEvent) {
	v, _ := ctx.Value(c.key).(string)
	*c.seen = append(*c.seen, c.name+":"+v)
}

type tagKey string

func TestMultiObserver_ChainsContextsAndUnwindsInReverse(t *testing.T) {
	var seen []string
	first := ctxTagger{key: tagKey("first"), seen: &seen, name: "first"}
	second := ctxTagger{key: tagKey("second"), seen: &seen, name: "second"}

	node := newFlaky(&flaky{}, core.WithObserver(core.MultiObserver(first, nil, second)))
	_, err := node.Run(context.Background(), &retryState{})
	require.NoError(t, err)

	assert.Equal(t, []string{"second:second", "first:first"}, seen)
}

func TestMultiObserver_SingleIsReturnedAsIs(t *testing.T) {
	rec := &recorder{}
	assert.Same(t, rec, core.MultiObserver(nil, rec))
}

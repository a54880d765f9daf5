package core

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// transitions is the per-node table of action label -> successor.
// It is embedded by every Workflow implementation.
type transitions[S any] struct {
	mu     sync.RWMutex
	owner  string
	logger *zap.Logger
	edges  map[Action]Workflow[S]
}

func (t *transitions[S]) init(owner string, logger *zap.Logger) {
	t.owner = owner
	t.logger = logger
	t.edges = make(map[Action]Workflow[S])
}

// Connect registers next as the successor for action (ActionDefault when omitted)
// and returns next. Registering the same action twice keeps the latest target.
func (t *transitions[S]) Connect(next Workflow[S], action ...Action) Workflow[S] {
	if next == nil {
		return next
	}
	label := ActionDefault
	if len(action) > 0 {
		label = action[0].orDefault()
	}

	t.mu.Lock()
	prev, exists := t.edges[label]
	t.edges[label] = next
	t.mu.Unlock()

	if exists {
		t.logger.Warn("overwriting successor",
			zap.String("action", string(label)),
			zap.String("previous", prev.Name()),
			zap.String("successor", next.Name()),
		)
	}
	return next
}

// On starts a conditional transition; complete it with To.
func (t *transitions[S]) On(action Action) *Transition[S] {
	return &Transition[S]{from: t, action: action}
}

// Successor returns the successor registered for action, or nil.
func (t *transitions[S]) Successor(action Action) Workflow[S] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.edges[action.orDefault()]
}

// Actions lists the registered action labels in sorted order.
func (t *transitions[S]) Actions() []Action {
	t.mu.RLock()
	actions := make([]Action, 0, len(t.edges))
	for a := range t.edges {
		actions = append(actions, a)
	}
	t.mu.RUnlock()
	slices.Sort(actions)
	return actions
}

// Transition is a pending conditional edge created by On.
type Transition[S any] struct {
	from   *transitions[S]
	action Action
}

// To registers next for the pending action and returns next.
func (tr *Transition[S]) To(next Workflow[S]) Workflow[S] {
	return tr.from.Connect(next, tr.action)
}

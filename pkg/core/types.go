package core

import "maps"

// Action represents the result of a node execution that determines flow control.
type Action string

// Common actions used throughout the framework.
const (
	// ActionDefault is followed when Post returns an empty action.
	ActionDefault  Action = "default"
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
)

// orDefault maps the empty action to ActionDefault.
func (a Action) orDefault() Action {
	if a == "" {
		return ActionDefault
	}
	return a
}

// Params holds the parameter bindings of a node. Keys are unordered.
type Params map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Merge returns a copy of p overlaid with over; keys in over win.
// Neither map is modified.
func (p Params) Merge(over Params) Params {
	out := p.Clone()
	maps.Copy(out, over)
	return out
}

// Param looks up key in p and type-asserts it to T.
func Param[T any](p Params, key string) (T, bool) {
	v, ok := p[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

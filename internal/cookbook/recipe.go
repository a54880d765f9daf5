// Package cookbook holds the named, runnable recipes built on the core engine.
// Every surface (CLI, HTTP, MCP) runs recipes through a Registry, so inputs and
// outputs are plain JSON-compatible maps.
package cookbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/llm"
	"github.com/pocketomega/pocket-flow/pkg/core"
)

// ErrUnknownRecipe is returned when a recipe name is not registered.
var ErrUnknownRecipe = errors.New("unknown recipe")

// Input and Output are the JSON-compatible payloads of a recipe run.
type (
	Input  = map[string]any
	Output = map[string]any
)

// Recipe is a named workflow with a description of its inputs.
type Recipe struct {
	Name        string
	Description string
	// Params documents the accepted input keys and their defaults.
	Params map[string]string
	Run    func(ctx context.Context, env Env, in Input) (Output, error)
}

// Env carries what recipes need from the host process.
type Env struct {
	// Options are engine defaults applied to every node and flow a recipe builds.
	Options  []core.Option
	Observer core.Observer
	Logger   *zap.Logger
	// Out receives human-readable output (the hello recipe prints to it).
	Out io.Writer
	LLM llm.Provider
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.L()
	}
	return e.Logger
}

func (e Env) out() io.Writer {
	if e.Out == nil {
		return io.Discard
	}
	return e.Out
}

// node returns the options for a node named name; extra options win over defaults.
func (e Env) node(name string, extra ...core.Option) []core.Option {
	opts := make([]core.Option, 0, len(e.Options)+len(extra)+2)
	opts = append(opts, e.Options...)
	opts = append(opts, core.WithName(name), core.WithLogger(e.logger()))
	return append(opts, extra...)
}

// entry returns the options for the workflow a recipe runs; it also carries the observer.
func (e Env) entry(name string, extra ...core.Option) []core.Option {
	opts := e.node(name, extra...)
	if e.Observer != nil {
		opts = append(opts, core.WithObserver(e.Observer))
	}
	return opts
}

// Registry is a concurrency-safe set of recipes keyed by name.
type Registry struct {
	mu      sync.RWMutex
	recipes map[string]Recipe
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{recipes: make(map[string]Recipe)}
}

// Register adds a recipe. Names must be unique.
func (r *Registry) Register(rec Recipe) error {
	if rec.Name == "" || rec.Run == nil {
		return fmt.Errorf("recipe must have a name and a Run function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.recipes[rec.Name]; exists {
		return fmt.Errorf("recipe %q already registered", rec.Name)
	}
	r.recipes[rec.Name] = rec
	return nil
}

// Get looks up a recipe by name.
func (r *Registry) Get(name string) (Recipe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recipes[name]
	return rec, ok
}

// List returns all recipes sorted by name.
func (r *Registry) List() []Recipe {
	r.mu.RLock()
	out := make([]Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		out = append(out, rec)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Recipe) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Run executes the named recipe. A nil input is treated as empty.
func (r *Registry) Run(ctx context.Context, name string, env Env, in Input) (Output, error) {
	rec, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
	}
	if in == nil {
		in = Input{}
	}
	out, err := rec.Run(ctx, env, in)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", name, err)
	}
	return out, nil
}

// Default returns a registry with every built-in recipe. The summarize recipe
// is registered only when provider is non-nil.
func Default(provider llm.Provider) *Registry {
	r := NewRegistry()
	for _, rec := range []Recipe{
		Hello(),
		Branch(),
		Countdown(),
		Nested(),
		Double(),
		ParallelSleep(),
		Flaky(),
		BatchScale(),
		PageDigest(),
	} {
		mustRegister(r, rec)
	}
	if provider != nil {
		mustRegister(r, Summarize())
	}
	return r
}

func mustRegister(r *Registry, rec Recipe) {
	if err := r.Register(rec); err != nil {
		panic(err)
	}
}

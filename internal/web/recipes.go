package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/cookbook"
	"github.com/pocketomega/pocket-flow/internal/runstore"
	"github.com/pocketomega/pocket-flow/pkg/core"
)

const (
	maxRequestBody = 1 << 20         // 1MB max request body
	runTimeout     = 5 * time.Minute // upper bound for a single recipe run
)

// RecipeHandler lists and runs cookbook recipes.
type RecipeHandler struct {
	registry *cookbook.Registry
	env      cookbook.Env
	store    runstore.Store
	logger   *zap.Logger
}

// NewRecipeHandler creates a handler; every run it serves is saved to store.
func NewRecipeHandler(registry *cookbook.Registry, env cookbook.Env, store runstore.Store, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{registry: registry, env: env, store: store, logger: logger}
}

type recipeInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

// runResponse is the body of POST /api/recipes/{name}/run and of the SSE done event.
type runResponse struct {
	RunID      string         `json:"run_id"`
	Recipe     string         `json:"recipe"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func responseFor(rec runstore.Record) runResponse {
	return runResponse{
		RunID:      rec.ID,
		Recipe:     rec.Recipe,
		Output:     rec.Output,
		Error:      rec.Error,
		DurationMs: rec.Duration.Milliseconds(),
	}
}

// List handles GET /api/recipes.
func (h *RecipeHandler) List(w http.ResponseWriter, _ *http.Request) {
	recipes := h.registry.List()
	out := make([]recipeInfo, 0, len(recipes))
	for _, rec := range recipes {
		out = append(out, recipeInfo{Name: rec.Name, Description: rec.Description, Params: rec.Params})
	}
	writeJSON(w, http.StatusOK, out)
}

// Run handles POST /api/recipes/{name}/run. The body is the recipe input
// object; an empty body runs with defaults. A failed run answers 422 with the
// saved record.
func (h *RecipeHandler) Run(w http.ResponseWriter, r *http.Request) {
	name, in, ok := h.prepare(w, r)
	if !ok {
		return
	}

	rec, err := h.track(r.Context(), name, h.env, in)
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	}
	writeJSON(w, status, responseFor(rec))
}

// Stream handles POST /api/recipes/{name}/stream: engine events are sent as
// SSE while the recipe runs, followed by a done or error event.
func (h *RecipeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name, in, ok := h.prepare(w, r)
	if !ok {
		return
	}
	sse := newSSEWriter(w, r, h.logger)
	if sse == nil {
		return
	}

	env := h.env
	obs := &sseObserver{sse: sse}
	if env.Observer != nil {
		env.Observer = core.MultiObserver(env.Observer, obs)
	} else {
		env.Observer = obs
	}

	rec, err := h.track(r.Context(), name, env, in)
	if err != nil {
		sse.Send(sseEventError, responseFor(rec))
		return
	}
	sse.Send(sseEventDone, responseFor(rec))
}

// prepare resolves the recipe and decodes the input, writing the error
// response itself when it returns false.
func (h *RecipeHandler) prepare(w http.ResponseWriter, r *http.Request) (string, cookbook.Input, bool) {
	name := chi.URLParam(r, "name")
	if _, ok := h.registry.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown recipe: "+name)
		return "", nil, false
	}

	in := cookbook.Input{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return "", nil, false
	}
	if len(body) > maxRequestBody {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return "", nil, false
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			writeError(w, http.StatusBadRequest, "input must be a JSON object: "+err.Error())
			return "", nil, false
		}
	}
	return name, in, true
}

func (h *RecipeHandler) track(ctx context.Context, name string, env cookbook.Env, in cookbook.Input) (runstore.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	rec, err := runstore.Track(ctx, h.store, h.logger, name, in, func(ctx context.Context) (map[string]any, error) {
		return h.registry.Run(ctx, name, env, in)
	})
	if err != nil {
		h.logger.Warn("recipe failed",
			zap.String("recipe", name),
			zap.String("run_id", rec.ID),
			zap.Error(err),
		)
	} else {
		h.logger.Info("recipe finished",
			zap.String("recipe", name),
			zap.String("run_id", rec.ID),
			zap.Duration("elapsed", rec.Duration),
		)
	}
	return rec, err
}

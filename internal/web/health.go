package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// storePingTimeout bounds the store check of a single health request.
const storePingTimeout = 2 * time.Second

// HealthInfo holds runtime status for the health endpoint.
type HealthInfo struct {
	LLMModel    string // empty when no provider is configured
	LLMBaseURL  string
	RecipeCount int
	StoreKind   string                          // "memory" or "redis"
	StorePing   func(ctx context.Context) error // nil = no connectivity check
	Tracing     bool
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	info      HealthInfo
	startTime time.Time
}

// NewHealthHandler creates a health handler recording the server start time.
func NewHealthHandler(info HealthInfo) *HealthHandler {
	return &HealthHandler{info: info, startTime: time.Now()}
}

type healthResponse struct {
	Status     string           `json:"status"`
	UptimeSecs int64            `json:"uptime_seconds"`
	Components healthComponents `json:"components"`
}

type healthComponents struct {
	LLM     healthLLM     `json:"llm"`
	Recipes healthRecipes `json:"recipes"`
	Store   healthStore   `json:"store"`
	Tracing bool          `json:"tracing"`
}

type healthLLM struct {
	Status  string `json:"status"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}
type healthRecipes struct {
	Registered int `json:"registered"`
}
type healthStore struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
	Error  string `json:"error,omitempty"`
}

// ServeHTTP handles GET /api/health. A missing LLM only disables the
// summarize recipe, so it is reported but does not degrade the status; an
// unreachable store does.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	llmStatus := "ok"
	if h.info.LLMModel == "" {
		llmStatus = "disabled"
	}

	store := healthStore{Status: "ok", Kind: h.info.StoreKind}
	if store.Kind == "" {
		store.Kind = "memory"
	}
	if h.info.StorePing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), storePingTimeout)
		err := h.info.StorePing(ctx)
		cancel()
		if err != nil {
			store.Status = "down"
			store.Error = err.Error()
		}
	}

	status, code := "ok", http.StatusOK
	if store.Status != "ok" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:     status,
		UptimeSecs: int64(time.Since(h.startTime).Seconds()),
		Components: healthComponents{
			LLM:     healthLLM{Status: llmStatus, Model: h.info.LLMModel, BaseURL: h.info.LLMBaseURL},
			Recipes: healthRecipes{Registered: h.info.RecipeCount},
			Store:   store,
			Tracing: h.info.Tracing,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

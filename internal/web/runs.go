package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/runstore"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// RunsHandler serves saved run records.
type RunsHandler struct {
	store  runstore.Store
	logger *zap.Logger
}

func NewRunsHandler(store runstore.Store, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{store: store, logger: logger}
}

// List handles GET /api/runs?limit=N, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	recs, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// Get handles GET /api/runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, runstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found: "+id)
	case err != nil:
		h.logger.Error("get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

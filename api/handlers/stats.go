package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/internal/store"
	"github.com/pankgraph/cypherflow/types"
)

// RunStore is the subset of the refinement run store the stats handler needs.
type RunStore interface {
	Stats(ctx context.Context) (*store.Stats, error)
	Recent(ctx context.Context, limit int) ([]store.RefinementRun, error)
}

// StatsHandler exposes aggregate refinement statistics and recent runs.
type StatsHandler struct {
	store  RunStore
	logger *zap.Logger
}

// NewStatsHandler creates the stats handler.
func NewStatsHandler(s RunStore, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		store:  s,
		logger: logger.With(zap.String("component", "stats_handler")),
	}
}

// HandleStats reports aggregate refinement statistics.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load stats", zap.Error(err))
		WriteErrorMessage(w, r, types.ErrInternalError, "failed to load statistics", h.logger)
		return
	}
	WriteSuccess(w, r, stats, h.logger)
}

// HandleRecentRuns reports the most recent refinement runs. The limit query
// parameter caps the result count.
func (h *StatsHandler) HandleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteErrorMessage(w, r, types.ErrInvalidRequest, "limit must be a non-negative integer", h.logger)
			return
		}
		limit = n
	}

	runs, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load recent runs", zap.Error(err))
		WriteErrorMessage(w, r, types.ErrInternalError, "failed to load recent runs", h.logger)
		return
	}
	WriteSuccess(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}, h.logger)
}

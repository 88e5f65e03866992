package handler

import (
	"net/http"
	"time"

	"compost-tracker/internal/service"
)

// StatsHandler serves the caller's aggregates.
type StatsHandler struct {
	stats   *service.StatsService
	timeout time.Duration
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *service.StatsService, timeout time.Duration) *StatsHandler {
	return &StatsHandler{stats: stats, timeout: timeout}
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	userID, ok := callerID(ctx, w)
	if !ok {
		return
	}

	stats, err := h.stats.Get(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"compost-tracker/internal/model"
	"compost-tracker/internal/service"
)

// LeaderboardHandler serves the public rankings.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	timeout     time.Duration
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService, timeout time.Duration) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, timeout: timeout}
}

// Top handles GET /leaderboard?period=&limit=.
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	query := r.URL.Query()

	period, err := model.ParsePeriod(query.Get("period"))
	if err != nil {
		respondWithServiceError(w, fmt.Errorf("%w: %v", service.ErrInvalidPeriod, err))
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	entries, err := h.leaderboard.Top(ctx, period, limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

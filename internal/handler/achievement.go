package handler

import (
	"net/http"
	"time"

	"compost-tracker/internal/service"
)

// AchievementHandler serves unlocked achievements and the catalog.
type AchievementHandler struct {
	achievements *service.AchievementService
	timeout      time.Duration
}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler(achievements *service.AchievementService, timeout time.Duration) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, timeout: timeout}
}

// List handles GET /achievements.
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	userID, ok := callerID(ctx, w)
	if !ok {
		return
	}

	list, err := h.achievements.List(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// Catalog handles GET /achievements/catalog.
func (h *AchievementHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.achievements.Catalog())
}

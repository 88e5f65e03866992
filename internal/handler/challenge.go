package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"compost-tracker/internal/service"
)

// ChallengeHandler serves community challenges.
type ChallengeHandler struct {
	challenges *service.ChallengeService
	timeout    time.Duration
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challenges *service.ChallengeService, timeout time.Duration) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, timeout: timeout}
}

// List handles GET /challenges.
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	list, err := h.challenges.ListActive(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// Join handles POST /challenges/{id}/join.
func (h *ChallengeHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	userID, ok := callerID(ctx, w)
	if !ok {
		return
	}

	joined, err := h.challenges.Join(ctx, mux.Vars(r)["id"], userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	message := "joined challenge"
	if !joined {
		message = "already joined"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"message": message, "joined": joined})
}

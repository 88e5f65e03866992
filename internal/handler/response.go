// Package handler provides the HTTP handlers of the compost tracker API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"compost-tracker/internal/pkg/auth"
	"compost-tracker/internal/repository"
	"compost-tracker/internal/service"
)

// DefaultRequestTimeout bounds the work of a single request.
const DefaultRequestTimeout = 10 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors to statuses. Anything unknown
// is a 500 carrying the raw message.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEntry),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrChallengeClosed):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMissingUserID):
		respondWithError(w, http.StatusUnauthorized, "user not authenticated")
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "not allowed to modify this resource")
	case errors.Is(err, repository.ErrEntryNotFound),
		errors.Is(err, repository.ErrChallengeNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		log.Error().Err(err).Msg("Request failed")
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// requestContext bounds r's context by timeout.
func requestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

// callerID returns the authenticated user id or writes a 401.
func callerID(ctx context.Context, w http.ResponseWriter) (string, bool) {
	userID, ok := auth.UserID(ctx)
	if !ok || userID == "" {
		respondWithError(w, http.StatusUnauthorized, "user not authenticated")
		return "", false
	}
	return userID, true
}

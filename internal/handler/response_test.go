package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compost-tracker/internal/pkg/auth"
	"compost-tracker/internal/repository"
	"compost-tracker/internal/service"
)

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid entry", fmt.Errorf("%w: weight is required", service.ErrInvalidEntry), http.StatusBadRequest},
		{"invalid period", service.ErrInvalidPeriod, http.StatusBadRequest},
		{"closed challenge", service.ErrChallengeClosed, http.StatusBadRequest},
		{"missing user", service.ErrMissingUserID, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"entry not found", repository.ErrEntryNotFound, http.StatusNotFound},
		{"challenge not found", fmt.Errorf("join: %w", repository.ErrChallengeNotFound), http.StatusNotFound},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"storage failure", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tt.err)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRespondWithServiceError_RawMessageOnInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, errors.New("disk on fire"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "disk on fire", body["error"])
}

func TestCallerID(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := callerID(context.Background(), rec)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{UserID: "u1"})
	rec = httptest.NewRecorder()
	id, ok := callerID(ctx, rec)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

type failingPinger struct{ err error }

func (p failingPinger) HealthCheck(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(failingPinger{err: errors.New("down")}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

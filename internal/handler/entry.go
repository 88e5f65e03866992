package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"compost-tracker/internal/service"
)

// EntryHandler serves the composting log.
type EntryHandler struct {
	entries *service.EntryService
	timeout time.Duration
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entries *service.EntryService, timeout time.Duration) *EntryHandler {
	return &EntryHandler{entries: entries, timeout: timeout}
}

// Create handles POST /entries.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	userID, ok := callerID(ctx, w)
	if !ok {
		return
	}

	var in service.EntryInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, _, err := h.entries.Create(ctx, userID, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

// List handles GET /entries.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	userID, ok := callerID(ctx, w)
	if !ok {
		return
	}

	entries, err := h.entries.List(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// Delete handles DELETE /entries/{id}.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	userID, ok := callerID(ctx, w)
	if !ok {
		return
	}

	if _, err := h.entries.Delete(ctx, userID, mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "entry deleted"})
}

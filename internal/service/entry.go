package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"compost-tracker/internal/model"
)

const maxNotesLength = 1000

// EntryInput is the client payload for a new entry.
type EntryInput struct {
	WasteType string   `json:"wasteType"`
	Weight    *float64 `json:"weight"`
	Method    string   `json:"method"`
	Notes     string   `json:"notes,omitempty"`
	Date      string   `json:"date,omitempty"`
}

// EntryService handles entry writes and triggers the recompute pipeline.
type EntryService struct {
	entries  EntryStore
	pipeline *Pipeline
	loc      *time.Location
	now      func() time.Time
}

// NewEntryService creates a new EntryService instance.
func NewEntryService(entries EntryStore, pipeline *Pipeline, loc *time.Location) *EntryService {
	if loc == nil {
		loc = time.UTC
	}
	return &EntryService{
		entries:  entries,
		pipeline: pipeline,
		loc:      loc,
		now:      time.Now,
	}
}

// Build validates in and derives category and CO2 estimate. Errors wrap
// ErrInvalidEntry.
func (s *EntryService) Build(userID string, in EntryInput) (*model.Entry, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if in.WasteType == "" || in.Weight == nil || in.Method == "" {
		return nil, fmt.Errorf("%w: wasteType, weight and method are required", ErrInvalidEntry)
	}

	wasteType, err := model.ParseWasteType(in.WasteType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	method, err := model.ParseMethod(in.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	weight := *in.Weight
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, fmt.Errorf("%w: weight must be a non-negative number", ErrInvalidEntry)
	}

	notes := strings.TrimSpace(in.Notes)
	if len(notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidEntry, maxNotesLength)
	}

	date, err := s.parseDate(in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	category, _ := wasteType.Category()

	return &model.Entry{
		ID:         uuid.NewString(),
		UserID:     userID,
		WasteType:  wasteType,
		Category:   category,
		Weight:     weight,
		Method:     method,
		Date:       date,
		Notes:      notes,
		CO2Avoided: wasteType.CO2Avoided(weight),
	}, nil
}

// parseDate accepts RFC3339 or a plain YYYY-MM-DD day in the service zone.
func (s *EntryService) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, s.loc); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("date %q is not RFC3339 or YYYY-MM-DD", raw)
}

// Create stores a new entry and runs the full pipeline. Pipeline failures
// are reported but never fail the write.
func (s *EntryService) Create(ctx context.Context, userID string, in EntryInput) (*model.Entry, *Report, error) {
	entry, err := s.Build(userID, in)
	if err != nil {
		return nil, nil, err
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to create entry: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("entry_id", entry.ID).
		Str("waste_type", string(entry.WasteType)).
		Float64("weight", entry.Weight).
		Msg("Entry created")

	report := s.pipeline.RunAll(ctx, userID)
	return entry, report, nil
}

// List returns the user's entries, newest first.
func (s *EntryService) List(ctx context.Context, userID string) ([]*model.Entry, error) {
	return s.entries.ListByUser(ctx, userID)
}

// Delete removes an entry owned by userID and recomputes stats only.
func (s *EntryService) Delete(ctx context.Context, userID, entryID string) (*Report, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, ErrForbidden
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("entry_id", entryID).
		Msg("Entry deleted")

	return s.pipeline.RunStatsOnly(ctx, userID), nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compost-tracker/internal/model"
	"compost-tracker/internal/repository"
)

func TestEntryService_BuildValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name string
		in   EntryInput
	}{
		{name: "missing waste type", in: EntryInput{Weight: fptr(1), Method: "pile"}},
		{name: "missing weight", in: EntryInput{WasteType: "fruits", Method: "pile"}},
		{name: "missing method", in: EntryInput{WasteType: "fruits", Weight: fptr(1)}},
		{name: "unknown waste type", in: EntryInput{WasteType: "plastic", Weight: fptr(1), Method: "pile"}},
		{name: "unknown method", in: EntryInput{WasteType: "fruits", Weight: fptr(1), Method: "landfill"}},
		{name: "negative weight", in: EntryInput{WasteType: "fruits", Weight: fptr(-1), Method: "pile"}},
		{name: "bad date", in: EntryInput{WasteType: "fruits", Weight: fptr(1), Method: "pile", Date: "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.entries.Build("u1", tt.in)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}

	_, err := env.entries.Build("", EntryInput{WasteType: "fruits", Weight: fptr(1), Method: "pile"})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestEntryService_BuildDerivesFields(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	env.entries.now = func() time.Time { return fixed }

	e, err := env.entries.Build("u1", EntryInput{WasteType: "tea-bags", Weight: fptr(2), Method: "vermicompost", Notes: "  morning  "})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, model.CategoryFood, e.Category)
	assert.InDelta(t, 0.2, e.CO2Avoided, 1e-9) // fallback factor
	assert.Equal(t, fixed, e.Date)
	assert.Equal(t, "morning", e.Notes)

	e, err = env.entries.Build("u1", EntryInput{WasteType: "leaves", Weight: fptr(0), Method: "pile", Date: "2024-04-02"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), e.Date)
	assert.Equal(t, model.CategoryYard, e.Category)
}

func TestEntryService_ListNewestFirst(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	old, _, err := env.entries.Create(ctx, "u1", EntryInput{WasteType: "leaves", Weight: fptr(1), Method: "pile", Date: "2024-01-01"})
	require.NoError(t, err)
	recent, _, err := env.entries.Create(ctx, "u1", EntryInput{WasteType: "leaves", Weight: fptr(1), Method: "pile", Date: "2024-02-01"})
	require.NoError(t, err)

	list, err := env.entries.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, recent.ID, list[0].ID)
	assert.Equal(t, old.ID, list[1].ID)
}

func TestEntryService_DeleteOwnership(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	e, _, err := env.entries.Create(ctx, "owner", EntryInput{WasteType: "fruits", Weight: fptr(1), Method: "pile"})
	require.NoError(t, err)

	_, err = env.entries.Delete(ctx, "intruder", e.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.entries.Delete(ctx, "owner", "does-not-exist")
	assert.ErrorIs(t, err, repository.ErrEntryNotFound)

	_, err = env.entries.Delete(ctx, "owner", e.ID)
	require.NoError(t, err)

	_, err = env.entries.Delete(ctx, "owner", e.ID)
	assert.ErrorIs(t, err, repository.ErrEntryNotFound)
}

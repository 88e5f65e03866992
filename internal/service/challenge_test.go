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

func TestChallengeService_JoinIsIdempotent(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	_, err := env.accounts.EnsureUser(ctx, "u1", "alice", "")
	require.NoError(t, err)

	list, err := env.challenges.ListActive(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	id := list[0].ID

	joined, err := env.challenges.Join(ctx, id, "u1")
	require.NoError(t, err)
	assert.True(t, joined)

	joined, err = env.challenges.Join(ctx, id, "u1")
	require.NoError(t, err)
	assert.False(t, joined)

	list, err = env.challenges.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list[0].Participants, 1)
	assert.Equal(t, "alice", list[0].Participants[0].Username)
}

func TestChallengeService_JoinErrors(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	_, err := env.challenges.Join(ctx, "missing", "u1")
	assert.ErrorIs(t, err, repository.ErrChallengeNotFound)

	past := time.Now().AddDate(0, -1, 0)
	require.NoError(t, env.db.Challenges().Create(ctx, &model.Challenge{
		ID:        "ended",
		Title:     "Ended",
		StartDate: past.AddDate(0, -1, 0),
		EndDate:   past,
		Active:    true,
	}))

	_, err = env.challenges.Join(ctx, "ended", "u1")
	assert.ErrorIs(t, err, ErrChallengeClosed)
}

func TestAccountService_EnsureUser(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	_, err := env.accounts.EnsureUser(ctx, "", "x", "")
	assert.ErrorIs(t, err, ErrMissingUserID)

	u, err := env.accounts.EnsureUser(ctx, "u1", "alice", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	u, err = env.accounts.EnsureUser(ctx, "u1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "a.png", u.AvatarURL)
}

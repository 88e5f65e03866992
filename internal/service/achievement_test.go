package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compost-tracker/internal/model"
)

func ids(defs []model.AchievementDefinition) []model.AchievementID {
	out := make([]model.AchievementID, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestEvaluateAchievements_Thresholds(t *testing.T) {
	tests := []struct {
		name  string
		stats model.Stats
		want  []model.AchievementID
	}{
		{name: "nothing", stats: model.Stats{}, want: []model.AchievementID{}},
		{
			name:  "first entry",
			stats: model.Stats{TotalEntries: 1},
			want:  []model.AchievementID{model.AchievementFirstCompost},
		},
		{
			name:  "ten entries and 50 kg",
			stats: model.Stats{TotalEntries: 10, TotalComposted: 50},
			want: []model.AchievementID{
				model.AchievementFirstCompost,
				model.AchievementCompostCollector,
				model.AchievementWasteWarrior,
			},
		},
		{
			name:  "100 kg with streak",
			stats: model.Stats{TotalEntries: 7, TotalComposted: 100, CurrentStreak: 7},
			want: []model.AchievementID{
				model.AchievementFirstCompost,
				model.AchievementWasteWarrior,
				model.AchievementGreenGuardian,
				model.AchievementSevenDayStreak,
			},
		},
		{
			name:  "top five rank",
			stats: model.Stats{TotalEntries: 1, Rank: 5},
			want:  []model.AchievementID{model.AchievementFirstCompost, model.AchievementCommunityHero},
		},
		{
			name:  "rank six",
			stats: model.Stats{TotalEntries: 1, Rank: 6},
			want:  []model.AchievementID{model.AchievementFirstCompost},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAchievements(&tt.stats, nil, DefaultHeroRank)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestEvaluateAchievements_SkipsUnlocked(t *testing.T) {
	stats := &model.Stats{TotalEntries: 10}
	unlocked := map[model.AchievementID]bool{model.AchievementFirstCompost: true}

	got := EvaluateAchievements(stats, unlocked, DefaultHeroRank)
	assert.Equal(t, []model.AchievementID{model.AchievementCompostCollector}, ids(got))
}

func TestAchievementService_EvaluateIsIdempotent(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	require.NoError(t, env.db.Stats().Upsert(ctx, &model.Stats{UserID: "u1", TotalEntries: 10, TotalComposted: 60}))
	_, err := env.accounts.EnsureUser(ctx, "u1", "alice", "")
	require.NoError(t, err)

	first, err := env.achievements.Evaluate(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 1, env.announcer.count())
	assert.Equal(t, "alice", env.announcer.users[0].Username)

	second, err := env.achievements.Evaluate(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, env.announcer.count())

	list, err := env.achievements.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAchievementService_NeverRevokes(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	require.NoError(t, env.db.Stats().Upsert(ctx, &model.Stats{UserID: "u1", TotalEntries: 1}))
	_, err := env.achievements.Evaluate(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, env.db.Stats().Upsert(ctx, &model.Stats{UserID: "u1"}))
	_, err = env.achievements.Evaluate(ctx, "u1")
	require.NoError(t, err)

	list, err := env.achievements.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.AchievementFirstCompost, list[0].AchievementID)
}

func TestAchievementService_AnnouncerFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.announcer.err = errors.New("telegram down")
	ctx := context.Background()

	require.NoError(t, env.db.Stats().Upsert(ctx, &model.Stats{UserID: "u1", TotalEntries: 1}))
	unlocked, err := env.achievements.Evaluate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, unlocked, 1)
}

func TestAchievementService_MissingStats(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	_, err := env.achievements.Evaluate(context.Background(), "ghost")
	assert.Error(t, err)
}

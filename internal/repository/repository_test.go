// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"compost-tracker/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container and returns a migrated pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})

	return pool
}

func newEntry(userID string, w model.WasteType, weight float64, date time.Time) *model.Entry {
	c, _ := w.Category()
	return &model.Entry{
		ID:         uuid.NewString(),
		UserID:     userID,
		WasteType:  w,
		Category:   c,
		Weight:     weight,
		Method:     model.MethodTumbler,
		Date:       date,
		CO2Avoided: w.CO2Avoided(weight),
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, pool))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM challenges`).Scan(&n))
	assert.Equal(t, 2, n)
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_Upsert(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Upsert(ctx, "user-1", "alice", "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// empty claims keep the stored display fields
	user, err = repo.Upsert(ctx, "user-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "https://example.com/a.png", user.AvatarURL)

	user, err = repo.Upsert(ctx, "user-1", "alice2", "")
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)

	_, err = repo.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// ============================================================================
// EntryRepository Tests
// ============================================================================

func TestEntryRepository_CreateListDelete(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewEntryRepository(pool)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	older := newEntry("u1", model.WasteLeaves, 2, day.AddDate(0, 0, -1))
	newer := newEntry("u1", model.WasteFruits, 10, day)
	other := newEntry("u2", model.WasteCardboard, 1, day)

	for _, e := range []*model.Entry{older, newer, other} {
		require.NoError(t, repo.Create(ctx, e))
		assert.False(t, e.CreatedAt.IsZero())
	}

	got, err := repo.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryFood, got.Category)
	assert.InDelta(t, 1.5, got.CO2Avoided, 1e-9)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.NoError(t, repo.Delete(ctx, newer.ID))
	assert.ErrorIs(t, repo.Delete(ctx, newer.ID), ErrEntryNotFound)

	_, err = repo.GetByID(ctx, newer.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	empty, err := repo.ListByUser(ctx, "u3")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

// ============================================================================
// StatsRepository Tests
// ============================================================================

func TestStatsRepository_UpsertKeepsRank(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewStatsRepository(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrStatsNotFound)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.CreateEmpty(ctx, "u1", now))
	s, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, s.TotalComposted)

	require.NoError(t, repo.SetRanks(ctx, map[string]int{"u1": 3}))

	s.TotalComposted = 12.5
	s.TotalEntries = 2
	s.WasteByCategory = model.CategoryTotals{Food: 10, Yard: 2.5}
	s.FavoriteMethod = model.MethodPile
	s.Rank = 0
	require.NoError(t, repo.Upsert(ctx, s))
	assert.Equal(t, 3, s.Rank)

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.TotalComposted)
	assert.Equal(t, model.CategoryTotals{Food: 10, Yard: 2.5}, got.WasteByCategory)
	assert.Equal(t, model.MethodPile, got.FavoriteMethod)
	assert.Equal(t, 3, got.Rank)

	// a second CreateEmpty must not reset the row
	require.NoError(t, repo.CreateEmpty(ctx, "u1", now))
	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.TotalComposted)
}

// ============================================================================
// AchievementRepository Tests
// ============================================================================

func TestAchievementRepository_InsertIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAchievementRepository(pool)
	ctx := context.Background()

	first := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	a := &model.Achievement{
		UserID:        "u1",
		AchievementID: model.AchievementFirstCompost,
		Name:          "First Compost",
		Icon:          "🌱",
		UnlockedAt:    first,
	}
	inserted, err := repo.Insert(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, a.ID)

	dup := *a
	dup.ID = 0
	dup.UnlockedAt = time.Now().UTC()
	inserted, err = repo.Insert(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, first.Equal(list[0].UnlockedAt))
}

// ============================================================================
// LeaderboardRepository Tests
// ============================================================================

func TestLeaderboardRepository_SaveRanksAndTop(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewLeaderboardRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	_, err := users.Upsert(ctx, "u1", "alice", "")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.UpsertScore(ctx, model.ScoreRecord{UserID: "u1", Period: model.PeriodAllTime, Score: 30, LastUpdated: now}))
	require.NoError(t, repo.UpsertScore(ctx, model.ScoreRecord{UserID: "u2", Period: model.PeriodAllTime, Score: 10, LastUpdated: now}))
	require.NoError(t, repo.UpsertScore(ctx, model.ScoreRecord{UserID: "u1", Period: model.PeriodWeekly, Score: 5, LastUpdated: now}))

	// unranked rows stay hidden
	top, err := repo.Top(ctx, model.PeriodAllTime, 10)
	require.NoError(t, err)
	assert.Empty(t, top)

	scores, err := repo.ListScores(ctx, model.PeriodAllTime)
	require.NoError(t, err)
	assert.Len(t, scores, 2)

	require.NoError(t, repo.SaveRanks(ctx, model.PeriodAllTime, []model.RankedRecord{
		{ScoreRecord: model.ScoreRecord{UserID: "u1"}, Rank: 1},
		{ScoreRecord: model.ScoreRecord{UserID: "u2"}, Rank: 2},
	}))

	top, err = repo.Top(ctx, model.PeriodAllTime, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "u1", top[0].UserID)
	assert.Equal(t, "alice", top[0].Username)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "", top[1].Username)

	top, err = repo.Top(ctx, model.PeriodAllTime, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	// updating a score keeps the stored rank until the next SaveRanks
	require.NoError(t, repo.UpsertScore(ctx, model.ScoreRecord{UserID: "u2", Period: model.PeriodAllTime, Score: 99, LastUpdated: now}))
	top, err = repo.Top(ctx, model.PeriodAllTime, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, 99.0, top[1].Score)
}

// ============================================================================
// ChallengeRepository Tests
// ============================================================================

func TestChallengeRepository_JoinAndList(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewChallengeRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	ended := &model.Challenge{
		ID:        uuid.NewString(),
		Title:     "Old",
		GoalKg:    5,
		StartDate: now.AddDate(0, -2, 0),
		EndDate:   now.AddDate(0, -1, 0),
		Active:    true,
	}
	require.NoError(t, repo.Create(ctx, ended))

	list, err := repo.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 2) // seeded challenges only
	for _, c := range list {
		assert.NotEqual(t, ended.ID, c.ID)
		assert.Empty(t, c.Participants)
	}

	target := list[0].ID
	joined, err := repo.AddParticipant(ctx, target, "u1", now)
	require.NoError(t, err)
	assert.True(t, joined)

	joined, err = repo.AddParticipant(ctx, target, "u1", now)
	require.NoError(t, err)
	assert.False(t, joined)

	list, err = repo.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, list[0].Participants, 1)
	assert.Equal(t, "u1", list[0].Participants[0].UserID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"compost-tracker/internal/model"
	"compost-tracker/internal/pkg/lock"
)

// Composite score weights.
const (
	streakWeight = 5.0
	entryWeight  = 2.0
)

// Leaderboard limits used when none are configured.
const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// CompositeScore is total weight + streak×5 + entries×2. Every period uses
// the same lifetime formula.
func CompositeScore(s *model.Stats) float64 {
	return s.TotalComposted + float64(s.CurrentStreak)*streakWeight + float64(s.TotalEntries)*entryWeight
}

// Rank orders records by score descending, breaking ties by user id, and
// assigns dense ranks 1..N. The input slice is not modified.
func Rank(records []model.ScoreRecord) []model.RankedRecord {
	sorted := make([]model.ScoreRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	ranked := make([]model.RankedRecord, len(sorted))
	for i, rec := range sorted {
		ranked[i] = model.RankedRecord{ScoreRecord: rec, Rank: i + 1}
	}
	return ranked
}

// LeaderboardService maintains and serves the per-period rankings.
type LeaderboardService struct {
	stats        StatsStore
	board        LeaderboardStore
	locks        *lock.UserLock
	lockTimeout  time.Duration
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// NewLeaderboardService creates a new LeaderboardService instance.
// Re-ranks of one period are serialized through locks.
func NewLeaderboardService(
	stats StatsStore,
	board LeaderboardStore,
	locks *lock.UserLock,
	lockTimeout time.Duration,
	defaultLimit, maxLimit int,
) *LeaderboardService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLeaderboardLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = max(MaxLeaderboardLimit, defaultLimit)
	}
	return &LeaderboardService{
		stats:        stats,
		board:        board,
		locks:        locks,
		lockTimeout:  lockTimeout,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          time.Now,
	}
}

func periodLockKey(p model.Period) string {
	return "leaderboard:" + string(p)
}

// Update stores the user's composite score for every period, re-ranks each
// period and caches the resulting all-time ranks on the stats rows.
func (s *LeaderboardService) Update(ctx context.Context, userID string) error {
	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	score := CompositeScore(stats)
	now := s.now().UTC()

	for _, period := range model.Periods() {
		rec := model.ScoreRecord{
			UserID:      userID,
			Period:      period,
			Score:       score,
			LastUpdated: now,
		}
		if err := s.board.UpsertScore(ctx, rec); err != nil {
			return fmt.Errorf("failed to store %s score: %w", period, err)
		}

		if _, err := s.Rerank(ctx, period); err != nil {
			return err
		}
	}

	return nil
}

// Rerank recomputes and persists the dense ranks of one period.
func (s *LeaderboardService) Rerank(ctx context.Context, period model.Period) ([]model.RankedRecord, error) {
	var ranked []model.RankedRecord

	err := s.locks.WithLockContext(ctx, periodLockKey(period), s.lockTimeout, func() error {
		records, err := s.board.ListScores(ctx, period)
		if err != nil {
			return fmt.Errorf("failed to load %s scores: %w", period, err)
		}

		ranked = Rank(records)
		if err := s.board.SaveRanks(ctx, period, ranked); err != nil {
			return fmt.Errorf("failed to save %s ranks: %w", period, err)
		}

		if period != model.PeriodAllTime {
			return nil
		}

		ranks := make(map[string]int, len(ranked))
		for _, r := range ranked {
			ranks[r.UserID] = r.Rank
		}
		if err := s.stats.SetRanks(ctx, ranks); err != nil {
			return fmt.Errorf("failed to cache ranks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ranked, nil
}

// Limit clamps a requested size; zero or less selects the default.
func (s *LeaderboardService) Limit(requested int) int {
	if requested <= 0 {
		return s.defaultLimit
	}
	return min(requested, s.maxLimit)
}

// Top returns the best ranked rows of a period with display fields.
func (s *LeaderboardService) Top(ctx context.Context, period model.Period, limit int) ([]*model.LeaderboardEntry, error) {
	entries, err := s.board.Top(ctx, period, s.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

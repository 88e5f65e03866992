// Package service provides business logic implementations.
package service

import (
	"context"
	"time"

	"compost-tracker/internal/model"
)

// EntryStore persists composting entries.
type EntryStore interface {
	Create(ctx context.Context, e *model.Entry) error
	GetByID(ctx context.Context, id string) (*model.Entry, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Entry, error)
	Delete(ctx context.Context, id string) error
}

// StatsStore persists the cached per-user aggregates.
type StatsStore interface {
	Get(ctx context.Context, userID string) (*model.Stats, error)
	CreateEmpty(ctx context.Context, userID string, at time.Time) error
	Upsert(ctx context.Context, s *model.Stats) error
	SetRanks(ctx context.Context, ranks map[string]int) error
}

// AchievementStore persists unlock events.
type AchievementStore interface {
	Insert(ctx context.Context, a *model.Achievement) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Achievement, error)
}

// LeaderboardStore persists per-period scores and ranks.
type LeaderboardStore interface {
	UpsertScore(ctx context.Context, rec model.ScoreRecord) error
	ListScores(ctx context.Context, period model.Period) ([]model.ScoreRecord, error)
	SaveRanks(ctx context.Context, period model.Period, ranked []model.RankedRecord) error
	Top(ctx context.Context, period model.Period, limit int) ([]*model.LeaderboardEntry, error)
}

// ChallengeStore persists community challenges.
type ChallengeStore interface {
	ListActive(ctx context.Context, now time.Time) ([]*model.Challenge, error)
	GetByID(ctx context.Context, id string) (*model.Challenge, error)
	AddParticipant(ctx context.Context, challengeID, userID string, at time.Time) (bool, error)
}

// UserStore persists display profiles.
type UserStore interface {
	Upsert(ctx context.Context, id, username, avatarURL string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

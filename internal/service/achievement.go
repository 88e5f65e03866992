package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"compost-tracker/internal/model"
	"compost-tracker/internal/pkg/metrics"
)

// Achievement thresholds.
const (
	collectorEntries = 10
	warriorKg        = 50.0
	guardianKg       = 100.0
	streakDays       = 7
	DefaultHeroRank  = 5
)

// Announcer publishes newly unlocked achievements somewhere outside the API.
type Announcer interface {
	AnnounceUnlocks(ctx context.Context, user *model.User, unlocked []*model.Achievement) error
}

type nopAnnouncer struct{}

func (nopAnnouncer) AnnounceUnlocks(context.Context, *model.User, []*model.Achievement) error {
	return nil
}

// AchievementService evaluates and serves achievements.
type AchievementService struct {
	stats        StatsStore
	achievements AchievementStore
	users        UserStore
	announcer    Announcer
	metrics      *metrics.Metrics
	heroRank     int
	now          func() time.Time
}

// NewAchievementService creates a new AchievementService instance.
// announcer and m may be nil.
func NewAchievementService(
	stats StatsStore,
	achievements AchievementStore,
	users UserStore,
	announcer Announcer,
	m *metrics.Metrics,
	heroRank int,
) *AchievementService {
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	if heroRank <= 0 {
		heroRank = DefaultHeroRank
	}
	return &AchievementService{
		stats:        stats,
		achievements: achievements,
		users:        users,
		announcer:    announcer,
		metrics:      m,
		heroRank:     heroRank,
		now:          time.Now,
	}
}

// EvaluateAchievements returns the catalog entries that stats satisfies
// and that are not in unlocked, in catalog order.
func EvaluateAchievements(stats *model.Stats, unlocked map[model.AchievementID]bool, heroRank int) []model.AchievementDefinition {
	if stats == nil {
		return nil
	}

	var earned []model.AchievementDefinition
	for _, def := range model.AchievementCatalog() {
		if unlocked[def.ID] {
			continue
		}
		if qualifies(def.ID, stats, heroRank) {
			earned = append(earned, def)
		}
	}
	return earned
}

func qualifies(id model.AchievementID, s *model.Stats, heroRank int) bool {
	switch id {
	case model.AchievementFirstCompost:
		return s.TotalEntries >= 1
	case model.AchievementCompostCollector:
		return s.TotalEntries >= collectorEntries
	case model.AchievementWasteWarrior:
		return s.TotalComposted >= warriorKg
	case model.AchievementGreenGuardian:
		return s.TotalComposted >= guardianKg
	case model.AchievementSevenDayStreak:
		return s.CurrentStreak >= streakDays
	case model.AchievementCommunityHero:
		return s.Rank >= 1 && s.Rank <= heroRank
	default:
		return false
	}
}

// Evaluate checks the user's stored stats against the catalog and records
// every new unlock. It returns only the rows inserted by this call.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]*model.Achievement, error) {
	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	existing, err := s.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	unlocked := make(map[model.AchievementID]bool, len(existing))
	for _, a := range existing {
		unlocked[a.AchievementID] = true
	}

	now := s.now().UTC()
	var inserted []*model.Achievement
	for _, def := range EvaluateAchievements(stats, unlocked, s.heroRank) {
		a := &model.Achievement{
			UserID:        userID,
			AchievementID: def.ID,
			Name:          def.Name,
			Icon:          def.Icon,
			UnlockedAt:    now,
		}
		ok, err := s.achievements.Insert(ctx, a)
		if err != nil {
			return inserted, fmt.Errorf("failed to unlock %s: %w", def.ID, err)
		}
		// a concurrent run may have won the insert
		if !ok {
			continue
		}
		s.metrics.AchievementUnlocked(string(def.ID))
		log.Info().
			Str("user_id", userID).
			Str("achievement", string(def.ID)).
			Msg("Achievement unlocked")
		inserted = append(inserted, a)
	}

	if len(inserted) > 0 {
		s.announce(ctx, userID, inserted)
	}

	return inserted, nil
}

// announce never fails the evaluation; delivery problems are only logged.
func (s *AchievementService) announce(ctx context.Context, userID string, unlocked []*model.Achievement) {
	user := &model.User{ID: userID}
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, userID); err == nil {
			user = u
		}
	}

	if err := s.announcer.AnnounceUnlocks(ctx, user, unlocked); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to announce achievements")
	}
}

// List returns the user's achievements, newest first.
func (s *AchievementService) List(ctx context.Context, userID string) ([]*model.Achievement, error) {
	return s.achievements.ListByUser(ctx, userID)
}

// Catalog returns every achievement definition in evaluation order.
func (s *AchievementService) Catalog() []model.AchievementDefinition {
	return model.AchievementCatalog()
}

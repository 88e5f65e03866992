package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"compost-tracker/internal/model"
	"compost-tracker/internal/pkg/db"
)

// StatsRepository persists the cached per-user aggregates.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository instance.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// Get retrieves a user's stats. Returns ErrStatsNotFound if absent.
func (r *StatsRepository) Get(ctx context.Context, userID string) (*model.Stats, error) {
	const query = `
		SELECT user_id, total_composted, monthly_composted, weekly_composted,
			current_streak, total_entries, food_kg, yard_kg, paper_kg,
			favorite_method, rank, total_co2_avoided, last_updated
		FROM stats
		WHERE user_id = $1
	`

	var s model.Stats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.TotalComposted,
		&s.MonthlyComposted,
		&s.WeeklyComposted,
		&s.CurrentStreak,
		&s.TotalEntries,
		&s.WasteByCategory.Food,
		&s.WasteByCategory.Yard,
		&s.WasteByCategory.Paper,
		&s.FavoriteMethod,
		&s.Rank,
		&s.TotalCO2Avoided,
		&s.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &s, nil
}

// CreateEmpty inserts a zeroed row unless one already exists.
func (r *StatsRepository) CreateEmpty(ctx context.Context, userID string, at time.Time) error {
	const query = `
		INSERT INTO stats (user_id, last_updated)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to create stats: %w", err)
	}
	return nil
}

// Upsert replaces every aggregate field. The cached rank is left alone;
// it is owned by SetRanks.
func (r *StatsRepository) Upsert(ctx context.Context, s *model.Stats) error {
	const query = `
		INSERT INTO stats (user_id, total_composted, monthly_composted, weekly_composted,
			current_streak, total_entries, food_kg, yard_kg, paper_kg,
			favorite_method, total_co2_avoided, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			total_composted = EXCLUDED.total_composted,
			monthly_composted = EXCLUDED.monthly_composted,
			weekly_composted = EXCLUDED.weekly_composted,
			current_streak = EXCLUDED.current_streak,
			total_entries = EXCLUDED.total_entries,
			food_kg = EXCLUDED.food_kg,
			yard_kg = EXCLUDED.yard_kg,
			paper_kg = EXCLUDED.paper_kg,
			favorite_method = EXCLUDED.favorite_method,
			total_co2_avoided = EXCLUDED.total_co2_avoided,
			last_updated = EXCLUDED.last_updated
		RETURNING rank
	`

	err := r.pool.QueryRow(ctx, query,
		s.UserID,
		s.TotalComposted,
		s.MonthlyComposted,
		s.WeeklyComposted,
		s.CurrentStreak,
		s.TotalEntries,
		s.WasteByCategory.Food,
		s.WasteByCategory.Yard,
		s.WasteByCategory.Paper,
		s.FavoriteMethod,
		s.TotalCO2Avoided,
		s.LastUpdated,
	).Scan(&s.Rank)
	if err != nil {
		return fmt.Errorf("failed to upsert stats: %w", err)
	}

	return nil
}

// SetRanks writes the cached all-time rank for every user in ranks.
// Users without a stats row are skipped.
func (r *StatsRepository) SetRanks(ctx context.Context, ranks map[string]int) error {
	if len(ranks) == 0 {
		return nil
	}

	const query = `UPDATE stats SET rank = $2 WHERE user_id = $1`

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for userID, rank := range ranks {
			batch.Queue(query, userID, rank)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to set ranks: %w", err)
		}
		return nil
	})
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"compost-tracker/internal/model"
)

// AchievementRepository persists unlock events.
type AchievementRepository struct {
	pool *pgxpool.Pool
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(pool *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{pool: pool}
}

// Insert records an unlock. It reports false when the user already holds
// the achievement; the existing row is kept unchanged.
func (r *AchievementRepository) Insert(ctx context.Context, a *model.Achievement) (bool, error) {
	const query = `
		INSERT INTO achievements (user_id, achievement_id, name, icon, unlocked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query, a.UserID, a.AchievementID, a.Name, a.Icon, a.UnlockedAt).Scan(&a.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}

	return true, nil
}

// ListByUser returns a user's achievements, newest first.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]*model.Achievement, error) {
	const query = `
		SELECT id, user_id, achievement_id, name, icon, unlocked_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY unlocked_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	achievements := make([]*model.Achievement, 0)
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.AchievementID, &a.Name, &a.Icon, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return achievements, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"compost-tracker/internal/model"
	"compost-tracker/internal/pkg/db"
)

// LeaderboardRepository persists per-period scores and ranks.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// UpsertScore stores a user's score for one period. A new row starts
// unranked (rank 0) until SaveRanks runs.
func (r *LeaderboardRepository) UpsertScore(ctx context.Context, rec model.ScoreRecord) error {
	const query = `
		INSERT INTO leaderboard (user_id, period, rank, score, last_updated)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (user_id, period) DO UPDATE SET
			score = EXCLUDED.score,
			last_updated = EXCLUDED.last_updated
	`

	if _, err := r.pool.Exec(ctx, query, rec.UserID, rec.Period, rec.Score, rec.LastUpdated); err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

// ListScores returns every score record of a period in no particular order.
func (r *LeaderboardRepository) ListScores(ctx context.Context, period model.Period) ([]model.ScoreRecord, error) {
	const query = `
		SELECT user_id, period, score, last_updated
		FROM leaderboard
		WHERE period = $1
	`

	rows, err := r.pool.Query(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	var records []model.ScoreRecord
	for rows.Next() {
		var rec model.ScoreRecord
		if err := rows.Scan(&rec.UserID, &rec.Period, &rec.Score, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}

	return records, nil
}

// SaveRanks writes all ranks of a period in one transaction so readers
// never observe a half-ranked period.
func (r *LeaderboardRepository) SaveRanks(ctx context.Context, period model.Period, ranked []model.RankedRecord) error {
	if len(ranked) == 0 {
		return nil
	}

	const query = `UPDATE leaderboard SET rank = $3 WHERE user_id = $1 AND period = $2`

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range ranked {
			batch.Queue(query, rec.UserID, period, rec.Rank)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save ranks: %w", err)
		}
		return nil
	})
}

// Top returns the ranked rows of a period with display fields, best first.
// Rows that have not been ranked yet are excluded.
func (r *LeaderboardRepository) Top(ctx context.Context, period model.Period, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT l.user_id, COALESCE(u.username, ''), COALESCE(u.avatar_url, ''),
			l.period, l.rank, l.score, l.last_updated
		FROM leaderboard l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE l.period = $1 AND l.rank > 0
		ORDER BY l.rank ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, period, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e model.LeaderboardEntry
		err := rows.Scan(
			&e.UserID,
			&e.Username,
			&e.AvatarURL,
			&e.Period,
			&e.Rank,
			&e.Score,
			&e.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}

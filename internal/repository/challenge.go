package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"compost-tracker/internal/model"
)

// ChallengeRepository persists community challenges and their members.
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository creates a new ChallengeRepository instance.
func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

// Create inserts a challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *model.Challenge) error {
	const query = `
		INSERT INTO challenges (id, title, description, goal_kg, start_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Title, c.Description, c.GoalKg, c.StartDate, c.EndDate, c.Active)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// ListActive returns the active challenges that have not ended at now,
// soonest ending first, with participants attached.
func (r *ChallengeRepository) ListActive(ctx context.Context, now time.Time) ([]*model.Challenge, error) {
	const query = `
		SELECT id, title, description, goal_kg, start_date, end_date, active
		FROM challenges
		WHERE active AND end_date >= $1
		ORDER BY end_date ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := make([]*model.Challenge, 0)
	byID := make(map[string]*model.Challenge)
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.GoalKg, &c.StartDate, &c.EndDate, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		c.Participants = []model.Participant{}
		challenges = append(challenges, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	if len(challenges) == 0 {
		return challenges, nil
	}

	ids := make([]string, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}

	const participantsQuery = `
		SELECT p.challenge_id, p.user_id, COALESCE(u.username, ''), p.joined_at
		FROM challenge_participants p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.challenge_id = ANY($1)
		ORDER BY p.joined_at ASC, p.user_id ASC
	`

	prows, err := r.pool.Query(ctx, participantsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var challengeID string
		var p model.Participant
		if err := prows.Scan(&challengeID, &p.UserID, &p.Username, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if c, ok := byID[challengeID]; ok {
			c.Participants = append(c.Participants, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return challenges, nil
}

// GetByID retrieves a challenge without participants.
// Returns ErrChallengeNotFound if absent.
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*model.Challenge, error) {
	const query = `
		SELECT id, title, description, goal_kg, start_date, end_date, active
		FROM challenges
		WHERE id = $1
	`

	var c model.Challenge
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.Description, &c.GoalKg, &c.StartDate, &c.EndDate, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return &c, nil
}

// AddParticipant joins a user to a challenge. It reports false when the
// user was already a member.
func (r *ChallengeRepository) AddParticipant(ctx context.Context, challengeID, userID string, at time.Time) (bool, error) {
	const query = `
		INSERT INTO challenge_participants (challenge_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (challenge_id, user_id) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, challengeID, userID, at)
	if err != nil {
		return false, fmt.Errorf("failed to join challenge: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

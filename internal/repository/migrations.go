package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				username VARCHAR(255) NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "entries table",
		sql: `
			CREATE TABLE IF NOT EXISTS entries (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				waste_type VARCHAR(50) NOT NULL,
				category VARCHAR(20) NOT NULL,
				weight DOUBLE PRECISION NOT NULL CHECK (weight >= 0),
				method VARCHAR(50) NOT NULL,
				date TIMESTAMPTZ NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				co2_avoided DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries(user_id, date DESC);
		`,
	},
	{
		name: "stats table",
		sql: `
			CREATE TABLE IF NOT EXISTS stats (
				user_id TEXT PRIMARY KEY,
				total_composted DOUBLE PRECISION NOT NULL DEFAULT 0,
				monthly_composted DOUBLE PRECISION NOT NULL DEFAULT 0,
				weekly_composted DOUBLE PRECISION NOT NULL DEFAULT 0,
				current_streak INT NOT NULL DEFAULT 0,
				total_entries INT NOT NULL DEFAULT 0,
				food_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
				yard_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
				paper_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
				favorite_method VARCHAR(50) NOT NULL DEFAULT '',
				rank INT NOT NULL DEFAULT 0,
				total_co2_avoided DOUBLE PRECISION NOT NULL DEFAULT 0,
				last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "achievements table",
		sql: `
			CREATE TABLE IF NOT EXISTS achievements (
				id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL,
				achievement_id VARCHAR(50) NOT NULL,
				name VARCHAR(255) NOT NULL,
				icon VARCHAR(32) NOT NULL DEFAULT '',
				unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, achievement_id)
			);
			CREATE INDEX IF NOT EXISTS idx_achievements_user_time ON achievements(user_id, unlocked_at DESC);
		`,
	},
	{
		name: "leaderboard table",
		sql: `
			CREATE TABLE IF NOT EXISTS leaderboard (
				user_id TEXT NOT NULL,
				period VARCHAR(20) NOT NULL,
				rank INT NOT NULL DEFAULT 0,
				score DOUBLE PRECISION NOT NULL DEFAULT 0,
				last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, period)
			);
			CREATE INDEX IF NOT EXISTS idx_leaderboard_period_rank ON leaderboard(period, rank);
		`,
	},
	{
		name: "challenges tables",
		sql: `
			CREATE TABLE IF NOT EXISTS challenges (
				id TEXT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				goal_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
				start_date TIMESTAMPTZ NOT NULL,
				end_date TIMESTAMPTZ NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE
			);
			CREATE TABLE IF NOT EXISTS challenge_participants (
				challenge_id TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (challenge_id, user_id)
			);
		`,
	},
	{
		name: "seed community challenges",
		sql: `
			INSERT INTO challenges (id, title, description, goal_kg, start_date, end_date, active)
			VALUES
				('6f1c2a8e-4b7d-4e0a-9c1b-2d3e4f5a6b01', 'Kitchen Scraps Sprint',
				 'Compost 20 kg of food scraps together this season.', 20,
				 NOW(), NOW() + INTERVAL '90 days', TRUE),
				('6f1c2a8e-4b7d-4e0a-9c1b-2d3e4f5a6b02', 'Leaf Drop',
				 'Turn autumn leaves into leaf mould instead of bagging them.', 50,
				 NOW(), NOW() + INTERVAL '90 days', TRUE)
			ON CONFLICT (id) DO NOTHING;
		`,
	},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

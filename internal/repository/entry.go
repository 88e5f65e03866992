package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"compost-tracker/internal/model"
)

// EntryRepository persists composting entries.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository instance.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `id, user_id, waste_type, category, weight, method, date, notes, co2_avoided, created_at`

func scanEntry(row pgx.Row) (*model.Entry, error) {
	var e model.Entry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.WasteType,
		&e.Category,
		&e.Weight,
		&e.Method,
		&e.Date,
		&e.Notes,
		&e.CO2Avoided,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an entry. CreatedAt is set by the database.
func (r *EntryRepository) Create(ctx context.Context, e *model.Entry) error {
	const query = `
		INSERT INTO entries (id, user_id, waste_type, category, weight, method, date, notes, co2_avoided, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		e.ID, e.UserID, e.WasteType, e.Category, e.Weight, e.Method, e.Date, e.Notes, e.CO2Avoided,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry. Returns ErrEntryNotFound if absent.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*model.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return e, nil
}

// ListByUser returns a user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string) ([]*model.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM entries
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// Delete removes an entry. Returns ErrEntryNotFound if nothing was deleted.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM entries WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	return nil
}

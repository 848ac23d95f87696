package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"role_mention_bot/internal/domain/departure"
)

type PostgresDepartureRepository struct {
	db *sql.DB
}

func NewPostgresDepartureRepository(db *sql.DB) *PostgresDepartureRepository {
	return &PostgresDepartureRepository{db: db}
}

func (r *PostgresDepartureRepository) Create(ctx context.Context, d *departure.Departure) error {
	query := `INSERT INTO departures (user_id, guild_id, departed_at)
               VALUES ($1, $2, $3)
               RETURNING id`

	err := r.db.QueryRowContext(ctx, query, d.UserID, d.GuildID, d.DepartedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("error creating departure: %w", err)
	}
	return nil
}

// TakeLatest deletes and returns the most recent departure of the user from
// the guild. Not retried, a replayed delete would consume an older record.
func (r *PostgresDepartureRepository) TakeLatest(ctx context.Context, userID, guildID string) (*departure.Departure, error) {
	query := `DELETE FROM departures
               WHERE id = (
                   SELECT id FROM departures
                   WHERE user_id = $1 AND guild_id = $2
                   ORDER BY departed_at DESC, id DESC
                   LIMIT 1
               )
               RETURNING id, user_id, guild_id, departed_at`

	d := &departure.Departure{}
	err := r.db.QueryRowContext(ctx, query, userID, guildID).Scan(&d.ID, &d.UserID, &d.GuildID, &d.DepartedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, departure.ErrNotFound
		}
		return nil, fmt.Errorf("error taking latest departure: %w", err)
	}
	return d, nil
}

// DeleteOlderThan removes departures strictly before threshold.
func (r *PostgresDepartureRepository) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	query := `DELETE FROM departures WHERE departed_at < $1`

	return Operation(ctx, func(ctx context.Context) (int64, error) {
		result, err := r.db.ExecContext(ctx, query, threshold)
		if err != nil {
			return 0, fmt.Errorf("error deleting old departures: %w", err)
		}
		return result.RowsAffected()
	})
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"role_mention_bot/internal/domain/mention"
)

type PostgresMentionRepository struct {
	db *sql.DB
}

func NewPostgresMentionRepository(db *sql.DB) *PostgresMentionRepository {
	return &PostgresMentionRepository{db: db}
}

func (r *PostgresMentionRepository) Create(ctx context.Context, m *mention.PendingMention) error {
	query := `INSERT INTO pending_mentions (guild_id, role_id, mention_date, delivered)
               VALUES ($1, $2, $3::date, $4)
               RETURNING id, created_at`

	// Not retried: a lost commit would insert the mention twice.
	err := r.db.QueryRowContext(ctx, query, m.GuildID, m.RoleID, m.DateKey(), m.Delivered).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating pending mention: %w", err)
	}
	return nil
}

// ListByDate returns every mention scheduled on the calendar day of date,
// delivered or not.
func (r *PostgresMentionRepository) ListByDate(ctx context.Context, date time.Time) ([]*mention.PendingMention, error) {
	query := `SELECT id, guild_id, role_id, mention_date, delivered, created_at
               FROM pending_mentions WHERE mention_date = $1::date ORDER BY id`

	return Operation(ctx, func(ctx context.Context) ([]*mention.PendingMention, error) {
		rows, err := r.db.QueryContext(ctx, query, date.Format(mention.DateLayout))
		if err != nil {
			return nil, fmt.Errorf("error listing mentions by date: %w", err)
		}
		defer rows.Close()

		mentions := make([]*mention.PendingMention, 0)
		for rows.Next() {
			m, err := scanMention(rows)
			if err != nil {
				return nil, fmt.Errorf("error scanning pending mention: %w", err)
			}
			mentions = append(mentions, m)
		}
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating pending mentions: %w", err)
		}
		return mentions, nil
	})
}

func (r *PostgresMentionRepository) MarkDelivered(ctx context.Context, id int64) error {
	query := `UPDATE pending_mentions SET delivered = TRUE WHERE id = $1`

	return NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("error marking mention %d delivered: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected for mention %d: %w", id, err)
		}
		if rowsAffected == 0 {
			return mention.ErrNotFound
		}
		return nil
	})
}

// DeleteByDate removes every mention scheduled on the calendar day of date.
func (r *PostgresMentionRepository) DeleteByDate(ctx context.Context, date time.Time) (int64, error) {
	query := `DELETE FROM pending_mentions WHERE mention_date = $1::date`

	return Operation(ctx, func(ctx context.Context) (int64, error) {
		result, err := r.db.ExecContext(ctx, query, date.Format(mention.DateLayout))
		if err != nil {
			return 0, fmt.Errorf("error deleting mentions by date: %w", err)
		}
		return result.RowsAffected()
	})
}

func scanMention(rows *sql.Rows) (*mention.PendingMention, error) {
	m := &mention.PendingMention{}
	if err := rows.Scan(&m.ID, &m.GuildID, &m.RoleID, &m.Date, &m.Delivered, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

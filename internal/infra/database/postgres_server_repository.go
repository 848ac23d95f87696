package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"role_mention_bot/internal/domain/server"
)

type PostgresServerRepository struct {
	db *sql.DB
}

func NewPostgresServerRepository(db *sql.DB) *PostgresServerRepository {
	return &PostgresServerRepository{db: db}
}

func (r *PostgresServerRepository) GetByGuildID(ctx context.Context, guildID string) (*server.Config, error) {
	query := `SELECT guild_id, discovery_channel_id, updated_at
               FROM server_configs WHERE guild_id = $1`

	return Operation(ctx, func(ctx context.Context) (*server.Config, error) {
		cfg := &server.Config{}
		err := r.db.QueryRowContext(ctx, query, guildID).Scan(&cfg.GuildID, &cfg.DiscoveryChannelID, &cfg.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, server.ErrNotFound
			}
			return nil, fmt.Errorf("error getting server config for guild %s: %w", guildID, err)
		}
		return cfg, nil
	})
}

func (r *PostgresServerRepository) Upsert(ctx context.Context, cfg *server.Config) error {
	query := `INSERT INTO server_configs (guild_id, discovery_channel_id, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (guild_id) DO UPDATE
               SET discovery_channel_id = EXCLUDED.discovery_channel_id, updated_at = NOW()
               RETURNING updated_at`

	return NoResult(ctx, func(ctx context.Context) error {
		err := r.db.QueryRowContext(ctx, query, cfg.GuildID, cfg.DiscoveryChannelID).Scan(&cfg.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error upserting server config for guild %s: %w", cfg.GuildID, err)
		}
		return nil
	})
}

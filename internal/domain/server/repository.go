package server

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a guild has no stored settings.
var ErrNotFound = errors.New("server config not found")

// Repository defines the operations for persisting and retrieving guild settings.
type Repository interface {
	GetByGuildID(ctx context.Context, guildID string) (*Config, error)
	Upsert(ctx context.Context, cfg *Config) error
}

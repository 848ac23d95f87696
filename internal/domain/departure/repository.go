package departure

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("departure not found")

// Repository defines the operations for persisting and retrieving Departure entities.
type Repository interface {
	Create(ctx context.Context, d *Departure) error
	// TakeLatest atomically removes and returns the most recent departure for
	// the member in the guild.
	TakeLatest(ctx context.Context, userID, guildID string) (*Departure, error)
	// DeleteOlderThan removes departures strictly older than threshold.
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

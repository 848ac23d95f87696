// internal/domain/mention/repository.go
package mention

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a mention with the given ID does not exist.
var ErrNotFound = errors.New("pending mention not found")

// Repository defines operations on PendingMention records.
type Repository interface {
	Create(ctx context.Context, m *PendingMention) error
	// ListByDate returns every mention scheduled on the given day, delivered or not.
	// The result is fully materialized so callers may mutate the store while iterating.
	ListByDate(ctx context.Context, date time.Time) ([]*PendingMention, error)
	// MarkDelivered sets the delivered flag. Setting it twice is a no-op.
	MarkDelivered(ctx context.Context, id int64) error
	// DeleteByDate removes every mention scheduled on the given day and returns the count.
	DeleteByDate(ctx context.Context, date time.Time) (int64, error)
}

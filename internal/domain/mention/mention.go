// internal/domain/mention/mention.go
package mention

import (
	"database/sql"
	"time"
)

// DateLayout is the day-granularity key format stored with every mention.
const DateLayout = "2006-01-02"

// PendingMention is a role that should be pinged once in its guild's discovery
// channel after the notification window has elapsed.
// Corresponds to the 'pending_mentions' table.
type PendingMention struct {
	ID        int64
	GuildID   string
	RoleID    string
	Date      time.Time    // Scheduling key, day granularity
	Delivered sql.NullBool // NULL and FALSE both mean "not yet delivered"
	CreatedAt time.Time
}

// IsDelivered reports whether the mention has already been sent.
func (m *PendingMention) IsDelivered() bool {
	return m.Delivered.Valid && m.Delivered.Bool
}

// DateKey returns the scheduling date as stored, e.g. "2024-03-02".
func (m *PendingMention) DateKey() string {
	return m.Date.Format(DateLayout)
}

// DaysBefore returns the calendar day that lies the given number of days
// before today, in today's location, truncated to midnight.
func DaysBefore(today time.Time, days int) time.Time {
	d := today.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

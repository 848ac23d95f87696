package departure

import "time"

// Departure records a member leaving a guild so a later join can be
// recognized as a rejoin.
type Departure struct {
	ID         int64
	UserID     string
	GuildID    string
	DepartedAt time.Time
}

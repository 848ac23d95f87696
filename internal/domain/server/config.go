package server

import (
	"database/sql"
	"time"
)

// Config holds per-guild settings.
type Config struct {
	GuildID            string
	DiscoveryChannelID sql.NullString // Channel that receives role mentions
	UpdatedAt          time.Time
}

// ChannelID returns the discovery channel and whether one is configured.
func (c *Config) ChannelID() (string, bool) {
	if !c.DiscoveryChannelID.Valid || c.DiscoveryChannelID.String == "" {
		return "", false
	}
	return c.DiscoveryChannelID.String, true
}

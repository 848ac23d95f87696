package discord

import "context"

// Guild, Channel, Role and Message are the minimal views of Discord resources
// the application needs. They decouple the services from the bot library.
type Guild struct {
	ID   string
	Name string
}

type Channel struct {
	ID      string
	GuildID string
	Name    string
}

type Role struct {
	ID      string
	GuildID string
	Name    string
}

type Message struct {
	ID        string
	ChannelID string
}

// Member is a guild member as seen by join/leave events.
type Member struct {
	UserID   string
	GuildID  string
	Username string
	Bot      bool
}

// Client defines the Discord operations used by the application.
// Lookups fail with ErrNotFound or ErrForbidden when Discord reports those
// conditions; any other error is transient.
type Client interface {
	// WaitReady blocks until the gateway session is live or ctx is done.
	WaitReady(ctx context.Context) error
	Guild(ctx context.Context, guildID string) (*Guild, error)
	GuildChannel(ctx context.Context, guildID, channelID string) (*Channel, error)
	// GuildRole looks the role up in the local cache and never fails.
	GuildRole(guildID, roleID string) (*Role, bool)
	// SendMessage posts content to a channel. Only the listed roles may be pinged.
	SendMessage(ctx context.Context, channelID, content string, mentionRoleIDs []string) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	DeleteRole(ctx context.Context, guildID, roleID, reason string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// internal/infra/discord/client.go
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	domain "role_mention_bot/internal/domain/discord"

	"github.com/bwmarrin/discordgo"
)

// DiscordgoAdapter implements domain.Client on top of a discordgo session.
type DiscordgoAdapter struct {
	session *discordgo.Session

	readyOnce sync.Once
	ready     chan struct{}
}

// NewDiscordgoAdapter wraps s. It must be called before s.Open so the Ready
// event is not missed.
func NewDiscordgoAdapter(s *discordgo.Session) *DiscordgoAdapter {
	a := &DiscordgoAdapter{
		session: s,
		ready:   make(chan struct{}),
	}
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		a.markReady()
	})
	return a
}

func (a *DiscordgoAdapter) markReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}

func (a *DiscordgoAdapter) WaitReady(ctx context.Context) error {
	select {
	case <-a.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Guild returns the guild from the state cache, falling back to the API.
func (a *DiscordgoAdapter) Guild(ctx context.Context, guildID string) (*domain.Guild, error) {
	if g, err := a.session.State.Guild(guildID); err == nil {
		return &domain.Guild{ID: g.ID, Name: g.Name}, nil
	}

	g, err := a.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch guild %s: %w", guildID, classifyError(err))
	}
	return &domain.Guild{ID: g.ID, Name: g.Name}, nil
}

// GuildChannel returns the channel if it exists and belongs to guildID.
func (a *DiscordgoAdapter) GuildChannel(ctx context.Context, guildID, channelID string) (*domain.Channel, error) {
	ch, err := a.session.State.Channel(channelID)
	if err != nil {
		ch, err = a.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch channel %s: %w", channelID, classifyError(err))
		}
	}
	if ch.GuildID != guildID {
		return nil, fmt.Errorf("channel %s is not in guild %s: %w", channelID, guildID, domain.ErrNotFound)
	}
	return &domain.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}

func (a *DiscordgoAdapter) GuildRole(guildID, roleID string) (*domain.Role, bool) {
	r, err := a.session.State.Role(guildID, roleID)
	if err != nil {
		return nil, false
	}
	return &domain.Role{ID: r.ID, GuildID: guildID, Name: r.Name}, true
}

func (a *DiscordgoAdapter) SendMessage(ctx context.Context, channelID, content string, mentionRoleIDs []string) (*domain.Message, error) {
	msg, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Roles: mentionRoleIDs,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send message to channel %s: %w", channelID, classifyError(err))
	}
	return &domain.Message{ID: msg.ID, ChannelID: msg.ChannelID}, nil
}

func (a *DiscordgoAdapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, classifyError(err))
	}
	return nil
}

func (a *DiscordgoAdapter) DeleteRole(ctx context.Context, guildID, roleID, reason string) error {
	err := a.session.GuildRoleDelete(guildID, roleID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		return fmt.Errorf("delete role %s: %w", roleID, classifyError(err))
	}
	return nil
}

func (a *DiscordgoAdapter) SendDirectMessage(ctx context.Context, userID, content string) error {
	ch, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel with %s: %w", userID, classifyError(err))
	}
	if _, err := a.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send DM to %s: %w", userID, classifyError(err))
	}
	return nil
}

// classifyError tags REST errors with domain.ErrNotFound or domain.ErrForbidden.
// The original error stays in the chain.
func classifyError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return err
	}
	switch restErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	}
	return err
}

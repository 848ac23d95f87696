package discord

import (
	"context"
	"time"

	domain "role_mention_bot/internal/domain/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const memberEventTimeout = 30 * time.Second

// MembershipHandler reacts to members joining and leaving guilds.
type MembershipHandler interface {
	HandleJoin(ctx context.Context, member domain.Member) (bool, error)
	HandleLeave(ctx context.Context, member domain.Member) error
}

// EventHandlers routes gateway events to the application.
type EventHandlers struct {
	membership MembershipHandler
	logger     *logrus.Entry
}

func NewEventHandlers(membership MembershipHandler, logger *logrus.Entry) *EventHandlers {
	return &EventHandlers{membership: membership, logger: logger}
}

// Register adds the handlers to s.
func (h *EventHandlers) Register(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onMemberAdd)
	s.AddHandler(h.onMemberRemove)
}

func (h *EventHandlers) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	fields := logrus.Fields{"guilds": len(r.Guilds)}
	if r.User != nil {
		fields["user"] = r.User.Username
	}
	h.logger.WithFields(fields).Info("Discord session ready")
}

func (h *EventHandlers) onMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	member, ok := toMember(e.Member)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), memberEventTimeout)
	defer cancel()

	if _, err := h.membership.HandleJoin(ctx, member); err != nil {
		h.logger.WithError(err).WithField("user_id", member.UserID).Error("Failed to handle member join")
	}
}

func (h *EventHandlers) onMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	member, ok := toMember(e.Member)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), memberEventTimeout)
	defer cancel()

	if err := h.membership.HandleLeave(ctx, member); err != nil {
		h.logger.WithError(err).WithField("user_id", member.UserID).Error("Failed to handle member leave")
	}
}

func toMember(m *discordgo.Member) (domain.Member, bool) {
	if m == nil || m.User == nil {
		return domain.Member{}, false
	}
	return domain.Member{
		UserID:   m.User.ID,
		GuildID:  m.GuildID,
		Username: m.User.Username,
		Bot:      m.User.Bot,
	}, true
}

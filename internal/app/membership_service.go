package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"role_mention_bot/internal/domain/departure"
	"role_mention_bot/internal/domain/discord"

	"github.com/sirupsen/logrus"
)

// WelcomeMentionPlaceholder is replaced by a mention of the joining member.
const WelcomeMentionPlaceholder = "{mention}"

// MembershipService records departures and recognizes returning members.
type MembershipService struct {
	departureRepo  departure.Repository
	discordClient  discord.Client
	logger         *logrus.Entry
	welcomeMessage string
	now            func() time.Time
}

func NewMembershipService(dr departure.Repository, dc discord.Client, logger *logrus.Entry, welcomeMessage string) *MembershipService {
	return &MembershipService{
		departureRepo:  dr,
		discordClient:  dc,
		logger:         logger,
		welcomeMessage: welcomeMessage,
		now:            time.Now,
	}
}

// HandleLeave stores a departure record for a member that left a guild.
func (s *MembershipService) HandleLeave(ctx context.Context, member discord.Member) error {
	if member.Bot {
		return nil
	}

	d := &departure.Departure{
		UserID:     member.UserID,
		GuildID:    member.GuildID,
		DepartedAt: s.now(),
	}
	if err := s.departureRepo.Create(ctx, d); err != nil {
		return fmt.Errorf("failed to record departure for user %s: %w", member.UserID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  member.UserID,
		"guild_id": member.GuildID,
	}).Info("Recorded departure")
	return nil
}

// HandleJoin consumes the member's latest departure, if any, and sends the
// welcome message. It reports whether the member is returning.
func (s *MembershipService) HandleJoin(ctx context.Context, member discord.Member) (bool, error) {
	if member.Bot {
		return false, nil
	}
	joinLogger := s.logger.WithFields(logrus.Fields{
		"user_id":  member.UserID,
		"guild_id": member.GuildID,
	})

	returning := false
	_, err := s.departureRepo.TakeLatest(ctx, member.UserID, member.GuildID)
	switch {
	case err == nil:
		returning = true
		joinLogger.Info("Recognized returning member")
	case errors.Is(err, departure.ErrNotFound):
		joinLogger.Info("New member joined")
	default:
		// Rejoin detection is informational; still welcome the member.
		joinLogger.WithError(err).Error("Failed to look up departure")
	}

	if s.welcomeMessage == "" {
		return returning, nil
	}

	content := strings.ReplaceAll(s.welcomeMessage, WelcomeMentionPlaceholder, fmt.Sprintf("<@%s>", member.UserID))
	if err := s.discordClient.SendDirectMessage(ctx, member.UserID, content); err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			joinLogger.Info("Could not send welcome message, DMs are likely disabled")
			return returning, nil
		}
		return returning, fmt.Errorf("failed to send welcome message to user %s: %w", member.UserID, err)
	}
	joinLogger.Info("Sent welcome message")
	return returning, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"role_mention_bot/internal/domain/mention"
	"role_mention_bot/internal/domain/server"
)

// Application-level errors for admin commands
var (
	ErrInvalidDate  = errors.New("date must be formatted as YYYY-MM-DD")
	ErrDateTooOld   = errors.New("date is already past its retention period")
	ErrMissingInput = errors.New("guild, channel and role ids must not be empty")
)

// AdminService handles guild-admin commands that feed the mention scheduler.
type AdminService struct {
	serverRepo           server.Repository
	mentionRepo          mention.Repository
	location             *time.Location
	notifyAfterDays      int
	mentionRetentionDays int
	now                  func() time.Time
}

func NewAdminService(sr server.Repository, mr mention.Repository, loc *time.Location, notifyAfterDays, mentionRetentionDays int) *AdminService {
	if loc == nil {
		loc = time.Local
	}
	return &AdminService{
		serverRepo:           sr,
		mentionRepo:          mr,
		location:             loc,
		notifyAfterDays:      notifyAfterDays,
		mentionRetentionDays: mentionRetentionDays,
		now:                  time.Now,
	}
}

// SetDiscoveryChannel stores the channel that receives the guild's mentions.
func (s *AdminService) SetDiscoveryChannel(ctx context.Context, guildID, channelID string) (*server.Config, error) {
	if guildID == "" || channelID == "" {
		return nil, ErrMissingInput
	}
	cfg := &server.Config{GuildID: guildID}
	cfg.DiscoveryChannelID.String = channelID
	cfg.DiscoveryChannelID.Valid = true

	if err := s.serverRepo.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save discovery channel: %w", err)
	}
	return cfg, nil
}

// ScheduleMention records a role to be mentioned notifyAfterDays after date.
// An empty date means today. It returns the mention and the day it becomes due.
func (s *AdminService) ScheduleMention(ctx context.Context, guildID, roleID, date string) (*mention.PendingMention, time.Time, error) {
	if guildID == "" || roleID == "" {
		return nil, time.Time{}, ErrMissingInput
	}

	today := mention.DaysBefore(s.now().In(s.location), 0)
	day := today
	if date = strings.TrimSpace(date); date != "" {
		parsed, err := time.ParseInLocation(mention.DateLayout, date, s.location)
		if err != nil {
			return nil, time.Time{}, ErrInvalidDate
		}
		day = parsed
	}
	// A record this old would be purged before it is ever delivered.
	if !day.After(mention.DaysBefore(today, s.mentionRetentionDays)) {
		return nil, time.Time{}, ErrDateTooOld
	}

	m := &mention.PendingMention{GuildID: guildID, RoleID: roleID, Date: day}
	if err := s.mentionRepo.Create(ctx, m); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to schedule mention: %w", err)
	}
	return m, day.AddDate(0, 0, s.notifyAfterDays), nil
}

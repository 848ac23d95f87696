package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"role_mention_bot/internal/domain/departure"
	"role_mention_bot/internal/domain/discord"
	"role_mention_bot/internal/domain/mention"

	"github.com/sirupsen/logrus"
)

// SweepReport summarizes one mention retention sweep.
type SweepReport struct {
	StaleDate      time.Time
	Stale          int
	RolesDeleted   int
	Failures       []*RecordError
	RecordsDeleted int64
}

// RetentionService purges aged-out mentions with their roles, and old departures.
type RetentionService struct {
	mentionRepo            mention.Repository
	departureRepo          departure.Repository
	discordClient          discord.Client
	logger                 *logrus.Entry
	mentionRetentionDays   int
	departureRetentionDays int
	roleDeleteReason       string
}

func NewRetentionService(
	mr mention.Repository,
	dr departure.Repository,
	dc discord.Client,
	logger *logrus.Entry,
	mentionRetentionDays int,
	departureRetentionDays int,
	roleDeleteReason string,
) *RetentionService {
	return &RetentionService{
		mentionRepo:            mr,
		departureRepo:          dr,
		discordClient:          dc,
		logger:                 logger,
		mentionRetentionDays:   mentionRetentionDays,
		departureRetentionDays: departureRetentionDays,
		roleDeleteReason:       roleDeleteReason,
	}
}

// SweepMentions deletes the roles of mentions scheduled mentionRetentionDays
// before today, then removes those records. Role deletion is best effort:
// the records are removed whether or not their roles could be deleted.
func (s *RetentionService) SweepMentions(ctx context.Context, today time.Time) (*SweepReport, error) {
	staleDate := mention.DaysBefore(today, s.mentionRetentionDays)
	dateKey := staleDate.Format(mention.DateLayout)
	report := &SweepReport{StaleDate: staleDate}
	sweepLogger := s.logger.WithField("stale_date", dateKey)

	stale, err := s.mentionRepo.ListByDate(ctx, staleDate)
	if err != nil {
		sweepLogger.WithError(err).Error("Failed to list stale mentions")
		return report, fmt.Errorf("failed to list stale mentions for %s: %w", dateKey, err)
	}
	report.Stale = len(stale)

	for _, m := range stale {
		recordLogger := sweepLogger.WithFields(logrus.Fields{
			"mention_id": m.ID,
			"guild_id":   m.GuildID,
			"role_id":    m.RoleID,
		})
		if recErr := s.deleteRole(ctx, m); recErr != nil {
			recordLogger.WithError(recErr.Err).WithField("kind", recErr.Kind).Warn("Role not deleted")
			report.Failures = append(report.Failures, recErr)
			continue
		}
		report.RolesDeleted++
		recordLogger.Info("Deleted aged-out role")
	}

	deleted, err := s.mentionRepo.DeleteByDate(ctx, staleDate)
	if err != nil {
		sweepLogger.WithError(err).Error("Failed to delete stale mention records")
		return report, fmt.Errorf("failed to delete mentions for %s: %w", dateKey, err)
	}
	report.RecordsDeleted = deleted

	sweepLogger.WithFields(logrus.Fields{
		"stale":           report.Stale,
		"roles_deleted":   report.RolesDeleted,
		"records_deleted": report.RecordsDeleted,
	}).Info("Mention retention sweep finished")
	return report, nil
}

func (s *RetentionService) deleteRole(ctx context.Context, m *mention.PendingMention) *RecordError {
	fail := func(kind FailureKind, err error) *RecordError {
		return &RecordError{Kind: kind, MentionID: m.ID, GuildID: m.GuildID, RoleID: m.RoleID, Err: err}
	}

	if _, err := s.discordClient.Guild(ctx, m.GuildID); err != nil {
		return fail(KindGuildUnavailable, err)
	}

	role, ok := s.discordClient.GuildRole(m.GuildID, m.RoleID)
	if !ok {
		return fail(KindRoleMissing, discord.ErrNotFound)
	}

	if err := s.discordClient.DeleteRole(ctx, m.GuildID, role.ID, s.roleDeleteReason); err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			return fail(KindRoleForbidden, err)
		}
		return fail(KindRoleDeleteFailed, err)
	}
	return nil
}

// SweepDepartures removes departures older than departureRetentionDays.
func (s *RetentionService) SweepDepartures(ctx context.Context, now time.Time) (int64, error) {
	threshold := now.AddDate(0, 0, -s.departureRetentionDays)

	deleted, err := s.departureRepo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		s.logger.WithError(err).WithField("threshold", threshold).Error("Failed to clean up departures")
		return 0, fmt.Errorf("failed to delete departures before %s: %w", threshold.Format(time.RFC3339), err)
	}

	s.logger.WithFields(logrus.Fields{
		"threshold": threshold,
		"deleted":   deleted,
	}).Info("Cleaned up old departure records")
	return deleted, nil
}

// internal/app/mention_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"role_mention_bot/internal/domain/discord"
	"role_mention_bot/internal/domain/mention"
	"role_mention_bot/internal/domain/server"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// PassReport summarizes one mention pass.
type PassReport struct {
	DueDate          time.Time
	Due              int // Records scheduled on DueDate
	AlreadyDelivered int
	Delivered        int
	Failures         []*RecordError
}

// MentionService delivers role mentions whose notification window has elapsed.
type MentionService struct {
	mentionRepo     mention.Repository
	serverRepo      server.Repository
	discordClient   discord.Client
	logger          *logrus.Entry
	notifyAfterDays int
	deleteDelay     time.Duration

	// Delayed message deletions run detached from the pass that sent them.
	pendingDeletes conc.WaitGroup
}

func NewMentionService(
	mr mention.Repository,
	sr server.Repository,
	dc discord.Client,
	logger *logrus.Entry,
	notifyAfterDays int,
	deleteDelay time.Duration,
) *MentionService {
	return &MentionService{
		mentionRepo:     mr,
		serverRepo:      sr,
		discordClient:   dc,
		logger:          logger,
		notifyAfterDays: notifyAfterDays,
		deleteDelay:     deleteDelay,
	}
}

// RunPass attempts delivery of every undelivered mention scheduled
// notifyAfterDays before today. A failing record never stops the others.
// The returned error is only set when the due-set itself could not be read.
func (s *MentionService) RunPass(ctx context.Context, today time.Time) (*PassReport, error) {
	dueDate := mention.DaysBefore(today, s.notifyAfterDays)
	report := &PassReport{DueDate: dueDate}
	passLogger := s.logger.WithField("due_date", dueDate.Format(mention.DateLayout))

	mentions, err := s.mentionRepo.ListByDate(ctx, dueDate)
	if err != nil {
		passLogger.WithError(err).Error("Failed to list due mentions")
		return report, fmt.Errorf("failed to list mentions for %s: %w", dueDate.Format(mention.DateLayout), err)
	}
	report.Due = len(mentions)

	for _, m := range mentions {
		if m.IsDelivered() {
			report.AlreadyDelivered++
			continue
		}

		recordLogger := passLogger.WithFields(logrus.Fields{
			"mention_id": m.ID,
			"guild_id":   m.GuildID,
			"role_id":    m.RoleID,
		})
		recordLogger.Info("Found undelivered mention")

		if recErr := s.deliver(ctx, m, recordLogger); recErr != nil {
			recordLogger.WithError(recErr.Err).WithField("kind", recErr.Kind).Warn("Mention not delivered, will retry next tick")
			report.Failures = append(report.Failures, recErr)
			continue
		}
		report.Delivered++
	}

	passLogger.WithFields(logrus.Fields{
		"due":               report.Due,
		"delivered":         report.Delivered,
		"already_delivered": report.AlreadyDelivered,
		"failed":            len(report.Failures),
	}).Info("Mention pass finished")
	return report, nil
}

// deliver resolves the destination of a single mention, sends it and marks it
// delivered. Marking is the last step so a crash after sending leads to a
// resend rather than a lost notification.
func (s *MentionService) deliver(ctx context.Context, m *mention.PendingMention, logger *logrus.Entry) *RecordError {
	fail := func(kind FailureKind, err error) *RecordError {
		return &RecordError{Kind: kind, MentionID: m.ID, GuildID: m.GuildID, RoleID: m.RoleID, Err: err}
	}

	if _, err := s.discordClient.Guild(ctx, m.GuildID); err != nil {
		return fail(KindGuildUnavailable, err)
	}

	cfg, err := s.serverRepo.GetByGuildID(ctx, m.GuildID)
	if err != nil {
		return fail(KindConfigMissing, err)
	}
	channelID, ok := cfg.ChannelID()
	if !ok {
		return fail(KindConfigMissing, errors.New("no discovery channel configured"))
	}

	channel, err := s.discordClient.GuildChannel(ctx, m.GuildID, channelID)
	if err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			return fail(KindChannelForbidden, err)
		}
		return fail(KindChannelUnavailable, err)
	}

	msg, err := s.discordClient.SendMessage(ctx, channel.ID, discord.RoleMention(m.RoleID), []string{m.RoleID})
	if err != nil {
		return fail(KindSendFailed, err)
	}
	logger.WithField("channel_id", channel.ID).Info("Mention sent")
	s.scheduleDelete(msg, logger)

	if err := s.mentionRepo.MarkDelivered(ctx, m.ID); err != nil {
		return fail(KindMarkFailed, err)
	}
	return nil
}

// scheduleDelete removes the mention message after deleteDelay. The deletion
// is never cancelled and its outcome does not affect the pass.
func (s *MentionService) scheduleDelete(msg *discord.Message, logger *logrus.Entry) {
	if msg == nil {
		return
	}
	s.pendingDeletes.Go(func() {
		time.Sleep(s.deleteDelay)
		if err := s.discordClient.DeleteMessage(context.Background(), msg.ChannelID, msg.ID); err != nil {
			logger.WithError(err).WithField("message_id", msg.ID).Debug("Could not delete mention message")
		}
	})
}

// Drain waits for scheduled message deletions to finish.
func (s *MentionService) Drain() {
	if r := s.pendingDeletes.WaitAndRecover(); r != nil {
		s.logger.WithField("panic", r.Value).Error("Message deletion panicked")
	}
}

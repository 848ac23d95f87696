package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"role_mention_bot/internal/app"
	"role_mention_bot/internal/domain/mention"
	"role_mention_bot/internal/domain/server"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 10 * time.Second

// AdminCommands is the application side of the guild-admin slash commands.
type AdminCommands interface {
	SetDiscoveryChannel(ctx context.Context, guildID, channelID string) (*server.Config, error)
	ScheduleMention(ctx context.Context, guildID, roleID, date string) (*mention.PendingMention, time.Time, error)
}

// CommandHandlers registers and serves the /setchannel and /schedule commands.
type CommandHandlers struct {
	admin  AdminCommands
	logger *logrus.Entry
}

func NewCommandHandlers(admin AdminCommands, logger *logrus.Entry) *CommandHandlers {
	return &CommandHandlers{admin: admin, logger: logger}
}

// CommandDefinitions returns the slash commands. Both require Manage Roles.
func CommandDefinitions() []*discordgo.ApplicationCommand {
	perms := int64(discordgo.PermissionManageRoles)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setchannel",
			Description:              "Set the channel where scheduled roles are mentioned",
			DefaultMemberPermissions: &perms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "The discovery channel",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:                     "schedule",
			Description:              "Schedule a role to be mentioned once its waiting period is over",
			DefaultMemberPermissions: &perms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "The role to mention",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "Start date as YYYY-MM-DD, defaults to today",
					Required:    false,
				},
			},
		},
	}
}

// Register adds the interaction handler and syncs the commands once the
// session is ready.
func (h *CommandHandlers) Register(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if r.User == nil {
			return
		}
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", CommandDefinitions()); err != nil {
			h.logger.WithError(err).Error("Failed to register slash commands")
			return
		}
		h.logger.WithField("count", len(CommandDefinitions())).Info("Slash commands registered")
	})
	s.AddHandler(h.onInteraction)
}

func (h *CommandHandlers) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply := h.dispatch(ctx, i.GuildID, i.ApplicationCommandData())
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.WithError(err).Warn("Failed to respond to interaction")
	}
}

// dispatch runs a command and returns the reply shown to the invoking admin.
func (h *CommandHandlers) dispatch(ctx context.Context, guildID string, data discordgo.ApplicationCommandInteractionData) string {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"command":  data.Name,
		"guild_id": guildID,
	})
	handlerLogger.Info("Command received")

	if guildID == "" {
		return "This command can only be used inside a server."
	}

	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}

	switch data.Name {
	case "setchannel":
		opt, ok := options["channel"]
		if !ok {
			return "Please choose a channel."
		}
		channelID := opt.ChannelValue(nil).ID
		if _, err := h.admin.SetDiscoveryChannel(ctx, guildID, channelID); err != nil {
			handlerLogger.WithError(err).Error("Failed to set discovery channel")
			return "Could not save the channel, please try again."
		}
		handlerLogger.WithField("channel_id", channelID).Info("Discovery channel set")
		return fmt.Sprintf("Scheduled roles will be mentioned in <#%s>.", channelID)

	case "schedule":
		opt, ok := options["role"]
		if !ok {
			return "Please choose a role."
		}
		roleID := opt.RoleValue(nil, guildID).ID
		var date string
		if d, ok := options["date"]; ok {
			date = d.StringValue()
		}

		m, dueOn, err := h.admin.ScheduleMention(ctx, guildID, roleID, date)
		switch {
		case errors.Is(err, app.ErrInvalidDate):
			return "The date must look like 2024-03-02."
		case errors.Is(err, app.ErrDateTooOld):
			return "That date is too old, the role would be cleaned up before it is mentioned."
		case err != nil:
			handlerLogger.WithError(err).Error("Failed to schedule mention")
			return "Could not schedule the mention, please try again."
		}
		handlerLogger.WithFields(logrus.Fields{
			"mention_id": m.ID,
			"role_id":    roleID,
			"date":       m.DateKey(),
		}).Info("Mention scheduled")
		return fmt.Sprintf("<@&%s> will be mentioned on %s.", roleID, dueOn.Format(mention.DateLayout))
	}

	handlerLogger.Warn("Unknown command")
	return "Unknown command."
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"role_mention_bot/internal/app"
	"role_mention_bot/internal/infra/config"
	idb "role_mention_bot/internal/infra/database"
	idiscord "role_mention_bot/internal/infra/discord"
	"role_mention_bot/internal/infra/logger"
	"role_mention_bot/internal/infra/scheduler"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("Role Mention Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment":  cfg.Environment,
		"timezone":     cfg.Location.String(),
		"window":       cfg.MentionWindow.String(),
		"notify_after": cfg.NotifyAfterDays,
		"retention":    cfg.MentionRetentionDays,
	}).Info("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	if err := idb.Migrate(ctx, db); err != nil {
		mainLogger.Fatalf("Could not apply database schema: %v", err)
	}
	mainLogger.Info("Database connection established successfully.")

	// Initialize Repositories
	mentionRepo := idb.NewPostgresMentionRepository(db)
	serverRepo := idb.NewPostgresServerRepository(db)
	departureRepo := idb.NewPostgresDepartureRepository(db)

	// Initialize Discord session. Handlers must be registered before Open.
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		mainLogger.Fatalf("Could not create Discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	discordClient := idiscord.NewDiscordgoAdapter(session)

	// Initialize Services
	mentionService := app.NewMentionService(
		mentionRepo,
		serverRepo,
		discordClient,
		logger.Component("mention_service"),
		cfg.NotifyAfterDays,
		cfg.MessageDeleteDelay,
	)
	retentionService := app.NewRetentionService(
		mentionRepo,
		departureRepo,
		discordClient,
		logger.Component("retention_service"),
		cfg.MentionRetentionDays,
		cfg.DepartureRetentionDays,
		cfg.RoleDeleteReason,
	)
	membershipService := app.NewMembershipService(
		departureRepo,
		discordClient,
		logger.Component("membership_service"),
		cfg.WelcomeMessage,
	)

	adminService := app.NewAdminService(
		serverRepo,
		mentionRepo,
		cfg.Location,
		cfg.NotifyAfterDays,
		cfg.MentionRetentionDays,
	)

	// Register Handlers
	idiscord.NewEventHandlers(membershipService, logger.Component("discord")).Register(session)
	idiscord.NewCommandHandlers(adminService, logger.Component("commands")).Register(session)

	if err := session.Open(); err != nil {
		mainLogger.Fatalf("Could not open Discord connection: %v", err)
	}
	defer session.Close()
	mainLogger.Info("Discord connection opened.")

	driver := scheduler.NewTickDriver(
		mentionService,
		retentionService,
		discordClient,
		logger.Component("scheduler"),
		scheduler.Options{
			Location:          cfg.Location,
			MentionInterval:   cfg.MentionInterval,
			MentionWindow:     cfg.MentionWindow,
			DepartureInterval: cfg.DepartureCleanupInterval,
			RunOnStart:        cfg.RunOnStart,
		},
	)

	driverDone := make(chan error, 1)
	go func() { driverDone <- driver.Run(ctx) }()

	mainLogger.Info("Application setup complete. Scheduler is starting...")

	var driverErr error
	select {
	case <-ctx.Done():
		mainLogger.Info("Shutting down application...")
		driverErr = <-driverDone
	case driverErr = <-driverDone:
	}
	if driverErr != nil {
		mainLogger.WithError(driverErr).Error("Tick driver stopped with error")
	}

	mentionService.Drain()
	mainLogger.Info("Application shut down gracefully.")
}

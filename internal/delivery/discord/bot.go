package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"hqbot/internal/application"
	"hqbot/pkg/config"
)

type Bot struct {
	session  *discordgo.Session
	services *application.Service
	logger   application.Logger

	adminIDs         map[string]struct{}
	guildID          string
	allowedChannelID string
	commands         []*discordgo.ApplicationCommand
}

func NewBot(cfg *config.Config, services *application.Service, logger application.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	admins := make(map[string]struct{})
	for _, id := range cfg.AdminUserIDs {
		cleanID := strings.TrimSpace(id)
		if cleanID != "" {
			admins[cleanID] = struct{}{}
		}
	}

	b := &Bot{
		session:          s,
		services:         services,
		logger:           logger,
		adminIDs:         admins,
		guildID:          cfg.GuildID,
		allowedChannelID: cfg.AllowedChannelID,
	}
	b.addCommands(
		b.newChifumiCommand(),
		b.newGameCommand(),
		b.newPendingCommand(),
		b.newHistoryCommand(),
		b.newSettleCommand(),
		b.newExportCommand(),
	)
	return b, nil
}

// Session is used by the announcer to post outside of interactions.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Init() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.onInteraction)
	return nil
}

func (b *Bot) Run(_ context.Context) {
	if err := b.session.Open(); err != nil {
		b.logger.Error("Failed to open discord session: %v", err)
		return
	}

	b.logger.Info("Discord Bot Started. Registering slash commands...")

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, b.commands)
	if err != nil {
		b.logger.Error("Failed to register commands: %v", err)
	} else {
		b.logger.Info("Slash commands registered successfully")
	}
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.logger.Warn("Failed to close discord session: %v", err)
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.allowedChannelID != "" && i.ChannelID != b.allowedChannelID {
		b.respondMessage(s, i.Interaction, "❌ Le chifumi se joue dans un autre salon.", true)
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.onCommand(s, i.Interaction)
	case discordgo.InteractionMessageComponent:
		b.onButton(s, i.Interaction)
	}
}

func (b *Bot) onCommand(s *discordgo.Session, i *discordgo.Interaction) {
	switch i.ApplicationCommandData().Name {
	case cmdChifumi:
		b.handleChallenge(s, i)
	case cmdGame:
		b.handleGame(s, i)
	case cmdPending:
		b.handlePending(s, i)
	case cmdHistory:
		b.handleHistory(s, i)
	case cmdSettle:
		b.ensureAdmin(s, i, b.handleSettle)
	case cmdExport:
		b.ensureAdmin(s, i, b.handleExport)
	}
}

func (b *Bot) onButton(s *discordgo.Session, i *discordgo.Interaction) {
	action, err := parseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		b.logger.Debug("ignoring component %q: %v", i.MessageComponentData().CustomID, err)
		return
	}

	switch action.kind {
	case actionAccept:
		b.handleAccept(s, i, action.matchID)
	case actionDecline:
		b.handleDecline(s, i, action.matchID)
	case actionChoice:
		b.handleChoice(s, i, action.matchID, action.round, action.choice)
	}
}

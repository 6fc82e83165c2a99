package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"hqbot/internal/models"
)

// MessageSender is the slice of *discordgo.Session the announcer needs.
type MessageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts settled and expired matches to the main channel, so
// results of games driven from the web app show up on the server too.
type Announcer struct {
	sender    MessageSender
	channelID string
}

func NewAnnouncer(sender MessageSender, channelID string) *Announcer {
	return &Announcer{sender: sender, channelID: channelID}
}

func (a *Announcer) Name() string { return "discord" }

func (a *Announcer) Handle(ctx context.Context, events []models.Event) error {
	var errs []error
	for _, e := range events {
		embed := announcement(e)
		if embed == nil {
			continue
		}
		if _, err := a.sender.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("failed to announce %s: %w", e.Type, err))
		}
	}
	return errors.Join(errs...)
}

func announcement(e models.Event) *discordgo.MessageEmbed {
	switch e.Type {
	case models.EventMatchSettled:
		score := fmt.Sprintf("%d - %d", e.ChallengerWins, e.OpponentWins)
		return &discordgo.MessageEmbed{
			Title:       "🏆 Chifumi terminé !",
			Description: fmt.Sprintf("%s bat %s (%s) et remporte %d %s !", mention(e.WinnerID), mention(e.LoserID), score, e.Amount, currencyName),
			Color:       colorGold,
			Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + e.MatchID},
		}
	case models.EventMatchExpired:
		return &discordgo.MessageEmbed{
			Title:       "⌛ Défi expiré",
			Description: fmt.Sprintf("%s n'a pas répondu au défi de %s à temps.", mention(e.OpponentID), mention(e.ChallengerID)),
			Color:       colorRed,
			Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + e.MatchID},
		}
	default:
		return nil
	}
}

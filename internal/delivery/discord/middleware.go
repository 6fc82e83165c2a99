package discord

import (
	"github.com/bwmarrin/discordgo"
)

func (b *Bot) isAdmin(userID string) bool {
	_, ok := b.adminIDs[userID]
	return ok
}

func (b *Bot) respondMessage(s *discordgo.Session, i *discordgo.Interaction, msg string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(msg),
			Flags:   flags,
		},
	})
	if err != nil {
		b.logger.Warn("Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		b.logger.Warn("Failed to respond to interaction: %v", err)
	}
}

// updateMessage replaces the message that carries the clicked button.
func (b *Bot) updateMessage(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		b.logger.Warn("Failed to update interaction message: %v", err)
	}
}

func (b *Bot) ensureAdmin(s *discordgo.Session, i *discordgo.Interaction, handler func(*discordgo.Session, *discordgo.Interaction)) {
	if !b.isAdmin(userIDOf(i)) {
		b.respondMessage(s, i, "❌ Vous n'avez pas les droits.", true)
		return
	}
	handler(s, i)
}

package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

const requestTimeout = 10 * time.Second

func optionsByName(i *discordgo.Interaction) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range i.ApplicationCommandData().Options {
		opts[o.Name] = o
	}
	return opts
}

func (b *Bot) handleChallenge(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	opts := optionsByName(i)
	opponentID := opts["adversaire"].UserValue(nil).ID
	bet := opts["mise"].IntValue()
	rounds := 0
	if o, ok := opts["manches"]; ok {
		rounds = int(o.IntValue())
	}

	m, err := b.services.Chifumi.CreateChallenge(ctx, userIDOf(i), opponentID, bet, rounds)
	if err != nil {
		b.replyError(s, i, "create challenge", err)
		return
	}
	b.respondEmbed(s, i, challengeEmbed(m), answerButtons(m.ID))
}

func (b *Bot) handleAccept(s *discordgo.Session, i *discordgo.Interaction, matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	m, err := b.services.Chifumi.Accept(ctx, matchID, userIDOf(i))
	if errors.Is(err, game.ErrExpired) && m != nil {
		b.updateMessage(s, i, cancelledEmbed(m), nil)
		return
	}
	if err != nil {
		b.replyError(s, i, "accept", err)
		return
	}
	b.updateMessage(s, i, matchEmbed(m, nil, nil), componentsFor(m))
}

func (b *Bot) handleDecline(s *discordgo.Session, i *discordgo.Interaction, matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	m, err := b.services.Chifumi.Decline(ctx, matchID, userIDOf(i))
	if err != nil && !(errors.Is(err, game.ErrExpired) && m != nil) {
		b.replyError(s, i, "decline", err)
		return
	}
	b.updateMessage(s, i, cancelledEmbed(m), nil)
}

func (b *Bot) handleChoice(s *discordgo.Session, i *discordgo.Interaction, matchID string, round int, choice models.Choice) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	res, err := b.services.Chifumi.SubmitChoiceInRound(ctx, matchID, userIDOf(i), choice, round)
	if err != nil {
		b.replyError(s, i, "submit choice", err)
		return
	}

	confirm := fmt.Sprintf("✅ Vous avez choisi %s !", choiceLabel(choice))
	if res.Round == nil || !res.Round.Resolved() {
		b.respondMessage(s, i, confirm, true)
		return
	}

	b.updateMessage(s, i, matchEmbed(res.Match, res.Round, res.Settlement), componentsFor(res.Match))
	_, err = s.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
		Content: confirm,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Warn("Failed to send choice confirmation: %v", err)
	}
}

func (b *Bot) handleGame(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	id := normalizeID(optionsByName(i)["id"].StringValue())
	m, err := b.services.Chifumi.GetMatch(ctx, id)
	if err != nil {
		b.replyError(s, i, "get match", err)
		return
	}
	settlement, err := b.services.Chifumi.GetSettlement(ctx, id)
	if err != nil {
		b.replyError(s, i, "get settlement", err)
		return
	}

	var components []discordgo.MessageComponent
	if m.IsParticipant(userIDOf(i)) {
		components = componentsFor(m)
	}
	b.respondEmbed(s, i, matchEmbed(m, nil, settlement), components)
}

func (b *Bot) handlePending(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	matches, err := b.services.Chifumi.ListPending(ctx, userIDOf(i))
	if err != nil {
		b.replyError(s, i, "list pending", err)
		return
	}
	if len(matches) == 0 {
		b.respondMessage(s, i, "Aucun défi en attente.", true)
		return
	}

	lines := make([]string, 0, pendingLimit)
	for idx := range matches[:min(len(matches), pendingLimit)] {
		lines = append(lines, pendingLine(&matches[idx]))
	}
	embed := listEmbed("⏳ Défis en attente", "Utilisez /chifumi_partie <id> pour répondre", colorGray, lines)
	b.respondEmbed(s, i, embed, nil)
}

func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	playerID := userIDOf(i)
	if o, ok := optionsByName(i)["joueur"]; ok {
		playerID = o.UserValue(nil).ID
	}

	matches, err := b.services.Chifumi.History(ctx, playerID, historyLimit)
	if err != nil {
		b.replyError(s, i, "history", err)
		return
	}
	if len(matches) == 0 {
		b.respondMessage(s, i, fmt.Sprintf("%s n'a encore joué aucune partie.", mention(playerID)), false)
		return
	}

	lines := make([]string, 0, len(matches))
	for idx := range matches {
		lines = append(lines, historyLine(&matches[idx], playerID))
	}
	embed := listEmbed("📜 Historique Chifumi", "Résultat | ID | Adversaire | Score | Mise | Date", colorBlue, lines)
	b.respondEmbed(s, i, embed, nil)
}

func (b *Bot) handleSettle(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	id := normalizeID(optionsByName(i)["id"].StringValue())
	settlement, err := b.services.Chifumi.RetrySettlement(ctx, id)
	if err != nil {
		b.replyError(s, i, "retry settlement", err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("✅ Partie `%s` réglée : %s", id, settlementText(settlement)), false)
}

func (b *Bot) handleExport(s *discordgo.Session, i *discordgo.Interaction) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Warn("Failed to defer export: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	playerID := optionsByName(i)["joueur"].UserValue(nil).ID
	data, err := b.services.Export.ExportHistory(ctx, playerID)
	if err != nil {
		b.logger.Error("Export error: %v", err)
		s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
			Content: stringPtr(errorMessage(err)),
		})
		return
	}

	_, err = s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content: stringPtr(fmt.Sprintf("Historique de %s prêt !", mention(playerID))),
		Files: []*discordgo.File{
			{Name: exportFileName, ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Reader: bytes.NewReader(data)},
		},
	})
	if err != nil {
		b.logger.Warn("Failed to send export: %v", err)
	}
}

// replyError answers with the player-facing reason. Errors outside the
// domain are logged since the player only sees a generic message.
func (b *Bot) replyError(s *discordgo.Session, i *discordgo.Interaction, op string, err error) {
	if game.KindOf(err) == game.KindUnknown {
		b.logger.Error("chifumi %s failed for %s: %v", op, userIDOf(i), err)
	}
	b.respondMessage(s, i, errorMessage(err), true)
}

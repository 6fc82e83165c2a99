package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"hqbot/internal/models"
)

func challengeEmbed(m *models.Match) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎮 Défi Chifumi !",
		Description: fmt.Sprintf("%s défie %s à une partie de Pierre-Papier-Ciseaux !", mention(m.ChallengerID), mention(m.OpponentID)),
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Mise", Value: fmt.Sprintf("%d %s", m.BetAmount, currencyName), Inline: true},
			{Name: "🎯 Manches", Value: fmt.Sprintf("%d manches (premier à %d victoires)", m.TotalRounds, m.RequiredWins), Inline: true},
			{Name: "⏰ Expiration", Value: fmt.Sprintf("<t:%d:R>", m.ExpiresAt.Unix()), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "ID de jeu: " + m.ID},
		Timestamp: m.CreatedAt.Format(time.RFC3339),
	}
}

// matchEmbed shows a match in its current state. last is the round the
// triggering action touched, used to headline the round outcome.
func matchEmbed(m *models.Match, last *models.Round, settlement *models.Settlement) *discordgo.MessageEmbed {
	switch m.Status {
	case models.StatusPending:
		return challengeEmbed(m)
	case models.StatusCancelled:
		return cancelledEmbed(m)
	case models.StatusFinished:
		return finishedEmbed(m, settlement)
	}

	cw, ow := m.Score()
	embed := &discordgo.MessageEmbed{
		Title:       "🎮 Partie de Chifumi en cours !",
		Description: fmt.Sprintf("%s vs %s", mention(m.ChallengerID), mention(m.OpponentID)),
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Mise", Value: fmt.Sprintf("%d %s", m.BetAmount, currencyName), Inline: true},
			{Name: "🎯 Manche", Value: roundProgress(m), Inline: true},
			{Name: "📊 Score", Value: fmt.Sprintf("%d - %d", cw, ow), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("ID: %s | Premier à %d victoires", m.ID, m.RequiredWins)},
	}

	if last != nil && last.Resolved() {
		played := fmt.Sprintf("%s vs %s", choiceLabel(last.ChallengerChoice), choiceLabel(last.OpponentChoice))
		if last.Tie {
			embed.Title = "🤝 Égalité ! Manche de départage"
			embed.Color = colorOrange
			embed.Description += fmt.Sprintf("\n\n%s\n🔄 Une manche de départage a été ajoutée !", played)
		} else {
			embed.Title = fmt.Sprintf("🎯 Manche %d terminée !", last.Number)
			embed.Description += fmt.Sprintf("\n\n%s\n🏆 %s remporte cette manche !", played, mention(last.WinnerID))
		}
	}
	return embed
}

func finishedEmbed(m *models.Match, settlement *models.Settlement) *discordgo.MessageEmbed {
	cw, ow := m.Score()
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Partie terminée !",
		Description: fmt.Sprintf("🎉 %s remporte la partie contre %s !", mention(m.WinnerID), mention(m.LoserID())),
		Color:       colorGold,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Score final", Value: fmt.Sprintf("%d - %d", cw, ow), Inline: true},
			{Name: "🎯 Manches jouées", Value: fmt.Sprintf("%d", m.LastRoundNumber()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "ID: " + m.ID},
	}
	if settlement != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "💰 Gain", Value: settlementText(settlement), Inline: false,
		})
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "💰 Gain", Value: "Règlement en cours…", Inline: false,
		})
	}
	return embed
}

func cancelledEmbed(m *models.Match) *discordgo.MessageEmbed {
	title := "❌ Défi refusé"
	desc := fmt.Sprintf("%s a refusé le défi de %s", mention(m.OpponentID), mention(m.ChallengerID))
	// a decline is a write before the deadline; anything else ran out the clock
	if m.Version <= 1 || !m.UpdatedAt.Before(m.ExpiresAt) {
		title = "⌛ Défi expiré"
		desc = fmt.Sprintf("%s n'a pas répondu au défi de %s à temps", mention(m.OpponentID), mention(m.ChallengerID))
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       colorRed,
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + m.ID},
	}
}

func settlementText(s *models.Settlement) string {
	text := fmt.Sprintf("%s +%d %s, %s -%d %s", mention(s.WinnerID), s.NetGain(), currencyName, mention(s.LoserID), s.LoserStake, currencyName)
	if s.Shortfall > 0 {
		text += fmt.Sprintf("\n⚠️ Solde insuffisant : %d %s n'ont pas pu être prélevés", s.Shortfall, currencyName)
	}
	return text
}

func roundProgress(m *models.Match) string {
	current := m.LastRoundNumber()
	if open := m.OpenRound(); open != nil {
		current = open.Number
	}
	return fmt.Sprintf("%d/%d", current, m.TotalRounds)
}

func answerButtons(matchID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "✅ Accepter", Style: discordgo.SuccessButton, CustomID: acceptPrefix + matchID},
			discordgo.Button{Label: "❌ Refuser", Style: discordgo.DangerButton, CustomID: declinePrefix + matchID},
		}},
	}
}

// choiceButtons carries the round number so a click landing after the round
// resolved is rejected instead of counting for the next one.
func choiceButtons(matchID string, round int) []discordgo.MessageComponent {
	choices := []models.Choice{models.ChoiceRock, models.ChoicePaper, models.ChoiceScissors}
	buttons := make([]discordgo.MessageComponent, 0, len(choices))
	for _, c := range choices {
		buttons = append(buttons, discordgo.Button{
			Label:    choiceLabel(c),
			Style:    discordgo.PrimaryButton,
			CustomID: choiceCustomID(matchID, round, c),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

// componentsFor returns the buttons a match in its current state needs.
func componentsFor(m *models.Match) []discordgo.MessageComponent {
	switch m.Status {
	case models.StatusPending:
		return answerButtons(m.ID)
	case models.StatusActive:
		open := m.OpenRound()
		if open == nil {
			return nil
		}
		return choiceButtons(m.ID, open.Number)
	default:
		return nil
	}
}

func pendingLine(m *models.Match) string {
	return fmt.Sprintf("`%s` %s ➜ %s : %d %s, %d manches, expire <t:%d:R>",
		m.ID, mention(m.ChallengerID), mention(m.OpponentID), m.BetAmount, currencyName, m.TotalRounds, m.ExpiresAt.Unix())
}

func historyLine(m *models.Match, playerID string) string {
	opponent := m.OpponentID
	if playerID == m.OpponentID {
		opponent = m.ChallengerID
	}
	cw, ow := m.Score()
	mine, theirs := cw, ow
	if playerID == m.OpponentID {
		mine, theirs = ow, cw
	}

	icon := "⏳"
	switch {
	case m.Status == models.StatusFinished && m.WinnerID == playerID:
		icon = "✅"
	case m.Status == models.StatusFinished:
		icon = "❌"
	case m.Status == models.StatusCancelled:
		icon = "🚫"
	}
	return fmt.Sprintf("%s `%s` vs %s | %d-%d | %d %s | %s",
		icon, m.ID, mention(opponent), mine, theirs, m.BetAmount, currencyName, m.CreatedAt.Format("02/01/2006"))
}

func listEmbed(title, footer string, color int, lines []string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: truncate(strings.Join(lines, "\n")),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

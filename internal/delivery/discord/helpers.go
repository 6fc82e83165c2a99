package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

type actionKind int

const (
	actionAccept actionKind = iota + 1
	actionDecline
	actionChoice
)

type buttonAction struct {
	kind    actionKind
	matchID string
	round   int
	choice  models.Choice
}

var errUnknownComponent = errors.New("unknown component")

// parseCustomID decodes chifumi_accept_<id>, chifumi_decline_<id> and
// chifumi_choice_<id>_<round>_<rock|paper|scissors>.
func parseCustomID(customID string) (buttonAction, error) {
	switch {
	case strings.HasPrefix(customID, acceptPrefix):
		return idAction(actionAccept, strings.TrimPrefix(customID, acceptPrefix))
	case strings.HasPrefix(customID, declinePrefix):
		return idAction(actionDecline, strings.TrimPrefix(customID, declinePrefix))
	case strings.HasPrefix(customID, choicePrefix):
		parts := strings.Split(strings.TrimPrefix(customID, choicePrefix), "_")
		if len(parts) != 3 || parts[0] == "" {
			return buttonAction{}, errUnknownComponent
		}
		round, err := strconv.Atoi(parts[1])
		if err != nil || round < 1 {
			return buttonAction{}, errUnknownComponent
		}
		choice, err := game.ParseChoice(parts[2])
		if err != nil {
			return buttonAction{}, err
		}
		return buttonAction{kind: actionChoice, matchID: parts[0], round: round, choice: choice}, nil
	default:
		return buttonAction{}, errUnknownComponent
	}
}

func idAction(kind actionKind, matchID string) (buttonAction, error) {
	if matchID == "" {
		return buttonAction{}, errUnknownComponent
	}
	return buttonAction{kind: kind, matchID: matchID}, nil
}

func choiceCustomID(matchID string, round int, c models.Choice) string {
	return choicePrefix + matchID + "_" + strconv.Itoa(round) + "_" + strings.ToLower(string(c))
}

func choiceLabel(c models.Choice) string {
	switch c {
	case models.ChoiceRock:
		return "🪨 Pierre"
	case models.ChoicePaper:
		return "📄 Papier"
	case models.ChoiceScissors:
		return "✂️ Ciseaux"
	default:
		return "?"
	}
}

// errorMessage renders a service error for the player.
func errorMessage(err error) string {
	msg := "❌ " + game.Reason(err)
	if errors.Is(err, game.ErrInsufficientFunds) {
		if balance := game.MetaOf(err, "balance"); balance != "" {
			msg += fmt.Sprintf(" (%s dispose de %s %s)", mention(game.MetaOf(err, "account_id")), balance, currencyName)
		}
	}
	return msg
}

func userIDOf(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func truncate(msg string) string {
	if len(msg) <= maxMessageLength {
		return msg
	}
	cut := maxMessageLength - len("\n…")
	for cut > 0 && !utf8RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "\n…"
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func stringPtr(s string) *string {
	return &s
}

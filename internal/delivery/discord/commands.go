package discord

import "github.com/bwmarrin/discordgo"

const (
	cmdChifumi = "chifumi"
	cmdGame    = "chifumi_partie"
	cmdPending = "chifumi_attente"
	cmdHistory = "chifumi_historique"
	cmdSettle  = "chifumi_regler"
	cmdExport  = "chifumi_export"
)

func (b *Bot) addCommands(commands ...*discordgo.ApplicationCommand) {
	b.commands = append(b.commands, commands...)
}

func (b *Bot) newChifumiCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdChifumi,
		Description: "Défier un joueur au Pierre-Papier-Ciseaux",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "adversaire", Description: "Joueur à défier", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "mise", Description: "Nombre de tokens misés", Required: true},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "manches",
				Description: "Nombre de manches (impair, 3 à 11)",
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "3 manches", Value: 3},
					{Name: "5 manches", Value: 5},
					{Name: "7 manches", Value: 7},
					{Name: "9 manches", Value: 9},
					{Name: "11 manches", Value: 11},
				},
			},
		},
	}
}

func (b *Bot) newGameCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdGame,
		Description: "Afficher une partie de chifumi",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "ID de la partie", Required: true},
		},
	}
}

func (b *Bot) newPendingCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdPending,
		Description: "Défis en attente de votre réponse",
	}
}

func (b *Bot) newHistoryCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdHistory,
		Description: "Historique de vos parties de chifumi",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "joueur", Description: "Joueur (vous par défaut)", Required: false},
		},
	}
}

func (b *Bot) newSettleCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdSettle,
		Description: "Relancer le règlement d'une partie terminée (Admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "ID de la partie", Required: true},
		},
	}
}

func (b *Bot) newExportCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdExport,
		Description: "Exporter l'historique d'un joueur en Excel (Admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "joueur", Description: "Joueur", Required: true},
		},
	}
}

package discord

const (
	currencyName = "tokens"

	// Button custom id prefixes, followed by the match id.
	acceptPrefix  = "chifumi_accept_"
	declinePrefix = "chifumi_decline_"
	choicePrefix  = "chifumi_choice_"

	// Display limits
	historyLimit     = 10
	pendingLimit     = 10
	maxMessageLength = 2000

	// Embed colors
	colorGreen  = 0x00FF00 // Challenge / round won
	colorOrange = 0xFFA500 // Tie-break
	colorGold   = 0xFFD700 // Match finished
	colorRed    = 0xFF0000 // Declined / expired
	colorBlue   = 0x3498DB // Info/history
	colorGray   = 0x95A5A6 // Pending list

	exportFileName = "chifumi.xlsx"
)

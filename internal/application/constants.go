package application

const (
	// History limits
	maxHistoryLimit = 50
	exportLimit     = 1000

	// Match id generation
	codeAttempts = 5

	// Excel export
	excelMatchesSheet = "Parties"
	excelRoundsSheet  = "Manches"
	excelDateFormat   = "2006-01-02 15:04"
)

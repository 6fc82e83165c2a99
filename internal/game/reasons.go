package game

// reasons holds the player-facing wording of each domain error.
var reasons = map[string]string{
	ErrSelfChallenge.Code:      "Vous ne pouvez pas vous défier vous-même",
	ErrInvalidRoundCount.Code:  "Le nombre de manches doit être impair, entre 3 et 11",
	ErrInvalidBet.Code:         "La mise doit être positive",
	ErrInvalidChoice.Code:      "Choix invalide (pierre, papier ou ciseaux)",
	ErrMissingParticipant.Code: "Les deux joueurs sont requis",
	ErrNotOpponent.Code:        "Seul l'utilisateur défié peut répondre",
	ErrNotParticipant.Code:     "Vous ne participez pas à ce jeu",
	ErrNotPending.Code:         "Jeu déjà traité",
	ErrNotActive.Code:          "Jeu non actif",
	ErrExpired.Code:            "Jeu expiré",
	ErrAlreadyChosen.Code:      "Vous avez déjà fait votre choix",
	ErrRoundNotOpen.Code:       "Cette manche n'est plus en cours",
	ErrNoOpenRound.Code:        "Aucune manche en cours",
	ErrNotExpired.Code:         "Le défi n'a pas encore expiré",
	ErrNotFinished.Code:        "Jeu non terminé",
	ErrInsufficientFunds.Code:  "Solde insuffisant pour cette mise",
	ErrMatchNotFound.Code:      "Jeu non trouvé",
	ErrAccountNotFound.Code:    "Compte introuvable",
	ErrConcurrentUpdate.Code:   "Le jeu a été modifié en même temps, réessayez",
}

// Reason returns the French message shown to players for err.
func Reason(err error) string {
	if r, ok := reasons[CodeOf(err)]; ok {
		return r
	}
	return "Une erreur interne est survenue"
}

package game

import (
	"time"

	"hqbot/internal/models"
)

// extendTieBreak appends a replacement round after a tie. The planned round
// count grows by one; RequiredWins stays what it was at creation.
func extendTieBreak(t *Transition, now time.Time) {
	m := t.Match
	m.TotalRounds++
	next := openNextRound(t, now)

	e := newEvent(m, models.EventTieBreakAdded, now)
	e.RoundNumber = next.Number
	t.emit(e)
}

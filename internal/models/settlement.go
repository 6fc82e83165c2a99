package models

import "time"

// Payout is the settlement order produced when a match finishes. Everything
// in it is derived from the immutable match record, so it can be replayed.
type Payout struct {
	MatchID   string `json:"game_id"`
	WinnerID  string `json:"winner_id"`
	LoserID   string `json:"loser_id"`
	BetAmount int64  `json:"bet_amount"`
}

// Settlement is the stored result of a payout, one per match.
type Settlement struct {
	MatchID     string    `json:"game_id" db:"game_id"`
	WinnerID    string    `json:"winner_id" db:"winner_id"`
	LoserID     string    `json:"loser_id" db:"loser_id"`
	BetAmount   int64     `json:"bet_amount" db:"bet_amount"`
	WinnerStake int64     `json:"winner_stake" db:"winner_stake"`
	LoserStake  int64     `json:"loser_stake" db:"loser_stake"`
	Pot         int64     `json:"pot" db:"pot"`
	Shortfall   int64     `json:"shortfall" db:"shortfall"`
	SettledAt   time.Time `json:"settled_at" db:"settled_at"`
}

// NetGain is what the winner's balance moved by.
func (s *Settlement) NetGain() int64 {
	return s.Pot - s.WinnerStake
}

package models

import "time"

type EventType string

const (
	EventMatchCreated   EventType = "MATCH_CREATED"
	EventMatchAccepted  EventType = "MATCH_ACCEPTED"
	EventMatchDeclined  EventType = "MATCH_DECLINED"
	EventMatchExpired   EventType = "MATCH_EXPIRED"
	EventChoiceRecorded EventType = "CHOICE_RECORDED"
	EventRoundResolved  EventType = "ROUND_RESOLVED"
	EventTieBreakAdded  EventType = "TIEBREAK_ADDED"
	EventRoundOpened    EventType = "ROUND_OPENED"
	EventMatchFinished  EventType = "MATCH_FINISHED"
	EventMatchSettled   EventType = "MATCH_SETTLED"
)

// Event describes one thing that happened to a match. State transitions return
// events; notifiers and the audit trail consume them after the write commits.
type Event struct {
	ID               string    `json:"id"`
	MatchID          string    `json:"game_id"`
	Type             EventType `json:"type"`
	RoundNumber      int       `json:"round_number,omitempty"`
	ActorID          string    `json:"actor_id,omitempty"`
	ChallengerID     string    `json:"challenger_id"`
	OpponentID       string    `json:"opponent_id"`
	WinnerID         string    `json:"winner_id,omitempty"`
	LoserID          string    `json:"loser_id,omitempty"`
	ChallengerChoice Choice    `json:"challenger_choice,omitempty"`
	OpponentChoice   Choice    `json:"opponent_choice,omitempty"`
	ChallengerWins   int       `json:"challenger_wins"`
	OpponentWins     int       `json:"opponent_wins"`
	RequiredWins     int       `json:"required_wins"`
	Amount           int64     `json:"amount,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

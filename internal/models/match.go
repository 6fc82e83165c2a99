package models

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

type Choice string

const (
	ChoiceNone     Choice = ""
	ChoiceRock     Choice = "ROCK"
	ChoicePaper    Choice = "PAPER"
	ChoiceScissors Choice = "SCISSORS"
)

func (c Choice) Valid() bool {
	return c == ChoiceRock || c == ChoicePaper || c == ChoiceScissors
}

type Match struct {
	ID           string     `json:"game_id" db:"game_id"`
	ChallengerID string     `json:"challenger_id" db:"challenger_id"`
	OpponentID   string     `json:"opponent_id" db:"opponent_id"`
	BetAmount    int64      `json:"bet_amount" db:"bet_amount"`
	TotalRounds  int        `json:"total_rounds" db:"total_rounds"`
	RequiredWins int        `json:"required_wins" db:"required_wins"`
	Status       Status     `json:"status" db:"status"`
	WinnerID     string     `json:"winner_id,omitempty" db:"winner_id"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at" db:"expires_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Rounds       []Round    `json:"rounds"`
}

type Round struct {
	MatchID          string     `json:"game_id" db:"game_id"`
	Number           int        `json:"round_number" db:"round_number"`
	ChallengerChoice Choice     `json:"challenger_choice,omitempty" db:"challenger_choice"`
	OpponentChoice   Choice     `json:"opponent_choice,omitempty" db:"opponent_choice"`
	WinnerID         string     `json:"winner_id,omitempty" db:"winner_id"`
	Tie              bool       `json:"is_tie" db:"is_tie"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Resolved is true once both choices are in and the outcome is recorded.
func (r *Round) Resolved() bool {
	return r.Tie || r.WinnerID != ""
}

func (m *Match) IsParticipant(accountID string) bool {
	return accountID == m.ChallengerID || accountID == m.OpponentID
}

// OpenRound returns the round still waiting for at least one choice, or nil.
func (m *Match) OpenRound() *Round {
	for i := range m.Rounds {
		if !m.Rounds[i].Resolved() {
			return &m.Rounds[i]
		}
	}
	return nil
}

func (m *Match) LastRoundNumber() int {
	last := 0
	for _, r := range m.Rounds {
		if r.Number > last {
			last = r.Number
		}
	}
	return last
}

// Score counts decisive rounds won by each side. Ties count for nobody.
func (m *Match) Score() (challengerWins, opponentWins int) {
	for _, r := range m.Rounds {
		switch r.WinnerID {
		case "":
		case m.ChallengerID:
			challengerWins++
		case m.OpponentID:
			opponentWins++
		}
	}
	return challengerWins, opponentWins
}

// EffectiveStatus reports a PENDING match past its acceptance window as cancelled.
func (m *Match) EffectiveStatus(now time.Time) Status {
	if m.Status == StatusPending && now.After(m.ExpiresAt) {
		return StatusCancelled
	}
	return m.Status
}

func (m *Match) LoserID() string {
	switch m.WinnerID {
	case m.ChallengerID:
		return m.OpponentID
	case m.OpponentID:
		return m.ChallengerID
	}
	return ""
}

// Clone returns a deep copy so stores and caches never share round slices.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.FinishedAt != nil {
		t := *m.FinishedAt
		c.FinishedAt = &t
	}
	c.Rounds = make([]Round, len(m.Rounds))
	for i, r := range m.Rounds {
		if r.ResolvedAt != nil {
			t := *r.ResolvedAt
			r.ResolvedAt = &t
		}
		c.Rounds[i] = r
	}
	return &c
}

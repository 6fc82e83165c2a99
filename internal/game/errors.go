package game

import "errors"

// Kind groups domain errors by how a caller should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindStateConflict
	KindFunds
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindStateConflict:
		return "state_conflict"
	case KindFunds:
		return "funds"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a domain error with a stable code. Two errors match under
// errors.Is when their codes are equal.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Wrap attaches a cause to a copy of a sentinel domain error.
func Wrap(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Cause = cause
	return &e
}

// WithMeta returns a copy of e carrying an extra metadata entry.
func (e *Error) WithMeta(key, value string) *Error {
	c := *e
	c.Metadata = make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	c.Metadata[key] = value
	return &c
}

// MetaOf returns a metadata value of the first domain error in err's chain.
func MetaOf(err error, key string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata[key]
	}
	return ""
}

var (
	ErrSelfChallenge      = &Error{Kind: KindValidation, Code: "self_challenge", Message: "cannot challenge yourself"}
	ErrInvalidRoundCount  = &Error{Kind: KindValidation, Code: "invalid_round_count", Message: "total rounds must be odd and between 3 and 11"}
	ErrInvalidBet         = &Error{Kind: KindValidation, Code: "invalid_bet", Message: "bet amount must be positive"}
	ErrInvalidChoice      = &Error{Kind: KindValidation, Code: "invalid_choice", Message: "choice must be ROCK, PAPER or SCISSORS"}
	ErrMissingParticipant = &Error{Kind: KindValidation, Code: "missing_participant", Message: "challenger and opponent are required"}

	ErrNotOpponent    = &Error{Kind: KindAuthorization, Code: "not_opponent", Message: "only the challenged player can answer"}
	ErrNotParticipant = &Error{Kind: KindAuthorization, Code: "not_participant", Message: "actor does not take part in this match"}

	ErrNotPending    = &Error{Kind: KindStateConflict, Code: "not_pending", Message: "match was already answered"}
	ErrNotActive     = &Error{Kind: KindStateConflict, Code: "not_active", Message: "match is not active"}
	ErrExpired       = &Error{Kind: KindStateConflict, Code: "expired", Message: "challenge has expired"}
	ErrAlreadyChosen = &Error{Kind: KindStateConflict, Code: "already_chosen", Message: "choice already made for this round"}
	ErrRoundNotOpen  = &Error{Kind: KindStateConflict, Code: "round_not_open", Message: "round is not the open round"}
	ErrNoOpenRound   = &Error{Kind: KindStateConflict, Code: "no_open_round", Message: "no round is waiting for choices"}
	ErrNotExpired    = &Error{Kind: KindStateConflict, Code: "not_expired", Message: "challenge is still within its acceptance window"}
	ErrNotFinished   = &Error{Kind: KindStateConflict, Code: "not_finished", Message: "match is not finished"}

	ErrInsufficientFunds = &Error{Kind: KindFunds, Code: "insufficient_funds", Message: "insufficient balance for this bet"}

	ErrMatchNotFound   = &Error{Kind: KindNotFound, Code: "match_not_found", Message: "match not found"}
	ErrAccountNotFound = &Error{Kind: KindNotFound, Code: "account_not_found", Message: "account not found"}

	ErrConcurrentUpdate = &Error{Kind: KindTransient, Code: "concurrent_update", Message: "match changed concurrently, retries exhausted"}
)

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first domain error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

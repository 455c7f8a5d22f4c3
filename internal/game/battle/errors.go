package battle

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine matches exactly one of these
// through errors.Is.
var (
	// ErrGenerationFailure is returned when the encounter generator fails or
	// produces an unusable enemy. Fatal for initialization.
	ErrGenerationFailure = errors.New("encounter generation failed")
	// ErrSkillUnavailable is returned for a skill the actor lacks or that is on cooldown.
	ErrSkillUnavailable = errors.New("skill unavailable")
	// ErrInsufficientResource is returned when the actor cannot pay a skill's cost.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrItemUnavailable is returned for an item that is missing, unknown, or on cooldown.
	ErrItemUnavailable = errors.New("item unavailable")
	// ErrInvalidActionForState is returned when it is not the player's turn or the battle is over.
	ErrInvalidActionForState = errors.New("invalid action for state")
	// ErrRunawayBattle is returned when fast-forward exceeds its resolution bound.
	ErrRunawayBattle = errors.New("runaway battle")
)

// Error carries an error kind plus the offending skill or item ID.
type Error struct {
	Kind   error
	ID     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, id, detail string) *Error {
	return &Error{Kind: kind, ID: id, Detail: detail}
}

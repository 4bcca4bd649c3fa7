package game

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, caller-facing identifier of a rejected operation.
type ErrorCode string

const (
	CodeInvalidSeat               ErrorCode = "InvalidSeat"
	CodeSeatOccupied              ErrorCode = "SeatOccupied"
	CodeNoAvailableSeats          ErrorCode = "NoAvailableSeats"
	CodePlayerNotSeated           ErrorCode = "PlayerNotSeated"
	CodeNotEnoughPlayers          ErrorCode = "NotEnoughPlayers"
	CodeGameNotStarted            ErrorCode = "GameNotStarted"
	CodeHandAlreadyComplete       ErrorCode = "HandAlreadyComplete"
	CodeNotPlayersTurn            ErrorCode = "NotPlayersTurn"
	CodePlayerInactive            ErrorCode = "PlayerInactive"
	CodeBelowMinimumCall          ErrorCode = "BelowMinimumCall"
	CodeBelowMinimumRaise         ErrorCode = "BelowMinimumRaise"
	CodeInsufficientChips         ErrorCode = "InsufficientChips"
	CodeBettingRoundIncomplete    ErrorCode = "BettingRoundIncomplete"
	CodeNotEnoughPlayersForBlinds ErrorCode = "NotEnoughPlayersForBlinds"
	CodeInvalidAction             ErrorCode = "InvalidAction"
	CodeChipConservation          ErrorCode = "ChipConservationViolation"
)

// Error is a rejected engine operation. The table is left unmodified
// whenever an *Error is returned from an action.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrSeatOccupied)
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidSeat               = &Error{Code: CodeInvalidSeat}
	ErrSeatOccupied              = &Error{Code: CodeSeatOccupied}
	ErrNoAvailableSeats          = &Error{Code: CodeNoAvailableSeats}
	ErrPlayerNotSeated           = &Error{Code: CodePlayerNotSeated}
	ErrNotEnoughPlayers          = &Error{Code: CodeNotEnoughPlayers}
	ErrGameNotStarted            = &Error{Code: CodeGameNotStarted}
	ErrHandAlreadyComplete       = &Error{Code: CodeHandAlreadyComplete}
	ErrNotPlayersTurn            = &Error{Code: CodeNotPlayersTurn}
	ErrPlayerInactive            = &Error{Code: CodePlayerInactive}
	ErrBelowMinimumCall          = &Error{Code: CodeBelowMinimumCall}
	ErrBelowMinimumRaise         = &Error{Code: CodeBelowMinimumRaise}
	ErrInsufficientChips         = &Error{Code: CodeInsufficientChips}
	ErrBettingRoundIncomplete    = &Error{Code: CodeBettingRoundIncomplete}
	ErrNotEnoughPlayersForBlinds = &Error{Code: CodeNotEnoughPlayersForBlinds}
	ErrInvalidAction             = &Error{Code: CodeInvalidAction}
	ErrChipConservation          = &Error{Code: CodeChipConservation}
)

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not an engine error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

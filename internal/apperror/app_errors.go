package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange        = errors.New("coordinates out of range")
	ErrInvalidMove       = errors.New("invalid move")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrNotInProgress     = errors.New("game is not in progress")
	ErrSessionFull       = errors.New("session is full")
	ErrDuplicatePlayer   = errors.New("player already joined the session")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrDecode            = errors.New("malformed message")
	ErrPlayerNotFound    = errors.New("player not found in session")
	ErrNoJoinableSession = errors.New("no joinable sessions")
	ErrInvalidArgument   = errors.New("invalid argument")

	ErrCellOccupied = fmt.Errorf("%w: cell is already occupied", ErrInvalidMove)
	ErrEmptySource  = fmt.Errorf("%w: there is no piece at the source cell", ErrInvalidMove)
)

const CodeInternal = "INTERNAL"

// codes is ordered: more specific errors first.
var codes = []struct {
	err  error
	code string
}{
	{ErrOutOfRange, "OUT_OF_RANGE"},
	{ErrCellOccupied, "CELL_OCCUPIED"},
	{ErrEmptySource, "EMPTY_SOURCE"},
	{ErrInvalidMove, "INVALID_MOVE"},
	{ErrNotYourTurn, "NOT_YOUR_TURN"},
	{ErrNotInProgress, "NOT_IN_PROGRESS"},
	{ErrSessionFull, "SESSION_FULL"},
	{ErrDuplicatePlayer, "DUPLICATE_PLAYER"},
	{ErrSessionNotFound, "SESSION_NOT_FOUND"},
	{ErrInvalidTransition, "INVALID_TRANSITION"},
	{ErrDecode, "DECODE_ERROR"},
	{ErrPlayerNotFound, "PLAYER_NOT_FOUND"},
	{ErrNoJoinableSession, "NO_JOINABLE_SESSION"},
	{ErrInvalidArgument, "INVALID_ARGUMENT"},
}

// Code - returns the wire code for an application error, CodeInternal for anything else.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeInternal
}

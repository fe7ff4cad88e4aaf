// Package engine holds the turn and rule logic. Every function takes a session snapshot and
// returns a new one; the input is never modified, including on failure.
package engine

import (
	"fmt"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
)

const (
	ReasonWin       = "win condition met"
	ReasonDraw      = "draw: board is full"
	ReasonNoPlayers = "no connected players left"
	ReasonSpecial   = "special end condition"
)

// Outcome - how a finished session ended.
type Outcome struct {
	Winner    *entity.Player
	Reason    string
	Finished  bool
	Cancelled bool
}

// ActivePlayer - the player whose turn it is, if the session is running and someone is connected.
func ActivePlayer(session entity.GameSession) (entity.Player, bool) {
	idx, ok := activeIndex(session)
	if !ok {
		return entity.Player{}, false
	}
	return session.Players[idx], true
}

func IsPlayersTurn(session entity.GameSession, player entity.Player) bool {
	active, ok := ActivePlayer(session)
	return ok && active.ID == player.ID
}

// ApplyMove - validates the move for the session's variant, applies it to a fresh board,
// checks the end condition and advances the turn unless the game finished.
func ApplyMove(session entity.GameSession, player entity.Player, move entity.Move) (entity.GameSession, error) {
	if !session.IsInProgress() {
		return session, fmt.Errorf("%w: session %s is %s", apperror.ErrNotInProgress, session.ID, session.Status)
	}

	if !IsPlayersTurn(session, player) {
		return session, fmt.Errorf("%w: player %d", apperror.ErrNotYourTurn, player.ID)
	}

	if err := checkBounds(session.Board, move); err != nil {
		return session, err
	}

	r, err := ruleFor(session.Variant)
	if err != nil {
		return session, err
	}

	if err = r.validate(session.Board, move); err != nil {
		return session, err
	}

	board, err := execute(session.Board, move)
	if err != nil {
		return session, err
	}

	idx, _ := activeIndex(session)

	updated := session.Clone()
	updated.Board = board
	updated.CurrentPlayer = idx

	updated = CheckEndCondition(updated)
	if updated.IsInProgress() {
		updated.CurrentPlayer = NextPlayerIndex(updated)
	}

	return updated, nil
}

// CheckEndCondition - moves a running session to finished when its variant says so.
func CheckEndCondition(session entity.GameSession) entity.GameSession {
	if !session.IsInProgress() {
		return session
	}

	r, err := ruleFor(session.Variant)
	if err != nil || !r.ended(session.Board) {
		return session
	}

	finished, err := session.ChangeStatus(entity.StatusFinished)
	if err != nil {
		return session
	}

	return finished
}

// NextPlayerIndex - the next connected player after the current one, wrapping around.
// The current index is kept when nobody is connected.
func NextPlayerIndex(session entity.GameSession) int {
	count := len(session.Players)
	if count == 0 {
		return 0
	}

	next := (session.CurrentPlayer + 1) % count
	for range count {
		if session.Players[next].Connected {
			return next
		}
		next = (next + 1) % count
	}

	return session.CurrentPlayer
}

// Start - begins the game with the first connected player on turn.
func Start(session entity.GameSession) (entity.GameSession, error) {
	if !session.IsWaiting() {
		return session, fmt.Errorf("%w: session %s is %s", apperror.ErrInvalidTransition, session.ID, session.Status)
	}

	if len(session.Players) == 0 {
		return session, fmt.Errorf("%w: cannot start session %s without players", apperror.ErrInvalidTransition, session.ID)
	}

	started, err := session.ChangeStatus(entity.StatusInProgress)
	if err != nil {
		return session, err
	}

	started.CurrentPlayer = firstConnected(started)

	return started, nil
}

// NextRound - increments the round and hands the turn to the first connected player.
func NextRound(session entity.GameSession) (entity.GameSession, error) {
	if !session.IsInProgress() {
		return session, fmt.Errorf("%w: session %s is %s", apperror.ErrNotInProgress, session.ID, session.Status)
	}

	updated := session.Clone()
	updated.Round++
	updated.CurrentPlayer = firstConnected(updated)

	return updated, nil
}

// ResetBoard - empties the board and goes back to round one.
func ResetBoard(session entity.GameSession) (entity.GameSession, error) {
	if session.Status.IsTerminal() {
		return session, fmt.Errorf("%w: session %s is %s", apperror.ErrInvalidTransition, session.ID, session.Status)
	}

	updated := session.Clone()
	updated.Board.Reset()
	updated.Round = 1
	updated.CurrentPlayer = firstConnected(updated)

	return updated, nil
}

// Result - winner and reason of a finished session.
func Result(session entity.GameSession) Outcome {
	switch session.Status {
	case entity.StatusCancelled:
		return Outcome{Cancelled: true, Reason: ReasonSpecial}
	case entity.StatusFinished:
	default:
		return Outcome{}
	}

	outcome := Outcome{Finished: true}

	if r, err := ruleFor(session.Variant); err == nil {
		if winner, ok := r.winner(session); ok {
			outcome.Winner = &winner
		}
	}

	switch {
	case outcome.Winner != nil:
		outcome.Reason = ReasonWin
	case session.Board.IsFull():
		outcome.Reason = ReasonDraw
	case !session.HasConnectedPlayers():
		outcome.Reason = ReasonNoPlayers
	default:
		outcome.Reason = ReasonSpecial
	}

	return outcome
}

// activeIndex - the turn index resolved to a connected player. When the player at the
// index has disconnected the turn passes to the next connected one.
func activeIndex(session entity.GameSession) (int, bool) {
	if !session.IsInProgress() || !session.HasConnectedPlayers() {
		return 0, false
	}

	count := len(session.Players)
	if session.CurrentPlayer >= count {
		return 0, false
	}

	idx := session.CurrentPlayer
	for range count {
		if session.Players[idx].Connected {
			return idx, true
		}
		idx = (idx + 1) % count
	}

	return 0, false
}

func firstConnected(session entity.GameSession) int {
	for i, player := range session.Players {
		if player.Connected {
			return i
		}
	}
	return 0
}

func checkBounds(board *entity.Board, move entity.Move) error {
	if !move.IsPlacement() && !board.CoordinatesValid(move.FromRow, move.FromCol) {
		return fmt.Errorf("%w: source (%d, %d) outside board %dx%d",
			apperror.ErrOutOfRange, move.FromRow, move.FromCol, board.Rows(), board.Cols())
	}

	if !board.CoordinatesValid(move.ToRow, move.ToCol) {
		return fmt.Errorf("%w: destination (%d, %d) outside board %dx%d",
			apperror.ErrOutOfRange, move.ToRow, move.ToCol, board.Rows(), board.Cols())
	}

	return nil
}

// execute - applies the move on a copy of the board.
func execute(board *entity.Board, move entity.Move) (*entity.Board, error) {
	next := board.Clone()

	if move.IsPlacement() {
		if err := next.Place(move.ToRow, move.ToCol, move.Content); err != nil {
			return nil, fmt.Errorf("failed to place piece: %w", err)
		}
		return next, nil
	}

	source, err := board.Get(move.FromRow, move.FromCol)
	if err != nil {
		return nil, err
	}

	if err = next.Clear(move.FromRow, move.FromCol); err != nil {
		return nil, err
	}

	if err = next.Place(move.ToRow, move.ToCol, source.Content); err != nil {
		return nil, fmt.Errorf("failed to move piece: %w", err)
	}

	return next, nil
}

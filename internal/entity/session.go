package entity

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
)

type Status string

const (
	StatusWaitingPlayers Status = "ESPERANDO_JUGADORES"
	StatusInProgress     Status = "EN_CURSO"
	StatusPaused         Status = "PAUSADO"
	StatusFinished       Status = "FINALIZADO"
	StatusCancelled      Status = "CANCELADO"
)

var transitions = map[Status][]Status{
	StatusWaitingPlayers: {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusPaused, StatusFinished, StatusCancelled},
	StatusPaused:         {StatusInProgress, StatusCancelled},
}

func (that Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[that], next)
}

// IsTerminal - finished and cancelled sessions accept no further state change.
func (that Status) IsTerminal() bool {
	return that == StatusFinished || that == StatusCancelled
}

type Variant string

const (
	VariantGeneric  Variant = "GENERICO"
	VariantLine3    Variant = "TRES_EN_LINEA"
	VariantChess    Variant = "AJEDREZ"
	VariantCheckers Variant = "DAMAS"
)

var variantAliases = map[string]Variant{
	"GENERICO":      VariantGeneric,
	"GENERIC":       VariantGeneric,
	"TRES_EN_LINEA": VariantLine3,
	"LINE3":         VariantLine3,
	"AJEDREZ":       VariantChess,
	"CHESS":         VariantChess,
	"DAMAS":         VariantCheckers,
	"CHECKERS":      VariantCheckers,
}

// ParseVariant - accepts wire names and their english aliases, case-insensitive.
func ParseVariant(name string) (Variant, error) {
	variant, ok := variantAliases[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: unknown game variant %q", apperror.ErrInvalidArgument, name)
	}
	return variant, nil
}

const DefaultMaxPlayers = 4

// GameSession - one game. Values are snapshots: every transition returns a new session
// and leaves the receiver untouched.
type GameSession struct {
	ID            string   `json:"id"`
	Board         *Board   `json:"tablero"`
	Players       []Player `json:"jugadores"`
	Status        Status   `json:"estado"`
	CurrentPlayer int      `json:"jugadorActual"`
	CreatedAt     int64    `json:"fechaCreacion"`
	MaxPlayers    int      `json:"maxJugadores"`
	Round         int      `json:"rondaActual"`
	Variant       Variant  `json:"tipoJuego"`
}

func NewSession(id string, board *Board, maxPlayers int, variant Variant, createdAt time.Time) (GameSession, error) {
	session := GameSession{
		ID:         id,
		Board:      board,
		Players:    []Player{},
		Status:     StatusWaitingPlayers,
		CreatedAt:  createdAt.UnixMilli(),
		MaxPlayers: maxPlayers,
		Round:      1,
		Variant:    variant,
	}

	if err := session.Validate(); err != nil {
		return GameSession{}, err
	}

	return session, nil
}

func (that GameSession) Validate() error {
	switch {
	case strings.TrimSpace(that.ID) == "":
		return fmt.Errorf("%w: session id must not be blank", apperror.ErrInvalidArgument)
	case that.Board == nil:
		return fmt.Errorf("%w: session %s has no board", apperror.ErrInvalidArgument, that.ID)
	case that.MaxPlayers <= 0:
		return fmt.Errorf("%w: max players must be positive", apperror.ErrInvalidArgument)
	case len(that.Players) > that.MaxPlayers:
		return fmt.Errorf("%w: %d players exceed max %d", apperror.ErrInvalidArgument, len(that.Players), that.MaxPlayers)
	case that.Round < 1:
		return fmt.Errorf("%w: round must be positive", apperror.ErrInvalidArgument)
	case that.CurrentPlayer < 0:
		return fmt.Errorf("%w: current player index must not be negative", apperror.ErrInvalidArgument)
	}

	if _, err := ParseVariant(string(that.Variant)); err != nil {
		return err
	}

	return nil
}

func (that GameSession) IsWaiting() bool { return that.Status == StatusWaitingPlayers }

func (that GameSession) IsInProgress() bool { return that.Status == StatusInProgress }

func (that GameSession) IsFinished() bool { return that.Status == StatusFinished }

func (that GameSession) IsFull() bool {
	return len(that.Players) >= that.MaxPlayers
}

// IsJoinable - waiting for players and has spare capacity.
func (that GameSession) IsJoinable() bool {
	return that.IsWaiting() && !that.IsFull()
}

func (that GameSession) ConnectedPlayers() []Player {
	connected := make([]Player, 0, len(that.Players))
	for _, player := range that.Players {
		if player.Connected {
			connected = append(connected, player)
		}
	}
	return connected
}

func (that GameSession) HasConnectedPlayers() bool {
	return slices.ContainsFunc(that.Players, func(p Player) bool { return p.Connected })
}

// PlayerIndex - position of the player in the roster, -1 when absent.
func (that GameSession) PlayerIndex(playerID int64) int {
	return slices.IndexFunc(that.Players, func(p Player) bool { return p.ID == playerID })
}

func (that GameSession) Player(playerID int64) (Player, bool) {
	idx := that.PlayerIndex(playerID)
	if idx < 0 {
		return Player{}, false
	}
	return that.Players[idx], true
}

// AddPlayer - joins a player at the end of the turn order.
func (that GameSession) AddPlayer(player Player) (GameSession, error) {
	if err := player.Validate(); err != nil {
		return that, err
	}

	if that.IsFull() {
		return that, fmt.Errorf("%w: session %s has %d/%d players", apperror.ErrSessionFull, that.ID, len(that.Players), that.MaxPlayers)
	}

	if !that.IsWaiting() {
		return that, fmt.Errorf("%w: cannot join session %s in state %s", apperror.ErrInvalidTransition, that.ID, that.Status)
	}

	if that.PlayerIndex(player.ID) >= 0 {
		return that, fmt.Errorf("%w: player %d", apperror.ErrDuplicatePlayer, player.ID)
	}

	updated := that.Clone()
	updated.Players = append(updated.Players, player)

	return updated, nil
}

// RemovePlayer - drops the player and re-clamps the turn index.
func (that GameSession) RemovePlayer(playerID int64) (GameSession, error) {
	idx := that.PlayerIndex(playerID)
	if idx < 0 {
		return that, fmt.Errorf("%w: player %d in session %s", apperror.ErrPlayerNotFound, playerID, that.ID)
	}

	updated := that.Clone()
	updated.Players = slices.Delete(updated.Players, idx, idx+1)

	if updated.CurrentPlayer >= len(updated.Players) {
		updated.CurrentPlayer = 0
	}

	return updated, nil
}

// SetConnection - flips the connected flag of a player.
func (that GameSession) SetConnection(playerID int64, connected bool) (GameSession, error) {
	idx := that.PlayerIndex(playerID)
	if idx < 0 {
		return that, fmt.Errorf("%w: player %d in session %s", apperror.ErrPlayerNotFound, playerID, that.ID)
	}

	updated := that.Clone()
	updated.Players[idx] = updated.Players[idx].WithConnection(connected)

	return updated, nil
}

// ChangeStatus - applies a lifecycle transition.
func (that GameSession) ChangeStatus(next Status) (GameSession, error) {
	if !that.Status.CanTransitionTo(next) {
		return that, fmt.Errorf("%w: %s -> %s", apperror.ErrInvalidTransition, that.Status, next)
	}

	updated := that.Clone()
	updated.Status = next

	return updated, nil
}

// Clone - deep copy of board and roster.
func (that GameSession) Clone() GameSession {
	clone := that
	clone.Board = that.Board.Clone()
	clone.Players = slices.Clone(that.Players)
	if clone.Players == nil {
		clone.Players = []Player{}
	}
	return clone
}

// Package protocol defines the wire messages exchanged with clients: one JSON object per line,
// discriminated by the "tipo" field.
package protocol

import (
	"encoding/json"

	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
)

const (
	TagCreateSession    = "CrearPartida"
	TagJoinSession      = "UnirseAPartida"
	TagJoinAnySession   = "UnirseAPartidaAuto"
	TagMakeMove         = "RealizarMovimiento"
	TagStartSession     = "IniciarPartida"
	TagMovePiece        = "MoverPieza"
	TagLeaveSession     = "AbandonarPartida"
	TagChangeConnection = "CambiarConexion"
	TagPauseSession     = "PausarPartida"
	TagResumeSession    = "ReanudarPartida"
	TagCancelSession    = "CancelarPartida"
	TagGetSession       = "ObtenerPartida"
	TagResetBoard       = "ReiniciarTablero"
	TagNextRound        = "SiguienteRonda"
)

// Command - a client request.
type Command interface {
	Tag() string
}

// CreateSession - optional fields fall back to server defaults.
type CreateSession struct {
	Player     entity.Player `json:"jugador"`
	Variant    string        `json:"tipoJuego,omitempty"`
	Rows       int           `json:"filas,omitempty"`
	Cols       int           `json:"columnas,omitempty"`
	MaxPlayers int           `json:"maxJugadores,omitempty"`
}

type JoinSession struct {
	SessionID string        `json:"idPartida"`
	Player    entity.Player `json:"jugador"`
}

type JoinAnySession struct {
	Player entity.Player `json:"jugador"`
}

// MakeMove - places content on a cell.
type MakeMove struct {
	SessionID string `json:"idPartida"`
	PlayerID  int64  `json:"jugadorId"`
	Row       int    `json:"fila"`
	Col       int    `json:"columna"`
	Content   string `json:"contenido"`
}

type StartSession struct {
	SessionID string `json:"idPartida"`
	PlayerID  int64  `json:"jugadorId"`
}

// MovePiece - moves the piece at (FromRow, FromCol) to (Row, Col).
type MovePiece struct {
	SessionID string `json:"idPartida"`
	PlayerID  int64  `json:"jugadorId"`
	FromRow   int    `json:"filaOrigen"`
	FromCol   int    `json:"columnaOrigen"`
	Row       int    `json:"fila"`
	Col       int    `json:"columna"`
	Content   string `json:"contenido,omitempty"`
}

type LeaveSession struct {
	SessionID string `json:"idPartida"`
	PlayerID  int64  `json:"jugadorId"`
}

type ChangeConnection struct {
	SessionID string `json:"idPartida"`
	PlayerID  int64  `json:"jugadorId"`
	Connected bool   `json:"conectado"`
}

type PauseSession struct {
	SessionID string `json:"idPartida"`
}

type ResumeSession struct {
	SessionID string `json:"idPartida"`
}

type CancelSession struct {
	SessionID string `json:"idPartida"`
}

type GetSession struct {
	SessionID string `json:"idPartida"`
}

type ResetBoard struct {
	SessionID string `json:"idPartida"`
}

type NextRound struct {
	SessionID string `json:"idPartida"`
}

func (CreateSession) Tag() string    { return TagCreateSession }
func (JoinSession) Tag() string      { return TagJoinSession }
func (JoinAnySession) Tag() string   { return TagJoinAnySession }
func (MakeMove) Tag() string         { return TagMakeMove }
func (StartSession) Tag() string     { return TagStartSession }
func (MovePiece) Tag() string        { return TagMovePiece }
func (LeaveSession) Tag() string     { return TagLeaveSession }
func (ChangeConnection) Tag() string { return TagChangeConnection }
func (PauseSession) Tag() string     { return TagPauseSession }
func (ResumeSession) Tag() string    { return TagResumeSession }
func (CancelSession) Tag() string    { return TagCancelSession }
func (GetSession) Tag() string       { return TagGetSession }
func (ResetBoard) Tag() string       { return TagResetBoard }
func (NextRound) Tag() string        { return TagNextRound }

// commandDecoders - one constructor per tag, each decoding the whole line into its type.
var commandDecoders = map[string]func(data []byte) (Command, error){
	TagCreateSession:    decodeAs[CreateSession],
	TagJoinSession:      decodeAs[JoinSession],
	TagJoinAnySession:   decodeAs[JoinAnySession],
	TagMakeMove:         decodeAs[MakeMove],
	TagStartSession:     decodeAs[StartSession],
	TagMovePiece:        decodeAs[MovePiece],
	TagLeaveSession:     decodeAs[LeaveSession],
	TagChangeConnection: decodeAs[ChangeConnection],
	TagPauseSession:     decodeAs[PauseSession],
	TagResumeSession:    decodeAs[ResumeSession],
	TagCancelSession:    decodeAs[CancelSession],
	TagGetSession:       decodeAs[GetSession],
	TagResetBoard:       decodeAs[ResetBoard],
	TagNextRound:        decodeAs[NextRound],
}

func decodeAs[T Command](data []byte) (Command, error) {
	var cmd T
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err //nolint: wrapcheck // wrapped by DecodeCommand
	}
	return cmd, nil
}

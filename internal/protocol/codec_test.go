package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = entity.Player{ID: 1, Name: "Ana", Score: 3, Connected: true}

func TestDecodeCommand_WireForms(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{
			name: "create",
			line: `{"tipo":"CrearPartida","jugador":{"id":1,"nombre":"Ana","puntuacion":3,"conectado":true}}`,
			want: CreateSession{Player: ana},
		},
		{
			name: "create with options",
			line: `{"tipo":"CrearPartida","jugador":{"id":1,"nombre":"Ana","puntuacion":3},"tipoJuego":"DAMAS","filas":8,"columnas":8,"maxJugadores":2}`,
			want: CreateSession{Player: ana, Variant: "DAMAS", Rows: 8, Cols: 8, MaxPlayers: 2},
		},
		{
			name: "join",
			line: `{"tipo":"UnirseAPartida","idPartida":"PARTIDA-1234ABCD","jugador":{"id":1,"nombre":"Ana","puntuacion":3}}`,
			want: JoinSession{SessionID: "PARTIDA-1234ABCD", Player: ana},
		},
		{
			name: "join any",
			line: `{"tipo":"UnirseAPartidaAuto","jugador":{"id":1,"nombre":"Ana","puntuacion":3,"conectado":true}}`,
			want: JoinAnySession{Player: ana},
		},
		{
			name: "move",
			line: `{"tipo":"RealizarMovimiento","idPartida":"PARTIDA-1234ABCD","jugadorId":1,"fila":2,"columna":1,"contenido":"X"}`,
			want: MakeMove{SessionID: "PARTIDA-1234ABCD", PlayerID: 1, Row: 2, Col: 1, Content: "X"},
		},
		{
			name: "unknown fields are ignored",
			line: `{"tipo":"ObtenerPartida","idPartida":"PARTIDA-1234ABCD","cliente":"consola","version":2}`,
			want: GetSession{SessionID: "PARTIDA-1234ABCD"},
		},
		{
			name: "relocation",
			line: `{"tipo":"MoverPieza","idPartida":"P","jugadorId":2,"filaOrigen":0,"columnaOrigen":0,"fila":1,"columna":1}`,
			want: MovePiece{SessionID: "P", PlayerID: 2, FromRow: 0, FromCol: 0, Row: 1, Col: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.line))

			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestDecodeCommand_Failures(t *testing.T) {
	for name, line := range map[string]string{
		"not json":       `hola`,
		"array":          `[1,2]`,
		"missing tag":    `{"idPartida":"P"}`,
		"empty tag":      `{"tipo":""}`,
		"unknown tag":    `{"tipo":"Rendirse"}`,
		"wrong type":     `{"tipo":"RealizarMovimiento","fila":"dos"}`,
		"truncated line": `{"tipo":"CrearPartida","jugador":{"id":1`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(line))

			require.ErrorIs(t, err, apperror.ErrDecode)
			assert.Equal(t, "DECODE_ERROR", apperror.Code(err))
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	session, err := entity.NewSession("PARTIDA-1234ABCD", entity.MustNewBoard(3, 3), 2, entity.VariantLine3, time.UnixMilli(1700000000000))
	require.NoError(t, err)
	session, err = session.AddPlayer(ana)
	require.NoError(t, err)
	require.NoError(t, session.Board.Place(1, 1, "X"))

	commands := []Command{
		CreateSession{Player: ana},
		CreateSession{Player: ana, Variant: "AJEDREZ", Rows: 8, Cols: 8, MaxPlayers: 2},
		JoinSession{SessionID: "PARTIDA-1234ABCD", Player: ana},
		JoinAnySession{Player: ana.WithConnection(false)},
		MakeMove{SessionID: "PARTIDA-1234ABCD", PlayerID: 1, Row: 0, Col: 2, Content: "O"},
		StartSession{SessionID: "PARTIDA-1234ABCD", PlayerID: 1},
		MovePiece{SessionID: "PARTIDA-1234ABCD", PlayerID: 1, FromRow: 7, FromCol: 4, Row: 6, Col: 4, Content: "♚"},
		LeaveSession{SessionID: "PARTIDA-1234ABCD", PlayerID: 1},
		ChangeConnection{SessionID: "PARTIDA-1234ABCD", PlayerID: 1, Connected: true},
		PauseSession{SessionID: "PARTIDA-1234ABCD"},
		ResumeSession{SessionID: "PARTIDA-1234ABCD"},
		CancelSession{SessionID: "PARTIDA-1234ABCD"},
		GetSession{SessionID: "PARTIDA-1234ABCD"},
		ResetBoard{SessionID: "PARTIDA-1234ABCD"},
		NextRound{SessionID: "PARTIDA-1234ABCD"},
	}

	for _, cmd := range commands {
		t.Run(cmd.Tag(), func(t *testing.T) {
			data, err := Encode(cmd)
			require.NoError(t, err)

			decoded, err := DecodeCommand(data)

			require.NoError(t, err)
			assert.Equal(t, cmd, decoded)
		})
	}

	events := []Event{
		SessionUpdated{Session: session},
		Error{Message: "session not found", Code: "SESSION_NOT_FOUND"},
		Error{Message: "boom"},
	}

	for _, event := range events {
		t.Run(event.Tag(), func(t *testing.T) {
			data, err := Encode(event)
			require.NoError(t, err)

			decoded, err := DecodeEvent(data)

			require.NoError(t, err)
			assert.Equal(t, event, decoded)
		})
	}
}

func TestEncode_SessionUpdatedShape(t *testing.T) {
	session, err := entity.NewSession("PARTIDA-1234ABCD", entity.MustNewBoard(1, 2), 2, entity.VariantGeneric, time.UnixMilli(0))
	require.NoError(t, err)

	data, err := Encode(SessionUpdated{Session: session})
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Equal(t, "PartidaActualizada", wire["tipo"])
	game, ok := wire["juego"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"id", "tablero", "jugadores", "estado", "jugadorActual", "maxJugadores", "rondaActual", "tipoJuego"} {
		assert.Contains(t, game, key)
	}
	assert.Equal(t, "ESPERANDO_JUGADORES", game["estado"])
	assert.Equal(t, "GENERICO", game["tipoJuego"])
}

func TestErrorEvent(t *testing.T) {
	event := ErrorEvent(apperror.ErrSessionNotFound)

	assert.Equal(t, Error{Message: "session not found", Code: "SESSION_NOT_FOUND"}, event)
}

func TestReaderWriter(t *testing.T) {
	t.Run("Reads lines until EOF", func(t *testing.T) {
		// Given: a stream with a blank line and a malformed line in between
		input := strings.Join([]string{
			`{"tipo":"ObtenerPartida","idPartida":"A"}`,
			``,
			`{"tipo":`,
			`{"tipo":"PausarPartida","idPartida":"B"}`,
		}, "\n")
		reader := NewReader(strings.NewReader(input))

		// When/Then: the bad line fails on its own and reading continues
		cmd, err := reader.ReadCommand()
		require.NoError(t, err)
		assert.Equal(t, GetSession{SessionID: "A"}, cmd)

		_, err = reader.ReadCommand()
		require.ErrorIs(t, err, apperror.ErrDecode)

		cmd, err = reader.ReadCommand()
		require.NoError(t, err)
		assert.Equal(t, PauseSession{SessionID: "B"}, cmd)

		_, err = reader.ReadCommand()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("Oversized line is a decode error", func(t *testing.T) {
		reader := NewReader(strings.NewReader(strings.Repeat("a", MaxLineSize+1) + "\n"))

		_, err := reader.ReadCommand()

		require.ErrorIs(t, err, ErrLineTooLong)
		require.ErrorIs(t, err, apperror.ErrDecode)
		assert.Equal(t, "DECODE_ERROR", ErrorEvent(err).Code)
	})

	t.Run("Writes one object per line", func(t *testing.T) {
		var buf bytes.Buffer
		writer := NewWriter(&buf)

		require.NoError(t, writer.Write(Error{Message: "uno"}))
		require.NoError(t, writer.Write(Error{Message: "dos", Code: "INTERNAL"}))

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.JSONEq(t, `{"tipo":"Error","mensaje":"uno"}`, lines[0])
		assert.JSONEq(t, `{"tipo":"Error","mensaje":"dos","codigo":"INTERNAL"}`, lines[1])
	})
}

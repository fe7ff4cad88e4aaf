package engine

import "github.com/rocketscienceinc/boardgame-backend/internal/entity"

type Stats struct {
	TotalPlayers     int    `json:"jugadores_totales"`
	ConnectedPlayers int    `json:"jugadores_conectados"`
	OccupiedCells    int    `json:"celdas_ocupadas"`
	EmptyCells       int    `json:"celdas_disponibles"`
	CanContinue      bool   `json:"puede_continuar"`
	ActivePlayer     string `json:"turno_actual"`
	Round            int    `json:"ronda"`
}

// CanPlay - the session is running and somebody can still take a turn.
func CanPlay(session entity.GameSession) bool {
	return session.IsInProgress() && session.HasConnectedPlayers()
}

func Summarize(session entity.GameSession) Stats {
	stats := Stats{
		TotalPlayers:     len(session.Players),
		ConnectedPlayers: len(session.ConnectedPlayers()),
		OccupiedCells:    session.Board.OccupiedCount(),
		EmptyCells:       len(session.Board.EmptyCells()),
		CanContinue:      CanPlay(session),
		Round:            session.Round,
	}

	if active, ok := ActivePlayer(session); ok {
		stats.ActivePlayer = active.Name
	}

	return stats
}

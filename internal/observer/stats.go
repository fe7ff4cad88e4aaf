package observer

import (
	"context"
	"maps"
	"sync"
)

// Summary - counters gathered since start.
type Summary struct {
	SessionsCreated  int            `json:"partidas_creadas"`
	SessionsFinished int            `json:"partidas_finalizadas"`
	MovesApplied     int            `json:"movimientos"`
	MovesRejected    int            `json:"movimientos_rechazados"`
	MovesByPlayer    map[string]int `json:"movimientos_por_jugador"`
	WinsByPlayer     map[string]int `json:"victorias"`
}

// Stats - in-memory statistics collector.
type Stats struct {
	mu      sync.Mutex
	summary Summary
}

func NewStats() *Stats {
	return &Stats{
		summary: Summary{
			MovesByPlayer: map[string]int{},
			WinsByPlayer:  map[string]int{},
		},
	}
}

func (that *Stats) Observe(_ context.Context, n Notification) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch n.Kind {
	case KindSessionCreated:
		that.summary.SessionsCreated++
	case KindMoveApplied:
		that.summary.MovesApplied++
		if n.Player != nil {
			that.summary.MovesByPlayer[n.Player.Name]++
		}
	case KindMoveRejected:
		that.summary.MovesRejected++
	case KindSessionFinished:
		that.summary.SessionsFinished++
		if n.Winner != nil {
			that.summary.WinsByPlayer[n.Winner.Name]++
		}
	}

	return nil
}

func (that *Stats) Snapshot() Summary {
	that.mu.Lock()
	defer that.mu.Unlock()

	snapshot := that.summary
	snapshot.MovesByPlayer = maps.Clone(that.summary.MovesByPlayer)
	snapshot.WinsByPlayer = maps.Clone(that.summary.WinsByPlayer)

	return snapshot
}

package usecase

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/rocketscienceinc/boardgame-backend/internal/protocol"
)

type membership struct {
	sessionID string
	playerID  int64
}

// Connection - command handling bound to one client connection. It remembers which players
// the client brought into sessions so they can be marked offline when the client goes away.
type Connection struct {
	manager *SessionManager

	mu      sync.Mutex
	members map[membership]struct{}
}

func (that *SessionManager) Connect() *Connection {
	return &Connection{
		manager: that,
		members: make(map[membership]struct{}),
	}
}

func (that *Connection) Handle(ctx context.Context, cmd protocol.Command) protocol.Event {
	event := that.manager.Handle(ctx, cmd)

	updated, ok := event.(protocol.SessionUpdated)
	if !ok {
		return event
	}

	switch c := cmd.(type) {
	case protocol.CreateSession:
		that.track(updated.Session, c.Player.ID)
	case protocol.JoinSession:
		that.track(updated.Session, c.Player.ID)
	case protocol.JoinAnySession:
		that.track(updated.Session, c.Player.ID)
	case protocol.ChangeConnection:
		if c.Connected {
			that.track(updated.Session, c.PlayerID)
		} else {
			that.forget(c.SessionID, c.PlayerID)
		}
	case protocol.LeaveSession:
		that.forget(c.SessionID, c.PlayerID)
	}

	return event
}

// Close - marks every tracked player as disconnected.
func (that *Connection) Close(ctx context.Context) {
	that.mu.Lock()
	members := that.members
	that.members = make(map[membership]struct{})
	that.mu.Unlock()

	for m := range members {
		that.manager.Disconnect(ctx, m.sessionID, m.playerID)
	}
}

func (that *Connection) track(session entity.GameSession, playerID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.members[membership{sessionID: session.ID, playerID: playerID}] = struct{}{}
}

func (that *Connection) forget(sessionID string, playerID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.members, membership{sessionID: sessionID, playerID: playerID})
}

package observer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
)

type Kind string

const (
	KindSessionCreated    Kind = "SESSION_CREATED"
	KindPlayerJoined      Kind = "PLAYER_JOINED"
	KindPlayerRemoved     Kind = "PLAYER_REMOVED"
	KindMoveApplied       Kind = "MOVE_APPLIED"
	KindMoveRejected      Kind = "MOVE_REJECTED"
	KindTurnChanged       Kind = "TURN_CHANGED"
	KindStatusChanged     Kind = "STATUS_CHANGED"
	KindSessionFinished   Kind = "SESSION_FINISHED"
	KindConnectionChanged Kind = "CONNECTION_CHANGED"
	KindRoundStarted      Kind = "ROUND_STARTED"
	KindPaused            Kind = "PAUSED"
)

// Notification - something that happened to a session. Session is the state after the change.
type Notification struct {
	Kind    Kind
	Session entity.GameSession
	Player  *entity.Player
	Move    *entity.Move
	Err     error
	Winner  *entity.Player
	Reason  string
	At      time.Time
}

// Observer - callback run after a session change. Returned errors are logged and dropped.
type Observer func(ctx context.Context, n Notification) error

// Dispatcher - fans notifications out to observers in registration order.
type Dispatcher struct {
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time
}

func NewDispatcher(logger *slog.Logger, observers ...Observer) *Dispatcher {
	return &Dispatcher{
		logger:    logger.With("component", "observer"),
		observers: observers,
		now:       time.Now,
	}
}

// Notify - runs every observer. A failing or panicking observer does not stop the rest.
func (that *Dispatcher) Notify(ctx context.Context, n Notification) {
	if that == nil {
		return
	}

	if n.At.IsZero() {
		n.At = that.now()
	}

	for i, observe := range that.observers {
		if err := that.run(ctx, observe, n); err != nil {
			that.logger.Warn("observer failed",
				"index", i, "kind", n.Kind, "session", n.Session.ID, "error", err)
		}
	}
}

func (that *Dispatcher) run(ctx context.Context, observe Observer, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()

	return observe(ctx, n)
}

// Logging - writes every notification to the logger.
func Logging(logger *slog.Logger) Observer {
	log := logger.With("component", "session-events")

	return func(ctx context.Context, n Notification) error {
		attrs := []any{
			"kind", n.Kind,
			"session", n.Session.ID,
			"status", n.Session.Status,
			"round", n.Session.Round,
		}

		if n.Player != nil {
			attrs = append(attrs, "player", n.Player.Name)
		}
		if n.Move != nil {
			attrs = append(attrs, "move", n.Move.String())
		}
		if n.Winner != nil {
			attrs = append(attrs, "winner", n.Winner.Name)
		}
		if n.Reason != "" {
			attrs = append(attrs, "reason", n.Reason)
		}

		if n.Err != nil {
			log.WarnContext(ctx, "session event", append(attrs, "error", n.Err)...)
			return nil
		}

		log.InfoContext(ctx, "session event", attrs...)

		return nil
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/engine"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/rocketscienceinc/boardgame-backend/internal/observer"
	"github.com/rocketscienceinc/boardgame-backend/internal/protocol"
	"github.com/rocketscienceinc/boardgame-backend/internal/registry"
)

type sessionStore interface {
	Create(player entity.Player, settings registry.Settings, onCommit ...registry.Commit) (entity.GameSession, error)
	Get(id string) (entity.GameSession, error)
	Mutate(id string, fn registry.Mutation, onCommit ...registry.Commit) (entity.GameSession, error)
	MutateJoinable(fn registry.Mutation, onCommit ...registry.Commit) (entity.GameSession, error)
	List() []entity.GameSession
}

type notifier interface {
	Notify(ctx context.Context, n observer.Notification)
}

// SessionManager - turns commands into registry mutations driven by the engine.
type SessionManager struct {
	logger    *slog.Logger
	sessions  sessionStore
	notifier  notifier
	autoStart bool
}

func NewSessionManager(logger *slog.Logger, sessions sessionStore, notifier notifier, autoStart bool) *SessionManager {
	return &SessionManager{
		logger:    logger.With("component", "session-manager"),
		sessions:  sessions,
		notifier:  notifier,
		autoStart: autoStart,
	}
}

// Handle - processes one command. Failures come back as an Error event, never as a panic
// or a changed session.
func (that *SessionManager) Handle(ctx context.Context, cmd protocol.Command) protocol.Event {
	log := that.logger.With("method", "Handle")

	if cmd == nil {
		return protocol.ErrorEvent(fmt.Errorf("%w: empty command", apperror.ErrDecode))
	}

	session, err := that.dispatch(ctx, cmd)
	if err != nil {
		log.Error("command failed", "tipo", cmd.Tag(), "error", err)
		return protocol.ErrorEvent(err)
	}

	log.Debug("command handled", "tipo", cmd.Tag(), "session", session.ID, "status", session.Status)

	return protocol.SessionUpdated{Session: session}
}

func (that *SessionManager) dispatch(ctx context.Context, cmd protocol.Command) (entity.GameSession, error) {
	switch c := cmd.(type) {
	case protocol.CreateSession:
		return that.CreateSession(ctx, c)
	case protocol.JoinSession:
		return that.JoinSession(ctx, c.SessionID, c.Player)
	case protocol.JoinAnySession:
		return that.JoinAnySession(ctx, c.Player)
	case protocol.MakeMove:
		return that.MakeMove(ctx, c)
	case protocol.MovePiece:
		return that.MovePiece(ctx, c)
	case protocol.StartSession:
		return that.StartSession(ctx, c.SessionID, c.PlayerID)
	case protocol.LeaveSession:
		return that.LeaveSession(ctx, c.SessionID, c.PlayerID)
	case protocol.ChangeConnection:
		return that.ChangeConnection(ctx, c.SessionID, c.PlayerID, c.Connected)
	case protocol.PauseSession:
		return that.changeStatus(ctx, c.SessionID, entity.StatusPaused)
	case protocol.ResumeSession:
		return that.changeStatus(ctx, c.SessionID, entity.StatusInProgress)
	case protocol.CancelSession:
		return that.changeStatus(ctx, c.SessionID, entity.StatusCancelled)
	case protocol.GetSession:
		return that.Session(c.SessionID)
	case protocol.ResetBoard:
		return that.ResetBoard(ctx, c.SessionID)
	case protocol.NextRound:
		return that.NextRound(ctx, c.SessionID)
	default:
		return entity.GameSession{}, fmt.Errorf("%w: unsupported command %q", apperror.ErrDecode, cmd.Tag())
	}
}

func (that *SessionManager) CreateSession(ctx context.Context, cmd protocol.CreateSession) (entity.GameSession, error) {
	settings := registry.Settings{
		Rows:       cmd.Rows,
		Cols:       cmd.Cols,
		MaxPlayers: cmd.MaxPlayers,
	}

	if cmd.Variant != "" {
		variant, err := entity.ParseVariant(cmd.Variant)
		if err != nil {
			return entity.GameSession{}, err
		}
		settings.Variant = variant
	}

	session, err := that.sessions.Create(cmd.Player, settings, func(session entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindSessionCreated, Session: session, Player: &cmd.Player})
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to create session: %w", err)
	}

	if !that.autoStart || !session.IsFull() {
		return session, nil
	}

	// a single-seat session is full as soon as it exists
	startedNow := false
	started, err := that.sessions.Mutate(session.ID, func(current entity.GameSession) (entity.GameSession, error) {
		if !current.IsWaiting() || !current.IsFull() {
			return current, nil
		}
		startedNow = true
		return engine.Start(current)
	}, func(started entity.GameSession) {
		if startedNow {
			that.notifyStarted(ctx, started)
		}
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to start session: %w", err)
	}

	return started, nil
}

func (that *SessionManager) JoinSession(ctx context.Context, sessionID string, player entity.Player) (entity.GameSession, error) {
	session, err := that.sessions.Mutate(sessionID, that.join(player), that.joined(ctx, player))
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to join session: %w", err)
	}

	return session, nil
}

// JoinAnySession - joins the oldest session still waiting for players.
func (that *SessionManager) JoinAnySession(ctx context.Context, player entity.Player) (entity.GameSession, error) {
	session, err := that.sessions.MutateJoinable(that.join(player), that.joined(ctx, player))
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to join any session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) join(player entity.Player) registry.Mutation {
	return func(session entity.GameSession) (entity.GameSession, error) {
		joined, err := session.AddPlayer(player)
		if err != nil {
			return session, err
		}

		if that.autoStart && joined.IsFull() {
			return engine.Start(joined)
		}

		return joined, nil
	}
}

func (that *SessionManager) MakeMove(ctx context.Context, cmd protocol.MakeMove) (entity.GameSession, error) {
	return that.move(ctx, cmd.SessionID, cmd.PlayerID, func() (entity.Move, error) {
		return entity.Placement(cmd.Row, cmd.Col, cmd.Content)
	})
}

func (that *SessionManager) MovePiece(ctx context.Context, cmd protocol.MovePiece) (entity.GameSession, error) {
	return that.move(ctx, cmd.SessionID, cmd.PlayerID, func() (entity.Move, error) {
		return entity.Relocate(cmd.FromRow, cmd.FromCol, cmd.Row, cmd.Col, cmd.Content)
	})
}

func (that *SessionManager) move(
	ctx context.Context, sessionID string, playerID int64, build func() (entity.Move, error),
) (entity.GameSession, error) {
	var (
		before    entity.GameSession
		player    entity.Player
		move      entity.Move
		attempted bool
	)

	updated, err := that.sessions.Mutate(sessionID, func(session entity.GameSession) (entity.GameSession, error) {
		before = session

		var ok bool
		if player, ok = session.Player(playerID); !ok {
			return session, fmt.Errorf("%w: player %d in session %s", apperror.ErrPlayerNotFound, playerID, sessionID)
		}

		var err error
		if move, err = build(); err != nil {
			return session, err
		}

		attempted = true

		return engine.ApplyMove(session, player, move)
	}, func(updated entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindMoveApplied, Session: updated, Player: &player, Move: &move})

		switch {
		case updated.IsFinished():
			that.notifyFinished(ctx, updated)
		case updated.CurrentPlayer != before.CurrentPlayer:
			that.notifyTurn(ctx, updated)
		}
	})
	if err != nil {
		if attempted {
			that.notify(ctx, observer.Notification{
				Kind: observer.KindMoveRejected, Session: before, Player: &player, Move: &move, Err: err,
			})
		}
		return entity.GameSession{}, fmt.Errorf("failed to apply move: %w", err)
	}

	return updated, nil
}

// StartSession - explicit start requested by a player of the session.
func (that *SessionManager) StartSession(ctx context.Context, sessionID string, playerID int64) (entity.GameSession, error) {
	session, err := that.sessions.Mutate(sessionID, func(session entity.GameSession) (entity.GameSession, error) {
		if _, ok := session.Player(playerID); !ok {
			return session, fmt.Errorf("%w: player %d in session %s", apperror.ErrPlayerNotFound, playerID, sessionID)
		}
		return engine.Start(session)
	}, func(session entity.GameSession) {
		that.notifyStarted(ctx, session)
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to start session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) LeaveSession(ctx context.Context, sessionID string, playerID int64) (entity.GameSession, error) {
	var removed entity.Player

	session, err := that.sessions.Mutate(sessionID, func(session entity.GameSession) (entity.GameSession, error) {
		removed, _ = session.Player(playerID)
		return session.RemovePlayer(playerID)
	}, func(session entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindPlayerRemoved, Session: session, Player: &removed})
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to leave session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) ChangeConnection(
	ctx context.Context, sessionID string, playerID int64, connected bool,
) (entity.GameSession, error) {
	session, err := that.sessions.Mutate(sessionID, func(session entity.GameSession) (entity.GameSession, error) {
		return session.SetConnection(playerID, connected)
	}, func(session entity.GameSession) {
		player, _ := session.Player(playerID)
		that.notify(ctx, observer.Notification{Kind: observer.KindConnectionChanged, Session: session, Player: &player})
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to change connection: %w", err)
	}

	return session, nil
}

func (that *SessionManager) changeStatus(ctx context.Context, sessionID string, next entity.Status) (entity.GameSession, error) {
	session, err := that.sessions.Mutate(sessionID, func(session entity.GameSession) (entity.GameSession, error) {
		return session.ChangeStatus(next)
	}, func(session entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindStatusChanged, Session: session})

		switch next {
		case entity.StatusPaused:
			that.notify(ctx, observer.Notification{Kind: observer.KindPaused, Session: session})
		case entity.StatusCancelled:
			that.notifyFinished(ctx, session)
		}
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to change status: %w", err)
	}

	return session, nil
}

func (that *SessionManager) ResetBoard(ctx context.Context, sessionID string) (entity.GameSession, error) {
	session, err := that.sessions.Mutate(sessionID, engine.ResetBoard, func(session entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindRoundStarted, Session: session})
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to reset board: %w", err)
	}

	return session, nil
}

func (that *SessionManager) NextRound(ctx context.Context, sessionID string) (entity.GameSession, error) {
	session, err := that.sessions.Mutate(sessionID, engine.NextRound, func(session entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindRoundStarted, Session: session})
		that.notifyTurn(ctx, session)
	})
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to start next round: %w", err)
	}

	return session, nil
}

func (that *SessionManager) Session(sessionID string) (entity.GameSession, error) {
	session, err := that.sessions.Get(sessionID)
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) Sessions() []entity.GameSession {
	return that.sessions.List()
}

// Disconnect - marks the player offline, used when a client connection drops.
func (that *SessionManager) Disconnect(ctx context.Context, sessionID string, playerID int64) {
	log := that.logger.With("method", "Disconnect")

	if _, err := that.ChangeConnection(ctx, sessionID, playerID, false); err != nil {
		log.Warn("failed to mark player disconnected", "session", sessionID, "player", playerID, "error", err)
	}
}

// joined - commit hook for a join; a join that filled the session also reports the start.
func (that *SessionManager) joined(ctx context.Context, player entity.Player) registry.Commit {
	return func(session entity.GameSession) {
		that.notify(ctx, observer.Notification{Kind: observer.KindPlayerJoined, Session: session, Player: &player})

		if session.IsInProgress() {
			that.notifyStarted(ctx, session)
		}
	}
}

func (that *SessionManager) notifyStarted(ctx context.Context, session entity.GameSession) {
	that.notify(ctx, observer.Notification{Kind: observer.KindStatusChanged, Session: session})
	that.notifyTurn(ctx, session)
}

func (that *SessionManager) notifyTurn(ctx context.Context, session entity.GameSession) {
	n := observer.Notification{Kind: observer.KindTurnChanged, Session: session}
	if active, ok := engine.ActivePlayer(session); ok {
		n.Player = &active
	}

	that.notify(ctx, n)
}

func (that *SessionManager) notifyFinished(ctx context.Context, session entity.GameSession) {
	outcome := engine.Result(session)

	that.notify(ctx, observer.Notification{
		Kind:    observer.KindSessionFinished,
		Session: session,
		Winner:  outcome.Winner,
		Reason:  outcome.Reason,
	})
}

func (that *SessionManager) notify(ctx context.Context, n observer.Notification) {
	if that.notifier == nil {
		return
	}

	that.notifier.Notify(ctx, n)
}

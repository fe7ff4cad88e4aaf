package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/engine"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/rocketscienceinc/boardgame-backend/internal/observer"
	"github.com/rocketscienceinc/boardgame-backend/internal/protocol"
	"github.com/rocketscienceinc/boardgame-backend/internal/repository"
)

const defaultLeaderboardLimit = 10

var errLeaderboardDisabled = errors.New("leaderboard requires redis")

type sessionReader interface {
	Sessions() []entity.GameSession
	Session(id string) (entity.GameSession, error)
}

type statsReader interface {
	Snapshot() observer.Summary
}

// LeaderboardReader - top players by wins.
type LeaderboardReader interface {
	Top(ctx context.Context, limit int64) ([]repository.Entry, error)
}

type handlers struct {
	logger      *slog.Logger
	sessions    sessionReader
	stats       statsReader
	leaderboard LeaderboardReader
}

// sessionView - a session with its derived state.
type sessionView struct {
	entity.GameSession
	Stats   engine.Stats `json:"estadisticas"`
	Render  string       `json:"render,omitempty"`
	Winner  *string      `json:"ganador,omitempty"`
	Outcome string       `json:"motivo,omitempty"`
}

func newSessionView(session entity.GameSession, render bool) sessionView {
	view := sessionView{
		GameSession: session,
		Stats:       engine.Summarize(session),
	}

	if render {
		view.Render = session.Board.String()
	}

	if outcome := engine.Result(session); outcome.Finished || outcome.Cancelled {
		view.Outcome = outcome.Reason
		if outcome.Winner != nil {
			view.Winner = &outcome.Winner.Name
		}
	}

	return view
}

func (that *handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("estado")

	sessions := that.sessions.Sessions()
	views := make([]sessionView, 0, len(sessions))

	for _, session := range sessions {
		if status != "" && string(session.Status) != status {
			continue
		}
		views = append(views, newSessionView(session, false))
	}

	that.writeJSON(w, http.StatusOK, views)
}

func (that *handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := that.sessions.Session(chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, newSessionView(session, true))
}

func (that *handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.stats.Snapshot())
}

func (that *handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if that.leaderboard == nil {
		that.writeJSON(w, http.StatusServiceUnavailable, protocol.Error{Message: errLeaderboardDisabled.Error()})
		return
	}

	limit := int64(defaultLeaderboardLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			that.writeError(w, apperror.ErrInvalidArgument)
			return
		}
		limit = parsed
	}

	entries, err := that.leaderboard.Top(r.Context(), limit)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, entries)
}

func (that *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidArgument):
		status = http.StatusBadRequest
	default:
		that.logger.Error("request failed", "error", err)
	}

	that.writeJSON(w, status, protocol.ErrorEvent(err))
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

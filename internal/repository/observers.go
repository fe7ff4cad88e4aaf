package repository

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/boardgame-backend/internal/observer"
)

// SnapshotObserver - mirrors every changed session into the repository.
func SnapshotObserver(repo SessionRepository) observer.Observer {
	return func(ctx context.Context, n observer.Notification) error {
		if n.Kind == observer.KindMoveRejected || n.Session.ID == "" {
			return nil
		}

		if err := repo.Save(ctx, n.Session); err != nil {
			return fmt.Errorf("failed to mirror session %s: %w", n.Session.ID, err)
		}

		return nil
	}
}

// LeaderboardObserver - credits the winner of every finished session.
func LeaderboardObserver(board Leaderboard) observer.Observer {
	return func(ctx context.Context, n observer.Notification) error {
		if n.Kind != observer.KindSessionFinished || n.Winner == nil {
			return nil
		}

		if err := board.RecordWin(ctx, n.Winner.Name); err != nil {
			return fmt.Errorf("failed to credit %s: %w", n.Winner.Name, err)
		}

		return nil
	}
}

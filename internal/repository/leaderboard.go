package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultLeaderboardKey = "leaderboard:wins"

// Entry - one leaderboard row.
type Entry struct {
	Name string `json:"nombre"`
	Wins int64  `json:"victorias"`
}

type Leaderboard interface {
	RecordWin(ctx context.Context, playerName string) error
	Top(ctx context.Context, limit int64) ([]Entry, error)
}

// dbLeaderboard - wins per player name in a sorted set.
type dbLeaderboard struct {
	client *redis.Client
	key    string
}

func NewLeaderboard(client *redis.Client, key string) Leaderboard {
	if key == "" {
		key = DefaultLeaderboardKey
	}

	return &dbLeaderboard{
		client: client,
		key:    key,
	}
}

func (that *dbLeaderboard) RecordWin(ctx context.Context, playerName string) error {
	if err := that.client.ZIncrBy(ctx, that.key, 1, playerName).Err(); err != nil {
		return fmt.Errorf("failed to record win: %w", err)
	}

	return nil
}

// Top - best players first. A non-positive limit returns everybody.
func (that *dbLeaderboard) Top(ctx context.Context, limit int64) ([]Entry, error) {
	stop := limit - 1
	if limit <= 0 {
		stop = -1
	}

	scores, err := that.client.ZRevRangeWithScores(ctx, that.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(scores))
	for _, z := range scores {
		name, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected leaderboard member %T", z.Member)
		}
		entries = append(entries, Entry{Name: name, Wins: int64(z.Score)})
	}

	return entries, nil
}

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/boardgame-backend/testing/suite"
)

func TestLeaderboard(t *testing.T) {
	t.Run("Ranks players by wins", func(t *testing.T) {
		ctx, st := suite.New(t)

		board := NewLeaderboard(st.Storage, "")

		// Given: Ana wins three times, Carlos once and Luis twice
		for _, name := range []string{"Ana", "Carlos", "Ana", "Luis", "Ana", "Luis"} {
			require.NoError(t, board.RecordWin(ctx, name))
		}

		// When: reading the top two
		top, err := board.Top(ctx, 2)

		// Then: Ana leads and Luis follows
		require.NoError(t, err)
		assert.Equal(t, []Entry{{Name: "Ana", Wins: 3}, {Name: "Luis", Wins: 2}}, top)
	})

	t.Run("Non-positive limit returns everyone", func(t *testing.T) {
		ctx, st := suite.New(t)

		board := NewLeaderboard(st.Storage, "test:wins")
		require.NoError(t, board.RecordWin(ctx, "Ana"))
		require.NoError(t, board.RecordWin(ctx, "Carlos"))

		top, err := board.Top(ctx, 0)

		require.NoError(t, err)
		assert.Len(t, top, 2)

		exists, err := st.Storage.Exists(ctx, "test:wins").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})

	t.Run("Empty leaderboard", func(t *testing.T) {
		ctx, st := suite.New(t)

		top, err := NewLeaderboard(st.Storage, "").Top(ctx, 10)

		require.NoError(t, err)
		assert.Empty(t, top)
	})
}

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/rocketscienceinc/boardgame-backend/testing/suite"
)

func newSession(t *testing.T, id string) entity.GameSession {
	t.Helper()

	session, err := entity.NewSession(id, entity.MustNewBoard(3, 3), 2, entity.VariantLine3, time.UnixMilli(1700000000000))
	require.NoError(t, err)

	session, err = session.AddPlayer(entity.Player{ID: 1, Name: "Ana", Connected: true})
	require.NoError(t, err)
	require.NoError(t, session.Board.Place(1, 1, "X"))

	return session
}

func TestSessionRepository_Save(t *testing.T) {
	ctx, st := suite.New(t)

	sessionRepo := NewSessionRepository(st.Storage, time.Hour)

	// Given: a session with one move on the board
	session := newSession(t, "PARTIDA-AAAA1111")

	// When: Save is called
	err := sessionRepo.Save(ctx, session)

	// Then: it is stored with the configured expiry
	require.NoError(t, err)

	ttl, err := st.Storage.TTL(ctx, "session:PARTIDA-AAAA1111").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestSessionRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage, 0)

		// Given: a stored session
		session := newSession(t, "PARTIDA-BBBB2222")
		require.NoError(t, sessionRepo.Save(ctx, session))

		// When: GetByID is called with its id
		stored, err := sessionRepo.GetByID(ctx, session.ID)

		// Then: the snapshot matches what was saved
		require.NoError(t, err)
		assert.Equal(t, session, stored)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage, 0)

		// When: GetByID is called with an unknown id
		stored, err := sessionRepo.GetByID(ctx, "PARTIDA-MISSING0")

		// Then: ErrSessionNotFound is returned
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.Empty(t, stored.ID)
	})
}

func TestSessionRepository_DeleteByID(t *testing.T) {
	t.Run("DeleteByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage, 0)

		// Given: a stored session
		session := newSession(t, "PARTIDA-CCCC3333")
		require.NoError(t, sessionRepo.Save(ctx, session))

		// When: DeleteByID is called
		err := sessionRepo.DeleteByID(ctx, session.ID)

		// Then: the snapshot is gone
		require.NoError(t, err)

		_, err = sessionRepo.GetByID(ctx, session.ID)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("DeleteByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage, 0)

		// When: DeleteByID is called with an unknown id
		err := sessionRepo.DeleteByID(ctx, "PARTIDA-MISSING0")

		// Then: ErrSessionNotFound is returned
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

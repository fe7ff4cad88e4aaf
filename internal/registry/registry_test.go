package registry

import (
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ana    = entity.Player{ID: 1, Name: "Ana", Connected: true}
	carlos = entity.Player{ID: 2, Name: "Carlos", Connected: true}
	luis   = entity.Player{ID: 3, Name: "Luis", Connected: true}
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := New(Settings{})
	t.Cleanup(reg.Close)

	return reg
}

func TestRegistry_Create(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		reg := newRegistry(t)

		// When: creating a session without settings
		session, err := reg.Create(ana, Settings{})

		// Then: a 3x3 waiting line3 session for two with Ana inside
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^PARTIDA-[A-Z0-9]{8}$`), session.ID)
		assert.Equal(t, entity.StatusWaitingPlayers, session.Status)
		assert.Equal(t, entity.VariantLine3, session.Variant)
		assert.Equal(t, 2, session.MaxPlayers)
		assert.Equal(t, 3, session.Board.Rows())
		assert.Equal(t, 3, session.Board.Cols())
		assert.Equal(t, []entity.Player{ana}, session.Players)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("Explicit settings", func(t *testing.T) {
		reg := newRegistry(t)

		session, err := reg.Create(ana, Settings{Rows: 8, Cols: 8, MaxPlayers: 4, Variant: entity.VariantCheckers})

		require.NoError(t, err)
		assert.Equal(t, entity.VariantCheckers, session.Variant)
		assert.Equal(t, 4, session.MaxPlayers)
		assert.Equal(t, 8, session.Board.Rows())
	})

	t.Run("Unknown variant", func(t *testing.T) {
		reg := newRegistry(t)

		_, err := reg.Create(ana, Settings{Variant: "GO"})

		require.ErrorIs(t, err, apperror.ErrInvalidArgument)
		assert.Zero(t, reg.Len())
	})

	t.Run("Id collisions are retried", func(t *testing.T) {
		reg := newRegistry(t)
		ids := []string{"PARTIDA-AAAAAAAA", "PARTIDA-AAAAAAAA", "PARTIDA-BBBBBBBB"}
		reg.newID = func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}

		first, err := reg.Create(ana, Settings{})
		require.NoError(t, err)
		second, err := reg.Create(carlos, Settings{})
		require.NoError(t, err)

		assert.Equal(t, "PARTIDA-AAAAAAAA", first.ID)
		assert.Equal(t, "PARTIDA-BBBBBBBB", second.ID)
	})
}

func TestRegistry_Join(t *testing.T) {
	t.Run("Unknown session", func(t *testing.T) {
		reg := newRegistry(t)

		_, err := reg.Join("PARTIDA-NOPE0000", carlos)

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Joins in order", func(t *testing.T) {
		reg := newRegistry(t)
		created, err := reg.Create(ana, Settings{MaxPlayers: 3})
		require.NoError(t, err)

		_, err = reg.Join(created.ID, carlos)
		require.NoError(t, err)
		joined, err := reg.Join(created.ID, luis)
		require.NoError(t, err)

		assert.Equal(t, []entity.Player{ana, carlos, luis}, joined.Players)
	})

	t.Run("Full and duplicate", func(t *testing.T) {
		reg := newRegistry(t)
		created, err := reg.Create(ana, Settings{})
		require.NoError(t, err)

		_, err = reg.Join(created.ID, ana)
		require.ErrorIs(t, err, apperror.ErrDuplicatePlayer)

		_, err = reg.Join(created.ID, carlos)
		require.NoError(t, err)

		_, err = reg.Join(created.ID, luis)
		require.ErrorIs(t, err, apperror.ErrSessionFull)

		stored, err := reg.Get(created.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Players, 2)
	})
}

func TestRegistry_JoinAny(t *testing.T) {
	t.Run("Nothing to join", func(t *testing.T) {
		reg := newRegistry(t)

		_, err := reg.JoinAny(ana)

		require.ErrorIs(t, err, apperror.ErrNoJoinableSession)
	})

	t.Run("Oldest joinable session wins", func(t *testing.T) {
		// Given: a full session followed by two open ones
		reg := newRegistry(t)
		full, err := reg.Create(ana, Settings{MaxPlayers: 1})
		require.NoError(t, err)
		older, err := reg.Create(carlos, Settings{})
		require.NoError(t, err)
		_, err = reg.Create(luis, Settings{})
		require.NoError(t, err)

		found, ok := reg.FindJoinable()
		require.True(t, ok)
		assert.Equal(t, older.ID, found.ID)

		// When: a new player joins any session
		joined, err := reg.JoinAny(entity.Player{ID: 4, Name: "Marta", Connected: true})

		// Then: the full one is skipped and the older open one is used
		require.NoError(t, err)
		assert.NotEqual(t, full.ID, joined.ID)
		assert.Equal(t, older.ID, joined.ID)
		assert.Len(t, joined.Players, 2)
	})

	t.Run("Sessions the player already belongs to are skipped", func(t *testing.T) {
		// Given: Ana waits in her own session and Carlos opened another one
		reg := newRegistry(t)
		own, err := reg.Create(ana, Settings{})
		require.NoError(t, err)
		other, err := reg.Create(carlos, Settings{})
		require.NoError(t, err)

		// When: Ana joins any session
		joined, err := reg.JoinAny(ana)

		// Then: she lands in Carlos's session, her own is unchanged
		require.NoError(t, err)
		assert.Equal(t, other.ID, joined.ID)
		assert.Len(t, joined.Players, 2)

		stored, err := reg.Get(own.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Players, 1)
	})

	t.Run("Only own sessions open", func(t *testing.T) {
		reg := newRegistry(t)
		_, err := reg.Create(ana, Settings{})
		require.NoError(t, err)

		_, err = reg.JoinAny(ana)

		require.ErrorIs(t, err, apperror.ErrNoJoinableSession)
	})
}

func TestRegistry_GetReturnsCopies(t *testing.T) {
	reg := newRegistry(t)
	created, err := reg.Create(ana, Settings{})
	require.NoError(t, err)

	// When: the caller scribbles on its copy
	require.NoError(t, created.Board.Place(0, 0, "X"))
	created.Players[0].Name = "Mallory"

	// Then: the stored session is unaffected
	stored, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Board.OccupiedCount())
	assert.Equal(t, "Ana", stored.Players[0].Name)
}

func TestRegistry_MutateAndUpdate(t *testing.T) {
	reg := newRegistry(t)
	created, err := reg.Create(ana, Settings{})
	require.NoError(t, err)

	t.Run("Failed mutation keeps the session", func(t *testing.T) {
		_, err := reg.Mutate(created.ID, func(session entity.GameSession) (entity.GameSession, error) {
			session.Round = 7
			return session, apperror.ErrInvalidMove
		})

		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		stored, err := reg.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Round)
	})

	t.Run("Id cannot change", func(t *testing.T) {
		_, err := reg.Mutate(created.ID, func(session entity.GameSession) (entity.GameSession, error) {
			session.ID = "PARTIDA-OTHER000"
			return session, nil
		})

		require.ErrorIs(t, err, apperror.ErrInvalidArgument)
	})

	t.Run("Update overwrites", func(t *testing.T) {
		session, err := reg.Get(created.ID)
		require.NoError(t, err)
		session.Round = 3

		require.NoError(t, reg.Update(session))

		stored, err := reg.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Round)
	})

	t.Run("Update of unknown session", func(t *testing.T) {
		err := reg.Update(entity.GameSession{ID: "PARTIDA-MISSING0"})

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestRegistry_RemoveListClose(t *testing.T) {
	reg := New(Settings{})
	first, err := reg.Create(ana, Settings{})
	require.NoError(t, err)
	second, err := reg.Create(carlos, Settings{})
	require.NoError(t, err)

	require.NoError(t, reg.Remove(first.ID))
	require.ErrorIs(t, reg.Remove(first.ID), apperror.ErrSessionNotFound)

	_, err = reg.Get(first.ID)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	reg.Close()

	assert.Zero(t, reg.Len())
	_, err = reg.Create(ana, Settings{})
	require.ErrorIs(t, err, ErrClosed)
	_, err = reg.Get(second.ID)
	require.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_ConcurrentJoins(t *testing.T) {
	// Given: one session with room for 10 players
	reg := newRegistry(t)
	created, err := reg.Create(ana, Settings{MaxPlayers: 10})
	require.NoError(t, err)

	// When: 50 players try to join at the same time
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
		full   int
	)

	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			player := entity.Player{ID: int64(100 + i), Name: fmt.Sprintf("p%d", i), Connected: true}
			_, err := reg.Join(created.ID, player)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case assert.ErrorIs(t, err, apperror.ErrSessionFull):
				full++
			}
		}()
	}
	wg.Wait()

	// Then: exactly nine got in and the session never overflowed
	assert.Equal(t, 9, joined)
	assert.Equal(t, 41, full)

	stored, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Players, 10)
}

func TestRegistry_ConcurrentMutationsAreSerialized(t *testing.T) {
	reg := newRegistry(t)

	ids := make([]string, 4)
	for i := range ids {
		session, err := reg.Create(entity.Player{ID: int64(i + 1), Name: "owner", Connected: true}, Settings{})
		require.NoError(t, err)
		ids[i] = session.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := reg.Mutate(id, func(session entity.GameSession) (entity.GameSession, error) {
					session.Round++
					return session, nil
				})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	for _, id := range ids {
		session, err := reg.Get(id)
		require.NoError(t, err)
		assert.Equal(t, 101, session.Round)
	}
}

func TestRegistry_CommitHooks(t *testing.T) {
	t.Run("Create runs hooks with the stored session", func(t *testing.T) {
		reg := newRegistry(t)

		var seen []entity.GameSession
		created, err := reg.Create(ana, Settings{}, func(session entity.GameSession) {
			seen = append(seen, session)
		})

		require.NoError(t, err)
		require.Len(t, seen, 1)
		assert.Equal(t, created.ID, seen[0].ID)
	})

	t.Run("Failed mutation skips hooks", func(t *testing.T) {
		reg := newRegistry(t)
		session, err := reg.Create(ana, Settings{})
		require.NoError(t, err)

		called := false
		_, err = reg.Mutate(session.ID, func(s entity.GameSession) (entity.GameSession, error) {
			return s, apperror.ErrInvalidMove
		}, func(entity.GameSession) { called = true })

		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		assert.False(t, called)
	})

	t.Run("Hooks observe concurrent changes in stored order", func(t *testing.T) {
		// Given
		reg := newRegistry(t)
		session, err := reg.Create(ana, Settings{})
		require.NoError(t, err)

		var (
			mu     sync.Mutex
			rounds []int
		)
		record := func(s entity.GameSession) {
			mu.Lock()
			rounds = append(rounds, s.Round)
			mu.Unlock()
		}

		// When: many writers bump the round at once
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, mutateErr := reg.Mutate(session.ID, func(s entity.GameSession) (entity.GameSession, error) {
					s.Round++
					return s, nil
				}, record)
				assert.NoError(t, mutateErr)
			}()
		}
		wg.Wait()

		// Then: every hook call saw the next round, none overtook another
		require.Len(t, rounds, 100)
		for i, round := range rounds {
			assert.Equal(t, i+2, round)
		}
	})
}

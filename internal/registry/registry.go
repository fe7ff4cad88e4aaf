// Package registry keeps the live sessions of the process. Each session sits in its own slot
// guarded by a mutex, so mutations of one session are serialized while different sessions
// proceed in parallel.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
)

const idPrefix = "PARTIDA-"

var ErrClosed = errors.New("session registry is closed")

// Settings - shape of a new session. Zero fields fall back to the registry defaults.
type Settings struct {
	Rows       int
	Cols       int
	MaxPlayers int
	Variant    entity.Variant
}

func (that Settings) withDefaults(defaults Settings) Settings {
	if that.Rows <= 0 {
		that.Rows = defaults.Rows
	}
	if that.Cols <= 0 {
		that.Cols = defaults.Cols
	}
	if that.MaxPlayers <= 0 {
		that.MaxPlayers = defaults.MaxPlayers
	}
	if that.Variant == "" {
		that.Variant = defaults.Variant
	}
	return that
}

// Mutation - read-modify-write step run while the session slot is locked.
// The returned session replaces the stored one only when the error is nil.
type Mutation func(session entity.GameSession) (entity.GameSession, error)

// Commit - called with the stored session after a successful change, under the session lock.
type Commit func(session entity.GameSession)

type slot struct {
	mu      sync.Mutex
	session entity.GameSession
	removed bool
}

type Registry struct {
	mu     sync.RWMutex
	slots  map[string]*slot
	order  []string
	closed bool

	defaults Settings
	newID    func() string
	now      func() time.Time
}

func New(defaults Settings) *Registry {
	return &Registry{
		slots: make(map[string]*slot),
		defaults: defaults.withDefaults(Settings{
			Rows:       3,
			Cols:       3,
			MaxPlayers: 2,
			Variant:    entity.VariantLine3,
		}),
		newID: generateID,
		now:   time.Now,
	}
}

func generateID() string {
	return idPrefix + strings.ToUpper(uuid.NewString()[:8])
}

// Defaults - settings applied to sessions created without explicit values.
func (that *Registry) Defaults() Settings {
	return that.defaults
}

// Create - builds a waiting session with the given player already joined and stores it.
// The commit hooks see the new session before any other caller can change it.
func (that *Registry) Create(player entity.Player, settings Settings, onCommit ...Commit) (entity.GameSession, error) {
	settings = settings.withDefaults(that.defaults)

	board, err := entity.NewBoard(settings.Rows, settings.Cols)
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to create board: %w", err)
	}

	that.mu.Lock()

	if that.closed {
		that.mu.Unlock()
		return entity.GameSession{}, ErrClosed
	}

	id := that.newID()
	for that.slots[id] != nil {
		id = that.newID()
	}

	session, err := that.newSession(id, board, settings, player)
	if err != nil {
		that.mu.Unlock()
		return entity.GameSession{}, err
	}

	s := &slot{session: session}
	s.mu.Lock()
	defer s.mu.Unlock()

	that.slots[id] = s
	that.order = append(that.order, id)
	that.mu.Unlock()

	commit(session, onCommit)

	return session.Clone(), nil
}

func (that *Registry) newSession(
	id string, board *entity.Board, settings Settings, creator entity.Player,
) (entity.GameSession, error) {
	session, err := entity.NewSession(id, board, settings.MaxPlayers, settings.Variant, that.now())
	if err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to create session: %w", err)
	}

	if session, err = session.AddPlayer(creator); err != nil {
		return entity.GameSession{}, fmt.Errorf("failed to add creator: %w", err)
	}

	return session, nil
}

// Join - adds the player to a waiting session.
func (that *Registry) Join(id string, player entity.Player) (entity.GameSession, error) {
	return that.Mutate(id, func(session entity.GameSession) (entity.GameSession, error) {
		return session.AddPlayer(player)
	})
}

// JoinAny - adds the player to the oldest joinable session.
func (that *Registry) JoinAny(player entity.Player) (entity.GameSession, error) {
	return that.MutateJoinable(func(session entity.GameSession) (entity.GameSession, error) {
		return session.AddPlayer(player)
	})
}

// FindJoinable - the oldest waiting session with spare capacity.
func (that *Registry) FindJoinable() (entity.GameSession, bool) {
	for _, s := range that.snapshot() {
		s.mu.Lock()
		joinable := !s.removed && s.session.IsJoinable()
		session := s.session.Clone()
		s.mu.Unlock()

		if joinable {
			return session, true
		}
	}

	return entity.GameSession{}, false
}

// Get - a copy of the stored session.
func (that *Registry) Get(id string) (entity.GameSession, error) {
	s, err := that.lookup(id)
	if err != nil {
		return entity.GameSession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return entity.GameSession{}, notFound(id)
	}

	return s.session.Clone(), nil
}

// Update - overwrites the stored session with the same id.
func (that *Registry) Update(session entity.GameSession) error {
	_, err := that.Mutate(session.ID, func(entity.GameSession) (entity.GameSession, error) {
		return session, nil
	})
	return err
}

// Mutate - runs fn on the current session while no other caller can change it. On success the
// commit hooks run before the lock is released, so they observe changes of one session in the
// order they were stored. Hooks must not call back into the registry for the same session.
func (that *Registry) Mutate(id string, fn Mutation, onCommit ...Commit) (entity.GameSession, error) {
	s, err := that.lookup(id)
	if err != nil {
		return entity.GameSession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return entity.GameSession{}, notFound(id)
	}

	return s.apply(fn, onCommit)
}

// MutateJoinable - runs fn on the oldest joinable session, trying the next one when fn fails
// with a join error, including a player already in that session. Returns ErrNoJoinableSession
// when no session accepted the change.
func (that *Registry) MutateJoinable(fn Mutation, onCommit ...Commit) (entity.GameSession, error) {
	for _, s := range that.snapshot() {
		updated, err := s.tryJoinable(fn, onCommit)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, errSkip),
			errors.Is(err, apperror.ErrSessionFull),
			errors.Is(err, apperror.ErrDuplicatePlayer),
			errors.Is(err, apperror.ErrInvalidTransition):
			continue
		default:
			return entity.GameSession{}, err
		}
	}

	return entity.GameSession{}, apperror.ErrNoJoinableSession
}

var errSkip = errors.New("slot is not joinable")

func (that *slot) tryJoinable(fn Mutation, onCommit []Commit) (entity.GameSession, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.removed || !that.session.IsJoinable() {
		return entity.GameSession{}, errSkip
	}

	return that.apply(fn, onCommit)
}

// apply - caller holds the slot lock.
func (that *slot) apply(fn Mutation, onCommit []Commit) (entity.GameSession, error) {
	updated, err := fn(that.session.Clone())
	if err != nil {
		return entity.GameSession{}, err
	}

	if updated.ID != that.session.ID {
		return entity.GameSession{}, fmt.Errorf("%w: mutation changed session id %s to %s",
			apperror.ErrInvalidArgument, that.session.ID, updated.ID)
	}

	if err = updated.Validate(); err != nil {
		return entity.GameSession{}, err
	}

	that.session = updated.Clone()
	commit(updated, onCommit)

	return updated, nil
}

func commit(session entity.GameSession, hooks []Commit) {
	for _, hook := range hooks {
		hook(session.Clone())
	}
}

// Remove - drops the session. Removing an unknown id returns ErrSessionNotFound.
func (that *Registry) Remove(id string) error {
	that.mu.Lock()
	s, ok := that.slots[id]
	if ok {
		delete(that.slots, id)
		that.order = slices.DeleteFunc(that.order, func(v string) bool { return v == id })
	}
	that.mu.Unlock()

	if !ok {
		return notFound(id)
	}

	s.mu.Lock()
	s.removed = true
	s.mu.Unlock()

	return nil
}

// List - copies of all sessions in creation order.
func (that *Registry) List() []entity.GameSession {
	slots := that.snapshot()
	sessions := make([]entity.GameSession, 0, len(slots))

	for _, s := range slots {
		s.mu.Lock()
		if !s.removed {
			sessions = append(sessions, s.session.Clone())
		}
		s.mu.Unlock()
	}

	return sessions
}

func (that *Registry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.slots)
}

// Close - drops every session and rejects further calls.
func (that *Registry) Close() {
	that.mu.Lock()
	slots := that.slots
	that.slots = make(map[string]*slot)
	that.order = nil
	that.closed = true
	that.mu.Unlock()

	for _, s := range slots {
		s.mu.Lock()
		s.removed = true
		s.mu.Unlock()
	}
}

func (that *Registry) lookup(id string) (*slot, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		return nil, ErrClosed
	}

	s, ok := that.slots[id]
	if !ok {
		return nil, notFound(id)
	}

	return s, nil
}

// snapshot - slots in creation order, taken under the read lock.
func (that *Registry) snapshot() []*slot {
	that.mu.RLock()
	defer that.mu.RUnlock()

	slots := make([]*slot, 0, len(that.order))
	for _, id := range that.order {
		slots = append(slots, that.slots[id])
	}

	return slots
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
}

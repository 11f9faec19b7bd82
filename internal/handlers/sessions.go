package handlers

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
)

// Session is one loadout being edited with its undo history. Callers must
// hold mu while touching the loadout or the stack.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	loadout  *loadout.Loadout
	stack    *loadout.Stack
	bus      *events.Bus
	revision int
}

// Sessions is the in-memory session registry.
type Sessions struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Session
	depth int
}

func NewSessions(undoDepth int) *Sessions {
	return &Sessions{byID: make(map[uuid.UUID]*Session), depth: undoDepth}
}

// Create registers a new session. build receives the publisher the loadout
// must report its changes to.
func (s *Sessions) Create(build func(events.Publisher) (*loadout.Loadout, error)) (*Session, error) {
	sess := &Session{
		ID:    uuid.New(),
		stack: loadout.NewStack(s.depth),
		bus:   events.NewBus(),
	}
	sess.bus.Subscribe(func(events.Event) { sess.revision++ })

	lo, err := build(sess.bus)
	if err != nil {
		return nil, err
	}
	sess.loadout = lo

	s.mu.Lock()
	s.byID[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Sessions) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "loadout session not found", map[string]string{"id": id.String()})
	}
	return sess, nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

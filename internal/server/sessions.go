package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/folio/core/egg"
)

// DefaultSessionTTL is how long an untouched egg session is kept.
const DefaultSessionTTL = 30 * time.Minute

type session struct {
	seq      *egg.Sequencer
	lastSeen time.Time
}

// SessionRegistry owns one egg.Sequencer per visitor session.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	factory  func() *egg.Sequencer
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionRegistry creates a registry whose sessions use factory for new sequencers.
func NewSessionRegistry(factory func() *egg.Sequencer, ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRegistry{
		sessions: make(map[uuid.UUID]*session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session and returns its ID.
func (sr *SessionRegistry) Create() (uuid.UUID, *egg.Sequencer) {
	id := uuid.Must(uuid.NewV7())
	seq := sr.factory()

	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.sessions[id] = &session{seq: seq, lastSeen: sr.now()}
	return id, seq
}

// Get returns the sequencer of a live session and refreshes its expiry.
func (sr *SessionRegistry) Get(rawID string) (*egg.Sequencer, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, false
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	s, ok := sr.sessions[id]
	if !ok {
		return nil, false
	}
	now := sr.now()
	if now.Sub(s.lastSeen) > sr.ttl {
		delete(sr.sessions, id)
		return nil, false
	}
	s.lastSeen = now
	return s.seq, true
}

// Delete ends a session. It reports whether the session existed.
func (sr *SessionRegistry) Delete(rawID string) bool {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return false
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	if _, ok := sr.sessions[id]; !ok {
		return false
	}
	delete(sr.sessions, id)
	return true
}

// Sweep drops expired sessions and returns how many were removed.
func (sr *SessionRegistry) Sweep() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	now := sr.now()
	var removed int
	for id, s := range sr.sessions {
		if now.Sub(s.lastSeen) > sr.ttl {
			delete(sr.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (sr *SessionRegistry) Len() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.sessions)
}

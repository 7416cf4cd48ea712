// Package sessionstore is the explicit, non-singleton mapping from
// session id to live session described by spec.md §2 item 6 and §5. A
// store handle is passed to each tool invocation rather than reached for
// as a global, to avoid singletons and aid testing (SPEC_FULL.md §9).
package sessionstore

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/session"
)

// Store supports safe concurrent create/lookup/list/remove, the only
// shared structure in the concurrency model (spec.md §5).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session

	// graceByID records the deadline after which a terminal session may
	// be swept, implementing spec.md §3's "removed from the store after
	// a grace period (>=60s)" lifecycle rule.
	graceByID map[string]time.Time
	grace     time.Duration
}

// New creates an empty store. grace is the minimum time a terminal
// session remains queryable after completion; if <= 0 it defaults to 60s
// per spec.md §3.
func New(grace time.Duration) *Store {
	if grace <= 0 {
		grace = 60 * time.Second
	}
	return &Store{
		sessions:  make(map[string]*session.Session),
		graceByID: make(map[string]time.Time),
		grace:     grace,
	}
}

// Create inserts s under s.ID(). It does not allocate an id: callers
// build the Session with NewID()'s result.
func (st *Store) Create(s *session.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID()] = s
}

// NewID returns a fresh, unused session identifier.
func NewID() string {
	return uuid.NewString()
}

// Lookup returns the session for id, or ok=false if absent.
func (st *Store) Lookup(id string) (*session.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// List returns a snapshot slice of every live session.
func (st *Store) List() []*session.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*session.Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Remove deletes id from the store immediately, bypassing the grace
// period.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
	delete(st.graceByID, id)
}

// ScheduleEviction arms id for removal once the grace period elapses
// after a terminal transition. Call this from the session's completion
// hook.
func (st *Store) ScheduleEviction(id string) {
	st.mu.Lock()
	st.graceByID[id] = time.Now().Add(st.grace)
	st.mu.Unlock()

	time.AfterFunc(st.grace, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		deadline, ok := st.graceByID[id]
		if !ok || time.Now().Before(deadline) {
			return
		}
		delete(st.sessions, id)
		delete(st.graceByID, id)
	})
}

// Count returns the number of live sessions, used to enforce MAX_SESSIONS
// as a soft cap.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const defaultTTL = 30 * time.Minute

// Observer is the metrics surface sessions report to.
type Observer interface {
	StaleObserver
	booking.SubmissionObserver
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Resolver  *booking.Resolver
	Gateway   booking.Gateway
	Directory Directory
	Metrics   Observer
	Logger    *logging.Logger
	TTL       time.Duration
}

// Store keeps live sessions in memory and expires idle ones.
type Store struct {
	deps Deps
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore(deps Deps) *Store {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.TTL <= 0 {
		deps.TTL = defaultTTL
	}
	return &Store{deps: deps, now: time.Now, sessions: make(map[string]*Session)}
}

// Create starts a new empty session.
func (st *Store) Create() *Session {
	now := st.now()
	var sub booking.SubmissionObserver
	var stale StaleObserver
	if st.deps.Metrics != nil {
		sub, stale = st.deps.Metrics, st.deps.Metrics
	}
	s := &Session{
		ID:        uuid.NewString(),
		resolver:  st.deps.Resolver,
		workflow:  booking.NewWorkflow(st.deps.Gateway, sub, st.deps.Logger),
		dir:       st.deps.Directory,
		stale:     stale,
		logger:    st.deps.Logger,
		now:       st.now,
		ttl:       st.deps.TTL,
		createdAt: now.UTC(),
		lastSeen:  now,
		subs:      make(map[int]chan Event),
	}
	s.avail = booking.Unresolved(s.sel.Key())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.deps.Logger.Debug("session created", "session_id", s.ID)
	return s
}

// Get returns a live session and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || s.expired(st.now()) {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Delete discards a session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// Len returns the number of tracked sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes and removes expired sessions, returning how many were removed.
func (st *Store) Sweep() int {
	now := st.now()
	var expired []*Session

	st.mu.Lock()
	for id, s := range st.sessions {
		if s.expired(now) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		st.deps.Logger.Info("expired booking sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done, then closes all sessions.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			st.closeAll()
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *Store) closeAll() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/gridvoice/internal/observe"
	"github.com/MrWong99/gridvoice/internal/store"
	"github.com/MrWong99/gridvoice/internal/vocab"
)

// Manager hands out sessions by ID, restoring persisted grid snapshots on
// first access. Two connections with the same session ID share one Session
// and therefore one grid. Sessions are reference-counted: each Acquire must
// be paired with a Release, and the last Release evicts the cached session
// (its snapshot, if persisted, survives for the next Acquire).
type Manager struct {
	store     store.Store
	corrector *vocab.Corrector
	metrics   *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry is a cached session plus the number of Acquires not yet Released.
type entry struct {
	sess *Session
	refs int
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithManagerStore sets the snapshot store used for restore and persistence.
func WithManagerStore(st store.Store) ManagerOption {
	return func(m *Manager) { m.store = st }
}

// WithManagerCorrector sets the vocabulary corrector applied to every
// session's transcripts.
func WithManagerCorrector(c *vocab.Corrector) ManagerOption {
	return func(m *Manager) { m.corrector = c }
}

// WithManagerMetrics sets the metrics instance passed to sessions.
func WithManagerMetrics(met *observe.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = met }
}

// NewManager creates an empty [Manager].
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{sessions: make(map[string]*entry)}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	return m
}

// Acquire returns the session for id, creating it on first access. When a
// store is configured and holds a snapshot for id, the new session starts
// from that state instead of a fresh grid.
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session: empty session id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.refs++
		return e.sess, nil
	}

	opts := []Option{WithMetrics(m.metrics)}
	if m.corrector != nil {
		opts = append(opts, WithCorrector(m.corrector))
	}
	if m.store != nil {
		opts = append(opts, WithStore(m.store))
		snap, err := m.store.Load(ctx, id)
		switch {
		case err == nil:
			opts = append(opts, WithInitialState(snap.State))
		case errors.Is(err, store.ErrNotFound):
			// First visit, fresh grid.
		default:
			return nil, fmt.Errorf("session: restore %q: %w", id, err)
		}
	}

	s := New(id, opts...)
	m.sessions[id] = &entry{sess: s, refs: 1}
	return s, nil
}

// Release undoes one Acquire. When the last reference is released the
// session is evicted from the cache; a later Acquire restores its grid from
// the persisted snapshot, if any. Releasing an unknown id is a no-op.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.sessions, id)
	}
}

// Remove drops the cached session for id regardless of its reference count.
// The persisted snapshot, if any, is kept; a later Acquire restores from it.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of cached sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/gridvoice/pkg/grid"
)

// MemoryStore is an in-memory [Store]. Grids live only as long as the
// process; use it for single-node deployments without PostgreSQL and for
// tests.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty, ready-to-use [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

// Save creates or replaces the snapshot for a session.
func (s *MemoryStore) Save(_ context.Context, sessionID string, state grid.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	snap, ok := s.snaps[sessionID]
	if !ok {
		snap = Snapshot{SessionID: sessionID, CreatedAt: now}
	}
	snap.State = state.Clone()
	snap.UpdatedAt = now
	s.snaps[sessionID] = snap
	return nil
}

// Load retrieves the snapshot for a session. Returns [ErrNotFound] when no
// snapshot exists.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, sessionID)
	}
	out := snap
	out.State = snap.State.Clone()
	return &out, nil
}

// Delete removes a session's snapshot. Deleting a non-existent snapshot is
// not an error.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sessionID)
	return nil
}

// List returns the IDs of all sessions with a stored snapshot, most recently
// updated first.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.snaps[ids[i]].UpdatedAt.After(s.snaps[ids[j]].UpdatedAt)
	})
	return ids, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

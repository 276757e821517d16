// Package store persists grid snapshots so a session can reconnect and find
// its grid in the state it left it.
//
// Two implementations exist: [PostgresStore] for durable persistence and
// [MemoryStore] for single-process deployments and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/gridvoice/pkg/grid"
)

// ErrNotFound is returned by Load when no snapshot exists for a session.
var ErrNotFound = errors.New("store: snapshot not found")

// Snapshot couples a session's grid state with bookkeeping metadata.
type Snapshot struct {
	// SessionID identifies the owning grid session.
	SessionID string

	// State is the full grid state at save time.
	State grid.State

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store provides snapshot persistence for grid sessions.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save creates or replaces the snapshot for a session.
	Save(ctx context.Context, sessionID string, state grid.State) error

	// Load retrieves the snapshot for a session. Returns [ErrNotFound]
	// when no snapshot exists.
	Load(ctx context.Context, sessionID string) (*Snapshot, error)

	// Delete removes a session's snapshot. Deleting a non-existent
	// snapshot is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all sessions with a stored snapshot.
	List(ctx context.Context) ([]string, error)

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
}

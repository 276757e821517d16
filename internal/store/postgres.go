package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/gridvoice/pkg/grid"
)

// Schema is the SQL DDL for the grid_snapshots table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS grid_snapshots (
    session_id TEXT PRIMARY KEY,
    state      JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_grid_snapshots_updated ON grid_snapshots(updated_at);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. The grid state is
// serialised as a single JSONB document per session.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// grid_snapshots table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Save upserts the snapshot for a session.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, state grid.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}

	const query = `
		INSERT INTO grid_snapshots (session_id, state)
		VALUES ($1, $2)
		ON CONFLICT (session_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`

	if _, err := s.db.Exec(ctx, query, sessionID, stateJSON); err != nil {
		return fmt.Errorf("store: save %q: %w", sessionID, err)
	}
	return nil
}

// Load retrieves the snapshot for a session. Returns [ErrNotFound] when no
// snapshot exists.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	const query = `
		SELECT session_id, state, created_at, updated_at
		FROM grid_snapshots
		WHERE session_id = $1`

	var snap Snapshot
	var stateJSON []byte

	err := s.db.QueryRow(ctx, query, sessionID).Scan(
		&snap.SessionID, &stateJSON, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("store: load %q: %w", sessionID, err)
	}

	if err := json.Unmarshal(stateJSON, &snap.State); err != nil {
		return nil, fmt.Errorf("store: unmarshal state for %q: %w", sessionID, err)
	}
	return &snap, nil
}

// Delete removes a session's snapshot. Deleting a non-existent snapshot is
// not an error.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM grid_snapshots WHERE session_id = $1`
	if _, err := s.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("store: delete %q: %w", sessionID, err)
	}
	return nil
}

// List returns the IDs of all sessions with a stored snapshot, most recently
// updated first.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	const query = `SELECT session_id FROM grid_snapshots ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list rows: %w", err)
	}
	return ids, nil
}

// Ping checks database reachability with a trivial round-trip query.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/gridvoice/pkg/grid"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

func (r *mockRows) Values() ([]any, error) { return nil, nil }

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	var gotSQL string
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			return pgconn.CommandTag{}, nil
		},
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !strings.Contains(gotSQL, "CREATE TABLE IF NOT EXISTS grid_snapshots") {
		t.Errorf("Migrate did not run the schema DDL, got: %s", gotSQL)
	}
}

func TestPostgresStore_SaveSerialisesState(t *testing.T) {
	t.Parallel()

	var gotSQL string
	var gotArgs []any
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			gotArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	state := grid.NewState()
	state.Active = 3
	state.Cells[3][0] = true

	s := NewPostgresStore(db)
	if err := s.Save(context.Background(), "sess-1", state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !strings.Contains(gotSQL, "ON CONFLICT (session_id)") {
		t.Errorf("Save is not an upsert, got: %s", gotSQL)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "sess-1" {
		t.Fatalf("args = %v", gotArgs)
	}

	var decoded grid.State
	if err := json.Unmarshal(gotArgs[1].([]byte), &decoded); err != nil {
		t.Fatalf("state arg is not valid JSON: %v", err)
	}
	if decoded.Active != 3 || !decoded.Cells[3][0] {
		t.Errorf("decoded state = %+v", decoded)
	}
}

func TestPostgresStore_Load(t *testing.T) {
	t.Parallel()

	state := grid.NewState()
	state.Active = 7
	state.Focused = 4
	stateJSON, _ := json.Marshal(state)
	now := time.Now()

	db := &mockDB{
		queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
			if args[0] != "sess-1" {
				t.Errorf("queried session = %v", args[0])
			}
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = "sess-1"
				*dest[1].(*[]byte) = stateJSON
				*dest[2].(*time.Time) = now
				*dest[3].(*time.Time) = now
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	snap, err := s.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.State.Active != 7 || snap.State.Focused != 4 {
		t.Errorf("state = %+v", snap.State)
	}
}

func TestPostgresStore_LoadMissing(t *testing.T) {
	t.Parallel()

	db := &mockDB{} // QueryRow defaults to pgx.ErrNoRows
	s := NewPostgresStore(db)

	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_LoadCorruptJSON(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = "sess-1"
				*dest[1].(*[]byte) = []byte("{not json")
				*dest[2].(*time.Time) = time.Now()
				*dest[3].(*time.Time) = time.Now()
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	if _, err := s.Load(context.Background(), "sess-1"); err == nil {
		t.Fatal("expected error for corrupt state JSON")
	}
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &mockRows{data: [][]any{{"b"}, {"a"}}}, nil
		},
	}

	s := NewPostgresStore(db)
	ids, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("ids = %v", ids)
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(_ context.Context, sql string, _ ...any) pgx.Row {
			if sql != "SELECT 1" {
				t.Errorf("ping query = %q", sql)
			}
			return &mockRow{scanFunc: func(dest ...any) error {
				if d, ok := dest[0].(*int); ok {
					*d = 1
				}
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	down := &mockDB{
		queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &mockRow{scanFunc: func(...any) error {
				return errors.New("connection refused")
			}}
		},
	}
	if err := NewPostgresStore(down).Ping(context.Background()); err == nil {
		t.Fatal("expected error when database is down")
	}
}

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/gridvoice/internal/store"
	"github.com/MrWong99/gridvoice/internal/vocab"
	"github.com/MrWong99/gridvoice/pkg/command"
	"github.com/MrWong99/gridvoice/pkg/grid"
)

func TestHandleUtterance_SelectCell(t *testing.T) {
	t.Parallel()

	s := New("t1")
	res, err := s.HandleUtterance(context.Background(), "select cell 5")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if res.Action.Kind != command.KindGoToCell {
		t.Fatalf("action = %v", res.Action)
	}
	if res.State.Active != 4 {
		t.Errorf("Active = %d, want 4", res.State.Active)
	}
	if res.Feedback != "" {
		t.Errorf("Feedback = %q, want empty", res.Feedback)
	}
	if res.Rule == "" {
		t.Error("Rule is empty")
	}
}

func TestHandleUtterance_FocusThenToggle(t *testing.T) {
	t.Parallel()

	s := New("t2")
	ctx := context.Background()

	mustHandle(t, s, ctx, "select cell 3")
	mustHandle(t, s, ctx, "select center")
	res := mustHandle(t, s, ctx, "toggle")

	if !res.State.Cells[2][4] {
		t.Error("center sub-cell of cell 3 not toggled on")
	}
	for i, v := range res.State.Cells[2] {
		if i != 4 && v {
			t.Errorf("sub-cell %d changed, want only center", i)
		}
	}
}

func TestHandleUtterance_ToggleWholeCell(t *testing.T) {
	t.Parallel()

	s := New("t3")
	ctx := context.Background()

	res := mustHandle(t, s, ctx, "toggle all")
	for i, v := range res.State.Cells[0] {
		if !v {
			t.Errorf("sub-cell %d = false after toggle all", i)
		}
	}
}

func TestHandleUtterance_CellNotFound(t *testing.T) {
	t.Parallel()

	s := New("t4")
	res, err := s.HandleUtterance(context.Background(), "select cell 99")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if res.Action.Kind != command.KindCellNotFound {
		t.Fatalf("action = %v", res.Action)
	}
	if res.Feedback != "Cell 99 not found. Cells are 1 to 24." {
		t.Errorf("Feedback = %q", res.Feedback)
	}
	if res.State.Active != 0 {
		t.Errorf("Active = %d, state must be untouched", res.State.Active)
	}
}

func TestHandleUtterance_NotUnderstood(t *testing.T) {
	t.Parallel()

	s := New("t5")
	res, err := s.HandleUtterance(context.Background(), "make me a sandwich")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if res.Action.Kind != command.KindNone {
		t.Fatalf("action = %v", res.Action)
	}
	if res.Feedback != FeedbackNotUnderstood {
		t.Errorf("Feedback = %q", res.Feedback)
	}
}

func TestHandleUtterance_EmptyInputIsSilent(t *testing.T) {
	t.Parallel()

	s := New("t6")
	for _, in := range []string{"", "   "} {
		res, err := s.HandleUtterance(context.Background(), in)
		if err != nil {
			t.Fatalf("HandleUtterance(%q): %v", in, err)
		}
		if res.Action.Kind != command.KindNone {
			t.Errorf("action for %q = %v", in, res.Action)
		}
		if res.Feedback != "" {
			t.Errorf("Feedback for %q = %q, want none", in, res.Feedback)
		}
	}
}

func TestHandleUtterance_CorrectorApplies(t *testing.T) {
	t.Parallel()

	s := New("t7", WithCorrector(vocab.New()))
	res, err := s.HandleUtterance(context.Background(), "selekt cell 5")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if res.Recognized != "select cell 5" {
		t.Errorf("Recognized = %q", res.Recognized)
	}
	if res.Action.Kind != command.KindGoToCell || res.Action.Cell != 4 {
		t.Errorf("action = %v", res.Action)
	}
}

func TestHandleUtterance_PersistsAppliedOnly(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	s := New("t8", WithStore(st))
	ctx := context.Background()

	mustHandle(t, s, ctx, "gibberish here")
	if _, err := st.Load(ctx, "t8"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("snapshot saved for not-understood utterance: %v", err)
	}

	mustHandle(t, s, ctx, "select cell 12")
	snap, err := st.Load(ctx, "t8")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.State.Active != 11 {
		t.Errorf("persisted Active = %d, want 11", snap.State.Active)
	}
}

// failStore fails every Save to exercise the persistence error path.
type failStore struct {
	store.Store
}

func (f *failStore) Save(context.Context, string, grid.State) error {
	return errors.New("disk on fire")
}

func TestHandleUtterance_PersistFailureKeepsState(t *testing.T) {
	t.Parallel()

	fs := &failStore{Store: store.NewMemoryStore()}
	s := New("t9", WithStore(fs))

	res, err := s.HandleUtterance(context.Background(), "next cell")
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if res.State.Active != 1 {
		t.Errorf("Active = %d, in-memory state must still advance", res.State.Active)
	}
	if s.State().Active != 1 {
		t.Errorf("session state = %d, want 1", s.State().Active)
	}
}

func TestState_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New("t10")
	ctx := context.Background()
	mustHandle(t, s, ctx, "select sub cells 1 2 3")

	got := s.State()
	got.Selected[0] = 8

	if s.State().Selected[0] != 0 {
		t.Error("State() leaked internal slice")
	}
}

func mustHandle(t *testing.T, s *Session, ctx context.Context, text string) Result {
	t.Helper()
	res, err := s.HandleUtterance(ctx, text)
	if err != nil {
		t.Fatalf("HandleUtterance(%q): %v", text, err)
	}
	return res
}

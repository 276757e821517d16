package grid

import (
	"testing"

	"github.com/MrWong99/gridvoice/pkg/command"
)

func TestApply_Navigation(t *testing.T) {
	t.Parallel()

	s := NewState()

	s = Apply(s, command.NextCell())
	s = Apply(s, command.NextCell())
	if s.Active != 2 {
		t.Errorf("after two next: Active = %d, want 2", s.Active)
	}

	// Two next-cell steps from 0 must land where a single GoToCell(2) does.
	direct := Apply(NewState(), command.GoToCell(2))
	if s.Active != direct.Active {
		t.Errorf("next+next Active = %d, GoToCell(2) Active = %d", s.Active, direct.Active)
	}

	s = Apply(s, command.PrevCell())
	if s.Active != 1 {
		t.Errorf("after prev: Active = %d, want 1", s.Active)
	}
}

func TestApply_NavigationClamps(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.PrevCell())
	if s.Active != 0 {
		t.Errorf("prev at 0: Active = %d, want 0", s.Active)
	}

	s = Apply(s, command.GoToCell(23))
	s = Apply(s, command.NextCell())
	if s.Active != 23 {
		t.Errorf("next at 23: Active = %d, want 23", s.Active)
	}
}

func TestApply_FocusResetsOnCellChange(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.SelectSub(4))
	s = Apply(s, command.SelectSubCells([]int{0, 1}))
	if s.Focused != 4 || len(s.Selected) != 2 {
		t.Fatalf("setup failed: Focused = %d, Selected = %v", s.Focused, s.Selected)
	}

	s = Apply(s, command.GoToCell(5))
	if s.Focused != NoFocus {
		t.Errorf("Focused = %d after cell change, want NoFocus", s.Focused)
	}
	if s.Selected != nil {
		t.Errorf("Selected = %v after cell change, want nil", s.Selected)
	}

	// Navigating to the same cell must not reset focus.
	s = Apply(s, command.SelectSub(2))
	s = Apply(s, command.GoToCell(5))
	if s.Focused != 2 {
		t.Errorf("Focused = %d after no-op navigation, want 2", s.Focused)
	}

	// A clamped prev at cell 0 does not change the cell and keeps focus.
	s = Apply(NewState(), command.SelectSub(1))
	s = Apply(s, command.PrevCell())
	if s.Focused != 1 {
		t.Errorf("Focused = %d after clamped prev, want 1", s.Focused)
	}
}

func TestApply_TurnOnFocusSemantics(t *testing.T) {
	t.Parallel()

	// No focus: turn on lights all 9 sub-cells of the active cell.
	s := NewState()
	s = Apply(s, command.TurnOn())
	for i, v := range s.Cells[0] {
		if !v {
			t.Errorf("sub-cell %d = false after turn on, want true", i)
		}
	}

	// Focused: only the focused sub-cell changes.
	s = NewState()
	s = Apply(s, command.SelectSub(3))
	s = Apply(s, command.TurnOn())
	for i, v := range s.Cells[0] {
		want := i == 3
		if v != want {
			t.Errorf("sub-cell %d = %v, want %v", i, v, want)
		}
	}
}

func TestApply_ToggleAndTurnOff(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.Toggle())
	for i, v := range s.Cells[0] {
		if !v {
			t.Errorf("sub-cell %d = false after toggle, want true", i)
		}
	}
	s = Apply(s, command.Toggle())
	for i, v := range s.Cells[0] {
		if v {
			t.Errorf("sub-cell %d = true after second toggle, want false", i)
		}
	}

	s = Apply(s, command.TurnOn())
	s = Apply(s, command.SelectSub(8))
	s = Apply(s, command.TurnOff())
	if s.Cells[0][8] {
		t.Error("focused sub-cell still true after turn off")
	}
	if !s.Cells[0][0] {
		t.Error("unfocused sub-cell was cleared by focused turn off")
	}
}

func TestApply_ApplyToSub(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.GoToCell(7))

	s = Apply(s, command.ApplyToSub(4, command.OpToggle))
	if !s.Cells[7][4] {
		t.Error("apply-to-sub toggle did not set sub-cell 4 of cell 7")
	}

	// Independent of focus.
	s = Apply(s, command.SelectSub(0))
	s = Apply(s, command.ApplyToSub(4, command.OpTurnOff))
	if s.Cells[7][4] {
		t.Error("apply-to-sub turn-off ignored")
	}
	if s.Cells[7][0] {
		t.Error("apply-to-sub touched the focused sub-cell")
	}
}

func TestApply_SelectSubCellsFilters(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.SelectSubCells([]int{8, -1, 4, 9, 4, 0}))
	want := []int{0, 4, 8}
	if len(s.Selected) != len(want) {
		t.Fatalf("Selected = %v, want %v", s.Selected, want)
	}
	for i := range want {
		if s.Selected[i] != want[i] {
			t.Fatalf("Selected = %v, want %v", s.Selected, want)
		}
	}
}

func TestApply_FeedbackOnlyActions(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.TurnOn())
	before := s

	for _, a := range []command.Action{command.None, command.CellNotFound(99)} {
		got := Apply(s, a)
		if got.Active != before.Active || got.Focused != before.Focused || got.Cells != before.Cells {
			t.Errorf("Apply(%v) changed state", a)
		}
	}
}

func TestApply_Pure(t *testing.T) {
	t.Parallel()

	s := NewState()
	_ = Apply(s, command.TurnOn())
	for i, v := range s.Cells[0] {
		if v {
			t.Fatalf("input state mutated at sub-cell %d", i)
		}
	}
}

func TestClone_IndependentSelection(t *testing.T) {
	t.Parallel()

	s := NewState()
	s = Apply(s, command.SelectSubCells([]int{1, 2}))

	c := s.Clone()
	c.Selected[0] = 7

	if s.Selected[0] != 1 {
		t.Errorf("Clone shares Selected storage: %v", s.Selected)
	}
}

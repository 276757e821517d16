// Package grid holds the boolean grid state and the pure reducer that
// applies interpreted voice commands to it.
//
// State is an explicit value passed to and returned from Apply; nothing in
// this package mutates shared state. Callers own a State per session and
// replace it with the reducer's return value after every action.
package grid

import (
	"github.com/MrWong99/gridvoice/pkg/command"
)

// NoFocus is the Focused value meaning no sub-cell is focused.
const NoFocus = -1

// Cell is the 3×3 block of boolean sub-cells inside one grid cell,
// row-major: 0 = top-left, 4 = center, 8 = bottom-right.
type Cell [command.SubCells]bool

// State is one client's complete grid and focus state.
//
// Invariant: whenever Active changes, Focused is reset to NoFocus and
// Selected is cleared. Apply maintains this; hand-constructed States used
// in tests should honour it too.
type State struct {
	// Cells holds the 24 cells in row-major order (2 rows × 12 columns).
	Cells [command.GridCells]Cell `json:"cells"`

	// Active is the current cell index (0..23).
	Active int `json:"active"`

	// Focused is the focused sub-index within the active cell, or NoFocus.
	Focused int `json:"focused"`

	// Selected is the ascending set of selected sub-indices, possibly empty.
	Selected []int `json:"selected,omitempty"`
}

// NewState returns the initial state: active cell 0, nothing focused,
// nothing selected, all sub-cells false.
func NewState() State {
	return State{Focused: NoFocus}
}

// Clone returns a deep copy of s. Cells is an array and copies by value;
// only the Selected slice needs duplicating.
func (s State) Clone() State {
	if s.Selected != nil {
		s.Selected = append([]int(nil), s.Selected...)
	}
	return s
}

// Apply returns the state after performing a. It never fails: invalid or
// out-of-range payloads degrade to a no-op, matching the interpreter's
// guarantee that such actions are not produced in the first place.
// command.KindCellNotFound and command.KindNone are feedback-only and
// leave the state untouched.
func Apply(s State, a command.Action) State {
	switch a.Kind {
	case command.KindNextCell:
		return setActive(s, s.Active+1)
	case command.KindPrevCell:
		return setActive(s, s.Active-1)
	case command.KindGoToCell:
		if a.Cell < 0 || a.Cell >= command.GridCells {
			return s
		}
		return setActive(s, a.Cell)
	case command.KindSelectSub:
		if a.Sub < 0 || a.Sub >= command.SubCells {
			return s
		}
		s.Focused = a.Sub
		return s
	case command.KindSelectSubCells:
		s.Selected = filterSubs(a.Subs)
		return s
	case command.KindApplyToSub:
		if a.Sub < 0 || a.Sub >= command.SubCells {
			return s
		}
		s.Cells[s.Active][a.Sub] = opValue(a.Op, s.Cells[s.Active][a.Sub])
		return s
	case command.KindToggle:
		return applyToFocus(s, command.OpToggle)
	case command.KindTurnOn:
		return applyToFocus(s, command.OpTurnOn)
	case command.KindTurnOff:
		return applyToFocus(s, command.OpTurnOff)
	}
	return s
}

// setActive clamps target to [0, GridCells) and, when the active cell
// actually changes, resets focus and selection.
func setActive(s State, target int) State {
	if target < 0 {
		target = 0
	}
	if target >= command.GridCells {
		target = command.GridCells - 1
	}
	if target == s.Active {
		return s
	}
	s.Active = target
	s.Focused = NoFocus
	s.Selected = nil
	return s
}

// applyToFocus applies op to the focused sub-cell, or to all 9 sub-cells
// of the active cell when none is focused.
func applyToFocus(s State, op command.Op) State {
	if s.Focused != NoFocus {
		s.Cells[s.Active][s.Focused] = opValue(op, s.Cells[s.Active][s.Focused])
		return s
	}
	for i := range s.Cells[s.Active] {
		s.Cells[s.Active][i] = opValue(op, s.Cells[s.Active][i])
	}
	return s
}

// opValue computes the new value of a sub-cell under op.
func opValue(op command.Op, current bool) bool {
	switch op {
	case command.OpTurnOn:
		return true
	case command.OpTurnOff:
		return false
	default:
		return !current
	}
}

// filterSubs drops out-of-range indices and returns a fresh ascending,
// duplicate-free slice. Returns nil when nothing survives.
func filterSubs(subs []int) []int {
	seen := [command.SubCells]bool{}
	count := 0
	for _, s := range subs {
		if s >= 0 && s < command.SubCells && !seen[s] {
			seen[s] = true
			count++
		}
	}
	if count == 0 {
		return nil
	}
	out := make([]int, 0, count)
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Package command implements the voice-command core of gridvoice: the
// closed set of grid actions, the lexicon that resolves spoken numbers and
// positional phrases to indices, and the interpreter that maps one
// finalized utterance to exactly one action.
//
// The grid being addressed is fixed for the process lifetime: 24 cells
// (2 rows × 12 columns, row-major index 0..23), each holding a 3×3 block
// of 9 boolean sub-cells (row-major index 0..8, 0 = top-left, 4 = center,
// 8 = bottom-right).
package command

import (
	"fmt"
	"strings"
)

// Grid dimensions. These are invariants of the addressing scheme, not
// configuration.
const (
	GridRows  = 2
	GridCols  = 12
	GridCells = GridRows * GridCols
	SubCells  = 9
)

// Kind discriminates the Action variants.
type Kind int

const (
	// KindNone means the utterance was empty, unparseable, or matched no rule.
	KindNone Kind = iota

	// KindNextCell moves the active cell one to the right (clamped).
	KindNextCell

	// KindPrevCell moves the active cell one to the left (clamped).
	KindPrevCell

	// KindGoToCell jumps to an absolute cell index. Payload: Cell (0..23).
	KindGoToCell

	// KindCellNotFound reports a spoken cell number outside 1..24.
	// Payload: Requested, the raw number as spoken (1-based, out of range).
	KindCellNotFound

	// KindSelectSub focuses one sub-cell of the active cell. Payload: Sub (0..8).
	KindSelectSub

	// KindSelectSubCells selects several sub-cells of the active cell.
	// Payload: Subs, ascending and duplicate-free.
	KindSelectSubCells

	// KindApplyToSub mutates one specific sub-cell of the active cell,
	// independent of the current focus. Payload: Sub (0..8) and Op.
	KindApplyToSub

	// KindToggle flips the focused sub-cell, or all 9 sub-cells of the
	// active cell when none is focused.
	KindToggle

	// KindTurnOn sets the focused sub-cell (or all 9) to true.
	KindTurnOn

	// KindTurnOff sets the focused sub-cell (or all 9) to false.
	KindTurnOff
)

// String returns the snake_case name of the kind, as used in logs, metrics
// attributes, and the WebSocket protocol.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNextCell:
		return "next_cell"
	case KindPrevCell:
		return "prev_cell"
	case KindGoToCell:
		return "go_to_cell"
	case KindCellNotFound:
		return "cell_not_found"
	case KindSelectSub:
		return "select_sub"
	case KindSelectSubCells:
		return "select_sub_cells"
	case KindApplyToSub:
		return "apply_to_sub"
	case KindToggle:
		return "toggle"
	case KindTurnOn:
		return "turn_on"
	case KindTurnOff:
		return "turn_off"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Op is the mutation applied to a sub-cell by KindApplyToSub.
type Op int

const (
	OpToggle Op = iota
	OpTurnOn
	OpTurnOff
)

// String returns the snake_case name of the op.
func (o Op) String() string {
	switch o {
	case OpToggle:
		return "toggle"
	case OpTurnOn:
		return "turn_on"
	case OpTurnOff:
		return "turn_off"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Action is the interpreter's output: a tagged variant identified by Kind.
// Only the payload fields relevant to the Kind are meaningful; all others
// are zero. A well-formed Action never carries an index outside its declared
// range, with the single exception of Requested, which deliberately holds
// the raw out-of-range spoken number for user-facing feedback.
type Action struct {
	Kind Kind

	// Cell is the 0-based target for KindGoToCell.
	Cell int

	// Requested is the raw spoken number for KindCellNotFound (1-based,
	// outside 1..24).
	Requested int

	// Sub is the sub-cell index for KindSelectSub and KindApplyToSub.
	Sub int

	// Subs is the ascending, duplicate-free index set for KindSelectSubCells.
	Subs []int

	// Op is the mutation for KindApplyToSub.
	Op Op
}

// None is the zero Action.
var None = Action{Kind: KindNone}

// NextCell returns a relative-navigation action moving one cell forward.
func NextCell() Action { return Action{Kind: KindNextCell} }

// PrevCell returns a relative-navigation action moving one cell back.
func PrevCell() Action { return Action{Kind: KindPrevCell} }

// GoToCell returns an absolute-navigation action. cell must be in 0..23.
func GoToCell(cell int) Action { return Action{Kind: KindGoToCell, Cell: cell} }

// CellNotFound reports a spoken cell number outside the valid 1..24 range.
func CellNotFound(requested int) Action {
	return Action{Kind: KindCellNotFound, Requested: requested}
}

// SelectSub focuses sub-cell sub (0..8) within the active cell.
func SelectSub(sub int) Action { return Action{Kind: KindSelectSub, Sub: sub} }

// SelectSubCells selects the given sub-cells. subs must already be
// ascending and duplicate-free; the interpreter guarantees this.
func SelectSubCells(subs []int) Action {
	return Action{Kind: KindSelectSubCells, Subs: subs}
}

// ApplyToSub mutates sub-cell sub (0..8) of the active cell with op,
// regardless of the current focus.
func ApplyToSub(sub int, op Op) Action {
	return Action{Kind: KindApplyToSub, Sub: sub, Op: op}
}

// Toggle flips the focused sub-cell, or the whole active cell.
func Toggle() Action { return Action{Kind: KindToggle} }

// TurnOn sets the focused sub-cell (or the whole active cell) to true.
func TurnOn() Action { return Action{Kind: KindTurnOn} }

// TurnOff sets the focused sub-cell (or the whole active cell) to false.
func TurnOff() Action { return Action{Kind: KindTurnOff} }

// Valid reports whether the action's payload is within the declared ranges
// for its kind. Requested is exempt by design.
func (a Action) Valid() bool {
	switch a.Kind {
	case KindGoToCell:
		return a.Cell >= 0 && a.Cell < GridCells
	case KindSelectSub:
		return a.Sub >= 0 && a.Sub < SubCells
	case KindApplyToSub:
		return a.Sub >= 0 && a.Sub < SubCells
	case KindSelectSubCells:
		prev := -1
		for _, s := range a.Subs {
			if s < 0 || s >= SubCells || s <= prev {
				return false
			}
			prev = s
		}
		return len(a.Subs) > 0
	}
	return true
}

// String renders the action with its payload for logs.
func (a Action) String() string {
	switch a.Kind {
	case KindGoToCell:
		return fmt.Sprintf("go_to_cell(%d)", a.Cell)
	case KindCellNotFound:
		return fmt.Sprintf("cell_not_found(%d)", a.Requested)
	case KindSelectSub:
		return fmt.Sprintf("select_sub(%d)", a.Sub)
	case KindSelectSubCells:
		parts := make([]string, len(a.Subs))
		for i, s := range a.Subs {
			parts[i] = fmt.Sprint(s)
		}
		return "select_sub_cells(" + strings.Join(parts, ",") + ")"
	case KindApplyToSub:
		return fmt.Sprintf("apply_to_sub(%d,%s)", a.Sub, a.Op)
	default:
		return a.Kind.String()
	}
}

package command

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Select   Cell  5 ", "select cell 5"},
		{"TOP\tLEFT", "top left"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSubPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		// Isolated digits win over everything else.
		{"select 1", 0, true},
		{"9", 8, true},
		{"pick number 5 now", 4, true},

		// Positional phrases, table order.
		{"top left", 0, true},
		{"top center", 1, true},
		{"top right", 2, true},
		{"middle left", 3, true},
		{"center", 4, true},
		{"middle right", 5, true},
		{"bottom left", 6, true},
		{"bottom center", 7, true},
		{"bottom right", 8, true},

		// Single-word fallbacks.
		{"the left one", 0, true},
		{"go right", 2, true},
		{"the middle", 4, true},

		// Multi-word phrases must not be shadowed by their substrings.
		{"select the top left corner", 0, true},
		{"select bottom center please", 7, true},

		// Out of range digits and no-match text.
		{"0", 0, false},
		{"nothing here", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := SubPosition(tt.text)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("SubPosition(%q) = (%d, %v), want (%d, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCellNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"go to cell 7", 6, true},
		{"go to block 7", 6, true},
		{"cell 1", 0, true},
		{"cell 24", 23, true},
		{"12", 11, true},
		{"row 1 col 1", 0, true},
		{"row 1 column 12", 11, true},
		{"row 2 col 1", 12, true},
		{"row 2 column 12", 23, true},

		// Out of range is rejected, never clamped.
		{"cell 0", 0, false},
		{"cell 25", 0, false},
		{"go to cell 99", 0, false},
		{"row 2 col 13", 0, false},
		{"row 2 col 0", 0, false},

		// Number must lead (after the optional keywords).
		{"select cell 5", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := CellNumber(tt.text)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("CellNumber(%q) = (%d, %v), want (%d, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestActionValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    Action
		want bool
	}{
		{"go-to in range", GoToCell(23), true},
		{"go-to out of range", GoToCell(24), false},
		{"select-sub in range", SelectSub(8), true},
		{"select-sub negative", SelectSub(-1), false},
		{"apply in range", ApplyToSub(0, OpTurnOn), true},
		{"apply out of range", ApplyToSub(9, OpTurnOn), false},
		{"subs ascending", SelectSubCells([]int{0, 4, 8}), true},
		{"subs duplicate", SelectSubCells([]int{4, 4}), false},
		{"subs descending", SelectSubCells([]int{4, 3}), false},
		{"subs empty", SelectSubCells(nil), false},
		{"cell-not-found carries raw number", CellNotFound(99), true},
		{"none", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

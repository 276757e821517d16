// This file contains the lexicon: pure resolvers that turn spoken number
// and position words into grid indices. Both resolvers operate on
// normalized text (lower case, single spaces) and return ok=false rather
// than clamping when a number is out of range.

package command

import (
	"regexp"
	"strconv"
	"strings"
)

// Normalize lowercases text, collapses runs of whitespace to a single
// space, and trims the ends. All lexicon and interpreter matching runs on
// normalized text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// isolatedDigitRe matches the first isolated digit 1-9, optionally preceded
// by the word "select".
var isolatedDigitRe = regexp.MustCompile(`\b(?:select )?([1-9])\b`)

// position pairs a spoken phrase with the sub-cell index it names.
type position struct {
	phrase string
	index  int
}

// positionTable is scanned in order; the first phrase found anywhere in the
// text wins. Multi-word phrases come first so that "top left" resolves to 0
// before the bare "left" fallback could shadow it, and "bottom center"
// resolves to 7 before "center" would claim it.
var positionTable = []position{
	{"top left", 0},
	{"top center", 1},
	{"top right", 2},
	{"middle left", 3},
	{"middle right", 5},
	{"bottom left", 6},
	{"bottom center", 7},
	{"bottom right", 8},
	{"center", 4},
	{"left", 0},
	{"right", 2},
	{"middle", 4},
}

// SubPosition resolves text to a sub-cell index 0..8.
//
// An isolated digit 1-9 wins over positional words and maps to digit-1.
// Otherwise the positional phrase table is scanned in order and the first
// phrase contained in the text decides. Returns ok=false when neither form
// is present.
func SubPosition(text string) (index int, ok bool) {
	text = Normalize(text)
	if m := isolatedDigitRe.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d - 1, true
	}
	for _, p := range positionTable {
		if strings.Contains(text, p.phrase) {
			return p.index, true
		}
	}
	return 0, false
}

var (
	// cellNumberRe matches an optional leading "go to", an optional
	// cell/block keyword, and a 1-2 digit number at the start of the text.
	cellNumberRe = regexp.MustCompile(`^(?:go to )?(?:(?:cell|block) )?([0-9]{1,2})\b`)

	// rowColRe matches "row <1|2> col <n>" / "row <1|2> column <n>".
	rowColRe = regexp.MustCompile(`\brow ([12]) col(?:umn)? ([0-9]{1,2})\b`)
)

// CellNumber resolves text to a cell index 0..23.
//
// Accepted forms: "go to cell 7", "cell 7", "block 7", a bare "7", and
// "row 2 column 3". Numbers outside the spoken 1..24 range (or columns
// outside 1..12) yield ok=false; no clamping happens here.
func CellNumber(text string) (index int, ok bool) {
	text = Normalize(text)
	if m := cellNumberRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= GridCells {
			return n - 1, true
		}
		return 0, false
	}
	if m := rowColRe.FindStringSubmatch(text); m != nil {
		row, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		if col < 1 || col > GridCols {
			return 0, false
		}
		return (row-1)*GridCols + (col - 1), true
	}
	return 0, false
}

// numberWords maps the spoken digit words accepted by the toggle-cell rule.
// Digit words are recognised only where a rule documents it; everywhere
// else only digit forms count.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9,
}

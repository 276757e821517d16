// This file contains the interpreter: an ordered rule set mapping one
// normalized utterance to exactly one Action. Rule order is load-bearing;
// the first matching rule wins and later rules are never consulted.

package command

import (
	"regexp"
	"strconv"
	"strings"
)

// rule pairs a human-readable name (used in logs and metrics) with a match
// function. match returns ok=false when the rule does not apply, letting
// evaluation fall through to the next rule.
type rule struct {
	name  string
	match func(text string) (Action, bool)
}

var (
	nextRe       = regexp.MustCompile(`\bnext( cell)?\b`)
	prevRe       = regexp.MustCompile(`\b(?:previous|prev)( cell)?\b`)
	selectCellRe = regexp.MustCompile(`\bselect (?:cell|block)(?: number)? ([0-9]+)\b`)
	toggleCellRe = regexp.MustCompile(`\btoggle cell (?:([1-9])|(one|two|three|four|five|six|seven|eight|nine))\b`)
	subListRe    = regexp.MustCompile(`\bselect sub ?cells? (.+)$`)
	selectWordRe = regexp.MustCompile(`\bselect\b`)
	boxRe        = regexp.MustCompile(`\b(check|uncheck|toggle|mark|clear) box(?: number)? ([1-9])\b`)
	toggleAllRe  = regexp.MustCompile(`\btoggle all\b`)
	turnOnRe     = regexp.MustCompile(`\b(?:turn on|mark|enable|set on|check)\b`)
	turnOffRe    = regexp.MustCompile(`\b(?:turn off|clear|unmark|disable|set off|uncheck)\b`)
)

// rules is evaluated in strict priority order. Reordering entries changes
// observable behaviour ("select cell 5" must never reach the select-sub
// rule, "uncheck" must never reach the turn-on rule), so the order is
// covered by regression tests rather than comments.
var rules = []rule{
	{"next-cell", func(text string) (Action, bool) {
		if nextRe.MatchString(text) {
			return NextCell(), true
		}
		return None, false
	}},
	{"prev-cell", func(text string) (Action, bool) {
		if prevRe.MatchString(text) {
			return PrevCell(), true
		}
		return None, false
	}},
	{"select-cell", func(text string) (Action, bool) {
		m := selectCellRe.FindStringSubmatch(text)
		if m == nil {
			return None, false
		}
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= GridCells {
			return GoToCell(n - 1), true
		}
		return CellNotFound(n), true
	}},
	{"toggle-cell", func(text string) (Action, bool) {
		m := toggleCellRe.FindStringSubmatch(text)
		if m == nil {
			return None, false
		}
		var n int
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		} else {
			n = numberWords[m[2]]
		}
		return ApplyToSub(clampSub(n-1), OpToggle), true
	}},
	{"cell-number", func(text string) (Action, bool) {
		if idx, ok := CellNumber(text); ok {
			return GoToCell(idx), true
		}
		return None, false
	}},
	{"select-sub-cells", func(text string) (Action, bool) {
		m := subListRe.FindStringSubmatch(text)
		if m == nil {
			return None, false
		}
		subs := parseSubList(m[1])
		if len(subs) == 0 {
			return None, false
		}
		return SelectSubCells(subs), true
	}},
	{"select-sub", func(text string) (Action, bool) {
		if !selectWordRe.MatchString(text) {
			return None, false
		}
		if idx, ok := SubPosition(text); ok {
			return SelectSub(idx), true
		}
		return None, false
	}},
	{"box", func(text string) (Action, bool) {
		m := boxRe.FindStringSubmatch(text)
		if m == nil {
			return None, false
		}
		n, _ := strconv.Atoi(m[2])
		var op Op
		switch m[1] {
		case "uncheck", "clear":
			op = OpTurnOff
		case "check", "mark":
			op = OpTurnOn
		default:
			op = OpToggle
		}
		return ApplyToSub(n-1, op), true
	}},
	{"toggle-all", func(text string) (Action, bool) {
		if toggleAllRe.MatchString(text) {
			return Toggle(), true
		}
		return None, false
	}},
	{"turn-on", func(text string) (Action, bool) {
		if turnOnRe.MatchString(text) {
			return TurnOn(), true
		}
		return None, false
	}},
	{"turn-off", func(text string) (Action, bool) {
		if turnOffRe.MatchString(text) {
			return TurnOff(), true
		}
		return None, false
	}},
}

// Interpret maps one finalized utterance to an Action. It is total,
// deterministic, and side-effect free: the same input always yields the
// same Action, and no input produces an error. Empty or whitespace-only
// input yields None before any normalization or rule evaluation.
func Interpret(text string) Action {
	a, _ := Classify(text)
	return a
}

// Classify is Interpret plus the name of the matched rule, for logging and
// metrics. The rule name is "" when no rule matched.
func Classify(text string) (Action, string) {
	if strings.TrimSpace(text) == "" {
		return None, ""
	}
	norm := Normalize(text)
	for _, r := range rules {
		if a, ok := r.match(norm); ok {
			return a, r.name
		}
	}
	return None, ""
}

// parseSubList extracts all digits 1-9 from a spoken list such as
// "4, 5 and 6" or "6 5 4", deduplicates them, sorts ascending, and
// converts to 0-based sub-cell indices.
func parseSubList(tail string) []int {
	seen := [SubCells]bool{}
	count := 0
	for _, r := range tail {
		if r >= '1' && r <= '9' {
			idx := int(r - '1')
			if !seen[idx] {
				seen[idx] = true
				count++
			}
		}
	}
	if count == 0 {
		return nil
	}
	// Walking the seen array yields the indices already deduplicated and
	// in ascending order, regardless of the spoken order.
	subs := make([]int, 0, count)
	for i, ok := range seen {
		if ok {
			subs = append(subs, i)
		}
	}
	return subs
}

// clampSub clamps a sub-cell index into 0..8. The toggle-cell rule clamps
// defensively even though its pattern only admits 1-9.
func clampSub(n int) int {
	if n < 0 {
		return 0
	}
	if n >= SubCells {
		return SubCells - 1
	}
	return n
}

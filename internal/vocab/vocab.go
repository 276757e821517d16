// Package vocab snaps noisy speech-to-text output onto the closed grid
// command vocabulary before interpretation.
//
// STT engines routinely mangle short command words ("selekt", "togle",
// "sell" for "cell"). Because the interpreter's vocabulary is closed and
// small, misheard words can be corrected without any language model: each
// unknown token is compared against the vocabulary using Double Metaphone
// phonetic encoding for candidate filtering and Jaro-Winkler similarity
// for ranking. Tokens that already belong to the vocabulary, and digit
// tokens, pass through untouched, so correction never changes the meaning
// of a well-recognised utterance.
package vocab

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Words is the closed command vocabulary: every word the interpreter's
// rules and the lexicon can consume.
var Words = []string{
	"next", "previous", "prev",
	"select", "cell", "block", "sub", "subcell", "subcells", "cells",
	"go", "to", "row", "column", "col", "number",
	"toggle", "check", "uncheck", "mark", "unmark", "clear",
	"enable", "disable", "set", "turn", "on", "off", "box", "all", "and",
	"top", "middle", "bottom", "left", "right", "center",
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
}

// Option is a functional option for configuring a Corrector.
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched word to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate is found and the corrector falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// WithWords replaces the default vocabulary. Intended for tests.
func WithWords(words []string) Option {
	return func(c *Corrector) { c.words = words }
}

// Corrector snaps unknown tokens onto the command vocabulary. It is
// read-only after construction and safe for concurrent use.
type Corrector struct {
	phoneticThreshold float64
	fuzzyThreshold    float64

	words []string
	known map[string]struct{}
	codes map[string][]string
}

// New returns a Corrector over the default vocabulary, or over the words
// supplied via WithWords.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		words:             Words,
	}
	for _, o := range opts {
		o(c)
	}

	c.known = make(map[string]struct{}, len(c.words))
	c.codes = make(map[string][]string, len(c.words))
	for _, w := range c.words {
		c.known[w] = struct{}{}
		p, s := matchr.DoubleMetaphone(w)
		var codes []string
		if p != "" {
			codes = append(codes, p)
		}
		if s != "" {
			codes = append(codes, s)
		}
		c.codes[w] = codes
	}
	return c
}

// Correct rewrites text token by token, replacing each unknown word with
// its best vocabulary match when one clears the thresholds. Vocabulary
// words, digit tokens, and unmatched words pass through unchanged, as does
// token order. Trailing commas are preserved.
func (c *Corrector) Correct(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return ""
	}

	out := make([]string, len(fields))
	for i, tok := range fields {
		core := strings.TrimSuffix(tok, ",")
		suffix := tok[len(core):]
		out[i] = c.correctToken(core) + suffix
	}
	return strings.Join(out, " ")
}

// correctToken maps one lower-case token to the best vocabulary word, or
// returns it unchanged.
func (c *Corrector) correctToken(tok string) string {
	if tok == "" || isDigits(tok) {
		return tok
	}
	if _, ok := c.known[tok]; ok {
		return tok
	}

	p, s := matchr.DoubleMetaphone(tok)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, w := range c.words {
		score := matchr.JaroWinkler(tok, w, false)
		phonetic := codesOverlap(p, s, c.codes[w])

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				best, bestScore, bestPhonetic = w, score, true
			}
		case !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore:
			best, bestScore = w, score
		}
	}

	if best == "" {
		return tok
	}
	return best
}

// codesOverlap reports whether either metaphone code of the input token
// appears among the vocabulary word's codes.
func codesOverlap(p, s string, wordCodes []string) bool {
	for _, code := range wordCodes {
		if code != "" && (code == p || code == s) {
			return true
		}
	}
	return false
}

// isDigits reports whether tok consists solely of ASCII digits.
func isDigits(tok string) bool {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

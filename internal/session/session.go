// Package session owns the per-client command pipeline: each connected
// client gets one Session holding its grid state, and every finalized
// utterance flows through correction, interpretation, and reduction under
// the session's lock.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/gridvoice/internal/observe"
	"github.com/MrWong99/gridvoice/internal/store"
	"github.com/MrWong99/gridvoice/internal/vocab"
	"github.com/MrWong99/gridvoice/pkg/command"
	"github.com/MrWong99/gridvoice/pkg/grid"
)

// Feedback strings sent back to the client for utterances that produce no
// grid change.
const (
	FeedbackNotUnderstood = "Command not understood."
	feedbackCellNotFound  = "Cell %d not found. Cells are 1 to 24."
)

// Outcome labels used in metrics and logs.
const (
	outcomeApplied       = "applied"
	outcomeNotFound      = "cell_not_found"
	outcomeNotUnderstood = "not_understood"
)

// Result is everything a client learns about one handled utterance.
type Result struct {
	// Recognized is the transcript after vocabulary correction, i.e. the
	// text that was actually interpreted.
	Recognized string

	// Action is the interpreted command, possibly command.None.
	Action command.Action

	// Rule names the interpreter rule that matched, empty for none.
	Rule string

	// Feedback is a user-facing message for utterances that changed
	// nothing. Empty when the action applied cleanly.
	Feedback string

	// State is the grid state after applying the action.
	State grid.State
}

// Session holds one client's grid and serialises utterance handling.
// All methods are safe for concurrent use; utterances are applied strictly
// in the order HandleUtterance is called.
type Session struct {
	id        string
	corrector *vocab.Corrector
	store     store.Store
	metrics   *observe.Metrics

	mu    sync.Mutex
	state grid.State
}

// Option configures a [Session].
type Option func(*Session)

// WithCorrector enables vocabulary correction of transcripts before
// interpretation. A nil corrector disables correction.
func WithCorrector(c *vocab.Corrector) Option {
	return func(s *Session) { s.corrector = c }
}

// WithStore enables snapshot persistence after every applied action.
func WithStore(st store.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithInitialState seeds the session with a previously stored grid state
// instead of a fresh one.
func WithInitialState(st grid.State) Option {
	return func(s *Session) { s.state = st.Clone() }
}

// New creates a session with a fresh grid.
func New(id string, opts ...Option) *Session {
	s := &Session{
		id:    id,
		state: grid.NewState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a copy of the current grid state.
func (s *Session) State() grid.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// HandleUtterance runs one finalized transcript through the full pipeline:
// vocabulary correction, interpretation, reduction, and persistence. The
// returned Result always carries the post-action state; the error is
// non-nil only when persisting the snapshot failed, in which case the
// in-memory state is still updated and authoritative.
func (s *Session) HandleUtterance(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "session.utterance")
	defer span.End()

	recognized := text
	if s.corrector != nil {
		recognized = s.corrector.Correct(text)
	}

	interpretStart := time.Now()
	action, rule := command.Classify(recognized)
	s.metrics.InterpretDuration.Record(ctx, time.Since(interpretStart).Seconds())

	res := Result{
		Recognized: recognized,
		Action:     action,
		Rule:       rule,
	}

	outcome := outcomeApplied
	switch action.Kind {
	case command.KindNone:
		outcome = outcomeNotUnderstood
		// Silence is not a failed command; only non-empty input earns
		// feedback.
		if strings.TrimSpace(text) != "" {
			res.Feedback = FeedbackNotUnderstood
		}
	case command.KindCellNotFound:
		outcome = outcomeNotFound
		res.Feedback = fmt.Sprintf(feedbackCellNotFound, action.Requested)
	}

	s.mu.Lock()
	s.state = grid.Apply(s.state, action)
	res.State = s.state.Clone()
	s.mu.Unlock()

	s.metrics.RecordUtterance(ctx, outcome, rule)
	if outcome == outcomeApplied {
		s.metrics.RecordAction(ctx, action.Kind.String())
	}
	s.metrics.UtteranceDuration.Record(ctx, time.Since(start).Seconds())

	observe.Logger(ctx).Debug("utterance handled",
		"session", s.id,
		"outcome", outcome,
		"rule", rule,
		"action", action.Kind.String(),
	)

	if s.store != nil && outcome == outcomeApplied {
		if err := s.store.Save(ctx, s.id, res.State); err != nil {
			return res, fmt.Errorf("session: persist snapshot: %w", err)
		}
	}
	return res, nil
}

// Package mock provides a scripted stt.Provider for tests. Sessions emit a
// fixed sequence of final transcripts, one per SendAudio call, so tests can
// drive the speech pipeline without audio input or a loaded model.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/gridvoice/pkg/provider/stt"
)

// Compile-time assertions.
var (
	_ stt.Provider      = (*Provider)(nil)
	_ stt.SessionHandle = (*Session)(nil)
)

// Provider is a scripted stt.Provider. Each StartStream call returns a new
// Session that replays the configured transcripts.
type Provider struct {
	// Transcripts is the script replayed by each session: the i-th
	// SendAudio call emits the i-th entry as a final transcript. Calls
	// beyond the script length emit nothing.
	Transcripts []string

	// StartErr, when non-nil, is returned by StartStream.
	StartErr error

	// Latency, when non-zero, is stamped on every emitted transcript as
	// the simulated inference time.
	Latency time.Duration

	mu       sync.Mutex
	sessions []*Session
}

// StartStream returns a new scripted session.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{
		Config:   cfg,
		script:   p.Transcripts,
		latency:  p.Latency,
		partials: make(chan stt.Transcript, 16),
		finals:   make(chan stt.Transcript, 16),
		errs:     make(chan error, 16),
		done:     make(chan struct{}),
	}
	p.mu.Lock()
	p.sessions = append(p.sessions, s)
	p.mu.Unlock()
	return s, nil
}

// Sessions returns all sessions opened so far.
func (p *Provider) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Session is a scripted stt.SessionHandle.
type Session struct {
	// Config is the StreamConfig the session was opened with.
	Config stt.StreamConfig

	script   []string
	latency  time.Duration
	partials chan stt.Transcript
	finals   chan stt.Transcript
	errs     chan error

	mu     sync.Mutex
	calls  int
	closed bool
	done   chan struct{}
}

// SendAudio ignores the chunk content and emits the next scripted final.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("mock: session is closed: %w", stt.ErrAborted)
	}
	if s.calls < len(s.script) {
		text := s.script[s.calls]
		s.partials <- stt.Transcript{Text: text, Latency: s.latency}
		s.finals <- stt.Transcript{Text: text, IsFinal: true, Latency: s.latency}
	}
	s.calls++
	return nil
}

// Emit pushes text as a final transcript, bypassing the SendAudio script.
// Lets tests simulate engine output without driving audio through the
// session.
func (s *Session) Emit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.finals <- stt.Transcript{Text: text, IsFinal: true, Latency: s.latency}
}

// Fail injects err onto the session's error channel, simulating an
// asynchronous engine failure.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.errs <- err
}

// AudioCalls reports how many SendAudio calls were made.
func (s *Session) AudioCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Partials returns the interim transcript channel.
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals returns the finalized transcript channel.
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// Errs returns the asynchronous error channel.
func (s *Session) Errs() <-chan error { return s.errs }

// Close closes the transcript channels. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.partials)
	close(s.finals)
	close(s.errs)
	return nil
}

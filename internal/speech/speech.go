// Package speech adapts a speech-to-text provider into the audio path of a
// grid session: it decodes the client's Opus frames, forwards PCM to the
// provider, and surfaces finalized transcripts.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/gridvoice/pkg/provider/stt"
)

// Sentinel errors for conditions that are part of normal operation. Sessions
// treat these as transient: they are logged and counted but do not tear down
// the connection. Providers produce them; they are re-exported here so the
// rest of the server does not import the provider package for error checks.
var (
	// ErrNoSpeech means an utterance window contained no recognisable speech.
	ErrNoSpeech = stt.ErrNoSpeech

	// ErrAborted means the utterance was cut off before it could finalize,
	// e.g. because the client stopped streaming mid-word.
	ErrAborted = stt.ErrAborted
)

// Transient reports whether err is one of the sentinel conditions a session
// should absorb rather than surface to the client.
func Transient(err error) bool {
	return errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrAborted)
}

// Config tunes a [Source].
type Config struct {
	// Language is the recognition language tag passed to the provider.
	Language string

	// Hints biases recognition toward the command vocabulary.
	Hints []string
}

// Source owns one provider stream for one client connection. Audio goes in
// via [Source.WriteOpus]; finalized transcripts come out of [Source.Finals].
// All methods are safe for concurrent use.
type Source struct {
	provider stt.Provider
	cfg      Config

	mu      sync.Mutex
	dec     *Decoder
	session stt.SessionHandle
	started bool
	closed  bool
}

// NewSource creates a [Source] on top of the given provider. Call
// [Source.Start] before writing audio.
func NewSource(provider stt.Provider, cfg Config) *Source {
	return &Source{provider: provider, cfg: cfg}
}

// Start opens the provider stream and the Opus decoder. Calling Start twice
// is an error.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("speech: source already started")
	}
	if s.closed {
		return errors.New("speech: source closed")
	}

	dec, err := NewDecoder()
	if err != nil {
		return err
	}

	session, err := s.provider.StartStream(ctx, stt.StreamConfig{
		SampleRate: SampleRate,
		Channels:   Channels,
		Language:   s.cfg.Language,
		Hints:      s.cfg.Hints,
	})
	if err != nil {
		return fmt.Errorf("speech: start stream: %w", err)
	}

	s.dec = dec
	s.session = session
	s.started = true
	return nil
}

// WriteOpus decodes one Opus frame and forwards the PCM to the provider.
func (s *Source) WriteOpus(frame []byte) error {
	s.mu.Lock()
	session := s.session
	dec := s.dec
	s.mu.Unlock()

	if session == nil {
		return errors.New("speech: source not started")
	}

	pcm, err := dec.Decode(frame)
	if err != nil {
		return err
	}
	if err := session.SendAudio(pcm); err != nil {
		return fmt.Errorf("speech: send audio: %w", err)
	}
	return nil
}

// Finals returns the channel of finalized transcripts. The channel is closed
// when the source is closed. Returns nil before Start.
func (s *Source) Finals() <-chan stt.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.Finals()
}

// Partials returns the channel of interim transcripts. Returns nil before
// Start.
func (s *Source) Partials() <-chan stt.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.Partials()
}

// Errs returns the channel of asynchronous provider errors. Returns nil
// before Start. Use [Transient] to decide whether a received error should
// be surfaced to the client.
func (s *Source) Errs() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.Errs()
}

// Close shuts down the provider session. Close is idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}

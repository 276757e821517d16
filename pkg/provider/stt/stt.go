// Package stt defines the Provider interface for speech-to-text backends.
//
// A provider wraps a transcription engine (a local whisper.cpp model, or a
// scripted mock in tests) and exposes a uniform streaming interface. Once a
// session is opened it accepts raw PCM audio frames and emits two streams
// of Transcript values: low-latency partials for display and authoritative
// finals that drive command interpretation. Only finals ever reach the
// interpreter; partials are advisory.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"time"
)

// Sentinel conditions a session reports during normal operation. Callers
// match them with [errors.Is]; both mark transient trouble that should not
// tear down the stream.
var (
	// ErrNoSpeech means a detected utterance produced no recognisable text.
	ErrNoSpeech = errors.New("stt: no speech detected")

	// ErrAborted means the stream was cut off before the current utterance
	// could finalize, e.g. because the session closed mid-word.
	ErrAborted = errors.New("stt: stream aborted")
)

// Transcript is one speech-to-text result. Both partial (interim) and
// final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal marks an authoritative result. Partial transcripts are
	// display-only and must not be interpreted as commands.
	IsFinal bool

	// Confidence is the overall confidence score (0.0-1.0). Zero when the
	// engine does not report confidence.
	Confidence float64

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration

	// Latency is the time the engine spent producing this transcript,
	// measured from inference start. Zero when the engine does not
	// report it.
	Latency time.Duration
}

// StreamConfig describes the audio format and recognition hints for a new
// transcription session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common values: 16000
	// (STT-optimised mono), 48000 (Opus decode output).
	SampleRate int

	// Channels is the number of audio channels. Implementations may
	// downmix multi-channel input internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g. "en").
	// Empty lets the engine use its default.
	Language string

	// Hints is the closed command vocabulary ("select", "toggle", "cell",
	// digit words, position words). Engines that support vocabulary
	// biasing use it to improve recognition of command words; others
	// ignore it.
	Hints []string
}

// SessionHandle is an open streaming transcription session.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak the processing goroutine. All methods are safe for
// concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw 16-bit little-endian signed PCM
	// audio matching the StreamConfig format. Calling SendAudio after
	// Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting interim transcripts.
	// Closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting finalized transcripts,
	// one per detected utterance. Closed when the session ends.
	Finals() <-chan Transcript

	// Errs returns a read-only channel emitting asynchronous session
	// errors: failed inference, or [ErrNoSpeech] when a detected
	// utterance produced no text. Closed when the session ends. The
	// session keeps running after reporting an error.
	Errs() <-chan error

	// Close terminates the session, flushes pending audio, and closes the
	// Partials and Finals channels. Calling Close more than once is safe.
	Close() error
}

// Provider is the abstraction over any STT backend. Multiple sessions may
// be open simultaneously (one per connected client).
type Provider interface {
	// StartStream opens a new transcription session. The returned handle
	// is ready to accept audio immediately. The caller owns the handle
	// and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

// Package whisper implements stt.Provider on the whisper.cpp CGO bindings.
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h)
// must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
//
// The model is loaded once at startup and shared across all sessions; each
// session runs inference in its own whisper context. Utterance boundaries
// are detected by RMS silence analysis: audio is buffered while speech is
// present and flushed to the model after a configurable stretch of
// silence, producing one final Transcript per spoken command.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/gridvoice/pkg/provider/stt"
)

const (
	// bitsPerSample is fixed at 16 for the signed little-endian PCM input
	// format this provider accepts.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit
	// PCM sample units) below which a chunk counts as silence.
	defaultRMSThreshold = 300.0

	defaultLanguage         = "en"
	defaultSampleRate       = 16000
	defaultSilenceThreshold = 500 * time.Millisecond
	defaultMaxUtterance     = 10 * time.Second
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the whisper.cpp Go bindings.
type Provider struct {
	model    whisperlib.Model
	language string

	sampleRate       int
	silenceThreshold time.Duration
	maxUtterance     time.Duration
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the language code for transcription (e.g. "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate sets the expected input sample rate in Hz. Must match the
// PCM delivered via SendAudio. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithSilenceThreshold sets the consecutive-silence duration that finalizes
// the current utterance. Defaults to 500 ms.
func WithSilenceThreshold(d time.Duration) Option {
	return func(p *Provider) { p.silenceThreshold = d }
}

// WithMaxUtterance sets the maximum buffered utterance duration before a
// forced flush. Defaults to 10 s.
func WithMaxUtterance(d time.Duration) Option {
	return func(p *Provider) { p.maxUtterance = d }
}

// New creates a Provider that loads the whisper.cpp model from modelPath.
// The caller must call Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:            model,
		language:         defaultLanguage,
		sampleRate:       defaultSampleRate,
		silenceThreshold: defaultSilenceThreshold,
		maxUtterance:     defaultMaxUtterance,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// StartStream opens a new transcription session. cfg.SampleRate,
// cfg.Channels, and cfg.Language override the provider defaults when set.
// cfg.Hints is ignored: whisper.cpp has no vocabulary-biasing API.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = p.sampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	s := &session{
		model:            p.model,
		language:         lang,
		sampleRate:       sr,
		channels:         ch,
		silenceThreshold: p.silenceThreshold,
		maxUtterance:     p.maxUtterance,

		audioCh:  make(chan []byte, 256),
		partials: make(chan stt.Transcript, 64),
		finals:   make(chan stt.Transcript, 64),
		errs:     make(chan error, 16),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.processLoop(ctx)

	return s, nil
}

// session is a live whisper transcription session. All mutable state
// driving silence detection and buffering is confined to processLoop.
type session struct {
	model            whisperlib.Model
	language         string
	sampleRate       int
	channels         int
	silenceThreshold time.Duration
	maxUtterance     time.Duration

	audioCh  chan []byte
	partials chan stt.Transcript
	finals   chan stt.Transcript
	errs     chan error

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Compile-time assertion that session satisfies stt.SessionHandle.
var _ stt.SessionHandle = (*session)(nil)

// SendAudio queues a chunk of raw 16-bit little-endian signed PCM audio.
// Writing to a closed session reports stt.ErrAborted: the stream ended
// before this chunk's utterance could finalize.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return fmt.Errorf("whisper: session is closed: %w", stt.ErrAborted)
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return fmt.Errorf("whisper: session is closed: %w", stt.ErrAborted)
	}
}

// Partials returns the interim transcript channel.
func (s *session) Partials() <-chan stt.Transcript { return s.partials }

// Finals returns the finalized transcript channel.
func (s *session) Finals() <-chan stt.Transcript { return s.finals }

// Errs returns the asynchronous error channel.
func (s *session) Errs() <-chan error { return s.errs }

// Close terminates the session, flushes buffered speech, and closes the
// transcript channels.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// processLoop is the single goroutine responsible for silence detection,
// audio buffering, and inference dispatch.
func (s *session) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.partials)
	defer close(s.finals)
	defer close(s.errs)

	var (
		buffer    []byte
		hadSpeech bool
		silence   time.Duration
	)

	bytesPerMs := s.sampleRate * s.channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := int(s.maxUtterance.Milliseconds()) * bytesPerMs

	report := func(err error) {
		select {
		case s.errs <- err:
		default:
			slog.Warn("whisper: error channel full, dropping", "err", err)
		}
	}

	flush := func() {
		if len(buffer) == 0 || !hadSpeech {
			buffer = nil
			hadSpeech = false
			silence = 0
			return
		}

		pcm := buffer
		buffer = nil
		hadSpeech = false
		silence = 0

		inferStart := time.Now()
		text, err := s.infer(pcm)
		if err != nil {
			report(err)
			return
		}
		if text == "" {
			report(fmt.Errorf("whisper: utterance of %d bytes: %w", len(pcm), stt.ErrNoSpeech))
			return
		}

		dur := time.Duration(len(pcm)/bytesPerMs) * time.Millisecond
		lat := time.Since(inferStart)
		select {
		case s.partials <- stt.Transcript{Text: text, Duration: dur, Latency: lat}:
		default:
		}
		// Finals drive commands and must not be dropped silently. When the
		// buffer is full, wait for the consumer unless the session is
		// already tearing down.
		final := stt.Transcript{Text: text, IsFinal: true, Duration: dur, Latency: lat}
		select {
		case s.finals <- final:
		default:
			select {
			case s.finals <- final:
			case <-s.done:
				slog.Warn("whisper: session closing, dropping final transcript", "text", text)
			case <-ctx.Done():
				slog.Warn("whisper: context cancelled, dropping final transcript", "text", text)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case <-s.done:
			flush()
			return

		case chunk, ok := <-s.audioCh:
			if !ok {
				flush()
				return
			}

			chunkDur := chunkDuration(chunk, s.sampleRate, s.channels)

			if computeRMS(chunk) < defaultRMSThreshold {
				if hadSpeech {
					silence += chunkDur
					buffer = append(buffer, chunk...)
					if silence >= s.silenceThreshold {
						flush()
					}
				}
			} else {
				hadSpeech = true
				silence = 0
				buffer = append(buffer, chunk...)
				if maxBufferBytes > 0 && len(buffer) >= maxBufferBytes {
					flush()
				}
			}
		}
	}
}

// infer converts the buffered PCM audio to float32 mono, runs whisper.cpp
// inference in a fresh context, and returns the concatenated text.
func (s *session) infer(pcm []byte) (string, error) {
	samples := pcmToFloat32Mono(pcm, s.channels)

	// A whisper context is not thread-safe, but the model can be shared.
	wctx, err := s.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(s.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", s.language, "err", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

package whisper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/gridvoice/pkg/provider/stt"
)

// newSilentSession builds a session without a loaded model. Inference is
// only reached when speech is buffered, so tests driving silence exercise
// the full lifecycle model-free.
func newSilentSession(ctx context.Context) *session {
	s := &session{
		sampleRate:       16000,
		channels:         1,
		silenceThreshold: 10 * time.Millisecond,
		maxUtterance:     time.Second,
		audioCh:          make(chan []byte, 16),
		partials:         make(chan stt.Transcript, 4),
		finals:           make(chan stt.Transcript, 4),
		errs:             make(chan error, 4),
		done:             make(chan struct{}),
	}
	s.wg.Add(1)
	go s.processLoop(ctx)
	return s
}

func TestSession_SilenceEmitsNothing(t *testing.T) {
	t.Parallel()

	s := newSilentSession(context.Background())

	// 100 ms of digital silence.
	quiet := make([]byte, 3200)
	if err := s.SendAudio(quiet); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// All channels must close without having carried a value.
	for tr := range s.Finals() {
		t.Errorf("unexpected final %q from silence", tr.Text)
	}
	for tr := range s.Partials() {
		t.Errorf("unexpected partial %q from silence", tr.Text)
	}
	for err := range s.Errs() {
		t.Errorf("unexpected session error from silence: %v", err)
	}
}

func TestSession_SendAudioAfterClose(t *testing.T) {
	t.Parallel()

	s := newSilentSession(context.Background())
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := s.SendAudio(make([]byte, 64))
	if err == nil {
		t.Fatal("SendAudio after Close should fail")
	}
	if !errors.Is(err, stt.ErrAborted) {
		t.Errorf("error = %v, want stt.ErrAborted", err)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newSilentSession(context.Background())
	for range 3 {
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

package whisper

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// pcmFromSamples builds little-endian PCM bytes from int16 samples.
func pcmFromSamples(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestPCMToFloat32(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(0, 16384, -16384, 32767, -32768)
	got := pcmToFloat32(pcm)

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32Mono_Downmix(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (16384, -16384) averages to 0, (16384, 16384) to 0.5.
	pcm := pcmFromSamples(16384, -16384, 16384, 16384)
	got := pcmToFloat32Mono(pcm, 2)

	if len(got) != 2 {
		t.Fatalf("got %d mono samples, want 2", len(got))
	}
	if math.Abs(float64(got[0])) > 1e-6 {
		t.Errorf("frame 0 = %f, want 0", got[0])
	}
	if math.Abs(float64(got[1]-0.5)) > 1e-6 {
		t.Errorf("frame 1 = %f, want 0.5", got[1])
	}
}

func TestComputeRMS(t *testing.T) {
	t.Parallel()

	if rms := computeRMS(nil); rms != 0 {
		t.Errorf("RMS of empty input = %f, want 0", rms)
	}
	if rms := computeRMS(pcmFromSamples(0, 0, 0, 0)); rms != 0 {
		t.Errorf("RMS of silence = %f, want 0", rms)
	}
	if rms := computeRMS(pcmFromSamples(1000, -1000, 1000, -1000)); math.Abs(rms-1000) > 1e-9 {
		t.Errorf("RMS of constant amplitude = %f, want 1000", rms)
	}

	// Silence must sit below the flush threshold, speech above it.
	if rms := computeRMS(pcmFromSamples(50, -50)); rms >= defaultRMSThreshold {
		t.Errorf("quiet chunk RMS %f not below threshold %f", rms, defaultRMSThreshold)
	}
	if rms := computeRMS(pcmFromSamples(5000, -5000)); rms < defaultRMSThreshold {
		t.Errorf("loud chunk RMS %f not above threshold %f", rms, defaultRMSThreshold)
	}
}

func TestChunkDuration(t *testing.T) {
	t.Parallel()

	// 16 kHz mono 16-bit: 32 bytes per millisecond.
	chunk := make([]byte, 320)
	if d := chunkDuration(chunk, 16000, 1); d != 10*time.Millisecond {
		t.Errorf("duration = %v, want 10ms", d)
	}

	// 48 kHz stereo 16-bit: 192 bytes per millisecond.
	chunk = make([]byte, 1920)
	if d := chunkDuration(chunk, 48000, 2); d != 10*time.Millisecond {
		t.Errorf("duration = %v, want 10ms", d)
	}

	if d := chunkDuration(chunk, 0, 1); d != 0 {
		t.Errorf("duration with invalid rate = %v, want 0", d)
	}
}

func TestNew_EmptyModelPath(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty model path")
	}
}

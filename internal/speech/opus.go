package speech

import (
	"fmt"

	"layeh.com/gopus"
)

// Clients stream 48 kHz stereo Opus at 20 ms frame size, the WebRTC default.
const (
	SampleRate  = 48000
	Channels    = 2
	frameSizeMs = 20
	// frameSize is the number of samples per channel per 20 ms frame.
	frameSize = SampleRate * frameSizeMs / 1000 // 960
)

// Decoder wraps a gopus Opus decoder for a single client stream. Each
// connection gets its own decoder to maintain decoder state correctly
// across consecutive frames.
type Decoder struct {
	dec *gopus.Decoder
}

// NewDecoder creates an Opus decoder configured for the client audio format.
func NewDecoder() (*Decoder, error) {
	dec, err := gopus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("speech: create opus decoder: %w", err)
	}
	return &Decoder{dec: dec}, nil
}

// Decode decodes one Opus packet into interleaved PCM int16 samples and
// returns the result as little-endian bytes, the format providers consume.
func (d *Decoder) Decode(opus []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(opus, frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("speech: opus decode: %w", err)
	}
	return int16sToBytes(pcm), nil
}

// int16sToBytes converts a slice of int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

package synthesize

import (
	"context"
	"encoding/binary"
)

// MockSynthesizer is a local fallback used when no Deepgram key is
// configured. It emits a short burst of silent PCM16 samples whose length
// scales with the sentence so streaming still behaves realistically.
type MockSynthesizer struct{}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (s *MockSynthesizer) Format() string { return "pcm16" }

func (s *MockSynthesizer) Synthesize(ctx context.Context, sentence string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	// Roughly 50ms of 16kHz mono silence per word keeps playback plausible.
	words := 1
	for _, r := range sentence {
		if r == ' ' {
			words++
		}
	}
	samples := words * 800
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], 0)
	}
	return out, nil
}

package transcribe

import "context"

// MockTranscriber is a local fallback used when no Deepgram key is configured.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (t *MockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if len(audio) == 0 {
		return "", nil
	}
	return "simulated voice input", nil
}

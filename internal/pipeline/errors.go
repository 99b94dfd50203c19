package pipeline

import (
	"errors"
	"fmt"
)

// Expected per-turn outcomes modelled as values rather than failures.
var (
	// ErrNoAudio reports a turn boundary with zero accumulated fragments.
	ErrNoAudio = errors.New("no audio data received")
	// ErrNoSpeech reports a transcription that heard nothing intelligible.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrTurnInFlight reports a turn-starting message while the previous
	// turn is still being processed.
	ErrTurnInFlight = errors.New("previous turn still in progress")
)

// TranscriptionError wraps a speech-to-text provider failure.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return fmt.Sprintf("transcription failed: %v", e.Err) }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// GenerationError wraps a model failure, including mid-stream aborts.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// SynthesisError wraps a text-to-speech failure for one sentence. Audio
// already delivered for earlier sentences is not retracted.
type SynthesisError struct {
	SentenceIndex int
	Err           error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed at sentence %d: %v", e.SentenceIndex, e.Err)
}
func (e *SynthesisError) Unwrap() error { return e.Err }

// Package synthesize adapts external text-to-speech capabilities behind a
// per-sentence call.
package synthesize

import "context"

// Synthesizer renders one sentence of text as encoded audio. Callers invoke
// it once per sentence so audio can stream out while later sentences are
// still being rendered.
type Synthesizer interface {
	Synthesize(ctx context.Context, sentence string) ([]byte, error)
	// Format names the container of the returned bytes, e.g. "mp3" or
	// "pcm16". Raw PCM needs a WAV wrapper before browsers can play it.
	Format() string
}

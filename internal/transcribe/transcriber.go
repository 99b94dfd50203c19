// Package transcribe adapts external speech-to-text capabilities behind a
// single blocking call.
package transcribe

import "context"

// Transcriber converts one turn's accumulated audio into plain text. Empty or
// whitespace-only output means the provider heard no speech; that outcome is
// distinct from a transport or service error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

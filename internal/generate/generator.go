// Package generate produces assistant replies from a user utterance and the
// recent conversation context.
package generate

import (
	"context"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/history"
)

// Request carries everything the model needs for one reply.
type Request struct {
	// UserText is the transcribed or typed utterance for this turn.
	UserText string
	// Window is the bounded slice of recent conversation entries, oldest
	// first. It never includes the current UserText.
	Window []history.Entry
	// SystemPreamble seeds the model persona. Implementations include it
	// only when Window is empty, matching a fresh conversation.
	SystemPreamble string
}

// Reply is the final assembled model output for one turn.
type Reply struct {
	Text string
}

// DeltaHandler receives each incremental text fragment as the model streams
// it. Handlers must be fast; a slow handler stalls the stream.
type DeltaHandler func(delta string) error

// Generator streams a reply for one turn. The full reply is returned even
// when deltas were delivered, so callers never reassemble fragments.
type Generator interface {
	Generate(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error)
}

package pipeline

import "bytes"

// Accumulator buffers one turn's audio fragments in arrival order. It is
// owned exclusively by a single connection loop and is not safe for
// concurrent use.
type Accumulator struct {
	buf    bytes.Buffer
	chunks int
}

// Append adds one decoded fragment and returns the running fragment count.
func (a *Accumulator) Append(fragment []byte) int {
	a.buf.Write(fragment)
	a.chunks++
	return a.chunks
}

func (a *Accumulator) Chunks() int {
	return a.chunks
}

// DrainAndReset returns the concatenation of all buffered fragments and
// clears the buffer so the next Append starts a fresh turn. An empty buffer
// yields ErrNoAudio rather than a zero-length slice.
func (a *Accumulator) DrainAndReset() ([]byte, error) {
	if a.chunks == 0 {
		return nil, ErrNoAudio
	}
	out := make([]byte, a.buf.Len())
	copy(out, a.buf.Bytes())
	a.buf.Reset()
	a.chunks = 0
	return out, nil
}

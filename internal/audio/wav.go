// Package audio provides a minimal WAV container wrapper for raw PCM output.
package audio

import (
	"bytes"
	"encoding/binary"
)

const (
	wavNumChannels   = 1
	wavBitsPerSample = 16
	wavFormatPCM     = 1
)

// WrapPCM16 wraps raw mono PCM16LE bytes in a WAV container so browsers and
// audio players can decode single-shot synthesis output directly.
func WrapPCM16(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * wavNumChannels * wavBitsPerSample / 8)
	blockAlign := uint16(wavNumChannels * wavBitsPerSample / 8)

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	writeLE(buf, uint32(36)+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeLE(buf, uint32(16))
	writeLE(buf, uint16(wavFormatPCM))
	writeLE(buf, uint16(wavNumChannels))
	writeLE(buf, uint32(sampleRate))
	writeLE(buf, byteRate)
	writeLE(buf, blockAlign)
	writeLE(buf, uint16(wavBitsPerSample))

	buf.WriteString("data")
	writeLE(buf, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}

func writeLE(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

// Package protocol defines the duplex websocket message set and its codec.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/history"
)

// MessageType identifies websocket payload variants.
type MessageType string

// Client -> server.
const (
	TypeAudioChunk MessageType = "audio_chunk"
	TypeEndTurn    MessageType = "end_turn"
	TypeText       MessageType = "text"
	TypePing       MessageType = "ping"
	TypeClose      MessageType = "close"
)

// Server -> client.
const (
	TypeAudioReceived MessageType = "audio_received"
	TypeTranscription MessageType = "transcription"
	TypeLLMStart      MessageType = "llm_start"
	TypeLLMChunk      MessageType = "llm_chunk"
	TypeLLMComplete   MessageType = "llm_complete"
	TypeTTSStart      MessageType = "tts_start"
	TypeTTSChunk      MessageType = "tts_chunk"
	TypeTTSComplete   MessageType = "tts_complete"
	TypeTurnComplete  MessageType = "turn_complete"
	TypeError         MessageType = "error"
	TypePong          MessageType = "pong"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// AudioChunk appends one base64-encoded audio fragment to the current turn buffer.
type AudioChunk struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// EndTurn flushes the buffer and starts the transcribe -> generate -> synthesize
// pipeline. A non-nil ConversationHistory replaces the server-side history first.
type EndTurn struct {
	Type                MessageType     `json:"type"`
	ConversationHistory []history.Entry `json:"conversation_history,omitempty"`
}

// TextTurn bypasses audio accumulation and transcription entirely.
type TextTurn struct {
	Type                MessageType     `json:"type"`
	Data                string          `json:"data"`
	ConversationHistory []history.Entry `json:"conversation_history,omitempty"`
}

type Ping struct {
	Type MessageType `json:"type"`
}

type Close struct {
	Type MessageType `json:"type"`
}

// AudioReceived acknowledges the running fragment count for the current turn.
type AudioReceived struct {
	Type   MessageType `json:"type"`
	Chunks int         `json:"chunks"`
}

type Transcription struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type LLMStart struct {
	Type MessageType `json:"type"`
}

// LLMChunk carries one streamed generation fragment.
type LLMChunk struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type LLMComplete struct {
	Type     MessageType `json:"type"`
	FullText string      `json:"full_text"`
}

type TTSStart struct {
	Type MessageType `json:"type"`
}

// TTSChunk carries one synthesized sentence. ChunkIndex is zero-based and
// strictly increasing within a turn; IsLast is true only on the final unit.
type TTSChunk struct {
	Type       MessageType `json:"type"`
	Audio      string      `json:"audio"`
	ChunkIndex int         `json:"chunk_index"`
	IsLast     bool        `json:"is_last"`
}

type TTSComplete struct {
	Type MessageType `json:"type"`
}

type TurnComplete struct {
	Type                MessageType     `json:"type"`
	ConversationHistory []history.Entry `json:"conversation_history"`
}

// ErrorMessage reports a recoverable per-turn failure; the session stays open.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type Pong struct {
	Type MessageType `json:"type"`
}

// ParseClientMessage decodes and validates one inbound websocket frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeAudioChunk:
		var msg AudioChunk
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Data == "" {
			return nil, errors.New("audio_chunk requires data")
		}
		return msg, nil
	case TypeEndTurn:
		var msg EndTurn
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeText:
		var msg TextTurn
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Data) == "" {
			return nil, errors.New("text requires data")
		}
		return msg, nil
	case TypePing:
		return Ping{Type: TypePing}, nil
	case TypeClose:
		return Close{Type: TypeClose}, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// Encode serializes one outbound message for the wire.
func Encode(msg any) ([]byte, error) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// TypeOf reports the wire type of a protocol message, for metrics labelling.
func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case AudioChunk:
		return m.Type, true
	case EndTurn:
		return m.Type, true
	case TextTurn:
		return m.Type, true
	case Ping:
		return m.Type, true
	case Close:
		return m.Type, true
	case AudioReceived:
		return m.Type, true
	case Transcription:
		return m.Type, true
	case LLMStart:
		return m.Type, true
	case LLMChunk:
		return m.Type, true
	case LLMComplete:
		return m.Type, true
	case TTSStart:
		return m.Type, true
	case TTSChunk:
		return m.Type, true
	case TTSComplete:
		return m.Type, true
	case TurnComplete:
		return m.Type, true
	case ErrorMessage:
		return m.Type, true
	case Pong:
		return m.Type, true
	default:
		return "", false
	}
}

package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestParseClientMessageAudioChunk(t *testing.T) {
	raw := []byte(`{"type":"audio_chunk","data":"AQIDBA=="}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chunk, ok := msg.(AudioChunk)
	if !ok {
		t.Fatalf("message type = %T, want AudioChunk", msg)
	}
	if chunk.Data != "AQIDBA==" {
		t.Fatalf("Data = %q", chunk.Data)
	}
}

func TestParseClientMessageRejectsEmptyAudio(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"audio_chunk","data":""}`)); err == nil {
		t.Fatalf("expected validation error for empty audio data")
	}
}

func TestParseClientMessageEndTurnWithHistory(t *testing.T) {
	raw := []byte(`{"type":"end_turn","conversation_history":[{"role":"user","content":"hi"}]}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	end, ok := msg.(EndTurn)
	if !ok {
		t.Fatalf("message type = %T, want EndTurn", msg)
	}
	if len(end.ConversationHistory) != 1 || end.ConversationHistory[0].Role != "user" {
		t.Fatalf("unexpected history: %+v", end.ConversationHistory)
	}
}

func TestParseClientMessageEndTurnWithoutHistory(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"end_turn"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	end, ok := msg.(EndTurn)
	if !ok {
		t.Fatalf("message type = %T, want EndTurn", msg)
	}
	if end.ConversationHistory != nil {
		t.Fatalf("ConversationHistory = %v, want nil", end.ConversationHistory)
	}
}

func TestParseClientMessageText(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"text","data":"Hi"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	txt, ok := msg.(TextTurn)
	if !ok {
		t.Fatalf("message type = %T, want TextTurn", msg)
	}
	if txt.Data != "Hi" {
		t.Fatalf("Data = %q", txt.Data)
	}
}

func TestParseClientMessageRejectsBlankText(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"text","data":"   "}`)); err == nil {
		t.Fatalf("expected validation error for blank text")
	}
}

func TestParseClientMessagePingAndClose(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(ping) error = %v", err)
	}
	if _, ok := msg.(Ping); !ok {
		t.Fatalf("message type = %T, want Ping", msg)
	}

	msg, err = ParseClientMessage([]byte(`{"type":"close"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(close) error = %v", err)
	}
	if _, ok := msg.(Close); !ok {
		t.Fatalf("message type = %T, want Close", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestEncodeTTSChunkWire(t *testing.T) {
	data, err := Encode(TTSChunk{Type: TypeTTSChunk, Audio: "QUJD", ChunkIndex: 2, IsLast: true})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var decoded map[string]any
	if err := sonic.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode wire frame: %v", err)
	}
	if decoded["type"] != string(TypeTTSChunk) {
		t.Fatalf("type = %v", decoded["type"])
	}
	if decoded["chunk_index"] != float64(2) {
		t.Fatalf("chunk_index = %v, want 2", decoded["chunk_index"])
	}
	if decoded["is_last"] != true {
		t.Fatalf("is_last = %v, want true", decoded["is_last"])
	}
	if !strings.Contains(string(data), `"audio"`) {
		t.Fatalf("missing audio field: %s", data)
	}
}

func BenchmarkParseClientMessageAudioChunk(b *testing.B) {
	raw := []byte(`{"type":"audio_chunk","data":"AQIDBAUGBwgJCgsMDQ4P"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(AudioChunk); !ok {
			b.Fatalf("message type = %T, want AudioChunk", msg)
		}
	}
}

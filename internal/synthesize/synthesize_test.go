package synthesize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDeepgramSynthesizerHappyPath(t *testing.T) {
	mp3 := []byte{0xFF, 0xFB, 0x90, 0x00}
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token k" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if !strings.Contains(r.URL.RawQuery, "model=aura-2-thalia-en") {
			t.Errorf("missing model query param: %s", r.URL.RawQuery)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotText = body["text"]
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(mp3)
	}))
	defer srv.Close()

	s := NewDeepgramSynthesizer(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
	audio, err := s.Synthesize(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != string(mp3) {
		t.Fatalf("audio mismatch: %v", audio)
	}
	if gotText != "Hello there." {
		t.Fatalf("text = %q", gotText)
	}
	if s.Format() != "mp3" {
		t.Fatalf("Format() = %q", s.Format())
	}
}

func TestDeepgramSynthesizerRetriesOnRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	s := NewDeepgramSynthesizer(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
	audio, err := s.Synthesize(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "audio" {
		t.Fatalf("audio = %q", audio)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestDeepgramSynthesizerDoesNotRetryBadRequest(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewDeepgramSynthesizer(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := s.Synthesize(context.Background(), ""); err == nil {
		t.Fatalf("expected error for 400")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestMockSynthesizerEmitsPCM(t *testing.T) {
	s := NewMockSynthesizer()
	if s.Format() != "pcm16" {
		t.Fatalf("Format() = %q", s.Format())
	}
	short, err := s.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	long, err := s.Synthesize(context.Background(), "hello there my good friend")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(short) == 0 || len(long) <= len(short) {
		t.Fatalf("expected output to scale with sentence length: %d vs %d", len(short), len(long))
	}
	if len(short)%2 != 0 {
		t.Fatalf("pcm16 output must be an even byte count, got %d", len(short))
	}
}

package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDeepgramTranscriberHappyPath(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		if !strings.Contains(r.URL.RawQuery, "model=nova-2") {
			t.Errorf("missing model query param: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hello world"}]}]}}`))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
	text, err := tr.Transcribe(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello world" {
		t.Fatalf("transcript = %q, want %q", text, "hello world")
	}
	if gotAuth != "Token k" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if len(gotBody) != 3 {
		t.Fatalf("body len = %d, want 3", len(gotBody))
	}
}

func TestDeepgramTranscriberRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"second try"}]}]}}`))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber(DeepgramConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second})
	text, err := tr.Transcribe(context.Background(), []byte{9})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "second try" {
		t.Fatalf("transcript = %q", text)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestDeepgramTranscriberDoesNotRetryClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber(DeepgramConfig{APIKey: "bad", BaseURL: srv.URL})
	if _, err := tr.Transcribe(context.Background(), []byte{1}); err == nil {
		t.Fatalf("expected error for 401")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestDeepgramTranscriberEmptyResultMeansNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":{"channels":[]}}`))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
	text, err := tr.Transcribe(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "" {
		t.Fatalf("transcript = %q, want empty", text)
	}
}

func TestMockTranscriber(t *testing.T) {
	m := NewMockTranscriber()
	text, err := m.Transcribe(context.Background(), []byte{1, 2})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text == "" {
		t.Fatalf("expected non-empty transcript for non-empty audio")
	}

	text, err = m.Transcribe(context.Background(), nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "" {
		t.Fatalf("transcript = %q, want empty for empty audio", text)
	}
}

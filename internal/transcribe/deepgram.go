package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/reliability"
)

const (
	deepgramDefaultBaseURL = "https://api.deepgram.com"
	deepgramDefaultModel   = "nova-2"

	maxAttempts = 3
	backoffBase = 250 * time.Millisecond
	backoffCap  = 2 * time.Second
)

// DeepgramConfig controls the pre-recorded transcription client.
type DeepgramConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DeepgramTranscriber calls the Deepgram pre-recorded listen endpoint.
type DeepgramTranscriber struct {
	cfg    DeepgramConfig
	client *http.Client
}

func NewDeepgramTranscriber(cfg DeepgramConfig) *DeepgramTranscriber {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = deepgramDefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = deepgramDefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DeepgramTranscriber{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type deepgramListenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (t *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	q := url.Values{}
	q.Set("model", t.cfg.Model)
	q.Set("smart_format", "true")
	endpoint := fmt.Sprintf("%s/v1/listen?%s", strings.TrimRight(t.cfg.BaseURL, "/"), q.Encode())

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, backoffBase, backoffCap)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+t.cfg.APIKey)
		req.Header.Set("Content-Type", "application/octet-stream")

		res, err := t.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
			continue
		}

		transcript, retryable, err := parseListenResponse(res)
		if err == nil {
			return transcript, nil
		}
		lastErr = err
		if !retryable {
			return "", lastErr
		}
	}
	return "", lastErr
}

func parseListenResponse(res *http.Response) (transcript string, retryable bool, err error) {
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("deepgram listen status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", false, fmt.Errorf("read listen response: %w", err)
	}
	var parsed deepgramListenResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("decode listen response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", false, nil
	}
	return parsed.Results.Channels[0].Alternatives[0].Transcript, false, nil
}

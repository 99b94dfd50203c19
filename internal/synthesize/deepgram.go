package synthesize

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
	deepgramDefaultModel   = "aura-2-thalia-en"

	maxAttempts = 3
	backoffBase = 250 * time.Millisecond
	backoffCap  = 2 * time.Second
)

// DeepgramConfig controls the speech synthesis client.
type DeepgramConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DeepgramSynthesizer calls the Deepgram speak endpoint and returns MP3
// audio.
type DeepgramSynthesizer struct {
	cfg    DeepgramConfig
	client *http.Client
}

func NewDeepgramSynthesizer(cfg DeepgramConfig) *DeepgramSynthesizer {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = deepgramDefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = deepgramDefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DeepgramSynthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *DeepgramSynthesizer) Format() string { return "mp3" }

func (s *DeepgramSynthesizer) Synthesize(ctx context.Context, sentence string) ([]byte, error) {
	payload, err := sonic.Marshal(map[string]string{"text": sentence})
	if err != nil {
		return nil, fmt.Errorf("encode speak payload: %w", err)
	}

	q := url.Values{}
	q.Set("model", s.cfg.Model)
	endpoint := fmt.Sprintf("%s/v1/speak?%s", strings.TrimRight(s.cfg.BaseURL, "/"), q.Encode())

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, backoffBase, backoffCap)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+s.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
			continue
		}

		audio, retryable, err := readSpeakResponse(res)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !retryable {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func readSpeakResponse(res *http.Response) (audio []byte, retryable bool, err error) {
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("deepgram speak status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err = io.ReadAll(res.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read speak response: %w", err)
	}
	return audio, false, nil
}

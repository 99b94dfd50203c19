package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/history"
)

// OpenAIConfig controls the chat-completion client. BaseURL may point at any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIGenerator streams replies from a chat-completion API.
type OpenAIGenerator struct {
	cfg    OpenAIConfig
	client *openai.Client
}

func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error) {
	messages := buildMessages(req)

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Reply{}, fmt.Errorf("receive completion chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return Reply{}, err
			}
		}
	}
	return Reply{Text: full.String()}, nil
}

// buildMessages lays out the request as chat messages. The system preamble is
// attached only on the first turn of a conversation; later turns rely on the
// replayed window carrying the established tone.
func buildMessages(req Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Window)+2)
	if len(req.Window) == 0 && strings.TrimSpace(req.SystemPreamble) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPreamble,
		})
	}
	for _, entry := range req.Window {
		role := openai.ChatMessageRoleUser
		if entry.Role == history.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: entry.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserText,
	})
	return messages
}

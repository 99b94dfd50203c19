package generate

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator is a local fallback used when no model API key is configured.
// It streams a canned reply word by word so downstream fragment handling is
// still exercised.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error) {
	reply := fmt.Sprintf("I heard you say: %s. This is a simulated reply.", strings.TrimSpace(req.UserText))
	words := strings.Split(reply, " ")
	var full strings.Builder
	for i, word := range words {
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		default:
		}
		delta := word
		if i < len(words)-1 {
			delta += " "
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

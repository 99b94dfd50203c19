// Package archive persists completed conversation turns for later review.
package archive

import (
	"context"
	"time"
)

// TurnRecord stores a single user or assistant conversational turn.
type TurnRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Redacted  bool      `json:"redacted"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves archived turns.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	Transcript(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	Close() error
}

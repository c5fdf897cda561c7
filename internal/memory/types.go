package memory

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn stores a single user or assistant conversational turn.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Redacted  bool      `json:"redacted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists per-user conversation transcripts. Save replaces the user's
// whole record set, so a crash before Save loses at most the unsaved turn.
type Store interface {
	Load(ctx context.Context, userID string) ([]Turn, error)
	Save(ctx context.Context, userID string, turns []Turn) error
	Close() error
}

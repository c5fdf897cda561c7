package scores

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that guarantee at least one record exists.
var ErrNotFound = errors.New("no score records found")

// Record stores a single health-score observation for a user.
// Records are immutable once appended.
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Score      string    `json:"score"`
	Content    string    `json:"content"`
	TotalGuess string    `json:"total_guess"`
}

// Store persists and retrieves score records. The backing collection is
// shared across all users; QueryByUser filters it. Records come back in
// stored (append) order, callers sort before windowing.
type Store interface {
	Append(ctx context.Context, record Record) error
	QueryByUser(ctx context.Context, userID string) ([]Record, error)
	Close() error
}

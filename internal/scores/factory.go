package scores

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise file-backed.
func NewStore(ctx context.Context, databaseURL, filePath string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(filePath)
	}
	return NewPostgresStore(ctx, databaseURL)
}

package transcript

import (
	"context"
	"strings"
)

// Store persists session transcripts.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	BySession(ctx context.Context, sessionID string, limit int) ([]Entry, error)
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

package dialogue

import (
	"context"

	"github.com/google/uuid"

	"spatial-search-be/pkg/store"
)

// Checkpointer is the durable session history. Append must be atomic:
// a turn either leaves exactly one new checkpoint or none.
type Checkpointer interface {
	Append(ctx context.Context, sessionID uuid.UUID, state store.ConversationState) error
	List(ctx context.Context, sessionID uuid.UUID) ([]store.Checkpoint, error)
	DeleteAll(ctx context.Context, sessionID uuid.UUID) error
}

// WebSearcher is the open-web fallback used when no collection route
// matches the conversation.
type WebSearcher interface {
	Search(ctx context.Context, query string, k int) ([]store.Document, error)
}

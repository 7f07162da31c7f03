package driven

import (
	"context"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// ArchiveStore persists retrieved workspace data.
// Saves are upserts keyed by the entity ID.
type ArchiveStore interface {
	// SaveConversations stores or replaces conversations.
	SaveConversations(ctx context.Context, conversations []domain.Conversation) error

	// Conversations returns every archived conversation, keyed by ID.
	Conversations(ctx context.Context) (map[string]domain.Conversation, error)

	// SaveUsers stores or replaces users.
	SaveUsers(ctx context.Context, users []domain.User) error

	// Users returns every archived user, keyed by ID.
	Users(ctx context.Context) (map[string]domain.User, error)

	// SaveFiles stores or replaces file metadata.
	SaveFiles(ctx context.Context, files []domain.File) error

	// Files returns every archived file, keyed by ID.
	Files(ctx context.Context) (map[string]domain.File, error)

	// SaveMessages stores or replaces messages of one conversation.
	SaveMessages(ctx context.Context, conversationID string, messages []domain.Message) error

	// Messages returns a conversation's archived messages in the range, oldest first.
	Messages(ctx context.Context, conversationID string, r domain.TimeRange) ([]domain.Message, error)

	// Close releases the store.
	Close() error
}

// ExportRunStore records export runs.
type ExportRunStore interface {
	// SaveRun stores or updates a run.
	SaveRun(ctx context.Context, run domain.ExportRun) error

	// GetRun retrieves a run by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetRun(ctx context.Context, id string) (*domain.ExportRun, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.ExportRun, error)
}

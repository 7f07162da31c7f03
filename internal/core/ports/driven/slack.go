package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// SlackAPI retrieves workspace data from Slack.
// Every collection method returns the complete collection or an error;
// progress, if non-nil, receives the running item count after each page.
type SlackAPI interface {
	// AuthTest checks the token and returns its identity.
	AuthTest(ctx context.Context) (*domain.Identity, error)

	// Conversations lists conversations of the given types, keyed by ID.
	Conversations(ctx context.Context, types []domain.ConversationType, progress func(int)) (map[string]domain.Conversation, error)

	// Users lists all users, keyed by ID.
	Users(ctx context.Context, progress func(int)) (map[string]domain.User, error)

	// Files lists files matching the query, keyed by ID.
	Files(ctx context.Context, q domain.FileQuery, progress func(int)) (map[string]domain.File, error)

	// File fetches one file with its share details.
	File(ctx context.Context, id string) (*domain.File, error)

	// History fetches a conversation's messages in the range, oldest first.
	History(ctx context.Context, conversationID string, r domain.TimeRange, progress func(int)) ([]domain.Message, error)

	// Download streams an authenticated file URL into w and returns the bytes written.
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// SlackAPIFactory creates API clients for a token.
type SlackAPIFactory interface {
	// New creates a client authenticating with token.
	New(ctx context.Context, token string) (SlackAPI, error)
}

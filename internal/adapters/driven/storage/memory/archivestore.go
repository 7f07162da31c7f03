package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// Ensure ArchiveStore implements the interface.
var _ driven.ArchiveStore = (*ArchiveStore)(nil)

// ArchiveStore is an in-memory implementation of driven.ArchiveStore.
type ArchiveStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	users         map[string]domain.User
	files         map[string]domain.File
	messages      map[string]map[string]domain.Message
}

// NewArchiveStore creates a new in-memory archive store.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		conversations: make(map[string]domain.Conversation),
		users:         make(map[string]domain.User),
		files:         make(map[string]domain.File),
		messages:      make(map[string]map[string]domain.Message),
	}
}

// SaveConversations stores or replaces conversations.
func (s *ArchiveStore) SaveConversations(_ context.Context, conversations []domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range conversations {
		s.conversations[c.ID] = c
	}
	return nil
}

// Conversations returns every archived conversation.
func (s *ArchiveStore) Conversations(_ context.Context) (map[string]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.conversations), nil
}

// SaveUsers stores or replaces users.
func (s *ArchiveStore) SaveUsers(_ context.Context, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
	}
	return nil
}

// Users returns every archived user.
func (s *ArchiveStore) Users(_ context.Context) (map[string]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.users), nil
}

// SaveFiles stores or replaces file metadata.
func (s *ArchiveStore) SaveFiles(_ context.Context, files []domain.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		s.files[f.ID] = f
	}
	return nil
}

// Files returns every archived file.
func (s *ArchiveStore) Files(_ context.Context) (map[string]domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.files), nil
}

// SaveMessages stores or replaces messages of one conversation.
func (s *ArchiveStore) SaveMessages(_ context.Context, conversationID string, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTS, ok := s.messages[conversationID]
	if !ok {
		byTS = make(map[string]domain.Message)
		s.messages[conversationID] = byTS
	}
	for _, m := range messages {
		byTS[m.Timestamp()] = m
	}
	return nil
}

// Messages returns a conversation's messages in the range, oldest first.
func (s *ArchiveStore) Messages(_ context.Context, conversationID string, r domain.TimeRange) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Message
	for _, m := range s.messages[conversationID] {
		if r.Contains(m.Timestamp()) {
			out = append(out, m)
		}
	}
	domain.SortMessages(out)
	return out, nil
}

// Close is a no-op.
func (s *ArchiveStore) Close() error {
	return nil
}

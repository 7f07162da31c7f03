package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConversationType identifies the kind of a conversation.
type ConversationType string

// Available conversation types, named as the Slack API names them.
const (
	ConversationPublicChannel  ConversationType = "public_channel"
	ConversationPrivateChannel ConversationType = "private_channel"
	ConversationMultiPartyIM   ConversationType = "mpim"
	ConversationIM             ConversationType = "im"
)

// unknownConversation is the display name for conversations we never retrieved.
const unknownConversation = "Unknown conversation"

// AllConversationTypes returns every conversation type in API order.
func AllConversationTypes() []ConversationType {
	return []ConversationType{
		ConversationPublicChannel,
		ConversationPrivateChannel,
		ConversationMultiPartyIM,
		ConversationIM,
	}
}

// ShortName returns the name accepted on the command line.
func (t ConversationType) ShortName() string {
	switch t {
	case ConversationPublicChannel:
		return "public"
	case ConversationPrivateChannel:
		return "private"
	default:
		return string(t)
	}
}

// ParseConversationTypes parses a comma-separated list of short names.
// An empty string selects all types.
func ParseConversationTypes(s string) ([]ConversationType, error) {
	if strings.TrimSpace(s) == "" {
		return AllConversationTypes(), nil
	}

	var types []ConversationType
	seen := make(map[ConversationType]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		var match ConversationType
		for _, t := range AllConversationTypes() {
			if part == t.ShortName() || part == string(t) {
				match = t
				break
			}
		}
		if match == "" {
			return nil, fmt.Errorf("%w: unknown conversation type %q (available: %s)",
				ErrInvalidInput, part, ConversationTypeOptions())
		}
		if !seen[match] {
			seen[match] = true
			types = append(types, match)
		}
	}
	return types, nil
}

// ConversationTypeOptions returns the short names joined for help output.
func ConversationTypeOptions() string {
	names := make([]string, 0, 4)
	for _, t := range AllConversationTypes() {
		names = append(names, t.ShortName())
	}
	return strings.Join(names, ",")
}

// Conversation is a channel, private group, multi-party or direct message.
type Conversation struct {
	// ID is the Slack conversation ID (C…, G… or D…).
	ID string

	// Name is the channel name. Empty for direct messages.
	Name string

	// Type classifies the conversation.
	Type ConversationType

	// UserID is the other party of a direct message.
	UserID string

	Topic   string
	Purpose string

	Archived bool
	Created  time.Time
}

// DisplayName returns a human-readable name, resolving direct messages
// to the other user's name.
func (c *Conversation) DisplayName(users map[string]User) string {
	switch c.Type {
	case ConversationPublicChannel:
		return "#" + c.Name
	case ConversationIM:
		return "@" + Username(users, c.UserID)
	default:
		return c.Name
	}
}

// ConversationName returns the display name of a conversation by ID,
// or "Unknown conversation" when it is not present.
func ConversationName(conversations map[string]Conversation, users map[string]User, id string) string {
	c, ok := conversations[id]
	if !ok {
		return unknownConversation
	}
	return c.DisplayName(users)
}

// FindConversation resolves a conversation by ID first, then by display
// name ("#general", "@alice") or bare channel name.
func FindConversation(conversations map[string]Conversation, users map[string]User, ref string) (Conversation, error) {
	if c, ok := conversations[ref]; ok {
		return c, nil
	}

	ids := make([]string, 0, len(conversations))
	for id := range conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := conversations[id]
		if c.DisplayName(users) == ref || (c.Name != "" && c.Name == strings.TrimPrefix(ref, "#")) {
			return c, nil
		}
	}
	return Conversation{}, fmt.Errorf("conversation %q: %w", ref, ErrNotFound)
}

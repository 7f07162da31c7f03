package slack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// Page sizes requested from the API.
const (
	conversationsPageSize = 100
	usersPageSize         = 100
	filesPageSize         = 100
	historyPageSize       = 200
)

// Ensure Client implements the interface.
var _ driven.SlackAPI = (*Client)(nil)

// AuthTest checks the token and returns the workspace and user it belongs to.
func (c *Client) AuthTest(ctx context.Context) (*domain.Identity, error) {
	resp, err := get[authTestResponse](ctx, c, Tier4, "auth.test", nil)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		Team:   resp.Team,
		TeamID: resp.TeamID,
		User:   resp.User,
		UserID: resp.UserID,
		URL:    resp.URL,
	}, nil
}

// Conversations lists every conversation of the given types, keyed by ID.
// No types means all types.
func (c *Client) Conversations(ctx context.Context, types []domain.ConversationType, progress func(int)) (map[string]domain.Conversation, error) {
	if len(types) == 0 {
		types = domain.AllConversationTypes()
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	fetch := func(ctx context.Context, cursor string) (Page[domain.Conversation], error) {
		params := url.Values{
			"types":            {strings.Join(names, ",")},
			"limit":            {strconv.Itoa(conversationsPageSize)},
			"exclude_archived": {"false"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := get[conversationsListResponse](ctx, c, Tier2, "conversations.list", params)
		if err != nil {
			return Page[domain.Conversation]{}, err
		}

		items := make([]domain.Conversation, 0, len(resp.Channels))
		for _, ch := range resp.Channels {
			items = append(items, ch.toDomain())
		}
		return NewCursorPage(items, resp.Metadata.NextCursor), nil
	}

	return CollectAll(ctx, fetch, func(conv domain.Conversation) string { return conv.ID }, progress)
}

// Users lists every user in the workspace, keyed by ID.
func (c *Client) Users(ctx context.Context, progress func(int)) (map[string]domain.User, error) {
	fetch := func(ctx context.Context, cursor string) (Page[domain.User], error) {
		params := url.Values{"limit": {strconv.Itoa(usersPageSize)}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := get[usersListResponse](ctx, c, Tier2, "users.list", params)
		if err != nil {
			return Page[domain.User]{}, err
		}

		items := make([]domain.User, 0, len(resp.Members))
		for _, m := range resp.Members {
			items = append(items, m.toDomain())
		}
		return NewCursorPage(items, resp.Metadata.NextCursor), nil
	}

	return CollectAll(ctx, fetch, func(u domain.User) string { return u.ID }, progress)
}

// Files lists every file matching q, keyed by ID.
// files.list pages by number; the next page number travels as the cursor.
func (c *Client) Files(ctx context.Context, q domain.FileQuery, progress func(int)) (map[string]domain.File, error) {
	fetch := func(ctx context.Context, cursor string) (Page[domain.File], error) {
		page, err := PageNumber(cursor)
		if err != nil {
			return Page[domain.File]{}, err
		}

		params := url.Values{
			"count": {strconv.Itoa(filesPageSize)},
			"page":  {strconv.Itoa(page)},
		}
		if !q.From.IsZero() {
			params.Set("ts_from", strconv.FormatInt(q.From.Unix(), 10))
		}
		if !q.To.IsZero() {
			params.Set("ts_to", strconv.FormatInt(q.To.Unix(), 10))
		}
		if q.ConversationID != "" {
			params.Set("channel", q.ConversationID)
		}
		if q.UserID != "" {
			params.Set("user", q.UserID)
		}

		resp, err := get[filesListResponse](ctx, c, Tier3, "files.list", params)
		if err != nil {
			return Page[domain.File]{}, err
		}

		items := make([]domain.File, 0, len(resp.Files))
		for _, f := range resp.Files {
			items = append(items, f.toDomain())
		}
		return NewNumberedPage(items, page, resp.Paging.Pages), nil
	}

	return CollectAll(ctx, fetch, func(f domain.File) string { return f.ID }, progress)
}

// File fetches a single file including its share details.
func (c *Client) File(ctx context.Context, id string) (*domain.File, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: file id is required", domain.ErrInvalidInput)
	}

	resp, err := get[fileInfoResponse](ctx, c, Tier4, "files.info", url.Values{"file": {id}})
	if err != nil {
		if IsAPIError(err, "file_not_found") {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	file := resp.File.toDomain()
	return &file, nil
}

// History fetches the messages of a conversation within r, oldest first.
// Messages of unrecognised subtypes are left out.
func (c *Client) History(ctx context.Context, conversationID string, r domain.TimeRange, progress func(int)) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", domain.ErrInvalidInput)
	}

	fetch := func(ctx context.Context, cursor string) (Page[domain.Message], error) {
		params := url.Values{
			"channel":   {conversationID},
			"limit":     {strconv.Itoa(historyPageSize)},
			"inclusive": {"true"},
		}
		if !r.From.IsZero() {
			params.Set("oldest", slackTimestamp(r.From))
		}
		if !r.To.IsZero() {
			params.Set("latest", slackTimestamp(r.To))
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := get[historyResponse](ctx, c, Tier3, "conversations.history", params)
		if err != nil {
			return Page[domain.Message]{}, err
		}
		return Page[domain.Message]{
			Items:   resp.Messages,
			Cursor:  resp.Metadata.NextCursor,
			HasMore: resp.HasMore,
		}, nil
	}

	byTS, err := CollectAll(ctx, fetch, domain.Message.Timestamp, progress)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(byTS))
	for _, m := range byTS {
		messages = append(messages, m)
	}
	domain.SortMessages(messages)
	return messages, nil
}

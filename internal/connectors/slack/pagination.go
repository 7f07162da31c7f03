package slack

import (
	"context"
	"fmt"
	"strconv"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// Page is one page of a paginated collection.
type Page[T any] struct {
	Items []T

	// Cursor is passed verbatim to fetch the next page.
	Cursor string

	// HasMore reports whether another page follows.
	HasMore bool
}

// NewCursorPage builds a page for cursor endpoints, where a non-empty
// next cursor means more pages follow.
func NewCursorPage[T any](items []T, nextCursor string) Page[T] {
	return Page[T]{Items: items, Cursor: nextCursor, HasMore: nextCursor != ""}
}

// NewNumberedPage builds a page for page/count endpoints such as files.list.
// The next page number is carried as the cursor.
func NewNumberedPage[T any](items []T, page, pages int) Page[T] {
	if page >= pages {
		return Page[T]{Items: items}
	}
	return Page[T]{Items: items, Cursor: strconv.Itoa(page + 1), HasMore: true}
}

// PageNumber decodes a cursor produced by NewNumberedPage. The empty cursor is page 1.
func PageNumber(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid page cursor %q", domain.ErrInvalidInput, cursor)
	}
	return n, nil
}

// FetchPage retrieves the page at cursor. The first page has cursor "".
type FetchPage[T any] func(ctx context.Context, cursor string) (Page[T], error)

// CollectAll exhausts a paginated collection and returns its items keyed by id.
// Items from later pages replace earlier ones with the same key. progress, if
// non-nil, is called with the running total after each page. Any failure
// discards everything collected so far.
func CollectAll[T any](ctx context.Context, fetch FetchPage[T], key func(T) string, progress func(total int)) (map[string]T, error) {
	items := make(map[string]T)
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			items[key(item)] = item
		}
		if progress != nil {
			progress(len(items))
		}

		if !page.HasMore {
			return items, nil
		}
		if page.Cursor == "" {
			// Re-fetching the first page would never terminate.
			return nil, fmt.Errorf("%w: page declares more results without a cursor", domain.ErrUnknownCallFailure)
		}
		cursor = page.Cursor
	}
}

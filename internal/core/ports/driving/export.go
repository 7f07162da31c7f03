package driving

import (
	"context"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// ExportService retrieves workspace data and archives it.
type ExportService interface {
	// Export retrieves the given collections concurrently and archives them.
	// No kinds means conversations, users and files. The first failing
	// retrieval cancels the others and is returned.
	Export(ctx context.Context, kinds []domain.ExportKind) (*ExportSummary, error)

	// DownloadFiles downloads files grouped by conversation into the output directory.
	DownloadFiles(ctx context.Context, req DownloadRequest) (*DownloadReport, error)

	// History fetches, archives and returns a conversation's messages.
	// ref is a conversation ID, "#channel", "@user" or a bare name.
	History(ctx context.Context, ref string, r domain.TimeRange) (*HistoryResult, error)

	// Status returns the live status of an export kind.
	Status(kind domain.ExportKind) *ExportStatus

	// Runs returns recent export runs, newest first.
	Runs(ctx context.Context, limit int) ([]domain.ExportRun, error)
}

// ExportSummary counts what an export archived.
type ExportSummary struct {
	Conversations int
	Users         int
	Files         int
}

// DownloadRequest selects files to download.
type DownloadRequest struct {
	// OutputDir overrides the configured output directory when set.
	OutputDir string

	// Strategy overrides the configured conflict strategy when set.
	Strategy domain.ConflictStrategy

	Range domain.TimeRange
}

// ConversationDownload is the result for one conversation folder.
type ConversationDownload struct {
	ConversationID string
	Name           string
	Dir            string
	Stats          domain.DownloadStats
}

// DownloadReport is the result of DownloadFiles.
type DownloadReport struct {
	Conversations []ConversationDownload

	// Unplaced counts files whose upload location could not be inferred.
	Unplaced int

	Total domain.DownloadStats
}

// HistoryResult is a conversation's messages with the names needed to print them.
type HistoryResult struct {
	Conversation domain.Conversation
	Name         string
	Messages     []domain.Message
	Users        map[string]domain.User
}

// ExportStatus represents the current state of an export.
type ExportStatus struct {
	Kind domain.ExportKind

	// Running indicates if the export is in progress.
	Running bool

	// ItemsRetrieved is the running count of items retrieved.
	ItemsRetrieved int

	// ErrorCount is the number of errors encountered.
	ErrorCount int
}

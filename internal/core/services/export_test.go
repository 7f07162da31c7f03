package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slack-archive/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
)

// exportMockSlackAPI implements driven.SlackAPI for testing.
type exportMockSlackAPI struct {
	mu sync.Mutex

	conversations map[string]domain.Conversation
	users         map[string]domain.User
	files         map[string]domain.File
	history       map[string][]domain.Message
	content       map[string]string
	shares        map[string]map[string]string

	conversationsErr error
	usersErr         error
	filesErr         error
	fileErr          error
	downloadErr      map[string]error

	// blockUsers makes Users wait for cancellation.
	blockUsers bool

	fileQueries []domain.FileQuery
	downloads   []string
	calls       map[string]int
}

func newExportMockSlackAPI() *exportMockSlackAPI {
	return &exportMockSlackAPI{
		conversations: map[string]domain.Conversation{
			"C1": {ID: "C1", Name: "general", Type: domain.ConversationPublicChannel},
			"C2": {ID: "C2", Name: "announcements", Type: domain.ConversationPublicChannel},
			"G1": {ID: "G1", Name: "secret", Type: domain.ConversationPrivateChannel},
			"D1": {ID: "D1", Type: domain.ConversationIM, UserID: "U2"},
		},
		users: map[string]domain.User{
			"U1": {ID: "U1", Name: "alice"},
			"U2": {ID: "U2", Name: "bob"},
		},
		files:       map[string]domain.File{},
		history:     map[string][]domain.Message{},
		content:     map[string]string{},
		shares:      map[string]map[string]string{},
		downloadErr: map[string]error{},
		calls:       map[string]int{},
	}
}

func (m *exportMockSlackAPI) count(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
}

func (m *exportMockSlackAPI) AuthTest(_ context.Context) (*domain.Identity, error) {
	return &domain.Identity{Team: "Acme", User: "alice"}, nil
}

func (m *exportMockSlackAPI) Conversations(_ context.Context, _ []domain.ConversationType, progress func(int)) (map[string]domain.Conversation, error) {
	m.count("conversations")
	if m.conversationsErr != nil {
		return nil, m.conversationsErr
	}
	if progress != nil {
		progress(len(m.conversations))
	}
	return m.conversations, nil
}

func (m *exportMockSlackAPI) Users(ctx context.Context, progress func(int)) (map[string]domain.User, error) {
	m.count("users")
	if m.blockUsers {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	if progress != nil {
		progress(len(m.users))
	}
	return m.users, nil
}

func (m *exportMockSlackAPI) Files(_ context.Context, q domain.FileQuery, _ func(int)) (map[string]domain.File, error) {
	m.count("files")
	m.mu.Lock()
	m.fileQueries = append(m.fileQueries, q)
	m.mu.Unlock()
	if m.filesErr != nil {
		return nil, m.filesErr
	}
	return m.files, nil
}

func (m *exportMockSlackAPI) File(_ context.Context, id string) (*domain.File, error) {
	m.count("file")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fileErr != nil {
		return nil, m.fileErr
	}
	f, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.Shares = m.shares[id]
	return &f, nil
}

func (m *exportMockSlackAPI) History(_ context.Context, conversationID string, _ domain.TimeRange, _ func(int)) ([]domain.Message, error) {
	m.count("history")
	return m.history[conversationID], nil
}

func (m *exportMockSlackAPI) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	m.mu.Lock()
	m.downloads = append(m.downloads, url)
	err := m.downloadErr[url]
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, m.content[url])
	return int64(n), err
}

func (m *exportMockSlackAPI) addFile(id, name, channel, content string, created int64) {
	url := "https://files.slack.test/" + id
	m.files[id] = domain.File{
		ID:          id,
		Name:        name,
		Size:        int64(len(content)),
		DownloadURL: url,
		Channels:    []string{channel},
		Created:     time.Unix(created, 0),
	}
	m.content[url] = content
}

type exportFixture struct {
	api     *exportMockSlackAPI
	archive *memory.ArchiveStore
	runs    *memory.RunStore
	fs      afero.Fs
	service *ExportService
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	api := newExportMockSlackAPI()
	archive := memory.NewArchiveStore()
	runs := memory.NewRunStore()
	fs := afero.NewMemMapFs()

	settings := domain.DefaultSettings()
	settings.Token = "xoxp-test"
	settings.OutputDir = "/export"

	return &exportFixture{
		api:     api,
		archive: archive,
		runs:    runs,
		fs:      fs,
		service: NewExportService(api, archive, runs, fs, NewConflictResolver(fs, memory.NewHashCache()), settings),
	}
}

func TestExportService_ExportDefaultKinds(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "hello", 1)
	ctx := context.Background()

	summary, err := f.service.Export(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, &driving.ExportSummary{Conversations: 4, Users: 2, Files: 1}, summary)

	conversations, err := f.archive.Conversations(ctx)
	require.NoError(t, err)
	assert.Len(t, conversations, 4)
	users, err := f.archive.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	files, err := f.archive.Files(ctx)
	require.NoError(t, err)
	assert.Contains(t, files, "F1")

	runs, err := f.service.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, run := range runs {
		assert.Equal(t, domain.RunCompleted, run.Status)
		assert.NotEmpty(t, run.ID)
		assert.False(t, run.FinishedAt.IsZero())
	}
}

func TestExportService_ExportSelectedKinds(t *testing.T) {
	f := newExportFixture(t)

	summary, err := f.service.Export(context.Background(), []domain.ExportKind{domain.ExportUsers, domain.ExportUsers})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Users)
	assert.Zero(t, summary.Conversations)
	assert.Equal(t, 1, f.api.calls["users"])
	assert.Zero(t, f.api.calls["conversations"])
}

func TestExportService_ExportRejectsHistoryKind(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.service.Export(context.Background(), []domain.ExportKind{domain.ExportHistory})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExportService_FailureCancelsSiblings(t *testing.T) {
	f := newExportFixture(t)
	f.api.conversationsErr = errors.New("slack: call to conversations.list failed after 3 attempts: retries exhausted")
	f.api.blockUsers = true
	ctx := context.Background()

	summary, err := f.service.Export(ctx, []domain.ExportKind{domain.ExportConversations, domain.ExportUsers})
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "conversations.list")

	conversations, err := f.archive.Conversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, conversations, "failed retrieval must not archive a partial collection")

	runs, err := f.service.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, domain.RunFailed, run.Status)
		assert.NotEmpty(t, run.Error)
	}
}

func TestExportService_StatusIdleAfterExport(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.service.Export(context.Background(), nil)
	require.NoError(t, err)

	status := f.service.Status(domain.ExportConversations)
	assert.False(t, status.Running)
	assert.Equal(t, domain.ExportConversations, status.Kind)
}

func TestExportService_ConcurrentSameKindRejected(t *testing.T) {
	f := newExportFixture(t)
	require.NoError(t, f.service.begin(domain.ExportUsers))
	defer f.service.end(domain.ExportUsers)

	status := f.service.Status(domain.ExportUsers)
	assert.True(t, status.Running)

	_, err := f.service.Export(context.Background(), []domain.ExportKind{domain.ExportUsers})
	assert.ErrorIs(t, err, domain.ErrExportInProgress)
}

func TestExportService_DownloadFilesGroupsByConversation(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "hello", 2)
	f.api.addFile("F2", "b.txt", "C1", "world", 1)
	f.api.addFile("F3", "c.txt", "D1", "direct", 3)
	f.api.files["F4"] = domain.File{ID: "F4", Name: "lost.txt", DownloadURL: "https://files.slack.test/F4"}

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{})
	require.NoError(t, err)

	require.Len(t, report.Conversations, 2)
	assert.Equal(t, "#general", report.Conversations[0].Name)
	assert.Equal(t, "@bob", report.Conversations[1].Name)
	assert.Equal(t, 1, report.Unplaced)
	assert.Equal(t, 3, report.Total.Downloaded)
	assert.Equal(t, int64(16), report.Total.Bytes)

	data, err := afero.ReadFile(f.fs, filepath.Join("/export", "#general", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	exists, err := afero.Exists(f.fs, filepath.Join("/export", "@bob", "c.txt"))
	require.NoError(t, err)
	assert.True(t, exists)

	// Files of one conversation are fetched oldest first.
	var general []string
	for _, u := range f.api.downloads {
		if u != "https://files.slack.test/F3" {
			general = append(general, u)
		}
	}
	assert.Equal(t, []string{"https://files.slack.test/F2", "https://files.slack.test/F1"}, general)
}

// meetingFs holds the first two Stat calls on target until both have arrived,
// or until a short wait expires, so concurrent writers observe the same state.
type meetingFs struct {
	afero.Fs
	target string
	calls  atomic.Int32
	meet   chan struct{}
}

func (m *meetingFs) Stat(name string) (os.FileInfo, error) {
	if name == m.target && m.calls.Add(1) <= 2 {
		select {
		case m.meet <- struct{}{}:
		case <-m.meet:
		case <-time.After(200 * time.Millisecond):
		}
	}
	return m.Fs.Stat(name)
}

func TestExportService_DownloadFilesSharedFolderKeepsBoth(t *testing.T) {
	api := newExportMockSlackAPI()
	// C8 and C9 are not in conversations.list, so both map to one folder.
	api.addFile("F1", "a.txt", "C8", "first", 1)
	api.addFile("F2", "a.txt", "C9", "second", 2)

	dir := filepath.Join("/export", "Unknown conversation")
	fs := &meetingFs{Fs: afero.NewMemMapFs(), target: filepath.Join(dir, "a.txt"), meet: make(chan struct{})}
	settings := domain.DefaultSettings()
	settings.OutputDir = "/export"
	settings.Workers = 4
	service := NewExportService(api, memory.NewArchiveStore(), memory.NewRunStore(), fs,
		NewConflictResolver(fs, memory.NewHashCache()), settings)

	report, err := service.DownloadFiles(context.Background(), driving.DownloadRequest{Strategy: domain.ConflictStrategyHash})
	require.NoError(t, err)

	require.Len(t, report.Conversations, 2)
	assert.Equal(t, dir, report.Conversations[0].Dir)
	assert.Equal(t, dir, report.Conversations[1].Dir)
	assert.Equal(t, 1, report.Total.Downloaded)
	assert.Equal(t, 1, report.Total.Renamed)

	contents := map[string]bool{}
	for _, name := range []string{"a.txt", "a.txt.1"} {
		data, err := afero.ReadFile(fs, filepath.Join(dir, name))
		require.NoError(t, err, name)
		contents[string(data)] = true
	}
	assert.Equal(t, map[string]bool{"first": true, "second": true}, contents)
}

func TestExportService_DownloadFilesEarliestShareWins(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "hello", 1)
	f.api.addFile("F2", "b.txt", "C1", "solo", 2)
	multi := f.api.files["F1"]
	multi.Channels = []string{"C1", "C2"}
	f.api.files["F1"] = multi
	f.api.shares["F1"] = map[string]string{"C1": "1700000200.000000", "C2": "1700000100.000000"}

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total.Downloaded)

	exists, err := afero.Exists(f.fs, filepath.Join("/export", "#announcements", "a.txt"))
	require.NoError(t, err)
	assert.True(t, exists, "file lands in the conversation it was first shared in")
	exists, err = afero.Exists(f.fs, filepath.Join("/export", "#general", "b.txt"))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, f.api.calls["file"], "only files in several conversations need details")

	files, err := f.archive.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1700000100.000000", files["F1"].Shares["C2"])
}

func TestExportService_DownloadFilesWithoutInference(t *testing.T) {
	api := newExportMockSlackAPI()
	api.addFile("F1", "a.txt", "C1", "hello", 1)
	multi := api.files["F1"]
	multi.Channels = []string{"C1", "C2"}
	api.files["F1"] = multi
	api.shares["F1"] = map[string]string{"C2": "1700000100.000000"}

	fs := afero.NewMemMapFs()
	settings := domain.DefaultSettings()
	settings.OutputDir = "/export"
	settings.InferLocation = false
	service := NewExportService(api, memory.NewArchiveStore(), memory.NewRunStore(), fs,
		NewConflictResolver(fs, memory.NewHashCache()), settings)

	_, err := service.DownloadFiles(context.Background(), driving.DownloadRequest{})
	require.NoError(t, err)

	exists, err := afero.Exists(fs, filepath.Join("/export", "#general", "a.txt"))
	require.NoError(t, err)
	assert.True(t, exists, "first listed channel is used")
	assert.Zero(t, api.calls["file"])
}

func TestExportService_DownloadFilesShareDetailsFailureKeepsListing(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "hello", 1)
	multi := f.api.files["F1"]
	multi.Channels = []string{"C1", "C2"}
	f.api.files["F1"] = multi
	f.api.fileErr = errors.New("files.info: internal_error")

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total.Downloaded)

	exists, err := afero.Exists(f.fs, filepath.Join("/export", "#general", "a.txt"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestExportService_DownloadFilesHashStrategy(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "same.txt", "C1", "hello", 1)
	f.api.addFile("F2", "diff.txt", "C1", "world", 2)
	require.NoError(t, f.fs.MkdirAll("/export/#general", 0o755))
	require.NoError(t, afero.WriteFile(f.fs, "/export/#general/same.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(f.fs, "/export/#general/diff.txt", []byte("other"), 0o644))

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{Strategy: domain.ConflictStrategyHash})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total.Identical)
	assert.Equal(t, 1, report.Total.Renamed)
	assert.Equal(t, int64(5), report.Total.Bytes)

	data, err := afero.ReadFile(f.fs, "/export/#general/diff.txt.1")
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	data, err = afero.ReadFile(f.fs, "/export/#general/diff.txt")
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))

	entries, err := afero.ReadDir(f.fs, "/export/#general")
	require.NoError(t, err)
	assert.Len(t, entries, 3, "temporary files must be cleaned up")
}

func TestExportService_DownloadFilesSkipStrategy(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "new content", 1)
	require.NoError(t, afero.WriteFile(f.fs, "/export/#general/a.txt", []byte("old"), 0o644))

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{Strategy: domain.ConflictStrategySkip})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total.Skipped)
	assert.Empty(t, f.api.downloads)

	data, err := afero.ReadFile(f.fs, "/export/#general/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestExportService_DownloadFilesOverwriteStrategy(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "new content", 1)
	require.NoError(t, afero.WriteFile(f.fs, "/export/#general/a.txt", []byte("old"), 0o644))

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{Strategy: domain.ConflictStrategyOverwrite})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total.Downloaded)

	data, err := afero.ReadFile(f.fs, "/export/#general/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestExportService_DownloadFailureCounted(t *testing.T) {
	f := newExportFixture(t)
	f.api.addFile("F1", "a.txt", "C1", "hello", 1)
	f.api.addFile("F2", "b.txt", "C1", "world", 2)
	f.api.downloadErr["https://files.slack.test/F1"] = errors.New("403 forbidden")

	report, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{OutputDir: "/other"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total.Failed)
	assert.Equal(t, 1, report.Total.Downloaded)

	exists, err := afero.Exists(f.fs, "/other/#general/a.txt")
	require.NoError(t, err)
	assert.False(t, exists, "partial download must be removed")
}

func TestExportService_DownloadFilesPassesRange(t *testing.T) {
	f := newExportFixture(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{Range: domain.TimeRange{From: from, To: to}})
	require.NoError(t, err)
	require.Len(t, f.api.fileQueries, 1)
	assert.Equal(t, from, f.api.fileQueries[0].From)
	assert.Equal(t, to, f.api.fileQueries[0].To)
}

func TestExportService_DownloadFilesInvalidStrategy(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.service.DownloadFiles(context.Background(), driving.DownloadRequest{Strategy: "merge"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExportService_History(t *testing.T) {
	f := newExportFixture(t)
	f.api.history["C1"] = []domain.Message{
		&domain.TextMessage{MessageHeader: domain.MessageHeader{TS: "1.0"}, User: "U1", Text: "hi"},
		&domain.TextMessage{MessageHeader: domain.MessageHeader{TS: "2.0"}, User: "U2", Text: "hello"},
	}
	ctx := context.Background()

	result, err := f.service.History(ctx, "#general", domain.TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, "C1", result.Conversation.ID)
	assert.Equal(t, "#general", result.Name)
	assert.Len(t, result.Messages, 2)
	assert.Contains(t, result.Users, "U1")

	archived, err := f.archive.Messages(ctx, "C1", domain.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	// The directory is now archived and is not fetched again.
	_, err = f.service.History(ctx, "@bob", domain.TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.calls["conversations"])
}

func TestExportService_HistoryRefreshesStaleDirectory(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	require.NoError(t, f.archive.SaveConversations(ctx, []domain.Conversation{{ID: "C9", Name: "old"}}))
	require.NoError(t, f.archive.SaveUsers(ctx, []domain.User{{ID: "U9", Name: "old"}}))

	result, err := f.service.History(ctx, "secret", domain.TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, "G1", result.Conversation.ID)
	assert.Equal(t, 1, f.api.calls["conversations"])
}

func TestExportService_HistoryUnknownConversation(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.service.History(context.Background(), "#nope", domain.TimeRange{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportService_HistoryInvalidInput(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.service.History(ctx, "  ", domain.TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.History(ctx, "#general", domain.TimeRange{From: time.Unix(200, 0), To: time.Unix(100, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "#general", safeName("#general"))
	assert.Equal(t, "a_b", safeName("a/b"))
	assert.Equal(t, "_", safeName(".."))
	assert.Equal(t, "F1", fileName(domain.File{ID: "F1", Name: " "}))
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// DefaultExportKinds are retrieved when Export is called without kinds.
var DefaultExportKinds = []domain.ExportKind{
	domain.ExportConversations,
	domain.ExportUsers,
	domain.ExportFiles,
}

// ExportService retrieves workspace data, archives it and downloads files.
type ExportService struct {
	api      driven.SlackAPI
	archive  driven.ArchiveStore
	runs     driven.ExportRunStore
	fs       afero.Fs
	resolver *ConflictResolver
	settings domain.Settings
	now      func() time.Time

	// Status tracking
	mu     sync.RWMutex
	active map[domain.ExportKind]*driving.ExportStatus
}

// NewExportService creates a new export service.
// runs may be nil, in which case export runs are not recorded.
func NewExportService(
	api driven.SlackAPI,
	archive driven.ArchiveStore,
	runs driven.ExportRunStore,
	fsys afero.Fs,
	resolver *ConflictResolver,
	settings domain.Settings,
) *ExportService {
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if settings.ConflictStrategy == "" {
		settings.ConflictStrategy = domain.DefaultConflictStrategy
	}
	if resolver == nil {
		resolver = NewConflictResolver(fsys, nil)
	}
	return &ExportService{
		api:      api,
		archive:  archive,
		runs:     runs,
		fs:       fsys,
		resolver: resolver,
		settings: settings,
		now:      time.Now,
		active:   make(map[domain.ExportKind]*driving.ExportStatus),
	}
}

// workspace is the result of one concurrent retrieval.
type workspace struct {
	conversations map[string]domain.Conversation
	users         map[string]domain.User
	files         map[string]domain.File
}

// Export retrieves the given collections concurrently and archives them.
func (s *ExportService) Export(ctx context.Context, kinds []domain.ExportKind) (*driving.ExportSummary, error) {
	kinds, err := normaliseKinds(kinds)
	if err != nil {
		return nil, err
	}

	ws, err := s.collect(ctx, kinds, domain.FileQuery{})
	if err != nil {
		return nil, err
	}

	summary := &driving.ExportSummary{
		Conversations: len(ws.conversations),
		Users:         len(ws.users),
		Files:         len(ws.files),
	}
	logger.Info("Export complete: %d conversations, %d users, %d files",
		summary.Conversations, summary.Users, summary.Files)
	return summary, nil
}

// collect runs the retrievals for kinds in an errgroup bounded by the
// configured worker count. The first failure cancels the rest.
func (s *ExportService) collect(ctx context.Context, kinds []domain.ExportKind, q domain.FileQuery) (*workspace, error) {
	ws := &workspace{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)

	for _, kind := range kinds {
		switch kind {
		case domain.ExportConversations:
			g.Go(func() error {
				var err error
				ws.conversations, err = s.retrieveConversations(gctx)
				return err
			})
		case domain.ExportUsers:
			g.Go(func() error {
				var err error
				ws.users, err = s.retrieveUsers(gctx)
				return err
			})
		case domain.ExportFiles:
			g.Go(func() error {
				var err error
				ws.files, err = s.retrieveFiles(gctx, q)
				return err
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *ExportService) retrieveConversations(ctx context.Context) (map[string]domain.Conversation, error) {
	var out map[string]domain.Conversation
	err := s.track(ctx, domain.ExportConversations, "", func(ctx context.Context, progress func(int)) (int, error) {
		conversations, err := s.api.Conversations(ctx, s.settings.ConversationTypes, progress)
		if err != nil {
			return 0, fmt.Errorf("retrieve conversations: %w", err)
		}
		if err := s.archive.SaveConversations(ctx, slices.Collect(maps.Values(conversations))); err != nil {
			return 0, fmt.Errorf("archive conversations: %w", err)
		}
		out = conversations
		return len(conversations), nil
	})
	return out, err
}

func (s *ExportService) retrieveUsers(ctx context.Context) (map[string]domain.User, error) {
	var out map[string]domain.User
	err := s.track(ctx, domain.ExportUsers, "", func(ctx context.Context, progress func(int)) (int, error) {
		users, err := s.api.Users(ctx, progress)
		if err != nil {
			return 0, fmt.Errorf("retrieve users: %w", err)
		}
		if err := s.archive.SaveUsers(ctx, slices.Collect(maps.Values(users))); err != nil {
			return 0, fmt.Errorf("archive users: %w", err)
		}
		out = users
		return len(users), nil
	})
	return out, err
}

func (s *ExportService) retrieveFiles(ctx context.Context, q domain.FileQuery) (map[string]domain.File, error) {
	var out map[string]domain.File
	err := s.track(ctx, domain.ExportFiles, "", func(ctx context.Context, progress func(int)) (int, error) {
		files, err := s.api.Files(ctx, q, progress)
		if err != nil {
			return 0, fmt.Errorf("retrieve files: %w", err)
		}
		if err := s.archive.SaveFiles(ctx, slices.Collect(maps.Values(files))); err != nil {
			return 0, fmt.Errorf("archive files: %w", err)
		}
		out = files
		return len(files), nil
	})
	return out, err
}

// track runs one retrieval with live status and an export run record.
func (s *ExportService) track(
	ctx context.Context,
	kind domain.ExportKind,
	target string,
	retrieve func(ctx context.Context, progress func(int)) (int, error),
) error {
	if err := s.begin(kind); err != nil {
		return err
	}
	defer s.end(kind)

	run := domain.ExportRun{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		Status:    domain.RunRunning,
		StartedAt: s.now(),
	}
	s.saveRun(ctx, run)

	logger.Info("Retrieving %s", kind)
	items, err := retrieve(ctx, func(total int) {
		s.progress(kind, total)
		logger.Debug("Retrieved %d %s so far", total, kind)
	})

	run.Items = items
	run.FinishedAt = s.now()
	if err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
		s.failed(kind)
		if !domain.IsCancelled(err) {
			logger.Error("Retrieving %s failed: %v", kind, err)
		}
	} else {
		run.Status = domain.RunCompleted
		logger.Info("Retrieved %d %s", items, kind)
	}
	s.saveRun(context.WithoutCancel(ctx), run)
	return err
}

func (s *ExportService) saveRun(ctx context.Context, run domain.ExportRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		logger.Warn("Failed to record %s run %s: %v", run.Kind, run.ID, err)
	}
}

// DownloadFiles downloads files grouped by the conversation they were
// uploaded to. Conversations are processed by display name and files by
// creation time.
func (s *ExportService) DownloadFiles(ctx context.Context, req driving.DownloadRequest) (*driving.DownloadReport, error) {
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.settings.OutputDir
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = s.settings.ConflictStrategy
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: conflict strategy %q", domain.ErrInvalidInput, strategy)
	}

	ws, err := s.collect(ctx, DefaultExportKinds, domain.FileQuery{From: req.Range.From, To: req.Range.To})
	if err != nil {
		return nil, err
	}

	if s.settings.InferLocation {
		if ws.files, err = s.completeShares(ctx, ws.files); err != nil {
			return nil, err
		}
	}

	grouped := domain.GroupFilesByConversation(ws.files)
	report := &driving.DownloadReport{Unplaced: len(grouped[""])}
	if report.Unplaced > 0 {
		logger.Warn("%d files have no known upload location and were not downloaded", report.Unplaced)
	}
	delete(grouped, "")

	ids := slices.Collect(maps.Keys(grouped))
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = domain.ConversationName(ws.conversations, ws.users, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if names[ids[i]] == names[ids[j]] {
			return ids[i] < ids[j]
		}
		return names[ids[i]] < names[ids[j]]
	})

	report.Conversations = make([]driving.ConversationDownload, len(ids))

	// Conversations sharing a folder name (e.g. several unknown ones) are
	// handled by one worker so conflict decisions in a folder never race.
	var dirs []string
	byDir := make(map[string][]int)
	for i, id := range ids {
		dir := filepath.Join(outputDir, safeName(names[id]))
		report.Conversations[i] = driving.ConversationDownload{ConversationID: id, Name: names[id], Dir: dir}
		if _, ok := byDir[dir]; !ok {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for _, dir := range dirs {
		g.Go(func() error {
			for _, i := range byDir[dir] {
				c := &report.Conversations[i]
				stats, err := s.downloadConversation(gctx, dir, grouped[c.ConversationID], strategy)
				c.Stats = stats
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range report.Conversations {
		report.Total.Add(c.Stats)
	}
	logger.Info("Downloaded %d files (%s), %d renamed, %d skipped, %d identical, %d failed",
		report.Total.Downloaded, humanize.Bytes(uint64(report.Total.Bytes)),
		report.Total.Renamed, report.Total.Skipped, report.Total.Identical, report.Total.Failed)
	return report, nil
}

// completeShares fetches share details for files visible in several
// conversations. A file whose details cannot be fetched keeps its listed
// location; only cancellation aborts.
func (s *ExportService) completeShares(ctx context.Context, files map[string]domain.File) (map[string]domain.File, error) {
	var ids []string
	for id, f := range files {
		if f.AmbiguousLocation() {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return files, nil
	}
	sort.Strings(ids)
	logger.Info("Fetching share details of %d files", len(ids))

	out := maps.Clone(files)
	var (
		mu      sync.Mutex
		updated []domain.File
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for _, id := range ids {
		g.Go(func() error {
			info, err := s.api.File(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return fmt.Errorf("%w: %w", domain.ErrCancelled, gctx.Err())
				}
				logger.Warn("Cannot fetch share details of %s: %v", id, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			f := out[id]
			f.Shares = info.Shares
			out[id] = f
			updated = append(updated, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.archive.SaveFiles(ctx, updated); err != nil {
		return nil, fmt.Errorf("archive files: %w", err)
	}
	return out, nil
}

func (s *ExportService) downloadConversation(ctx context.Context, dir string, files []domain.File, strategy domain.ConflictStrategy) (domain.DownloadStats, error) {
	var stats domain.DownloadStats

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return stats, fmt.Errorf("create %s: %w", dir, err)
	}

	for _, f := range files {
		outcome, n, err := s.downloadFile(ctx, dir, f, strategy)
		if err != nil {
			if ctx.Err() != nil {
				return stats, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
			}
			logger.Warn("Failed to download %s (%s): %v", f.Name, f.ID, err)
			outcome = domain.OutcomeFailed
		}
		stats.Record(outcome, n)
	}

	logger.Info("%s: %d downloaded, %d renamed, %d skipped, %d identical, %d failed (%s)",
		dir, stats.Downloaded, stats.Renamed, stats.Skipped, stats.Identical, stats.Failed,
		humanize.Bytes(uint64(stats.Bytes)))
	return stats, nil
}

// downloadFile materialises one file in dir according to strategy.
// Under the hash strategy an occupied target is compared against the
// downloaded content before deciding where it goes.
func (s *ExportService) downloadFile(ctx context.Context, dir string, f domain.File, strategy domain.ConflictStrategy) (domain.DownloadOutcome, int64, error) {
	if f.DownloadURL == "" {
		return domain.OutcomeFailed, 0, fmt.Errorf("%w: file %s has no download url", domain.ErrInvalidInput, f.ID)
	}
	target := filepath.Join(dir, fileName(f))

	exists, err := afero.Exists(s.fs, target)
	if err != nil {
		return domain.OutcomeFailed, 0, err
	}

	if strategy != domain.ConflictStrategyHash || !exists {
		decision, err := s.resolver.Resolve(ctx, target, strategy, f.Size, "")
		if err != nil {
			return domain.OutcomeFailed, 0, err
		}
		if decision.Action == domain.ConflictSkipExisting {
			return domain.OutcomeSkipped, 0, nil
		}
		n, hash, err := s.fetch(ctx, f.DownloadURL, target)
		if err != nil {
			return domain.OutcomeFailed, 0, err
		}
		s.resolver.Remember(target, hash)
		return domain.OutcomeDownloaded, n, nil
	}

	tmp := filepath.Join(dir, "."+fileName(f)+"."+uuid.NewString()+".part")
	n, hash, err := s.fetch(ctx, f.DownloadURL, tmp)
	if err != nil {
		return domain.OutcomeFailed, 0, err
	}

	decision, err := s.resolver.Resolve(ctx, target, strategy, n, hash)
	if err != nil {
		_ = s.fs.Remove(tmp)
		return domain.OutcomeFailed, 0, err
	}

	switch decision.Action {
	case domain.ConflictTreatAsIdentical, domain.ConflictSkipExisting:
		if err := s.fs.Remove(tmp); err != nil {
			logger.Warn("Failed to remove %s: %v", tmp, err)
		}
		logger.Debug("%s is identical to the existing file", target)
		return domain.OutcomeIdentical, 0, nil
	default:
		dest := decision.Path(target)
		if err := s.fs.Rename(tmp, dest); err != nil {
			_ = s.fs.Remove(tmp)
			return domain.OutcomeFailed, 0, fmt.Errorf("move to %s: %w", dest, err)
		}
		s.resolver.Remember(dest, hash)
		if decision.Action == domain.ConflictRenameWithSuffix {
			logger.Info("%s differs from the existing file, saved as %s", fileName(f), filepath.Base(dest))
			return domain.OutcomeRenamed, n, nil
		}
		return domain.OutcomeDownloaded, n, nil
	}
}

// fetch downloads url into path and returns the size and sha256 of the content.
// A partial file is removed on failure.
func (s *ExportService) fetch(ctx context.Context, url, path string) (int64, string, error) {
	out, err := s.fs.Create(path)
	if err != nil {
		return 0, "", fmt.Errorf("create %s: %w", path, err)
	}

	h := sha256.New()
	n, err := s.api.Download(ctx, url, io.MultiWriter(out, h))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := s.fs.Remove(path); rmErr != nil {
			logger.Debug("Failed to remove partial file %s: %v", path, rmErr)
		}
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// History fetches a conversation's messages, archives them and returns
// them with the users needed to print them.
func (s *ExportService) History(ctx context.Context, ref string, r domain.TimeRange) (*driving.HistoryResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: conversation is required", domain.ErrInvalidInput)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, fmt.Errorf("%w: time range ends before it starts", domain.ErrInvalidInput)
	}

	conversations, users, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	conv, err := domain.FindConversation(conversations, users, ref)
	if errors.Is(err, domain.ErrNotFound) {
		// The archive may be stale; refresh once before giving up.
		ws, cerr := s.collect(ctx, []domain.ExportKind{domain.ExportConversations, domain.ExportUsers}, domain.FileQuery{})
		if cerr != nil {
			return nil, cerr
		}
		conversations, users = ws.conversations, ws.users
		conv, err = domain.FindConversation(conversations, users, ref)
	}
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	err = s.track(ctx, domain.ExportHistory, conv.ID, func(ctx context.Context, progress func(int)) (int, error) {
		var err error
		messages, err = s.api.History(ctx, conv.ID, r, progress)
		if err != nil {
			return 0, fmt.Errorf("retrieve history of %s: %w", conv.ID, err)
		}
		if err := s.archive.SaveMessages(ctx, conv.ID, messages); err != nil {
			return 0, fmt.Errorf("archive history of %s: %w", conv.ID, err)
		}
		return len(messages), nil
	})
	if err != nil {
		return nil, err
	}

	return &driving.HistoryResult{
		Conversation: conv,
		Name:         conv.DisplayName(users),
		Messages:     messages,
		Users:        users,
	}, nil
}

// directory returns archived conversations and users, retrieving them
// when the archive holds none.
func (s *ExportService) directory(ctx context.Context) (map[string]domain.Conversation, map[string]domain.User, error) {
	conversations, err := s.archive.Conversations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversations: %w", err)
	}
	users, err := s.archive.Users(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load users: %w", err)
	}
	if len(conversations) > 0 && len(users) > 0 {
		return conversations, users, nil
	}

	ws, err := s.collect(ctx, []domain.ExportKind{domain.ExportConversations, domain.ExportUsers}, domain.FileQuery{})
	if err != nil {
		return nil, nil, err
	}
	return ws.conversations, ws.users, nil
}

// Status returns the live status of an export kind.
func (s *ExportService) Status(kind domain.ExportKind) *driving.ExportStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status, ok := s.active[kind]; ok {
		// Return a copy to avoid race conditions
		cp := *status
		return &cp
	}
	return &driving.ExportStatus{Kind: kind}
}

// Runs returns recent export runs, newest first.
func (s *ExportService) Runs(ctx context.Context, limit int) ([]domain.ExportRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

func (s *ExportService) begin(kind domain.ExportKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[kind]; ok {
		return fmt.Errorf("%w: %s", domain.ErrExportInProgress, kind)
	}
	s.active[kind] = &driving.ExportStatus{Kind: kind, Running: true}
	return nil
}

func (s *ExportService) end(kind domain.ExportKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, kind)
}

func (s *ExportService) progress(kind domain.ExportKind, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.active[kind]; ok {
		status.ItemsRetrieved = total
	}
}

func (s *ExportService) failed(kind domain.ExportKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.active[kind]; ok {
		status.ErrorCount++
	}
}

// normaliseKinds applies the default kinds and removes duplicates.
func normaliseKinds(kinds []domain.ExportKind) ([]domain.ExportKind, error) {
	if len(kinds) == 0 {
		return DefaultExportKinds, nil
	}
	seen := make(map[domain.ExportKind]bool, len(kinds))
	out := make([]domain.ExportKind, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case domain.ExportConversations, domain.ExportUsers, domain.ExportFiles:
		default:
			return nil, fmt.Errorf("%w: cannot export %q", domain.ErrInvalidInput, k)
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, nil
}

// fileName returns a file's on-disk name, falling back to its ID.
func fileName(f domain.File) string {
	if name := safeName(f.Name); name != "" {
		return name
	}
	return f.ID
}

// safeName makes a display name usable as a single path element.
func safeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(name)
	if name == "." || name == ".." {
		return "_"
	}
	return name
}

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/slack-archive/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// dbFile is the archive database file name inside the data directory.
const dbFile = "archive.db"

// Store is a SQLite-backed archive. ArchiveStore and RunStore expose the
// port interfaces over one connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in dataDir.
// If dataDir is empty, defaults to ~/.slack-archive/data/archive.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".slack-archive", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets the history command read while an export writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ArchiveStore returns an ArchiveStore backed by this store.
// Closing it closes the store.
func (s *Store) ArchiveStore() driven.ArchiveStore {
	return &archiveStore{store: s}
}

// RunStore returns an ExportRunStore backed by this store.
func (s *Store) RunStore() driven.ExportRunStore {
	return &runStore{store: s}
}

// migrate applies pending up migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Archive Store ====================

// archiveStore implements driven.ArchiveStore.
type archiveStore struct {
	store *Store
}

var _ driven.ArchiveStore = (*archiveStore)(nil)

// SaveConversations stores or replaces conversations.
func (s *archiveStore) SaveConversations(ctx context.Context, conversations []domain.Conversation) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversations (id, name, type, user_id, topic, purpose, archived, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				user_id = excluded.user_id,
				topic = excluded.topic,
				purpose = excluded.purpose,
				archived = excluded.archived,
				created_at = excluded.created_at
		`)
		if err != nil {
			return fmt.Errorf("preparing conversation insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range conversations {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name, string(c.Type), nullString(c.UserID),
				c.Topic, c.Purpose, boolToInt(c.Archived), nullTime(c.Created)); err != nil {
				return fmt.Errorf("saving conversation %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Conversations returns every archived conversation.
func (s *archiveStore) Conversations(ctx context.Context) (map[string]domain.Conversation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, type, user_id, topic, purpose, archived, created_at
		FROM conversations
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Conversation)
	for rows.Next() {
		var (
			c        domain.Conversation
			convType string
			userID   sql.NullString
			archived int
			created  sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &convType, &userID, &c.Topic, &c.Purpose,
			&archived, &created); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		c.Type = domain.ConversationType(convType)
		c.UserID = userID.String
		c.Archived = archived != 0
		if created.Valid {
			c.Created = created.Time
		}
		out[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return out, nil
}

// SaveUsers stores or replaces users.
func (s *archiveStore) SaveUsers(ctx context.Context, users []domain.User) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO users (id, name, real_name, display_name, deleted, is_bot, time_zone)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				real_name = excluded.real_name,
				display_name = excluded.display_name,
				deleted = excluded.deleted,
				is_bot = excluded.is_bot,
				time_zone = excluded.time_zone
		`)
		if err != nil {
			return fmt.Errorf("preparing user insert: %w", err)
		}
		defer stmt.Close()

		for _, u := range users {
			if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.RealName, u.DisplayName,
				boolToInt(u.Deleted), boolToInt(u.IsBot), u.TimeZone); err != nil {
				return fmt.Errorf("saving user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// Users returns every archived user.
func (s *archiveStore) Users(ctx context.Context) (map[string]domain.User, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, real_name, display_name, deleted, is_bot, time_zone
		FROM users
	`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.User)
	for rows.Next() {
		var (
			u              domain.User
			deleted, isBot int
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.RealName, &u.DisplayName,
			&deleted, &isBot, &u.TimeZone); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Deleted = deleted != 0
		u.IsBot = isBot != 0
		out[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return out, nil
}

// SaveFiles stores or replaces file metadata.
func (s *archiveStore) SaveFiles(ctx context.Context, files []domain.File) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO files (id, name, title, mimetype, filetype, size, download_url, user_id,
				created_at, channel_ids, group_ids, im_ids, shares)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				title = excluded.title,
				mimetype = excluded.mimetype,
				filetype = excluded.filetype,
				size = excluded.size,
				download_url = excluded.download_url,
				user_id = excluded.user_id,
				created_at = excluded.created_at,
				channel_ids = excluded.channel_ids,
				group_ids = excluded.group_ids,
				im_ids = excluded.im_ids,
				shares = excluded.shares
		`)
		if err != nil {
			return fmt.Errorf("preparing file insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range files {
			lists, err := marshalAll(f.Channels, f.Groups, f.IMs, f.Shares)
			if err != nil {
				return fmt.Errorf("encoding file %s: %w", f.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, f.ID, f.Name, f.Title, f.Mimetype, f.Filetype,
				f.Size, f.DownloadURL, f.UserID, nullTime(f.Created),
				lists[0], lists[1], lists[2], lists[3]); err != nil {
				return fmt.Errorf("saving file %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

// Files returns every archived file.
func (s *archiveStore) Files(ctx context.Context) (map[string]domain.File, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, title, mimetype, filetype, size, download_url, user_id,
			created_at, channel_ids, group_ids, im_ids, shares
		FROM files
	`)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.File)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return out, nil
}

// SaveMessages stores or replaces messages of one conversation.
func (s *archiveStore) SaveMessages(ctx context.Context, conversationID string, messages []domain.Message) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversation ID is required", domain.ErrInvalidInput)
	}
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO messages (conversation_id, ts, ts_micros, kind, subtype, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(conversation_id, ts) DO UPDATE SET
				ts_micros = excluded.ts_micros,
				kind = excluded.kind,
				subtype = excluded.subtype,
				payload = excluded.payload
		`)
		if err != nil {
			return fmt.Errorf("preparing message insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range messages {
			kind, payload, err := encodeMessage(m)
			if err != nil {
				return err
			}
			var micros int64
			if t, err := domain.ParseTimestamp(m.Timestamp()); err == nil {
				micros = t.UnixMicro()
			}
			if _, err := stmt.ExecContext(ctx, conversationID, m.Timestamp(), micros, kind,
				string(m.Subtype()), payload); err != nil {
				return fmt.Errorf("saving message %s: %w", m.Timestamp(), err)
			}
		}
		return nil
	})
}

// Messages returns a conversation's messages in the range, oldest first.
func (s *archiveStore) Messages(ctx context.Context, conversationID string, r domain.TimeRange) ([]domain.Message, error) {
	query := `SELECT ts, kind, subtype, payload FROM messages WHERE conversation_id = ?`
	args := []any{conversationID}
	if !r.From.IsZero() {
		query += " AND ts_micros >= ?"
		args = append(args, r.From.UnixMicro())
	}
	if !r.To.IsZero() {
		query += " AND ts_micros <= ?"
		args = append(args, r.To.UnixMicro())
	}
	query += " ORDER BY ts_micros"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ts, kind, subtype, payload string
		if err := rows.Scan(&ts, &kind, &subtype, &payload); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m, err := decodeMessage(ts, kind, payload)
		if err != nil {
			return nil, err
		}
		m.SetSubtype(domain.MessageSubtype(subtype))
		// Microsecond rounding may admit edge rows the exact range excludes.
		if r.Contains(ts) {
			out = append(out, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	domain.SortMessages(out)
	return out, nil
}

// Close closes the underlying store.
func (s *archiveStore) Close() error {
	return s.store.Close()
}

// ==================== Run Store ====================

// runStore implements driven.ExportRunStore.
type runStore struct {
	store *Store
}

var _ driven.ExportRunStore = (*runStore)(nil)

// SaveRun stores or updates a run.
func (s *runStore) SaveRun(ctx context.Context, run domain.ExportRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO export_runs (id, kind, target, status, items, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			items = excluded.items,
			error = excluded.error,
			finished_at = excluded.finished_at
	`, run.ID, string(run.Kind), run.Target, string(run.Status), run.Items, run.Error,
		run.StartedAt.UTC(), nullTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("saving export run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.ExportRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, kind, target, status, items, error, started_at, finished_at
		FROM export_runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. A limit of 0 returns all.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.ExportRun, error) {
	query := `
		SELECT id, kind, target, status, items, error, started_at, finished_at
		FROM export_runs ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying export runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ExportRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating export runs: %w", err)
	}
	return runs, nil
}

// ==================== Helpers ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.ExportRun, error) {
	var (
		run          domain.ExportRun
		kind, status string
		startedAt    time.Time
		finishedAt   sql.NullTime
	)
	if err := row.Scan(&run.ID, &kind, &run.Target, &status, &run.Items, &run.Error,
		&startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scanning export run: %w", err)
	}
	run.Kind = domain.ExportKind(kind)
	run.Status = domain.RunStatus(status)
	run.StartedAt = startedAt
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

func scanFile(rows *sql.Rows) (domain.File, error) {
	var (
		f                            domain.File
		created                      sql.NullTime
		channels, groups, ims, share string
	)
	if err := rows.Scan(&f.ID, &f.Name, &f.Title, &f.Mimetype, &f.Filetype, &f.Size,
		&f.DownloadURL, &f.UserID, &created, &channels, &groups, &ims, &share); err != nil {
		return f, fmt.Errorf("scanning file: %w", err)
	}
	if created.Valid {
		f.Created = created.Time
	}
	for _, col := range []struct {
		raw  string
		dest any
	}{
		{channels, &f.Channels},
		{groups, &f.Groups},
		{ims, &f.IMs},
		{share, &f.Shares},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dest); err != nil {
			return f, fmt.Errorf("decoding file %s: %w", f.ID, err)
		}
	}
	return f, nil
}

// marshalAll encodes each value as JSON. Nil slices and maps encode as
// empty collections rather than null.
func marshalAll(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case []string:
			if t == nil {
				v = []string{}
			}
		case map[string]string:
			if t == nil {
				v = map[string]string{}
			}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

// nullString converts an empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime converts a zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

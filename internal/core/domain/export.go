package domain

import "time"

// ExportKind identifies what an export run retrieved.
type ExportKind string

// Export kinds.
const (
	ExportConversations ExportKind = "conversations"
	ExportUsers         ExportKind = "users"
	ExportFiles         ExportKind = "files"
	ExportHistory       ExportKind = "history"
)

// RunStatus is the lifecycle state of an export run.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ExportRun records one retrieval in the archive.
type ExportRun struct {
	ID   string
	Kind ExportKind

	// Target is the conversation ID for history runs, empty otherwise.
	Target string

	Status     RunStatus
	Items      int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// TimeRange bounds a retrieval. Zero values are open bounds.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the Slack timestamp ts falls within the range.
// Both bounds are inclusive. Unparseable timestamps are outside every
// bounded range.
func (r TimeRange) Contains(ts string) bool {
	if r.From.IsZero() && r.To.IsZero() {
		return true
	}
	t, err := ParseTimestamp(ts)
	if err != nil {
		return false
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// DownloadOutcome is the result of materialising one file.
type DownloadOutcome int

// Download outcomes.
const (
	OutcomeDownloaded DownloadOutcome = iota
	OutcomeRenamed
	OutcomeSkipped
	OutcomeIdentical
	OutcomeFailed
)

// DownloadStats aggregates download outcomes.
type DownloadStats struct {
	Downloaded int
	Renamed    int
	Skipped    int
	Identical  int
	Failed     int

	// Bytes counts bytes written to disk.
	Bytes int64
}

// Record adds one outcome. Bytes is ignored for outcomes that write nothing.
func (s *DownloadStats) Record(outcome DownloadOutcome, bytes int64) {
	switch outcome {
	case OutcomeDownloaded:
		s.Downloaded++
		s.Bytes += bytes
	case OutcomeRenamed:
		s.Renamed++
		s.Bytes += bytes
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeIdentical:
		s.Identical++
	case OutcomeFailed:
		s.Failed++
	}
}

// Add merges other into s.
func (s *DownloadStats) Add(other DownloadStats) {
	s.Downloaded += other.Downloaded
	s.Renamed += other.Renamed
	s.Skipped += other.Skipped
	s.Identical += other.Identical
	s.Failed += other.Failed
	s.Bytes += other.Bytes
}

// Total returns the number of files considered.
func (s DownloadStats) Total() int {
	return s.Downloaded + s.Renamed + s.Skipped + s.Identical + s.Failed
}

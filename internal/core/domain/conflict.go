package domain

import (
	"fmt"
	"strings"
)

// ConflictStrategy is the configured policy for an occupied download path.
type ConflictStrategy string

// Available conflict strategies.
const (
	// ConflictStrategyOverwrite replaces the existing file.
	ConflictStrategyOverwrite ConflictStrategy = "overwrite"

	// ConflictStrategySkip leaves the existing file untouched.
	ConflictStrategySkip ConflictStrategy = "skip"

	// ConflictStrategyHash compares content and keeps both files when they differ.
	ConflictStrategyHash ConflictStrategy = "hash"
)

// DefaultConflictStrategy is used when nothing is configured.
const DefaultConflictStrategy = ConflictStrategyHash

// IsValid returns true if the strategy is recognised.
func (s ConflictStrategy) IsValid() bool {
	switch s {
	case ConflictStrategyOverwrite, ConflictStrategySkip, ConflictStrategyHash:
		return true
	default:
		return false
	}
}

// ParseConflictStrategy parses a strategy name. Empty selects the default.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultConflictStrategy, nil
	}
	strategy := ConflictStrategy(s)
	if !strategy.IsValid() {
		return "", fmt.Errorf("%w: unknown conflict strategy %q", ErrInvalidInput, s)
	}
	return strategy, nil
}

// ConflictAction is what the file writer should do with a target path.
type ConflictAction int

const (
	// ConflictOverwrite writes to the target, creating or replacing it.
	ConflictOverwrite ConflictAction = iota
	// ConflictSkipExisting leaves the existing target untouched.
	ConflictSkipExisting
	// ConflictRenameWithSuffix writes to the target with a numeric suffix.
	ConflictRenameWithSuffix
	// ConflictTreatAsIdentical means the existing target already holds the content.
	ConflictTreatAsIdentical
)

// ConflictDecision is the resolver's verdict for one download target.
type ConflictDecision struct {
	Action ConflictAction

	// Suffix is set for ConflictRenameWithSuffix and is always >= 1.
	Suffix int
}

// Decisions without parameters.
var (
	DecisionOverwrite        = ConflictDecision{Action: ConflictOverwrite}
	DecisionSkipExisting     = ConflictDecision{Action: ConflictSkipExisting}
	DecisionTreatAsIdentical = ConflictDecision{Action: ConflictTreatAsIdentical}
)

// RenameWithSuffix returns a rename decision for suffix n.
func RenameWithSuffix(n int) ConflictDecision {
	return ConflictDecision{Action: ConflictRenameWithSuffix, Suffix: n}
}

// Path returns the path the decision writes to, or "" when nothing is written.
func (d ConflictDecision) Path(target string) string {
	switch d.Action {
	case ConflictOverwrite:
		return target
	case ConflictRenameWithSuffix:
		return SuffixedPath(target, d.Suffix)
	default:
		return ""
	}
}

func (d ConflictDecision) String() string {
	switch d.Action {
	case ConflictOverwrite:
		return "overwrite"
	case ConflictSkipExisting:
		return "skip-existing"
	case ConflictRenameWithSuffix:
		return fmt.Sprintf("rename-with-suffix(%d)", d.Suffix)
	case ConflictTreatAsIdentical:
		return "identical"
	default:
		return "unknown"
	}
}

// SuffixedPath returns target with the numeric suffix n appended ("a.txt.2").
func SuffixedPath(target string, n int) string {
	return fmt.Sprintf("%s.%d", target, n)
}

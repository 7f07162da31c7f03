package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// dateLayout is the short form accepted by --from and --to.
const dateLayout = "2006-01-02"

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// parseTimeRange parses --from and --to. Both accept RFC 3339 or a date;
// a date in --to covers the whole day.
func parseTimeRange(from, to string) (domain.TimeRange, error) {
	var r domain.TimeRange
	var err error
	if from != "" {
		if r.From, err = parseTime(from, false); err != nil {
			return r, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if r.To, err = parseTime(to, true); err != nil {
			return r, fmt.Errorf("--to: %w", err)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("%w: --to is before --from", domain.ErrInvalidInput)
	}
	return r, nil
}

func parseTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither YYYY-MM-DD nor RFC 3339", domain.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return t, nil
}

// maskToken keeps the token type prefix and the last four characters.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	masked := strings.Repeat("*", 8) + token[len(token)-4:]
	if prefix, _, ok := strings.Cut(token, "-"); ok && len(prefix) <= 5 {
		return prefix + "-" + masked
	}
	return masked
}

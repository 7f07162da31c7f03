package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
)

// mockExportService implements driving.ExportService for testing.
type mockExportService struct {
	kinds   []domain.ExportKind
	request driving.DownloadRequest
	ref     string
	rng     domain.TimeRange
	limit   int

	summary *driving.ExportSummary
	report  *driving.DownloadReport
	history *driving.HistoryResult
	runs    []domain.ExportRun
	err     error
}

func (m *mockExportService) Export(_ context.Context, kinds []domain.ExportKind) (*driving.ExportSummary, error) {
	m.kinds = kinds
	if m.err != nil {
		return nil, m.err
	}
	if m.summary == nil {
		return &driving.ExportSummary{}, nil
	}
	return m.summary, nil
}

func (m *mockExportService) DownloadFiles(_ context.Context, req driving.DownloadRequest) (*driving.DownloadReport, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &driving.DownloadReport{}, nil
	}
	return m.report, nil
}

func (m *mockExportService) History(_ context.Context, ref string, r domain.TimeRange) (*driving.HistoryResult, error) {
	m.ref = ref
	m.rng = r
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *mockExportService) Status(kind domain.ExportKind) *driving.ExportStatus {
	return &driving.ExportStatus{Kind: kind}
}

func (m *mockExportService) Runs(_ context.Context, limit int) ([]domain.ExportRun, error) {
	m.limit = limit
	return m.runs, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	values map[string]string
	getErr error
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{values: make(map[string]string)}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := domain.DefaultSettings()
	s.Token = m.values[domain.KeyToken]
	return &s, nil
}

func (m *mockSettingsService) Value(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettingsService) Set(key, value string) error {
	if key == "bogus" {
		return domain.ErrInvalidInput
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{domain.KeyToken, domain.KeyOutputDir}
}

func (m *mockSettingsService) SaveToken(token string) error {
	m.values[domain.KeyToken] = token
	return nil
}

func (m *mockSettingsService) Path() string {
	return "/home/test/.slack-archive/config.toml"
}

// mockAuthService implements driving.AuthService for testing.
type mockAuthService struct {
	token string
	err   error
}

func (m *mockAuthService) Login(_ context.Context, token string) (*domain.Identity, error) {
	m.token = token
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Identity{Team: "Acme", TeamID: "T1", User: "alice", UserID: "U1"}, nil
}

func (m *mockAuthService) Whoami(_ context.Context) (*domain.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Identity{Team: "Acme", TeamID: "T1", User: "alice", UserID: "U1", URL: "https://acme.slack.com/"}, nil
}

// nopCloser counts Close calls.
type nopCloser struct{ closed int }

func (c *nopCloser) Close() error {
	c.closed++
	return nil
}

var errBoom = errors.New("boom")

// swapServices installs the given services and restores the previous
// ones, along with every flag value, when the test ends.
func swapServices(t *testing.T, settings driving.SettingsService, auth driving.AuthService, export driving.ExportService) {
	t.Helper()

	oldSettings, oldAuth, oldExport, oldBuild := settingsService, authService, exportService, buildExport
	oldWiring, oldInput := wiring, tokenInput
	settingsService, authService, exportService, buildExport = settings, auth, export, nil
	wiring = nil

	t.Cleanup(func() {
		settingsService, authService, exportService, buildExport = oldSettings, oldAuth, oldExport, oldBuild
		wiring, tokenInput = oldWiring, oldInput
		exportOnly = nil
		filesOutput, filesFrom, filesTo, filesConflict = "", "", "", ""
		historyFrom, historyTo = "", ""
		runsLimit = 20
		tokenFlag, configDir, verbose = "", "", false
		closeAll()
	})
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// stringReader returns an io.Reader over s.
func stringReader(s string) io.Reader {
	return strings.NewReader(s)
}

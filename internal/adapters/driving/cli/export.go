package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

var exportOnly []string

// progressInterval is how often live status is polled.
var progressInterval = 500 * time.Millisecond

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Retrieve and archive workspace metadata",
	Long: `Retrieves conversations, users and file metadata concurrently and stores
them in the local archive. The first collection that fails cancels the others.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringSliceVar(&exportOnly, "only", nil,
		"collections to export (conversations,users,files)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	kinds := make([]domain.ExportKind, 0, len(exportOnly))
	for _, k := range exportOnly {
		kinds = append(kinds, domain.ExportKind(strings.ToLower(strings.TrimSpace(k))))
	}

	svc, err := requireExport(cmd.Context())
	if err != nil {
		return err
	}

	logger.Section("Export")
	cmd.Println("Exporting workspace metadata...")
	summary, err := exportWithProgress(cmd, svc, kinds)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	cmd.Println(titleStyle.Render("Archived"))
	cmd.Printf("  %s %d\n", labelStyle.Render("Conversations:"), summary.Conversations)
	cmd.Printf("  %s %d\n", labelStyle.Render("Users:        "), summary.Users)
	cmd.Printf("  %s %d\n", labelStyle.Render("Files:        "), summary.Files)
	return nil
}

// exportWithProgress runs the export while polling live status onto stderr.
func exportWithProgress(
	cmd *cobra.Command,
	svc driving.ExportService,
	kinds []domain.ExportKind,
) (*driving.ExportSummary, error) {
	type result struct {
		summary *driving.ExportSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := svc.Export(cmd.Context(), kinds)
		done <- result{summary, err}
	}()

	watched := kinds
	if len(watched) == 0 {
		watched = []domain.ExportKind{domain.ExportConversations, domain.ExportUsers, domain.ExportFiles}
	}
	// Debug lines would interleave with the progress line.
	live := isTerminal(cmd.ErrOrStderr()) && !logger.IsVerbose()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			if live {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			return r.summary, r.err
		case <-ticker.C:
			if live {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", progressLine(svc, watched))
			}
		}
	}
}

func progressLine(svc driving.ExportService, kinds []domain.ExportKind) string {
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		status := svc.Status(kind)
		parts = append(parts, fmt.Sprintf("%s %d", kind, status.ItemsRetrieved))
	}
	return "Retrieving... " + strings.Join(parts, ", ")
}

package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

var (
	filesOutput   string
	filesFrom     string
	filesTo       string
	filesConflict string
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Download files grouped by conversation",
	Long: `Downloads every shared file into one folder per conversation, named after
the conversation each file was first shared in.

When a file already exists the conflict strategy decides what happens:
  overwrite - replace the existing file
  skip      - keep the existing file
  hash      - keep identical content, otherwise save as name.1, name.2, ...`,
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().StringVarP(&filesOutput, "output", "o", "", "output directory (default from config)")
	filesCmd.Flags().StringVar(&filesFrom, "from", "", "only files created on or after (YYYY-MM-DD or RFC 3339)")
	filesCmd.Flags().StringVar(&filesTo, "to", "", "only files created on or before (YYYY-MM-DD or RFC 3339)")
	filesCmd.Flags().StringVar(&filesConflict, "conflict", "", "conflict strategy: overwrite, skip or hash")
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	r, err := parseTimeRange(filesFrom, filesTo)
	if err != nil {
		return err
	}

	req := driving.DownloadRequest{OutputDir: filesOutput, Range: r}
	if filesConflict != "" {
		if req.Strategy, err = domain.ParseConflictStrategy(filesConflict); err != nil {
			return err
		}
	}

	svc, err := requireExport(cmd.Context())
	if err != nil {
		return err
	}

	logger.Section("Files")
	cmd.Println("Downloading files...")
	report, err := svc.DownloadFiles(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	printDownloadReport(cmd, report)
	return nil
}

func printDownloadReport(cmd *cobra.Command, report *driving.DownloadReport) {
	for _, c := range report.Conversations {
		cmd.Printf("%s %s\n", titleStyle.Render(c.Name), labelStyle.Render(c.Dir))
		cmd.Printf("  %s\n", statsLine(c.Stats))
	}

	cmd.Println()
	cmd.Println(titleStyle.Render("Total"))
	cmd.Printf("  %s\n", statsLine(report.Total))
	cmd.Printf("  %s written\n", humanize.Bytes(uint64(report.Total.Bytes))) //nolint:gosec // byte counts are never negative
	if report.Unplaced > 0 {
		cmd.Println(warnStyle.Render(fmt.Sprintf(
			"  %d files were not shared in any known conversation and were not downloaded", report.Unplaced)))
	}
}

func statsLine(s domain.DownloadStats) string {
	line := fmt.Sprintf("%d downloaded, %d renamed, %d identical, %d skipped",
		s.Downloaded, s.Renamed, s.Identical, s.Skipped)
	if s.Failed > 0 {
		line += ", " + errStyle.Render(fmt.Sprintf("%d failed", s.Failed))
	}
	return line
}

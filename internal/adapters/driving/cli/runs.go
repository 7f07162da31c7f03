package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent export runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	svc, err := requireExport(cmd.Context())
	if err != nil {
		return err
	}

	runs, err := svc.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No export runs recorded.")
		return nil
	}

	for _, run := range runs {
		kind := string(run.Kind)
		if run.Target != "" {
			kind += " " + run.Target
		}
		cmd.Printf("%s  %-22s %s %6d items%s\n",
			labelStyle.Render(run.StartedAt.Local().Format(time.DateTime)),
			kind, runStatus(run.Status), run.Items, runError(run))
	}
	return nil
}

func runStatus(s domain.RunStatus) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case domain.RunCompleted:
		return okStyle.Render(label)
	case domain.RunFailed:
		return errStyle.Render(label)
	default:
		return warnStyle.Render(label)
	}
}

func runError(run domain.ExportRun) string {
	if run.Error == "" {
		return ""
	}
	return "  " + run.Error
}

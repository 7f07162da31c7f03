package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

var (
	historyFrom string
	historyTo   string
)

// historyTimeLayout formats message times in the local zone.
const historyTimeLayout = "2006-01-02 15:04"

var historyCmd = &cobra.Command{
	Use:   "history <conversation>",
	Short: "Fetch, archive and print a conversation's messages",
	Long: `Fetches the message history of a conversation and stores it in the archive.

The conversation is a Slack ID (C0123…), a channel ("#general" or "general")
or a direct message ("@alice").`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "oldest message (YYYY-MM-DD or RFC 3339)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "latest message (YYYY-MM-DD or RFC 3339)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	r, err := parseTimeRange(historyFrom, historyTo)
	if err != nil {
		return err
	}

	svc, err := requireExport(cmd.Context())
	if err != nil {
		return err
	}

	result, err := svc.History(cmd.Context(), args[0], r)
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	cmd.Println(titleStyle.Render(result.Name))
	for _, m := range result.Messages {
		if line := formatMessage(m, result.Users); line != "" {
			cmd.Println(line)
		}
	}
	cmd.Println(labelStyle.Render(fmt.Sprintf("%d messages", len(result.Messages))))
	return nil
}

// formatMessage renders one message; variants without text render empty.
func formatMessage(m domain.Message, users map[string]domain.User) string {
	when := m.Timestamp()
	if t, err := domain.ParseTimestamp(m.Timestamp()); err == nil {
		when = t.Local().Format(historyTimeLayout)
	}

	switch msg := m.(type) {
	case *domain.TextMessage:
		text := msg.Text
		if len(msg.FileIDs) > 0 {
			text += labelStyle.Render(fmt.Sprintf(" [%d file(s)]", len(msg.FileIDs)))
		}
		return fmt.Sprintf("%s %s: %s", labelStyle.Render(when), domain.Username(users, msg.User), text)
	case *domain.ChannelMessage:
		return labelStyle.Render(fmt.Sprintf("%s * %s", when, msg.Text))
	default:
		return ""
	}
}

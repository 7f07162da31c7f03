package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth [token]",
	Short: "Store a Slack API token",
	Long: `Checks a Slack API token with auth.test and stores it in the config file.

The token is read from the argument, or prompted for without echo when
standard input is a terminal, or read from the first line of standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuth,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity of the configured token",
	RunE:  runAuthWhoami,
}

// tokenInput is where tokens are read from when no argument is given.
var tokenInput io.Reader = os.Stdin

func init() {
	authCmd.AddCommand(authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		var err error
		if token, err = readToken(cmd); err != nil {
			return err
		}
	}

	identity, err := authService.Login(cmd.Context(), token)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	cmd.Println(okStyle.Render("Token saved."))
	printIdentity(cmd, identity)
	return nil
}

func runAuthWhoami(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	identity, err := authService.Whoami(cmd.Context())
	if err != nil {
		return err
	}
	printIdentity(cmd, identity)
	return nil
}

func readToken(cmd *cobra.Command) (string, error) {
	if f, ok := tokenInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		cmd.Print("Slack token: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(tokenInput).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("%w: no token given", domain.ErrInvalidInput)
	}
	return token, nil
}

func printIdentity(cmd *cobra.Command, id *domain.Identity) {
	cmd.Printf("%s %s (%s)\n", labelStyle.Render("User:"), id.User, id.UserID)
	cmd.Printf("%s %s (%s)\n", labelStyle.Render("Team:"), id.Team, id.TeamID)
	if id.URL != "" {
		cmd.Printf("%s %s\n", labelStyle.Render("URL: "), id.URL)
	}
}

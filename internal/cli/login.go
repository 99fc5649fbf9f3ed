package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/ishaan812/changelog/internal/auth"
)

var (
	loginWeb  bool
	loginPort int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token in the OS keyring",
	Long: `Verify a GitHub token and store it in the OS keyring for later commands.

The token is taken from --token, read from the terminal, or obtained through
the browser with --web (requires github.client_id and github.client_secret).

Examples:
  changelog login --token ghp_...
  changelog login --web
  changelog login            # prompts for a token`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored GitHub token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().BoolVar(&loginWeb, "web", false, "Sign in through the browser")
	loginCmd.Flags().IntVar(&loginPort, "port", auth.DefaultLoginPort, "Loopback port for the browser sign-in (0 picks a free port)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		token string
		err   error
	)
	switch {
	case tokenFlag != "":
		token = tokenFlag
	case loginWeb:
		token, err = webLogin(ctx)
	default:
		token, err = promptToken()
	}
	if err != nil {
		return err
	}

	user, err := newGitHubClient().WithToken(token).GetAuthenticatedUser(ctx)
	if err != nil {
		return fmt.Errorf("token rejected by GitHub: %w", err)
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	color.New(color.FgHiGreen).Printf("Logged in as %s\n", user.Login)
	return nil
}

func webLogin(ctx context.Context) (string, error) {
	provider, err := auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, "")
	if err != nil {
		return "", fmt.Errorf("browser sign-in needs an OAuth app: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	color.New(color.FgHiBlack).Println("Waiting for GitHub sign-in in the browser...")
	return auth.LoginWithBrowser(ctx, provider, loginPort, auth.OpenBrowser, os.Stdout)
}

func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no token given; pass --token or --web")
	}
	color.New(color.FgHiYellow).Print("GitHub token: ")
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		color.New(color.FgHiBlack).Println("No stored token.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove token from keyring: %w", err)
	}
	color.New(color.FgHiGreen).Println("Logged out.")
	return nil
}

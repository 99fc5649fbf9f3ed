package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/auth"
	"github.com/ishaan812/changelog/internal/config"
	"github.com/ishaan812/changelog/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API: GitHub sign-in, commit sync, summaries and the public
repository page.

GitHub sign-in is enabled when github.client_id and github.client_secret are
set. Without them the dashboard endpoints still work for sessions created by
other means, and /api/login answers 503.

Examples:
  changelog serve
  changelog serve --addr :8080
  CHANGELOG_LLM_PROVIDER=ollama changelog serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	publicRepos, err := config.LoadPublicRepos(cfg.Server.PublicReposFile)
	if err != nil {
		return err
	}

	opts := server.Options{
		FrontendURL: cfg.Server.FrontendURL,
		PublicRepos: publicRepos,
	}
	if cfg.GitHub.ClientID != "" {
		provider, err := auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL)
		if err != nil {
			return fmt.Errorf("failed to configure GitHub sign-in: %w", err)
		}
		opts.Provider = provider
	} else {
		klog.Warningf("GitHub sign-in disabled: github.client_id is not set")
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(a.pipeline, a.github, auth.NewMemoryStore(cfg.Auth.SessionTTL), opts)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	klog.InfoS("Server stopped")
	return nil
}

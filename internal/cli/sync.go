package cli

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ishaan812/changelog/internal/github"
)

var syncSince string

var syncCmd = &cobra.Command{
	Use:   "sync <owner/repo>",
	Short: "Fetch the latest commits of a repository into the database",
	Long: `Fetch one page of commits from the default branch of a GitHub repository
and store the ones not seen before. Commits already stored are never changed.

Examples:
  changelog sync octo/hello
  changelog sync octo/hello --since 2024-01-01
  changelog sync octo/hello --since 2024-01-01T12:00:00+02:00`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncSince, "since", "", "Only fetch commits since this date (YYYY-MM-DD or RFC 3339)")
}

// parseSince accepts a date or an RFC 3339 timestamp. Empty means zero.
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	repo, err := github.ParseRepoRef(args[0])
	if err != nil {
		return err
	}
	since, err := parseSince(syncSince)
	if err != nil {
		return err
	}
	token, err := resolveToken()
	if err != nil {
		return err
	}

	titleColor := color.New(color.FgHiCyan, color.Bold)
	successColor := color.New(color.FgHiGreen)
	infoColor := color.New(color.FgHiWhite)
	dimColor := color.New(color.FgHiBlack)

	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := a.store.CountByRepo(ctx, repo.Key())
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Syncing %s...", repo)
	s.Start()
	res, err := a.pipeline.Sync(ctx, token, repo, since)
	s.Stop()
	if err != nil {
		return err
	}

	after, err := a.store.CountByRepo(ctx, repo.Key())
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  %s\n\n", repo)
	successColor.Print("  Branch:   ")
	infoColor.Println(res.Branch)
	successColor.Print("  Head:     ")
	infoColor.Println(res.HeadSHA[:12])
	successColor.Print("  Fetched:  ")
	infoColor.Printf("%d commits\n", len(res.Commits))
	successColor.Print("  New:      ")
	infoColor.Printf("%d\n", after-before)
	dimColor.Printf("\n  %d commits stored for %s\n\n", after, repo)
	return nil
}

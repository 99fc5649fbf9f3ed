package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/git"
	"github.com/ishaan812/changelog/internal/github"
)

var (
	importRepo  string
	importSince string
	importLimit int
)

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Store the commits of a local clone",
	Long: `Read the history of a local git clone from HEAD and store it as if it had
been synced from GitHub. The repository name is taken from the origin remote
unless --repo is given.

Examples:
  changelog import                       # current directory
  changelog import ~/src/hello --since 2024-01-01
  changelog import . --repo octo/hello --limit 500`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importRepo, "repo", "", "Repository name as owner/name (default: derived from origin)")
	importCmd.Flags().StringVar(&importSince, "since", "", "Only import commits since this date (YYYY-MM-DD or RFC 3339)")
	importCmd.Flags().IntVar(&importLimit, "limit", 0, "Maximum commits to import (0 for all)")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	since, err := parseSince(importSince)
	if err != nil {
		return err
	}

	local, err := git.OpenRepo(absPath)
	if err != nil {
		return err
	}

	fullName := importRepo
	if fullName == "" {
		fullName, err = local.RemoteFullName(git.DefaultRemote)
		if err != nil {
			return fmt.Errorf("%w; pass --repo owner/name", err)
		}
	}
	repo, err := github.ParseRepoRef(fullName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Reading history of %s...", local.Path())
	s.Start()
	commits, err := local.Log(git.LogOptions{Since: since, Limit: importLimit})
	s.Stop()
	if err != nil {
		return err
	}

	stored, err := storeLocalCommits(ctx, store, repo, commits)
	if err != nil {
		return err
	}

	color.New(color.FgHiGreen).Printf("Imported %d commits into %s", len(commits), repo)
	color.New(color.FgHiBlack).Printf(" (%d stored in total)\n", stored)
	return nil
}

// storeLocalCommits upserts commits under repo and returns the resulting
// stored count.
func storeLocalCommits(ctx context.Context, store *db.Store, repo github.RepoRef, commits []git.CommitInfo) (int, error) {
	if err := store.EnsureRepository(ctx, repo.Key(), 0); err != nil {
		return 0, err
	}

	var g errgroup.Group
	for _, c := range commits {
		g.Go(func() error {
			return store.UpsertCommit(ctx, db.Commit{
				SHA:          c.Hash,
				Message:      c.Message,
				Author:       c.AuthorName,
				Date:         c.CommittedAt,
				RepoFullName: repo.Key(),
			})
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to store commits for %s: %w", repo, err)
	}
	return store.CountByRepo(ctx, repo.Key())
}

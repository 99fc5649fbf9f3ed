package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/github"
)

var commitsLimit int

var commitsCmd = &cobra.Command{
	Use:   "commits <owner/repo>",
	Short: "List the stored commits of a repository",
	Long: `List the commits stored for a repository, newest first. Nothing is fetched;
run 'changelog sync' first.

Examples:
  changelog commits octo/hello
  changelog commits octo/hello --limit 0   # everything`,
	Args: cobra.ExactArgs(1),
	RunE: runCommits,
}

func init() {
	rootCmd.AddCommand(commitsCmd)
	commitsCmd.Flags().IntVarP(&commitsLimit, "limit", "n", 20, "Maximum commits to show (0 for all)")
}

func runCommits(cmd *cobra.Command, args []string) error {
	repo, err := github.ParseRepoRef(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	commits, err := store.FindByRepo(ctx, repo.Key(), db.FindOptions{Order: db.Descending, Limit: commitsLimit})
	if err != nil {
		return err
	}

	if len(commits) == 0 {
		color.New(color.FgHiBlack).Printf("No commits stored for %s. Run 'changelog sync %s' first.\n", repo, repo)
		return nil
	}

	renderCommits(commits)
	return nil
}

func renderCommits(commits []db.Commit) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"SHA", "Date", "Author", "Message"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, c := range commits {
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		table.Append([]string{
			sha,
			c.Date.Format("2006-01-02 15:04"),
			c.Author,
			firstLine(c.Message, 72),
		})
	}
	table.Render()
	fmt.Printf("\n%d commits\n", len(commits))
}

// firstLine returns the subject line of a commit message, truncated to max runes.
func firstLine(msg string, max int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	r := []rune(line)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return line
}

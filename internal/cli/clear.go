package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ishaan812/changelog/internal/github"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear [owner/repo]",
	Short: "Delete stored commits",
	Long: `Delete the stored commits of one repository, or of every repository when none
is given. Use with caution - this action cannot be undone.

Examples:
  changelog clear octo/hello       # One repository (with confirmation)
  changelog clear --force          # Everything, no confirmation`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	warnColor := color.New(color.FgHiYellow, color.Bold)
	successColor := color.New(color.FgHiGreen)
	dimColor := color.New(color.FgHiBlack)

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var targets []github.RepoRef
	if len(args) == 1 {
		repo, err := github.ParseRepoRef(args[0])
		if err != nil {
			return err
		}
		targets = []github.RepoRef{repo}
	} else {
		repos, err := a.store.ListRepositories(ctx)
		if err != nil {
			return err
		}
		for _, r := range repos {
			repo, err := github.ParseRepoRef(r.FullName)
			if err != nil {
				return err
			}
			targets = append(targets, repo)
		}
	}

	var total int
	for _, repo := range targets {
		n, err := a.store.CountByRepo(ctx, repo.Key())
		if err != nil {
			return err
		}
		total += n
	}

	fmt.Println()
	warnColor.Printf("  Warning: Clear Database\n\n")
	dimColor.Printf("  Database: %s\n\n", cfg.Database.Path)
	dimColor.Println("  This will delete:")
	fmt.Printf("    %d repositories\n", len(targets))
	fmt.Printf("    %d commits\n", total)
	fmt.Println()

	if len(targets) == 0 {
		dimColor.Println("  Database is already empty.")
		fmt.Println()
		return nil
	}

	if !clearForce {
		warnColor.Print("  Are you sure you want to delete this data? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println()
			dimColor.Println("  Canceled.")
			fmt.Println()
			return nil
		}
	}

	var deleted int64
	for _, repo := range targets {
		n, err := a.pipeline.Forget(ctx, repo)
		if err != nil {
			return err
		}
		VerboseLog("Deleted %d commits of %s", n, repo)
		deleted += n
	}

	fmt.Println()
	successColor.Printf("  Deleted %d commits\n", deleted)
	fmt.Println()
	return nil
}

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List synced repositories",
	Long: `List every repository that has been synced into the database, with the
number of commits stored for it.

Examples:
  changelog list
  changelog list --db ./other.db`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	titleColor := color.New(color.FgHiCyan, color.Bold)
	infoColor := color.New(color.FgHiWhite)
	dimColor := color.New(color.FgHiBlack)

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	repos, err := store.ListRepositories(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  Repositories\n\n")
	if len(repos) == 0 {
		dimColor.Println("  No repositories synced yet.")
		dimColor.Println("  Run 'changelog sync owner/repo' to add one.")
		fmt.Println()
		return nil
	}

	for _, r := range repos {
		count, err := store.CountByRepo(ctx, r.FullName)
		if err != nil {
			return err
		}
		infoColor.Printf("  %-40s", r.FullName)
		dimColor.Printf("  %d commits  (id %d)\n", count, r.ID)
	}
	fmt.Println()
	dimColor.Printf("  Database: %s\n\n", cfg.Database.Path)
	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ishaan812/changelog/internal/ratelimit"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Show the GitHub API quota of the current token",
	Args:  cobra.NoArgs,
	RunE:  runRateLimit,
}

func init() {
	rootCmd.AddCommand(ratelimitCmd)
}

func runRateLimit(cmd *cobra.Command, args []string) error {
	token, err := resolveToken()
	if err != nil {
		return err
	}

	guard := ratelimit.NewGuard(ratelimit.ClientSource{Client: newGitHubClient()})
	report, err := guard.Check(cmd.Context(), token)
	if err != nil {
		return err
	}

	titleColor := color.New(color.FgHiCyan, color.Bold)
	infoColor := color.New(color.FgHiWhite)
	dimColor := color.New(color.FgHiBlack)
	warnColor := color.New(color.FgHiYellow, color.Bold)

	fmt.Println()
	titleColor.Println("  GitHub API rate limits")
	fmt.Println()
	for _, q := range append([]ratelimit.Quota{report.Core}, report.Others...) {
		infoColor.Printf("  %-22s", q.Category)
		dimColor.Printf("%d/%d\n", q.Remaining, q.Limit)
	}
	fmt.Println()
	dimColor.Printf("  Core quota resets at %s (in %s)\n", report.Reset.Local().Format(time.Kitchen), time.Until(report.Reset).Round(time.Second))
	if report.LowCore {
		warnColor.Printf("  Fewer than %d core requests remain.\n", ratelimit.LowWaterMark)
	}
	fmt.Println()
	return nil
}

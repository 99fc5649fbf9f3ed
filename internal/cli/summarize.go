package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/summarizer"
)

var (
	summarizeSync bool
	summarizeJSON bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <owner/repo>",
	Short: "Summarize the newest stored commits of a repository",
	Long: `Ask the configured LLM for a name, a description and tags describing the
newest stored commits of a repository (summarizer.max_commits of them).

Output is rendered for the terminal, or printed plainly when stdout is not a
terminal. Use --json for the raw summary.

Examples:
  changelog summarize octo/hello
  changelog summarize octo/hello --sync
  changelog summarize octo/hello --json | jq .tags`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().BoolVar(&summarizeSync, "sync", false, "Sync the repository before summarizing")
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "Print the summary as JSON")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	repo, err := github.ParseRepoRef(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	interactive := stdoutIsTerminal() && !summarizeJSON

	if summarizeSync {
		token, err := resolveToken()
		if err != nil {
			return err
		}
		if _, err := a.pipeline.Sync(ctx, token, repo, time.Time{}); err != nil {
			return err
		}
	}

	var s *spinner.Spinner
	if interactive {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Summarizing %s...", repo)
		s.Start()
	}
	artifact, _, err := a.pipeline.Summary(ctx, repo, true)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	switch {
	case summarizeJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(artifact)
	case interactive:
		fmt.Println(renderArtifact(repo, artifact))
	default:
		fmt.Printf("Name: %s\nDescription: %s\nTags: %s\n", artifact.Name, artifact.Description, strings.Join(artifact.Tags, ", "))
	}
	return nil
}

func renderArtifact(repo github.RepoRef, a summarizer.Artifact) string {
	width := terminalWidth(80) - 4
	if width < 20 {
		width = 20
	}

	md := fmt.Sprintf("# %s\n\n%s\n", a.Name, a.Description)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	var body string
	if err == nil {
		body, err = renderer.Render(md)
	}
	if err != nil {
		body = md
	}

	style := tagStyle
	if a.IsError() {
		style = errorTagStyle
	}
	tags := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		tags[i] = style.Render(t)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(repo.FullName()))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(strings.TrimSpace(body)))
	b.WriteString("\n")
	b.WriteString(strings.Join(tags, " "))
	b.WriteString("\n")
	if a.IsError() {
		b.WriteString(dimStyle.Render("Run with --verbose or -v 2 to see why summarization failed."))
		b.WriteString("\n")
	}
	return b.String()
}

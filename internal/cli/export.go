package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/summarizer"
)

var (
	exportOut     string
	exportSummary bool
	exportDryRun  bool
	exportForce   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <owner/repo>",
	Short: "Export the stored commits as a Markdown changelog",
	Long: `Write the stored commits of a repository to a Markdown file, grouped by day,
newest first. With --summary the LLM summary is placed at the top.

An existing file with identical content is left untouched unless --force.

Examples:
  changelog export octo/hello                  # writes CHANGELOG.md
  changelog export octo/hello --out docs/changes.md --summary
  changelog export octo/hello --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "CHANGELOG.md", "Output file")
	exportCmd.Flags().BoolVar(&exportSummary, "summary", false, "Include the LLM summary")
	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "Print the Markdown instead of writing it")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "Rewrite the file even if unchanged")
}

func runExport(cmd *cobra.Command, args []string) error {
	repo, err := github.ParseRepoRef(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, exportSummary)
	if err != nil {
		return err
	}
	defer a.Close()

	commits, err := a.store.FindByRepo(ctx, repo.Key(), db.FindOptions{Order: db.Descending})
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Printf("No commits stored for %s.\n", repo)
		fmt.Printf("Run `changelog sync %s` first.\n", repo)
		return nil
	}

	var artifact *summarizer.Artifact
	if exportSummary {
		s, _, err := a.pipeline.Summary(ctx, repo, false)
		if err != nil {
			return err
		}
		if s.IsError() {
			color.New(color.FgHiYellow).Println("Summarization failed; exporting without a summary.")
		} else {
			artifact = &s
		}
	}

	md := renderChangelog(repo, commits, artifact)
	if exportDryRun {
		fmt.Print(md)
		return nil
	}

	written, err := writeIfChanged(exportOut, []byte(md), exportForce)
	if err != nil {
		return err
	}
	if written {
		color.New(color.FgHiGreen).Printf("Exported %d commits to %s\n", len(commits), exportOut)
	} else {
		color.New(color.FgHiBlack).Printf("%s is up to date\n", exportOut)
	}
	return nil
}

// renderChangelog renders commits (newest first) grouped by UTC day.
func renderChangelog(repo github.RepoRef, commits []db.Commit, artifact *summarizer.Artifact) string {
	var md strings.Builder
	fmt.Fprintf(&md, "# Changelog: %s\n\n", repo)

	if artifact != nil {
		fmt.Fprintf(&md, "## %s\n\n%s\n\n", artifact.Name, artifact.Description)
		if len(artifact.Tags) > 0 {
			tags := make([]string, len(artifact.Tags))
			for i, t := range artifact.Tags {
				tags[i] = "`" + t + "`"
			}
			fmt.Fprintf(&md, "Tags: %s\n\n", strings.Join(tags, " "))
		}
	}

	var day string
	for _, c := range commits {
		if d := c.Date.UTC().Format("2006-01-02"); d != day {
			if day != "" {
				md.WriteString("\n")
			}
			day = d
			fmt.Fprintf(&md, "### %s\n\n", c.Date.UTC().Format("Monday, January 2, 2006"))
		}
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		fmt.Fprintf(&md, "- %s (`%s`, %s)\n", firstLine(c.Message, 120), sha, c.Author)
	}
	md.WriteString("\n")
	fmt.Fprintf(&md, "_Generated %s_\n", time.Now().UTC().Format("2006-01-02"))
	return md.String()
}

// writeIfChanged writes content to path unless the file already holds the
// same bytes. It reports whether the file was written.
func writeIfChanged(path string, content []byte, force bool) (bool, error) {
	if !force {
		if existing, err := os.ReadFile(path); err == nil && bytes.Equal(stripGenerated(existing), stripGenerated(content)) {
			return false, nil
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("failed to create export directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// stripGenerated drops the trailing generation date so that re-exports on a
// later day compare equal.
func stripGenerated(b []byte) []byte {
	if i := bytes.LastIndex(b, []byte("\n_Generated ")); i >= 0 {
		return b[:i]
	}
	return b
}

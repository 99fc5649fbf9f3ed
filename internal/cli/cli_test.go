package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/ishaan812/changelog/internal/config"
	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/git"
	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/summarizer"
)

func TestParseSince(t *testing.T) {
	got, err := parseSince("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseSince("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2024-03-01T02:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.UTC())

	_, err = parseSince("last week")
	assert.ErrorContains(t, err, "invalid --since")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Fix login", firstLine("Fix login\n\nLonger body", 72))
	assert.Equal(t, "abcdefg...", firstLine("abcdefghijklmnop", 10))
	assert.Equal(t, "", firstLine("  ", 10))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey("short"))
	assert.Equal(t, "gsk_...wxyz", maskAPIKey("gsk_abcdefghijklmnopqrstuvwxyz"))
}

func TestResolveToken(t *testing.T) {
	keyring.MockInit()
	t.Cleanup(func() { tokenFlag = "" })

	cfg = &config.Config{}
	t.Setenv("GITHUB_TOKEN", "")

	_, err := resolveToken()
	assert.ErrorContains(t, err, "no GitHub token found")

	require.NoError(t, keyring.Set(keyringService, keyringUser, "from-keyring"))
	tok, err := resolveToken()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", tok)

	t.Setenv("GITHUB_TOKEN", "from-env")
	tok, _ = resolveToken()
	assert.Equal(t, "from-env", tok)

	cfg.GitHub.Token = "from-config"
	tok, _ = resolveToken()
	assert.Equal(t, "from-config", tok)

	tokenFlag = "from-flag"
	tok, _ = resolveToken()
	assert.Equal(t, "from-flag", tok)
}

func TestRenderArtifact(t *testing.T) {
	repo := github.RepoRef{Owner: "octo", Name: "hello"}

	out := renderArtifact(repo, summarizer.Artifact{Name: "Tidy", Description: "Cleaned things up.", Tags: []string{"chore", "docs"}})
	assert.Contains(t, out, "octo/hello")
	assert.Contains(t, out, "Tidy")
	assert.Contains(t, out, "chore")
	assert.NotContains(t, out, "--verbose")

	out = renderArtifact(repo, summarizer.ErrorArtifact())
	assert.Contains(t, out, "--verbose")
}

func TestUnavailableSummarizer(t *testing.T) {
	var s unavailableSummarizer
	assert.Equal(t, summarizer.EmptyArtifact(), s.Summarize(t.Context(), nil))
	assert.True(t, s.Summarize(t.Context(), []string{"x"}).IsError())
}

func TestRenderChangelog(t *testing.T) {
	repo := github.RepoRef{Owner: "octo", Name: "hello"}
	commits := []db.Commit{
		{SHA: "cccccccccc", Message: "Add feature\n\nbody", Author: "Ada", Date: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)},
		{SHA: "bbbbbbbbbb", Message: "Fix bug", Author: "Bob", Date: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)},
		{SHA: "aaaaaaaaaa", Message: "Initial commit", Author: "Ada", Date: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
	}

	md := renderChangelog(repo, commits, &summarizer.Artifact{Name: "Tidy", Description: "Cleaned up.", Tags: []string{"chore"}})

	assert.True(t, strings.HasPrefix(md, "# Changelog: octo/hello\n\n## Tidy\n\nCleaned up.\n\nTags: `chore`\n"))
	assert.Contains(t, md, "### Tuesday, January 2, 2024\n\n- Add feature (`ccccccc`, Ada)\n- Fix bug (`bbbbbbb`, Bob)\n\n### Monday, January 1, 2024\n\n- Initial commit (`aaaaaaa`, Ada)\n")
	assert.NotContains(t, md, "body")

	plain := renderChangelog(repo, commits, nil)
	assert.True(t, strings.HasPrefix(plain, "# Changelog: octo/hello\n\n### "))
	assert.NotContains(t, plain, "\n## ")
}

func TestWriteIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "CHANGELOG.md")

	written, err := writeIfChanged(path, []byte("# log\n\n_Generated 2024-01-01_\n"), false)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = writeIfChanged(path, []byte("# log\n\n_Generated 2024-02-01_\n"), false)
	require.NoError(t, err)
	assert.False(t, written, "only the generation date differs")

	written, err = writeIfChanged(path, []byte("# log\n\n_Generated 2024-02-01_\n"), true)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# log\n\n_Generated 2024-02-01_\n", string(got))
}

func TestStoreLocalCommits(t *testing.T) {
	ctx := context.Background()
	store, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "changelog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := github.RepoRef{Owner: "octo", Name: "hello"}
	commits := []git.CommitInfo{
		{Hash: "b", Message: "second", AuthorName: "Ada", CommittedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Hash: "a", Message: "first", AuthorName: "Bob", CommittedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	n, err := storeLocalCommits(ctx, store, repo, commits)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = storeLocalCommits(ctx, store, repo, commits[:1])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.FindByRepo(ctx, "octo/hello", db.FindOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "Bob", got[0].Author)

	repos, err := store.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []db.Repository{{FullName: "octo/hello"}}, repos)
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishaan812/changelog/internal/cache"
	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/summarizer"
)

const headSHA = "0123456789abcdef0123456789abcdef01234567"

var octoHello = github.RepoRef{Owner: "octo", Name: "hello"}

// fakeGitHub serves the repository, branch, commits and rate limit endpoints
// and records the order in which they were hit.
type fakeGitHub struct {
	mu      sync.Mutex
	paths   []string
	commits string
	repoErr int
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	switch strings.ToLower(r.URL.Path) {
	case "/repos/octo/hello":
		if f.repoErr != 0 {
			w.WriteHeader(f.repoErr)
			w.Write([]byte(`{"message": "Not Found"}`))
			return
		}
		w.Write([]byte(`{"id": 42, "full_name": "octo/hello", "default_branch": "main"}`))
	case "/repos/octo/hello/branches/main":
		w.Write([]byte(`{"name": "main", "commit": {"sha": "` + headSHA + `"}}`))
	case "/repos/octo/hello/commits":
		w.Write([]byte(f.commits))
	case "/rate_limit":
		w.Write([]byte(`{"rate": {"limit": 5000, "remaining": 4000, "reset": 1}}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGitHub) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

const threeCommits = `[
	{"sha": "c", "commit": {"message": "third", "author": {"name": "Ada", "date": "2024-01-03T00:00:00Z"}}},
	{"sha": "b", "commit": {"message": "second", "author": {"name": "Bob", "date": "2024-01-02T00:00:00Z"}}},
	{"sha": "a", "commit": {"message": "first", "author": {"name": "Ada", "date": "2024-01-01T00:00:00Z"}}}
]`

type recordingGuard struct {
	tokens []string
}

func (g *recordingGuard) AfterCall(_ context.Context, token string) {
	g.tokens = append(g.tokens, token)
}

type fakeSummarizer struct {
	calls    atomic.Int32
	messages [][]string
	result   summarizer.Artifact
}

func (f *fakeSummarizer) Summarize(_ context.Context, messages []string) summarizer.Artifact {
	f.calls.Add(1)
	f.messages = append(f.messages, messages)
	if len(messages) == 0 {
		return summarizer.EmptyArtifact()
	}
	return f.result
}

func newStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "changelog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newPipeline(t *testing.T, gh *fakeGitHub, store *db.Store, s summarizer.Summarizer, opts ...Option) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(gh)
	t.Cleanup(srv.Close)
	client := github.NewClient(github.WithBaseURL(srv.URL))
	return NewPipeline(client, store, s, cache.New[summarizer.Artifact](0), opts...)
}

func TestSync(t *testing.T) {
	gh := &fakeGitHub{commits: threeCommits}
	store := newStore(t)
	guard := &recordingGuard{}
	p := newPipeline(t, gh, store, &fakeSummarizer{}, WithRateGuard(guard))

	res, err := p.Sync(context.Background(), "user-token", octoHello, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, "main", res.Branch)
	assert.Equal(t, headSHA, res.HeadSHA)
	assert.Equal(t, int64(42), res.Repository.ID)
	require.Len(t, res.Commits, 3)
	assert.Equal(t, "c", res.Commits[0].SHA)
	assert.Equal(t, "octo/hello", res.Commits[0].RepoFullName)

	assert.Equal(t, []string{
		"/repos/octo/hello",
		"/repos/octo/hello/branches/main",
		"/repos/octo/hello/commits",
	}, gh.Paths())
	assert.Equal(t, []string{"user-token"}, guard.tokens)

	stored, err := p.Commits(context.Background(), octoHello)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{stored[0].SHA, stored[1].SHA, stored[2].SHA})

	repos, err := store.ListRepositories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []db.Repository{{FullName: "octo/hello", ID: 42}}, repos)
}

func TestSyncIsIdempotent(t *testing.T) {
	gh := &fakeGitHub{commits: threeCommits}
	store := newStore(t)
	p := newPipeline(t, gh, store, &fakeSummarizer{})

	for i := 0; i < 3; i++ {
		_, err := p.Sync(context.Background(), "tok", octoHello, time.Time{})
		require.NoError(t, err)
	}

	n, err := store.CountByRepo(context.Background(), "octo/hello")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSyncMixedCaseSharesRows(t *testing.T) {
	ctx := context.Background()
	gh := &fakeGitHub{commits: threeCommits}
	store := newStore(t)
	s := &fakeSummarizer{result: summarizer.Artifact{Name: "Hello", Description: "Three commits.", Tags: []string{"feature"}}}
	p := newPipeline(t, gh, store, s)

	shouting := github.RepoRef{Owner: "Octo", Name: "Hello"}

	_, err := p.Sync(ctx, "tok", octoHello, time.Time{})
	require.NoError(t, err)
	res, err := p.Sync(ctx, "tok", shouting, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "octo/hello", res.Commits[0].RepoFullName)

	stored, err := p.Commits(ctx, shouting)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	a, _, err := p.Summary(ctx, shouting, false)
	require.NoError(t, err)
	assert.Equal(t, "Hello", a.Name)

	a, cached, err := p.Summary(ctx, octoHello, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "Hello", a.Name)

	repos, err := store.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []db.Repository{{FullName: "octo/hello", ID: 42}}, repos)
}

func TestSyncUpstreamFailureStopsChain(t *testing.T) {
	gh := &fakeGitHub{commits: threeCommits, repoErr: http.StatusNotFound}
	store := newStore(t)
	guard := &recordingGuard{}
	p := newPipeline(t, gh, store, &fakeSummarizer{}, WithRateGuard(guard))

	_, err := p.Sync(context.Background(), "tok", octoHello, time.Time{})

	var upstream *github.UpstreamFetchError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Equal(t, []string{"/repos/octo/hello"}, gh.Paths())
	assert.Empty(t, guard.tokens)

	n, err := store.CountByRepo(context.Background(), "octo/hello")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncIgnoresCallerCancellation(t *testing.T) {
	gh := &fakeGitHub{commits: threeCommits}
	p := newPipeline(t, gh, newStore(t), &fakeSummarizer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Sync(ctx, "tok", octoHello, time.Time{})
	require.NoError(t, err)
	assert.Len(t, res.Commits, 3)
}

func TestSyncPersistenceErrorAfterAllUpserts(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO repositories")).WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO commits")).WillReturnError(errors.New("disk full"))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM commits WHERE sha = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	}

	p := newPipeline(t, &fakeGitHub{commits: threeCommits}, db.New(mockDB), &fakeSummarizer{})
	_, err = p.Sync(context.Background(), "tok", octoHello, time.Time{})

	var perr *db.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.NoError(t, mock.ExpectationsWereMet(), "every upsert should have been attempted")
}

func seed(t *testing.T, store *db.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.UpsertCommit(context.Background(), db.Commit{
			SHA:          fmt.Sprintf("sha%d", i),
			Message:      fmt.Sprintf("commit %d", i),
			Author:       "ada",
			Date:         time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			RepoFullName: "octo/hello",
		}))
	}
}

func TestSummaryUsesCache(t *testing.T) {
	store := newStore(t)
	seed(t, store, 3)
	fake := &fakeSummarizer{result: summarizer.Artifact{Name: "X", Description: "Y", Tags: []string{"p"}}}
	p := newPipeline(t, &fakeGitHub{}, store, fake)

	a, cached, err := p.Summary(context.Background(), octoHello, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "X", a.Name)
	assert.Equal(t, [][]string{{"commit 0", "commit 1", "commit 2"}}, fake.messages)

	a, cached, err = p.Summary(context.Background(), octoHello, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "X", a.Name)
	assert.EqualValues(t, 1, fake.calls.Load())

	_, cached, err = p.Summary(context.Background(), octoHello, true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.EqualValues(t, 2, fake.calls.Load())
}

func TestSummaryNewestCommitsAscending(t *testing.T) {
	store := newStore(t)
	seed(t, store, 5)
	fake := &fakeSummarizer{result: summarizer.Artifact{Name: "X"}}
	p := newPipeline(t, &fakeGitHub{}, store, fake, WithMaxCommits(2))

	_, _, err := p.Summary(context.Background(), octoHello, false)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"commit 3", "commit 4"}}, fake.messages)
}

func TestSummaryDoesNotCacheFailures(t *testing.T) {
	store := newStore(t)
	seed(t, store, 1)
	fake := &fakeSummarizer{result: summarizer.ErrorArtifact()}
	p := newPipeline(t, &fakeGitHub{}, store, fake)

	for i := 0; i < 2; i++ {
		a, cached, err := p.Summary(context.Background(), octoHello, false)
		require.NoError(t, err)
		assert.True(t, a.IsError())
		assert.False(t, cached)
	}
	assert.EqualValues(t, 2, fake.calls.Load())
}

func TestSummaryEmptyHistory(t *testing.T) {
	fake := &fakeSummarizer{}
	p := newPipeline(t, &fakeGitHub{}, newStore(t), fake)

	a, _, err := p.Summary(context.Background(), octoHello, false)
	require.NoError(t, err)
	assert.Equal(t, summarizer.EmptyArtifact(), a)

	_, cached, err := p.Summary(context.Background(), octoHello, false)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestSummaryPersistenceError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	mock.ExpectQuery("FROM commits").WillReturnError(errors.New("connection reset"))

	fake := &fakeSummarizer{}
	p := newPipeline(t, &fakeGitHub{}, db.New(mockDB), fake)

	_, _, err = p.Summary(context.Background(), octoHello, false)
	var perr *db.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, fake.calls.Load())
}

func TestForgetDropsHistoryAndCachedSummary(t *testing.T) {
	ctx := context.Background()
	gh := &fakeGitHub{commits: threeCommits}
	store := newStore(t)
	s := &fakeSummarizer{result: summarizer.Artifact{Name: "Hello", Description: "d", Tags: []string{"feature"}}}
	p := newPipeline(t, gh, store, s)

	_, err := p.Sync(ctx, "tok", octoHello, time.Time{})
	require.NoError(t, err)
	_, _, err = p.Summary(ctx, octoHello, false)
	require.NoError(t, err)

	n, err := p.Forget(ctx, github.RepoRef{Owner: "Octo", Name: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	a, cached, err := p.Summary(ctx, octoHello, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, summarizer.EmptyArtifact(), a)

	repos, err := store.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Empty(t, repos)
}

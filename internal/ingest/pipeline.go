// Package ingest joins the GitHub source, the commit store, the summarizer
// and the summary cache into the two request flows: Sync and Summary.
package ingest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/cache"
	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/summarizer"
)

// DefaultMaxCommits bounds the batch handed to the summarizer.
const DefaultMaxCommits = 100

// RateGuard is notified after each sync with the credential that was used.
type RateGuard interface {
	AfterCall(ctx context.Context, token string)
}

// Pipeline runs the sync and summary flows. It is safe for concurrent use.
type Pipeline struct {
	source     *github.Client
	store      *db.Store
	summarizer summarizer.Summarizer
	cache      *cache.Cache[summarizer.Artifact]
	guard      RateGuard

	perPage    int
	maxCommits int
	cacheTTL   time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRateGuard sets the guard called after each sync.
func WithRateGuard(g RateGuard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithPerPage sets the commit page size requested upstream.
func WithPerPage(n int) Option {
	return func(p *Pipeline) { p.perPage = n }
}

// WithMaxCommits bounds how many of the newest commits are summarized.
func WithMaxCommits(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxCommits = n
		}
	}
}

// WithCacheTTL sets the lifetime of cached summaries.
func WithCacheTTL(d time.Duration) Option {
	return func(p *Pipeline) { p.cacheTTL = d }
}

// NewPipeline creates a pipeline. source carries no credential; each Sync
// binds the caller's token.
func NewPipeline(source *github.Client, store *db.Store, s summarizer.Summarizer, c *cache.Cache[summarizer.Artifact], opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     source,
		store:      store,
		summarizer: s,
		cache:      c,
		maxCommits: DefaultMaxCommits,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SyncResult describes one completed sync.
type SyncResult struct {
	Repository github.Repository
	Branch     string
	HeadSHA    string
	// Commits are the fetched commits in upstream order, newest first.
	Commits []db.Commit
}

// Sync fetches one page of commits from the repository's default branch and
// stores them. The upstream calls run in sequence; the upserts run
// concurrently and all of them finish before Sync returns, reporting the
// first failure.
//
// Cancellation of ctx is ignored so that upstream calls and writes already
// started complete even if the caller goes away.
func (p *Pipeline) Sync(ctx context.Context, token string, repo github.RepoRef, since time.Time) (*SyncResult, error) {
	ctx = context.WithoutCancel(ctx)
	client := p.source.WithToken(token)

	meta, err := client.GetRepository(ctx, repo)
	if err != nil {
		return nil, err
	}
	branch, err := meta.Branch()
	if err != nil {
		return nil, err
	}
	fullName := repo.Key()

	head, err := client.GetBranchHeadSHA(ctx, repo, branch)
	if err != nil {
		return nil, err
	}

	fetched, err := client.ListCommits(ctx, repo, head, since, p.perPage)
	if err != nil {
		return nil, err
	}
	klog.V(2).InfoS("Fetched commits", "repo", fullName, "branch", branch, "head", head, "count", len(fetched))

	if err := p.store.EnsureRepository(ctx, fullName, meta.ID); err != nil {
		return nil, err
	}

	commits := make([]db.Commit, len(fetched))
	for i, c := range fetched {
		commits[i] = db.Commit{
			SHA:          c.SHA,
			Message:      c.Message,
			Author:       c.Author,
			Date:         c.Date.UTC(),
			RepoFullName: fullName,
		}
	}

	var g errgroup.Group
	for _, c := range commits {
		g.Go(func() error { return p.store.UpsertCommit(ctx, c) })
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to store commits for %s: %w", fullName, err)
	}

	if p.guard != nil {
		p.guard.AfterCall(ctx, token)
	}

	klog.InfoS("Synced repository", "repo", fullName, "commits", len(commits))
	return &SyncResult{
		Repository: *meta,
		Branch:     branch,
		HeadSHA:    head,
		Commits:    commits,
	}, nil
}

// Summary returns the summary of the newest stored commits of repo, oldest
// first in the prompt. A cached summary is returned unless refresh is set;
// the second result reports a cache hit. The summarizer never fails, so
// the only errors come from the store.
//
// The canned error artifact is never cached, nor is the summary of an empty
// history.
func (p *Pipeline) Summary(ctx context.Context, repo github.RepoRef, refresh bool) (summarizer.Artifact, bool, error) {
	key := repo.Key()
	if !refresh {
		if a, ok := p.cache.Get(key); ok {
			klog.V(2).InfoS("Summary cache hit", "repo", key)
			return a, true, nil
		}
	}

	commits, err := p.store.FindByRepo(ctx, key, db.FindOptions{Order: db.Descending, Limit: p.maxCommits})
	if err != nil {
		return summarizer.Artifact{}, false, err
	}
	slices.Reverse(commits)

	messages := make([]string, len(commits))
	for i, c := range commits {
		messages[i] = c.Message
	}

	a := p.summarizer.Summarize(ctx, messages)
	if len(messages) > 0 && !a.IsError() {
		p.cache.Set(key, a, p.cacheTTL)
	}
	return a, false, nil
}

// Commits returns the stored commits of repo, oldest first.
func (p *Pipeline) Commits(ctx context.Context, repo github.RepoRef) ([]db.Commit, error) {
	return p.store.FindByRepo(ctx, repo.Key(), db.FindOptions{Order: db.Ascending})
}

// Forget deletes the stored history of repo and its cached summary. It
// returns the number of commits removed. Only local maintenance calls this;
// neither request flow deletes anything.
func (p *Pipeline) Forget(ctx context.Context, repo github.RepoRef) (int64, error) {
	key := repo.Key()
	n, err := p.store.DeleteRepository(ctx, key)
	if err != nil {
		return 0, err
	}
	p.cache.Delete(key)
	klog.V(2).InfoS("Forgot repository", "repo", key, "commits", n)
	return n, nil
}

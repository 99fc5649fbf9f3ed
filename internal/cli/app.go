package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/ishaan812/changelog/internal/cache"
	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/ingest"
	"github.com/ishaan812/changelog/internal/llm"
	"github.com/ishaan812/changelog/internal/ratelimit"
	"github.com/ishaan812/changelog/internal/summarizer"
)

const (
	keyringService = "changelog"
	keyringUser    = "github-token"
)

// app is the wired component graph shared by the commands.
type app struct {
	github   *github.Client
	store    *db.Store
	guard    *ratelimit.Guard
	pipeline *ingest.Pipeline
}

func (a *app) Close() error {
	return a.store.Close()
}

func newGitHubClient() *github.Client {
	return github.NewClient(
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithPerPage(cfg.GitHub.PerPage),
	)
}

func openStore(ctx context.Context) (*db.Store, error) {
	store, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newSummarizer builds the LLM summarizer. A missing LLM credential is not
// fatal: every summary then degrades to the error artifact.
func newSummarizer() (summarizer.Summarizer, error) {
	strategy, err := summarizer.ParseStrategy(cfg.Summarizer.Strategy)
	if err != nil {
		return nil, err
	}

	llmCfg := llm.NewConfig(cfg.Provider(), llm.WithAPIKey(cfg.GetAPIKey()))
	if cfg.LLM.Model != "" {
		llmCfg.Model = cfg.LLM.Model
	}
	if cfg.LLM.BaseURL != "" {
		llmCfg.BaseURL = cfg.LLM.BaseURL
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	VerboseLog("Summarizing with %s/%s (%s)", llmCfg.Provider, llmCfg.Model, strategy)
	return summarizer.New(client,
		summarizer.WithStrategy(strategy),
		summarizer.WithTimeout(cfg.Summarizer.Timeout),
	), nil
}

// newApp wires the GitHub client, the store, the summarizer and the
// pipeline from cfg. When needLLM is false a summarizer is still attached if
// one can be built.
func newApp(ctx context.Context, needLLM bool) (*app, error) {
	s, err := newSummarizer()
	if err != nil {
		if needLLM {
			return nil, err
		}
		VerboseLog("Summaries disabled: %v", err)
		s = unavailableSummarizer{}
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	gh := newGitHubClient()
	guard := ratelimit.NewGuard(ratelimit.ClientSource{Client: gh})
	pipeline := ingest.NewPipeline(gh, store, s, cache.New[summarizer.Artifact](cfg.Cache.TTL),
		ingest.WithRateGuard(guard),
		ingest.WithPerPage(cfg.GitHub.PerPage),
		ingest.WithMaxCommits(cfg.Summarizer.MaxCommits),
		ingest.WithCacheTTL(cfg.Cache.TTL),
	)
	return &app{github: gh, store: store, guard: guard, pipeline: pipeline}, nil
}

// unavailableSummarizer stands in when no LLM client can be built.
type unavailableSummarizer struct{}

func (unavailableSummarizer) Summarize(_ context.Context, messages []string) summarizer.Artifact {
	if len(messages) == 0 {
		return summarizer.EmptyArtifact()
	}
	return summarizer.ErrorArtifact()
}

// resolveToken returns the GitHub token from, in order, --token, the
// github.token setting, GITHUB_TOKEN and the OS keyring.
func resolveToken() (string, error) {
	if tokenFlag != "" {
		return tokenFlag, nil
	}
	if cfg.GitHub.Token != "" {
		return cfg.GitHub.Token, nil
	}
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t, nil
	}
	if t, err := keyring.Get(keyringService, keyringUser); err == nil && t != "" {
		return t, nil
	}
	return "", fmt.Errorf("no GitHub token found; pass --token, set GITHUB_TOKEN or run 'changelog login'")
}

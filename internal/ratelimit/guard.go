// Package ratelimit inspects the GitHub API quota after upstream calls.
//
// The guard is advisory: it logs the quota and warns when it runs low but
// never delays or rejects a call.
package ratelimit

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/github"
)

// LowWaterMark is the core remaining count below which a warning is logged.
const LowWaterMark = 10

// Categories are the quota categories reported besides core, in log order.
var Categories = []string{"search", "graphql", "integration_manifest"}

// Source reads the quota for a credential.
type Source interface {
	RateLimit(ctx context.Context, token string) (*github.RateLimits, error)
}

// ClientSource adapts a *github.Client to Source.
type ClientSource struct {
	Client *github.Client
}

func (s ClientSource) RateLimit(ctx context.Context, token string) (*github.RateLimits, error) {
	return s.Client.WithToken(token).RateLimit(ctx)
}

// Quota is the state of one category.
type Quota struct {
	Category  string
	Remaining int
	Limit     int
}

// Report summarizes a quota lookup.
type Report struct {
	Core    Quota
	Reset   time.Time
	Others  []Quota
	LowCore bool
}

// Guard checks the quota after upstream calls.
type Guard struct {
	source Source
}

// NewGuard creates a guard reading from source.
func NewGuard(source Source) *Guard {
	return &Guard{source: source}
}

// Check looks up the quota for token.
func (g *Guard) Check(ctx context.Context, token string) (*Report, error) {
	rl, err := g.source.RateLimit(ctx, token)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Core:    Quota{Category: "core", Remaining: rl.Rate.Remaining, Limit: rl.Rate.Limit},
		Reset:   rl.Rate.ResetTime(),
		LowCore: rl.Rate.Remaining < LowWaterMark,
	}
	for _, name := range Categories {
		rate, ok := rl.Resources[name]
		if !ok {
			continue
		}
		r.Others = append(r.Others, Quota{Category: name, Remaining: rate.Remaining, Limit: rate.Limit})
	}
	return r, nil
}

// AfterCall logs the quota for token. Lookup failures are logged and
// otherwise ignored.
func (g *Guard) AfterCall(ctx context.Context, token string) {
	r, err := g.Check(ctx, token)
	if err != nil {
		klog.ErrorS(err, "Failed to check GitHub rate limits")
		return
	}

	klog.InfoS("GitHub API rate limit", "category", r.Core.Category, "remaining", r.Core.Remaining, "limit", r.Core.Limit, "reset", r.Reset.UTC().Format(time.RFC3339))
	for _, q := range r.Others {
		klog.InfoS("GitHub API rate limit", "category", q.Category, "remaining", q.Remaining, "limit", q.Limit)
	}
	if r.LowCore {
		klog.Warningf("GitHub API rate limit is low: %d/%d remaining until %s", r.Core.Remaining, r.Core.Limit, r.Reset.UTC().Format(time.RFC3339))
	}
}

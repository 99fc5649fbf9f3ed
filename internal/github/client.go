// Package github is a minimal read-only client for the GitHub REST API.
//
// It covers exactly what commit synchronization needs: repository metadata,
// branch heads, a page of commits, the caller's repositories and the rate
// limit endpoint. Every call carries a caller-supplied bearer credential and
// is attempted once; non-2xx responses and transport failures surface as
// *UpstreamFetchError.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultPerPage is the page size used when the caller does not pick one.
	DefaultPerPage = 100

	// MaxPerPage is the largest page GitHub will return.
	MaxPerPage = 100

	apiVersion = "2022-11-28"
	userAgent  = "changelog"
)

// DefaultSince is the lower bound used when a commit listing has no since.
var DefaultSince = time.Date(2019, 5, 6, 0, 0, 0, 0, time.UTC)

// Repository is the subset of repository metadata we use.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
}

// Commit is one entry of a commit listing.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// User is the authenticated account.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// Client talks to the GitHub API with a single bearer token.
type Client struct {
	baseURL string
	token   string
	perPage int
	client  *http.Client
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL points the client at another API root (GitHub Enterprise, tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithPerPage sets the default page size for commit listings.
func WithPerPage(n int) Option {
	return func(c *Client) { c.perPage = n }
}

// NewClient creates a client without a credential. Use WithToken to bind one.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		perPage: DefaultPerPage,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// GetRepository fetches repository metadata.
func (c *Client) GetRepository(ctx context.Context, repo RepoRef) (*Repository, error) {
	var r Repository
	if err := c.get(ctx, "get repository", "/repos/"+repo.path(), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetDefaultBranch resolves the repository's default branch name.
func (c *Client) GetDefaultBranch(ctx context.Context, repo RepoRef) (string, error) {
	r, err := c.GetRepository(ctx, repo)
	if err != nil {
		return "", err
	}
	return r.Branch()
}

// Branch returns the default branch, or an UpstreamFetchError when the
// metadata does not name one.
func (r *Repository) Branch() (string, error) {
	if r.DefaultBranch == "" {
		return "", &UpstreamFetchError{Op: "get default branch", StatusCode: http.StatusOK, Body: "repository has no default branch"}
	}
	return r.DefaultBranch, nil
}

type branchResponse struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// GetBranchHeadSHA resolves the head commit of a branch.
func (c *Client) GetBranchHeadSHA(ctx context.Context, repo RepoRef, branch string) (string, error) {
	var b branchResponse
	path := "/repos/" + repo.path() + "/branches/" + url.PathEscape(branch)
	if err := c.get(ctx, "get branch", path, nil, &b); err != nil {
		return "", err
	}
	if !plumbing.IsHash(b.Commit.SHA) {
		return "", &UpstreamFetchError{
			Op:         "get branch",
			StatusCode: http.StatusOK,
			Body:       fmt.Sprintf("branch %q has invalid head sha %q", branch, b.Commit.SHA),
		}
	}
	return b.Commit.SHA, nil
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// ListCommits returns one page of commits reachable from sha, newest first,
// authored at or after since. A zero since means DefaultSince.
func (c *Client) ListCommits(ctx context.Context, repo RepoRef, sha string, since time.Time, perPage int) ([]Commit, error) {
	if since.IsZero() {
		since = DefaultSince
	}
	if perPage <= 0 {
		perPage = c.perPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	query := url.Values{}
	if sha != "" {
		query.Set("sha", sha)
	}
	query.Set("since", since.UTC().Format(time.RFC3339))
	query.Set("per_page", strconv.Itoa(perPage))

	var raw []commitResponse
	if err := c.get(ctx, "list commits", "/repos/"+repo.path()+"/commits", query, &raw); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		commits = append(commits, Commit{
			SHA:     rc.SHA,
			Message: rc.Commit.Message,
			Author:  rc.Commit.Author.Name,
			Date:    rc.Commit.Author.Date,
		})
	}
	return commits, nil
}

// ListUserRepos lists repositories visible to the authenticated user.
func (c *Client) ListUserRepos(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	query := url.Values{"per_page": {strconv.Itoa(MaxPerPage)}}
	if err := c.get(ctx, "list user repos", "/user/repos", query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetAuthenticatedUser returns the account that owns the token.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "get user", "/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &UpstreamFetchError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamFetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamFetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamFetchError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamFetchError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

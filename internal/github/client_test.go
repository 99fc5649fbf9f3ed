package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headSHA = "0123456789abcdef0123456789abcdef01234567"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL)).WithToken("secret")
}

func TestGetDefaultBranch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/hello", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Write([]byte(`{"id": 42, "full_name": "octo/hello", "default_branch": "trunk"}`))
	})

	branch, err := c.GetDefaultBranch(context.Background(), RepoRef{Owner: "octo", Name: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
}

func TestGetDefaultBranchMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 42, "full_name": "octo/empty"}`))
	})

	_, err := c.GetDefaultBranch(context.Background(), RepoRef{Owner: "octo", Name: "empty"})
	var upstream *UpstreamFetchError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "get default branch", upstream.Op)

	branch, err := (&Repository{DefaultBranch: "trunk"}).Branch()
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
}

func TestGetBranchHeadSHA(t *testing.T) {
	t.Run("valid sha", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/octo/hello/branches/main", r.URL.Path)
			w.Write([]byte(`{"name": "main", "commit": {"sha": "` + headSHA + `"}}`))
		})
		sha, err := c.GetBranchHeadSHA(context.Background(), RepoRef{Owner: "octo", Name: "hello"}, "main")
		require.NoError(t, err)
		assert.Equal(t, headSHA, sha)
	})

	t.Run("malformed sha", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name": "main", "commit": {"sha": "nope"}}`))
		})
		_, err := c.GetBranchHeadSHA(context.Background(), RepoRef{Owner: "octo", Name: "hello"}, "main")
		var upstream *UpstreamFetchError
		require.ErrorAs(t, err, &upstream)
		assert.Contains(t, upstream.Body, "invalid head sha")
	})
}

func TestListCommits(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"sha":      r.URL.Query().Get("sha"),
			"since":    r.URL.Query().Get("since"),
			"per_page": r.URL.Query().Get("per_page"),
		}
		w.Write([]byte(`[
			{"sha": "b", "commit": {"message": "second", "author": {"name": "Ada", "date": "2024-01-02T00:00:00Z"}}},
			{"sha": "a", "commit": {"message": "first", "author": {"name": "Bob", "date": "2024-01-01T00:00:00Z"}}}
		]`))
	})

	commits, err := c.ListCommits(context.Background(), RepoRef{Owner: "octo", Name: "hello"}, headSHA, time.Time{}, 500)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"sha":      headSHA,
		"since":    "2019-05-06T00:00:00Z",
		"per_page": "100",
	}, gotQuery)

	require.Len(t, commits, 2)
	assert.Equal(t, Commit{SHA: "b", Message: "second", Author: "Ada", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, commits[0])
	assert.Equal(t, "Bob", commits[1].Author)
}

func TestListCommitsSinceIsUTC(t *testing.T) {
	var since string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		since = r.URL.Query().Get("since")
		w.Write([]byte(`[]`))
	})

	loc := time.FixedZone("UTC+2", 2*60*60)
	_, err := c.ListCommits(context.Background(), RepoRef{Owner: "o", Name: "r"}, "", time.Date(2024, 3, 1, 2, 0, 0, 0, loc), 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T00:00:00Z", since)
}

func TestUpstreamErrors(t *testing.T) {
	t.Run("non-2xx carries status and body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found"}`))
		})
		_, err := c.GetRepository(context.Background(), RepoRef{Owner: "o", Name: "missing"})

		var upstream *UpstreamFetchError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
		assert.Equal(t, `{"message": "Not Found"}`, upstream.Body)
		assert.Equal(t, "get repository", upstream.Op)
	})

	t.Run("network fault has zero status", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		c := NewClient(WithBaseURL(base)).WithToken("secret")
		_, err := c.ListUserRepos(context.Background())

		var upstream *UpstreamFetchError
		require.ErrorAs(t, err, &upstream)
		assert.Zero(t, upstream.StatusCode)
		assert.Error(t, upstream.Unwrap())
	})

	t.Run("single attempt only", func(t *testing.T) {
		calls := 0
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.GetRepository(context.Background(), RepoRef{Owner: "o", Name: "r"})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rate_limit", r.URL.Path)
		w.Write([]byte(`{
			"rate": {"limit": 5000, "remaining": 4999, "reset": 1700000000},
			"resources": {"search": {"limit": 30, "remaining": 30}}
		}`))
	})

	rl, err := c.RateLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4999, rl.Rate.Remaining)
	assert.Equal(t, 30, rl.Resources["search"].Limit)
	assert.Equal(t, int64(1700000000), rl.Rate.ResetTime().Unix())
}

func TestWithTokenDoesNotMutateParent(t *testing.T) {
	base := NewClient()
	authed := base.WithToken("t")
	assert.Empty(t, base.token)
	assert.Equal(t, "t", authed.token)
}

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		in      string
		want    RepoRef
		wantErr bool
	}{
		{in: "octo/hello", want: RepoRef{Owner: "octo", Name: "hello"}},
		{in: "Octo/Hello", want: RepoRef{Owner: "Octo", Name: "Hello"}},
		{in: " octo/hello ", want: RepoRef{Owner: "octo", Name: "hello"}},
		{in: "octo", wantErr: true},
		{in: "/hello", wantErr: true},
		{in: "octo/", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepoRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Owner+"/"+tt.want.Name, got.FullName())
			assert.Equal(t, strings.ToLower(got.FullName()), got.Key())
		})
	}
}

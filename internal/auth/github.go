// Package auth implements GitHub sign-in and the session store that maps a
// session id to the user's GitHub credential.
//
// Two flows share the same OAuth app:
//
//  1. The server flow: /api/login redirects to GitHub, /auth/github/callback
//     exchanges the code and creates a session.
//  2. The CLI flow: LoginWithBrowser starts a loopback server, opens the
//     browser and waits for the redirect, using PKCE.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// DefaultScopes lets the token read private repositories and the profile.
var DefaultScopes = []string{"repo", "read:user"}

// GitHubProvider performs the OAuth2 authorization code flow against GitHub.
type GitHubProvider struct {
	config *oauth2.Config
}

// ProviderOption configures a GitHubProvider.
type ProviderOption func(*oauth2.Config)

// WithEndpoint overrides the GitHub OAuth endpoints (GitHub Enterprise, tests).
func WithEndpoint(authURL, tokenURL string) ProviderOption {
	return func(c *oauth2.Config) {
		c.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
	}
}

// WithScopes replaces DefaultScopes.
func WithScopes(scopes ...string) ProviderOption {
	return func(c *oauth2.Config) { c.Scopes = scopes }
}

// NewGitHubProvider creates a provider for an OAuth app.
func NewGitHubProvider(clientID, clientSecret, redirectURL string, opts ...ProviderOption) (*GitHubProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("GitHub OAuth client id and secret are required")
	}
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     github.Endpoint,
		Scopes:       DefaultScopes,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &GitHubProvider{config: cfg}, nil
}

// AuthCodeURL returns the GitHub authorize URL carrying state.
func (p *GitHubProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.config.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for an access token.
func (p *GitHubProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (string, error) {
	tok, err := p.config.Exchange(ctx, code, opts...)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token exchange returned an empty access token")
	}
	return tok.AccessToken, nil
}

// withRedirect returns a copy of p using another redirect URL.
func (p *GitHubProvider) withRedirect(redirectURL string) *GitHubProvider {
	cfg := *p.config
	cfg.RedirectURL = redirectURL
	return &GitHubProvider{config: &cfg}
}

// GenerateState returns a random OAuth state value.
func GenerateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

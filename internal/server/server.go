// Package server exposes the commit sync and summary flows over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/auth"
	"github.com/ishaan812/changelog/internal/config"
	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/ingest"
)

const (
	// SessionCookie carries the session id when no userId parameter is given.
	SessionCookie = "changelog_session"

	stateCookie = "changelog_oauth_state"
	stateTTL    = 10 * time.Minute
)

// Options holds the optional parts of a Server.
type Options struct {
	// Provider enables /api/login and the OAuth callback. Nil disables them.
	Provider *auth.GitHubProvider
	// FrontendURL is where the callback sends the browser. Empty means the
	// callback answers with JSON instead.
	FrontendURL string
	PublicRepos []config.PublicRepo
}

// Server routes requests to the pipeline. Construct with New.
type Server struct {
	pipeline *ingest.Pipeline
	github   *github.Client
	sessions auth.SessionStore
	opts     Options
	mux      *http.ServeMux
}

// New creates a server. gh must not carry a credential; each request binds
// the session's token.
func New(pipeline *ingest.Pipeline, gh *github.Client, sessions auth.SessionStore, opts Options) *Server {
	s := &Server{
		pipeline: pipeline,
		github:   gh,
		sessions: sessions,
		opts:     opts,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/login", s.handleLogin)
	s.mux.HandleFunc("GET /auth/github/callback", s.handleCallback)
	s.mux.HandleFunc("POST /api/logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/dashboard/repos", s.handleRepos)
	s.mux.HandleFunc("GET /api/dashboard/commits/{owner}/{repo}", s.handleCommits)
	s.mux.HandleFunc("GET /api/dashboard/summary/{owner}/{repo}", s.handleSummary)
	s.mux.HandleFunc("GET /public/repos", s.handlePublicRepos)
	return s
}

// Handler returns the root handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	return logRequests(cors(s.opts.FrontendURL, s.mux))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.InfoS("Serving", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Provider == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, ErrorResponse{Error: "GitHub OAuth is not configured"})
		return
	}
	state, err := auth.GenerateState()
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.opts.Provider.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.opts.Provider == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, ErrorResponse{Error: "GitHub OAuth is not configured"})
		return
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		writeError(w, r, &ValidationError{Field: "state", Message: "OAuth state mismatch"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		writeError(w, r, &ValidationError{Field: "code", Message: "missing authorization code"})
		return
	}

	token, err := s.opts.Provider.Exchange(r.Context(), code)
	if err != nil {
		writeJSONStatus(w, http.StatusInternalServerError, ErrorResponse{Error: "Authentication failed", Details: err.Error()})
		return
	}
	user, err := s.github.WithToken(token).GetAuthenticatedUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	session := s.sessions.Create(token, user.Login)
	klog.InfoS("User signed in", "login", user.Login)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	if s.opts.FrontendURL == "" {
		writeJSON(w, map[string]string{"userId": session.ID, "login": user.Login})
		return
	}
	http.Redirect(w, r, s.opts.FrontendURL+"/dashboard?userId="+url.QueryEscape(session.ID), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := sessionID(r); id != "" {
		s.sessions.Delete(id)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

type repoResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Private  bool   `json:"private"`
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	repos, err := s.github.WithToken(session.Token).ListUserRepos(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]repoResponse, len(repos))
	for i, repo := range repos {
		out[i] = repoResponse{ID: repo.ID, Name: repo.Name, FullName: repo.FullName, Private: repo.Private}
	}
	writeJSON(w, out)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	repo, err := repoFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, &ValidationError{Field: "since", Message: "must be an RFC 3339 timestamp"})
			return
		}
	}

	res, err := s.pipeline.Sync(r.Context(), session.Token, repo, since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, res.Commits)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session(r); err != nil {
		writeError(w, r, err)
		return
	}
	repo, err := repoFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, &ValidationError{Field: "refresh", Message: "must be a boolean"})
			return
		}
	}

	artifact, cached, err := s.pipeline.Summary(r.Context(), repo, refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, artifact)
}

// session resolves the caller's session from the userId parameter or the
// session cookie.
func (s *Server) session(r *http.Request) (auth.Session, error) {
	id := sessionID(r)
	if id == "" {
		return auth.Session{}, &ValidationError{Field: "userId", Message: "is required"}
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return auth.Session{}, errUnauthorized
	}
	return session, nil
}

func sessionID(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func repoFromPath(r *http.Request) (github.RepoRef, error) {
	repo, err := github.NewRepoRef(r.PathValue("owner"), r.PathValue("repo"))
	if err != nil {
		return github.RepoRef{}, &ValidationError{Field: "repository", Message: err.Error()}
	}
	return repo, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		klog.ErrorS(err, "Failed to encode JSON")
	}
}

package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"k8s.io/klog/v2"
)

// DefaultLoginPort is the loopback port the CLI login listens on.
const DefaultLoginPort = 8976

const successHTML = `<!DOCTYPE html>
<html>
<head><title>changelog: signed in</title>
<style>
body{font-family:system-ui,sans-serif;display:flex;justify-content:center;align-items:center;height:100vh;margin:0;background:#0d1117;color:#e6edf3}
.card{text-align:center;padding:2rem 3rem;border-radius:12px;background:#161b22;border:1px solid #30363d}
h1{color:#58a6ff;margin-bottom:.5rem}
p{color:#8b949e}
</style>
</head>
<body>
<div class="card">
<h1>Signed in with GitHub</h1>
<p>You can close this tab and return to your terminal.</p>
</div>
</body>
</html>`

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// LoginWithBrowser runs the authorization code flow with PKCE through a
// loopback redirect on port (0 picks a free port). open is called with the
// authorize URL, typically OpenBrowser; if it fails the URL is written to
// out so the user can open it by hand. It blocks until the redirect arrives
// or ctx is done, and returns the access token.
func LoginWithBrowser(ctx context.Context, p *GitHubProvider, port int, open func(string) error, out io.Writer) (string, error) {
	verifier := oauth2.GenerateVerifier()
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("start login server: %w", err)
	}
	defer listener.Close()

	actualPort := listener.Addr().(*net.TCPAddr).Port
	p = p.withRedirect(fmt.Sprintf("http://127.0.0.1:%d/callback", actualPort))
	authURL := p.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	type result struct {
		token string
		err   error
	}
	resultCh := make(chan result, 1)
	var once sync.Once
	sendResult := func(r result) {
		once.Do(func() { resultCh <- r })
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			sendResult(result{err: fmt.Errorf("OAuth state mismatch")})
			return
		}

		code := q.Get("code")
		if code == "" {
			errMsg := q.Get("error_description")
			if errMsg == "" {
				errMsg = q.Get("error")
			}
			if errMsg == "" {
				errMsg = "missing authorization code"
			}
			http.Error(w, errMsg, http.StatusBadRequest)
			sendResult(result{err: fmt.Errorf("OAuth error: %s", errMsg)})
			return
		}

		token, err := p.Exchange(r.Context(), code, oauth2.VerifierOption(verifier))
		if err != nil {
			http.Error(w, "Token exchange failed", http.StatusInternalServerError)
			sendResult(result{err: err})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, successHTML)
		sendResult(result{token: token})
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			sendResult(result{err: fmt.Errorf("login server: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := open(authURL); err != nil {
		klog.V(2).InfoS("Could not open browser", "err", err)
		fmt.Fprintf(out, "Open this URL to sign in:\n%s\n", authURL)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		return res.token, res.err
	}
}

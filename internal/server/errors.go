package server

import (
	"errors"
	"fmt"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/db"
	"github.com/ishaan812/changelog/internal/github"
)

// ValidationError reports malformed request input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// errUnauthorized is returned for unknown or expired sessions.
var errUnauthorized = errors.New("session not found or expired")

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an error to its HTTP status and public message.
func statusFor(err error) (int, ErrorResponse) {
	var (
		verr     *ValidationError
		upstream *github.UpstreamFetchError
		perr     *db.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: verr.Error()}
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Details: err.Error()}
	case errors.As(err, &upstream):
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch from GitHub", Details: upstream.Error()}
	case errors.As(err, &perr):
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to access the commit store", Details: perr.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Details: err.Error()}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		klog.ErrorS(err, "Request failed", "method", r.Method, "path", r.URL.Path, "status", status)
	} else {
		klog.V(2).InfoS("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSONStatus(w, status, body)
}

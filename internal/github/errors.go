package github

import "fmt"

// UpstreamFetchError reports a failed call against the GitHub API. StatusCode
// is zero when the request never produced a response.
type UpstreamFetchError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("github %s: %v", e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("github %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("github %s (status %d): %s", e.Op, e.StatusCode, e.Body)
	}
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

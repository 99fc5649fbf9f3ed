package github

import (
	"context"
	"time"
)

// Rate is the quota state of one rate limit category.
type Rate struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
	Used      int   `json:"used"`
}

// ResetTime converts the epoch reset field.
func (r Rate) ResetTime() time.Time {
	return time.Unix(r.Reset, 0)
}

// RateLimits is the /rate_limit response.
type RateLimits struct {
	Rate      Rate            `json:"rate"`
	Resources map[string]Rate `json:"resources"`
}

// RateLimit reads the current quota. The call itself does not count
// against the core quota.
func (c *Client) RateLimit(ctx context.Context) (*RateLimits, error) {
	var rl RateLimits
	if err := c.get(ctx, "rate limit", "/rate_limit", nil, &rl); err != nil {
		return nil, err
	}
	return &rl, nil
}

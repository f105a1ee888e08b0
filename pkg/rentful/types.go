package rentful

import (
	"net/http"
	"time"

	"github.com/rentful-io/rentful-client/internal/constants"
)

// Response is the raw outcome of one API call. The most recent successful
// response is cached on the client for introspection and is reset to nil
// whenever an error is returned.
type Response struct {
	StatusCode int         `json:"status_code" yaml:"status_code"`
	Headers    http.Header `json:"headers"     yaml:"headers"`
	Body       []byte      `json:"body"        yaml:"body"`
}

// TokenHash is the persisted shape of an OAuth token. It is read before each
// request and written back only after a refresh; the library never persists
// tokens itself.
type TokenHash struct {
	AccessToken  string    `json:"access_token"  yaml:"access_token"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"    yaml:"expires_at"`
}

// Expired reports whether the token must be refreshed before use. A zero
// ExpiresAt counts as expired so tokens of unknown age are refreshed, and a
// small buffer keeps a token from expiring mid-request.
func (t *TokenHash) Expired() bool {
	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().After(t.ExpiresAt.Add(-constants.TokenExpirationBuffer))
}

// ListResult is the materialized result of a paginated list call.
type ListResult struct {
	// Data holds the decoded resources, attributes flattened and
	// relationships resolved where possible.
	Data []map[string]interface{} `json:"data" yaml:"data"`

	// Meta is the decoded meta object of the last fetched page. When
	// stats[total]=count was requested it carries the server-reported total.
	Meta map[string]interface{} `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// TotalCount returns the server-reported total row count from Meta, or -1
// when the server did not report one.
func (r *ListResult) TotalCount() int {
	meta := r.Meta
	if meta == nil {
		return -1
	}

	stats, ok := meta["stats"].(map[string]interface{})
	if !ok {
		return -1
	}

	total, ok := stats["total"].(map[string]interface{})
	if !ok {
		return -1
	}

	count, ok := total["count"].(float64)
	if !ok {
		return -1
	}

	return int(count)
}

// Package auth provides the credential strategies used to authorize API
// requests: static API keys, OAuth tokens with transparent refresh, and
// single-use signed tokens.
package auth

import (
	"context"
	"errors"
)

// Static errors for err113 compliance.
var (
	ErrNoActiveAuthenticator = errors.New("no active authenticator configured")
)

// RequestInfo carries the request parts a strategy may need to produce an
// Authorization header. Path includes the query string when present.
type RequestInfo struct {
	Method string
	Path   string
	Body   []byte
}

// Authenticator produces Authorization header values for outgoing requests.
type Authenticator interface {
	// Active reports whether the strategy has the credentials it needs.
	Active() bool
	// Authorization returns the Authorization header value for the request.
	Authorization(ctx context.Context, req *RequestInfo) (string, error)
}

// Logger is the minimal logging surface the auth layer uses.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
}

// Chain holds the configured strategies in precedence order and delegates to
// the first active one.
type Chain struct {
	authenticators []Authenticator
	logger         Logger
}

// NewChain builds a chain from the given strategies, keeping only the active
// ones in order.
func NewChain(logger Logger, authenticators ...Authenticator) *Chain {
	active := make([]Authenticator, 0, len(authenticators))

	for _, a := range authenticators {
		if a != nil && a.Active() {
			active = append(active, a)
		}
	}

	if len(active) > 1 && logger != nil {
		logger.Debug("multiple authentication strategies configured, using the first",
			map[string]interface{}{"configured": len(active)})
	}

	return &Chain{authenticators: active, logger: logger}
}

// Active reports whether any strategy is usable.
func (c *Chain) Active() bool {
	return len(c.authenticators) > 0
}

// Authorization delegates to the first active strategy.
func (c *Chain) Authorization(ctx context.Context, req *RequestInfo) (string, error) {
	if len(c.authenticators) == 0 {
		return "", ErrNoActiveAuthenticator
	}

	return c.authenticators[0].Authorization(ctx, req)
}

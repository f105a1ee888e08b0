package auth

import "context"

// APIKey authenticates with a static bearer API key.
type APIKey struct {
	key string
}

// NewAPIKey creates an API key strategy.
func NewAPIKey(key string) *APIKey {
	return &APIKey{key: key}
}

// Active reports whether a key is set.
func (a *APIKey) Active() bool {
	return a.key != ""
}

// Authorization returns the bearer header for the key.
func (a *APIKey) Authorization(_ context.Context, _ *RequestInfo) (string, error) {
	return "Bearer " + a.key, nil
}

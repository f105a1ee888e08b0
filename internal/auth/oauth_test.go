package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentful-io/rentful-client/internal/auth"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// tokenStore is an in-memory ReadToken/WriteToken pair.
type tokenStore struct {
	mu    sync.Mutex
	token *rentful.TokenHash
}

func (s *tokenStore) read() (*rentful.TokenHash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token, nil
}

func (s *tokenStore) write(token *rentful.TokenHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token

	return nil
}

func newOAuth(tokenURL string, store *tokenStore) *auth.OAuth {
	return auth.NewOAuth(auth.OAuthConfig{
		TokenURL:     tokenURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ReadToken:    store.read,
		WriteToken:   store.write,
	})
}

func TestOAuthActive(t *testing.T) {
	t.Parallel()

	store := &tokenStore{}
	assert.True(t, newOAuth("https://acme.rentful.com/oauth/token", store).Active())

	assert.False(t, auth.NewOAuth(auth.OAuthConfig{ClientID: "only-id"}).Active())
}

func TestOAuthUsesLiveTokenWithoutRefreshing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint must not be called for a live token")
	}))
	defer server.Close()

	store := &tokenStore{token: &rentful.TokenHash{
		AccessToken: "live-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}

	header, err := newOAuth(server.URL, store).Authorization(context.Background(), &auth.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer live-token", header)
}

func TestOAuthRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	store := &tokenStore{token: &rentful.TokenHash{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}

	header, err := newOAuth(server.URL, store).Authorization(context.Background(), &auth.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer new-access", header)

	// The refreshed token was persisted through WriteToken.
	persisted, _ := store.read()
	require.NotNil(t, persisted)
	assert.Equal(t, "new-access", persisted.AccessToken)
	assert.Equal(t, "new-refresh", persisted.RefreshToken)
	assert.False(t, persisted.Expired())
}

func TestOAuthRefreshesTokenWithoutExpiry(t *testing.T) {
	t.Parallel()

	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "fresh",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	// No ExpiresAt recorded, so the token must be refreshed before use.
	store := &tokenStore{token: &rentful.TokenHash{
		AccessToken:  "unknown-age",
		RefreshToken: "refresh",
	}}

	header, err := newOAuth(server.URL, store).Authorization(context.Background(), &auth.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", header)
	assert.Equal(t, 1, calls)

	// The old refresh token is kept when the response omits one.
	persisted, _ := store.read()
	assert.Equal(t, "refresh", persisted.RefreshToken)
}

func TestOAuthRevokedRefreshToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","message":"The grant is invalid"}`))
	}))
	defer server.Close()

	store := &tokenStore{token: &rentful.TokenHash{
		AccessToken:  "old",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}

	_, err := newOAuth(server.URL, store).Authorization(context.Background(), &auth.RequestInfo{})
	require.Error(t, err)

	var apiErr *rentful.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, rentful.KindRefreshTokenRevoked, apiErr.Kind)
}

func TestOAuthMissingToken(t *testing.T) {
	t.Parallel()

	_, err := newOAuth("https://acme.rentful.com/oauth/token", &tokenStore{}).
		Authorization(context.Background(), &auth.RequestInfo{})
	require.ErrorIs(t, err, auth.ErrNoStoredToken)
}

func TestOAuthMissingRefreshToken(t *testing.T) {
	t.Parallel()

	store := &tokenStore{token: &rentful.TokenHash{AccessToken: "expired-only"}}

	_, err := newOAuth("https://acme.rentful.com/oauth/token", store).
		Authorization(context.Background(), &auth.RequestInfo{})
	require.ErrorIs(t, err, auth.ErrNoRefreshToken)
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// Static errors for err113 compliance.
var (
	ErrNoStoredToken  = errors.New("no stored OAuth token")
	ErrNoRefreshToken = errors.New("stored token has no refresh token")
)

// OAuthConfig configures the OAuth strategy. ReadToken supplies the current
// token before each request; WriteToken persists a refreshed one.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	ReadToken    func() (*rentful.TokenHash, error)
	WriteToken   func(*rentful.TokenHash) error
	HTTPClient   *http.Client
}

// OAuth authenticates with stored OAuth tokens, refreshing them through the
// token endpoint when they expire.
type OAuth struct {
	config OAuthConfig
	client *http.Client

	refreshMu sync.Mutex
}

// NewOAuth creates an OAuth strategy.
func NewOAuth(config OAuthConfig) *OAuth {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &OAuth{config: config, client: client}
}

// Active reports whether the client credentials and token reader are set.
func (o *OAuth) Active() bool {
	return o.config.ClientID != "" && o.config.ClientSecret != "" && o.config.ReadToken != nil
}

// Authorization returns a bearer header for the stored token, refreshing it
// first when it has expired. A token without an expiry timestamp is treated
// as expired so it is refreshed before first use.
func (o *OAuth) Authorization(ctx context.Context, _ *RequestInfo) (string, error) {
	token, err := o.config.ReadToken()
	if err != nil {
		return "", fmt.Errorf("reading OAuth token: %w", err)
	}

	if token == nil {
		return "", ErrNoStoredToken
	}

	if token.Expired() {
		token, err = o.refresh(ctx, token)
		if err != nil {
			return "", err
		}
	}

	return "Bearer " + token.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

func (o *OAuth) refresh(ctx context.Context, token *rentful.TokenHash) (*rentful.TokenHash, error) {
	o.refreshMu.Lock()
	defer o.refreshMu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if current, err := o.config.ReadToken(); err == nil && current != nil && !current.Expired() {
		return current, nil
	}

	if token.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", token.RefreshToken)
	form.Set("client_id", o.config.ClientID)
	form.Set("client_secret", o.config.ClientSecret)

	if o.config.RedirectURI != "" {
		form.Set("redirect_uri", o.config.RedirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating refresh request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refreshing OAuth token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading refresh response: %w", err)
	}

	if apiErr := rentful.Classify(rentful.RequestInfo{
		Method:    http.MethodPost,
		URL:       o.config.TokenURL,
		GrantType: "refresh_token",
	}, &rentful.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}); apiErr != nil {
		return nil, apiErr
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing refresh response: %w", err)
	}

	refreshed := &rentful.TokenHash{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	if parsed.ExpiresIn > 0 {
		created := time.Now()
		if parsed.CreatedAt > 0 {
			created = time.Unix(parsed.CreatedAt, 0)
		}

		refreshed.ExpiresAt = created.Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}

	if o.config.WriteToken != nil {
		if err := o.config.WriteToken(refreshed); err != nil {
			return nil, fmt.Errorf("persisting refreshed token: %w", err)
		}
	}

	return refreshed, nil
}

// Package client implements the top-level API client: endpoint construction,
// authentication wiring, raw requests with JSON:API decoding, and the
// resource proxies.
package client

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"sort"

	"github.com/rentful-io/rentful-client/internal/auth"
	"github.com/rentful-io/rentful-client/internal/constants"
	"github.com/rentful-io/rentful-client/internal/http"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// Client talks to one company account on the platform. It implements
// rentful.Client.
type Client struct {
	config     *rentful.Config
	endpoint   string
	origin     string
	httpClient *http.Client
	codec      *rentful.Codec
	cache      rentful.Cache
}

// Endpoint builds the API base URL for the config: the company subdomain on
// the platform domain, plus the versioned API prefix. HTTPS is used only for
// the production domain so local test servers work over plain http.
func Endpoint(config *rentful.Config) (string, error) {
	origin, err := Origin(config)
	if err != nil {
		return "", err
	}

	version := config.APIVersion
	if version == "" {
		version = constants.DefaultAPIVersion
	}

	if version != constants.DefaultAPIVersion && version != constants.LegacyAPIVersion {
		return "", fmt.Errorf("%w: %q", rentful.ErrUnsupportedAPIVersion, version)
	}

	return origin + "/api/" + version, nil
}

// Origin builds the company origin URL without the API prefix, used for the
// OAuth token endpoint and as token issuer.
func Origin(config *rentful.Config) (string, error) {
	if config.Company == "" {
		return "", rentful.ErrCompanyRequired
	}

	domain := config.Domain
	if domain == "" {
		domain = constants.ProductionDomain
	}

	scheme := "http"
	if domain == constants.ProductionDomain {
		scheme = "https"
	}

	return scheme + "://" + config.Company + "." + domain, nil
}

// New creates a client from the config, resolving it against the process
// defaults first.
func New(config *rentful.Config) (*Client, error) {
	if config == nil {
		return nil, rentful.ErrConfigRequired
	}

	resolved := config.Merged()

	endpoint, err := Endpoint(resolved)
	if err != nil {
		return nil, err
	}

	origin, err := Origin(resolved)
	if err != nil {
		return nil, err
	}

	chain, err := buildAuthChain(resolved, origin)
	if err != nil {
		return nil, err
	}

	codec := rentful.NewCodec(resolved.Engine)

	opts := []http.Option{
		http.WithLogger(resolved.Logger),
		http.WithDebug(resolved.Debug),
		http.WithUserAgent(resolved.UserAgent),
		http.WithRedactedParams(resolved.RedactedParams),
		http.WithCodec(codec),
	}

	if resolved.DisableRetry {
		opts = append(opts, http.WithRetryDisabled())
	} else {
		opts = append(opts, http.WithRetryConfig(resolved.RetryMax, resolved.RetryWaitMin, resolved.RetryWaitMax))
	}

	var cache rentful.Cache

	if resolved.Cache != nil {
		cache, err = rentful.NewCacheFromConfig(resolved.Cache)
		if err != nil {
			return nil, fmt.Errorf("building cache: %w", err)
		}

		opts = append(opts, http.WithCache(cache, resolved.Cache.TTL))
	}

	return &Client{
		config:     resolved,
		endpoint:   endpoint,
		origin:     origin,
		httpClient: http.NewClient(endpoint, chain, opts...),
		codec:      codec,
		cache:      cache,
	}, nil
}

// buildAuthChain assembles the configured strategies in precedence order:
// OAuth, API key, single-use signed token.
func buildAuthChain(config *rentful.Config, origin string) (*auth.Chain, error) {
	authenticators := make([]auth.Authenticator, 0, 3)

	if config.ClientID != "" && config.ClientSecret != "" && config.ReadToken != nil {
		tokenURL := config.TokenURL
		if tokenURL == "" {
			tokenURL = origin + "/oauth/token"
		}

		authenticators = append(authenticators, auth.NewOAuth(auth.OAuthConfig{
			TokenURL:     tokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURI:  config.RedirectURI,
			ReadToken:    config.ReadToken,
			WriteToken:   config.WriteToken,
		}))
	}

	if config.APIKey != "" {
		authenticators = append(authenticators, auth.NewAPIKey(config.APIKey))
	}

	if singleUseConfigured(config) {
		singleUse, err := auth.NewSingleUse(auth.SingleUseConfig{
			TokenID:    config.SingleUseTokenID,
			Algorithm:  config.SingleUseAlgorithm,
			PrivateKey: config.SingleUsePrivateKey,
			CompanyID:  config.SingleUseCompanyID,
			UserID:     config.SingleUseUserID,
			Issuer:     origin,
			Expiration: config.SingleUseExpiration,
		})
		if err != nil {
			return nil, err
		}

		authenticators = append(authenticators, singleUse)
	}

	var logger auth.Logger
	if config.Logger != nil {
		logger = config.Logger
	}

	return auth.NewChain(logger, authenticators...), nil
}

func singleUseConfigured(config *rentful.Config) bool {
	return config.SingleUseAlgorithm != "" ||
		config.SingleUsePrivateKey != "" ||
		config.SingleUseCompanyID != "" ||
		config.SingleUseUserID != "" ||
		config.SingleUseTokenID != ""
}

// Endpoint returns the resolved API base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Request performs a raw API call and returns the decoded JSON:API document.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, params *rentful.QueryParams) (interface{}, error) {
	return c.RequestWithHeaders(ctx, method, path, nil, body, params)
}

// RequestWithHeaders is Request with extra request headers merged in. A
// caller-supplied Authorization header wins over the configured
// authentication.
func (c *Client) RequestWithHeaders(ctx context.Context, method, path string, headers map[string]string, body interface{}, params *rentful.QueryParams) (interface{}, error) {
	resp, err := c.do(ctx, method, path, headers, body, params)
	if err != nil {
		return nil, err
	}

	decoded, err := c.codec.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return decoded, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body interface{}, params *rentful.QueryParams) (*rentful.Response, error) {
	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	return c.httpClient.Do(ctx, &http.Request{
		Method:  method,
		Path:    path,
		Query:   query,
		Headers: headers,
		Body:    body,
	})
}

// FetchPage fetches one page of a collection along with the rate-limit
// context of that response. It implements rentful.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, path string, params *rentful.QueryParams) (*rentful.ListResult, *rentful.RateLimitContext, error) {
	resp, err := c.do(ctx, nethttp.MethodGet, path, nil, nil, params)
	if err != nil {
		return nil, nil, err
	}

	decoded, err := c.codec.Decode(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding page: %w", err)
	}

	result, err := toListResult(decoded)
	if err != nil {
		return nil, nil, err
	}

	return result, rentful.ParseRateLimit(resp.Headers), nil
}

func toListResult(decoded interface{}) (*rentful.ListResult, error) {
	document, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected document shape", rentful.ErrUnexpectedResponse)
	}

	result := &rentful.ListResult{}

	if meta, ok := document["meta"].(map[string]interface{}); ok {
		result.Meta = meta
	}

	switch data := document["data"].(type) {
	case []interface{}:
		result.Data = make([]map[string]interface{}, 0, len(data))

		for _, item := range data {
			if resource, ok := item.(map[string]interface{}); ok {
				result.Data = append(result.Data, resource)
			}
		}
	case map[string]interface{}:
		result.Data = []map[string]interface{}{data}
	case nil:
		result.Data = []map[string]interface{}{}
	}

	return result, nil
}

// LastResponse returns the most recent successful raw response, or nil after
// any error.
func (c *Client) LastResponse() *rentful.Response {
	return c.httpClient.LastResponse()
}

// RateLimit returns the rate-limit context of the last successful response.
func (c *Client) RateLimit() *rentful.RateLimitContext {
	resp := c.httpClient.LastResponse()
	if resp == nil {
		return nil
	}

	return rentful.ParseRateLimit(resp.Headers)
}

// Resource returns the proxy for a resource type name or alias.
func (c *Client) Resource(name string) (rentful.ResourceProxy, error) {
	canonical, ok := resolveResource(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", rentful.ErrUnknownResource, name)
	}

	return newResourceProxy(c, canonical), nil
}

// Resources lists the canonical resource type names in sorted order.
func (c *Client) Resources() []string {
	names := make([]string, 0, len(resourceCatalog))
	for name := range resourceCatalog {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

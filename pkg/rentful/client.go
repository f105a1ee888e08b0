package rentful

import (
	"context"
	"sync"
	"time"

	"github.com/rentful-io/rentful-client/internal/constants"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ResourceProxy exposes the uniform verbs for one resource type. Proxies are
// constructed by name from the resource catalog; there is one parametrized
// implementation, not per-resource code.
type ResourceProxy interface {
	// List fetches one page of resources, or every page when the client is
	// configured to auto-paginate.
	List(ctx context.Context, params *QueryParams) (*ListResult, error)
	// All fetches every page, bounded by the server-reported total and the
	// rate limit (partial results on quota exhaustion, never an error).
	All(ctx context.Context, params *QueryParams) (*ListResult, error)
	// Find fetches a single resource by id.
	Find(ctx context.Context, id string, params *QueryParams) (map[string]interface{}, error)
	// Create posts a new resource with the given attributes.
	Create(ctx context.Context, attributes map[string]interface{}) (map[string]interface{}, error)
	// Update modifies an existing resource.
	Update(ctx context.Context, id string, attributes map[string]interface{}) (map[string]interface{}, error)
	// Delete removes a resource.
	Delete(ctx context.Context, id string) error
}

// Client is the top-level API client.
type Client interface {
	// Resource returns the proxy for a resource type name or alias.
	Resource(name string) (ResourceProxy, error)

	// Resources lists the canonical resource type names.
	Resources() []string

	// Request performs a raw API call and returns the decoded JSON:API body.
	Request(ctx context.Context, method, path string, body interface{}, params *QueryParams) (interface{}, error)

	// RequestWithHeaders is Request with extra request headers merged in. A
	// caller-supplied Authorization header is never overwritten by the
	// configured authentication.
	RequestWithHeaders(ctx context.Context, method, path string, headers map[string]string, body interface{}, params *QueryParams) (interface{}, error)

	// LastResponse returns the most recent successful raw response, or nil
	// after any error.
	LastResponse() *Response

	// RateLimit returns the rate-limit context of the last response.
	RateLimit() *RateLimitContext
}

// Config represents client configuration for building a Client.
//
// # Authentication precedence
//
// Each credential scheme is activated by its required fields being set:
//   - OAuth: ClientID, ClientSecret, and a ReadToken callback.
//   - API key: APIKey.
//   - Single-use signed token: SingleUseAlgorithm plus its key material.
//
// When more than one scheme is configured, the authenticators are installed
// in the order OAuth, API key, signed token, and the first installed one
// produces the Authorization header; a debug log notes the overlap. A header
// supplied explicitly on a request is never overwritten.
//
// # Configuration resolution
//
// Configuration resolves in two tiers: a zero instance value falls back to
// the process-level default registered with SetDefaults, never to a
// hardcoded literal. Merged performs the resolution.
type Config struct {
	// Company is the tenant subdomain; required.
	Company string `json:"company" yaml:"company"`
	// Domain is the platform domain. Requests go over https only on the
	// production domain; any other domain (local, test) uses plain http.
	Domain string `json:"domain" yaml:"domain"`
	// APIVersion is the API version path segment: "4" (default) or the
	// legacy "boomerang" alias.
	APIVersion string `json:"api_version" yaml:"api_version"`

	// APIKey activates API-key authentication.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ClientID and ClientSecret activate OAuth authentication together with
	// the token callbacks.
	ClientID     string `json:"client_id,omitempty"     yaml:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"  yaml:"redirect_uri,omitempty"`
	// ReadToken returns the persisted token; called before each request.
	ReadToken func() (*TokenHash, error) `json:"-" yaml:"-"`
	// WriteToken persists a refreshed token; called only after a refresh.
	WriteToken func(*TokenHash) error `json:"-" yaml:"-"`
	// TokenURL overrides the OAuth token endpoint. When empty it is derived
	// from the API endpoint ("{endpoint origin}/oauth/token").
	TokenURL string `json:"token_url,omitempty" yaml:"token_url,omitempty"`

	// Single-use signed token material.
	SingleUseTokenID    string        `json:"single_use_token_id,omitempty"   yaml:"single_use_token_id,omitempty"`
	SingleUseAlgorithm  string        `json:"single_use_algorithm,omitempty"  yaml:"single_use_algorithm,omitempty"`
	SingleUsePrivateKey string        `json:"-"                               yaml:"-"`
	SingleUseCompanyID  string        `json:"single_use_company_id,omitempty" yaml:"single_use_company_id,omitempty"`
	SingleUseUserID     string        `json:"single_use_user_id,omitempty"    yaml:"single_use_user_id,omitempty"`
	SingleUseExpiration time.Duration `json:"single_use_expiration,omitempty" yaml:"single_use_expiration,omitempty"`

	// PerPage is the page size for paginated list calls.
	PerPage int `json:"per_page,omitempty" yaml:"per_page,omitempty"`
	// AutoPaginate makes List fetch every page transparently, like All.
	AutoPaginate bool `json:"auto_paginate,omitempty" yaml:"auto_paginate,omitempty"`

	// DisableRetry turns off retries wholesale.
	DisableRetry bool `json:"disable_retry,omitempty" yaml:"disable_retry,omitempty"`
	// RetryMax is the maximum number of retries on server errors and
	// transport failures. If 0, a default of 2 (3 total attempts) is used.
	RetryMax int `json:"retry_max,omitempty" yaml:"retry_max,omitempty"`
	// RetryWaitMin is the base backoff interval. Applied when retrying.
	RetryWaitMin time.Duration `json:"retry_wait_min,omitempty" yaml:"retry_wait_min,omitempty"`
	// RetryWaitMax caps the backoff interval.
	RetryWaitMax time.Duration `json:"retry_wait_max,omitempty" yaml:"retry_wait_max,omitempty"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	// Debug enables verbose HTTP request/response logging when a Logger is
	// provided.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
	// Logger is an optional structured logger used by the HTTP layer.
	Logger Logger `json:"-" yaml:"-"`

	// RedactedParams lists extra query parameter names to redact in error
	// messages, in addition to the built-in sensitive keys.
	RedactedParams []string `json:"redacted_params,omitempty" yaml:"redacted_params,omitempty"`

	// Cache configures optional GET response caching.
	Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`

	// Engine overrides the JSON engine behind the codec.
	Engine Engine `json:"-" yaml:"-"`
}

// processDefaults is the single process-wide default configuration. It is
// explicitly initialized and only replaced through SetDefaults.
//
//nolint:gochecknoglobals // one clearly-scoped default tier, by contract
var (
	processDefaults   = baseDefaults()
	processDefaultsMu sync.RWMutex
)

func baseDefaults() *Config {
	return &Config{
		Domain:              constants.ProductionDomain,
		APIVersion:          constants.DefaultAPIVersion,
		SingleUseExpiration: constants.DefaultSingleUseTokenExpiration,
		RetryMax:            constants.DefaultRetryMax,
		RetryWaitMin:        constants.DefaultRetryWaitMin,
		RetryWaitMax:        constants.DefaultRetryWaitMax,
	}
}

// SetDefaults replaces the process-level defaults. Fields left zero in the
// given config keep the library defaults.
func SetDefaults(config *Config) {
	merged := mergeConfig(config, baseDefaults())

	processDefaultsMu.Lock()
	processDefaults = merged
	processDefaultsMu.Unlock()
}

// Defaults returns a copy of the current process-level defaults.
func Defaults() *Config {
	processDefaultsMu.RLock()
	defer processDefaultsMu.RUnlock()

	out := *processDefaults

	return &out
}

// Merged resolves the two configuration tiers: every zero instance value
// falls back to the process-level default. The receiver is not modified.
func (c *Config) Merged() *Config {
	return mergeConfig(c, Defaults())
}

//nolint:cyclop // straight-line field-by-field fallback
func mergeConfig(instance, defaults *Config) *Config {
	if instance == nil {
		out := *defaults

		return &out
	}

	out := *instance

	if out.Company == "" {
		out.Company = defaults.Company
	}

	if out.Domain == "" {
		out.Domain = defaults.Domain
	}

	if out.APIVersion == "" {
		out.APIVersion = defaults.APIVersion
	}

	if out.APIKey == "" {
		out.APIKey = defaults.APIKey
	}

	if out.ClientID == "" {
		out.ClientID = defaults.ClientID
	}

	if out.ClientSecret == "" {
		out.ClientSecret = defaults.ClientSecret
	}

	if out.RedirectURI == "" {
		out.RedirectURI = defaults.RedirectURI
	}

	if out.ReadToken == nil {
		out.ReadToken = defaults.ReadToken
	}

	if out.WriteToken == nil {
		out.WriteToken = defaults.WriteToken
	}

	if out.TokenURL == "" {
		out.TokenURL = defaults.TokenURL
	}

	if out.SingleUseTokenID == "" {
		out.SingleUseTokenID = defaults.SingleUseTokenID
	}

	if out.SingleUseAlgorithm == "" {
		out.SingleUseAlgorithm = defaults.SingleUseAlgorithm
	}

	if out.SingleUsePrivateKey == "" {
		out.SingleUsePrivateKey = defaults.SingleUsePrivateKey
	}

	if out.SingleUseCompanyID == "" {
		out.SingleUseCompanyID = defaults.SingleUseCompanyID
	}

	if out.SingleUseUserID == "" {
		out.SingleUseUserID = defaults.SingleUseUserID
	}

	if out.SingleUseExpiration == 0 {
		out.SingleUseExpiration = defaults.SingleUseExpiration
	}

	if out.PerPage == 0 {
		out.PerPage = defaults.PerPage
	}

	if !out.AutoPaginate {
		out.AutoPaginate = defaults.AutoPaginate
	}

	if !out.DisableRetry {
		out.DisableRetry = defaults.DisableRetry
	}

	if out.RetryMax == 0 {
		out.RetryMax = defaults.RetryMax
	}

	if out.RetryWaitMin == 0 {
		out.RetryWaitMin = defaults.RetryWaitMin
	}

	if out.RetryWaitMax == 0 {
		out.RetryWaitMax = defaults.RetryWaitMax
	}

	if out.UserAgent == "" {
		out.UserAgent = defaults.UserAgent
	}

	if !out.Debug {
		out.Debug = defaults.Debug
	}

	if out.Logger == nil {
		out.Logger = defaults.Logger
	}

	if out.RedactedParams == nil {
		out.RedactedParams = defaults.RedactedParams
	}

	if out.Cache == nil {
		out.Cache = defaults.Cache
	}

	if out.Engine == nil {
		out.Engine = defaults.Engine
	}

	return &out
}

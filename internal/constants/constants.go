package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits and backoff.
const (
	// DefaultRetryMax is the default maximum number of retries (3 attempts total).
	DefaultRetryMax = 2

	// DefaultRetryWaitMin is the base interval for exponential backoff.
	DefaultRetryWaitMin = 2 * time.Second

	// DefaultRetryWaitMax caps the backoff between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExponentialBackoffBase is the doubling factor for exponential backoff.
	ExponentialBackoffBase = 2

	// BackoffJitterFraction is the ±fraction of jitter applied to each backoff interval.
	BackoffJitterFraction = 0.5
)

// Pagination.
const (
	// DefaultAutoPaginatePageSize is the page size seeded when auto-paginating
	// without an explicit per-page setting.
	DefaultAutoPaginatePageSize = 25
)

// Authentication.
const (
	// DefaultSingleUseTokenExpiration is the default lifetime of a single-use signed token.
	DefaultSingleUseTokenExpiration = 600 * time.Second

	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Cache sizes and lifetimes.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute
)

// Endpoint construction.
const (
	// ProductionDomain is the hosted platform domain; any other domain is
	// assumed to be a local or test deployment and is reached over plain http.
	ProductionDomain = "rentful.com"

	// DefaultAPIVersion is the current API version path segment.
	DefaultAPIVersion = "4"

	// LegacyAPIVersion is the pre-v4 API alias, still accepted for compatibility.
	LegacyAPIVersion = "boomerang"
)

// Media types.
const (
	// JSONAPIMediaType is the default Accept and Content-Type for API calls.
	JSONAPIMediaType = "application/vnd.api+json"
)

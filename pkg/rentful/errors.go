package rentful

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ErrorKind identifies one leaf of the API error taxonomy. Kinds are derived
// from the HTTP status code, refined by response body patterns for ambiguous
// codes.
type ErrorKind string

// Client error kinds (4xx).
const (
	KindBadRequest               ErrorKind = "bad_request"
	KindReadOnlyAttribute        ErrorKind = "read_only_attribute"
	KindUnknownAttribute         ErrorKind = "unknown_attribute"
	KindExtraFieldsInWrongFormat ErrorKind = "extra_fields_in_wrong_format"
	KindFieldsInWrongFormat      ErrorKind = "fields_in_wrong_format"
	KindPageShouldBeAnObject     ErrorKind = "page_should_be_an_object"
	KindFailedTypecasting        ErrorKind = "failed_typecasting"
	KindInvalidFilter            ErrorKind = "invalid_filter"
	KindRequiredFilter           ErrorKind = "required_filter"
	KindInvalidGrant             ErrorKind = "invalid_grant"
	KindRefreshTokenRevoked      ErrorKind = "refresh_token_revoked"
	KindUnauthorized             ErrorKind = "unauthorized"
	KindTokenRevoked             ErrorKind = "token_revoked"
	KindPaymentRequired          ErrorKind = "payment_required"
	KindFeatureNotEnabled        ErrorKind = "feature_not_enabled"
	KindTrialExpired             ErrorKind = "trial_expired"
	KindForbidden                ErrorKind = "forbidden"
	KindNotFound                 ErrorKind = "not_found"
	KindCompanyNotFound          ErrorKind = "company_not_found"
	KindMethodNotAllowed         ErrorKind = "method_not_allowed"
	KindNotAcceptable            ErrorKind = "not_acceptable"
	KindConflict                 ErrorKind = "conflict"
	KindDeprecated               ErrorKind = "deprecated"
	KindUnsupportedMediaType     ErrorKind = "unsupported_media_type"
	KindUnprocessableEntity      ErrorKind = "unprocessable_entity"
	KindInvalidDateTimeFormat    ErrorKind = "invalid_datetime_format"
	KindInvalidDateFormat        ErrorKind = "invalid_date_format"
	KindLocked                   ErrorKind = "locked"
	KindTooManyRequests          ErrorKind = "too_many_requests"
	KindClientError              ErrorKind = "client_error"
)

// Server error kinds (5xx).
const (
	KindInternalServerError ErrorKind = "internal_server_error"
	KindNotImplemented      ErrorKind = "not_implemented"
	KindBadGateway          ErrorKind = "bad_gateway"
	KindServiceUnavailable  ErrorKind = "service_unavailable"
	KindReadOnlyMode        ErrorKind = "read_only_mode"
	KindServerError         ErrorKind = "server_error"
)

// RequestInfo carries the request-side context needed to classify a response
// and to render its error message with a redacted URL.
type RequestInfo struct {
	// Method is the HTTP method of the originating request.
	Method string

	// URL is the full request URL, query included. Sensitive query
	// parameters are redacted before the URL appears in any message.
	URL string

	// GrantType is the grant_type of an OAuth token request, when the
	// originating request was one. It disambiguates invalid_grant bodies:
	// a failed refresh_token grant means the refresh token was revoked.
	GrantType string

	// Redact lists extra query parameter names to redact in addition to the
	// built-in sensitive keys.
	Redact []string
}

// APIError is a classified API error response. It retains the raw response
// so callers can handle errors programmatically.
type APIError struct {
	Kind      ErrorKind         `json:"kind"                 yaml:"kind"`
	Status    int               `json:"status"               yaml:"status"`
	Method    string            `json:"method"               yaml:"method"`
	URL       string            `json:"url"                  yaml:"url"`
	Headers   http.Header       `json:"headers,omitempty"    yaml:"headers,omitempty"`
	RawBody   []byte            `json:"body,omitempty"       yaml:"body,omitempty"`
	Body      interface{}       `json:"-"                    yaml:"-"`
	RateLimit *RateLimitContext `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// Error implements the error interface. The message format is
// "{METHOD} {url}: {status} - {message}" followed by the body's error code
// and a formatted dump of its errors list when present. The URL is already
// redacted.
func (e *APIError) Error() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s: %d - %s", e.Method, e.URL, e.Status, e.message())

	if body, ok := e.Body.(map[string]interface{}); ok {
		if code, ok := body["error"].(string); ok && code != "" {
			builder.WriteString("\nError: " + code)
		}
	}

	if summary := e.errorSummary(); summary != "" {
		builder.WriteString("\n" + summary)
	}

	return builder.String()
}

// Errors returns the body's errors list, or an empty slice when the body is
// not a JSON object or carries no list.
func (e *APIError) Errors() []interface{} {
	body, ok := e.Body.(map[string]interface{})
	if !ok {
		return []interface{}{}
	}

	switch errs := body["errors"].(type) {
	case []interface{}:
		return errs
	case string:
		return []interface{}{errs}
	case map[string]interface{}:
		return []interface{}{errs}
	default:
		return []interface{}{}
	}
}

// IsClientError reports whether the error is in the 4xx family.
func (e *APIError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsServerError reports whether the error is in the 5xx family.
func (e *APIError) IsServerError() bool {
	return e.Status >= 500 && e.Status < 600
}

// message picks the human explanation from the response body: the body's
// "message" field when the body is a JSON object, otherwise the raw body
// when it is a plain string.
func (e *APIError) message() string {
	switch body := e.Body.(type) {
	case map[string]interface{}:
		if msg, ok := body["message"].(string); ok {
			return msg
		}

		return ""
	case string:
		return body
	default:
		return strings.TrimSpace(string(e.RawBody))
	}
}

// errorSummary formats the body's errors list. The server emits it as a
// plain string, an array of strings, an array of mixed strings and objects,
// or an object keyed by attribute.
func (e *APIError) errorSummary() string {
	errs := e.Errors()
	if len(errs) == 0 {
		return ""
	}

	lines := make([]string, 0, len(errs))
	for _, item := range errs {
		lines = append(lines, summaryLines(item)...)
	}

	return "Errors:\n  - " + strings.Join(lines, "\n  - ")
}

func summaryLines(item interface{}) []string {
	switch v := item.(type) {
	case string:
		return []string{v}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", k, v[k]))
		}

		return lines
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// bodyPattern refines a base kind when the response body contains a known
// substring.
type bodyPattern struct {
	substring string
	kind      ErrorKind
}

var (
	badRequestPatterns = []bodyPattern{
		{"unwrittable_attribute", KindReadOnlyAttribute},
		{"unknown_attribute", KindUnknownAttribute},
		{"extra fields should be an object", KindExtraFieldsInWrongFormat},
		{"fields should be an object", KindFieldsInWrongFormat},
		{"page should be an object", KindPageShouldBeAnObject},
		{"failed typecasting", KindFailedTypecasting},
		{"invalid filter", KindInvalidFilter},
		{"required filter", KindRequiredFilter},
	}

	unauthorizedPatterns = []bodyPattern{
		{"token is invalid (revoked)", KindTokenRevoked},
	}

	paymentRequiredPatterns = []bodyPattern{
		{"feature_not_enabled", KindFeatureNotEnabled},
		{"trial_expired", KindTrialExpired},
	}

	notFoundPatterns = []bodyPattern{
		{"company not found", KindCompanyNotFound},
	}

	unprocessablePatterns = []bodyPattern{
		{"is not a datetime", KindInvalidDateTimeFormat},
		{"invalid date", KindInvalidDateFormat},
	}

	serviceUnavailablePatterns = []bodyPattern{
		{"read-only", KindReadOnlyMode},
	}
)

func refineKind(base ErrorKind, body string, patterns []bodyPattern) ErrorKind {
	for _, p := range patterns {
		if strings.Contains(body, p.substring) {
			return p.kind
		}
	}

	return base
}

// Classify maps a response to its error kind, or returns nil for statuses
// outside the 4xx/5xx families. Classification is pure: it never panics and
// has no side effects, so it can be tested without a transport.
func Classify(req RequestInfo, resp *Response) *APIError {
	if resp == nil {
		return nil
	}

	status := resp.StatusCode
	if status < 400 || status >= 600 {
		return nil
	}

	body := string(resp.Body)
	kind := classifyKind(status, body, req.GrantType)

	apiErr := &APIError{
		Kind:    kind,
		Status:  status,
		Method:  req.Method,
		URL:     RedactURL(req.URL, req.Redact),
		Headers: resp.Headers,
		RawBody: resp.Body,
	}

	var decoded interface{}
	if err := json.Unmarshal(resp.Body, &decoded); err == nil {
		apiErr.Body = decoded
	}

	// Every 429 carries a rate-limit context, defaulted when headers are
	// absent (secondary rate limiting responds without them).
	if status == http.StatusTooManyRequests {
		apiErr.RateLimit = ParseRateLimit(resp.Headers)
	}

	return apiErr
}

//nolint:cyclop // one arm per status code keeps the table readable
func classifyKind(status int, body, grantType string) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		if strings.Contains(body, "invalid_grant") {
			if grantType == "refresh_token" {
				return KindRefreshTokenRevoked
			}

			return KindInvalidGrant
		}

		return refineKind(KindBadRequest, body, badRequestPatterns)
	case http.StatusUnauthorized:
		return refineKind(KindUnauthorized, body, unauthorizedPatterns)
	case http.StatusPaymentRequired:
		return refineKind(KindPaymentRequired, body, paymentRequiredPatterns)
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return refineKind(KindNotFound, body, notFoundPatterns)
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusNotAcceptable:
		return KindNotAcceptable
	case http.StatusConflict:
		return KindConflict
	case http.StatusGone:
		return KindDeprecated
	case http.StatusUnsupportedMediaType:
		return KindUnsupportedMediaType
	case http.StatusUnprocessableEntity:
		return refineKind(KindUnprocessableEntity, body, unprocessablePatterns)
	case http.StatusLocked:
		return KindLocked
	case http.StatusTooManyRequests:
		return KindTooManyRequests
	case http.StatusInternalServerError:
		return KindInternalServerError
	case http.StatusNotImplemented:
		return KindNotImplemented
	case http.StatusBadGateway:
		return KindBadGateway
	case http.StatusServiceUnavailable:
		return refineKind(KindServiceUnavailable, body, serviceUnavailablePatterns)
	default:
		if status >= 500 {
			return KindServerError
		}

		return KindClientError
	}
}

// defaultRedactedParams are query parameter names whose values never appear
// in error messages.
var defaultRedactedParams = []string{"client_secret", "client_id", "api_key", "refresh_token"}

// RedactURL replaces the values of sensitive query parameters with
// "(redacted)". The extra list supplements the built-in sensitive keys.
func RedactURL(rawURL string, extra []string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}

	sensitive := make(map[string]bool, len(defaultRedactedParams)+len(extra))
	for _, k := range defaultRedactedParams {
		sensitive[k] = true
	}

	for _, k := range extra {
		sensitive[k] = true
	}

	pairs := strings.Split(parsed.RawQuery, "&")
	for i, pair := range pairs {
		key, _, found := strings.Cut(pair, "=")
		if found && sensitive[key] {
			pairs[i] = key + "=(redacted)"
		}
	}

	parsed.RawQuery = strings.Join(pairs, "&")

	return parsed.String()
}

// Kind predicates for branching on common cases.

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound) || hasKind(err, KindCompanyNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return hasKind(err, KindUnauthorized) || hasKind(err, KindTokenRevoked)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return hasKind(err, KindForbidden)
}

// IsTooManyRequests checks if the error is a rate-limit error.
func IsTooManyRequests(err error) bool {
	return hasKind(err, KindTooManyRequests)
}

func hasKind(err error, kind ErrorKind) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}

	return false
}

// ConfigError reports missing or invalid client configuration. These are
// returned eagerly at the point of use, never deferred to the network call.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Reason
}

// ErrUnexpectedResponse reports a response body whose shape does not match
// the JSON:API document the caller expected.
var ErrUnexpectedResponse = errors.New("unexpected response shape")

// Configuration errors.
var (
	ErrConfigRequired                  = &ConfigError{Reason: "config is required"}
	ErrCompanyRequired                 = &ConfigError{Reason: "company is required"}
	ErrUnsupportedAPIVersion           = &ConfigError{Reason: `unsupported API version: only "4" and the legacy "boomerang" alias are accepted`}
	ErrSingleUseTokenAlgorithmRequired = &ConfigError{Reason: "single-use token algorithm is required"}
	ErrUnsupportedTokenAlgorithm       = &ConfigError{Reason: "single-use token algorithm must be one of HS256, RS256, ES256"}
	ErrSingleUseTokenCompanyIDRequired = &ConfigError{Reason: "single-use token company id is required"}
	ErrSingleUseTokenUserIDRequired    = &ConfigError{Reason: "single-use token user id is required"}
	ErrPrivateKeyOrSecretRequired      = &ConfigError{Reason: "private key or secret is required"}
	ErrUnknownResource                 = &ConfigError{Reason: "unknown resource type"}
)

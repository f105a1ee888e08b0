// Package http wraps the HTTP plumbing shared by all API calls: retries with
// exponential backoff, default JSON:API headers, authentication, response
// caching, charset normalization, and error classification.
package http

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"mime"
	gohttp "net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/rentful-io/rentful-client/internal/auth"
	"github.com/rentful-io/rentful-client/internal/constants"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// Request describes one API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    interface{}
}

// Client executes API requests against a fixed endpoint.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	codec      *rentful.Codec
	auth       auth.Authenticator
	userAgent  string
	logger     rentful.Logger
	debug      bool
	cache      rentful.Cache
	cacheTTL   time.Duration
	redacted   []string

	mu           sync.RWMutex
	lastResponse *rentful.Response
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger rentful.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig tunes the retry policy. Zero values keep the defaults.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		if retryMax > 0 {
			c.httpClient.RetryMax = retryMax
		}

		if waitMin > 0 {
			c.httpClient.RetryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.httpClient.RetryWaitMax = waitMax
		}
	}
}

// WithRetryDisabled turns retries off.
func WithRetryDisabled() Option {
	return func(c *Client) { c.httpClient.RetryMax = 0 }
}

// WithCache enables GET response caching.
func WithCache(cache rentful.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache

		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithRedactedParams adds query parameter names to redact in error messages.
func WithRedactedParams(params []string) Option {
	return func(c *Client) { c.redacted = params }
}

// WithCodec overrides the JSON:API codec.
func WithCodec(codec *rentful.Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithTransport overrides the underlying transport, mainly for tests.
func WithTransport(transport gohttp.RoundTripper) Option {
	return func(c *Client) { c.httpClient.HTTPClient.Transport = transport }
}

// NewClient creates a client for the given endpoint.
func NewClient(baseURL string, authenticator auth.Authenticator, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.Backoff = jitteredBackoff
	retryClient.CheckRetry = checkRetry
	// Hand back the final response when retries are exhausted so the status
	// still classifies instead of surfacing a bare "giving up" error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: retryClient,
		codec:      rentful.NewCodec(nil),
		auth:       authenticator,
		userAgent:  "rentful-client/1.0 (Go)",
		cacheTTL:   constants.DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// jitteredBackoff doubles the base interval per attempt and spreads retries
// with up to 50% random jitter in either direction, capped at max.
func jitteredBackoff(minWait, maxWait time.Duration, attemptNum int, _ *gohttp.Response) time.Duration {
	wait := minWait
	for i := 0; i < attemptNum; i++ {
		wait *= constants.ExponentialBackoffBase
	}

	if wait > maxWait {
		wait = maxWait
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * constants.BackoffJitterFraction * float64(wait)) //nolint:gosec // jitter, not crypto

	return wait + jitter
}

// checkRetry retries transport failures, server errors, and rate limits.
// Context cancellation always stops retrying.
func checkRetry(ctx context.Context, resp *gohttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return true, nil //nolint:nilerr // the transport error is retryable
	}

	if resp.StatusCode >= gohttp.StatusInternalServerError ||
		resp.StatusCode == gohttp.StatusTooManyRequests {
		return true, nil
	}

	return false, nil
}

// LastResponse returns the most recent successful response, or nil when the
// last request failed.
func (c *Client) LastResponse() *rentful.Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastResponse
}

func (c *Client) setLastResponse(resp *rentful.Response) {
	c.mu.Lock()
	c.lastResponse = resp
	c.mu.Unlock()
}

// Do executes the request and returns the raw response. Status codes of 400
// and above are returned as *rentful.APIError. The last-response cell is
// reset before any error propagates, so callers never see a stale success
// after a failure.
func (c *Client) Do(ctx context.Context, req *Request) (*rentful.Response, error) {
	fullURL, requestPath, err := c.buildURL(req)
	if err != nil {
		c.setLastResponse(nil)

		return nil, err
	}

	if resp, ok := c.cachedResponse(req.Method, fullURL); ok {
		return resp, nil
	}

	body, err := c.encodeBody(req.Body)
	if err != nil {
		c.setLastResponse(nil)

		return nil, err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		c.setLastResponse(nil)

		return nil, fmt.Errorf("creating request: %w", err)
	}

	if err := c.setHeaders(ctx, httpReq, req, requestPath, body); err != nil {
		c.setLastResponse(nil)

		return nil, err
	}

	c.logRequest(req.Method, fullURL)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.setLastResponse(nil)

		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.setLastResponse(nil)

		return nil, fmt.Errorf("reading response body: %w", err)
	}

	respBody = normalizeCharset(respBody, httpResp.Header.Get("Content-Type"))

	resp := &rentful.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	c.logResponse(req.Method, fullURL, resp)

	if apiErr := rentful.Classify(rentful.RequestInfo{
		Method: req.Method,
		URL:    fullURL,
		Redact: c.redacted,
	}, resp); apiErr != nil {
		c.setLastResponse(nil)

		return nil, apiErr
	}

	c.setLastResponse(resp)
	c.storeCached(req.Method, fullURL, resp)

	return resp, nil
}

// buildURL normalizes the request path and joins it onto the endpoint. A
// leading slash and dot segments are cleaned away so callers can pass either
// "orders" or "/orders".
func (c *Client) buildURL(req *Request) (fullURL, requestPath string, err error) {
	cleaned := strings.TrimPrefix(req.Path, "/")
	if cleaned != "" {
		cleaned = path.Clean(cleaned)
	}

	fullURL = c.baseURL + "/" + cleaned
	requestPath = "/" + cleaned

	if len(req.Query) > 0 {
		encoded := req.Query.Encode()
		fullURL += "?" + encoded
		requestPath += "?" + encoded
	}

	parsed, err := url.Parse(fullURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid request URL: %w", err)
	}

	return parsed.String(), requestPath, nil
}

func (c *Client) encodeBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	if raw, ok := body.([]byte); ok {
		return raw, nil
	}

	encoded, err := c.codec.Encode(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return encoded, nil
}

func (c *Client) setHeaders(ctx context.Context, httpReq *retryablehttp.Request, req *Request, requestPath string, body []byte) error {
	httpReq.Header.Set("Accept", constants.JSONAPIMediaType)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set("Content-Type", constants.JSONAPIMediaType)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if httpReq.Header.Get("Authorization") == "" && c.auth != nil && c.auth.Active() {
		header, err := c.auth.Authorization(ctx, &auth.RequestInfo{
			Method: req.Method,
			Path:   requestPath,
			Body:   body,
		})
		if err != nil {
			return fmt.Errorf("authorizing request: %w", err)
		}

		httpReq.Header.Set("Authorization", header)
	}

	return nil
}

// normalizeCharset re-encodes non-UTF-8 response bodies to UTF-8 based on the
// charset parameter of the Content-Type header. Unknown charsets leave the
// body untouched.
func normalizeCharset(body []byte, contentType string) []byte {
	if contentType == "" {
		return body
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}

	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return body
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return body
	}

	return decoded
}

func (c *Client) cachedResponse(method, fullURL string) (*rentful.Response, bool) {
	if c.cache == nil || method != gohttp.MethodGet {
		return nil, false
	}

	entry, err := c.cache.Get(context.Background(), fullURL)
	if err != nil {
		return nil, false
	}

	var resp rentful.Response
	if err := c.codec.Engine().Unmarshal(entry.Data, &resp); err != nil {
		return nil, false
	}

	c.setLastResponse(&resp)

	return &resp, true
}

func (c *Client) storeCached(method, fullURL string, resp *rentful.Response) {
	if c.cache == nil || method != gohttp.MethodGet {
		return
	}

	data, err := c.codec.Engine().Marshal(resp)
	if err != nil {
		return
	}

	entry := &rentful.CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(c.cacheTTL),
		ETag:      resp.Headers.Get("ETag"),
	}

	if err := c.cache.Set(context.Background(), fullURL, entry); err != nil && c.logger != nil {
		c.logger.Warn("failed to cache response", map[string]interface{}{
			"url":   fullURL,
			"error": err.Error(),
		})
	}
}

func (c *Client) logRequest(method, fullURL string) {
	if c.logger == nil || !c.debug {
		return
	}

	c.logger.Debug("API request", map[string]interface{}{
		"method": method,
		"url":    rentful.RedactURL(fullURL, c.redacted),
	})
}

func (c *Client) logResponse(method, fullURL string, resp *rentful.Response) {
	if c.logger == nil || !c.debug {
		return
	}

	c.logger.Debug("API response", map[string]interface{}{
		"method": method,
		"url":    rentful.RedactURL(fullURL, c.redacted),
		"status": resp.StatusCode,
		"bytes":  len(resp.Body),
	})
}

package rentful

import (
	"net/http"
	"strconv"
	"time"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitContext describes the remaining request quota and reset timing,
// derived from response headers.
type RateLimitContext struct {
	Limit     int           `json:"limit"     yaml:"limit"`
	Remaining int           `json:"remaining" yaml:"remaining"`
	ResetsIn  time.Duration `json:"resets_in" yaml:"resets_in"`
}

// ParseRateLimit derives a RateLimitContext from response headers. Every
// field defaults to 1 when its header is absent or unparseable, so a 429
// without rate-limit headers (e.g. secondary rate limiting) still carries a
// usable context.
func ParseRateLimit(headers http.Header) *RateLimitContext {
	ctx := &RateLimitContext{
		Limit:     1,
		Remaining: 1,
		ResetsIn:  time.Second,
	}

	if headers == nil {
		return ctx
	}

	if v, err := strconv.Atoi(headers.Get(HeaderRateLimitLimit)); err == nil {
		ctx.Limit = v
	}

	if v, err := strconv.Atoi(headers.Get(HeaderRateLimitRemaining)); err == nil {
		ctx.Remaining = v
	}

	if v, err := strconv.Atoi(headers.Get(HeaderRateLimitReset)); err == nil {
		ctx.ResetsIn = time.Duration(v) * time.Second
	}

	return ctx
}

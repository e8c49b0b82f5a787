package netlify

import (
	"golang.org/x/time/rate"
)

// RateLimitConfig holds client-side rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimitConfig stays under Netlify's limit of 500 requests per minute
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 8.0,
		Burst:             10,
	}
}

// NewLimiter returns a token bucket for outgoing requests.
// A disabled or invalid config yields a limiter that never waits.
func NewLimiter(config RateLimitConfig) *rate.Limiter {
	if !config.Enabled || config.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
}

package source

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	// RequestTimeout bounds a single outbound query.
	RequestTimeout = 10 * time.Second

	// ResultLimit is the fixed result-count ceiling per query.
	ResultLimit = 1000

	// BurstSize lets a full walk-back run without waiting on the limiter.
	BurstSize = 10
)

type HTTPConfig struct {
	BaseURL        string
	APIKey         string
	RateLimiter    *rate.Limiter
	RequestTimeout time.Duration
	Limit          int
}

func DefaultHTTPConfig(baseURL, apiKey string, requestsPerSecond float64) *HTTPConfig {
	return &HTTPConfig{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		RateLimiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), BurstSize),
		RequestTimeout: RequestTimeout,
		Limit:          ResultLimit,
	}
}

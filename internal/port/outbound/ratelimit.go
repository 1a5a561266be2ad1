package outbound

import (
	"context"
	"time"
)

// RateLimiterPort counts requests per key in fixed windows.
type RateLimiterPort interface {
	// Allow records one request for key and reports whether it fits within
	// limit for the current window, with the requests left in it.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

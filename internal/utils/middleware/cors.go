package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig returns the cross-origin policy for browser checkouts. With no
// origins every origin is allowed, and credentials are never shared.
func CORSConfig(origins ...string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", RequestIDHeader, IdempotencyKeyHeader},
		// Clients read these to correlate requests and back off.
		ExposeHeaders: []string{"Content-Length", RequestIDHeader, RateLimitRemaining, RetryAfter},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// CORS applies CORSConfig(origins...).
func CORS(origins ...string) gin.HandlerFunc {
	return cors.New(CORSConfig(origins...))
}

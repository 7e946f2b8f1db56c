// ratelimit.go implements per-client-IP rate limiting using a token bucket
// algorithm.
//
// How token bucket works:
// - Each client IP gets a "bucket" with N tokens (the configured per-minute limit)
// - Each request consumes 1 token
// - Tokens refill at a steady rate (limit tokens per minute)
// - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// This is more sophisticated than a simple counter because it smooths out
// burst traffic naturally.
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// RateLimiter tracks request rates per client IP for one route class
// (create, upload, or regenerate — each gets its own RateLimiter instance
// so their buckets never share capacity).
type RateLimiter struct {
	// Go Pattern: sync.RWMutex allows multiple concurrent readers but
	// exclusive writers. Every access here (allow, cleanup) updates bucket
	// state, so both take the exclusive Lock.
	mu          sync.RWMutex
	buckets     map[string]*bucket
	perMinute   int
}

// bucket tracks the token state for a single client IP.
type bucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter enforcing requestsPerMinute per
// client IP.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: requestsPerMinute,
	}

	go rl.cleanup()

	return rl
}

// RateLimit returns Gin middleware that enforces the per-IP rate limit.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, b := rl.allow(clientIP)
		if !allowed {
			c.JSON(http.StatusTooManyRequests, models.NewErrorEnvelope(
				"rate_limit_exceeded", "Rate limit exceeded. Try again later."))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", formatFloat(b.maxTokens))
		c.Header("X-RateLimit-Remaining", formatFloat(b.tokens))

		c.Next()
	}
}

// allow checks if a request should be allowed, consuming a token if so.
func (rl *RateLimiter) allow(clientIP string) (bool, *bucket) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[clientIP]
	if !exists {
		b = &bucket{
			tokens:     float64(rl.perMinute),
			maxTokens:  float64(rl.perMinute),
			refillRate: float64(rl.perMinute) / 60.0, // tokens per second (rate per minute)
			lastRefill: time.Now(),
		}
		rl.buckets[clientIP] = b
	}

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens < 1.0 {
		return false, b
	}

	b.tokens--
	return true, b
}

// cleanup periodically removes stale buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, b := range rl.buckets {
			if now.Sub(b.lastRefill) > time.Hour {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// formatFloat converts a float to a string for headers.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.0f", f)
}
